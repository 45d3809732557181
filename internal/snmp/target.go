package snmp

import (
	"fmt"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Target describes the device to query. It is built once from the invocation
// and never modified afterwards.
type Target struct {
	Host      string
	Port      uint16
	Version   string // "1", "2c" or "3"
	Community string // community string, or USM security name for v3
	Timeout   time.Duration

	// SNMPv3 only
	SecurityLevel string
	AuthProtocol  string
	AuthPassword  string
	PrivProtocol  string
	PrivPassword  string
}

// Binding is one variable binding as returned by the device.
type Binding struct {
	OID   string
	Value interface{}
}

// RawResponse is the unparsed result of a fetch, in device order.
type RawResponse []Binding

// newGoSNMP builds the gosnmp handle for a target with retries disabled.
func newGoSNMP(t Target) (*gosnmp.GoSNMP, error) {
	g := &gosnmp.GoSNMP{
		Target:         t.Host,
		Port:           t.Port,
		Transport:      "udp",
		Timeout:        t.Timeout,
		Retries:        0,
		MaxOids:        gosnmp.MaxOids,
		MaxRepetitions: 20,
	}

	switch t.Version {
	case "1":
		g.Version = gosnmp.Version1
		g.Community = t.Community
	case "2c", "":
		g.Version = gosnmp.Version2c
		g.Community = t.Community
	case "3":
		g.Version = gosnmp.Version3
		if err := applyUSM(g, t); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q", t.Version)
	}

	return g, nil
}

// applyUSM configures user-based security for SNMPv3.
func applyUSM(g *gosnmp.GoSNMP, t Target) error {
	var level gosnmp.SnmpV3MsgFlags
	switch t.SecurityLevel {
	case "noAuthNoPriv":
		level = gosnmp.NoAuthNoPriv
	case "authNoPriv", "":
		level = gosnmp.AuthNoPriv
	case "authPriv":
		level = gosnmp.AuthPriv
	default:
		return fmt.Errorf("invalid security level: %s", t.SecurityLevel)
	}

	var authProto gosnmp.SnmpV3AuthProtocol
	switch t.AuthProtocol {
	case "MD5":
		authProto = gosnmp.MD5
	case "SHA", "":
		authProto = gosnmp.SHA
	case "SHA224":
		authProto = gosnmp.SHA224
	case "SHA256":
		authProto = gosnmp.SHA256
	case "SHA384":
		authProto = gosnmp.SHA384
	case "SHA512":
		authProto = gosnmp.SHA512
	default:
		return fmt.Errorf("invalid auth protocol: %s", t.AuthProtocol)
	}

	var privProto gosnmp.SnmpV3PrivProtocol
	switch t.PrivProtocol {
	case "DES":
		privProto = gosnmp.DES
	case "AES", "":
		privProto = gosnmp.AES
	case "AES192":
		privProto = gosnmp.AES192
	case "AES256":
		privProto = gosnmp.AES256
	default:
		return fmt.Errorf("invalid privacy protocol: %s", t.PrivProtocol)
	}

	params := &gosnmp.UsmSecurityParameters{UserName: t.Community}
	switch level {
	case gosnmp.AuthNoPriv:
		params.AuthenticationProtocol = authProto
		params.AuthenticationPassphrase = t.AuthPassword
	case gosnmp.AuthPriv:
		params.AuthenticationProtocol = authProto
		params.AuthenticationPassphrase = t.AuthPassword
		params.PrivacyProtocol = privProto
		params.PrivacyPassphrase = t.PrivPassword
	}

	g.SecurityModel = gosnmp.UserSecurityModel
	g.MsgFlags = level
	g.SecurityParameters = params
	return nil
}
