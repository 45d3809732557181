package snmp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
)

// ErrInvalidTarget is returned when a target fails the basic input checks.
var ErrInvalidTarget = errors.New("invalid SNMP target")

// ErrorKind classifies transport failures.
type ErrorKind int

const (
	Unreachable ErrorKind = iota + 1
	Timeout
	Malformed
)

func (k ErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case Timeout:
		return "timeout"
	case Malformed:
		return "malformed response"
	default:
		return "error"
	}
}

// ProtocolError is a transport-level failure talking to the device.
type ProtocolError struct {
	Kind ErrorKind
	Host string
	Err  error
}

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case Timeout:
		return fmt.Sprintf("SNMP timeout contacting host %s", e.Host)
	case Unreachable:
		return fmt.Sprintf("SNMP host %s unreachable: %v", e.Host, e.Err)
	case Malformed:
		return fmt.Sprintf("SNMP malformed response from host %s: %v", e.Host, e.Err)
	default:
		return fmt.Sprintf("SNMP error contacting host %s: %v", e.Host, e.Err)
	}
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// classify maps a gosnmp or socket error onto a ProtocolError.
func classify(host string, err error) *ProtocolError {
	var pe *ProtocolError
	if errors.As(err, &pe) {
		return pe
	}

	kind := Malformed
	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = Timeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = Timeout
	case strings.Contains(strings.ToLower(err.Error()), "timeout"):
		// gosnmp reports exhausted retries as "request timeout (after N retries)"
		kind = Timeout
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EHOSTUNREACH),
		errors.Is(err, syscall.ENETUNREACH),
		errors.As(err, &dnsErr),
		errors.As(err, &opErr):
		kind = Unreachable
	case strings.Contains(err.Error(), "connection refused"),
		strings.Contains(err.Error(), "no route to host"):
		kind = Unreachable
	}

	return &ProtocolError{Kind: kind, Host: host, Err: err}
}
