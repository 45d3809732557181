// Package snmp fetches CISCO-STACKWISE-MIB state from a switch stack.
package snmp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gosnmp/gosnmp"
)

// CISCO-STACKWISE-MIB objects
const (
	SwitchNumCurrentOID = ".1.3.6.1.4.1.9.9.500.1.2.1.1.1"
	SwitchRoleOID       = ".1.3.6.1.4.1.9.9.500.1.2.1.1.3"
	SwitchStateOID      = ".1.3.6.1.4.1.9.9.500.1.2.1.1.6"
	RingRedundantOID    = ".1.3.6.1.4.1.9.9.500.1.1.3.0"
)

// StackColumns are the cswSwitchInfoTable columns walked on every fetch.
var StackColumns = []string{SwitchNumCurrentOID, SwitchRoleOID, SwitchStateOID}

// session is the subset of *gosnmp.GoSNMP used by the client.
type session interface {
	WalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
	BulkWalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
}

// goSession adapts *gosnmp.GoSNMP to session.
type goSession struct {
	*gosnmp.GoSNMP
}

func (s goSession) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}

// Client performs a single bounded SNMP fetch per call. It keeps no state
// between calls.
type Client struct {
	open   func(ctx context.Context, t Target) (session, error)
	logger *slog.Logger
}

// NewClient creates a Client backed by gosnmp.
func NewClient(logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{open: dial, logger: logger}
}

func dial(ctx context.Context, t Target) (session, error) {
	g, err := newGoSNMP(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	g.Context = ctx

	if err := g.Connect(); err != nil {
		return nil, err
	}
	return goSession{g}, nil
}

// Fetch walks the stack table and reads the ring redundancy scalar.
// There are no retries: the whole exchange is bounded by t.Timeout and the
// scheduler decides when to try again.
func (c *Client) Fetch(ctx context.Context, t Target) (RawResponse, error) {
	if t.Host == "" {
		return nil, fmt.Errorf("%w: host is required", ErrInvalidTarget)
	}
	if t.Timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", ErrInvalidTarget)
	}

	ctx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	s, err := c.open(ctx, t)
	if err != nil {
		if errors.Is(err, ErrInvalidTarget) {
			return nil, err
		}
		return nil, classify(t.Host, err)
	}
	defer s.Close()

	walk := s.BulkWalkAll
	if t.Version == "1" {
		walk = s.WalkAll
	}

	var resp RawResponse
	for _, root := range StackColumns {
		c.logger.Debug("Walking stack column", "oid", root)
		pdus, err := walk(root)
		if err != nil {
			return nil, classify(t.Host, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, classify(t.Host, err)
		}
		resp = appendPDUs(resp, pdus)
	}

	c.logger.Debug("Getting stack ring redundancy", "oid", RingRedundantOID)
	pkt, err := s.Get([]string{RingRedundantOID})
	if err != nil {
		return nil, classify(t.Host, err)
	}
	switch pkt.Error {
	case gosnmp.NoError:
		resp = appendPDUs(resp, pkt.Variables)
	case gosnmp.NoSuchName:
		// SNMPv1 agents without the scalar answer noSuchName
	default:
		return nil, &ProtocolError{
			Kind: Malformed,
			Host: t.Host,
			Err:  fmt.Errorf("GET returned error status %d at index %d", pkt.Error, pkt.ErrorIndex),
		}
	}

	c.logger.Debug("Fetched stack bindings", "count", len(resp))
	return resp, nil
}

// appendPDUs converts PDUs to bindings, dropping the "not present" exceptions.
func appendPDUs(resp RawResponse, pdus []gosnmp.SnmpPDU) RawResponse {
	for _, pdu := range pdus {
		switch pdu.Type {
		case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
			continue
		}
		resp = append(resp, Binding{OID: pdu.Name, Value: pdu.Value})
	}
	return resp
}
