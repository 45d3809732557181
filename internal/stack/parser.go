package stack

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gosnmp/gosnmp"

	"github.com/nmslite/check-cisco-stack/internal/snmp"
)

// ParseErrorKind classifies why a response could not become a snapshot.
type ParseErrorKind int

const (
	Incomplete ParseErrorKind = iota + 1
	NoStack
	MalformedBinding
)

// ParseError reports a response that was received but cannot be trusted.
type ParseError struct {
	Kind   ParseErrorKind
	Detail string
}

func (e *ParseError) Error() string {
	switch e.Kind {
	case Incomplete:
		return "incomplete stack response: " + e.Detail
	case NoStack:
		return "no stack configured on device"
	case MalformedBinding:
		return "malformed stack response: " + e.Detail
	default:
		return "stack response error: " + e.Detail
	}
}

const (
	roleCodeNotMember    = 3
	stateCodeProvisioned = 9
)

// cswSwitchRole
var roleCodes = map[int]Role{
	1: RoleActive,  // master
	2: RoleMember,  // member
	3: RoleMember,  // notMember
	4: RoleStandby, // standby
}

type stateDef struct {
	name  string
	state State
}

// cswSwitchState
var stateCodes = map[int]stateDef{
	1:  {"waiting", StateDegraded},
	2:  {"progressing", StateDegraded},
	3:  {"added", StateDegraded},
	4:  {"ready", StateOK},
	5:  {"sdmMismatch", StateFailed},
	6:  {"verMismatch", StateFailed},
	7:  {"featureMismatch", StateFailed},
	8:  {"newMasterInit", StateDegraded},
	9:  {"provisioned", StateOK},
	10: {"invalid", StateFailed},
	11: {"removed", StateUnreachable},
}

type column int

const (
	colNumber column = iota
	colRole
	colState
)

var columns = []struct {
	oid  string
	col  column
	name string
}{
	{snmp.SwitchNumCurrentOID, colNumber, "cswSwitchNumCurrent"},
	{snmp.SwitchRoleOID, colRole, "cswSwitchRole"},
	{snmp.SwitchStateOID, colState, "cswSwitchState"},
}

type row struct {
	values [3]int
	seen   [3]bool
}

// Parse builds a snapshot from a raw response. Bindings are matched by OID,
// so order does not matter and unrelated bindings are ignored.
func Parse(resp snmp.RawResponse) (Snapshot, error) {
	rows := make(map[int]*row)
	ring := RingNotReported
	ringSeen := false

	for _, b := range resp {
		oid := b.OID
		if !strings.HasPrefix(oid, ".") {
			oid = "." + oid
		}

		if oid == snmp.RingRedundantOID {
			v, err := toInt(b.Value)
			if err != nil {
				return Snapshot{}, &ParseError{Kind: MalformedBinding, Detail: fmt.Sprintf("cswRingRedundant: %v", err)}
			}
			ringSeen = true
			switch v {
			case 1:
				ring = RingRedundant
			case 2:
				ring = RingNonRedundant
			default:
				return Snapshot{}, &ParseError{Kind: MalformedBinding, Detail: fmt.Sprintf("cswRingRedundant: invalid TruthValue %d", v)}
			}
			continue
		}

		for _, c := range columns {
			if !strings.HasPrefix(oid, c.oid+".") {
				continue
			}
			idx, err := strconv.Atoi(oid[len(c.oid)+1:])
			if err != nil {
				return Snapshot{}, &ParseError{Kind: MalformedBinding, Detail: fmt.Sprintf("%s has bad row index in %s", c.name, b.OID)}
			}
			v, err := toInt(b.Value)
			if err != nil {
				return Snapshot{}, &ParseError{Kind: MalformedBinding, Detail: fmt.Sprintf("%s.%d: %v", c.name, idx, err)}
			}
			r, ok := rows[idx]
			if !ok {
				r = &row{}
				rows[idx] = r
			}
			r.values[c.col] = v
			r.seen[c.col] = true
			break
		}
	}

	if len(rows) == 0 {
		if ringSeen {
			return Snapshot{}, &ParseError{Kind: Incomplete, Detail: "ring status present but stack table is empty"}
		}
		return Snapshot{}, &ParseError{Kind: NoStack}
	}

	indices := make([]int, 0, len(rows))
	for idx := range rows {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	members := make([]Member, 0, len(rows))
	for _, idx := range indices {
		r := rows[idx]
		for _, c := range columns {
			if !r.seen[c.col] {
				return Snapshot{}, &ParseError{Kind: Incomplete, Detail: fmt.Sprintf("row %d missing %s", idx, c.name)}
			}
		}
		members = append(members, newMember(idx, r))
	}

	sort.Slice(members, func(i, j int) bool {
		if members[i].Number != members[j].Number {
			return members[i].Number < members[j].Number
		}
		return members[i].Index < members[j].Index
	})

	return NewSnapshot(members, ring), nil
}

func newMember(idx int, r *row) Member {
	m := Member{
		Number:    r.values[colNumber],
		Index:     idx,
		RoleCode:  r.values[colRole],
		StateCode: r.values[colState],
	}

	m.Role = roleCodes[m.RoleCode] // zero value is RoleUnknown

	if def, ok := stateCodes[m.StateCode]; ok {
		m.State = def.state
		m.StateName = def.name
	} else {
		m.State = StateUnknown
		m.StateName = fmt.Sprintf("unknown(%d)", m.StateCode)
	}
	return m
}

// toInt accepts the integer types gosnmp decodes INTEGER, Gauge32 and
// Unsigned32 into.
func toInt(v interface{}) (int, error) {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	n := gosnmp.ToBigInt(v)
	if !n.IsInt64() || n.Int64() > int64(^uint32(0)) || n.Int64() < -1<<31 {
		return 0, fmt.Errorf("integer %s out of range", n.String())
	}
	return int(n.Int64()), nil
}
