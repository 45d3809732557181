// Package stack models a StackWise switch stack and decodes it from
// CISCO-STACKWISE-MIB variable bindings.
package stack

import "fmt"

// Role is the stack role of a member.
type Role int

const (
	RoleUnknown Role = iota
	RoleActive
	RoleStandby
	RoleMember
)

func (r Role) String() string {
	switch r {
	case RoleActive:
		return "active"
	case RoleStandby:
		return "standby"
	case RoleMember:
		return "member"
	default:
		return "unknown"
	}
}

// State is the operational state of a member.
type State int

const (
	StateUnknown State = iota
	StateOK
	StateDegraded
	StateFailed
	StateUnreachable
)

func (s State) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateDegraded:
		return "degraded"
	case StateFailed:
		return "failed"
	case StateUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Member is one physical switch in the stack.
type Member struct {
	Number int // switch number as labelled on the unit
	Index  int // cswSwitchInfoTable row index (entPhysicalIndex)
	Role   Role
	State  State

	// Device codes and Cisco names, kept for operator-facing summaries.
	RoleCode  int
	StateCode int
	StateName string
}

func (m Member) String() string {
	return fmt.Sprintf("switch %d", m.Number)
}

// StateLabel returns the device state name, falling back to the domain state.
func (m Member) StateLabel() string {
	if m.StateName != "" {
		return m.StateName
	}
	return m.State.String()
}

// Healthy reports whether the member needs no attention.
func (m Member) Healthy() bool {
	return m.State == StateOK && m.Role != RoleUnknown
}

// Present reports whether the switch is physically part of the stack.
// Pre-provisioned rows (role notMember, state provisioned) hold only
// configuration for a unit that has not joined.
func (m Member) Present() bool {
	return m.RoleCode != roleCodeNotMember && m.StateCode != stateCodeProvisioned
}

// Ring is the stack ring redundancy as reported by cswRingRedundant.
type Ring int

const (
	RingNotReported Ring = iota
	RingRedundant
	RingNonRedundant
)

// Snapshot is the state of the whole stack at fetch time.
// An unreachable snapshot never carries members.
type Snapshot struct {
	reachable bool
	members   []Member
	Ring      Ring
}

// NewSnapshot returns a reachable snapshot holding members in the given order.
func NewSnapshot(members []Member, ring Ring) Snapshot {
	return Snapshot{
		reachable: true,
		members:   append([]Member(nil), members...),
		Ring:      ring,
	}
}

// Unreachable returns the snapshot for a stack that could not be reached.
func Unreachable() Snapshot {
	return Snapshot{}
}

// Reachable reports whether the stack answered.
func (s Snapshot) Reachable() bool { return s.reachable }

// Members returns a copy of the members.
func (s Snapshot) Members() []Member {
	return append([]Member(nil), s.members...)
}

// Len returns the number of members.
func (s Snapshot) Len() int { return len(s.members) }
