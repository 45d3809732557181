// Package threshold turns a stack snapshot into a plugin verdict.
package threshold

import (
	"fmt"
	"strings"

	"github.com/nmslite/check-cisco-stack/internal/plugin"
	"github.com/nmslite/check-cisco-stack/internal/stack"
)

// Thresholds holds the alerting policy for one run.
type Thresholds struct {
	// FailedTolerance is the number of failed members still reported as WARNING.
	FailedTolerance int `yaml:"failed_tolerance" validate:"gte=0"`
	// MinMembers is the expected member count; 0 disables the check.
	MinMembers     int  `yaml:"min_members" validate:"gte=0"`
	RequireStandby bool `yaml:"require_standby"`
	IgnoreRing     bool `yaml:"ignore_ring"`
	// UnreachableCritical reports an unreachable device as CRITICAL instead of UNKNOWN.
	UnreachableCritical bool `yaml:"unreachable_critical"`
}

type counts struct {
	present, active, standby, healthy, failed, degraded, unknown int
}

// Evaluate applies the rules in precedence order; the first match wins.
// Structural faults (unreachable, no active, split-brain, missing members)
// always outrank degraded members.
func Evaluate(snap stack.Snapshot, th Thresholds) plugin.Verdict {
	if !snap.Reachable() {
		return plugin.Verdict{Severity: plugin.Critical, Summary: "stack unreachable"}
	}

	members := snap.Members()
	var c counts
	var actives, failed, unknown, degraded []string
	for _, m := range members {
		if m.Present() {
			c.present++
		}
		if m.Healthy() {
			c.healthy++
		}
		switch m.Role {
		case stack.RoleActive:
			c.active++
			actives = append(actives, m.String())
		case stack.RoleStandby:
			c.standby++
		}
		switch m.State {
		case stack.StateFailed, stack.StateUnreachable:
			c.failed++
			failed = append(failed, fmt.Sprintf("%s %s", m, m.StateLabel()))
		case stack.StateDegraded:
			c.degraded++
			degraded = append(degraded, fmt.Sprintf("%s %s", m, m.StateLabel()))
		}
		if m.Role == stack.RoleUnknown || m.State == stack.StateUnknown {
			c.unknown++
			unknown = append(unknown, describeUnknown(m))
		}
	}

	verdict := func(sev plugin.Severity, format string, args ...interface{}) plugin.Verdict {
		return plugin.Verdict{
			Severity: sev,
			Summary:  fmt.Sprintf(format, args...),
			Perf:     perfdata(len(members), c),
		}
	}

	total := len(members)
	switch {
	case c.active == 0:
		return verdict(plugin.Critical, "no active stack member")
	case c.active > 1:
		return verdict(plugin.Critical, "split-brain: multiple active members (%s)", strings.Join(actives, ", "))
	case th.MinMembers > 0 && c.present < th.MinMembers:
		return verdict(plugin.Critical, "%d of %d expected members present", c.present, th.MinMembers)
	case c.failed > 0:
		sev := plugin.Warning
		if c.failed > th.FailedTolerance {
			sev = plugin.Critical
		}
		return verdict(sev, "%d failed member(s), tolerance %d: %s", c.failed, th.FailedTolerance, strings.Join(failed, ", "))
	case c.unknown > 0:
		return verdict(plugin.Warning, "unknown role/state: %s", strings.Join(unknown, ", "))
	case th.RequireStandby && c.standby == 0:
		return verdict(plugin.Warning, "no standby member")
	case c.degraded > 0:
		return verdict(plugin.Warning, "degraded members: %s", strings.Join(degraded, ", "))
	case !th.IgnoreRing && total > 1 && snap.Ring == stack.RingNonRedundant:
		return verdict(plugin.Warning, "stack ring is non-redundant")
	}

	return verdict(plugin.OK, "%d of %d members healthy", c.healthy, total)
}

func describeUnknown(m stack.Member) string {
	var parts []string
	if m.Role == stack.RoleUnknown {
		parts = append(parts, fmt.Sprintf("role unknown(%d)", m.RoleCode))
	}
	if m.State == stack.StateUnknown {
		parts = append(parts, "state "+m.StateLabel())
	}
	return fmt.Sprintf("%s %s", m, strings.Join(parts, " "))
}

func perfdata(total int, c counts) []plugin.PerfValue {
	return []plugin.PerfValue{
		{Label: "members", Value: float64(total)},
		{Label: "healthy", Value: float64(c.healthy)},
		{Label: "active", Value: float64(c.active)},
		{Label: "standby", Value: float64(c.standby)},
		{Label: "failed", Value: float64(c.failed)},
		{Label: "degraded", Value: float64(c.degraded)},
		{Label: "unknown", Value: float64(c.unknown)},
	}
}
