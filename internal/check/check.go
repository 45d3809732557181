// Package check runs one stack health probe end to end.
package check

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nmslite/check-cisco-stack/internal/plugin"
	"github.com/nmslite/check-cisco-stack/internal/snmp"
	"github.com/nmslite/check-cisco-stack/internal/stack"
	"github.com/nmslite/check-cisco-stack/internal/threshold"
)

// Fetcher retrieves raw stack bindings from a device.
type Fetcher interface {
	Fetch(ctx context.Context, t snmp.Target) (snmp.RawResponse, error)
}

// Run fetches, parses and evaluates the stack state. It never returns an
// error: every failure becomes an UNKNOWN verdict naming what went wrong.
func Run(ctx context.Context, f Fetcher, target snmp.Target, th threshold.Thresholds, logger *slog.Logger) plugin.Verdict {
	if logger == nil {
		logger = slog.Default()
	}

	resp, err := f.Fetch(ctx, target)
	if err != nil {
		var pe *snmp.ProtocolError
		if th.UnreachableCritical && errors.As(err, &pe) && (pe.Kind == snmp.Unreachable || pe.Kind == snmp.Timeout) {
			logger.Info("Stack unreachable", "kind", pe.Kind.String(), "error", err)
			return threshold.Evaluate(stack.Unreachable(), th)
		}
		logger.Info("SNMP fetch failed", "error", err)
		return unknown(err)
	}
	logger.Debug("Fetched stack response", "bindings", len(resp))

	snap, err := stack.Parse(resp)
	if err != nil {
		logger.Info("Stack response rejected", "error", err)
		return unknown(err)
	}

	for _, m := range snap.Members() {
		logger.Debug("Stack member",
			"switch", m.Number,
			"index", m.Index,
			"role", m.Role.String(),
			"state", m.StateLabel(),
		)
	}

	v := threshold.Evaluate(snap, th)
	logger.Debug("Evaluated stack", "severity", v.Severity.String(), "summary", v.Summary)
	return v
}

func unknown(err error) plugin.Verdict {
	var pe *snmp.ProtocolError
	var parseErr *stack.ParseError
	switch {
	case errors.As(err, &pe), errors.As(err, &parseErr), errors.Is(err, snmp.ErrInvalidTarget):
		return plugin.UnknownVerdict("%s", err.Error())
	default:
		return plugin.UnknownVerdict("check failed: %v", err)
	}
}
