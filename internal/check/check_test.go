package check

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/nmslite/check-cisco-stack/internal/plugin"
	"github.com/nmslite/check-cisco-stack/internal/snmp"
	"github.com/nmslite/check-cisco-stack/internal/threshold"
)

type fakeFetcher struct {
	resp  snmp.RawResponse
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, t snmp.Target) (snmp.RawResponse, error) {
	f.calls++
	return f.resp, f.err
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

var target = snmp.Target{Host: "10.0.0.1", Port: 161, Version: "2c", Community: "public", Timeout: time.Second}

func member(idx string, number, role, state int) snmp.RawResponse {
	return snmp.RawResponse{
		{OID: snmp.SwitchNumCurrentOID + "." + idx, Value: number},
		{OID: snmp.SwitchRoleOID + "." + idx, Value: role},
		{OID: snmp.SwitchStateOID + "." + idx, Value: state},
	}
}

func TestRun(t *testing.T) {
	healthy := append(member("1001", 1, 1, 4), member("2001", 2, 4, 4)...)
	failedMember := append(member("1001", 1, 1, 4), member("2001", 2, 2, 6)...)

	tests := []struct {
		name     string
		fetcher  *fakeFetcher
		th       threshold.Thresholds
		wantLine string
		wantCode int
	}{
		{
			name:     "Healthy stack",
			fetcher:  &fakeFetcher{resp: healthy},
			wantLine: "OK - 2 of 2 members healthy",
			wantCode: 0,
		},
		{
			name:     "Failed member tolerated",
			fetcher:  &fakeFetcher{resp: failedMember},
			th:       threshold.Thresholds{FailedTolerance: 1},
			wantLine: "WARNING - 1 failed member(s), tolerance 1: switch 2 verMismatch",
			wantCode: 1,
		},
		{
			name:     "Failed member not tolerated",
			fetcher:  &fakeFetcher{resp: failedMember},
			wantLine: "CRITICAL - 1 failed member(s)",
			wantCode: 2,
		},
		{
			name:     "Timeout",
			fetcher:  &fakeFetcher{err: &snmp.ProtocolError{Kind: snmp.Timeout, Host: "10.0.0.1", Err: context.DeadlineExceeded}},
			wantLine: "UNKNOWN - SNMP timeout contacting host 10.0.0.1",
			wantCode: 3,
		},
		{
			name:     "Timeout reported critical when configured",
			fetcher:  &fakeFetcher{err: &snmp.ProtocolError{Kind: snmp.Timeout, Host: "10.0.0.1", Err: context.DeadlineExceeded}},
			th:       threshold.Thresholds{UnreachableCritical: true},
			wantLine: "CRITICAL - stack unreachable",
			wantCode: 2,
		},
		{
			name:     "Malformed stays unknown when unreachable is critical",
			fetcher:  &fakeFetcher{err: &snmp.ProtocolError{Kind: snmp.Malformed, Host: "10.0.0.1", Err: errors.New("bad packet")}},
			th:       threshold.Thresholds{UnreachableCritical: true},
			wantLine: "UNKNOWN - SNMP malformed response from host 10.0.0.1",
			wantCode: 3,
		},
		{
			name:     "Unreachable",
			fetcher:  &fakeFetcher{err: &snmp.ProtocolError{Kind: snmp.Unreachable, Host: "10.0.0.1", Err: errors.New("connection refused")}},
			wantLine: "UNKNOWN - SNMP host 10.0.0.1 unreachable",
			wantCode: 3,
		},
		{
			name:     "No stack configured",
			fetcher:  &fakeFetcher{},
			wantLine: "UNKNOWN - no stack configured on device",
			wantCode: 3,
		},
		{
			name:     "Incomplete response",
			fetcher:  &fakeFetcher{resp: member("1001", 1, 1, 4)[:2]},
			wantLine: "UNKNOWN - incomplete stack response: row 1001 missing cswSwitchState",
			wantCode: 3,
		},
		{
			name:     "Unexpected error",
			fetcher:  &fakeFetcher{err: errors.New("boom")},
			wantLine: "UNKNOWN - check failed: boom",
			wantCode: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Run(context.Background(), tt.fetcher, target, tt.th, discard)
			line, code := plugin.Render(v)
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d (%q)", code, tt.wantCode, line)
			}
			if !strings.HasPrefix(line, tt.wantLine) {
				t.Errorf("line = %q, want prefix %q", line, tt.wantLine)
			}
			if tt.fetcher.calls != 1 {
				t.Errorf("fetch called %d times, want exactly 1", tt.fetcher.calls)
			}
		})
	}
}
