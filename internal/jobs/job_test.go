package jobs

import (
	"strings"
	"testing"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusRunning, true},
		{StatusPending, StatusFailed, true},
		{StatusRunning, StatusCompleted, true},
		{StatusRunning, StatusFailed, true},

		{StatusPending, StatusCompleted, false},
		{StatusCompleted, StatusRunning, false},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusFailed, StatusRunning, false},
		{StatusRunning, StatusPending, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(StatusPending) || IsTerminal(StatusRunning) {
		t.Error("pending/running reported terminal")
	}
	if !IsTerminal(StatusCompleted) || !IsTerminal(StatusFailed) {
		t.Error("completed/failed not reported terminal")
	}
}

func TestAdvanceProgress(t *testing.T) {
	cases := []struct {
		current, proposed, want int
	}{
		{0, 3, 3},
		{3, 5, 5},
		{5, 5, 5},
		{5, 2, 5}, // stale update is a no-op
	}
	for _, tc := range cases {
		if got := AdvanceProgress(tc.current, tc.proposed); got != tc.want {
			t.Errorf("AdvanceProgress(%d, %d) = %d, want %d", tc.current, tc.proposed, got, tc.want)
		}
	}
}

func TestGenerateID(t *testing.T) {
	a := GenerateID("chat-")
	b := GenerateID("chat-")

	if !strings.HasPrefix(a, "chat-") || len(a) != len("chat-")+32 {
		t.Errorf("id %q not of form chat-<32 hex>", a)
	}
	if a == b {
		t.Errorf("two generated ids collided: %q", a)
	}
}

func TestParseRoute(t *testing.T) {
	jobID, action, ok := ParseRoute("/api/chat/chat-abc123/results", "/api/chat/", "chat-")
	if !ok || jobID != "chat-abc123" || action != "results" {
		t.Errorf("got (%q, %q, %v)", jobID, action, ok)
	}

	// Bare id is normalized with the prefix.
	jobID, _, ok = ParseRoute("/api/export/def456/results", "/api/export/", "export-")
	if !ok || jobID != "export-def456" {
		t.Errorf("got %q", jobID)
	}

	if _, _, ok := ParseRoute("/api/chat/onlyid", "/api/chat/", "chat-"); ok {
		t.Error("short path accepted")
	}
}
