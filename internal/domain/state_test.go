package domain

import "testing"

func strptr(s string) *string { return &s }

func TestState_NilRow(t *testing.T) {
	var c *Connection
	if got := c.State(); got != StateNone {
		t.Fatalf("expected StateNone for nil row, got %q", got)
	}
}

func TestState_Active(t *testing.T) {
	c := &Connection{Removed: false}
	if got := c.State(); got != StateActive {
		t.Fatalf("expected StateActive, got %q", got)
	}
}

func TestState_Removed(t *testing.T) {
	c := &Connection{Removed: true}
	if got := c.State(); got != StateRemoved {
		t.Fatalf("expected StateRemoved, got %q", got)
	}
}

func TestState_Requested(t *testing.T) {
	c := &Connection{
		Removed:                 true,
		ReconnectionRequested:   true,
		ReconnectionRequestedBy: strptr("u1"),
	}
	if got := c.State(); got != StateRequested {
		t.Fatalf("expected StateRequested, got %q", got)
	}
}

func TestState_Rejected(t *testing.T) {
	c := &Connection{
		Removed:               true,
		ReconnectionRequested: true,
		ReconnectionRejected:  true,
	}
	if got := c.State(); got != StateRejected {
		t.Fatalf("expected StateRejected, got %q", got)
	}
}

func TestState_LimitReached(t *testing.T) {
	// The cap check is strictly-greater-than: a count equal to the limit is
	// still reconnectable, one past it is terminal.
	atLimit := &Connection{Removed: true, ReconnectionCount: ReconnectionLimit}
	if got := atLimit.State(); got != StateRemoved {
		t.Fatalf("count == limit should still be StateRemoved, got %q", got)
	}
	past := &Connection{Removed: true, ReconnectionCount: ReconnectionLimit + 1}
	if got := past.State(); got != StateLimitReached {
		t.Fatalf("expected StateLimitReached, got %q", got)
	}
	// Limit wins over a pending request.
	past.ReconnectionRequested = true
	if got := past.State(); got != StateLimitReached {
		t.Fatalf("limit should shadow requested, got %q", got)
	}
}

func TestPairKey_Canonical(t *testing.T) {
	l, h := PairKey("b", "a")
	if l != "a" || h != "b" {
		t.Fatalf("PairKey(b,a) = (%s,%s), want (a,b)", l, h)
	}
	l2, h2 := PairKey("a", "b")
	if l2 != l || h2 != h {
		t.Fatalf("PairKey must be order-insensitive")
	}
}

func TestBeforeSave_SetsPairColumns(t *testing.T) {
	c := &Connection{InitiatingUserID: "zz", ConnectedUserID: "aa"}
	if err := c.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if c.PairLow != "aa" || c.PairHigh != "zz" {
		t.Fatalf("pair columns = (%s,%s), want (aa,zz)", c.PairLow, c.PairHigh)
	}
}

func TestOtherUserID(t *testing.T) {
	c := &Connection{InitiatingUserID: "u1", ConnectedUserID: "u2"}
	if got := c.OtherUserID("u1"); got != "u2" {
		t.Fatalf("OtherUserID(u1) = %s, want u2", got)
	}
	if got := c.OtherUserID("u2"); got != "u1" {
		t.Fatalf("OtherUserID(u2) = %s, want u1", got)
	}
}
