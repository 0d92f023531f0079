package throttle

import (
	"testing"
	"time"
)

func TestImmediateRepeatRejected(t *testing.T) {
	th := New(2 * time.Second)
	now := time.Now()

	if !th.AllowAt("Acme", now) {
		t.Fatal("first attempt should be accepted")
	}
	if th.AllowAt("Acme", now.Add(500*time.Millisecond)) {
		t.Error("repeat within cooldown should be rejected")
	}
	if th.AllowAt("Acme", now.Add(1999*time.Millisecond)) {
		t.Error("repeat just inside cooldown should be rejected")
	}
}

func TestSpacedRepeatsAccepted(t *testing.T) {
	th := New(2 * time.Second)
	now := time.Now()

	if !th.AllowAt("Acme", now) {
		t.Fatal("first attempt should be accepted")
	}
	if !th.AllowAt("Acme", now.Add(2*time.Second)) {
		t.Error("repeat after full cooldown should be accepted")
	}
	if !th.AllowAt("Acme", now.Add(4*time.Second)) {
		t.Error("third spaced attempt should be accepted")
	}
}

// Rejections must not reset the cooldown: hammering a key never pushes the
// next acceptance further out.
func TestRejectionLeavesStateUntouched(t *testing.T) {
	th := New(2 * time.Second)
	now := time.Now()

	th.AllowAt("Acme", now)
	th.AllowAt("Acme", now.Add(1*time.Second))         // rejected
	th.AllowAt("Acme", now.Add(1900*time.Millisecond)) // rejected
	if !th.AllowAt("Acme", now.Add(2*time.Second)) {
		t.Error("acceptance should measure from the last accepted attempt")
	}
}

// Keys are the raw query strings: case and whitespace variants are
// independent targets.
func TestRawKeying(t *testing.T) {
	th := New(2 * time.Second)
	now := time.Now()

	if !th.AllowAt("Acme", now) {
		t.Fatal("first attempt should be accepted")
	}
	if !th.AllowAt("acme", now) {
		t.Error("case variant should not share a cooldown")
	}
	if !th.AllowAt("Acme ", now) {
		t.Error("whitespace variant should not share a cooldown")
	}
}

func TestEvictIdle(t *testing.T) {
	th := New(2 * time.Second)
	now := time.Now()

	th.AllowAt("stale", now)
	th.AllowAt("fresh", now.Add(25*time.Second))

	evicted := th.EvictIdle(now.Add(25 * time.Second))
	if evicted != 1 {
		t.Errorf("evicted %d entries, want 1", evicted)
	}
	if th.Len() != 1 {
		t.Errorf("tracked entries = %d, want 1", th.Len())
	}

	// An evicted key behaves like a new one
	if !th.AllowAt("stale", now.Add(26*time.Second)) {
		t.Error("evicted key should be accepted again")
	}
}
