package model

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLedgerMarkSeen(t *testing.T) {
	first := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	l := NewLedger()
	if l.IsKnown("1001") {
		t.Fatal("empty ledger should know nothing")
	}
	if !l.MarkSeen("1001", first) {
		t.Fatal("first MarkSeen should insert")
	}
	if l.MarkSeen("1001", later) {
		t.Fatal("second MarkSeen should be a no-op")
	}
	if !l.IsKnown("1001") {
		t.Fatal("id should be known after MarkSeen")
	}
	if diff := cmp.Diff(Ledger{"1001": first}, l); diff != "" {
		t.Errorf("ledger mismatch (-want +got):\n%s", diff)
	}
}

func TestLedgerCloneIsIndependent(t *testing.T) {
	now := time.Now()
	l := Ledger{"a": now}

	c := l.Clone()
	c.MarkSeen("b", now)

	if l.IsKnown("b") {
		t.Error("clone must not share storage with the original")
	}
	if diff := cmp.Diff(NewLedger(), Ledger(nil).Clone()); diff != "" {
		t.Errorf("clone of nil ledger (-want +got):\n%s", diff)
	}
}

func TestLedgerEvict(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	l := Ledger{
		"old":    now.Add(-10 * 24 * time.Hour),
		"edge":   now.Add(-7 * 24 * time.Hour),
		"recent": now.Add(-time.Hour),
	}

	n := l.Evict(now.Add(-7 * 24 * time.Hour))

	if diff := cmp.Diff(1, n); diff != "" {
		t.Errorf("evicted count mismatch (-want +got):\n%s", diff)
	}
	want := Ledger{"edge": now.Add(-7 * 24 * time.Hour), "recent": now.Add(-time.Hour)}
	if diff := cmp.Diff(want, l); diff != "" {
		t.Errorf("ledger mismatch (-want +got):\n%s", diff)
	}
}

func TestAdURL(t *testing.T) {
	ad := Ad{ID: "123456"}
	got := ad.URL("https://www.finn.no/bap/forsale/ad.html?finnkode=")
	if diff := cmp.Diff("https://www.finn.no/bap/forsale/ad.html?finnkode=123456", got); diff != "" {
		t.Errorf("URL mismatch (-want +got):\n%s", diff)
	}
}
