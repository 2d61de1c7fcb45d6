// Package model defines the domain types used across the application.
package model

import (
	"maps"
	"time"
)

// Ad represents a single classifieds listing entry.
type Ad struct {
	ID          string
	Title       string
	Location    string
	Description string
}

// URL returns the detail page address of the ad under the given base URL.
func (a Ad) URL(base string) string {
	return base + a.ID
}

// SeenEntry records when an ad was first observed.
type SeenEntry struct {
	ID          string
	FirstSeenAt time.Time
}

// Ledger maps ad IDs to their first-seen timestamp.
// Entries are only ever added; an existing timestamp is never overwritten.
type Ledger map[string]time.Time

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	return make(Ledger)
}

// IsKnown reports whether the ad ID has been seen before.
func (l Ledger) IsKnown(id string) bool {
	_, ok := l[id]
	return ok
}

// MarkSeen records id as first seen at now. It is a no-op if id is already
// present and reports whether an insert happened.
func (l Ledger) MarkSeen(id string, now time.Time) bool {
	if l.IsKnown(id) {
		return false
	}
	l[id] = now
	return true
}

// Clone returns an independent copy of the ledger.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return NewLedger()
	}
	return maps.Clone(l)
}

// Evict removes entries first seen before cutoff and returns how many were dropped.
func (l Ledger) Evict(cutoff time.Time) int {
	n := 0
	for id, seen := range l {
		if seen.Before(cutoff) {
			delete(l, id)
			n++
		}
	}
	return n
}

// Entries returns the ledger as a slice of SeenEntry in no particular order.
func (l Ledger) Entries() []SeenEntry {
	entries := make([]SeenEntry, 0, len(l))
	for id, seen := range l {
		entries = append(entries, SeenEntry{ID: id, FirstSeenAt: seen})
	}
	return entries
}

// ErrorKind classifies why a cycle failed.
type ErrorKind string

// Supported error kinds.
const (
	KindNone      ErrorKind = ""
	KindTransport ErrorKind = "transport"
	KindParse     ErrorKind = "parse"
	KindPersist   ErrorKind = "persist"
	KindNotify    ErrorKind = "notify"
	KindCanceled  ErrorKind = "canceled"
	KindUnknown   ErrorKind = "unknown"
)

// CycleOutcome is the result of a single poll cycle. A successful cycle
// carries KindNone.
type CycleOutcome struct {
	Success bool
	NewAds  int
	Kind    ErrorKind
	Err     error
}
