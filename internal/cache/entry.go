package cache

import "time"

// DefaultTTL is the lifetime of an entry created without an explicit TTL.
const DefaultTTL = 300 * time.Second

// Entry wraps one cached value with its creation time and time-to-live.
//
// Entries are immutable. Re-inserting a key replaces the entry; an entry
// never removes itself, the owning region does that.
type Entry[V any] struct {
	value     V
	createdAt time.Time
	ttl       time.Duration
}

// NewEntry creates an entry with DefaultTTL.
func NewEntry[V any](value V) *Entry[V] {
	return NewEntryWithTTL(value, DefaultTTL)
}

// NewEntryWithTTL creates an entry stamped with the current time.
func NewEntryWithTTL[V any](value V, ttl time.Duration) *Entry[V] {
	return newEntryAt(value, ttl, time.Now())
}

func newEntryAt[V any](value V, ttl time.Duration, now time.Time) *Entry[V] {
	return &Entry[V]{value: value, createdAt: now, ttl: ttl}
}

// IsValid reports whether less than TTL has elapsed since creation.
func (e *Entry[V]) IsValid() bool {
	return e.validAt(time.Now())
}

// Value returns the stored value while the entry is valid. Once expired it
// returns the zero value and false, whatever is stored.
func (e *Entry[V]) Value() (V, bool) {
	if !e.IsValid() {
		var zero V
		return zero, false
	}
	return e.value, true
}

// CreatedAt returns the insertion timestamp.
func (e *Entry[V]) CreatedAt() time.Time { return e.createdAt }

// TTL returns the entry's time-to-live.
func (e *Entry[V]) TTL() time.Duration { return e.ttl }

func (e *Entry[V]) validAt(now time.Time) bool {
	return now.Sub(e.createdAt) < e.ttl
}
