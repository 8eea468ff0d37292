// Package stats aggregates call outcomes per endpoint identity ("uri#method").
//
// One Aggregator lives for the whole process. Entries are created lazily on the first
// observation of a key and never removed, so memory grows with the number of distinct
// endpoints ever called, not with the number of calls.
package stats

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Key identifies a statistics bucket: uri + "#" + method.
type Key string

func KeyOf(uri, method string) Key {
	return Key(uri + "#" + method)
}

// Entry is the running aggregate of one Key.
// Invariant: Invocations == Successes + Errors.
type Entry struct {
	Invocations  int64
	Successes    int64
	Errors       int64
	TotalElapsed time.Duration
}

// AverageLatency is TotalElapsed / Invocations, 0 for an empty entry.
func (e Entry) AverageLatency() time.Duration {
	if e.Invocations == 0 {
		return 0
	}
	return e.TotalElapsed / time.Duration(e.Invocations)
}

// AverageMillis is the average latency in (fractional) milliseconds.
func (e Entry) AverageMillis() float64 {
	if e.Invocations == 0 {
		return 0
	}
	return float64(e.TotalElapsed) / float64(time.Millisecond) / float64(e.Invocations)
}

// Aggregator maps Keys to Entries. All methods are safe for concurrent use; concurrent
// completions for the same key never lose an increment.
type Aggregator struct {
	mu      sync.Mutex
	entries map[Key]*Entry
}

func NewAggregator() *Aggregator {
	return &Aggregator{entries: make(map[Key]*Entry)}
}

// RecordSuccess counts one successful call. Zero or negative elapsed values are accumulated
// as given.
func (a *Aggregator) RecordSuccess(key Key, elapsed time.Duration) {
	a.record(key, elapsed, true)
}

// RecordError counts one errored call.
func (a *Aggregator) RecordError(key Key, elapsed time.Duration) {
	a.record(key, elapsed, false)
}

func (a *Aggregator) record(key Key, elapsed time.Duration, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, found := a.entries[key]
	if !found {
		entry = &Entry{}
		a.entries[key] = entry
	}
	entry.Invocations++
	entry.TotalElapsed += elapsed
	if ok {
		entry.Successes++
	} else {
		entry.Errors++
	}
}

// Snapshot copies the whole mapping. Changing the result does not affect the aggregator.
func (a *Aggregator) Snapshot() map[Key]Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[Key]Entry, len(a.entries))
	for k, e := range a.entries {
		out[k] = *e
	}
	return out
}

// Lookup returns a copy of one entry.
func (a *Aggregator) Lookup(key Key) (Entry, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of distinct keys observed.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// Describe renders every entry as a human readable block, keys in sorted order.
func (a *Aggregator) Describe() string {
	snap := a.Snapshot()
	keys := make([]Key, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var b strings.Builder
	b.WriteString("RPC Stats:\n")
	for _, k := range keys {
		e := snap[k]
		fmt.Fprintf(&b, "  %s:\n", k)
		fmt.Fprintf(&b, "    invocation count: %d\n", e.Invocations)
		fmt.Fprintf(&b, "    success count: %d\n", e.Successes)
		fmt.Fprintf(&b, "    error count: %d\n", e.Errors)
		fmt.Fprintf(&b, "    average millis: %s\n", strconv.FormatFloat(e.AverageMillis(), 'f', -1, 64))
	}
	return b.String()
}

func (a *Aggregator) String() string {
	return a.Describe()
}
