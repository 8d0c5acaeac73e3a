// Package history keeps the play-history log: every jingle fire attempt,
// what triggered it and how it went.
package history

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jeertmans/jinglebox/internal/model"
)

// ErrLogClosed is returned on operations against a closed log.
var ErrLogClosed = errors.New("history log is closed")

// ChangeType indicates the type of log change.
type ChangeType int

const (
	// ChangeTypeAppend indicates a record was appended.
	ChangeTypeAppend ChangeType = iota
	// ChangeTypeClear indicates the log was cleared.
	ChangeTypeClear
)

// ChangeEvent signals log content changes.
type ChangeEvent struct {
	Type  ChangeType
	Count int
}

// FilterOptions specifies criteria for filtering play records.
type FilterOptions struct {
	Since   time.Duration // Records newer than now-since (0=all)
	Outcome string        // Exact match on outcome (""=any)
	Trigger model.Trigger // Exact match on trigger (""=any)
	Name    string        // Exact match on jingle name (""=any)
	Limit   int           // Maximum results (0=unlimited)
}

// Log manages the play history with thread-safe operations.
type Log struct {
	mu      sync.RWMutex
	records []model.PlayRecord
	index   map[string]int // record id -> slice index

	persistence Persistence

	subscribers []chan ChangeEvent
	closed      bool
}

// NewLog creates a play-history log.
// If persistence is not nil, records are also written through to it.
func NewLog(persistence Persistence) *Log {
	return &Log{
		records:     make([]model.PlayRecord, 0),
		index:       make(map[string]int),
		persistence: persistence,
		subscribers: make([]chan ChangeEvent, 0),
	}
}

// Hydrate loads records from persistence into the log.
func (l *Log) Hydrate() error {
	if l.persistence == nil {
		return nil
	}

	records, err := l.persistence.Load()
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, r := range records {
		if _, exists := l.index[r.ID]; exists {
			continue
		}
		l.index[r.ID] = len(l.records)
		l.records = append(l.records, r)
		added++
	}

	if added > 0 {
		l.notifyChange(ChangeEvent{Type: ChangeTypeAppend, Count: added})
	}
	return nil
}

// Append adds a record to the log and persists it.
func (l *Log) Append(r model.PlayRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	if _, exists := l.index[r.ID]; exists {
		return nil
	}

	l.index[r.ID] = len(l.records)
	l.records = append(l.records, r)

	if l.persistence != nil {
		if err := l.persistence.Append(r); err != nil {
			return err
		}
	}

	l.notifyChange(ChangeEvent{Type: ChangeTypeAppend, Count: 1})
	return nil
}

// All returns all records sorted newest first.
func (l *Log) All() []model.PlayRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]model.PlayRecord, len(l.records))
	copy(result, l.records)

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PlayedAt > result[j].PlayedAt
	})
	return result
}

// Recent returns the newest n records, newest first.
func (l *Log) Recent(n int) []model.PlayRecord {
	all := l.All()
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Filter returns records matching the criteria, newest first.
func (l *Log) Filter(opts FilterOptions) []model.PlayRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := time.Now()
	var result []model.PlayRecord

	for _, r := range l.records {
		if opts.Since > 0 && r.PlayedAtTime().Before(now.Add(-opts.Since)) {
			continue
		}
		if opts.Outcome != "" && r.Outcome != opts.Outcome {
			continue
		}
		if opts.Trigger != "" && r.Trigger != opts.Trigger {
			continue
		}
		if opts.Name != "" && r.Name != opts.Name {
			continue
		}
		result = append(result, r)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PlayedAt > result[j].PlayedAt
	})

	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result
}

// GetByID returns a record by its ULID, or nil.
func (l *Log) GetByID(id string) *model.PlayRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if idx, exists := l.index[id]; exists {
		r := l.records[idx]
		return &r
	}
	return nil
}

// Count returns the total number of records.
func (l *Log) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// Clear removes all records from the log and its persistence.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLogClosed
	}

	count := len(l.records)
	l.records = make([]model.PlayRecord, 0)
	l.index = make(map[string]int)

	if l.persistence != nil {
		if err := l.persistence.Clear(); err != nil {
			return err
		}
	}

	l.notifyChange(ChangeEvent{Type: ChangeTypeClear, Count: count})
	return nil
}

// Subscribe returns a channel that receives change events.
func (l *Log) Subscribe() <-chan ChangeEvent {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscription and closes its channel.
func (l *Log) Unsubscribe(ch <-chan ChangeEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, sub := range l.subscribers {
		if sub == ch {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			close(sub)
			return
		}
	}
}

// Close releases resources and closes all subscriber channels.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	for _, ch := range l.subscribers {
		close(ch)
	}
	l.subscribers = nil

	if l.persistence != nil {
		return l.persistence.Close()
	}
	return nil
}

// notifyChange sends a change event to all subscribers (non-blocking).
func (l *Log) notifyChange(event ChangeEvent) {
	for _, ch := range l.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
