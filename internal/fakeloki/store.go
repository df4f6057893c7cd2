package fakeloki

import (
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
)

const subscriberBuffer = 256

// Record is one stored log line.
type Record struct {
	Ns     int64
	Labels map[string]string
	Line   string
}

// Stream groups records that share a label set, in delivery order.
type Stream struct {
	Labels  map[string]string
	Records []Record
}

// Store keeps records ordered by timestamp and fans new ones out to
// subscribers.
type Store struct {
	mu          sync.RWMutex
	records     []Record
	subscribers map[int]chan Record
	nextID      int
	dropped     int64
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{subscribers: make(map[int]chan Record)}
}

// Push stores a record and broadcasts it. A subscriber whose buffer is full
// misses the record.
func (s *Store) Push(r Record) {
	r.Labels = maps.Clone(r.Labels)

	s.mu.Lock()
	defer s.mu.Unlock()

	i := sort.Search(len(s.records), func(i int) bool { return s.records[i].Ns > r.Ns })
	s.records = slices.Insert(s.records, i, r)

	for _, ch := range s.subscribers {
		select {
		case ch <- r:
		default:
			s.dropped++
		}
	}
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Dropped returns how many broadcasts were lost to slow subscribers.
func (s *Store) Dropped() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

// Select returns up to limit records in [start, end] that match sel. With
// backward set the newest records are chosen and returned first. Records
// are grouped by label set in order of first appearance.
func (s *Store) Select(sel Selector, start, end int64, limit int, backward bool) []Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var picked []Record
	if backward {
		for i := len(s.records) - 1; i >= 0 && (limit <= 0 || len(picked) < limit); i-- {
			if r := s.records[i]; inRange(r.Ns, start, end) && sel.Matches(r.Labels, r.Line) {
				picked = append(picked, r)
			}
		}
	} else {
		for i := 0; i < len(s.records) && (limit <= 0 || len(picked) < limit); i++ {
			if r := s.records[i]; inRange(r.Ns, start, end) && sel.Matches(r.Labels, r.Line) {
				picked = append(picked, r)
			}
		}
	}
	return group(picked)
}

// Recent returns the newest limit records at or after start that match
// sel, oldest first.
func (s *Store) Recent(sel Selector, start int64, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var picked []Record
	for i := len(s.records) - 1; i >= 0 && s.records[i].Ns >= start; i-- {
		if r := s.records[i]; sel.Matches(r.Labels, r.Line) {
			picked = append(picked, r)
			if limit > 0 && len(picked) == limit {
				break
			}
		}
	}
	slices.Reverse(picked)
	return picked
}

// Subscribe returns a channel of newly pushed records and a function that
// ends the subscription.
func (s *Store) Subscribe() (<-chan Record, func()) {
	ch := make(chan Record, subscriberBuffer)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func inRange(ns, start, end int64) bool {
	return ns >= start && ns <= end
}

func group(records []Record) []Stream {
	var streams []Stream
	index := make(map[string]int)
	for _, r := range records {
		key := labelsKey(r.Labels)
		i, ok := index[key]
		if !ok {
			i = len(streams)
			index[key] = i
			streams = append(streams, Stream{Labels: r.Labels})
		}
		streams[i].Records = append(streams[i].Records, r)
	}
	return streams
}

func labelsKey(labels map[string]string) string {
	keys := slices.Sorted(maps.Keys(labels))
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(labels[k])
		b.WriteByte(',')
	}
	return b.String()
}
