package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/strompris/strompris-go/clock"
	"github.com/strompris/strompris-go/types"
)

type key struct {
	area  string
	start int64 // unix seconds of the hour start
}

// PriceStore is the in-memory price cache. It is the only shared mutable
// state in the service; all access goes through its methods. Points are
// keyed by (area, hour start) and never overwritten once inserted.
type PriceStore struct {
	clock clock.Clock

	mu     sync.RWMutex
	points map[key]types.PricePoint
}

func NewPriceStore(clk clock.Clock) *PriceStore {
	return &PriceStore{
		clock:  clk,
		points: make(map[key]types.PricePoint),
	}
}

func keyFor(p types.PricePoint) key {
	return key{area: p.Area, start: p.Start.UTC().Unix()}
}

// AddPrices inserts the given points, skipping any whose key is already
// present. The first writer wins; a colliding insert is a silent no-op.
func (s *PriceStore) AddPrices(points []types.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		k := keyFor(p)
		if _, exists := s.points[k]; exists {
			continue
		}
		s.points[k] = p
	}
}

// ReplacePrices atomically discards everything and inserts the given set.
func (s *PriceStore) ReplacePrices(points []types.PricePoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = make(map[key]types.PricePoint, len(points))
	for _, p := range points {
		s.points[keyFor(p)] = p
	}
}

// All returns the cached points ordered by start time, then area. An empty
// area returns every area.
func (s *PriceStore) All(area string) []types.PricePoint {
	s.mu.RLock()
	result := make([]types.PricePoint, 0, len(s.points))
	for k, p := range s.points {
		if area != "" && k.area != area {
			continue
		}
		result = append(result, p)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Start.Equal(result[j].Start) {
			return result[i].Start.Before(result[j].Start)
		}
		return result[i].Area < result[j].Area
	})

	return result
}

// Current returns the point whose interval [start, end) contains the
// clock's current instant, optionally filtered to one area. The second
// return value is false when no such point exists. Should several points
// match, the one with the latest start wins.
func (s *PriceStore) Current(area string) (types.PricePoint, bool) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var best types.PricePoint
	found := false
	for k, p := range s.points {
		if area != "" && k.area != area {
			continue
		}
		if p.Start.After(now) || !p.End.After(now) {
			continue
		}
		if !found || p.Start.After(best.Start) {
			best = p
			found = true
		}
	}

	return best, found
}

// RemoveOlderThan deletes every point whose interval ends at or before
// cutoff and reports how many were removed.
func (s *PriceStore) RemoveOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for k, p := range s.points {
		if !p.End.After(cutoff) {
			delete(s.points, k)
			removed++
		}
	}

	return removed
}

// Len reports the number of cached points.
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}
