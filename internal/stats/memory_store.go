package stats

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps daily aggregates in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]*DailyStats // day|platform
}

// NewMemoryStore creates an empty stats store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*DailyStats)}
}

func (s *MemoryStore) bucket(day, platform string) *DailyStats {
	key := day + "|" + platform
	b, ok := s.buckets[key]
	if !ok {
		b = &DailyStats{
			Day:           day,
			Platform:      platform,
			AlertsByLevel: make(map[string]int),
			SignalCounts:  make(map[string]int),
		}
		s.buckets[key] = b
	}
	return b
}

func (s *MemoryStore) FoldSession(_ context.Context, day string, sum SessionSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(day, sum.Platform)
	b.Sessions++
	b.TotalInteractions += sum.Interactions
	if sum.PeakScore > b.PeakScore {
		b.PeakScore = sum.PeakScore
	}
	for kind, n := range sum.SignalCounts {
		b.SignalCounts[kind] += n
	}
	return nil
}

func (s *MemoryStore) CountAlert(_ context.Context, day, platform, level string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucket(day, platform)
	b.Alerts++
	b.AlertsByLevel[level]++
	return nil
}

func (s *MemoryStore) List(_ context.Context, from, to string) ([]*DailyStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*DailyStats
	for _, b := range s.buckets {
		if from != "" && b.Day < from {
			continue
		}
		if to != "" && b.Day > to {
			continue
		}
		out = append(out, cloneStats(b))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].Platform < out[j].Platform
	})
	return out, nil
}

func cloneStats(b *DailyStats) *DailyStats {
	cp := *b
	cp.AlertsByLevel = make(map[string]int, len(b.AlertsByLevel))
	for k, v := range b.AlertsByLevel {
		cp.AlertsByLevel[k] = v
	}
	cp.SignalCounts = make(map[string]int, len(b.SignalCounts))
	for k, v := range b.SignalCounts {
		cp.SignalCounts[k] = v
	}
	return &cp
}
