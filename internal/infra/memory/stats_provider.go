package memory

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StatsItem is one catalog entry the static provider grades against.
type StatsItem struct {
	Name       string
	Metrics    map[string]float64
	Predicates map[string]bool
	AddedAt    time.Time
}

// StaticStatsProvider serves dynamic-query aggregates from a fixed item
// list. It backs unit tests and local runs without a live catalog.
type StaticStatsProvider struct {
	mu    sync.RWMutex
	items []StatsItem
}

func NewStaticStatsProvider(items []StatsItem) *StaticStatsProvider {
	return &StaticStatsProvider{items: items}
}

func (p *StaticStatsProvider) SetItems(items []StatsItem) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items = items
}

func (p *StaticStatsProvider) TopByMetric(_ context.Context, metric string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, found := "", false
	var best float64
	for _, it := range p.items {
		v, ok := it.Metrics[metric]
		if !ok {
			continue
		}
		if !found || v > best {
			name, best, found = it.Name, v, true
		}
	}
	if !found {
		return "", fmt.Errorf("no items carry metric %q", metric)
	}
	return name, nil
}

func (p *StaticStatsProvider) BottomByMetric(_ context.Context, metric string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, found := "", false
	var worst float64
	for _, it := range p.items {
		v, ok := it.Metrics[metric]
		if !ok {
			continue
		}
		if !found || v < worst {
			name, worst, found = it.Name, v, true
		}
	}
	if !found {
		return "", fmt.Errorf("no items carry metric %q", metric)
	}
	return name, nil
}

func (p *StaticStatsProvider) MetricValue(_ context.Context, item, metric string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, it := range p.items {
		if it.Name == item {
			if v, ok := it.Metrics[metric]; ok {
				return v, nil
			}
			return 0, fmt.Errorf("item %q has no metric %q", item, metric)
		}
	}
	return 0, fmt.Errorf("unknown item %q", item)
}

func (p *StaticStatsProvider) CountWhere(_ context.Context, predicate string) (int64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if predicate == "all" {
		return int64(len(p.items)), nil
	}
	var n int64
	for _, it := range p.items {
		if it.Predicates[predicate] {
			n++
		}
	}
	return n, nil
}

func (p *StaticStatsProvider) SumMetric(_ context.Context, metric string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var sum float64
	for _, it := range p.items {
		sum += it.Metrics[metric]
	}
	return sum, nil
}

func (p *StaticStatsProvider) AverageMetric(_ context.Context, metric string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var sum float64
	var n int
	for _, it := range p.items {
		if v, ok := it.Metrics[metric]; ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("no items carry metric %q", metric)
	}
	return sum / float64(n), nil
}

func (p *StaticStatsProvider) FirstByDate(_ context.Context, predicate string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, found := "", false
	var earliest time.Time
	for _, it := range p.items {
		if predicate != "all" && !it.Predicates[predicate] {
			continue
		}
		if !found || it.AddedAt.Before(earliest) {
			name, earliest, found = it.Name, it.AddedAt, true
		}
	}
	if !found {
		return "", fmt.Errorf("no items match predicate %q", predicate)
	}
	return name, nil
}

func (p *StaticStatsProvider) LatestByDate(_ context.Context, predicate string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	name, found := "", false
	var latest time.Time
	for _, it := range p.items {
		if predicate != "all" && !it.Predicates[predicate] {
			continue
		}
		if !found || it.AddedAt.After(latest) {
			name, latest, found = it.Name, it.AddedAt, true
		}
	}
	if !found {
		return "", fmt.Errorf("no items match predicate %q", predicate)
	}
	return name, nil
}
