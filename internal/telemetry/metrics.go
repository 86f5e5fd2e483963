// Package telemetry collects in-process query metrics: counters, a
// latency histogram, and bounded top-term tracking. Everything stays
// local; snapshots feed the status endpoint and the status MCP tool.
package telemetry

import (
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/notedex/notedex/internal/index"
)

// Capacities for the bounded structures. Term tracking evicts least
// recently used terms; the zero-result ring evicts oldest queries.
const (
	topTermsCapacity    = 100
	zeroResultsCapacity = 50
)

// =============================================================================
// Latency Buckets
// =============================================================================

// LatencyBucket is a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// =============================================================================
// Query Event
// =============================================================================

// QueryEvent is a single search observation.
type QueryEvent struct {
	Query       string
	ResultCount int
	Latency     time.Duration
	CacheHit    bool
}

// IsZeroResult reports whether the query returned no results.
func (e QueryEvent) IsZeroResult() bool {
	return e.ResultCount == 0
}

// =============================================================================
// Circular Buffer
// =============================================================================

// CircularBuffer is a fixed-capacity FIFO buffer.
type CircularBuffer[T any] struct {
	mu       sync.RWMutex
	items    []T
	head     int // next write position
	size     int
	capacity int
}

// NewCircularBuffer creates a circular buffer with the given capacity.
func NewCircularBuffer[T any](capacity int) *CircularBuffer[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &CircularBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// Add appends an item, evicting the oldest when full.
func (b *CircularBuffer[T]) Add(item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
}

// Items returns the buffered items oldest first.
func (b *CircularBuffer[T]) Items() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.size == 0 {
		return []T{}
	}

	result := make([]T, b.size)
	if b.size < b.capacity {
		copy(result, b.items[:b.size])
	} else {
		copy(result, b.items[b.head:])
		copy(result[b.capacity-b.head:], b.items[:b.head])
	}
	return result
}

// Size returns the current number of buffered items.
func (b *CircularBuffer[T]) Size() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.size
}

// =============================================================================
// Snapshot
// =============================================================================

// TermCount is a term and its observed frequency.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// Snapshot is an immutable view of the collected metrics.
type Snapshot struct {
	TotalQueries      int64                   `json:"total_queries"`
	CacheHits         int64                   `json:"cache_hits"`
	ZeroResultCount   int64                   `json:"zero_result_count"`
	TopTerms          []TermCount             `json:"top_terms,omitempty"`
	RecentZeroResults []string                `json:"recent_zero_results,omitempty"`
	Latency           map[LatencyBucket]int64 `json:"latency,omitempty"`
	Since             time.Time               `json:"since"`
}

// CacheHitRate returns the fraction of queries answered from cache.
func (s *Snapshot) CacheHitRate() float64 {
	if s.TotalQueries == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(s.TotalQueries)
}

// =============================================================================
// Metrics
// =============================================================================

// Metrics collects query telemetry. Safe for concurrent use.
type Metrics struct {
	mu sync.RWMutex

	totalQueries    int64
	cacheHits       int64
	zeroResultCount int64
	latencies       map[LatencyBucket]int64
	topTerms        *lru.Cache[string, int64]
	zeroResults     *CircularBuffer[string]
	startedAt       time.Time
}

// New creates a metrics collector.
func New() *Metrics {
	topTerms, _ := lru.New[string, int64](topTermsCapacity)
	return &Metrics{
		latencies:   make(map[LatencyBucket]int64),
		topTerms:    topTerms,
		zeroResults: NewCircularBuffer[string](zeroResultsCapacity),
		startedAt:   time.Now(),
	}
}

// Record captures one search observation. Query terms are tracked with
// the same tokenizer the search core uses, so term stats line up with
// what was actually matched.
func (m *Metrics) Record(event QueryEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalQueries++
	if event.CacheHit {
		m.cacheHits++
	}

	for _, term := range index.Tokenize(event.Query) {
		count, _ := m.topTerms.Get(term)
		m.topTerms.Add(term, count+1)
	}

	if event.IsZeroResult() {
		m.zeroResultCount++
		m.zeroResults.Add(event.Query)
	}

	m.latencies[LatencyToBucket(event.Latency)]++
}

// Snapshot returns the current metrics for reporting.
func (m *Metrics) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var topTerms []TermCount
	for _, term := range m.topTerms.Keys() {
		if count, ok := m.topTerms.Peek(term); ok {
			topTerms = append(topTerms, TermCount{Term: term, Count: count})
		}
	}
	sort.Slice(topTerms, func(i, j int) bool {
		if topTerms[i].Count != topTerms[j].Count {
			return topTerms[i].Count > topTerms[j].Count
		}
		return topTerms[i].Term < topTerms[j].Term
	})

	latencies := make(map[LatencyBucket]int64, len(m.latencies))
	for k, v := range m.latencies {
		latencies[k] = v
	}

	return &Snapshot{
		TotalQueries:      m.totalQueries,
		CacheHits:         m.cacheHits,
		ZeroResultCount:   m.zeroResultCount,
		TopTerms:          topTerms,
		RecentZeroResults: m.zeroResults.Items(),
		Latency:           latencies,
		Since:             m.startedAt,
	}
}
