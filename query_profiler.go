package launchbase

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// QueryComplexity describes how a list operation reached its results
type QueryComplexity string

const (
	ComplexityO1    QueryComplexity = "O(1)"     // Primary key lookup
	ComplexityOLogN QueryComplexity = "O(log N)" // Secondary index query
	ComplexityON    QueryComplexity = "O(N)"     // Full table scan
)

// DefaultProfileCapacity bounds the number of profiles a profiler keeps.
const DefaultProfileCapacity = 1000

// QueryProfile tracks execution details for a single list operation
type QueryProfile struct {
	Operation    string // "courses.list"
	StartTime    time.Time
	Duration     time.Duration
	Complexity   QueryComplexity
	IndexUsed    string // "gsi:schoolId-index" or "none:full-scan"
	ResultCount  int
	FilterFields []string // ["schoolId", "level"]
	FallbackPath bool     // index query failed and a scan answered instead
	Error        error
}

// QueryProfiler collects the access paths taken by the durable backend.
// Only the most recent profiles are kept.
type QueryProfiler struct {
	mu                 sync.RWMutex
	profiles           []QueryProfile
	capacity           int
	slowQueryThreshold time.Duration
	enabled            bool
}

// NewQueryProfiler creates a new query profiler
func NewQueryProfiler() *QueryProfiler {
	return &QueryProfiler{
		profiles:           make([]QueryProfile, 0),
		capacity:           DefaultProfileCapacity,
		slowQueryThreshold: 100 * time.Millisecond,
		enabled:            true,
	}
}

// SetSlowQueryThreshold sets the duration threshold for slow queries
func (p *QueryProfiler) SetSlowQueryThreshold(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.slowQueryThreshold = d
}

// SetCapacity changes how many profiles are retained. Values below 1 are ignored.
func (p *QueryProfiler) SetCapacity(n int) {
	if n < 1 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.capacity = n
	p.trim()
}

// SetEnabled enables or disables profiling
func (p *QueryProfiler) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = enabled
}

// StartProfile begins profiling an operation. It returns nil when profiling
// is disabled; every QueryProfile method accepts a nil receiver.
func (p *QueryProfiler) StartProfile(operation string, conds []condition) *QueryProfile {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	enabled := p.enabled
	p.mu.RUnlock()

	if !enabled {
		return nil
	}

	fields := make([]string, 0, len(conds))
	for _, c := range conds {
		fields = append(fields, c.attr)
	}
	return &QueryProfile{
		Operation:    operation,
		StartTime:    time.Now(),
		FilterFields: fields,
	}
}

func (q *QueryProfile) usedIndex(name string) {
	if q == nil {
		return
	}
	q.Complexity = ComplexityOLogN
	q.IndexUsed = "gsi:" + name
}

func (q *QueryProfile) usedScan(fallback bool) {
	if q == nil {
		return
	}
	q.Complexity = ComplexityON
	q.IndexUsed = "none:full-scan"
	q.FallbackPath = q.FallbackPath || fallback
}

func (q *QueryProfile) finish(results int, err error) {
	if q == nil {
		return
	}
	q.ResultCount = results
	q.Error = err
}

// Record records a completed query profile
func (p *QueryProfiler) Record(profile *QueryProfile) {
	if p == nil || profile == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled {
		return
	}

	profile.Duration = time.Since(profile.StartTime)
	p.profiles = append(p.profiles, *profile)
	p.trim()
}

// trim must be called with the write lock held.
func (p *QueryProfiler) trim() {
	if over := len(p.profiles) - p.capacity; over > 0 {
		p.profiles = append(p.profiles[:0:0], p.profiles[over:]...)
	}
}

// GetProfiles returns all recorded profiles
func (p *QueryProfiler) GetProfiles() []QueryProfile {
	return p.filter(func(QueryProfile) bool { return true })
}

// GetSlowQueries returns queries that exceeded the slow query threshold
func (p *QueryProfiler) GetSlowQueries() []QueryProfile {
	p.mu.RLock()
	threshold := p.slowQueryThreshold
	p.mu.RUnlock()
	return p.filter(func(q QueryProfile) bool { return q.Duration > threshold })
}

// GetFullScans returns queries answered by a table scan
func (p *QueryProfiler) GetFullScans() []QueryProfile {
	return p.filter(func(q QueryProfile) bool { return q.Complexity == ComplexityON })
}

// GetFallbacks returns queries whose index path failed
func (p *QueryProfiler) GetFallbacks() []QueryProfile {
	return p.filter(func(q QueryProfile) bool { return q.FallbackPath })
}

func (p *QueryProfiler) filter(keep func(QueryProfile) bool) []QueryProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]QueryProfile, 0)
	for _, profile := range p.profiles {
		if keep(profile) {
			out = append(out, profile)
		}
	}
	return out
}

// Clear clears all recorded profiles
func (p *QueryProfiler) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = make([]QueryProfile, 0)
}

// ProfileSummary aggregates recorded profiles
type ProfileSummary struct {
	TotalQueries    int
	SlowQueries     int
	FullScans       int
	Fallbacks       int
	AverageDuration time.Duration
	P50Duration     time.Duration
	P95Duration     time.Duration
	P99Duration     time.Duration
	ByOperation     map[string]OperationStats
	ByComplexity    map[QueryComplexity]int
}

type OperationStats struct {
	Count           int
	TotalDuration   time.Duration
	AverageDuration time.Duration
	MaxDuration     time.Duration
	MinDuration     time.Duration
	FullScans       int
	Fallbacks       int
}

// GetSummary returns a statistical summary of all profiles
func (p *QueryProfiler) GetSummary() ProfileSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	summary := ProfileSummary{
		TotalQueries: len(p.profiles),
		ByOperation:  make(map[string]OperationStats),
		ByComplexity: make(map[QueryComplexity]int),
	}

	if len(p.profiles) == 0 {
		return summary
	}

	var totalDuration time.Duration
	durations := make([]time.Duration, 0, len(p.profiles))

	for _, profile := range p.profiles {
		totalDuration += profile.Duration
		durations = append(durations, profile.Duration)

		scan := profile.Complexity == ComplexityON
		if profile.Duration > p.slowQueryThreshold {
			summary.SlowQueries++
		}
		if scan {
			summary.FullScans++
		}
		if profile.FallbackPath {
			summary.Fallbacks++
		}
		summary.ByComplexity[profile.Complexity]++

		stats := summary.ByOperation[profile.Operation]
		stats.Count++
		stats.TotalDuration += profile.Duration
		if stats.Count == 1 || profile.Duration > stats.MaxDuration {
			stats.MaxDuration = profile.Duration
		}
		if stats.Count == 1 || profile.Duration < stats.MinDuration {
			stats.MinDuration = profile.Duration
		}
		if scan {
			stats.FullScans++
		}
		if profile.FallbackPath {
			stats.Fallbacks++
		}
		summary.ByOperation[profile.Operation] = stats
	}

	summary.AverageDuration = totalDuration / time.Duration(len(p.profiles))
	for op, stats := range summary.ByOperation {
		stats.AverageDuration = stats.TotalDuration / time.Duration(stats.Count)
		summary.ByOperation[op] = stats
	}

	sort.Slice(durations, func(i, j int) bool {
		return durations[i] < durations[j]
	})
	summary.P50Duration = durations[len(durations)*50/100]
	summary.P95Duration = durations[len(durations)*95/100]
	summary.P99Duration = durations[len(durations)*99/100]

	return summary
}

// WriteSummary writes a formatted summary to w
func (p *QueryProfiler) WriteSummary(w io.Writer) {
	summary := p.GetSummary()
	if summary.TotalQueries == 0 {
		fmt.Fprintln(w, "no queries recorded")
		return
	}
	pct := func(n int) float64 { return float64(n) * 100 / float64(summary.TotalQueries) }

	fmt.Fprintln(w, "=== Query Summary ===")
	fmt.Fprintf(w, "Total Queries:     %d\n", summary.TotalQueries)
	fmt.Fprintf(w, "Slow Queries:      %d (%.1f%%)\n", summary.SlowQueries, pct(summary.SlowQueries))
	fmt.Fprintf(w, "Full Scans:        %d (%.1f%%)\n", summary.FullScans, pct(summary.FullScans))
	fmt.Fprintf(w, "Fallbacks:         %d (%.1f%%)\n", summary.Fallbacks, pct(summary.Fallbacks))
	fmt.Fprintf(w, "Average:           %v\n", summary.AverageDuration)
	fmt.Fprintf(w, "P95:               %v\n", summary.P95Duration)

	ops := make([]string, 0, len(summary.ByOperation))
	for op := range summary.ByOperation {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		return summary.ByOperation[ops[i]].AverageDuration > summary.ByOperation[ops[j]].AverageDuration
	})

	fmt.Fprintln(w, "\n=== By Operation ===")
	for _, op := range ops {
		s := summary.ByOperation[op]
		fmt.Fprintf(w, "%-28s count=%4d avg=%8v max=%8v scans=%3d fallbacks=%3d\n",
			op, s.Count, s.AverageDuration, s.MaxDuration, s.FullScans, s.Fallbacks)
	}
}
