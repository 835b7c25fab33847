package launchbase

import (
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// addProfile appends a profile without touching its duration.
func addProfile(p *QueryProfiler, q QueryProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.profiles = append(p.profiles, q)
	p.trim()
}

func TestNewQueryProfiler(t *testing.T) {
	profiler := NewQueryProfiler()

	if !profiler.enabled {
		t.Error("profiler should be enabled by default")
	}
	if profiler.slowQueryThreshold != 100*time.Millisecond {
		t.Errorf("expected default threshold 100ms, got %v", profiler.slowQueryThreshold)
	}
	if profiler.capacity != DefaultProfileCapacity {
		t.Errorf("capacity = %d, want %d", profiler.capacity, DefaultProfileCapacity)
	}
}

func TestStartProfileRecordsFilterFields(t *testing.T) {
	profiler := NewQueryProfiler()

	conds := CourseFilter{SchoolID: Ptr(int64(1)), Level: Ptr("beginner")}.conditions()
	profile := profiler.StartProfile("courses.list", conds)
	profile.usedIndex("schoolId-index")
	profile.finish(3, nil)
	profiler.Record(profile)

	profiles := profiler.GetProfiles()
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	got := profiles[0]
	if got.Operation != "courses.list" {
		t.Errorf("operation = %q", got.Operation)
	}
	if strings.Join(got.FilterFields, ",") != "schoolId,level" {
		t.Errorf("filter fields = %v", got.FilterFields)
	}
	if got.Complexity != ComplexityOLogN || got.IndexUsed != "gsi:schoolId-index" {
		t.Errorf("access path = %s %s", got.Complexity, got.IndexUsed)
	}
	if got.ResultCount != 3 {
		t.Errorf("result count = %d", got.ResultCount)
	}
}

func TestProfileFallbackPath(t *testing.T) {
	profiler := NewQueryProfiler()

	profile := profiler.StartProfile("schools.list", nil)
	profile.usedScan(true)
	profile.usedScan(false)
	profile.finish(0, errors.New("throttled"))
	profiler.Record(profile)

	fallbacks := profiler.GetFallbacks()
	if len(fallbacks) != 1 {
		t.Fatalf("expected 1 fallback, got %d", len(fallbacks))
	}
	if fallbacks[0].Complexity != ComplexityON || fallbacks[0].IndexUsed != "none:full-scan" {
		t.Errorf("fallback access path = %s %s", fallbacks[0].Complexity, fallbacks[0].IndexUsed)
	}
	if fallbacks[0].Error == nil {
		t.Error("error should be kept")
	}
	if len(profiler.GetFullScans()) != 1 {
		t.Error("a fallback is also a full scan")
	}
}

func TestNilProfilerIsSafe(t *testing.T) {
	var profiler *QueryProfiler

	profile := profiler.StartProfile("users.list", nil)
	if profile != nil {
		t.Fatal("nil profiler should return a nil profile")
	}
	profile.usedIndex("username-index")
	profile.usedScan(true)
	profile.finish(1, nil)
	profiler.Record(profile)
}

func TestDisabledProfiler(t *testing.T) {
	profiler := NewQueryProfiler()
	profiler.SetEnabled(false)

	if profile := profiler.StartProfile("users.list", nil); profile != nil {
		t.Fatal("disabled profiler should not start profiles")
	}
	profiler.Record(&QueryProfile{Operation: "users.list", StartTime: time.Now()})
	if n := len(profiler.GetProfiles()); n != 0 {
		t.Errorf("disabled profiler recorded %d profiles", n)
	}

	profiler.SetEnabled(true)
	profiler.Record(profiler.StartProfile("users.list", nil))
	if n := len(profiler.GetProfiles()); n != 1 {
		t.Errorf("re-enabled profiler recorded %d profiles, want 1", n)
	}
}

func TestProfilerCapacity(t *testing.T) {
	profiler := NewQueryProfiler()
	profiler.SetCapacity(3)

	for i := 0; i < 5; i++ {
		addProfile(profiler, QueryProfile{Operation: string(rune('a' + i))})
	}

	profiles := profiler.GetProfiles()
	if len(profiles) != 3 {
		t.Fatalf("expected 3 retained profiles, got %d", len(profiles))
	}
	if profiles[0].Operation != "c" || profiles[2].Operation != "e" {
		t.Errorf("expected the newest profiles, got %s..%s", profiles[0].Operation, profiles[2].Operation)
	}

	profiler.SetCapacity(0)
	if profiler.capacity != 3 {
		t.Error("capacity below 1 should be ignored")
	}
	profiler.SetCapacity(1)
	if n := len(profiler.GetProfiles()); n != 1 {
		t.Errorf("shrinking capacity should trim, got %d", n)
	}
}

func TestGetSlowQueries(t *testing.T) {
	profiler := NewQueryProfiler()
	profiler.SetSlowQueryThreshold(50 * time.Millisecond)

	addProfile(profiler, QueryProfile{Operation: "fast", Duration: 10 * time.Millisecond})
	addProfile(profiler, QueryProfile{Operation: "slow", Duration: 80 * time.Millisecond})

	slow := profiler.GetSlowQueries()
	if len(slow) != 1 || slow[0].Operation != "slow" {
		t.Errorf("slow queries = %+v", slow)
	}
}

func TestGetSummary(t *testing.T) {
	profiler := NewQueryProfiler()

	addProfile(profiler, QueryProfile{Operation: "courses.list", Duration: 10 * time.Millisecond, Complexity: ComplexityOLogN})
	addProfile(profiler, QueryProfile{Operation: "courses.list", Duration: 30 * time.Millisecond, Complexity: ComplexityON, FallbackPath: true})
	addProfile(profiler, QueryProfile{Operation: "lessons.list", Duration: 200 * time.Millisecond, Complexity: ComplexityON})

	summary := profiler.GetSummary()

	if summary.TotalQueries != 3 {
		t.Errorf("total = %d", summary.TotalQueries)
	}
	if summary.FullScans != 2 || summary.Fallbacks != 1 || summary.SlowQueries != 1 {
		t.Errorf("scans=%d fallbacks=%d slow=%d", summary.FullScans, summary.Fallbacks, summary.SlowQueries)
	}
	if summary.ByComplexity[ComplexityON] != 2 || summary.ByComplexity[ComplexityOLogN] != 1 {
		t.Errorf("by complexity = %v", summary.ByComplexity)
	}

	courses := summary.ByOperation["courses.list"]
	if courses.Count != 2 || courses.AverageDuration != 20*time.Millisecond {
		t.Errorf("courses stats = %+v", courses)
	}
	if courses.MinDuration != 10*time.Millisecond || courses.MaxDuration != 30*time.Millisecond {
		t.Errorf("courses min/max = %v/%v", courses.MinDuration, courses.MaxDuration)
	}
	if courses.FullScans != 1 || courses.Fallbacks != 1 {
		t.Errorf("courses scans/fallbacks = %d/%d", courses.FullScans, courses.Fallbacks)
	}
	if summary.AverageDuration != 80*time.Millisecond {
		t.Errorf("average = %v", summary.AverageDuration)
	}
}

func TestGetSummaryEmpty(t *testing.T) {
	summary := NewQueryProfiler().GetSummary()
	if summary.TotalQueries != 0 || summary.ByOperation == nil {
		t.Errorf("empty summary = %+v", summary)
	}
}

func TestWriteSummary(t *testing.T) {
	profiler := NewQueryProfiler()

	var empty bytes.Buffer
	profiler.WriteSummary(&empty)
	if !strings.Contains(empty.String(), "no queries recorded") {
		t.Errorf("empty summary = %q", empty.String())
	}

	addProfile(profiler, QueryProfile{Operation: "modules.list", Duration: time.Millisecond, Complexity: ComplexityON})

	var buf bytes.Buffer
	profiler.WriteSummary(&buf)
	out := buf.String()
	for _, want := range []string{"Total Queries:     1", "Full Scans:        1 (100.0%)", "modules.list"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestClear(t *testing.T) {
	profiler := NewQueryProfiler()
	addProfile(profiler, QueryProfile{Operation: "users.list"})

	profiler.Clear()

	if n := len(profiler.GetProfiles()); n != 0 {
		t.Errorf("expected 0 profiles after clear, got %d", n)
	}
}

func TestProfilerConcurrentRecord(t *testing.T) {
	profiler := NewQueryProfiler()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				profile := profiler.StartProfile("courses.list", nil)
				profile.usedScan(false)
				profiler.Record(profile)
			}
		}()
	}
	wg.Wait()

	if n := len(profiler.GetProfiles()); n != 500 {
		t.Errorf("recorded %d profiles, want 500", n)
	}
}
