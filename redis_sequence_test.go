package launchbase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func newTestRedisSequence(t *testing.T) (*RedisSequence, *miniredis.Miniredis, *InMemoryMetrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	metrics := NewInMemoryMetrics()
	return NewRedisSequence(client, "", nil, metrics), mr, metrics
}

func TestRedisSequence_Next(t *testing.T) {
	ctx := context.Background()
	seq, mr, metrics := newTestRedisSequence(t)

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(ctx, FamilyCourses)
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if got != want {
			t.Errorf("Next = %d, want %d", got, want)
		}
	}

	// Families count independently.
	if got, _ := seq.Next(ctx, FamilyLessons); got != 1 {
		t.Errorf("first lesson id = %d, want 1", got)
	}

	if v, err := mr.Get(DefaultSequencePrefix + "courses"); err != nil || v != "3" {
		t.Errorf("stored counter = %q, %v", v, err)
	}
	if metrics.Count(MetricSequenceNext) != 4 {
		t.Errorf("sequence metrics = %d, want 4", metrics.Count(MetricSequenceNext))
	}
}

func TestRedisSequence_CustomPrefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	seq := NewRedisSequence(client, "tenant-a:", nil, nil)
	if _, err := seq.Next(context.Background(), FamilyUsers); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if !mr.Exists("tenant-a:users") {
		t.Error("expected counter under custom prefix")
	}
}

func TestRedisSequence_ConcurrentNext(t *testing.T) {
	ctx := context.Background()
	seq, _, _ := newTestRedisSequence(t)

	const workers = 25
	ids := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := seq.Next(ctx, FamilyProjects)
			if err != nil {
				t.Errorf("Next failed: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Errorf("duplicate id %d", id)
		}
		seen[id] = true
	}
	if len(seen) != workers {
		t.Errorf("got %d distinct ids, want %d", len(seen), workers)
	}
}

func TestRedisSequence_Current(t *testing.T) {
	ctx := context.Background()
	seq, mr, _ := newTestRedisSequence(t)

	got, err := seq.Current(ctx, FamilySchools)
	if err != nil || got != 0 {
		t.Fatalf("Current on a fresh counter = %d, %v; want 0, nil", got, err)
	}

	for i := 0; i < 5; i++ {
		if _, err := seq.Next(ctx, FamilySchools); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
	}
	if got, _ := seq.Current(ctx, FamilySchools); got != 5 {
		t.Errorf("Current = %d, want 5", got)
	}

	if err := mr.Set(DefaultSequencePrefix+"schools", "not-a-number"); err != nil {
		t.Fatal(err)
	}
	if _, err := seq.Current(ctx, FamilySchools); !errors.Is(err, ErrInvalidData) {
		t.Errorf("corrupted counter = %v, want ErrInvalidData", err)
	}
}

func TestRedisSequence_Advance(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	logger, logs := observedLogger(zap.InfoLevel)
	seq := NewRedisSequence(client, "", logger, nil)

	if err := seq.Advance(ctx, FamilyModules, 10); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got, _ := seq.Next(ctx, FamilyModules); got != 11 {
		t.Errorf("Next after Advance(10) = %d, want 11", got)
	}

	// A lower floor never moves the counter back.
	if err := seq.Advance(ctx, FamilyModules, 3); err != nil {
		t.Fatalf("Advance failed: %v", err)
	}
	if got, _ := seq.Current(ctx, FamilyModules); got != 11 {
		t.Errorf("Current after lower floor = %d, want 11", got)
	}

	if logs.FilterMessage("sequence advanced").Len() != 2 {
		t.Errorf("expected 2 advance logs, got %d", logs.FilterMessage("sequence advanced").Len())
	}
}

func TestRedisSequence_AdvanceAllFromSnapshot(t *testing.T) {
	ctx := context.Background()
	seq, _, _ := newTestRedisSequence(t)

	snap, err := TakeSnapshot(ctx, NewMemoryBackend())
	if err != nil {
		t.Fatalf("TakeSnapshot failed: %v", err)
	}
	floors := snap.MaxIDs()
	if floors[FamilyLessons] != 9 || floors[FamilyUsers] != 4 {
		t.Fatalf("MaxIDs = %v", floors)
	}

	if err := seq.AdvanceAll(ctx, floors); err != nil {
		t.Fatalf("AdvanceAll failed: %v", err)
	}
	for _, f := range Families {
		next, err := seq.Next(ctx, f)
		if err != nil {
			t.Fatalf("Next(%s) failed: %v", f, err)
		}
		if next != floors[f]+1 {
			t.Errorf("Next(%s) = %d, want %d", f, next, floors[f]+1)
		}
	}
}

func TestRedisSequence_Unavailable(t *testing.T) {
	ctx := context.Background()

	nilSeq := NewRedisSequence(nil, "", nil, nil)
	if _, err := nilSeq.Next(ctx, FamilyUsers); !IsBackendUnavailable(err) {
		t.Errorf("Next without client = %v, want ErrBackendUnavailable", err)
	}
	if _, err := nilSeq.Current(ctx, FamilyUsers); !IsBackendUnavailable(err) {
		t.Errorf("Current without client = %v, want ErrBackendUnavailable", err)
	}
	if err := nilSeq.Advance(ctx, FamilyUsers, 1); !IsBackendUnavailable(err) {
		t.Errorf("Advance without client = %v, want ErrBackendUnavailable", err)
	}

	seq, mr, metrics := newTestRedisSequence(t)
	mr.Close()
	if _, err := seq.Next(ctx, FamilyUsers); err == nil {
		t.Error("Next should fail when Redis is down")
	}
	if metrics.Count(MetricSequenceErrors) != 1 {
		t.Errorf("sequence errors = %d, want 1", metrics.Count(MetricSequenceErrors))
	}
}

func TestRedisSequence_BacksDynamoBackend(t *testing.T) {
	ctx := context.Background()
	seq, _, _ := newTestRedisSequence(t)
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	b := NewDynamoBackend(fake, WithIDSequence(seq))

	for want := int64(1); want <= 2; want++ {
		role, err := b.CreateRole(ctx, &CreateRoleInput{ProjectID: 1, Title: "Engineer"})
		if err != nil {
			t.Fatalf("CreateRole failed: %v", err)
		}
		if role.ID != want {
			t.Errorf("role id = %d, want %d", role.ID, want)
		}
	}
	if fake.count("UpdateItem") != 0 {
		t.Error("counters table must not be used when Redis supplies ids")
	}
}
