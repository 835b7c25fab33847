package launchbase

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileSnapshotStore(t *testing.T, cfg Config) (*SnapshotStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenSnapshotStore(context.Background(), dir, cfg, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, dir
}

func TestTakeSnapshot(t *testing.T) {
	snap, err := TakeSnapshot(context.Background(), NewMemoryBackend())
	require.NoError(t, err)

	assert.True(t, IsValidSnapshotID(snap.ID))
	assert.Equal(t, KindMemory, snap.Source)
	assert.WithinDuration(t, time.Now(), snap.TakenAt, time.Minute)

	counts := snap.Counts()
	for f, want := range demoCounts {
		assert.Equal(t, want, counts[f], "count for %s", f)
	}
	assert.Len(t, snap.Credentials, 4)
	assert.Equal(t, "demo-grace", snap.Credentials[2])

	ids := snap.MaxIDs()
	assert.Equal(t, int64(9), ids[FamilyLessons])
	assert.Equal(t, int64(2), ids[FamilyApplications])
}

func TestSnapshot_MaxIDsWithGaps(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(WithoutSeed())
	for i := 0; i < 3; i++ {
		_, err := b.CreateModule(ctx, &CreateModuleInput{CourseID: 1, Title: "m"})
		require.NoError(t, err)
	}
	deleted, err := b.DeleteModule(ctx, 2)
	require.NoError(t, err)
	require.True(t, deleted)

	snap, err := TakeSnapshot(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Counts()[FamilyModules])
	assert.Equal(t, int64(3), snap.MaxIDs()[FamilyModules])
	assert.Equal(t, int64(0), snap.MaxIDs()[FamilyUsers])
}

func TestSnapshotStore_SaveLoad(t *testing.T) {
	ctx := context.Background()
	store, dir := newFileSnapshotStore(t, DefaultConfig())

	snap, err := TakeSnapshot(ctx, NewMemoryBackend())
	require.NoError(t, err)

	key, err := store.Save(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/"+snap.ID+".json", key)

	raw, err := os.ReadFile(filepath.Join(dir, "snapshots", snap.ID+".json"))
	require.NoError(t, err)
	assert.True(t, json.Valid(raw), "unencrypted snapshot should be plain JSON")

	loaded, err := store.Load(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, loaded.ID)
	assert.Equal(t, snap.Counts(), loaded.Counts())
	assert.Equal(t, snap.Credentials, loaded.Credentials)
	require.Len(t, loaded.Courses, 4)
	assert.Equal(t, snap.Courses[0].Title, loaded.Courses[0].Title)
	assert.True(t, snap.Courses[0].CreatedAt.Equal(loaded.Courses[0].CreatedAt))
}

func TestSnapshotStore_SaveAssignsID(t *testing.T) {
	store, _ := newFileSnapshotStore(t, DefaultConfig())

	snap := &Snapshot{}
	_, err := store.Save(context.Background(), snap)
	require.NoError(t, err)
	assert.True(t, IsValidSnapshotID(snap.ID))

	loaded, err := store.Load(context.Background(), snap.ID)
	require.NoError(t, err)
	assert.NotNil(t, loaded.Credentials)
}

func TestSnapshotStore_LatestAndIDs(t *testing.T) {
	ctx := context.Background()
	store, dir := newFileSnapshotStore(t, DefaultConfig())

	_, err := store.Latest(ctx)
	assert.True(t, IsNotFound(err), "empty store: %v", err)

	var saved []string
	for i := 0; i < 3; i++ {
		snap := &Snapshot{ID: NewSnapshotID(), Source: KindMemory}
		_, err := store.Save(ctx, snap)
		require.NoError(t, err)
		saved = append(saved, snap.ID)
		time.Sleep(2 * time.Millisecond)
	}

	// Stray files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", "not-an-id.json"), []byte("{}"), 0o644))

	ids, err := store.IDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, ids)

	latest, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved[2], latest.ID)
}

func TestSnapshotStore_LoadErrors(t *testing.T) {
	ctx := context.Background()
	store, dir := newFileSnapshotStore(t, DefaultConfig())

	_, err := store.Load(ctx, "../../etc/passwd")
	assert.True(t, errors.Is(err, ErrValidation), "got %v", err)

	_, err = store.Load(ctx, NewSnapshotID())
	assert.True(t, IsNotFound(err), "got %v", err)

	id := NewSnapshotID()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", id+".json"), []byte("{not json"), 0o644))
	_, err = store.Load(ctx, id)
	assert.True(t, errors.Is(err, ErrInvalidData), "got %v", err)
}

func TestSnapshotStore_LoadRejectsNullRecords(t *testing.T) {
	ctx := context.Background()
	store, dir := newFileSnapshotStore(t, DefaultConfig())
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "snapshots"), 0o755))

	docs := map[string]string{
		"null user":  `{"users":[null],"courses":[{"id":3}]}`,
		"zero id":    `{"lessons":[{"id":0,"title":"x"}]}`,
		"null child": `{"instructors":[{"id":1},null]}`,
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			id := NewSnapshotID()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "snapshots", id+".json"), []byte(doc), 0o644))

			_, err := store.Load(ctx, id)
			assert.True(t, errors.Is(err, ErrInvalidData), "got %v", err)
		})
	}
}

func TestSnapshot_MaxIDsSkipsNil(t *testing.T) {
	snap := &Snapshot{Users: []*User{nil, {ID: 7}}}
	assert.Equal(t, int64(7), snap.MaxIDs()[FamilyUsers])
}

func TestSnapshotStore_Encrypted(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultConfig()
	cfg.SnapshotKey = hex.EncodeToString(newTestKey(t))
	store, dir := newFileSnapshotStore(t, cfg)

	snap, err := TakeSnapshot(ctx, NewMemoryBackend())
	require.NoError(t, err)
	_, err = store.Save(ctx, snap)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "snapshots", snap.ID+".json"))
	require.NoError(t, err)
	assert.False(t, json.Valid(raw), "encrypted snapshot must not be readable JSON")
	assert.NotContains(t, string(raw), "demo-ada")

	loaded, err := store.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "demo-ada", loaded.Credentials[1])

	// A store without the key cannot read it.
	plain, err := OpenSnapshotStore(ctx, dir, DefaultConfig(), nil, nil)
	require.NoError(t, err)
	_, err = plain.Load(ctx, snap.ID)
	assert.True(t, errors.Is(err, ErrInvalidData), "got %v", err)
}

func TestOpenSnapshotStore_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.SnapshotKey = "abcd"
	_, err := OpenSnapshotStore(ctx, t.TempDir(), cfg, nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "short key: %v", err)

	_, err = OpenSnapshotStore(ctx, "ftp://host/path", DefaultConfig(), nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "unknown scheme: %v", err)

	_, err = OpenSnapshotStore(ctx, "", DefaultConfig(), nil, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "empty location: %v", err)
}

func TestSnapshot_RestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := NewMemoryBackend()
	_, err := source.UpdateApplicationStatus(ctx, 1, "accepted")
	require.NoError(t, err)

	store, _ := newFileSnapshotStore(t, DefaultConfig())
	snap, err := TakeSnapshot(ctx, source)
	require.NoError(t, err)
	_, err = store.Save(ctx, snap)
	require.NoError(t, err)

	loaded, err := store.Latest(ctx)
	require.NoError(t, err)
	restored := NewMemoryBackend(WithSnapshot(loaded))

	app, err := restored.GetApplication(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "accepted", app.Status)

	password, err := restored.GetUserCredential(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "demo-linus", password)

	// New ids continue after the restored ones.
	user, err := restored.CreateUser(ctx, &CreateUserInput{Username: "barbara", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
}
