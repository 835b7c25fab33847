package launchbase

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
	"time"
)

// Snapshot is a point-in-time copy of every record a Storage holds,
// including user credentials. It is written as a single JSON document.
type Snapshot struct {
	ID      string      `json:"id"`
	TakenAt time.Time   `json:"takenAt"`
	Source  BackendKind `json:"source"`

	Users        []*User        `json:"users"`
	Projects     []*Project     `json:"projects"`
	Roles        []*Role        `json:"roles"`
	TeamMembers  []*TeamMember  `json:"teamMembers"`
	Applications []*Application `json:"applications"`
	Schools      []*School      `json:"schools"`
	Courses      []*Course      `json:"courses"`
	Modules      []*Module      `json:"modules"`
	Lessons      []*Lesson      `json:"lessons"`
	Instructors  []*Instructor  `json:"instructors"`

	Credentials map[int64]string `json:"credentials"`
}

// Counts returns the number of records per family.
func (s *Snapshot) Counts() map[Family]int {
	return map[Family]int{
		FamilyUsers:        len(s.Users),
		FamilyProjects:     len(s.Projects),
		FamilyRoles:        len(s.Roles),
		FamilyTeamMembers:  len(s.TeamMembers),
		FamilyApplications: len(s.Applications),
		FamilySchools:      len(s.Schools),
		FamilyCourses:      len(s.Courses),
		FamilyModules:      len(s.Modules),
		FamilyLessons:      len(s.Lessons),
		FamilyInstructors:  len(s.Instructors),
	}
}

// MaxIDs returns the highest id per family, or 0 for an empty family.
func (s *Snapshot) MaxIDs() map[Family]int64 {
	return map[Family]int64{
		FamilyUsers:        maxID(s.Users),
		FamilyProjects:     maxID(s.Projects),
		FamilyRoles:        maxID(s.Roles),
		FamilyTeamMembers:  maxID(s.TeamMembers),
		FamilyApplications: maxID(s.Applications),
		FamilySchools:      maxID(s.Schools),
		FamilyCourses:      maxID(s.Courses),
		FamilyModules:      maxID(s.Modules),
		FamilyLessons:      maxID(s.Lessons),
		FamilyInstructors:  maxID(s.Instructors),
	}
}

// validate rejects documents that decode cleanly but cannot be restored:
// null records and records without a positive id.
func (s *Snapshot) validate() error {
	checks := []struct {
		family Family
		bad    int
	}{
		{FamilyUsers, invalidRecord(s.Users)},
		{FamilyProjects, invalidRecord(s.Projects)},
		{FamilyRoles, invalidRecord(s.Roles)},
		{FamilyTeamMembers, invalidRecord(s.TeamMembers)},
		{FamilyApplications, invalidRecord(s.Applications)},
		{FamilySchools, invalidRecord(s.Schools)},
		{FamilyCourses, invalidRecord(s.Courses)},
		{FamilyModules, invalidRecord(s.Modules)},
		{FamilyLessons, invalidRecord(s.Lessons)},
		{FamilyInstructors, invalidRecord(s.Instructors)},
	}
	for _, c := range checks {
		if c.bad >= 0 {
			return WithContext(ErrInvalidData, map[string]interface{}{
				"snapshot_id": s.ID,
				"family":      string(c.family),
				"index":       c.bad,
				"reason":      "null record or missing id",
			})
		}
	}
	return nil
}

// invalidRecord returns the index of the first nil or id-less record, or -1.
func invalidRecord[T interface {
	comparable
	record
}](items []T) int {
	var zero T
	for i, x := range items {
		if x == zero || x.id() <= 0 {
			return i
		}
	}
	return -1
}

func maxID[T interface {
	comparable
	record
}](items []T) int64 {
	var top int64
	var zero T
	for _, x := range items {
		if x == zero {
			continue
		}
		if id := x.id(); id > top {
			top = id
		}
	}
	return top
}

// TakeSnapshot reads every family from s. The copy is not transactional:
// writes that land while it runs may or may not be included.
func TakeSnapshot(ctx context.Context, s Storage) (*Snapshot, error) {
	snap := &Snapshot{
		ID:          NewSnapshotID(),
		TakenAt:     time.Now().UTC(),
		Source:      s.Kind(),
		Credentials: make(map[int64]string),
	}

	var err error
	if snap.Users, err = s.ListUsers(ctx, UserFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot users: %w", err)
	}
	if snap.Projects, err = s.ListProjects(ctx, ProjectFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot projects: %w", err)
	}
	if snap.Roles, err = s.ListRoles(ctx, RoleFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot roles: %w", err)
	}
	if snap.TeamMembers, err = s.ListTeamMembers(ctx, TeamMemberFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot team members: %w", err)
	}
	if snap.Applications, err = s.ListApplications(ctx, ApplicationFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot applications: %w", err)
	}
	if snap.Schools, err = s.ListSchools(ctx, SchoolFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot schools: %w", err)
	}
	if snap.Courses, err = s.ListCourses(ctx, CourseFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot courses: %w", err)
	}
	if snap.Modules, err = s.ListModules(ctx, ModuleFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot modules: %w", err)
	}
	if snap.Lessons, err = s.ListLessons(ctx, LessonFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot lessons: %w", err)
	}
	if snap.Instructors, err = s.ListInstructors(ctx, InstructorFilter{}); err != nil {
		return nil, fmt.Errorf("snapshot instructors: %w", err)
	}

	for _, u := range snap.Users {
		password, err := s.GetUserCredential(ctx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("snapshot credential %d: %w", u.ID, err)
		}
		snap.Credentials[u.ID] = password
	}
	return snap, nil
}

const snapshotDir = "snapshots"

// SnapshotStore saves and loads snapshots under <prefix>/snapshots/<id>.json.
type SnapshotStore struct {
	backend  BlobBackend
	location BlobLocation
	logger   Logger
	metrics  Metrics
}

func NewSnapshotStore(backend BlobBackend, loc BlobLocation, logger Logger, metrics Metrics) *SnapshotStore {
	return &SnapshotStore{
		backend:  backend,
		location: loc,
		logger:   orNoOpLogger(logger),
		metrics:  orNoOpMetrics(metrics),
	}
}

// OpenSnapshotStore opens the snapshot store at uri. A configured snapshot
// key turns on encryption. Buckets on a custom S3 endpoint are created on
// open so a fresh MinIO works without setup.
func OpenSnapshotStore(ctx context.Context, uri string, cfg Config, logger Logger, metrics Metrics) (*SnapshotStore, error) {
	loc, err := ParseBlobLocation(uri)
	if err != nil {
		return nil, err
	}
	backend, err := OpenBlobBackend(ctx, loc, cfg)
	if err != nil {
		return nil, err
	}

	if s3b, ok := backend.(*S3Backend); ok && cfg.AWS.S3Endpoint != "" {
		if err := s3b.EnsureBucket(ctx); err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("ensure bucket %s: %w", loc.Bucket, err)
		}
	}

	if cfg.SnapshotKey != "" {
		key, err := cfg.snapshotKeyBytes()
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		enc, err := NewEncryptionBackend(backend, key)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		backend = enc
	}
	return NewSnapshotStore(backend, loc, logger, metrics), nil
}

func (s *SnapshotStore) key(id string) string {
	return s.location.Key(path.Join(snapshotDir, id+".json"))
}

// Save writes snap and returns its key.
func (s *SnapshotStore) Save(ctx context.Context, snap *Snapshot) (string, error) {
	if snap.ID == "" {
		snap.ID = NewSnapshotID()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.key(snap.ID)
	if err := s.backend.Put(ctx, key, data); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", key, err)
	}

	s.metrics.Increment(MetricSnapshotSaved, "scheme", s.location.Scheme)
	s.logger.Info("snapshot saved", "snapshot_id", snap.ID, "location", s.location.String(), "bytes", len(data))
	return key, nil
}

// Load reads the snapshot with the given id.
func (s *SnapshotStore) Load(ctx context.Context, id string) (*Snapshot, error) {
	if !IsValidSnapshotID(id) {
		return nil, WithContext(ErrValidation, map[string]interface{}{
			"snapshot_id": id,
			"reason":      "not a snapshot id",
		})
	}
	data, err := s.backend.Get(ctx, s.key(id))
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"snapshot_id": id,
			"error":       err.Error(),
		})
	}
	if err := snap.validate(); err != nil {
		return nil, err
	}
	if snap.Credentials == nil {
		snap.Credentials = make(map[int64]string)
	}
	return &snap, nil
}

// IDs lists stored snapshot ids, oldest first.
func (s *SnapshotStore) IDs(ctx context.Context) ([]string, error) {
	keys, err := s.backend.List(ctx, s.location.Key(snapshotDir)+"/")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		id, ok := strings.CutSuffix(path.Base(k), ".json")
		if ok && IsValidSnapshotID(id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Latest loads the most recent snapshot.
func (s *SnapshotStore) Latest(ctx context.Context) (*Snapshot, error) {
	ids, err := s.IDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, WithContext(ErrNotFound, map[string]interface{}{
			"location": s.location.String(),
			"reason":   "no snapshots",
		})
	}
	return s.Load(ctx, ids[len(ids)-1])
}

func (s *SnapshotStore) Close() error {
	return s.backend.Close()
}
