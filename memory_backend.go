package launchbase

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend is the in-process Storage implementation.
//
// Every family has its own map and its own counter starting at 1. A single
// RWMutex guards all of it, so a create or update is never observed half done.
// Values handed to callers are copies; mutating them does not touch the store.
type MemoryBackend struct {
	mu sync.RWMutex

	users        map[int64]*User
	credentials  map[int64]string
	projects     map[int64]*Project
	roles        map[int64]*Role
	teamMembers  map[int64]*TeamMember
	applications map[int64]*Application
	schools      map[int64]*School
	courses      map[int64]*Course
	modules      map[int64]*Module
	lessons      map[int64]*Lesson
	instructors  map[int64]*Instructor
	counters     map[Family]int64

	logger  Logger
	metrics Metrics
	now     func() time.Time
}

type memoryOptions struct {
	seed     bool
	snapshot *Snapshot
	logger   Logger
	metrics  Metrics
	now      func() time.Time
}

// MemoryOption configures NewMemoryBackend
type MemoryOption func(*memoryOptions)

// WithoutSeed starts the backend empty.
func WithoutSeed() MemoryOption {
	return func(o *memoryOptions) { o.seed = false }
}

// WithSnapshot starts the backend from a saved snapshot instead of the demo dataset.
func WithSnapshot(s *Snapshot) MemoryOption {
	return func(o *memoryOptions) { o.snapshot = s }
}

func WithMemoryLogger(l Logger) MemoryOption {
	return func(o *memoryOptions) { o.logger = l }
}

func WithMemoryMetrics(m Metrics) MemoryOption {
	return func(o *memoryOptions) { o.metrics = m }
}

// WithMemoryClock overrides time.Now for timestamps.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// NewMemoryBackend creates the ephemeral backend. Unless WithoutSeed or
// WithSnapshot is given it loads the demonstration dataset.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	o := memoryOptions{seed: true, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	b := &MemoryBackend{
		logger:  orNoOpLogger(o.logger),
		metrics: orNoOpMetrics(o.metrics),
		now:     o.now,
	}
	b.reset()

	switch {
	case o.snapshot != nil:
		b.Restore(o.snapshot)
		b.logger.Info("memory backend restored from snapshot", "snapshot_id", o.snapshot.ID)
	case o.seed:
		report, err := SeedDemoData(context.Background(), b)
		if err != nil {
			b.logger.Error("demo seed failed", "error", err)
		} else {
			b.logger.Info("memory backend seeded", "records", report.Total())
		}
	}
	return b
}

func (b *MemoryBackend) reset() {
	b.users = make(map[int64]*User)
	b.credentials = make(map[int64]string)
	b.projects = make(map[int64]*Project)
	b.roles = make(map[int64]*Role)
	b.teamMembers = make(map[int64]*TeamMember)
	b.applications = make(map[int64]*Application)
	b.schools = make(map[int64]*School)
	b.courses = make(map[int64]*Course)
	b.modules = make(map[int64]*Module)
	b.lessons = make(map[int64]*Lesson)
	b.instructors = make(map[int64]*Instructor)
	b.counters = make(map[Family]int64, len(Families))
}

func (b *MemoryBackend) Kind() BackendKind { return KindMemory }

func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (b *MemoryBackend) Close() error { return nil }

// nextID must be called with the write lock held.
func (b *MemoryBackend) nextID(f Family) int64 {
	b.counters[f]++
	return b.counters[f]
}

func (b *MemoryBackend) timestamp() time.Time {
	return b.now().UTC()
}

func (b *MemoryBackend) observe(op string, f Family, start time.Time) {
	b.metrics.Increment(MetricStorageOps, "operation", op, "entity", string(f), "backend", string(KindMemory))
	b.metrics.Timing(MetricStorageDuration, time.Since(start), "operation", op, "backend", string(KindMemory))
}

type cloner[T any] interface {
	record
	clone() T
}

func getFrom[T cloner[T]](m map[int64]T, f Family, id int64) (T, error) {
	v, ok := m[id]
	if !ok {
		var zero T
		return zero, notFound(f, id)
	}
	return v.clone(), nil
}

// collect copies every matching record, sorted by id.
func collect[T cloner[T]](m map[int64]T, match func(T) bool) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		if match(v) {
			out = append(out, v.clone())
		}
	}
	sortByID(out)
	return out
}

func deleteFrom[T any](m map[int64]T, id int64) bool {
	if _, ok := m[id]; !ok {
		return false
	}
	delete(m, id)
	return true
}

// Users

func (b *MemoryBackend) GetUser(ctx context.Context, id int64) (*User, error) {
	defer b.observe("get", FamilyUsers, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.users, FamilyUsers, id)
}

func (b *MemoryBackend) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	defer b.observe("get_by_username", FamilyUsers, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	matches := collect(b.users, UserFilter{Username: &username}.Matches)
	if len(matches) == 0 {
		return nil, WithContext(ErrNotFound, map[string]interface{}{
			"entity":   string(FamilyUsers),
			"username": username,
		})
	}
	return matches[0], nil
}

func (b *MemoryBackend) GetUserCredential(ctx context.Context, id int64) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	password, ok := b.credentials[id]
	if !ok {
		return "", notFound(FamilyUsers, id)
	}
	return password, nil
}

func (b *MemoryBackend) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	defer b.observe("list", FamilyUsers, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.users, filter.Matches), nil
}

func (b *MemoryBackend) CreateUser(ctx context.Context, input *CreateUserInput) (*User, error) {
	if input == nil {
		return nil, invalidInput(FamilyUsers, "nil input")
	}
	defer b.observe("create", FamilyUsers, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	u := input.build(b.nextID(FamilyUsers), b.timestamp())
	b.users[u.ID] = u
	b.credentials[u.ID] = input.Password
	return u.clone(), nil
}

func (b *MemoryBackend) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	defer b.observe("update", FamilyUsers, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[id]
	if !ok {
		return nil, notFound(FamilyUsers, id)
	}
	patch.apply(u)
	if patch.Password != nil {
		b.credentials[id] = *patch.Password
	}
	return u.clone(), nil
}

// Projects

func (b *MemoryBackend) GetProject(ctx context.Context, id int64) (*Project, error) {
	defer b.observe("get", FamilyProjects, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.projects, FamilyProjects, id)
}

func (b *MemoryBackend) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	defer b.observe("list", FamilyProjects, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.projects, filter.Matches), nil
}

func (b *MemoryBackend) ListFeaturedProjects(ctx context.Context) ([]*Project, error) {
	return b.ListProjects(ctx, ProjectFilter{Featured: Ptr(true)})
}

func (b *MemoryBackend) CreateProject(ctx context.Context, input *CreateProjectInput) (*Project, error) {
	if input == nil {
		return nil, invalidInput(FamilyProjects, "nil input")
	}
	defer b.observe("create", FamilyProjects, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	p := input.build(b.nextID(FamilyProjects), b.timestamp())
	b.projects[p.ID] = p
	return p.clone(), nil
}

func (b *MemoryBackend) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error) {
	defer b.observe("update", FamilyProjects, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.projects[id]
	if !ok {
		return nil, notFound(FamilyProjects, id)
	}
	patch.apply(p)
	return p.clone(), nil
}

func (b *MemoryBackend) DeleteProject(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyProjects, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.projects, id), nil
}

// Roles

func (b *MemoryBackend) GetRole(ctx context.Context, id int64) (*Role, error) {
	defer b.observe("get", FamilyRoles, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.roles, FamilyRoles, id)
}

func (b *MemoryBackend) ListRoles(ctx context.Context, filter RoleFilter) ([]*Role, error) {
	defer b.observe("list", FamilyRoles, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.roles, filter.Matches), nil
}

func (b *MemoryBackend) GetProjectRoles(ctx context.Context, projectID int64) ([]*Role, error) {
	return b.ListRoles(ctx, RoleFilter{ProjectID: &projectID})
}

func (b *MemoryBackend) CreateRole(ctx context.Context, input *CreateRoleInput) (*Role, error) {
	if input == nil {
		return nil, invalidInput(FamilyRoles, "nil input")
	}
	defer b.observe("create", FamilyRoles, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	r := input.build(b.nextID(FamilyRoles))
	b.roles[r.ID] = r
	return r.clone(), nil
}

func (b *MemoryBackend) UpdateRole(ctx context.Context, id int64, patch RolePatch) (*Role, error) {
	defer b.observe("update", FamilyRoles, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.roles[id]
	if !ok {
		return nil, notFound(FamilyRoles, id)
	}
	patch.apply(r)
	return r.clone(), nil
}

func (b *MemoryBackend) DeleteRole(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyRoles, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.roles, id), nil
}

// Team members

func (b *MemoryBackend) GetTeamMember(ctx context.Context, id int64) (*TeamMember, error) {
	defer b.observe("get", FamilyTeamMembers, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.teamMembers, FamilyTeamMembers, id)
}

func (b *MemoryBackend) ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error) {
	defer b.observe("list", FamilyTeamMembers, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.teamMembers, filter.Matches), nil
}

func (b *MemoryBackend) GetProjectTeamMembers(ctx context.Context, projectID int64) ([]*TeamMember, error) {
	return b.ListTeamMembers(ctx, TeamMemberFilter{ProjectID: &projectID})
}

func (b *MemoryBackend) GetUserTeamMemberships(ctx context.Context, userID int64) ([]*TeamMember, error) {
	return b.ListTeamMembers(ctx, TeamMemberFilter{UserID: &userID})
}

func (b *MemoryBackend) CreateTeamMember(ctx context.Context, input *CreateTeamMemberInput) (*TeamMember, error) {
	if input == nil {
		return nil, invalidInput(FamilyTeamMembers, "nil input")
	}
	defer b.observe("create", FamilyTeamMembers, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	m := input.build(b.nextID(FamilyTeamMembers), b.timestamp())
	b.teamMembers[m.ID] = m
	return m.clone(), nil
}

func (b *MemoryBackend) UpdateTeamMember(ctx context.Context, id int64, patch TeamMemberPatch) (*TeamMember, error) {
	defer b.observe("update", FamilyTeamMembers, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.teamMembers[id]
	if !ok {
		return nil, notFound(FamilyTeamMembers, id)
	}
	patch.apply(m)
	return m.clone(), nil
}

func (b *MemoryBackend) DeleteTeamMember(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyTeamMembers, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.teamMembers, id), nil
}

// Applications

func (b *MemoryBackend) GetApplication(ctx context.Context, id int64) (*Application, error) {
	defer b.observe("get", FamilyApplications, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.applications, FamilyApplications, id)
}

func (b *MemoryBackend) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, error) {
	defer b.observe("list", FamilyApplications, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.applications, filter.Matches), nil
}

func (b *MemoryBackend) GetProjectApplications(ctx context.Context, projectID int64) ([]*Application, error) {
	return b.ListApplications(ctx, ApplicationFilter{ProjectID: &projectID})
}

func (b *MemoryBackend) GetUserApplications(ctx context.Context, userID int64) ([]*Application, error) {
	return b.ListApplications(ctx, ApplicationFilter{UserID: &userID})
}

func (b *MemoryBackend) CreateApplication(ctx context.Context, input *CreateApplicationInput) (*Application, error) {
	if input == nil {
		return nil, invalidInput(FamilyApplications, "nil input")
	}
	defer b.observe("create", FamilyApplications, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	a := input.build(b.nextID(FamilyApplications), b.timestamp())
	b.applications[a.ID] = a
	return a.clone(), nil
}

func (b *MemoryBackend) UpdateApplicationStatus(ctx context.Context, id int64, status string) (*Application, error) {
	defer b.observe("update_status", FamilyApplications, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.applications[id]
	if !ok {
		return nil, notFound(FamilyApplications, id)
	}
	a.Status = status
	return a.clone(), nil
}

// Schools

func (b *MemoryBackend) GetSchool(ctx context.Context, id int64) (*School, error) {
	defer b.observe("get", FamilySchools, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.schools, FamilySchools, id)
}

func (b *MemoryBackend) ListSchools(ctx context.Context, filter SchoolFilter) ([]*School, error) {
	defer b.observe("list", FamilySchools, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.schools, filter.Matches), nil
}

func (b *MemoryBackend) ListFeaturedSchools(ctx context.Context) ([]*School, error) {
	return b.ListSchools(ctx, SchoolFilter{Featured: Ptr(true)})
}

func (b *MemoryBackend) CreateSchool(ctx context.Context, input *CreateSchoolInput) (*School, error) {
	if input == nil {
		return nil, invalidInput(FamilySchools, "nil input")
	}
	defer b.observe("create", FamilySchools, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	s := input.build(b.nextID(FamilySchools))
	b.schools[s.ID] = s
	return s.clone(), nil
}

func (b *MemoryBackend) UpdateSchool(ctx context.Context, id int64, patch SchoolPatch) (*School, error) {
	defer b.observe("update", FamilySchools, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.schools[id]
	if !ok {
		return nil, notFound(FamilySchools, id)
	}
	patch.apply(s)
	return s.clone(), nil
}

func (b *MemoryBackend) DeleteSchool(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilySchools, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.schools, id), nil
}

// Courses

func (b *MemoryBackend) GetCourse(ctx context.Context, id int64) (*Course, error) {
	defer b.observe("get", FamilyCourses, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.courses, FamilyCourses, id)
}

func (b *MemoryBackend) ListCourses(ctx context.Context, filter CourseFilter) ([]*Course, error) {
	defer b.observe("list", FamilyCourses, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.courses, filter.Matches), nil
}

func (b *MemoryBackend) ListFeaturedCourses(ctx context.Context) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{Featured: Ptr(true)})
}

func (b *MemoryBackend) ListPopularCourses(ctx context.Context, limit int) ([]*Course, error) {
	courses, err := b.ListCourses(ctx, CourseFilter{Popular: Ptr(true)})
	if err != nil {
		return nil, err
	}
	return popularCourses(courses, limit), nil
}

func (b *MemoryBackend) ListNewCourses(ctx context.Context, limit int) ([]*Course, error) {
	courses, err := b.ListCourses(ctx, CourseFilter{IsNew: Ptr(true)})
	if err != nil {
		return nil, err
	}
	return newCourses(courses, limit), nil
}

func (b *MemoryBackend) GetSchoolCourses(ctx context.Context, schoolID int64) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{SchoolID: &schoolID})
}

func (b *MemoryBackend) GetInstructorCourses(ctx context.Context, instructorID int64) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{InstructorID: &instructorID})
}

func (b *MemoryBackend) CreateCourse(ctx context.Context, input *CreateCourseInput) (*Course, error) {
	if input == nil {
		return nil, invalidInput(FamilyCourses, "nil input")
	}
	defer b.observe("create", FamilyCourses, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	c := input.build(b.nextID(FamilyCourses), b.timestamp())
	b.courses[c.ID] = c
	return c.clone(), nil
}

func (b *MemoryBackend) UpdateCourse(ctx context.Context, id int64, patch CoursePatch) (*Course, error) {
	defer b.observe("update", FamilyCourses, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.courses[id]
	if !ok {
		return nil, notFound(FamilyCourses, id)
	}
	patch.apply(c, b.timestamp())
	return c.clone(), nil
}

func (b *MemoryBackend) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyCourses, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.courses, id), nil
}

// Modules

func (b *MemoryBackend) GetModule(ctx context.Context, id int64) (*Module, error) {
	defer b.observe("get", FamilyModules, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.modules, FamilyModules, id)
}

func (b *MemoryBackend) ListModules(ctx context.Context, filter ModuleFilter) ([]*Module, error) {
	defer b.observe("list", FamilyModules, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.modules, filter.Matches), nil
}

func (b *MemoryBackend) GetCourseModules(ctx context.Context, courseID int64) ([]*Module, error) {
	modules, err := b.ListModules(ctx, ModuleFilter{CourseID: &courseID})
	if err != nil {
		return nil, err
	}
	sortByOrder(modules)
	return modules, nil
}

func (b *MemoryBackend) CreateModule(ctx context.Context, input *CreateModuleInput) (*Module, error) {
	if input == nil {
		return nil, invalidInput(FamilyModules, "nil input")
	}
	defer b.observe("create", FamilyModules, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	m := input.build(b.nextID(FamilyModules))
	b.modules[m.ID] = m
	return m.clone(), nil
}

func (b *MemoryBackend) UpdateModule(ctx context.Context, id int64, patch ModulePatch) (*Module, error) {
	defer b.observe("update", FamilyModules, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	m, ok := b.modules[id]
	if !ok {
		return nil, notFound(FamilyModules, id)
	}
	patch.apply(m)
	return m.clone(), nil
}

func (b *MemoryBackend) DeleteModule(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyModules, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.modules, id), nil
}

// Lessons

func (b *MemoryBackend) GetLesson(ctx context.Context, id int64) (*Lesson, error) {
	defer b.observe("get", FamilyLessons, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.lessons, FamilyLessons, id)
}

func (b *MemoryBackend) ListLessons(ctx context.Context, filter LessonFilter) ([]*Lesson, error) {
	defer b.observe("list", FamilyLessons, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.lessons, filter.Matches), nil
}

func (b *MemoryBackend) GetModuleLessons(ctx context.Context, moduleID int64) ([]*Lesson, error) {
	lessons, err := b.ListLessons(ctx, LessonFilter{ModuleID: &moduleID})
	if err != nil {
		return nil, err
	}
	sortByOrder(lessons)
	return lessons, nil
}

// CreateLesson bumps the owning course's LessonsCount in the same critical
// section. A missing module or course skips the bump silently.
func (b *MemoryBackend) CreateLesson(ctx context.Context, input *CreateLessonInput) (*Lesson, error) {
	if input == nil {
		return nil, invalidInput(FamilyLessons, "nil input")
	}
	defer b.observe("create", FamilyLessons, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	l := input.build(b.nextID(FamilyLessons))
	b.lessons[l.ID] = l

	if m, ok := b.modules[l.ModuleID]; ok {
		if c, ok := b.courses[m.CourseID]; ok {
			c.LessonsCount++
		}
	}
	return l.clone(), nil
}

func (b *MemoryBackend) UpdateLesson(ctx context.Context, id int64, patch LessonPatch) (*Lesson, error) {
	defer b.observe("update", FamilyLessons, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	l, ok := b.lessons[id]
	if !ok {
		return nil, notFound(FamilyLessons, id)
	}
	patch.apply(l)
	return l.clone(), nil
}

func (b *MemoryBackend) DeleteLesson(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyLessons, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.lessons, id), nil
}

// Instructors

func (b *MemoryBackend) GetInstructor(ctx context.Context, id int64) (*Instructor, error) {
	defer b.observe("get", FamilyInstructors, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return getFrom(b.instructors, FamilyInstructors, id)
}

func (b *MemoryBackend) ListInstructors(ctx context.Context, filter InstructorFilter) ([]*Instructor, error) {
	defer b.observe("list", FamilyInstructors, time.Now())
	b.mu.RLock()
	defer b.mu.RUnlock()
	return collect(b.instructors, filter.Matches), nil
}

func (b *MemoryBackend) GetSchoolInstructors(ctx context.Context, schoolID int64) ([]*Instructor, error) {
	return b.ListInstructors(ctx, InstructorFilter{SchoolID: &schoolID})
}

func (b *MemoryBackend) CreateInstructor(ctx context.Context, input *CreateInstructorInput) (*Instructor, error) {
	if input == nil {
		return nil, invalidInput(FamilyInstructors, "nil input")
	}
	defer b.observe("create", FamilyInstructors, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	i := input.build(b.nextID(FamilyInstructors))
	b.instructors[i.ID] = i
	return i.clone(), nil
}

func (b *MemoryBackend) UpdateInstructor(ctx context.Context, id int64, patch InstructorPatch) (*Instructor, error) {
	defer b.observe("update", FamilyInstructors, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	i, ok := b.instructors[id]
	if !ok {
		return nil, notFound(FamilyInstructors, id)
	}
	patch.apply(i)
	return i.clone(), nil
}

func (b *MemoryBackend) DeleteInstructor(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyInstructors, time.Now())
	b.mu.Lock()
	defer b.mu.Unlock()
	return deleteFrom(b.instructors, id), nil
}

// Restore replaces all records with the snapshot contents. Counters never
// move back: each resumes after the larger of the highest id issued so far
// and the highest id in the snapshot. Nil records are skipped.
func (b *MemoryBackend) Restore(s *Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counters := b.counters
	b.reset()
	b.counters = counters

	restore(b.users, s.Users, b.counters, FamilyUsers)
	restore(b.projects, s.Projects, b.counters, FamilyProjects)
	restore(b.roles, s.Roles, b.counters, FamilyRoles)
	restore(b.teamMembers, s.TeamMembers, b.counters, FamilyTeamMembers)
	restore(b.applications, s.Applications, b.counters, FamilyApplications)
	restore(b.schools, s.Schools, b.counters, FamilySchools)
	restore(b.courses, s.Courses, b.counters, FamilyCourses)
	restore(b.modules, s.Modules, b.counters, FamilyModules)
	restore(b.lessons, s.Lessons, b.counters, FamilyLessons)
	restore(b.instructors, s.Instructors, b.counters, FamilyInstructors)
	for id, password := range s.Credentials {
		b.credentials[id] = password
	}
}

func restore[T interface {
	comparable
	cloner[T]
}](dst map[int64]T, src []T, counters map[Family]int64, f Family) {
	var zero T
	for _, v := range src {
		if v == zero {
			continue
		}
		dst[v.id()] = v.clone()
		if v.id() > counters[f] {
			counters[f] = v.id()
		}
	}
}
