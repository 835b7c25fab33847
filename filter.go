package launchbase

import (
	"cmp"
	"slices"
)

// Filters are equality-only. A nil field is ignored; a set field must equal
// the record's field. The zero filter matches every record.

// condition is one equality test on a stored attribute name.
type condition struct {
	attr  string
	value interface{}
}

func addCond[T any](conds []condition, attr string, v *T) []condition {
	if v == nil {
		return conds
	}
	return append(conds, condition{attr: attr, value: *v})
}

func eq[T comparable](want *T, got T) bool {
	return want == nil || *want == got
}

// eqOptional never matches an unset record field against a set filter field.
func eqOptional[T comparable](want *T, got *T) bool {
	return want == nil || (got != nil && *got == *want)
}

type UserFilter struct {
	Username *string
	Email    *string
}

func (f UserFilter) Matches(x *User) bool {
	return eq(f.Username, x.Username) && eq(f.Email, x.Email)
}

func (f UserFilter) conditions() []condition {
	c := addCond(nil, "username", f.Username)
	return addCond(c, "email", f.Email)
}

type ProjectFilter struct {
	Category  *string
	Stage     *string
	CreatedBy *int64
	Featured  *bool
}

func (f ProjectFilter) Matches(x *Project) bool {
	return eq(f.Category, x.Category) &&
		eq(f.Stage, x.Stage) &&
		eq(f.CreatedBy, x.CreatedBy) &&
		eq(f.Featured, x.Featured)
}

func (f ProjectFilter) conditions() []condition {
	c := addCond(nil, "category", f.Category)
	c = addCond(c, "stage", f.Stage)
	c = addCond(c, "createdBy", f.CreatedBy)
	return addCond(c, "featured", f.Featured)
}

type RoleFilter struct {
	ProjectID *int64
	IsOpen    *bool
}

func (f RoleFilter) Matches(x *Role) bool {
	return eq(f.ProjectID, x.ProjectID) && eq(f.IsOpen, x.IsOpen)
}

func (f RoleFilter) conditions() []condition {
	c := addCond(nil, "projectId", f.ProjectID)
	return addCond(c, "isOpen", f.IsOpen)
}

type TeamMemberFilter struct {
	ProjectID *int64
	UserID    *int64
	RoleID    *int64
	IsFounder *bool
}

func (f TeamMemberFilter) Matches(x *TeamMember) bool {
	return eq(f.ProjectID, x.ProjectID) &&
		eq(f.UserID, x.UserID) &&
		eqOptional(f.RoleID, x.RoleID) &&
		eq(f.IsFounder, x.IsFounder)
}

func (f TeamMemberFilter) conditions() []condition {
	c := addCond(nil, "projectId", f.ProjectID)
	c = addCond(c, "userId", f.UserID)
	c = addCond(c, "roleId", f.RoleID)
	return addCond(c, "isFounder", f.IsFounder)
}

type ApplicationFilter struct {
	ProjectID *int64
	UserID    *int64
	Status    *string
}

func (f ApplicationFilter) Matches(x *Application) bool {
	return eq(f.ProjectID, x.ProjectID) && eq(f.UserID, x.UserID) && eq(f.Status, x.Status)
}

func (f ApplicationFilter) conditions() []condition {
	c := addCond(nil, "projectId", f.ProjectID)
	c = addCond(c, "userId", f.UserID)
	return addCond(c, "status", f.Status)
}

type SchoolFilter struct {
	Category *string
	Location *string
	Featured *bool
}

func (f SchoolFilter) Matches(x *School) bool {
	return eq(f.Category, x.Category) && eq(f.Location, x.Location) && eq(f.Featured, x.Featured)
}

func (f SchoolFilter) conditions() []condition {
	c := addCond(nil, "category", f.Category)
	c = addCond(c, "location", f.Location)
	return addCond(c, "featured", f.Featured)
}

type CourseFilter struct {
	SchoolID     *int64
	InstructorID *int64
	Level        *string
	Category     *string
	Language     *string
	Featured     *bool
	Popular      *bool
	IsNew        *bool
	Certificate  *bool
}

func (f CourseFilter) Matches(x *Course) bool {
	return eq(f.SchoolID, x.SchoolID) &&
		eq(f.InstructorID, x.InstructorID) &&
		eq(f.Level, x.Level) &&
		eq(f.Category, x.Category) &&
		eq(f.Language, x.Language) &&
		eq(f.Featured, x.Featured) &&
		eq(f.Popular, x.Popular) &&
		eq(f.IsNew, x.IsNew) &&
		eq(f.Certificate, x.Certificate)
}

func (f CourseFilter) conditions() []condition {
	c := addCond(nil, "schoolId", f.SchoolID)
	c = addCond(c, "instructorId", f.InstructorID)
	c = addCond(c, "level", f.Level)
	c = addCond(c, "category", f.Category)
	c = addCond(c, "language", f.Language)
	c = addCond(c, "featured", f.Featured)
	c = addCond(c, "popular", f.Popular)
	c = addCond(c, "isNew", f.IsNew)
	return addCond(c, "certificate", f.Certificate)
}

type ModuleFilter struct {
	CourseID *int64
}

func (f ModuleFilter) Matches(x *Module) bool {
	return eq(f.CourseID, x.CourseID)
}

func (f ModuleFilter) conditions() []condition {
	return addCond(nil, "courseId", f.CourseID)
}

type LessonFilter struct {
	ModuleID *int64
	Type     *LessonType
	Preview  *bool
}

func (f LessonFilter) Matches(x *Lesson) bool {
	return eq(f.ModuleID, x.ModuleID) && eq(f.Type, x.Type) && eq(f.Preview, x.Preview)
}

func (f LessonFilter) conditions() []condition {
	c := addCond(nil, "moduleId", f.ModuleID)
	if f.Type != nil {
		c = append(c, condition{attr: "type", value: string(*f.Type)})
	}
	return addCond(c, "preview", f.Preview)
}

type InstructorFilter struct {
	SchoolID *int64
	UserID   *int64
}

func (f InstructorFilter) Matches(x *Instructor) bool {
	return eqOptional(f.SchoolID, x.SchoolID) && eqOptional(f.UserID, x.UserID)
}

func (f InstructorFilter) conditions() []condition {
	c := addCond(nil, "schoolId", f.SchoolID)
	return addCond(c, "userId", f.UserID)
}

// Result ordering shared by both backends.

type record interface {
	id() int64
}

type orderedRecord interface {
	record
	order() int
}

func sortByID[T record](items []T) {
	slices.SortFunc(items, func(a, b T) int {
		return cmp.Compare(a.id(), b.id())
	})
}

// sortByOrder sorts by position within the parent, then id.
func sortByOrder[T orderedRecord](items []T) {
	slices.SortFunc(items, func(a, b T) int {
		if c := cmp.Compare(a.order(), b.order()); c != 0 {
			return c
		}
		return cmp.Compare(a.id(), b.id())
	})
}

// popularCourses keeps the Popular subset, most enrolled first.
func popularCourses(courses []*Course, limit int) []*Course {
	out := make([]*Course, 0, len(courses))
	for _, c := range courses {
		if c.Popular {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Course) int {
		if c := cmp.Compare(b.EnrolledCount, a.EnrolledCount); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return truncate(out, limit)
}

// newCourses keeps the IsNew subset, newest first.
func newCourses(courses []*Course, limit int) []*Course {
	out := make([]*Course, 0, len(courses))
	for _, c := range courses {
		if c.IsNew {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b *Course) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return truncate(out, limit)
}

func truncate[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

func (x *User) id() int64        { return x.ID }
func (x *Project) id() int64     { return x.ID }
func (x *Role) id() int64        { return x.ID }
func (x *TeamMember) id() int64  { return x.ID }
func (x *Application) id() int64 { return x.ID }
func (x *School) id() int64      { return x.ID }
func (x *Course) id() int64      { return x.ID }
func (x *Module) id() int64      { return x.ID }
func (x *Lesson) id() int64      { return x.ID }
func (x *Instructor) id() int64  { return x.ID }

func (x *Module) order() int { return x.Order }
func (x *Lesson) order() int { return x.Order }
