package launchbase

import "context"

// Family names one entity type. It doubles as the table suffix and sequence key.
type Family string

const (
	FamilyUsers        Family = "users"
	FamilyProjects     Family = "projects"
	FamilyRoles        Family = "roles"
	FamilyTeamMembers  Family = "team_members"
	FamilyApplications Family = "applications"
	FamilySchools      Family = "schools"
	FamilyCourses      Family = "courses"
	FamilyModules      Family = "modules"
	FamilyLessons      Family = "lessons"
	FamilyInstructors  Family = "instructors"
)

// Families lists every entity family in provisioning order.
var Families = []Family{
	FamilyUsers,
	FamilyProjects,
	FamilyRoles,
	FamilyTeamMembers,
	FamilyApplications,
	FamilySchools,
	FamilyCourses,
	FamilyModules,
	FamilyLessons,
	FamilyInstructors,
}

// BackendKind identifies which Storage implementation is active.
type BackendKind string

const (
	KindMemory BackendKind = "memory"
	KindDynamo BackendKind = "dynamodb"
)

// Storage is the contract every backend satisfies. Both implementations
// return the same logical results for the same inputs.
type Storage interface {
	UserStore
	ProjectStore
	RoleStore
	TeamMemberStore
	ApplicationStore
	SchoolStore
	CourseStore
	ModuleStore
	LessonStore
	InstructorStore

	// Kind reports the backend for diagnostics only.
	Kind() BackendKind
	// Ping checks connectivity without side effects.
	Ping(ctx context.Context) error
	Close() error
}

// UserStore has no delete: users are never removed.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	// GetUserCredential returns the stored password for the login flow.
	GetUserCredential(ctx context.Context, id int64) (string, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, error)
	CreateUser(ctx context.Context, input *CreateUserInput) (*User, error)
	UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error)
}

type ProjectStore interface {
	GetProject(ctx context.Context, id int64) (*Project, error)
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error)
	ListFeaturedProjects(ctx context.Context) ([]*Project, error)
	CreateProject(ctx context.Context, input *CreateProjectInput) (*Project, error)
	UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error)
	DeleteProject(ctx context.Context, id int64) (bool, error)
}

type RoleStore interface {
	GetRole(ctx context.Context, id int64) (*Role, error)
	ListRoles(ctx context.Context, filter RoleFilter) ([]*Role, error)
	GetProjectRoles(ctx context.Context, projectID int64) ([]*Role, error)
	CreateRole(ctx context.Context, input *CreateRoleInput) (*Role, error)
	UpdateRole(ctx context.Context, id int64, patch RolePatch) (*Role, error)
	DeleteRole(ctx context.Context, id int64) (bool, error)
}

type TeamMemberStore interface {
	GetTeamMember(ctx context.Context, id int64) (*TeamMember, error)
	ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error)
	GetProjectTeamMembers(ctx context.Context, projectID int64) ([]*TeamMember, error)
	GetUserTeamMemberships(ctx context.Context, userID int64) ([]*TeamMember, error)
	CreateTeamMember(ctx context.Context, input *CreateTeamMemberInput) (*TeamMember, error)
	UpdateTeamMember(ctx context.Context, id int64, patch TeamMemberPatch) (*TeamMember, error)
	DeleteTeamMember(ctx context.Context, id int64) (bool, error)
}

// ApplicationStore only allows status changes after creation.
type ApplicationStore interface {
	GetApplication(ctx context.Context, id int64) (*Application, error)
	ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, error)
	GetProjectApplications(ctx context.Context, projectID int64) ([]*Application, error)
	GetUserApplications(ctx context.Context, userID int64) ([]*Application, error)
	CreateApplication(ctx context.Context, input *CreateApplicationInput) (*Application, error)
	UpdateApplicationStatus(ctx context.Context, id int64, status string) (*Application, error)
}

type SchoolStore interface {
	GetSchool(ctx context.Context, id int64) (*School, error)
	ListSchools(ctx context.Context, filter SchoolFilter) ([]*School, error)
	ListFeaturedSchools(ctx context.Context) ([]*School, error)
	CreateSchool(ctx context.Context, input *CreateSchoolInput) (*School, error)
	UpdateSchool(ctx context.Context, id int64, patch SchoolPatch) (*School, error)
	DeleteSchool(ctx context.Context, id int64) (bool, error)
}

type CourseStore interface {
	GetCourse(ctx context.Context, id int64) (*Course, error)
	ListCourses(ctx context.Context, filter CourseFilter) ([]*Course, error)
	ListFeaturedCourses(ctx context.Context) ([]*Course, error)
	// ListPopularCourses sorts by enrolled count, descending. limit <= 0 returns all.
	ListPopularCourses(ctx context.Context, limit int) ([]*Course, error)
	// ListNewCourses sorts by creation time, newest first. limit <= 0 returns all.
	ListNewCourses(ctx context.Context, limit int) ([]*Course, error)
	GetSchoolCourses(ctx context.Context, schoolID int64) ([]*Course, error)
	GetInstructorCourses(ctx context.Context, instructorID int64) ([]*Course, error)
	CreateCourse(ctx context.Context, input *CreateCourseInput) (*Course, error)
	UpdateCourse(ctx context.Context, id int64, patch CoursePatch) (*Course, error)
	DeleteCourse(ctx context.Context, id int64) (bool, error)
}

type ModuleStore interface {
	GetModule(ctx context.Context, id int64) (*Module, error)
	ListModules(ctx context.Context, filter ModuleFilter) ([]*Module, error)
	GetCourseModules(ctx context.Context, courseID int64) ([]*Module, error)
	CreateModule(ctx context.Context, input *CreateModuleInput) (*Module, error)
	UpdateModule(ctx context.Context, id int64, patch ModulePatch) (*Module, error)
	DeleteModule(ctx context.Context, id int64) (bool, error)
}

type LessonStore interface {
	GetLesson(ctx context.Context, id int64) (*Lesson, error)
	ListLessons(ctx context.Context, filter LessonFilter) ([]*Lesson, error)
	GetModuleLessons(ctx context.Context, moduleID int64) ([]*Lesson, error)
	// CreateLesson also increments the owning course's LessonsCount.
	CreateLesson(ctx context.Context, input *CreateLessonInput) (*Lesson, error)
	UpdateLesson(ctx context.Context, id int64, patch LessonPatch) (*Lesson, error)
	DeleteLesson(ctx context.Context, id int64) (bool, error)
}

type InstructorStore interface {
	GetInstructor(ctx context.Context, id int64) (*Instructor, error)
	ListInstructors(ctx context.Context, filter InstructorFilter) ([]*Instructor, error)
	GetSchoolInstructors(ctx context.Context, schoolID int64) ([]*Instructor, error)
	CreateInstructor(ctx context.Context, input *CreateInstructorInput) (*Instructor, error)
	UpdateInstructor(ctx context.Context, id int64, patch InstructorPatch) (*Instructor, error)
	DeleteInstructor(ctx context.Context, id int64) (bool, error)
}
