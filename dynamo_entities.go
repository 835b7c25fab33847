package launchbase

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// createEntity allocates an id, builds the entity and inserts its item.
func createEntity[E any](ctx context.Context, b *DynamoBackend, f Family, build func(id int64) E, encode func(E) interface{}) (E, error) {
	var zero E
	id, err := b.nextID(ctx, f)
	if err != nil {
		return zero, err
	}
	e := build(id)
	if err := b.insert(ctx, f, encode(e)); err != nil {
		return zero, err
	}
	return e, nil
}

// updateEntity reads, patches and replaces an item. A patch that changes
// nothing returns the stored entity without writing.
func updateEntity[I any, E any](ctx context.Context, b *DynamoBackend, f Family, id int64, convert func(*I) (E, error), apply func(E) bool, encode func(E) interface{}) (E, error) {
	var zero E
	e, err := getEntity(ctx, b, f, id, convert)
	if err != nil {
		return zero, err
	}
	if !apply(e) {
		return e, nil
	}
	if err := b.replace(ctx, f, id, encode(e)); err != nil {
		return zero, err
	}
	return e, nil
}

// Users

func (b *DynamoBackend) GetUser(ctx context.Context, id int64) (*User, error) {
	defer b.observe("get", FamilyUsers, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyUsers, id, (*userItem).entity)
}

func (b *DynamoBackend) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	defer b.observe("get_by_username", FamilyUsers, time.Now())
	b.ensure(ctx)
	users, err := listEntities(ctx, b, FamilyUsers, UserFilter{Username: &username}.conditions(), (*userItem).entity)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, WithContext(ErrNotFound, map[string]interface{}{
			"entity":   string(FamilyUsers),
			"username": username,
		})
	}
	return users[0], nil
}

func (b *DynamoBackend) GetUserCredential(ctx context.Context, id int64) (string, error) {
	b.ensure(ctx)
	item, err := getItem[userItem](ctx, b, FamilyUsers, id)
	if err != nil {
		return "", err
	}
	return item.Password, nil
}

func (b *DynamoBackend) ListUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	defer b.observe("list", FamilyUsers, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyUsers, filter.conditions(), (*userItem).entity)
}

func (b *DynamoBackend) CreateUser(ctx context.Context, input *CreateUserInput) (*User, error) {
	if input == nil {
		return nil, invalidInput(FamilyUsers, "nil input")
	}
	defer b.observe("create", FamilyUsers, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyUsers,
		func(id int64) *User { return input.build(id, b.timestamp()) },
		func(u *User) interface{} { return newUserItem(u, input.Password) },
	)
}

// UpdateUser works on the stored item so the credential survives profile edits.
func (b *DynamoBackend) UpdateUser(ctx context.Context, id int64, patch UserPatch) (*User, error) {
	defer b.observe("update", FamilyUsers, time.Now())
	b.ensure(ctx)
	item, err := getItem[userItem](ctx, b, FamilyUsers, id)
	if err != nil {
		return nil, err
	}
	u, err := item.entity()
	if err != nil {
		return nil, err
	}
	if !patch.apply(u) {
		return u, nil
	}
	password := item.Password
	if patch.Password != nil {
		password = *patch.Password
	}
	if err := b.replace(ctx, FamilyUsers, id, newUserItem(u, password)); err != nil {
		return nil, err
	}
	return u, nil
}

// Projects

func (b *DynamoBackend) GetProject(ctx context.Context, id int64) (*Project, error) {
	defer b.observe("get", FamilyProjects, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyProjects, id, (*projectItem).entity)
}

func (b *DynamoBackend) ListProjects(ctx context.Context, filter ProjectFilter) ([]*Project, error) {
	defer b.observe("list", FamilyProjects, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyProjects, filter.conditions(), (*projectItem).entity)
}

func (b *DynamoBackend) ListFeaturedProjects(ctx context.Context) ([]*Project, error) {
	return b.ListProjects(ctx, ProjectFilter{Featured: Ptr(true)})
}

func (b *DynamoBackend) CreateProject(ctx context.Context, input *CreateProjectInput) (*Project, error) {
	if input == nil {
		return nil, invalidInput(FamilyProjects, "nil input")
	}
	defer b.observe("create", FamilyProjects, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyProjects,
		func(id int64) *Project { return input.build(id, b.timestamp()) },
		func(p *Project) interface{} { return newProjectItem(p) },
	)
}

func (b *DynamoBackend) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (*Project, error) {
	defer b.observe("update", FamilyProjects, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyProjects, id, (*projectItem).entity, patch.apply,
		func(p *Project) interface{} { return newProjectItem(p) })
}

func (b *DynamoBackend) DeleteProject(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyProjects, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyProjects, id)
}

// Roles

func (b *DynamoBackend) GetRole(ctx context.Context, id int64) (*Role, error) {
	defer b.observe("get", FamilyRoles, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyRoles, id, (*roleItem).entity)
}

func (b *DynamoBackend) ListRoles(ctx context.Context, filter RoleFilter) ([]*Role, error) {
	defer b.observe("list", FamilyRoles, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyRoles, filter.conditions(), (*roleItem).entity)
}

func (b *DynamoBackend) GetProjectRoles(ctx context.Context, projectID int64) ([]*Role, error) {
	return b.ListRoles(ctx, RoleFilter{ProjectID: &projectID})
}

func (b *DynamoBackend) CreateRole(ctx context.Context, input *CreateRoleInput) (*Role, error) {
	if input == nil {
		return nil, invalidInput(FamilyRoles, "nil input")
	}
	defer b.observe("create", FamilyRoles, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyRoles, input.build,
		func(r *Role) interface{} { return roleItem{*r} })
}

func (b *DynamoBackend) UpdateRole(ctx context.Context, id int64, patch RolePatch) (*Role, error) {
	defer b.observe("update", FamilyRoles, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyRoles, id, (*roleItem).entity, patch.apply,
		func(r *Role) interface{} { return roleItem{*r} })
}

func (b *DynamoBackend) DeleteRole(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyRoles, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyRoles, id)
}

// Team members

func (b *DynamoBackend) GetTeamMember(ctx context.Context, id int64) (*TeamMember, error) {
	defer b.observe("get", FamilyTeamMembers, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyTeamMembers, id, (*teamMemberItem).entity)
}

func (b *DynamoBackend) ListTeamMembers(ctx context.Context, filter TeamMemberFilter) ([]*TeamMember, error) {
	defer b.observe("list", FamilyTeamMembers, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyTeamMembers, filter.conditions(), (*teamMemberItem).entity)
}

func (b *DynamoBackend) GetProjectTeamMembers(ctx context.Context, projectID int64) ([]*TeamMember, error) {
	return b.ListTeamMembers(ctx, TeamMemberFilter{ProjectID: &projectID})
}

func (b *DynamoBackend) GetUserTeamMemberships(ctx context.Context, userID int64) ([]*TeamMember, error) {
	return b.ListTeamMembers(ctx, TeamMemberFilter{UserID: &userID})
}

func (b *DynamoBackend) CreateTeamMember(ctx context.Context, input *CreateTeamMemberInput) (*TeamMember, error) {
	if input == nil {
		return nil, invalidInput(FamilyTeamMembers, "nil input")
	}
	defer b.observe("create", FamilyTeamMembers, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyTeamMembers,
		func(id int64) *TeamMember { return input.build(id, b.timestamp()) },
		func(m *TeamMember) interface{} { return newTeamMemberItem(m) },
	)
}

func (b *DynamoBackend) UpdateTeamMember(ctx context.Context, id int64, patch TeamMemberPatch) (*TeamMember, error) {
	defer b.observe("update", FamilyTeamMembers, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyTeamMembers, id, (*teamMemberItem).entity, patch.apply,
		func(m *TeamMember) interface{} { return newTeamMemberItem(m) })
}

func (b *DynamoBackend) DeleteTeamMember(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyTeamMembers, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyTeamMembers, id)
}

// Applications

func (b *DynamoBackend) GetApplication(ctx context.Context, id int64) (*Application, error) {
	defer b.observe("get", FamilyApplications, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyApplications, id, (*applicationItem).entity)
}

func (b *DynamoBackend) ListApplications(ctx context.Context, filter ApplicationFilter) ([]*Application, error) {
	defer b.observe("list", FamilyApplications, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyApplications, filter.conditions(), (*applicationItem).entity)
}

func (b *DynamoBackend) GetProjectApplications(ctx context.Context, projectID int64) ([]*Application, error) {
	return b.ListApplications(ctx, ApplicationFilter{ProjectID: &projectID})
}

func (b *DynamoBackend) GetUserApplications(ctx context.Context, userID int64) ([]*Application, error) {
	return b.ListApplications(ctx, ApplicationFilter{UserID: &userID})
}

func (b *DynamoBackend) CreateApplication(ctx context.Context, input *CreateApplicationInput) (*Application, error) {
	if input == nil {
		return nil, invalidInput(FamilyApplications, "nil input")
	}
	defer b.observe("create", FamilyApplications, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyApplications,
		func(id int64) *Application { return input.build(id, b.timestamp()) },
		func(a *Application) interface{} { return newApplicationItem(a) },
	)
}

func (b *DynamoBackend) UpdateApplicationStatus(ctx context.Context, id int64, status string) (*Application, error) {
	defer b.observe("update_status", FamilyApplications, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyApplications, id, (*applicationItem).entity,
		func(a *Application) bool {
			a.Status = status
			return true
		},
		func(a *Application) interface{} { return newApplicationItem(a) })
}

// Schools

func (b *DynamoBackend) GetSchool(ctx context.Context, id int64) (*School, error) {
	defer b.observe("get", FamilySchools, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilySchools, id, (*schoolItem).entity)
}

func (b *DynamoBackend) ListSchools(ctx context.Context, filter SchoolFilter) ([]*School, error) {
	defer b.observe("list", FamilySchools, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilySchools, filter.conditions(), (*schoolItem).entity)
}

func (b *DynamoBackend) ListFeaturedSchools(ctx context.Context) ([]*School, error) {
	return b.ListSchools(ctx, SchoolFilter{Featured: Ptr(true)})
}

func (b *DynamoBackend) CreateSchool(ctx context.Context, input *CreateSchoolInput) (*School, error) {
	if input == nil {
		return nil, invalidInput(FamilySchools, "nil input")
	}
	defer b.observe("create", FamilySchools, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilySchools, input.build,
		func(s *School) interface{} { return newSchoolItem(s) })
}

func (b *DynamoBackend) UpdateSchool(ctx context.Context, id int64, patch SchoolPatch) (*School, error) {
	defer b.observe("update", FamilySchools, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilySchools, id, (*schoolItem).entity, patch.apply,
		func(s *School) interface{} { return newSchoolItem(s) })
}

func (b *DynamoBackend) DeleteSchool(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilySchools, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilySchools, id)
}

// Courses

func (b *DynamoBackend) GetCourse(ctx context.Context, id int64) (*Course, error) {
	defer b.observe("get", FamilyCourses, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyCourses, id, (*courseItem).entity)
}

func (b *DynamoBackend) ListCourses(ctx context.Context, filter CourseFilter) ([]*Course, error) {
	defer b.observe("list", FamilyCourses, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyCourses, filter.conditions(), (*courseItem).entity)
}

func (b *DynamoBackend) ListFeaturedCourses(ctx context.Context) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{Featured: Ptr(true)})
}

func (b *DynamoBackend) ListPopularCourses(ctx context.Context, limit int) ([]*Course, error) {
	courses, err := b.ListCourses(ctx, CourseFilter{Popular: Ptr(true)})
	if err != nil {
		return nil, err
	}
	return popularCourses(courses, limit), nil
}

func (b *DynamoBackend) ListNewCourses(ctx context.Context, limit int) ([]*Course, error) {
	courses, err := b.ListCourses(ctx, CourseFilter{IsNew: Ptr(true)})
	if err != nil {
		return nil, err
	}
	return newCourses(courses, limit), nil
}

func (b *DynamoBackend) GetSchoolCourses(ctx context.Context, schoolID int64) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{SchoolID: &schoolID})
}

func (b *DynamoBackend) GetInstructorCourses(ctx context.Context, instructorID int64) ([]*Course, error) {
	return b.ListCourses(ctx, CourseFilter{InstructorID: &instructorID})
}

func (b *DynamoBackend) CreateCourse(ctx context.Context, input *CreateCourseInput) (*Course, error) {
	if input == nil {
		return nil, invalidInput(FamilyCourses, "nil input")
	}
	defer b.observe("create", FamilyCourses, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyCourses,
		func(id int64) *Course { return input.build(id, b.timestamp()) },
		func(c *Course) interface{} { return newCourseItem(c) },
	)
}

func (b *DynamoBackend) UpdateCourse(ctx context.Context, id int64, patch CoursePatch) (*Course, error) {
	defer b.observe("update", FamilyCourses, time.Now())
	b.ensure(ctx)
	now := b.timestamp()
	return updateEntity(ctx, b, FamilyCourses, id, (*courseItem).entity,
		func(c *Course) bool { return patch.apply(c, now) },
		func(c *Course) interface{} { return newCourseItem(c) })
}

func (b *DynamoBackend) DeleteCourse(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyCourses, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyCourses, id)
}

// Modules

func (b *DynamoBackend) GetModule(ctx context.Context, id int64) (*Module, error) {
	defer b.observe("get", FamilyModules, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyModules, id, (*moduleItem).entity)
}

func (b *DynamoBackend) ListModules(ctx context.Context, filter ModuleFilter) ([]*Module, error) {
	defer b.observe("list", FamilyModules, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyModules, filter.conditions(), (*moduleItem).entity)
}

func (b *DynamoBackend) GetCourseModules(ctx context.Context, courseID int64) ([]*Module, error) {
	modules, err := b.ListModules(ctx, ModuleFilter{CourseID: &courseID})
	if err != nil {
		return nil, err
	}
	sortByOrder(modules)
	return modules, nil
}

func (b *DynamoBackend) CreateModule(ctx context.Context, input *CreateModuleInput) (*Module, error) {
	if input == nil {
		return nil, invalidInput(FamilyModules, "nil input")
	}
	defer b.observe("create", FamilyModules, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyModules, input.build,
		func(m *Module) interface{} { return moduleItem{*m} })
}

func (b *DynamoBackend) UpdateModule(ctx context.Context, id int64, patch ModulePatch) (*Module, error) {
	defer b.observe("update", FamilyModules, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyModules, id, (*moduleItem).entity, patch.apply,
		func(m *Module) interface{} { return moduleItem{*m} })
}

func (b *DynamoBackend) DeleteModule(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyModules, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyModules, id)
}

// Lessons

func (b *DynamoBackend) GetLesson(ctx context.Context, id int64) (*Lesson, error) {
	defer b.observe("get", FamilyLessons, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyLessons, id, (*lessonItem).entity)
}

func (b *DynamoBackend) ListLessons(ctx context.Context, filter LessonFilter) ([]*Lesson, error) {
	defer b.observe("list", FamilyLessons, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyLessons, filter.conditions(), (*lessonItem).entity)
}

func (b *DynamoBackend) GetModuleLessons(ctx context.Context, moduleID int64) ([]*Lesson, error) {
	lessons, err := b.ListLessons(ctx, LessonFilter{ModuleID: &moduleID})
	if err != nil {
		return nil, err
	}
	sortByOrder(lessons)
	return lessons, nil
}

// CreateLesson stores the lesson, then increments the owning course's
// lessonsCount. The increment is best effort: a missing module or course is
// skipped and any other failure is logged, never returned.
func (b *DynamoBackend) CreateLesson(ctx context.Context, input *CreateLessonInput) (*Lesson, error) {
	if input == nil {
		return nil, invalidInput(FamilyLessons, "nil input")
	}
	defer b.observe("create", FamilyLessons, time.Now())
	b.ensure(ctx)
	l, err := createEntity(ctx, b, FamilyLessons, input.build,
		func(l *Lesson) interface{} { return lessonItem{*l} })
	if err != nil {
		return nil, err
	}

	if err := b.countLesson(ctx, l.ModuleID); err != nil {
		b.logger.Warn("lesson count not updated",
			"lesson_id", l.ID,
			"module_id", l.ModuleID,
			"error", err,
		)
	}
	return l, nil
}

func (b *DynamoBackend) countLesson(ctx context.Context, moduleID int64) error {
	m, err := getItem[moduleItem](ctx, b, FamilyModules, moduleID)
	if IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}

	update := expression.Add(expression.Name("lessonsCount"), expression.Value(1))
	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return err
	}

	_, err = b.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(b.table(FamilyCourses)),
		Key:                       idKey(m.CourseID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return nil
	}
	return err
}

func (b *DynamoBackend) UpdateLesson(ctx context.Context, id int64, patch LessonPatch) (*Lesson, error) {
	defer b.observe("update", FamilyLessons, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyLessons, id, (*lessonItem).entity, patch.apply,
		func(l *Lesson) interface{} { return lessonItem{*l} })
}

func (b *DynamoBackend) DeleteLesson(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyLessons, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyLessons, id)
}

// Instructors

func (b *DynamoBackend) GetInstructor(ctx context.Context, id int64) (*Instructor, error) {
	defer b.observe("get", FamilyInstructors, time.Now())
	b.ensure(ctx)
	return getEntity(ctx, b, FamilyInstructors, id, (*instructorItem).entity)
}

func (b *DynamoBackend) ListInstructors(ctx context.Context, filter InstructorFilter) ([]*Instructor, error) {
	defer b.observe("list", FamilyInstructors, time.Now())
	b.ensure(ctx)
	return listEntities(ctx, b, FamilyInstructors, filter.conditions(), (*instructorItem).entity)
}

func (b *DynamoBackend) GetSchoolInstructors(ctx context.Context, schoolID int64) ([]*Instructor, error) {
	return b.ListInstructors(ctx, InstructorFilter{SchoolID: &schoolID})
}

func (b *DynamoBackend) CreateInstructor(ctx context.Context, input *CreateInstructorInput) (*Instructor, error) {
	if input == nil {
		return nil, invalidInput(FamilyInstructors, "nil input")
	}
	defer b.observe("create", FamilyInstructors, time.Now())
	b.ensure(ctx)
	return createEntity(ctx, b, FamilyInstructors, input.build,
		func(i *Instructor) interface{} { return instructorItem{*i} })
}

func (b *DynamoBackend) UpdateInstructor(ctx context.Context, id int64, patch InstructorPatch) (*Instructor, error) {
	defer b.observe("update", FamilyInstructors, time.Now())
	b.ensure(ctx)
	return updateEntity(ctx, b, FamilyInstructors, id, (*instructorItem).entity, patch.apply,
		func(i *Instructor) interface{} { return instructorItem{*i} })
}

func (b *DynamoBackend) DeleteInstructor(ctx context.Context, id int64) (bool, error) {
	defer b.observe("delete", FamilyInstructors, time.Now())
	b.ensure(ctx)
	return b.remove(ctx, FamilyInstructors, id)
}
