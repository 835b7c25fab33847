package launchbase

import (
	"strconv"
	"time"
)

// Item types are the stored shape of each entity. They embed the entity and
// add the attributes DynamoDB needs but callers never see: timestamps as
// RFC 3339 strings, and the indexed copy of the featured flag.

// featuredIndexAttr holds "true" or "false". GSI keys must be S, N or B, so
// the native BOOL cannot be indexed directly.
const featuredIndexAttr = "featuredIndex"

func formatIndexedBool(v bool) string {
	return strconv.FormatBool(v)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(f Family, attr, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, WithContext(ErrInvalidData, map[string]interface{}{
			"entity":    string(f),
			"attribute": attr,
			"value":     s,
		})
	}
	return t.UTC(), nil
}

type userItem struct {
	User
	Password  string `dynamodbav:"password"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func newUserItem(u *User, password string) userItem {
	return userItem{User: *u, Password: password, CreatedAt: formatTime(u.CreatedAt)}
}

func (i *userItem) entity() (*User, error) {
	u := i.User.clone()
	var err error
	if u.CreatedAt, err = parseTime(FamilyUsers, "createdAt", i.CreatedAt); err != nil {
		return nil, err
	}
	return u, nil
}

type projectItem struct {
	Project
	FeaturedIndex string `dynamodbav:"featuredIndex"`
	CreatedAt     string `dynamodbav:"createdAt"`
}

func newProjectItem(p *Project) projectItem {
	return projectItem{
		Project:       *p,
		FeaturedIndex: formatIndexedBool(p.Featured),
		CreatedAt:     formatTime(p.CreatedAt),
	}
}

func (i *projectItem) entity() (*Project, error) {
	p := i.Project.clone()
	var err error
	if p.CreatedAt, err = parseTime(FamilyProjects, "createdAt", i.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

type roleItem struct {
	Role
}

func (i *roleItem) entity() (*Role, error) {
	return i.Role.clone(), nil
}

type teamMemberItem struct {
	TeamMember
	JoinedAt string `dynamodbav:"joinedAt"`
}

func newTeamMemberItem(m *TeamMember) teamMemberItem {
	return teamMemberItem{TeamMember: *m, JoinedAt: formatTime(m.JoinedAt)}
}

func (i *teamMemberItem) entity() (*TeamMember, error) {
	m := i.TeamMember.clone()
	var err error
	if m.JoinedAt, err = parseTime(FamilyTeamMembers, "joinedAt", i.JoinedAt); err != nil {
		return nil, err
	}
	return m, nil
}

type applicationItem struct {
	Application
	CreatedAt string `dynamodbav:"createdAt"`
}

func newApplicationItem(a *Application) applicationItem {
	return applicationItem{Application: *a, CreatedAt: formatTime(a.CreatedAt)}
}

func (i *applicationItem) entity() (*Application, error) {
	a := i.Application.clone()
	var err error
	if a.CreatedAt, err = parseTime(FamilyApplications, "createdAt", i.CreatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

type schoolItem struct {
	School
	FeaturedIndex string `dynamodbav:"featuredIndex"`
}

func newSchoolItem(s *School) schoolItem {
	return schoolItem{School: *s, FeaturedIndex: formatIndexedBool(s.Featured)}
}

func (i *schoolItem) entity() (*School, error) {
	return i.School.clone(), nil
}

type courseItem struct {
	Course
	FeaturedIndex string `dynamodbav:"featuredIndex"`
	CreatedAt     string `dynamodbav:"createdAt"`
	UpdatedAt     string `dynamodbav:"updatedAt"`
}

func newCourseItem(c *Course) courseItem {
	return courseItem{
		Course:        *c,
		FeaturedIndex: formatIndexedBool(c.Featured),
		CreatedAt:     formatTime(c.CreatedAt),
		UpdatedAt:     formatTime(c.UpdatedAt),
	}
}

func (i *courseItem) entity() (*Course, error) {
	c := i.Course.clone()
	var err error
	if c.CreatedAt, err = parseTime(FamilyCourses, "createdAt", i.CreatedAt); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(FamilyCourses, "updatedAt", i.UpdatedAt); err != nil {
		return nil, err
	}
	return c, nil
}

type moduleItem struct {
	Module
}

func (i *moduleItem) entity() (*Module, error) {
	return i.Module.clone(), nil
}

type lessonItem struct {
	Lesson
}

func (i *lessonItem) entity() (*Lesson, error) {
	return i.Lesson.clone(), nil
}

type instructorItem struct {
	Instructor
}

func (i *instructorItem) entity() (*Instructor, error) {
	return i.Instructor.clone(), nil
}
