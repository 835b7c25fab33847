package launchbase

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed seed_data.yaml
var seedYAML []byte

// seedDataset mirrors seed_data.yaml. Reference fields (schoolId, courseId,
// createdBy, ...) hold 1-based positions in the referenced list, not ids.
type seedDataset struct {
	Users        []CreateUserInput        `yaml:"users"`
	Schools      []CreateSchoolInput      `yaml:"schools"`
	Instructors  []CreateInstructorInput  `yaml:"instructors"`
	Courses      []CreateCourseInput      `yaml:"courses"`
	Modules      []CreateModuleInput      `yaml:"modules"`
	Lessons      []CreateLessonInput      `yaml:"lessons"`
	Projects     []CreateProjectInput     `yaml:"projects"`
	Roles        []CreateRoleInput        `yaml:"roles"`
	TeamMembers  []CreateTeamMemberInput  `yaml:"teamMembers"`
	Applications []CreateApplicationInput `yaml:"applications"`
}

// SeedReport counts created records per family.
type SeedReport map[Family]int

// Total returns the number of records created.
func (r SeedReport) Total() int {
	n := 0
	for _, c := range r {
		n += c
	}
	return n
}

func loadSeedDataset() (*seedDataset, error) {
	var ds seedDataset
	if err := yaml.Unmarshal(seedYAML, &ds); err != nil {
		return nil, WithContext(ErrInvalidData, map[string]interface{}{
			"source": "seed_data.yaml",
			"error":  err.Error(),
		})
	}
	return &ds, nil
}

// seedRefs maps 1-based dataset positions to the ids the backend assigned.
type seedRefs []int64

func (r seedRefs) resolve(f Family, pos int64) (int64, error) {
	if pos < 1 || int(pos) > len(r) {
		return 0, WithContext(ErrInvalidData, map[string]interface{}{
			"entity":   string(f),
			"position": pos,
			"reason":   "seed reference out of range",
		})
	}
	return r[pos-1], nil
}

func (r seedRefs) resolveOptional(f Family, pos *int64) (*int64, error) {
	if pos == nil {
		return nil, nil
	}
	id, err := r.resolve(f, *pos)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// SeedDemoData writes the embedded demonstration dataset through the Storage
// contract, so backend side effects such as lesson counting apply.
func SeedDemoData(ctx context.Context, s Storage) (SeedReport, error) {
	ds, err := loadSeedDataset()
	if err != nil {
		return nil, err
	}

	report := make(SeedReport)
	var users, schools, instructors, courses, modules, projects, roles seedRefs

	for i := range ds.Users {
		u, err := s.CreateUser(ctx, &ds.Users[i])
		if err != nil {
			return report, fmt.Errorf("seed user %q: %w", ds.Users[i].Username, err)
		}
		users = append(users, u.ID)
	}
	report[FamilyUsers] = len(users)

	for i := range ds.Schools {
		sc, err := s.CreateSchool(ctx, &ds.Schools[i])
		if err != nil {
			return report, fmt.Errorf("seed school %q: %w", ds.Schools[i].Name, err)
		}
		schools = append(schools, sc.ID)
	}
	report[FamilySchools] = len(schools)

	for i := range ds.Instructors {
		in := ds.Instructors[i]
		if in.SchoolID, err = schools.resolveOptional(FamilySchools, in.SchoolID); err != nil {
			return report, err
		}
		if in.UserID, err = users.resolveOptional(FamilyUsers, in.UserID); err != nil {
			return report, err
		}
		created, err := s.CreateInstructor(ctx, &in)
		if err != nil {
			return report, fmt.Errorf("seed instructor %q: %w", in.Name, err)
		}
		instructors = append(instructors, created.ID)
	}
	report[FamilyInstructors] = len(instructors)

	for i := range ds.Courses {
		in := ds.Courses[i]
		if in.SchoolID, err = schools.resolve(FamilySchools, in.SchoolID); err != nil {
			return report, err
		}
		if in.InstructorID, err = instructors.resolve(FamilyInstructors, in.InstructorID); err != nil {
			return report, err
		}
		created, err := s.CreateCourse(ctx, &in)
		if err != nil {
			return report, fmt.Errorf("seed course %q: %w", in.Title, err)
		}
		courses = append(courses, created.ID)
	}
	report[FamilyCourses] = len(courses)

	for i := range ds.Modules {
		in := ds.Modules[i]
		if in.CourseID, err = courses.resolve(FamilyCourses, in.CourseID); err != nil {
			return report, err
		}
		created, err := s.CreateModule(ctx, &in)
		if err != nil {
			return report, fmt.Errorf("seed module %q: %w", in.Title, err)
		}
		modules = append(modules, created.ID)
	}
	report[FamilyModules] = len(modules)

	for i := range ds.Lessons {
		in := ds.Lessons[i]
		if in.ModuleID, err = modules.resolve(FamilyModules, in.ModuleID); err != nil {
			return report, err
		}
		if _, err := s.CreateLesson(ctx, &in); err != nil {
			return report, fmt.Errorf("seed lesson %q: %w", in.Title, err)
		}
		report[FamilyLessons]++
	}

	for i := range ds.Projects {
		in := ds.Projects[i]
		if in.CreatedBy, err = users.resolve(FamilyUsers, in.CreatedBy); err != nil {
			return report, err
		}
		created, err := s.CreateProject(ctx, &in)
		if err != nil {
			return report, fmt.Errorf("seed project %q: %w", in.Name, err)
		}
		projects = append(projects, created.ID)
	}
	report[FamilyProjects] = len(projects)

	for i := range ds.Roles {
		in := ds.Roles[i]
		if in.ProjectID, err = projects.resolve(FamilyProjects, in.ProjectID); err != nil {
			return report, err
		}
		created, err := s.CreateRole(ctx, &in)
		if err != nil {
			return report, fmt.Errorf("seed role %q: %w", in.Title, err)
		}
		roles = append(roles, created.ID)
	}
	report[FamilyRoles] = len(roles)

	for i := range ds.TeamMembers {
		in := ds.TeamMembers[i]
		if in.ProjectID, err = projects.resolve(FamilyProjects, in.ProjectID); err != nil {
			return report, err
		}
		if in.UserID, err = users.resolve(FamilyUsers, in.UserID); err != nil {
			return report, err
		}
		if in.RoleID, err = roles.resolveOptional(FamilyRoles, in.RoleID); err != nil {
			return report, err
		}
		if _, err := s.CreateTeamMember(ctx, &in); err != nil {
			return report, fmt.Errorf("seed team member: %w", err)
		}
		report[FamilyTeamMembers]++
	}

	for i := range ds.Applications {
		in := ds.Applications[i]
		if in.ProjectID, err = projects.resolve(FamilyProjects, in.ProjectID); err != nil {
			return report, err
		}
		if in.UserID, err = users.resolve(FamilyUsers, in.UserID); err != nil {
			return report, err
		}
		if _, err := s.CreateApplication(ctx, &in); err != nil {
			return report, fmt.Errorf("seed application: %w", err)
		}
		report[FamilyApplications]++
	}

	return report, nil
}
