package launchbase

import "time"

// SocialLinks are optional profile links shared by schools and instructors.
type SocialLinks struct {
	Website  *string `json:"website,omitempty" yaml:"website" dynamodbav:"website,omitempty"`
	Twitter  *string `json:"twitter,omitempty" yaml:"twitter" dynamodbav:"twitter,omitempty"`
	LinkedIn *string `json:"linkedin,omitempty" yaml:"linkedin" dynamodbav:"linkedin,omitempty"`
	GitHub   *string `json:"github,omitempty" yaml:"github" dynamodbav:"github,omitempty"`
	YouTube  *string `json:"youtube,omitempty" yaml:"youtube" dynamodbav:"youtube,omitempty"`
}

func (s *SocialLinks) clone() *SocialLinks {
	if s == nil {
		return nil
	}
	return &SocialLinks{
		Website:  clonePtr(s.Website),
		Twitter:  clonePtr(s.Twitter),
		LinkedIn: clonePtr(s.LinkedIn),
		GitHub:   clonePtr(s.GitHub),
		YouTube:  clonePtr(s.YouTube),
	}
}

// User is a platform account. The password is never part of this type.
type User struct {
	ID        int64     `json:"id" dynamodbav:"id"`
	Username  string    `json:"username" dynamodbav:"username"`
	Email     string    `json:"email" dynamodbav:"email"`
	Avatar    *string   `json:"avatar,omitempty" dynamodbav:"avatar,omitempty"`
	Bio       *string   `json:"bio,omitempty" dynamodbav:"bio,omitempty"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"-"`
}

type CreateUserInput struct {
	Username string  `json:"username" yaml:"username"`
	Password string  `json:"password" yaml:"password"`
	Email    string  `json:"email" yaml:"email"`
	Avatar   *string `json:"avatar,omitempty" yaml:"avatar"`
	Bio      *string `json:"bio,omitempty" yaml:"bio"`
}

func (in *CreateUserInput) build(id int64, now time.Time) *User {
	return &User{
		ID:        id,
		Username:  in.Username,
		Email:     in.Email,
		Avatar:    clonePtr(in.Avatar),
		Bio:       clonePtr(in.Bio),
		CreatedAt: now,
	}
}

// UserPatch updates profile fields. Password replaces the stored credential.
type UserPatch struct {
	Email    *string `json:"email,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (p UserPatch) apply(u *User) bool {
	changed := set(&u.Email, p.Email)
	changed = setOptional(&u.Avatar, p.Avatar) || changed
	changed = setOptional(&u.Bio, p.Bio) || changed
	return changed || p.Password != nil
}

func (u *User) clone() *User {
	c := *u
	c.Avatar = clonePtr(u.Avatar)
	c.Bio = clonePtr(u.Bio)
	return &c
}

// Project is a startup idea looking for a team.
type Project struct {
	ID          int64     `json:"id" dynamodbav:"id"`
	Name        string    `json:"name" dynamodbav:"name"`
	Description string    `json:"description" dynamodbav:"description"`
	Category    string    `json:"category" dynamodbav:"category"`
	Stage       string    `json:"stage" dynamodbav:"stage"`
	TeamSize    int       `json:"teamSize" dynamodbav:"teamSize"`
	MaxTeamSize int       `json:"maxTeamSize" dynamodbav:"maxTeamSize"`
	Website     *string   `json:"website,omitempty" dynamodbav:"website,omitempty"`
	Problem     *string   `json:"problem,omitempty" dynamodbav:"problem,omitempty"`
	Market      *string   `json:"market,omitempty" dynamodbav:"market,omitempty"`
	Competition *string   `json:"competition,omitempty" dynamodbav:"competition,omitempty"`
	Featured    bool      `json:"featured" dynamodbav:"featured"`
	CreatedBy   int64     `json:"createdBy" dynamodbav:"createdBy"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"-"`
}

type CreateProjectInput struct {
	Name        string  `json:"name" yaml:"name"`
	Description string  `json:"description" yaml:"description"`
	Category    string  `json:"category" yaml:"category"`
	Stage       string  `json:"stage" yaml:"stage"`
	TeamSize    int     `json:"teamSize" yaml:"teamSize"`
	MaxTeamSize int     `json:"maxTeamSize" yaml:"maxTeamSize"`
	Website     *string `json:"website,omitempty" yaml:"website"`
	Problem     *string `json:"problem,omitempty" yaml:"problem"`
	Market      *string `json:"market,omitempty" yaml:"market"`
	Competition *string `json:"competition,omitempty" yaml:"competition"`
	Featured    bool    `json:"featured" yaml:"featured"`
	CreatedBy   int64   `json:"createdBy" yaml:"createdBy"`
}

func (in *CreateProjectInput) build(id int64, now time.Time) *Project {
	return &Project{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Stage:       in.Stage,
		TeamSize:    in.TeamSize,
		MaxTeamSize: in.MaxTeamSize,
		Website:     clonePtr(in.Website),
		Problem:     clonePtr(in.Problem),
		Market:      clonePtr(in.Market),
		Competition: clonePtr(in.Competition),
		Featured:    in.Featured,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
}

type ProjectPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Stage       *string `json:"stage,omitempty"`
	TeamSize    *int    `json:"teamSize,omitempty"`
	MaxTeamSize *int    `json:"maxTeamSize,omitempty"`
	Website     *string `json:"website,omitempty"`
	Problem     *string `json:"problem,omitempty"`
	Market      *string `json:"market,omitempty"`
	Competition *string `json:"competition,omitempty"`
	Featured    *bool   `json:"featured,omitempty"`
}

func (p ProjectPatch) apply(x *Project) bool {
	changed := set(&x.Name, p.Name)
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.Category, p.Category) || changed
	changed = set(&x.Stage, p.Stage) || changed
	changed = set(&x.TeamSize, p.TeamSize) || changed
	changed = set(&x.MaxTeamSize, p.MaxTeamSize) || changed
	changed = setOptional(&x.Website, p.Website) || changed
	changed = setOptional(&x.Problem, p.Problem) || changed
	changed = setOptional(&x.Market, p.Market) || changed
	changed = setOptional(&x.Competition, p.Competition) || changed
	changed = set(&x.Featured, p.Featured) || changed
	return changed
}

func (x *Project) clone() *Project {
	c := *x
	c.Website = clonePtr(x.Website)
	c.Problem = clonePtr(x.Problem)
	c.Market = clonePtr(x.Market)
	c.Competition = clonePtr(x.Competition)
	return &c
}

// Role is an opening on a project team.
type Role struct {
	ID          int64  `json:"id" dynamodbav:"id"`
	ProjectID   int64  `json:"projectId" dynamodbav:"projectId"`
	Title       string `json:"title" dynamodbav:"title"`
	Description string `json:"description" dynamodbav:"description"`
	IsOpen      bool   `json:"isOpen" dynamodbav:"isOpen"`
}

type CreateRoleInput struct {
	ProjectID   int64  `json:"projectId" yaml:"projectId"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	IsOpen      bool   `json:"isOpen" yaml:"isOpen"`
}

func (in *CreateRoleInput) build(id int64) *Role {
	return &Role{
		ID:          id,
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: in.Description,
		IsOpen:      in.IsOpen,
	}
}

type RolePatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsOpen      *bool   `json:"isOpen,omitempty"`
}

func (p RolePatch) apply(x *Role) bool {
	changed := set(&x.Title, p.Title)
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.IsOpen, p.IsOpen) || changed
	return changed
}

func (x *Role) clone() *Role {
	c := *x
	return &c
}

// TeamMember links a user to a project, optionally through a role.
type TeamMember struct {
	ID        int64     `json:"id" dynamodbav:"id"`
	ProjectID int64     `json:"projectId" dynamodbav:"projectId"`
	UserID    int64     `json:"userId" dynamodbav:"userId"`
	RoleID    *int64    `json:"roleId,omitempty" dynamodbav:"roleId,omitempty"`
	IsFounder bool      `json:"isFounder" dynamodbav:"isFounder"`
	JoinedAt  time.Time `json:"joinedAt" dynamodbav:"-"`
}

type CreateTeamMemberInput struct {
	ProjectID int64  `json:"projectId" yaml:"projectId"`
	UserID    int64  `json:"userId" yaml:"userId"`
	RoleID    *int64 `json:"roleId,omitempty" yaml:"roleId"`
	IsFounder bool   `json:"isFounder" yaml:"isFounder"`
}

func (in *CreateTeamMemberInput) build(id int64, now time.Time) *TeamMember {
	return &TeamMember{
		ID:        id,
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		RoleID:    clonePtr(in.RoleID),
		IsFounder: in.IsFounder,
		JoinedAt:  now,
	}
}

// TeamMemberPatch moves a member between roles. ClearRole drops the role link.
type TeamMemberPatch struct {
	RoleID    *int64 `json:"roleId,omitempty"`
	ClearRole bool   `json:"clearRole,omitempty"`
	IsFounder *bool  `json:"isFounder,omitempty"`
}

func (p TeamMemberPatch) apply(x *TeamMember) bool {
	changed := setOptional(&x.RoleID, p.RoleID)
	if p.ClearRole && p.RoleID == nil {
		x.RoleID = nil
		changed = true
	}
	changed = set(&x.IsFounder, p.IsFounder) || changed
	return changed
}

func (x *TeamMember) clone() *TeamMember {
	c := *x
	c.RoleID = clonePtr(x.RoleID)
	return &c
}

// ApplicationStatusPending is the status of a newly submitted application.
const ApplicationStatusPending = "pending"

// Application is a user's request to join a project.
type Application struct {
	ID        int64     `json:"id" dynamodbav:"id"`
	ProjectID int64     `json:"projectId" dynamodbav:"projectId"`
	UserID    int64     `json:"userId" dynamodbav:"userId"`
	Message   string    `json:"message" dynamodbav:"message"`
	Status    string    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"-"`
}

type CreateApplicationInput struct {
	ProjectID int64  `json:"projectId" yaml:"projectId"`
	UserID    int64  `json:"userId" yaml:"userId"`
	Message   string `json:"message" yaml:"message"`
	Status    string `json:"status,omitempty" yaml:"status"`
}

func (in *CreateApplicationInput) build(id int64, now time.Time) *Application {
	status := in.Status
	if status == "" {
		status = ApplicationStatusPending
	}
	return &Application{
		ID:        id,
		ProjectID: in.ProjectID,
		UserID:    in.UserID,
		Message:   in.Message,
		Status:    status,
		CreatedAt: now,
	}
}

func (x *Application) clone() *Application {
	c := *x
	return &c
}

// School groups courses and instructors.
type School struct {
	ID              int64        `json:"id" dynamodbav:"id"`
	Name            string       `json:"name" dynamodbav:"name"`
	Description     string       `json:"description" dynamodbav:"description"`
	Category        string       `json:"category" dynamodbav:"category"`
	Categories      []string     `json:"categories" dynamodbav:"categories"`
	Image           string       `json:"image" dynamodbav:"image"`
	Logo            *string      `json:"logo,omitempty" dynamodbav:"logo,omitempty"`
	Banner          *string      `json:"banner,omitempty" dynamodbav:"banner,omitempty"`
	FoundedYear     int          `json:"foundedYear" dynamodbav:"foundedYear"`
	Location        string       `json:"location" dynamodbav:"location"`
	Featured        bool         `json:"featured" dynamodbav:"featured"`
	CourseCount     int          `json:"courseCount" dynamodbav:"courseCount"`
	InstructorCount int          `json:"instructorCount" dynamodbav:"instructorCount"`
	StudentCount    int          `json:"studentCount" dynamodbav:"studentCount"`
	Rating          float64      `json:"rating" dynamodbav:"rating"`
	Social          *SocialLinks `json:"social,omitempty" dynamodbav:"social,omitempty"`
}

type CreateSchoolInput struct {
	Name            string       `json:"name" yaml:"name"`
	Description     string       `json:"description" yaml:"description"`
	Category        string       `json:"category" yaml:"category"`
	Categories      []string     `json:"categories" yaml:"categories"`
	Image           string       `json:"image" yaml:"image"`
	Logo            *string      `json:"logo,omitempty" yaml:"logo"`
	Banner          *string      `json:"banner,omitempty" yaml:"banner"`
	FoundedYear     int          `json:"foundedYear" yaml:"foundedYear"`
	Location        string       `json:"location" yaml:"location"`
	Featured        bool         `json:"featured" yaml:"featured"`
	CourseCount     int          `json:"courseCount" yaml:"courseCount"`
	InstructorCount int          `json:"instructorCount" yaml:"instructorCount"`
	StudentCount    int          `json:"studentCount" yaml:"studentCount"`
	Rating          float64      `json:"rating" yaml:"rating"`
	Social          *SocialLinks `json:"social,omitempty" yaml:"social"`
}

func (in *CreateSchoolInput) build(id int64) *School {
	return &School{
		ID:              id,
		Name:            in.Name,
		Description:     in.Description,
		Category:        in.Category,
		Categories:      cloneStrings(in.Categories),
		Image:           in.Image,
		Logo:            clonePtr(in.Logo),
		Banner:          clonePtr(in.Banner),
		FoundedYear:     in.FoundedYear,
		Location:        in.Location,
		Featured:        in.Featured,
		CourseCount:     in.CourseCount,
		InstructorCount: in.InstructorCount,
		StudentCount:    in.StudentCount,
		Rating:          in.Rating,
		Social:          in.Social.clone(),
	}
}

type SchoolPatch struct {
	Name            *string      `json:"name,omitempty"`
	Description     *string      `json:"description,omitempty"`
	Category        *string      `json:"category,omitempty"`
	Categories      []string     `json:"categories,omitempty"`
	Image           *string      `json:"image,omitempty"`
	Logo            *string      `json:"logo,omitempty"`
	Banner          *string      `json:"banner,omitempty"`
	FoundedYear     *int         `json:"foundedYear,omitempty"`
	Location        *string      `json:"location,omitempty"`
	Featured        *bool        `json:"featured,omitempty"`
	CourseCount     *int         `json:"courseCount,omitempty"`
	InstructorCount *int         `json:"instructorCount,omitempty"`
	StudentCount    *int         `json:"studentCount,omitempty"`
	Rating          *float64     `json:"rating,omitempty"`
	Social          *SocialLinks `json:"social,omitempty"`
}

func (p SchoolPatch) apply(x *School) bool {
	changed := set(&x.Name, p.Name)
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.Category, p.Category) || changed
	changed = setStrings(&x.Categories, p.Categories) || changed
	changed = set(&x.Image, p.Image) || changed
	changed = setOptional(&x.Logo, p.Logo) || changed
	changed = setOptional(&x.Banner, p.Banner) || changed
	changed = set(&x.FoundedYear, p.FoundedYear) || changed
	changed = set(&x.Location, p.Location) || changed
	changed = set(&x.Featured, p.Featured) || changed
	changed = set(&x.CourseCount, p.CourseCount) || changed
	changed = set(&x.InstructorCount, p.InstructorCount) || changed
	changed = set(&x.StudentCount, p.StudentCount) || changed
	changed = set(&x.Rating, p.Rating) || changed
	if p.Social != nil {
		x.Social = p.Social.clone()
		changed = true
	}
	return changed
}

func (x *School) clone() *School {
	c := *x
	c.Categories = cloneStrings(x.Categories)
	c.Logo = clonePtr(x.Logo)
	c.Banner = clonePtr(x.Banner)
	c.Social = x.Social.clone()
	return &c
}

// DefaultCourseLanguage is applied when a course is created without a language.
const DefaultCourseLanguage = "English"

// Course belongs to a school and is taught by an instructor.
type Course struct {
	ID            int64     `json:"id" dynamodbav:"id"`
	Title         string    `json:"title" dynamodbav:"title"`
	Description   string    `json:"description" dynamodbav:"description"`
	SchoolID      int64     `json:"schoolId" dynamodbav:"schoolId"`
	InstructorID  int64     `json:"instructorId" dynamodbav:"instructorId"`
	Level         string    `json:"level" dynamodbav:"level"`
	Category      string    `json:"category" dynamodbav:"category"`
	Tags          []string  `json:"tags" dynamodbav:"tags"`
	Price         float64   `json:"price" dynamodbav:"price"`
	DiscountPrice *float64  `json:"discountPrice,omitempty" dynamodbav:"discountPrice,omitempty"`
	Featured      bool      `json:"featured" dynamodbav:"featured"`
	Popular       bool      `json:"popular" dynamodbav:"popular"`
	IsNew         bool      `json:"isNew" dynamodbav:"isNew"`
	Certificate   bool      `json:"certificate" dynamodbav:"certificate"`
	Language      string    `json:"language" dynamodbav:"language"`
	Rating        float64   `json:"rating" dynamodbav:"rating"`
	RatingCount   int       `json:"ratingCount" dynamodbav:"ratingCount"`
	EnrolledCount int       `json:"enrolledCount" dynamodbav:"enrolledCount"`
	LessonsCount  int       `json:"lessonsCount" dynamodbav:"lessonsCount"`
	CreatedAt     time.Time `json:"createdAt" dynamodbav:"-"`
	UpdatedAt     time.Time `json:"updatedAt" dynamodbav:"-"`
}

type CreateCourseInput struct {
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	SchoolID      int64    `json:"schoolId" yaml:"schoolId"`
	InstructorID  int64    `json:"instructorId" yaml:"instructorId"`
	Level         string   `json:"level" yaml:"level"`
	Category      string   `json:"category" yaml:"category"`
	Tags          []string `json:"tags" yaml:"tags"`
	Price         float64  `json:"price" yaml:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" yaml:"discountPrice"`
	Featured      bool     `json:"featured" yaml:"featured"`
	Popular       bool     `json:"popular" yaml:"popular"`
	IsNew         bool     `json:"isNew" yaml:"isNew"`
	Certificate   bool     `json:"certificate" yaml:"certificate"`
	Language      string   `json:"language,omitempty" yaml:"language"`
	Rating        float64  `json:"rating" yaml:"rating"`
	RatingCount   int      `json:"ratingCount" yaml:"ratingCount"`
	EnrolledCount int      `json:"enrolledCount" yaml:"enrolledCount"`
	LessonsCount  int      `json:"lessonsCount" yaml:"lessonsCount"`
}

func (in *CreateCourseInput) build(id int64, now time.Time) *Course {
	language := in.Language
	if language == "" {
		language = DefaultCourseLanguage
	}
	return &Course{
		ID:            id,
		Title:         in.Title,
		Description:   in.Description,
		SchoolID:      in.SchoolID,
		InstructorID:  in.InstructorID,
		Level:         in.Level,
		Category:      in.Category,
		Tags:          cloneStrings(in.Tags),
		Price:         in.Price,
		DiscountPrice: clonePtr(in.DiscountPrice),
		Featured:      in.Featured,
		Popular:       in.Popular,
		IsNew:         in.IsNew,
		Certificate:   in.Certificate,
		Language:      language,
		Rating:        in.Rating,
		RatingCount:   in.RatingCount,
		EnrolledCount: in.EnrolledCount,
		LessonsCount:  in.LessonsCount,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

type CoursePatch struct {
	Title         *string  `json:"title,omitempty"`
	Description   *string  `json:"description,omitempty"`
	SchoolID      *int64   `json:"schoolId,omitempty"`
	InstructorID  *int64   `json:"instructorId,omitempty"`
	Level         *string  `json:"level,omitempty"`
	Category      *string  `json:"category,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	DiscountPrice *float64 `json:"discountPrice,omitempty"`
	Featured      *bool    `json:"featured,omitempty"`
	Popular       *bool    `json:"popular,omitempty"`
	IsNew         *bool    `json:"isNew,omitempty"`
	Certificate   *bool    `json:"certificate,omitempty"`
	Language      *string  `json:"language,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	RatingCount   *int     `json:"ratingCount,omitempty"`
	EnrolledCount *int     `json:"enrolledCount,omitempty"`
	LessonsCount  *int     `json:"lessonsCount,omitempty"`
}

// apply stamps UpdatedAt only when something was set.
func (p CoursePatch) apply(x *Course, now time.Time) bool {
	changed := set(&x.Title, p.Title)
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.SchoolID, p.SchoolID) || changed
	changed = set(&x.InstructorID, p.InstructorID) || changed
	changed = set(&x.Level, p.Level) || changed
	changed = set(&x.Category, p.Category) || changed
	changed = setStrings(&x.Tags, p.Tags) || changed
	changed = set(&x.Price, p.Price) || changed
	changed = setOptional(&x.DiscountPrice, p.DiscountPrice) || changed
	changed = set(&x.Featured, p.Featured) || changed
	changed = set(&x.Popular, p.Popular) || changed
	changed = set(&x.IsNew, p.IsNew) || changed
	changed = set(&x.Certificate, p.Certificate) || changed
	changed = set(&x.Language, p.Language) || changed
	changed = set(&x.Rating, p.Rating) || changed
	changed = set(&x.RatingCount, p.RatingCount) || changed
	changed = set(&x.EnrolledCount, p.EnrolledCount) || changed
	changed = set(&x.LessonsCount, p.LessonsCount) || changed
	if changed {
		x.UpdatedAt = now
	}
	return changed
}

func (x *Course) clone() *Course {
	c := *x
	c.Tags = cloneStrings(x.Tags)
	c.DiscountPrice = clonePtr(x.DiscountPrice)
	return &c
}

// Module is an ordered section of a course.
type Module struct {
	ID          int64  `json:"id" dynamodbav:"id"`
	CourseID    int64  `json:"courseId" dynamodbav:"courseId"`
	Title       string `json:"title" dynamodbav:"title"`
	Description string `json:"description" dynamodbav:"description"`
	Order       int    `json:"order" dynamodbav:"order"`
}

type CreateModuleInput struct {
	CourseID    int64  `json:"courseId" yaml:"courseId"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Order       int    `json:"order" yaml:"order"`
}

func (in *CreateModuleInput) build(id int64) *Module {
	return &Module{
		ID:          id,
		CourseID:    in.CourseID,
		Title:       in.Title,
		Description: in.Description,
		Order:       in.Order,
	}
}

type ModulePatch struct {
	CourseID    *int64  `json:"courseId,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

func (p ModulePatch) apply(x *Module) bool {
	changed := set(&x.CourseID, p.CourseID)
	changed = set(&x.Title, p.Title) || changed
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.Order, p.Order) || changed
	return changed
}

func (x *Module) clone() *Module {
	c := *x
	return &c
}

// LessonType is the presentation format of a lesson.
type LessonType string

const (
	LessonVideo   LessonType = "video"
	LessonArticle LessonType = "article"
	LessonQuiz    LessonType = "quiz"
	LessonProject LessonType = "project"
)

// Lesson is an ordered unit inside a module.
type Lesson struct {
	ID          int64      `json:"id" dynamodbav:"id"`
	ModuleID    int64      `json:"moduleId" dynamodbav:"moduleId"`
	Title       string     `json:"title" dynamodbav:"title"`
	Description string     `json:"description" dynamodbav:"description"`
	Order       int        `json:"order" dynamodbav:"order"`
	Duration    int        `json:"duration" dynamodbav:"duration"`
	Type        LessonType `json:"type" dynamodbav:"type"`
	Content     *string    `json:"content,omitempty" dynamodbav:"content,omitempty"`
	VideoURL    *string    `json:"videoUrl,omitempty" dynamodbav:"videoUrl,omitempty"`
	Attachments []string   `json:"attachments" dynamodbav:"attachments"`
	Preview     bool       `json:"preview" dynamodbav:"preview"`
}

type CreateLessonInput struct {
	ModuleID    int64      `json:"moduleId" yaml:"moduleId"`
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Order       int        `json:"order" yaml:"order"`
	Duration    int        `json:"duration" yaml:"duration"`
	Type        LessonType `json:"type,omitempty" yaml:"type"`
	Content     *string    `json:"content,omitempty" yaml:"content"`
	VideoURL    *string    `json:"videoUrl,omitempty" yaml:"videoUrl"`
	Attachments []string   `json:"attachments" yaml:"attachments"`
	Preview     bool       `json:"preview" yaml:"preview"`
}

func (in *CreateLessonInput) build(id int64) *Lesson {
	lessonType := in.Type
	if lessonType == "" {
		lessonType = LessonVideo
	}
	return &Lesson{
		ID:          id,
		ModuleID:    in.ModuleID,
		Title:       in.Title,
		Description: in.Description,
		Order:       in.Order,
		Duration:    in.Duration,
		Type:        lessonType,
		Content:     clonePtr(in.Content),
		VideoURL:    clonePtr(in.VideoURL),
		Attachments: cloneStrings(in.Attachments),
		Preview:     in.Preview,
	}
}

type LessonPatch struct {
	ModuleID    *int64      `json:"moduleId,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Description *string     `json:"description,omitempty"`
	Order       *int        `json:"order,omitempty"`
	Duration    *int        `json:"duration,omitempty"`
	Type        *LessonType `json:"type,omitempty"`
	Content     *string     `json:"content,omitempty"`
	VideoURL    *string     `json:"videoUrl,omitempty"`
	Attachments []string    `json:"attachments,omitempty"`
	Preview     *bool       `json:"preview,omitempty"`
}

func (p LessonPatch) apply(x *Lesson) bool {
	changed := set(&x.ModuleID, p.ModuleID)
	changed = set(&x.Title, p.Title) || changed
	changed = set(&x.Description, p.Description) || changed
	changed = set(&x.Order, p.Order) || changed
	changed = set(&x.Duration, p.Duration) || changed
	changed = set(&x.Type, p.Type) || changed
	changed = setOptional(&x.Content, p.Content) || changed
	changed = setOptional(&x.VideoURL, p.VideoURL) || changed
	changed = setStrings(&x.Attachments, p.Attachments) || changed
	changed = set(&x.Preview, p.Preview) || changed
	return changed
}

func (x *Lesson) clone() *Lesson {
	c := *x
	c.Content = clonePtr(x.Content)
	c.VideoURL = clonePtr(x.VideoURL)
	c.Attachments = cloneStrings(x.Attachments)
	return &c
}

// Instructor teaches courses and may be linked to a school and a user.
type Instructor struct {
	ID            int64        `json:"id" dynamodbav:"id"`
	Name          string       `json:"name" dynamodbav:"name"`
	Title         string       `json:"title" dynamodbav:"title"`
	Bio           string       `json:"bio" dynamodbav:"bio"`
	Avatar        string       `json:"avatar" dynamodbav:"avatar"`
	SchoolID      *int64       `json:"schoolId,omitempty" dynamodbav:"schoolId,omitempty"`
	UserID        *int64       `json:"userId,omitempty" dynamodbav:"userId,omitempty"`
	CoursesCount  int          `json:"coursesCount" dynamodbav:"coursesCount"`
	StudentsCount int          `json:"studentsCount" dynamodbav:"studentsCount"`
	Rating        float64      `json:"rating" dynamodbav:"rating"`
	Social        *SocialLinks `json:"social,omitempty" dynamodbav:"social,omitempty"`
}

type CreateInstructorInput struct {
	Name          string       `json:"name" yaml:"name"`
	Title         string       `json:"title" yaml:"title"`
	Bio           string       `json:"bio" yaml:"bio"`
	Avatar        string       `json:"avatar" yaml:"avatar"`
	SchoolID      *int64       `json:"schoolId,omitempty" yaml:"schoolId"`
	UserID        *int64       `json:"userId,omitempty" yaml:"userId"`
	CoursesCount  int          `json:"coursesCount" yaml:"coursesCount"`
	StudentsCount int          `json:"studentsCount" yaml:"studentsCount"`
	Rating        float64      `json:"rating" yaml:"rating"`
	Social        *SocialLinks `json:"social,omitempty" yaml:"social"`
}

func (in *CreateInstructorInput) build(id int64) *Instructor {
	return &Instructor{
		ID:            id,
		Name:          in.Name,
		Title:         in.Title,
		Bio:           in.Bio,
		Avatar:        in.Avatar,
		SchoolID:      clonePtr(in.SchoolID),
		UserID:        clonePtr(in.UserID),
		CoursesCount:  in.CoursesCount,
		StudentsCount: in.StudentsCount,
		Rating:        in.Rating,
		Social:        in.Social.clone(),
	}
}

type InstructorPatch struct {
	Name          *string      `json:"name,omitempty"`
	Title         *string      `json:"title,omitempty"`
	Bio           *string      `json:"bio,omitempty"`
	Avatar        *string      `json:"avatar,omitempty"`
	SchoolID      *int64       `json:"schoolId,omitempty"`
	UserID        *int64       `json:"userId,omitempty"`
	CoursesCount  *int         `json:"coursesCount,omitempty"`
	StudentsCount *int         `json:"studentsCount,omitempty"`
	Rating        *float64     `json:"rating,omitempty"`
	Social        *SocialLinks `json:"social,omitempty"`
}

func (p InstructorPatch) apply(x *Instructor) bool {
	changed := set(&x.Name, p.Name)
	changed = set(&x.Title, p.Title) || changed
	changed = set(&x.Bio, p.Bio) || changed
	changed = set(&x.Avatar, p.Avatar) || changed
	changed = setOptional(&x.SchoolID, p.SchoolID) || changed
	changed = setOptional(&x.UserID, p.UserID) || changed
	changed = set(&x.CoursesCount, p.CoursesCount) || changed
	changed = set(&x.StudentsCount, p.StudentsCount) || changed
	changed = set(&x.Rating, p.Rating) || changed
	if p.Social != nil {
		x.Social = p.Social.clone()
		changed = true
	}
	return changed
}

func (x *Instructor) clone() *Instructor {
	c := *x
	c.SchoolID = clonePtr(x.SchoolID)
	c.UserID = clonePtr(x.UserID)
	c.Social = x.Social.clone()
	return &c
}

// Ptr returns a pointer to v. Handy for filters and patches.
func Ptr[T any](v T) *T {
	return &v
}

func set[T any](dst *T, v *T) bool {
	if v == nil {
		return false
	}
	*dst = *v
	return true
}

func setOptional[T any](dst **T, v *T) bool {
	if v == nil {
		return false
	}
	*dst = clonePtr(v)
	return true
}

func setStrings(dst *[]string, v []string) bool {
	if v == nil {
		return false
	}
	*dst = cloneStrings(v)
	return true
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// cloneStrings copies a slice and never returns nil.
func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
