package launchbase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// fakeDynamo is a scriptable DynamoAPI. Unset hooks answer with empty
// results; ListTables reports every table in existing.
type fakeDynamo struct {
	mu       sync.Mutex
	existing []string
	calls    map[string]int

	getItem     func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error)
	putItem     func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error)
	updateItem  func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error)
	deleteItem  func(*dynamodb.DeleteItemInput) (*dynamodb.DeleteItemOutput, error)
	query       func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error)
	scan        func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error)
	createTable func(*dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error)
	listTables  func(*dynamodb.ListTablesInput) (*dynamodb.ListTablesOutput, error)
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{calls: make(map[string]int)}
}

// withAllTables makes provisioning a no-op for the given prefix.
func (f *fakeDynamo) withAllTables(prefix string) *fakeDynamo {
	for _, fam := range Families {
		f.existing = append(f.existing, prefix+string(fam))
	}
	f.existing = append(f.existing, prefix+countersTable)
	return f
}

func (f *fakeDynamo) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeDynamo) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.record("GetItem")
	if f.getItem != nil {
		return f.getItem(in)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.record("PutItem")
	if f.putItem != nil {
		return f.putItem(in)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.record("UpdateItem")
	if f.updateItem != nil {
		return f.updateItem(in)
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.record("DeleteItem")
	if f.deleteItem != nil {
		return f.deleteItem(in)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.record("Query")
	if f.query != nil {
		return f.query(in)
	}
	return &dynamodb.QueryOutput{}, nil
}

func (f *fakeDynamo) Scan(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.record("Scan")
	if f.scan != nil {
		return f.scan(in)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (f *fakeDynamo) CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	f.record("CreateTable")
	if f.createTable != nil {
		return f.createTable(in)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

// DescribeTable reports every table as active so waiters return at once.
func (f *fakeDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.record("DescribeTable")
	return &dynamodb.DescribeTableOutput{
		Table: &types.TableDescription{
			TableName:   in.TableName,
			TableStatus: types.TableStatusActive,
		},
	}, nil
}

func (f *fakeDynamo) ListTables(ctx context.Context, in *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	f.record("ListTables")
	if f.listTables != nil {
		return f.listTables(in)
	}
	return &dynamodb.ListTablesOutput{TableNames: f.existing}, nil
}

// fixedSequence hands out ids from a local counter.
type fixedSequence struct {
	mu   sync.Mutex
	next map[Family]int64
}

func (s *fixedSequence) Next(ctx context.Context, f Family) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next == nil {
		s.next = make(map[Family]int64)
	}
	s.next[f]++
	return s.next[f], nil
}

func marshalItem(t *testing.T, v interface{}) map[string]types.AttributeValue {
	t.Helper()
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		t.Fatalf("MarshalMap: %v", err)
	}
	return av
}

func TestDynamoBackend_TableInputs(t *testing.T) {
	b := NewDynamoBackend(newFakeDynamo(), WithTablePrefix("test_"))
	inputs := b.tableInputs()

	if len(inputs) != len(Families)+1 {
		t.Fatalf("got %d table inputs, want %d", len(inputs), len(Families)+1)
	}
	for i, f := range Families {
		if got := aws.ToString(inputs[i].TableName); got != "test_"+string(f) {
			t.Errorf("table %d = %s, want test_%s", i, got, f)
		}
		if inputs[i].BillingMode != types.BillingModePayPerRequest {
			t.Errorf("%s billing = %s", f, inputs[i].BillingMode)
		}
	}

	courses := inputs[6]
	var names []string
	for _, gsi := range courses.GlobalSecondaryIndexes {
		names = append(names, aws.ToString(gsi.IndexName))
		if gsi.Projection.ProjectionType != types.ProjectionTypeAll {
			t.Errorf("%s projection = %s", aws.ToString(gsi.IndexName), gsi.Projection.ProjectionType)
		}
	}
	want := "schoolId-index,instructorId-index,featuredIndex-index"
	if strings.Join(names, ",") != want {
		t.Errorf("course indexes = %v, want %s", names, want)
	}

	for _, def := range courses.AttributeDefinitions {
		if aws.ToString(def.AttributeName) == featuredIndexAttr && def.AttributeType != types.ScalarAttributeTypeS {
			t.Errorf("featuredIndex must be a string key, got %s", def.AttributeType)
		}
	}

	if got := aws.ToString(inputs[len(inputs)-1].TableName); got != "test_counters" {
		t.Errorf("counters table = %s", got)
	}
}

func TestPickIndex(t *testing.T) {
	tests := []struct {
		name      string
		family    Family
		conds     []condition
		wantIndex string
		wantKey   interface{}
		wantRest  int
		wantOK    bool
	}{
		{"no conditions", FamilyCourses, nil, "", nil, 0, false},
		{"unindexed", FamilyCourses, CourseFilter{Level: Ptr("beginner")}.conditions(), "", nil, 1, false},
		{"school", FamilyCourses, CourseFilter{SchoolID: Ptr(int64(2)), Level: Ptr("x")}.conditions(), "schoolId-index", int64(2), 1, true},
		{"featured encodes as string", FamilyCourses, CourseFilter{Featured: Ptr(true)}.conditions(), "featuredIndex-index", "true", 0, true},
		{"preference order", FamilyCourses, CourseFilter{Featured: Ptr(false), InstructorID: Ptr(int64(3))}.conditions(), "instructorId-index", int64(3), 1, true},
		{"username", FamilyUsers, UserFilter{Username: Ptr("ada")}.conditions(), "username-index", "ada", 0, true},
		{"team member user", FamilyTeamMembers, TeamMemberFilter{UserID: Ptr(int64(4))}.conditions(), "userId-index", int64(4), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, key, rest, ok := pickIndex(tt.family, tt.conds)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if idx.name != tt.wantIndex || key != tt.wantKey || len(rest) != tt.wantRest {
				t.Errorf("pickIndex = %s, %v, %d rest", idx.name, key, len(rest))
			}
		})
	}
}

func TestDynamoBackend_ProvisionCreatesMissingTables(t *testing.T) {
	fake := newFakeDynamo()
	fake.existing = []string{"app_users"}
	metrics := NewInMemoryMetrics()
	b := NewDynamoBackend(fake, WithTablePrefix("app_"), WithDynamoMetrics(metrics))

	report := b.Provision(context.Background())

	if len(report.Existing) != 1 || report.Existing[0] != "app_users" {
		t.Errorf("Existing = %v", report.Existing)
	}
	if len(report.Created) != len(Families) {
		t.Errorf("Created = %v", report.Created)
	}
	if fake.count("CreateTable") != len(Families) {
		t.Errorf("CreateTable calls = %d", fake.count("CreateTable"))
	}
	if metrics.Count(MetricProvisionTables) != len(Families)+1 {
		t.Errorf("provision metrics = %d", metrics.Count(MetricProvisionTables))
	}

	// The pass runs once per backend.
	b.Provision(context.Background())
	if fake.count("ListTables") != 1 {
		t.Errorf("ListTables calls = %d, want 1", fake.count("ListTables"))
	}
}

func TestDynamoBackend_ProvisionRaceAndFailure(t *testing.T) {
	fake := newFakeDynamo()
	fake.createTable = func(in *dynamodb.CreateTableInput) (*dynamodb.CreateTableOutput, error) {
		switch aws.ToString(in.TableName) {
		case "race_courses":
			return nil, &types.ResourceInUseException{Message: aws.String("Table already exists")}
		case "race_lessons":
			return nil, errors.New("access denied")
		}
		return &dynamodb.CreateTableOutput{}, nil
	}
	logger, logs := observedLogger(zap.DebugLevel)
	b := NewDynamoBackend(fake, WithTablePrefix("race_"), WithDynamoLogger(logger))

	report := b.Provision(context.Background())

	if len(report.Raced) != 1 || report.Raced[0] != "race_courses" {
		t.Errorf("Raced = %v", report.Raced)
	}
	if report.Failed["race_lessons"] != "access denied" {
		t.Errorf("Failed = %v", report.Failed)
	}
	if logs.FilterMessage("table provisioning raced").Len() != 1 {
		t.Error("expected a warning for the raced table")
	}
	if logs.FilterMessage("table creation failed; assuming it exists").Len() != 1 {
		t.Error("expected an error log for the failed table")
	}

	for _, entry := range logs.FilterMessage("table provisioning raced").All() {
		err, _ := entry.ContextMap()["error"].(string)
		if !strings.Contains(err, ErrProvisioningRace.Error()) {
			t.Errorf("race log error = %q", err)
		}
	}
}

func TestDynamoBackend_ProvisionSurvivesListFailure(t *testing.T) {
	fake := newFakeDynamo()
	fake.listTables = func(*dynamodb.ListTablesInput) (*dynamodb.ListTablesOutput, error) {
		return nil, errors.New("throttled")
	}
	b := NewDynamoBackend(fake, WithTablePrefix("x_"))

	report := b.Provision(context.Background())
	if len(report.Created) != len(Families)+1 {
		t.Errorf("Created = %d tables, want all", len(report.Created))
	}
}

func TestDynamoBackend_ScanFallback(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	course := &Course{ID: 7, Title: "Go", SchoolID: 2, Featured: true, Language: "English", CreatedAt: now, UpdatedAt: now}

	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	fake.query = func(*dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		return nil, errors.New("index is backfilling")
	}
	var scanned *dynamodb.ScanInput
	fake.scan = func(in *dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		scanned = in
		return &dynamodb.ScanOutput{Items: []map[string]types.AttributeValue{marshalItem(t, newCourseItem(course))}}, nil
	}

	logger, logs := observedLogger(zap.WarnLevel)
	metrics := NewInMemoryMetrics()
	profiler := NewQueryProfiler()
	b := NewDynamoBackend(fake,
		WithDynamoLogger(logger),
		WithDynamoMetrics(metrics),
		WithQueryProfiler(profiler),
	)

	courses, err := b.ListFeaturedCourses(context.Background())
	if err != nil {
		t.Fatalf("ListFeaturedCourses failed: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != 7 || !courses[0].CreatedAt.Equal(now) {
		t.Fatalf("courses = %+v", courses)
	}

	if scanned == nil || scanned.FilterExpression == nil {
		t.Fatal("fallback scan should carry the original filter")
	}
	if logs.FilterMessage("index query failed, falling back to scan").Len() != 1 {
		t.Error("expected fallback warning")
	}
	if metrics.Count(MetricQueryFallbacks) != 1 || metrics.Count(MetricQueryScans) != 1 {
		t.Errorf("fallbacks = %d, scans = %d", metrics.Count(MetricQueryFallbacks), metrics.Count(MetricQueryScans))
	}

	fallbacks := profiler.GetFallbacks()
	if len(fallbacks) != 1 || fallbacks[0].Complexity != ComplexityON {
		t.Errorf("fallback profiles = %+v", fallbacks)
	}
}

func TestDynamoBackend_ScanFailureSurfaces(t *testing.T) {
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	fake.scan = func(*dynamodb.ScanInput) (*dynamodb.ScanOutput, error) {
		return nil, errors.New("network down")
	}
	metrics := NewInMemoryMetrics()
	b := NewDynamoBackend(fake, WithDynamoMetrics(metrics))

	_, err := b.ListCourses(context.Background(), CourseFilter{Level: Ptr("beginner")})
	if err == nil || !strings.Contains(err.Error(), "launchbase_courses") {
		t.Fatalf("err = %v, want error naming the table", err)
	}
	if metrics.Count(MetricStorageErrors) != 1 {
		t.Errorf("storage errors = %d", metrics.Count(MetricStorageErrors))
	}
}

func TestDynamoBackend_IndexQueryCarriesRemainingFilter(t *testing.T) {
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	var queried *dynamodb.QueryInput
	fake.query = func(in *dynamodb.QueryInput) (*dynamodb.QueryOutput, error) {
		queried = in
		return &dynamodb.QueryOutput{}, nil
	}
	b := NewDynamoBackend(fake)

	if _, err := b.ListCourses(context.Background(), CourseFilter{SchoolID: Ptr(int64(1)), Popular: Ptr(true)}); err != nil {
		t.Fatalf("ListCourses failed: %v", err)
	}
	if queried == nil {
		t.Fatal("expected an index query")
	}
	if aws.ToString(queried.IndexName) != "schoolId-index" {
		t.Errorf("index = %s", aws.ToString(queried.IndexName))
	}
	if queried.FilterExpression == nil {
		t.Error("popular condition should become a filter expression")
	}
	if fake.count("Scan") != 0 {
		t.Error("successful index query must not scan")
	}
}

func TestDynamoBackend_NotFoundPaths(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	b := NewDynamoBackend(fake, WithIDSequence(&fixedSequence{}))

	if _, err := b.GetCourse(ctx, 1); !IsNotFound(err) {
		t.Errorf("GetCourse = %v, want ErrNotFound", err)
	}
	if _, err := b.UpdateRole(ctx, 1, RolePatch{Title: Ptr("x")}); !IsNotFound(err) {
		t.Errorf("UpdateRole = %v, want ErrNotFound", err)
	}
	if _, err := b.UpdateApplicationStatus(ctx, 1, "accepted"); !IsNotFound(err) {
		t.Errorf("UpdateApplicationStatus = %v, want ErrNotFound", err)
	}
	if fake.count("PutItem") != 0 {
		t.Error("missing records must not be written")
	}

	deleted, err := b.DeleteCourse(ctx, 1)
	if err != nil || deleted {
		t.Errorf("DeleteCourse = %v, %v; want false, nil", deleted, err)
	}
}

func TestDynamoBackend_UpdateRacingDelete(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	fake.getItem = func(*dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: marshalItem(t, roleItem{Role{ID: 1, Title: "Engineer"}})}, nil
	}
	fake.putItem = func(*dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional request failed")}
	}
	b := NewDynamoBackend(fake)

	if _, err := b.UpdateRole(ctx, 1, RolePatch{Title: Ptr("CTO")}); !IsNotFound(err) {
		t.Errorf("UpdateRole = %v, want ErrNotFound", err)
	}
}

func TestDynamoBackend_CreateWritesFeaturedIndex(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	var written map[string]types.AttributeValue
	fake.putItem = func(in *dynamodb.PutItemInput) (*dynamodb.PutItemOutput, error) {
		written = in.Item
		if in.ConditionExpression == nil {
			t.Error("create must refuse to overwrite")
		}
		return &dynamodb.PutItemOutput{}, nil
	}
	b := NewDynamoBackend(fake, WithIDSequence(&fixedSequence{}))

	s, err := b.CreateSchool(ctx, &CreateSchoolInput{Name: "Founders", Featured: false})
	if err != nil {
		t.Fatalf("CreateSchool failed: %v", err)
	}
	if s.ID != 1 {
		t.Errorf("id = %d", s.ID)
	}

	idx, ok := written[featuredIndexAttr].(*types.AttributeValueMemberS)
	if !ok || idx.Value != "false" {
		t.Errorf("featuredIndex = %#v", written[featuredIndexAttr])
	}
	if _, ok := written["featured"].(*types.AttributeValueMemberBOOL); !ok {
		t.Errorf("featured = %#v, want BOOL", written["featured"])
	}
}

func TestDynamoBackend_LessonCountFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo().withAllTables(DefaultTablePrefix)
	fake.getItem = func(in *dynamodb.GetItemInput) (*dynamodb.GetItemOutput, error) {
		return &dynamodb.GetItemOutput{Item: marshalItem(t, moduleItem{Module{ID: 3, CourseID: 9}})}, nil
	}
	fake.updateItem = func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return nil, errors.New("throttled")
	}
	logger, logs := observedLogger(zap.WarnLevel)
	b := NewDynamoBackend(fake, WithIDSequence(&fixedSequence{}), WithDynamoLogger(logger))

	lesson, err := b.CreateLesson(ctx, &CreateLessonInput{ModuleID: 3, Title: "Intro"})
	if err != nil {
		t.Fatalf("CreateLesson should succeed when counting fails: %v", err)
	}
	if lesson.Type != LessonVideo {
		t.Errorf("Type = %s", lesson.Type)
	}
	if logs.FilterMessage("lesson count not updated").Len() != 1 {
		t.Error("expected lesson count warning")
	}
}

func TestDynamoSequence(t *testing.T) {
	fake := newFakeDynamo()
	var counter int64
	fake.updateItem = func(in *dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		if aws.ToString(in.TableName) != "launchbase_counters" {
			t.Errorf("table = %s", aws.ToString(in.TableName))
		}
		counter++
		return &dynamodb.UpdateItemOutput{Attributes: marshalItem(t, map[string]int64{"seq": counter})}, nil
	}
	metrics := NewInMemoryMetrics()
	seq := NewDynamoSequence(fake, "launchbase_counters", metrics)

	for want := int64(1); want <= 3; want++ {
		got, err := seq.Next(context.Background(), FamilyCourses)
		if err != nil || got != want {
			t.Fatalf("Next = %d, %v; want %d", got, err, want)
		}
	}
	if metrics.Count(MetricSequenceNext) != 3 {
		t.Errorf("sequence metrics = %d", metrics.Count(MetricSequenceNext))
	}

	fake.updateItem = func(*dynamodb.UpdateItemInput) (*dynamodb.UpdateItemOutput, error) {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	if _, err := seq.Next(context.Background(), FamilyCourses); !errors.Is(err, ErrInvalidData) {
		t.Errorf("missing seq attribute = %v, want ErrInvalidData", err)
	}
}

func TestDynamoBackend_PingDoesNotProvision(t *testing.T) {
	fake := newFakeDynamo()
	b := NewDynamoBackend(fake)

	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if fake.count("CreateTable") != 0 {
		t.Error("Ping must not create tables")
	}

	fake.listTables = func(*dynamodb.ListTablesInput) (*dynamodb.ListTablesOutput, error) {
		return nil, errors.New("no route to host")
	}
	if err := b.Ping(context.Background()); err == nil {
		t.Error("Ping should fail when ListTables fails")
	}
}
