package launchbase

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// indexSpec is one global secondary index. Every index is named
// "<attr>-index", has a single hash key and projects all attributes.
type indexSpec struct {
	name     string
	attr     string // hash key attribute of the index
	source   string // filter attribute the index answers
	attrType types.ScalarAttributeType
}

func numberIndex(attr string) indexSpec {
	return indexSpec{name: attr + "-index", attr: attr, source: attr, attrType: types.ScalarAttributeTypeN}
}

func stringIndex(attr string) indexSpec {
	return indexSpec{name: attr + "-index", attr: attr, source: attr, attrType: types.ScalarAttributeTypeS}
}

// featuredIndex answers "featured" filters from the string-encoded copy.
var featuredIndex = indexSpec{
	name:     featuredIndexAttr + "-index",
	attr:     featuredIndexAttr,
	source:   "featured",
	attrType: types.ScalarAttributeTypeS,
}

// tableIndexes lists the indexes of each family table in preference order.
var tableIndexes = map[Family][]indexSpec{
	FamilyUsers:        {stringIndex("username")},
	FamilyProjects:     {numberIndex("createdBy"), featuredIndex},
	FamilyRoles:        {numberIndex("projectId")},
	FamilyTeamMembers:  {numberIndex("projectId"), numberIndex("userId")},
	FamilyApplications: {numberIndex("projectId"), numberIndex("userId")},
	FamilySchools:      {featuredIndex},
	FamilyCourses:      {numberIndex("schoolId"), numberIndex("instructorId"), featuredIndex},
	FamilyModules:      {numberIndex("courseId")},
	FamilyLessons:      {numberIndex("moduleId")},
	FamilyInstructors:  {numberIndex("schoolId")},
}

// pickIndex returns the first index able to answer one of conds, the key
// value to query it with, and the conditions left over for a filter.
func pickIndex(f Family, conds []condition) (indexSpec, interface{}, []condition, bool) {
	for _, idx := range tableIndexes[f] {
		for i, c := range conds {
			if c.attr != idx.source {
				continue
			}
			key := c.value
			if idx.attr == featuredIndexAttr {
				key = formatIndexedBool(c.value.(bool))
			}
			rest := make([]condition, 0, len(conds)-1)
			rest = append(rest, conds[:i]...)
			rest = append(rest, conds[i+1:]...)
			return idx, key, rest, true
		}
	}
	return indexSpec{}, nil, conds, false
}

func familyTableInput(name string, f Family) *dynamodb.CreateTableInput {
	attrs := []types.AttributeDefinition{
		{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeN},
	}
	defined := map[string]bool{"id": true}

	var gsis []types.GlobalSecondaryIndex
	for _, idx := range tableIndexes[f] {
		if !defined[idx.attr] {
			attrs = append(attrs, types.AttributeDefinition{
				AttributeName: aws.String(idx.attr),
				AttributeType: idx.attrType,
			})
			defined[idx.attr] = true
		}
		gsis = append(gsis, types.GlobalSecondaryIndex{
			IndexName: aws.String(idx.name),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(idx.attr), KeyType: types.KeyTypeHash},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		})
	}

	return &dynamodb.CreateTableInput{
		TableName:            aws.String(name),
		AttributeDefinitions: attrs,
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: gsis,
		BillingMode:            types.BillingModePayPerRequest,
	}
}

func countersTableInput(name string) *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(counterKeyAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(counterKeyAttr), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}

// ProvisionReport records what the one-time provisioning pass did.
type ProvisionReport struct {
	Created  []string
	Existing []string
	// Raced tables were created concurrently by another process.
	Raced []string
	// Failed maps a table to the error that stopped its creation.
	// The backend continues as if the table exists.
	Failed map[string]string
}

func (r ProvisionReport) clone() ProvisionReport {
	out := ProvisionReport{
		Created:  append([]string(nil), r.Created...),
		Existing: append([]string(nil), r.Existing...),
		Raced:    append([]string(nil), r.Raced...),
		Failed:   make(map[string]string, len(r.Failed)),
	}
	for k, v := range r.Failed {
		out.Failed[k] = v
	}
	return out
}

// tableInputs returns the create input for every table the backend uses.
func (b *DynamoBackend) tableInputs() []*dynamodb.CreateTableInput {
	inputs := make([]*dynamodb.CreateTableInput, 0, len(Families)+1)
	for _, f := range Families {
		inputs = append(inputs, familyTableInput(b.table(f), f))
	}
	return append(inputs, countersTableInput(b.prefix+countersTable))
}

func (b *DynamoBackend) existingTables(ctx context.Context) (map[string]bool, error) {
	existing := make(map[string]bool)
	p := dynamodb.NewListTablesPaginator(b.client, &dynamodb.ListTablesInput{})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return existing, err
		}
		for _, name := range out.TableNames {
			existing[name] = true
		}
	}
	return existing, nil
}

// provisionTables creates every missing table. It never fails: a table that
// could not be created is logged and assumed to exist, so the operation that
// triggered provisioning surfaces the real error if it does not.
func (b *DynamoBackend) provisionTables(ctx context.Context) ProvisionReport {
	ctx, cancel := context.WithTimeout(ctx, b.provisionWait)
	defer cancel()

	report := ProvisionReport{Failed: make(map[string]string)}
	existing, err := b.existingTables(ctx)
	if err != nil {
		b.logger.Warn("listing tables failed; attempting to create all", "error", err)
	}

	var pending []string
	for _, input := range b.tableInputs() {
		name := aws.ToString(input.TableName)
		if existing[name] {
			report.Existing = append(report.Existing, name)
			b.metrics.Increment(MetricProvisionTables, "outcome", "existing")
			continue
		}

		_, err := b.client.CreateTable(ctx, input)
		var inUse *types.ResourceInUseException
		switch {
		case err == nil:
			pending = append(pending, name)
			report.Created = append(report.Created, name)
			b.metrics.Increment(MetricProvisionTables, "outcome", "created")
			b.logger.Info("table created", "table", name, "indexes", len(input.GlobalSecondaryIndexes))
		case errors.As(err, &inUse):
			pending = append(pending, name)
			report.Raced = append(report.Raced, name)
			b.metrics.Increment(MetricProvisionTables, "outcome", "raced")
			b.logger.Warn("table provisioning raced", "error", WithContext(ErrProvisioningRace, map[string]interface{}{
				"table": name,
			}))
		default:
			report.Failed[name] = err.Error()
			b.metrics.Increment(MetricProvisionTables, "outcome", "failed")
			b.logger.Error("table creation failed; assuming it exists", "table", name, "error", err)
		}
	}

	waiter := dynamodb.NewTableExistsWaiter(b.client)
	for _, name := range pending {
		start := time.Now()
		err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, b.provisionWait)
		if err != nil {
			b.logger.Warn("table did not become active", "table", name, "error", err)
			continue
		}
		b.logger.Debug("table active", "table", name, "waited", time.Since(start))
	}

	return report
}
