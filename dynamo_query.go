package launchbase

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type rawItem = map[string]types.AttributeValue

// filterCondition ANDs equality tests for conds. ok is false when conds is empty.
func filterCondition(conds []condition) (cond expression.ConditionBuilder, ok bool) {
	if len(conds) == 0 {
		return cond, false
	}
	cond = expression.Name(conds[0].attr).Equal(expression.Value(conds[0].value))
	for _, c := range conds[1:] {
		cond = cond.And(expression.Name(c.attr).Equal(expression.Value(c.value)))
	}
	return cond, true
}

// query answers an equality filter. With no conditions it scans the table.
// Otherwise it queries the first index able to answer one condition and
// applies the rest as a filter expression. Any index failure falls back to
// a filtered scan, which returns the same set of items.
func (b *DynamoBackend) query(ctx context.Context, f Family, conds []condition) ([]rawItem, error) {
	profile := b.profiler.StartProfile(string(f)+".list", conds)
	defer b.profiler.Record(profile)

	idx, key, rest, ok := pickIndex(f, conds)
	if ok {
		items, err := b.queryIndex(ctx, f, idx, key, rest)
		if err == nil {
			profile.usedIndex(idx.name)
			profile.finish(len(items), nil)
			b.metrics.Increment(MetricQueryIndexHits, "entity", string(f), "index", idx.name)
			b.metrics.Histogram(MetricQueryResults, float64(len(items)), "entity", string(f))
			return items, nil
		}
		b.logger.Warn("index query failed, falling back to scan",
			"table", b.table(f),
			"index", idx.name,
			"error", err,
		)
		b.metrics.Increment(MetricQueryFallbacks, "entity", string(f))
		profile.usedScan(true)
	}

	items, err := b.scan(ctx, f, conds)
	profile.usedScan(false)
	profile.finish(len(items), err)
	if err != nil {
		return nil, b.fail("list", f, err)
	}
	b.metrics.Increment(MetricQueryScans, "entity", string(f))
	b.metrics.Histogram(MetricQueryResults, float64(len(items)), "entity", string(f))
	return items, nil
}

func (b *DynamoBackend) queryIndex(ctx context.Context, f Family, idx indexSpec, key interface{}, rest []condition) ([]rawItem, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key(idx.attr).Equal(expression.Value(key)))
	if cond, ok := filterCondition(rest); ok {
		builder = builder.WithFilter(cond)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build query on %s: %w", idx.name, err)
	}

	p := dynamodb.NewQueryPaginator(b.client, &dynamodb.QueryInput{
		TableName:                 aws.String(b.table(f)),
		IndexName:                 aws.String(idx.name),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	var items []rawItem
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
	}
	return items, nil
}

// scan reads the whole table, applying conds server side.
func (b *DynamoBackend) scan(ctx context.Context, f Family, conds []condition) ([]rawItem, error) {
	input := &dynamodb.ScanInput{
		TableName:      aws.String(b.table(f)),
		ConsistentRead: aws.Bool(true),
	}
	if cond, ok := filterCondition(conds); ok {
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return nil, fmt.Errorf("build scan filter: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	var items []rawItem
	p := dynamodb.NewScanPaginator(b.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, out.Items...)
	}
	return items, nil
}
