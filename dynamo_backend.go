package launchbase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the subset of *dynamodb.Client the durable backend uses.
// It matches the SDK signatures so paginators and waiters accept it.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// DynamoBackend is the durable Storage implementation.
//
// Each family lives in its own table keyed by a numeric "id". Tables and
// their secondary indexes are created on first use. List operations query
// the first index able to answer the filter and fall back to a table scan
// when that query fails.
type DynamoBackend struct {
	client        DynamoAPI
	prefix        string
	sequence      IDSequence
	profiler      *QueryProfiler
	logger        Logger
	metrics       Metrics
	now           func() time.Time
	provisionWait time.Duration
	closers       []func() error

	provisionOnce sync.Once
	provision     ProvisionReport
}

// DynamoOption configures NewDynamoBackend
type DynamoOption func(*DynamoBackend)

// WithTablePrefix sets the prefix prepended to every table name.
func WithTablePrefix(prefix string) DynamoOption {
	return func(b *DynamoBackend) { b.prefix = prefix }
}

func WithDynamoLogger(l Logger) DynamoOption {
	return func(b *DynamoBackend) { b.logger = orNoOpLogger(l) }
}

func WithDynamoMetrics(m Metrics) DynamoOption {
	return func(b *DynamoBackend) { b.metrics = orNoOpMetrics(m) }
}

// WithQueryProfiler records the access path of every list operation.
func WithQueryProfiler(p *QueryProfiler) DynamoOption {
	return func(b *DynamoBackend) { b.profiler = p }
}

// WithIDSequence replaces the counters-table sequence.
func WithIDSequence(s IDSequence) DynamoOption {
	return func(b *DynamoBackend) { b.sequence = s }
}

// WithProvisionWait bounds the whole provisioning pass.
func WithProvisionWait(d time.Duration) DynamoOption {
	return func(b *DynamoBackend) {
		if d > 0 {
			b.provisionWait = d
		}
	}
}

// WithDynamoClock overrides time.Now for timestamps.
func WithDynamoClock(now func() time.Time) DynamoOption {
	return func(b *DynamoBackend) { b.now = now }
}

// withCloser registers a resource released by Close.
func withCloser(fn func() error) DynamoOption {
	return func(b *DynamoBackend) { b.closers = append(b.closers, fn) }
}

func NewDynamoBackend(client DynamoAPI, opts ...DynamoOption) *DynamoBackend {
	b := &DynamoBackend{
		client:        client,
		prefix:        DefaultTablePrefix,
		logger:        &NoOpLogger{},
		metrics:       &NoOpMetrics{},
		now:           time.Now,
		provisionWait: DefaultProvisionWait,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.sequence == nil {
		b.sequence = NewDynamoSequence(client, b.prefix+countersTable, b.metrics)
	}
	return b
}

// NewDynamoClient builds a DynamoDB client for cfg. Explicit credentials
// take precedence over the default provider chain.
func NewDynamoClient(ctx context.Context, cfg AWSConfig) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.HasCredentials() {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
		}
	}), nil
}

// NewDynamoBackendFromConfig wires a durable backend from process configuration.
func NewDynamoBackendFromConfig(ctx context.Context, cfg Config, logger Logger, metrics Metrics, opts ...DynamoOption) (*DynamoBackend, error) {
	client, err := NewDynamoClient(ctx, cfg.AWS)
	if err != nil {
		return nil, err
	}

	base := []DynamoOption{
		WithTablePrefix(cfg.Tables.Prefix),
		WithProvisionWait(cfg.Tables.ProvisionWait),
		WithDynamoLogger(logger),
		WithDynamoMetrics(metrics),
	}

	if cfg.IDSource == IDSourceRedis {
		rc, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("id sequence: %w", err)
		}
		base = append(base,
			WithIDSequence(NewRedisSequence(rc, "", logger, metrics)),
			withCloser(rc.Close),
		)
	}

	return NewDynamoBackend(client, append(base, opts...)...), nil
}

func (b *DynamoBackend) Kind() BackendKind { return KindDynamo }

// Ping lists at most one table. It does not trigger provisioning.
func (b *DynamoBackend) Ping(ctx context.Context) error {
	_, err := b.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	if err != nil {
		return fmt.Errorf("dynamodb ping: %w", err)
	}
	return nil
}

func (b *DynamoBackend) Close() error {
	var errs []error
	for _, fn := range b.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Provision runs the one-time table provisioning pass if it has not run yet
// and returns what it did.
func (b *DynamoBackend) Provision(ctx context.Context) ProvisionReport {
	b.ensure(ctx)
	return b.provision.clone()
}

// ensure provisions tables exactly once per backend. Concurrent callers block
// until the first pass finishes. The pass is detached from the caller's
// cancellation and bounded by the provisioning wait instead.
func (b *DynamoBackend) ensure(ctx context.Context) {
	b.provisionOnce.Do(func() {
		b.provision = b.provisionTables(context.WithoutCancel(ctx))
	})
}

func (b *DynamoBackend) table(f Family) string {
	return b.prefix + string(f)
}

func (b *DynamoBackend) timestamp() time.Time {
	return b.now().UTC()
}

func (b *DynamoBackend) observe(op string, f Family, start time.Time) {
	b.metrics.Increment(MetricStorageOps, "operation", op, "entity", string(f), "backend", string(KindDynamo))
	b.metrics.Timing(MetricStorageDuration, time.Since(start), "operation", op, "backend", string(KindDynamo))
}

func (b *DynamoBackend) fail(op string, f Family, err error) error {
	b.metrics.Increment(MetricStorageErrors, "operation", op, "entity", string(f), "backend", string(KindDynamo))
	return fmt.Errorf("dynamodb %s %s: %w", op, b.table(f), err)
}

func (b *DynamoBackend) nextID(ctx context.Context, f Family) (int64, error) {
	id, err := b.sequence.Next(ctx, f)
	if err != nil {
		return 0, b.fail("next_id", f, err)
	}
	return id, nil
}

func idKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberN{Value: strconv.FormatInt(id, 10)},
	}
}

func decodeFailure(f Family, err error) error {
	return WithContext(ErrInvalidData, map[string]interface{}{
		"entity": string(f),
		"error":  err.Error(),
	})
}

// getItem reads one item with a strongly consistent read.
func getItem[I any](ctx context.Context, b *DynamoBackend, f Family, id int64) (*I, error) {
	out, err := b.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.table(f)),
		Key:            idKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, b.fail("get", f, err)
	}
	if len(out.Item) == 0 {
		return nil, notFound(f, id)
	}

	var item I
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, decodeFailure(f, err)
	}
	return &item, nil
}

func (b *DynamoBackend) put(ctx context.Context, f Family, item interface{}, cond expression.ConditionBuilder) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return decodeFailure(f, err)
	}
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return err
	}
	_, err = b.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(b.table(f)),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	return err
}

// insert writes a new item and refuses to overwrite an existing id.
func (b *DynamoBackend) insert(ctx context.Context, f Family, item interface{}) error {
	if err := b.put(ctx, f, item, expression.AttributeNotExists(expression.Name("id"))); err != nil {
		return b.fail("create", f, err)
	}
	return nil
}

// replace overwrites an existing item. A concurrent delete surfaces as ErrNotFound.
func (b *DynamoBackend) replace(ctx context.Context, f Family, id int64, item interface{}) error {
	err := b.put(ctx, f, item, expression.AttributeExists(expression.Name("id")))
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return notFound(f, id)
	}
	if err != nil {
		return b.fail("update", f, err)
	}
	return nil
}

// remove deletes an item and reports whether it existed.
func (b *DynamoBackend) remove(ctx context.Context, f Family, id int64) (bool, error) {
	out, err := b.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(b.table(f)),
		Key:          idKey(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, b.fail("delete", f, err)
	}
	return len(out.Attributes) > 0, nil
}

// listItems decodes every item matching conds.
func listItems[I any](ctx context.Context, b *DynamoBackend, f Family, conds []condition) ([]I, error) {
	raw, err := b.query(ctx, f, conds)
	if err != nil {
		return nil, err
	}
	items := make([]I, 0, len(raw))
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, decodeFailure(f, err)
	}
	return items, nil
}

// toEntities converts decoded items into entities sorted by id.
func toEntities[I any, E record](items []I, convert func(*I) (E, error)) ([]E, error) {
	out := make([]E, 0, len(items))
	for i := range items {
		e, err := convert(&items[i])
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sortByID(out)
	return out, nil
}

// listEntities is listItems followed by toEntities.
func listEntities[I any, E record](ctx context.Context, b *DynamoBackend, f Family, conds []condition, convert func(*I) (E, error)) ([]E, error) {
	items, err := listItems[I](ctx, b, f, conds)
	if err != nil {
		return nil, err
	}
	return toEntities(items, convert)
}

// getEntity is getItem followed by the item's conversion.
func getEntity[I any, E any](ctx context.Context, b *DynamoBackend, f Family, id int64, convert func(*I) (E, error)) (E, error) {
	item, err := getItem[I](ctx, b, f, id)
	if err != nil {
		var zero E
		return zero, err
	}
	return convert(item)
}
