package launchbase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IDSequence hands out positive, strictly increasing ids per family.
// Implementations must be safe for concurrent use across processes.
type IDSequence interface {
	Next(ctx context.Context, f Family) (int64, error)
}

const (
	countersTable  = "counters"
	counterKeyAttr = "entity"
	counterSeqAttr = "seq"
)

// DynamoSequence keeps one atomic counter item per family in the counters
// table and increments it with an ADD update.
type DynamoSequence struct {
	client  DynamoAPI
	table   string
	metrics Metrics
}

func NewDynamoSequence(client DynamoAPI, table string, metrics Metrics) *DynamoSequence {
	return &DynamoSequence{client: client, table: table, metrics: orNoOpMetrics(metrics)}
}

func (s *DynamoSequence) Next(ctx context.Context, f Family) (int64, error) {
	update := expression.Add(expression.Name(counterSeqAttr), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return 0, fmt.Errorf("build counter update: %w", err)
	}

	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			counterKeyAttr: &types.AttributeValueMemberS{Value: string(f)},
		},
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueUpdatedNew,
	})
	if err != nil {
		s.metrics.Increment(MetricSequenceErrors, "source", IDSourceDynamo)
		return 0, fmt.Errorf("increment %s counter: %w", f, err)
	}

	var counter struct {
		Seq int64 `dynamodbav:"seq"`
	}
	if err := attributevalue.UnmarshalMap(out.Attributes, &counter); err != nil || counter.Seq < 1 {
		s.metrics.Increment(MetricSequenceErrors, "source", IDSourceDynamo)
		return 0, WithContext(ErrInvalidData, map[string]interface{}{
			"entity": string(f),
			"table":  s.table,
			"value":  strconv.FormatInt(counter.Seq, 10),
		})
	}

	s.metrics.Increment(MetricSequenceNext, "source", IDSourceDynamo)
	return counter.Seq, nil
}
