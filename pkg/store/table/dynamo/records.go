package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// PutRecord fully overwrites the record keyed by rec.ID.
func (s *DynamoTableStore) PutRecord(ctx context.Context, tableName string, rec *model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put record %s: %w", rec.ID, translateTableErr(err))
	}

	return nil
}

// GetRecord fetches a record by primary key.
func (s *DynamoTableStore) GetRecord(ctx context.Context, tableName, id string) (*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key:       recordKey(id),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", id, translateTableErr(err))
	}
	if len(out.Item) == 0 {
		return nil, table.ErrRecordNotFound
	}

	var rec model.Record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}

	return &rec, nil
}

// Scan returns every record matching all filter equalities, following
// pagination until the table is exhausted.
func (s *DynamoTableStore) Scan(ctx context.Context, tableName string, filter table.Filter) ([]*model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &dynamodb.ScanInput{
		TableName: aws.String(tableName),
	}

	if len(filter) > 0 {
		expr, err := expression.NewBuilder().WithFilter(filterCondition(filter)).Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build scan filter: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	var records []*model.Record
	for {
		out, err := s.client.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to scan table %q: %w", tableName, translateTableErr(err))
		}

		var page []*model.Record
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan results: %w", err)
		}
		records = append(records, page...)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	return records, nil
}

// UpdateAttributes overwrites only the named attributes of the record keyed
// by id. Returns table.ErrRecordNotFound when the record does not exist.
func (s *DynamoTableStore) UpdateAttributes(ctx context.Context, tableName, id string, updates table.Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(updates) == 0 {
		return nil
	}

	// Validate attribute names and value types before touching the store,
	// matching the embedded implementations.
	if err := table.ApplyUpdate(&model.Record{}, updates); err != nil {
		return err
	}

	var update expression.UpdateBuilder
	for attr, value := range updates {
		update = update.Set(expression.Name(attr), expression.Value(value))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name(model.AttrID))).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       recordKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var failed *types.ConditionalCheckFailedException
		if errors.As(err, &failed) {
			return table.ErrRecordNotFound
		}
		return fmt.Errorf("failed to update record %s: %w", id, translateTableErr(err))
	}

	return nil
}

// DeleteRecord removes the record keyed by id. Deleting a missing record is
// not an error.
func (s *DynamoTableStore) DeleteRecord(ctx context.Context, tableName, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key:       recordKey(id),
	})
	if err != nil {
		return fmt.Errorf("failed to delete record %s: %w", id, translateTableErr(err))
	}

	return nil
}

func recordKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		model.AttrID: &types.AttributeValueMemberS{Value: id},
	}
}

func filterCondition(filter table.Filter) expression.ConditionBuilder {
	var cond expression.ConditionBuilder
	first := true
	for attr, value := range filter {
		eq := expression.Name(attr).Equal(expression.Value(value))
		if first {
			cond = eq
			first = false
		} else {
			cond = cond.And(eq)
		}
	}
	return cond
}
