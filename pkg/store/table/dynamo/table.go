package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/marmos91/s3dav/internal/logger"
	"github.com/marmos91/s3dav/internal/waitfor"
	"github.com/marmos91/s3dav/pkg/model"
	"github.com/marmos91/s3dav/pkg/store/table"
)

// CreateTable provisions the named table with a single hash key on the
// entity id attribute, then blocks until DynamoDB reports it ACTIVE.
// Creating a table that already exists only waits for it to become ACTIVE.
func (s *DynamoTableStore) CreateTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(model.AttrID),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(model.AttrID),
				KeyType:       types.KeyTypeHash,
			},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(s.readCapacity),
			WriteCapacityUnits: aws.Int64(s.writeCapacity),
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create table %q: %w", tableName, err)
		}
		logger.Debug("Table %s already exists, waiting for it to become active", tableName)
	}

	if err := s.waitActive(ctx, tableName); err != nil {
		return fmt.Errorf("table %q did not become active: %w", tableName, err)
	}

	logger.Info("Table %s is active", tableName)
	return nil
}

// DeleteTable destroys the named table and blocks until DynamoDB no longer
// reports it. Deleting a missing table is not an error.
func (s *DynamoTableStore) DeleteTable(ctx context.Context, tableName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to delete table %q: %w", tableName, err)
	}

	if err := s.waitGone(ctx, tableName); err != nil {
		return fmt.Errorf("table %q was not deleted: %w", tableName, err)
	}

	logger.Info("Table %s deleted", tableName)
	return nil
}

// TableExists reports whether the named table exists and is ACTIVE. Tables
// still provisioning or being deleted report false.
func (s *DynamoTableStore) TableExists(ctx context.Context, tableName string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to describe table %q: %w", tableName, err)
	}

	return out.Table.TableStatus == types.TableStatusActive, nil
}

func (s *DynamoTableStore) waitActive(ctx context.Context, tableName string) error {
	return waitfor.Condition(ctx, table.ProvisionPollInterval, table.ProvisionTimeout,
		func(ctx context.Context) (bool, error) {
			out, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(tableName),
			})
			if err != nil {
				// The table may not be visible yet right after CreateTable.
				var notFound *types.ResourceNotFoundException
				if errors.As(err, &notFound) {
					return false, nil
				}
				return false, err
			}
			return out.Table.TableStatus == types.TableStatusActive, nil
		})
}

func (s *DynamoTableStore) waitGone(ctx context.Context, tableName string) error {
	return waitfor.Condition(ctx, table.ProvisionPollInterval, table.ProvisionTimeout,
		func(ctx context.Context) (bool, error) {
			_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
				TableName: aws.String(tableName),
			})
			if err != nil {
				var notFound *types.ResourceNotFoundException
				if errors.As(err, &notFound) {
					return true, nil
				}
				return false, err
			}
			return false, nil
		})
}
