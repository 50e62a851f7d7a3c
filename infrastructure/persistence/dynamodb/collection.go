// Package dynamodb stores anchors in a single DynamoDB table keyed by anchor
// id, with a global secondary index on the node id.
package dynamodb

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/KiraKC/Spectacle-Hypertext/infrastructure/persistence/abstractions"
	"github.com/KiraKC/Spectacle-Hypertext/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const (
	// DynamoDB request limits
	maxBatchWrite = 25
	maxBatchGet   = 100

	maxRetries = 3

	attrPK     = "PK"
	attrNodeID = "NodeID"

	// DefaultNodeIndex is the GSI on NodeID used for node queries.
	DefaultNodeIndex = "NodeIndex"
)

// API is the subset of the DynamoDB client the collection uses.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchGetItem(ctx context.Context, params *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Collection is an abstractions.Collection over a DynamoDB table.
type Collection struct {
	client    API
	tableName string
	nodeIndex string
	logger    *zap.Logger
	backoff   func(retry int) time.Duration
}

var _ abstractions.Collection = (*Collection)(nil)

// NewCollection creates a collection over tableName. An empty nodeIndex
// selects DefaultNodeIndex.
func NewCollection(client API, tableName, nodeIndex string, logger *zap.Logger) *Collection {
	if nodeIndex == "" {
		nodeIndex = DefaultNodeIndex
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection{
		client:    client,
		tableName: tableName,
		nodeIndex: nodeIndex,
		logger:    logger,
		backoff: func(retry int) time.Duration {
			return time.Duration(retry*retry+1) * 100 * time.Millisecond
		},
	}
}

// InsertOne writes a row unless its key already exists.
func (c *Collection) InsertOne(ctx context.Context, row abstractions.Row) (abstractions.Result, error) {
	item, err := attributevalue.MarshalMap(row)
	if err != nil {
		return abstractions.Result{}, errors.NewMappingError("cannot encode row " + row.ID).WithCause(err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name(attrPK).AttributeNotExists()).
		Build()
	if err != nil {
		return abstractions.Result{}, errors.NewInternalError("failed to build condition").WithCause(err)
	}

	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(c.tableName),
		Item:                     item,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if stderrors.As(err, &conditionalCheckFailed) {
			return abstractions.Result{}, errors.NewConflictError(fmt.Sprintf("duplicate key %s", row.ID)).WithCause(err)
		}
		return abstractions.Result{}, errors.NewDatabaseError("PutItem", err)
	}
	return abstractions.Result{OK: true, N: 1}, nil
}

// InsertMany writes rows in batches of 25. BatchWriteItem cannot carry a
// condition, so existing keys are overwritten rather than rejected.
func (c *Collection) InsertMany(ctx context.Context, rows []abstractions.Row) (abstractions.Result, error) {
	requests := make([]types.WriteRequest, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if _, dup := seen[row.ID]; dup {
			return abstractions.Result{}, errors.NewConflictError(fmt.Sprintf("duplicate key %s in batch", row.ID))
		}
		seen[row.ID] = struct{}{}

		item, err := attributevalue.MarshalMap(row)
		if err != nil {
			return abstractions.Result{}, errors.NewMappingError("cannot encode row " + row.ID).WithCause(err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	if err := c.batchWrite(ctx, requests); err != nil {
		return abstractions.Result{}, err
	}
	return abstractions.Result{OK: true, N: len(rows)}, nil
}

// FindOne fetches the first row matching the filter.
func (c *Collection) FindOne(ctx context.Context, filter abstractions.Filter) (abstractions.Document, error) {
	if filter.Field == abstractions.FieldID && len(filter.Values) == 1 {
		out, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
			TableName: aws.String(c.tableName),
			Key:       key(filter.Values[0]),
		})
		if err != nil {
			return nil, errors.NewDatabaseError("GetItem", err)
		}
		if out.Item == nil {
			return nil, abstractions.ErrNoDocuments
		}
		return itemDocument(out.Item), nil
	}

	docs, err := c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, abstractions.ErrNoDocuments
	}
	return docs[0], nil
}

// Find returns every row matching the filter.
func (c *Collection) Find(ctx context.Context, filter abstractions.Filter) ([]abstractions.Document, error) {
	items, err := c.findItems(ctx, filter, nil)
	if err != nil {
		return nil, err
	}
	docs := make([]abstractions.Document, 0, len(items))
	for _, item := range items {
		docs = append(docs, itemDocument(item))
	}
	return docs, nil
}

// DeleteOne removes the first row matching the filter.
func (c *Collection) DeleteOne(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	var id string
	if filter.Field == abstractions.FieldID && len(filter.Values) > 0 {
		id = filter.Values[0]
	} else {
		ids, err := c.keysFor(ctx, filter)
		if err != nil {
			return abstractions.Result{}, err
		}
		if len(ids) == 0 {
			return abstractions.Result{OK: true}, nil
		}
		id = ids[0]
	}

	out, err := c.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(c.tableName),
		Key:          key(id),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return abstractions.Result{}, errors.NewDatabaseError("DeleteItem", err)
	}
	n := 0
	if len(out.Attributes) > 0 {
		n = 1
	}
	return abstractions.Result{OK: true, N: n}, nil
}

// DeleteMany removes every row matching the filter in batches of 25.
// Node and full-table deletes read the matching keys first.
func (c *Collection) DeleteMany(ctx context.Context, filter abstractions.Filter) (abstractions.Result, error) {
	var ids []string
	if filter.Field == abstractions.FieldID {
		ids = dedupe(filter.Values)
	} else {
		var err error
		if ids, err = c.keysFor(ctx, filter); err != nil {
			return abstractions.Result{}, err
		}
	}

	requests := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key(id)}})
	}
	if err := c.batchWrite(ctx, requests); err != nil {
		return abstractions.Result{}, err
	}
	return abstractions.Result{OK: true, N: len(ids)}, nil
}

func (c *Collection) keysFor(ctx context.Context, filter abstractions.Filter) ([]string, error) {
	proj := expression.NamesList(expression.Name(attrPK))
	items, err := c.findItems(ctx, filter, &proj)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if pk, ok := item[attrPK].(*types.AttributeValueMemberS); ok {
			ids = append(ids, pk.Value)
		}
	}
	return ids, nil
}

func (c *Collection) findItems(ctx context.Context, filter abstractions.Filter, proj *expression.ProjectionBuilder) ([]map[string]types.AttributeValue, error) {
	switch filter.Field {
	case "":
		return c.scan(ctx, proj)
	case abstractions.FieldID:
		return c.batchGet(ctx, dedupe(filter.Values), proj)
	case abstractions.FieldNodeID:
		var items []map[string]types.AttributeValue
		for _, nodeID := range dedupe(filter.Values) {
			found, err := c.queryNode(ctx, nodeID, proj)
			if err != nil {
				return nil, err
			}
			items = append(items, found...)
		}
		return items, nil
	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unsupported filter field %q", filter.Field))
	}
}

// batchGet reads keys in chunks of 100, resubmitting unprocessed keys.
func (c *Collection) batchGet(ctx context.Context, ids []string, proj *expression.ProjectionBuilder) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	for start := 0; start < len(ids); start += maxBatchGet {
		end := min(start+maxBatchGet, len(ids))

		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, key(id))
		}
		request := types.KeysAndAttributes{Keys: keys}
		if proj != nil {
			expr, err := expression.NewBuilder().WithProjection(*proj).Build()
			if err != nil {
				return nil, errors.NewInternalError("failed to build projection").WithCause(err)
			}
			request.ProjectionExpression = expr.Projection()
			request.ExpressionAttributeNames = expr.Names()
		}

		pending := map[string]types.KeysAndAttributes{c.tableName: request}
		for retry := 0; len(pending) > 0; retry++ {
			if retry > maxRetries {
				return nil, errors.NewDatabaseError("BatchGetItem",
					fmt.Errorf("%d keys still unprocessed after %d retries", len(pending[c.tableName].Keys), maxRetries))
			}
			if retry > 0 {
				if err := c.wait(ctx, retry); err != nil {
					return nil, err
				}
			}

			out, err := c.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, errors.NewDatabaseError("BatchGetItem", err)
			}
			items = append(items, out.Responses[c.tableName]...)

			pending = nil
			if unprocessed, ok := out.UnprocessedKeys[c.tableName]; ok && len(unprocessed.Keys) > 0 {
				c.logger.Debug("Resubmitting unprocessed keys",
					zap.Int("unprocessedCount", len(unprocessed.Keys)),
					zap.Int("retry", retry+1),
				)
				pending = map[string]types.KeysAndAttributes{c.tableName: unprocessed}
			}
		}
	}
	return items, nil
}

// batchWrite sends write requests in chunks of 25 with retry for
// unprocessed items.
func (c *Collection) batchWrite(ctx context.Context, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchWrite {
		end := min(start+maxBatchWrite, len(requests))

		unprocessed := requests[start:end]
		for retry := 0; len(unprocessed) > 0; retry++ {
			if retry > maxRetries {
				return errors.NewDatabaseError("BatchWriteItem",
					fmt.Errorf("failed to process %d items after %d retries", len(unprocessed), maxRetries))
			}
			if retry > 0 {
				if err := c.wait(ctx, retry); err != nil {
					return err
				}
			}

			out, err := c.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{c.tableName: unprocessed},
			})
			if err != nil {
				return errors.NewDatabaseError("BatchWriteItem", err)
			}

			unprocessed = out.UnprocessedItems[c.tableName]
			if len(unprocessed) > 0 {
				c.logger.Debug("Found unprocessed items, retrying",
					zap.Int("unprocessedCount", len(unprocessed)),
					zap.Int("retry", retry+1),
				)
			}
		}
	}
	return nil
}

func (c *Collection) queryNode(ctx context.Context, nodeID string, proj *expression.ProjectionBuilder) ([]map[string]types.AttributeValue, error) {
	builder := expression.NewBuilder().
		WithKeyCondition(expression.Key(attrNodeID).Equal(expression.Value(nodeID)))
	if proj != nil {
		builder = builder.WithProjection(*proj)
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, errors.NewInternalError("failed to build query").WithCause(err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(c.tableName),
		IndexName:                 aws.String(c.nodeIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ProjectionExpression:      expr.Projection(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := c.client.Query(ctx, input)
		if err != nil {
			return nil, errors.NewDatabaseError("Query", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Collection) scan(ctx context.Context, proj *expression.ProjectionBuilder) ([]map[string]types.AttributeValue, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(c.tableName)}
	if proj != nil {
		expr, err := expression.NewBuilder().WithProjection(*proj).Build()
		if err != nil {
			return nil, errors.NewInternalError("failed to build projection").WithCause(err)
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	var items []map[string]types.AttributeValue
	for {
		out, err := c.client.Scan(ctx, input)
		if err != nil {
			return nil, errors.NewDatabaseError("Scan", err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (c *Collection) wait(ctx context.Context, retry int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff(retry)):
		return nil
	}
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: id},
	}
}

// dedupe drops repeated ids; batch requests reject duplicate keys.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// itemDocument defers attribute unmarshalling until the row is read.
type itemDocument map[string]types.AttributeValue

func (d itemDocument) Decode(row *abstractions.Row) error {
	return attributevalue.UnmarshalMap(d, row)
}
