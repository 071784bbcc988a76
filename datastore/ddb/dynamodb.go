/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	goerrors "errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/storagemodels"
)

// DynamoDBAPI is the subset of the DynamoDB client the store uses. Narrowing
// the dependency keeps the store testable without the network.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *sdk.DeleteItemInput, optFns ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	UpdateItem(ctx context.Context, params *sdk.UpdateItemInput, optFns ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *sdk.TransactWriteItemsInput, optFns ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error)
}

var _ DynamoDBAPI = (*sdk.Client)(nil)

// DynamodbDataStore implements datastore.Store using AWS DynamoDB.
type DynamodbDataStore struct {
	client    DynamoDBAPI
	tableName string
	retry     storagemodels.RetryOptions
}

var _ datastore.Store = (*DynamodbDataStore)(nil)

// NewDynamoDBClient initializes a DynamoDB client using AWS credentials.
func NewDynamoDBClient(ctx context.Context, awsAccessKey, awsSecretKey, awsRegion string) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// NewClientFromConfig initializes a DynamoDB client from an already-loaded
// AWS configuration, for callers using the ambient credential chain.
func NewClientFromConfig(cfg aws.Config) *sdk.Client {
	return sdk.NewFromConfig(cfg)
}

// NewDynamodbDataStore constructs a store backed by the given client and
// table.
func NewDynamodbDataStore(client DynamoDBAPI, tableName string) *DynamodbDataStore {
	return &DynamodbDataStore{
		client:    client,
		tableName: tableName,
		retry:     storagemodels.DefaultRetryOptions(),
	}
}

// Get retrieves a single item by key. A missing item returns (nil, nil).
func (d *DynamodbDataStore) Get(ctx context.Context, key storagemodels.ItemKey) (map[string]types.AttributeValue, error) {
	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &d.tableName,
		Key:       tableKey(key),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	return out.Item, nil
}

// Put stores the given item.
func (d *DynamodbDataStore) Put(ctx context.Context, item map[string]types.AttributeValue) error {
	_, err := d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	return nil
}

// Delete removes an item by key.
func (d *DynamodbDataStore) Delete(ctx context.Context, key storagemodels.ItemKey) error {
	_, err := d.client.DeleteItem(ctx, &sdk.DeleteItemInput{
		TableName: &d.tableName,
		Key:       tableKey(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Query executes one page of a table or index query.
func (d *DynamodbDataStore) Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	input, err := d.buildQueryInput(params)
	if err != nil {
		return nil, err
	}
	out, err := d.queryWithRetry(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return &storagemodels.QueryPage{
		Items:            out.Items,
		LastEvaluatedKey: out.LastEvaluatedKey,
	}, nil
}

// buildQueryInput translates structured query parameters into a QueryInput.
func (d *DynamodbDataStore) buildQueryInput(params *storagemodels.QueryParams) (*sdk.QueryInput, error) {
	if params.PartitionKey == "" {
		return nil, errors.NewInvalidRequestError("partitionKey", "partition key value is required")
	}

	pkName, skName := "pk", "sk"
	var indexName *string
	if params.IndexName != "" {
		cfg, ok := GetGSIConfig(params.IndexName)
		if !ok {
			return nil, errors.NewInvalidRequestError("indexName", fmt.Sprintf("unknown index %q", params.IndexName))
		}
		pkName, skName = cfg.PartitionKeyName, cfg.SortKeyName
		indexName = aws.String(cfg.IndexName)
	}

	keyCond := "#pk = :pk"
	exprNames := map[string]string{"#pk": pkName}
	exprVals := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: params.PartitionKey},
	}

	switch {
	case params.SortKeyPrefix != "" && params.SortKeyBetween != nil:
		return nil, errors.NewInvalidRequestError("sortKey", "prefix and between conditions are mutually exclusive")
	case params.SortKeyPrefix != "":
		keyCond += " AND begins_with(#sk, :skp)"
		exprNames["#sk"] = skName
		exprVals[":skp"] = &types.AttributeValueMemberS{Value: params.SortKeyPrefix}
	case params.SortKeyBetween != nil:
		keyCond += " AND #sk BETWEEN :sk1 AND :sk2"
		exprNames["#sk"] = skName
		exprVals[":sk1"] = &types.AttributeValueMemberS{Value: params.SortKeyBetween.Start}
		exprVals[":sk2"] = &types.AttributeValueMemberS{Value: params.SortKeyBetween.End}
	}

	input := &sdk.QueryInput{
		TableName:                 &d.tableName,
		IndexName:                 indexName,
		KeyConditionExpression:    &keyCond,
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprVals,
		Limit:                     params.Limit,
		ExclusiveStartKey:         params.ExclusiveStartKey,
		ScanIndexForward:          params.ScanIndexForward,
	}

	if len(params.FilterTypes) > 0 {
		exprNames["#type"] = "type"
		placeholders := make([]string, 0, len(params.FilterTypes))
		for i, rt := range params.FilterTypes {
			p := fmt.Sprintf(":type%d", i)
			placeholders = append(placeholders, p)
			exprVals[p] = &types.AttributeValueMemberS{Value: rt}
		}
		filter := fmt.Sprintf("#type IN (%s)", strings.Join(placeholders, ", "))
		input.FilterExpression = &filter
	}

	return input, nil
}

// TransactWrite applies up to datastore.MaxTransactItems operations in one
// atomic transaction.
func (d *DynamodbDataStore) TransactWrite(ctx context.Context, ops []storagemodels.TransactOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > datastore.MaxTransactItems {
		return errors.NewInternalError("transaction of %d items exceeds the %d item limit", len(ops), datastore.MaxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		switch {
		case op.Put != nil:
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{TableName: &d.tableName, Item: op.Put},
			})
		case op.Delete != nil:
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{TableName: &d.tableName, Key: tableKey(*op.Delete)},
			})
		default:
			return errors.NewInternalError("transact op with neither put nor delete")
		}
	}

	_, err := d.client.TransactWriteItems(ctx, &sdk.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if goerrors.As(err, &canceled) {
			return errors.NewTransactionFailedError("TransactWriteItems", err)
		}
		return fmt.Errorf("TransactWriteItems failed: %w", err)
	}
	return nil
}

// AtomicAdd atomically adds delta to a numeric attribute via an ADD update
// expression, creating the item if absent, and returns the new value.
func (d *DynamodbDataStore) AtomicAdd(ctx context.Context, key storagemodels.ItemKey, attribute string, delta int64) (int64, error) {
	updateExpr := "ADD #attr :delta"
	out, err := d.client.UpdateItem(ctx, &sdk.UpdateItemInput{
		TableName:        &d.tableName,
		Key:              tableKey(key),
		UpdateExpression: &updateExpr,
		ExpressionAttributeNames: map[string]string{
			"#attr": attribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatInt(delta, 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		return 0, fmt.Errorf("atomic add failed: %w", err)
	}
	nAttr, ok := out.Attributes[attribute].(*types.AttributeValueMemberN)
	if !ok {
		return 0, errors.NewInternalError("atomic add returned non-numeric %q attribute", attribute)
	}
	n, err := strconv.ParseInt(nAttr.Value, 10, 64)
	if err != nil {
		return 0, errors.NewInternalError("atomic add returned unparsable %q value %q", attribute, nAttr.Value)
	}
	return n, nil
}

func tableKey(key storagemodels.ItemKey) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: key.PK},
		"sk": &types.AttributeValueMemberS{Value: key.SK},
	}
}
