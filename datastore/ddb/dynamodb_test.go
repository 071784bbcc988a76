/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	goerrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/storagemodels"
)

// fakeClient implements DynamoDBAPI with injectable behavior per call.
type fakeClient struct {
	getFn      func(*sdk.GetItemInput) (*sdk.GetItemOutput, error)
	putFn      func(*sdk.PutItemInput) (*sdk.PutItemOutput, error)
	deleteFn   func(*sdk.DeleteItemInput) (*sdk.DeleteItemOutput, error)
	queryFn    func(*sdk.QueryInput) (*sdk.QueryOutput, error)
	updateFn   func(*sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error)
	transactFn func(*sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error)

	queryCalls    int
	transactCalls int
}

func (f *fakeClient) GetItem(_ context.Context, params *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	return f.getFn(params)
}

func (f *fakeClient) PutItem(_ context.Context, params *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	return f.putFn(params)
}

func (f *fakeClient) DeleteItem(_ context.Context, params *sdk.DeleteItemInput, _ ...func(*sdk.Options)) (*sdk.DeleteItemOutput, error) {
	return f.deleteFn(params)
}

func (f *fakeClient) Query(_ context.Context, params *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.queryCalls++
	return f.queryFn(params)
}

func (f *fakeClient) UpdateItem(_ context.Context, params *sdk.UpdateItemInput, _ ...func(*sdk.Options)) (*sdk.UpdateItemOutput, error) {
	return f.updateFn(params)
}

func (f *fakeClient) TransactWriteItems(_ context.Context, params *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.transactCalls++
	return f.transactFn(params)
}

func newTestStore(client DynamoDBAPI) *DynamodbDataStore {
	store := NewDynamodbDataStore(client, "provider-table")
	store.retry = storagemodels.RetryOptions{MaxRetries: 2, RetryBackoff: time.Millisecond}
	return store
}

func TestBuildQueryInput(t *testing.T) {
	store := newTestStore(nil)

	t.Run("partition key is required", func(t *testing.T) {
		_, err := store.buildQueryInput(&storagemodels.QueryParams{})
		if !errors.IsInvalidRequest(err) {
			t.Errorf("got %v, want invalid request", err)
		}
	})

	t.Run("partition-only query", func(t *testing.T) {
		input, err := store.buildQueryInput(&storagemodels.QueryParams{PartitionKey: "aslp#PROVIDER#p1"})
		if err != nil {
			t.Fatalf("buildQueryInput: %v", err)
		}
		if *input.KeyConditionExpression != "#pk = :pk" {
			t.Errorf("keyCondition = %s", *input.KeyConditionExpression)
		}
		if input.ExpressionAttributeNames["#pk"] != "pk" {
			t.Errorf("#pk = %s, want the table partition attribute", input.ExpressionAttributeNames["#pk"])
		}
		pk := input.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS)
		if pk.Value != "aslp#PROVIDER#p1" {
			t.Errorf(":pk = %s", pk.Value)
		}
		if input.IndexName != nil {
			t.Error("table query carries an index name")
		}
	})

	t.Run("sort key prefix", func(t *testing.T) {
		input, err := store.buildQueryInput(&storagemodels.QueryParams{
			PartitionKey:  "aslp#PROVIDER#p1",
			SortKeyPrefix: "aslp#PROVIDER#license/",
		})
		if err != nil {
			t.Fatalf("buildQueryInput: %v", err)
		}
		if !strings.Contains(*input.KeyConditionExpression, "begins_with(#sk, :skp)") {
			t.Errorf("keyCondition = %s", *input.KeyConditionExpression)
		}
		skp := input.ExpressionAttributeValues[":skp"].(*types.AttributeValueMemberS)
		if skp.Value != "aslp#PROVIDER#license/" {
			t.Errorf(":skp = %s", skp.Value)
		}
	})

	t.Run("sort key between", func(t *testing.T) {
		input, err := store.buildQueryInput(&storagemodels.QueryParams{
			PartitionKey:   "C#aslp#J#oh#D#2024-06",
			IndexName:      LicenseUploadDateGSIName,
			SortKeyBetween: &storagemodels.SortKeyRange{Start: "TIME#0000000001", End: "TIME#0000000009"},
		})
		if err != nil {
			t.Fatalf("buildQueryInput: %v", err)
		}
		if !strings.Contains(*input.KeyConditionExpression, "#sk BETWEEN :sk1 AND :sk2") {
			t.Errorf("keyCondition = %s", *input.KeyConditionExpression)
		}
		if input.ExpressionAttributeNames["#pk"] != "licenseUploadDateGSIPK" ||
			input.ExpressionAttributeNames["#sk"] != "licenseUploadDateGSISK" {
			t.Errorf("index attribute names = %v", input.ExpressionAttributeNames)
		}
		if *input.IndexName != LicenseUploadDateGSIName {
			t.Errorf("indexName = %s", *input.IndexName)
		}
	})

	t.Run("type filter", func(t *testing.T) {
		input, err := store.buildQueryInput(&storagemodels.QueryParams{
			PartitionKey: "aslp#PROVIDER#p1",
			FilterTypes:  []string{"provider", "license"},
		})
		if err != nil {
			t.Fatalf("buildQueryInput: %v", err)
		}
		if *input.FilterExpression != "#type IN (:type0, :type1)" {
			t.Errorf("filterExpression = %s", *input.FilterExpression)
		}
		if input.ExpressionAttributeNames["#type"] != "type" {
			t.Errorf("#type = %s", input.ExpressionAttributeNames["#type"])
		}
		t0 := input.ExpressionAttributeValues[":type0"].(*types.AttributeValueMemberS)
		t1 := input.ExpressionAttributeValues[":type1"].(*types.AttributeValueMemberS)
		if t0.Value != "provider" || t1.Value != "license" {
			t.Errorf("filter values = %s, %s", t0.Value, t1.Value)
		}
	})

	t.Run("no type filter", func(t *testing.T) {
		input, err := store.buildQueryInput(&storagemodels.QueryParams{PartitionKey: "aslp#PROVIDER#p1"})
		if err != nil {
			t.Fatalf("buildQueryInput: %v", err)
		}
		if input.FilterExpression != nil {
			t.Errorf("unexpected filterExpression %s", *input.FilterExpression)
		}
	})

	t.Run("prefix and between are mutually exclusive", func(t *testing.T) {
		_, err := store.buildQueryInput(&storagemodels.QueryParams{
			PartitionKey:   "p",
			SortKeyPrefix:  "a",
			SortKeyBetween: &storagemodels.SortKeyRange{Start: "a", End: "b"},
		})
		if !errors.IsInvalidRequest(err) {
			t.Errorf("got %v, want invalid request", err)
		}
	})

	t.Run("unknown index", func(t *testing.T) {
		_, err := store.buildQueryInput(&storagemodels.QueryParams{
			PartitionKey: "p",
			IndexName:    "nosuchIndex",
		})
		if !errors.IsInvalidRequest(err) {
			t.Errorf("got %v, want invalid request", err)
		}
	})
}

func TestGetMissingItemIsNilNil(t *testing.T) {
	client := &fakeClient{
		getFn: func(params *sdk.GetItemInput) (*sdk.GetItemOutput, error) {
			if *params.TableName != "provider-table" {
				return nil, fmt.Errorf("wrong table %s", *params.TableName)
			}
			return &sdk.GetItemOutput{}, nil
		},
	}
	store := newTestStore(client)

	item, err := store.Get(context.Background(), storagemodels.ItemKey{PK: "p", SK: "s"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if item != nil {
		t.Error("missing item must be (nil, nil)")
	}
}

func TestTransactWrite(t *testing.T) {
	put := map[string]types.AttributeValue{
		"pk": &types.AttributeValueMemberS{Value: "p"},
		"sk": &types.AttributeValueMemberS{Value: "s"},
	}

	t.Run("builds put and delete items", func(t *testing.T) {
		var captured *sdk.TransactWriteItemsInput
		client := &fakeClient{
			transactFn: func(params *sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error) {
				captured = params
				return &sdk.TransactWriteItemsOutput{}, nil
			},
		}
		store := newTestStore(client)

		err := store.TransactWrite(context.Background(), []storagemodels.TransactOp{
			{Put: put},
			{Delete: &storagemodels.ItemKey{PK: "p", SK: "s2"}},
		})
		if err != nil {
			t.Fatalf("TransactWrite: %v", err)
		}
		if len(captured.TransactItems) != 2 {
			t.Fatalf("got %d transact items", len(captured.TransactItems))
		}
		if captured.TransactItems[0].Put == nil || captured.TransactItems[1].Delete == nil {
			t.Error("operation order not preserved")
		}
	})

	t.Run("cancellation is a transaction failure", func(t *testing.T) {
		client := &fakeClient{
			transactFn: func(*sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error) {
				return nil, &types.TransactionCanceledException{}
			},
		}
		store := newTestStore(client)

		err := store.TransactWrite(context.Background(), []storagemodels.TransactOp{{Put: put}})
		if !errors.IsTransactionFailed(err) {
			t.Errorf("got %v, want transaction failed", err)
		}
	})

	t.Run("other errors pass through unclassified", func(t *testing.T) {
		client := &fakeClient{
			transactFn: func(*sdk.TransactWriteItemsInput) (*sdk.TransactWriteItemsOutput, error) {
				return nil, fmt.Errorf("connection reset")
			},
		}
		store := newTestStore(client)

		err := store.TransactWrite(context.Background(), []storagemodels.TransactOp{{Put: put}})
		if err == nil || errors.IsTransactionFailed(err) {
			t.Errorf("got %v, want an unclassified error", err)
		}
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		client := &fakeClient{}
		store := newTestStore(client)
		if err := store.TransactWrite(context.Background(), nil); err != nil {
			t.Fatalf("TransactWrite: %v", err)
		}
		if client.transactCalls != 0 {
			t.Error("empty batch reached the client")
		}
	})

	t.Run("oversized batch rejected before the client", func(t *testing.T) {
		client := &fakeClient{}
		store := newTestStore(client)
		ops := make([]storagemodels.TransactOp, datastore.MaxTransactItems+1)
		for i := range ops {
			ops[i] = storagemodels.TransactOp{Put: put}
		}
		if err := store.TransactWrite(context.Background(), ops); !errors.IsInternal(err) {
			t.Errorf("got %v, want internal error", err)
		}
		if client.transactCalls != 0 {
			t.Error("oversized batch reached the client")
		}
	})
}

func TestAtomicAdd(t *testing.T) {
	t.Run("returns the post-add value", func(t *testing.T) {
		var captured *sdk.UpdateItemInput
		client := &fakeClient{
			updateFn: func(params *sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error) {
				captured = params
				return &sdk.UpdateItemOutput{
					Attributes: map[string]types.AttributeValue{
						"privilegeCount": &types.AttributeValueMemberN{Value: "42"},
					},
				}, nil
			},
		}
		store := newTestStore(client)

		n, err := store.AtomicAdd(context.Background(), storagemodels.ItemKey{PK: "p", SK: "s"}, "privilegeCount", 1)
		if err != nil {
			t.Fatalf("AtomicAdd: %v", err)
		}
		if n != 42 {
			t.Errorf("n = %d, want 42", n)
		}
		if *captured.UpdateExpression != "ADD #attr :delta" {
			t.Errorf("updateExpression = %s", *captured.UpdateExpression)
		}
		delta := captured.ExpressionAttributeValues[":delta"].(*types.AttributeValueMemberN)
		if delta.Value != "1" {
			t.Errorf(":delta = %s", delta.Value)
		}
	})

	t.Run("non-numeric attribute is an internal error", func(t *testing.T) {
		client := &fakeClient{
			updateFn: func(*sdk.UpdateItemInput) (*sdk.UpdateItemOutput, error) {
				return &sdk.UpdateItemOutput{
					Attributes: map[string]types.AttributeValue{
						"privilegeCount": &types.AttributeValueMemberS{Value: "forty-two"},
					},
				}, nil
			},
		}
		store := newTestStore(client)

		if _, err := store.AtomicAdd(context.Background(), storagemodels.ItemKey{PK: "p", SK: "s"}, "privilegeCount", 1); !errors.IsInternal(err) {
			t.Errorf("got %v, want internal error", err)
		}
	})
}

func TestQueryWithRetry(t *testing.T) {
	params := &storagemodels.QueryParams{PartitionKey: "aslp#PROVIDER#p1"}

	t.Run("retries throttling then succeeds", func(t *testing.T) {
		client := &fakeClient{}
		client.queryFn = func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			if client.queryCalls < 3 {
				return nil, &types.ProvisionedThroughputExceededException{}
			}
			return &sdk.QueryOutput{}, nil
		}
		store := newTestStore(client)

		if _, err := store.Query(context.Background(), params); err != nil {
			t.Fatalf("Query: %v", err)
		}
		if client.queryCalls != 3 {
			t.Errorf("query calls = %d, want 3", client.queryCalls)
		}
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		client := &fakeClient{}
		client.queryFn = func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			return nil, &types.RequestLimitExceeded{}
		}
		store := newTestStore(client)

		_, err := store.Query(context.Background(), params)
		if err == nil || !strings.Contains(err.Error(), "after 2 retries") {
			t.Errorf("got %v, want retries-exhausted error", err)
		}
		if client.queryCalls != 3 {
			t.Errorf("query calls = %d, want initial attempt plus two retries", client.queryCalls)
		}
	})

	t.Run("non-retryable errors fail immediately", func(t *testing.T) {
		client := &fakeClient{}
		client.queryFn = func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			return nil, &types.ResourceNotFoundException{}
		}
		store := newTestStore(client)

		if _, err := store.Query(context.Background(), params); err == nil {
			t.Fatal("expected an error")
		}
		if client.queryCalls != 1 {
			t.Errorf("query calls = %d, want no retries", client.queryCalls)
		}
	})

	t.Run("canceled context stops the loop", func(t *testing.T) {
		client := &fakeClient{}
		client.queryFn = func(*sdk.QueryInput) (*sdk.QueryOutput, error) {
			return nil, &types.InternalServerError{}
		}
		store := newTestStore(client)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := store.Query(ctx, params); !goerrors.Is(err, context.Canceled) {
			t.Errorf("got %v, want context.Canceled", err)
		}
	})
}
