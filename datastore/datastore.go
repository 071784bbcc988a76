/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/storagemodels"
)

// MaxTransactItems is the storage layer's per-call transactional write limit.
// Larger logical batches must be chunked by the caller.
const MaxTransactItems = 100

// Store is the narrow contract CompactConnect requires of its key-value
// document store: item get/put/delete, range query with pagination and a
// secondary-index query mode, atomic multi-item transactional write with a
// fixed per-call item limit, and an atomic counter increment.
type Store interface {
	// Get retrieves one item by key. A missing item returns (nil, nil).
	Get(ctx context.Context, key storagemodels.ItemKey) (map[string]types.AttributeValue, error)

	// Put stores one item, replacing any existing item with the same key.
	Put(ctx context.Context, item map[string]types.AttributeValue) error

	// Delete removes one item by key. Deleting a missing item is not an
	// error.
	Delete(ctx context.Context, key storagemodels.ItemKey) error

	// Query returns one page of results. Callers needing the full result
	// set must follow LastEvaluatedKey; see QueryAll.
	Query(ctx context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error)

	// TransactWrite applies up to MaxTransactItems operations atomically:
	// either every operation commits or none does.
	TransactWrite(ctx context.Context, ops []storagemodels.TransactOp) error

	// AtomicAdd atomically adds delta to a numeric attribute, creating the
	// item if absent, and returns the new value. No two concurrent callers
	// observe the same returned value.
	AtomicAdd(ctx context.Context, key storagemodels.ItemKey, attribute string, delta int64) (int64, error)
}

// QueryAll drains a query, following LastEvaluatedKey until exhaustion and
// accumulating every page's items into one slice. Returning only the final
// page is a known pitfall; every caller that needs a complete result set
// must go through here.
func QueryAll(ctx context.Context, s Store, params *storagemodels.QueryParams) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	p := *params
	for {
		page, err := s.Query(ctx, &p)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
		if len(page.LastEvaluatedKey) == 0 {
			return items, nil
		}
		p.ExclusiveStartKey = page.LastEvaluatedKey
	}
}
