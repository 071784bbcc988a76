/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryParams defines parameters for one page of a table or index query.
// The structured form (rather than raw expression strings) lets the mock
// store interpret queries without an expression parser.
type QueryParams struct {
	// IndexName is set to query a secondary index instead of the table.
	IndexName string
	// PartitionKey is the required equality value for the partition key.
	PartitionKey string
	// SortKeyPrefix, if set, applies a begins_with condition on the sort key.
	SortKeyPrefix string
	// SortKeyBetween, if set, applies a BETWEEN condition on the sort key.
	SortKeyBetween *SortKeyRange
	// Limit defines an optional limit per query page.
	Limit *int32
	// ExclusiveStartKey resumes pagination from a prior page's
	// LastEvaluatedKey.
	ExclusiveStartKey map[string]types.AttributeValue
	// ScanIndexForward specifies the traversal order. If nil or true,
	// ascending.
	ScanIndexForward *bool
	// FilterTypes, if non-empty, restricts results to items whose "type"
	// discriminator is one of the given values. Applied server-side as a
	// filter expression, so unwanted record kinds never cross the wire.
	FilterTypes []string
}

// SortKeyRange is an inclusive sort-key range.
type SortKeyRange struct {
	Start string
	End   string
}

// QueryPage is one page of query results. A non-empty LastEvaluatedKey means
// more pages remain; callers must keep paging and accumulate every page.
type QueryPage struct {
	Items            []map[string]types.AttributeValue
	LastEvaluatedKey map[string]types.AttributeValue
}

// TransactOp is one operation inside a transactional write: exactly one of
// Put or Delete is set.
type TransactOp struct {
	Put    map[string]types.AttributeValue
	Delete *ItemKey
}

// ItemKey addresses one item by its table keys.
type ItemKey struct {
	PK string
	SK string
}

// RetryOptions configures retry behavior for throttled or transient query
// failures.
type RetryOptions struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// DefaultRetryOptions returns the default retry configuration.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
	}
}
