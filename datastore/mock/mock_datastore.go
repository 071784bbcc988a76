/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Store for
// testing. It emulates the provider table's pagination, secondary indexes,
// transactional writes and atomic counters, with hooks to inject failures.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/datastore/ddb"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/storagemodels"
)

// Store is an in-memory datastore.Store.
type Store struct {
	mu       sync.Mutex
	items    map[string]map[string]map[string]types.AttributeValue // pk -> sk -> item
	pageSize int

	transactCalls int
	transactErr   func(call int, ops []storagemodels.TransactOp) error
}

var _ datastore.Store = (*Store)(nil)

// New creates an empty mock store. The default page size is effectively
// unbounded; use WithPageSize to force pagination in tests.
func New() *Store {
	return &Store{
		items:    make(map[string]map[string]map[string]types.AttributeValue),
		pageSize: 1 << 30,
	}
}

// WithPageSize caps the number of items returned per query page.
func (s *Store) WithPageSize(n int) *Store {
	s.pageSize = n
	return s
}

// WithTransactError installs a failure hook invoked before each transactional
// write with the 1-based call number. A non-nil return fails that call
// without applying any of its operations.
func (s *Store) WithTransactError(f func(call int, ops []storagemodels.TransactOp) error) *Store {
	s.transactErr = f
	return s
}

// TransactCalls returns how many transactional writes have been attempted.
func (s *Store) TransactCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactCalls
}

// Get retrieves one item by key, or (nil, nil) when absent.
func (s *Store) Get(_ context.Context, key storagemodels.ItemKey) (map[string]types.AttributeValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[key.PK][key.SK]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

// Put stores one item, replacing any existing item with the same key.
func (s *Store) Put(_ context.Context, item map[string]types.AttributeValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(item)
}

func (s *Store) putLocked(item map[string]types.AttributeValue) error {
	pk, err := stringAttr(item, "pk")
	if err != nil {
		return err
	}
	sk, err := stringAttr(item, "sk")
	if err != nil {
		return err
	}
	if s.items[pk] == nil {
		s.items[pk] = make(map[string]map[string]types.AttributeValue)
	}
	s.items[pk][sk] = copyItem(item)
	return nil
}

// Delete removes one item by key.
func (s *Store) Delete(_ context.Context, key storagemodels.ItemKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items[key.PK], key.SK)
	return nil
}

// Query executes one page of a table or index query.
func (s *Store) Query(_ context.Context, params *storagemodels.QueryParams) (*storagemodels.QueryPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pkName, skName := "pk", "sk"
	if params.IndexName != "" {
		cfg, ok := ddb.GetGSIConfig(params.IndexName)
		if !ok {
			return nil, errors.NewInvalidRequestError("indexName", "unknown index "+params.IndexName)
		}
		pkName, skName = cfg.PartitionKeyName, cfg.SortKeyName
	}

	type entry struct {
		sortValue string
		item      map[string]types.AttributeValue
	}
	var matched []entry
	for _, partition := range s.items {
		for _, item := range partition {
			pkVal, err := stringAttr(item, pkName)
			if err != nil || pkVal != params.PartitionKey {
				continue
			}
			skVal, err := stringAttr(item, skName)
			if err != nil {
				continue
			}
			if params.SortKeyPrefix != "" && !hasPrefix(skVal, params.SortKeyPrefix) {
				continue
			}
			if params.SortKeyBetween != nil &&
				(skVal < params.SortKeyBetween.Start || skVal > params.SortKeyBetween.End) {
				continue
			}
			if len(params.FilterTypes) > 0 && !typeMatches(item, params.FilterTypes) {
				continue
			}
			matched = append(matched, entry{sortValue: skVal, item: item})
		}
	}

	forward := params.ScanIndexForward == nil || *params.ScanIndexForward
	sort.Slice(matched, func(i, j int) bool {
		if forward {
			return matched[i].sortValue < matched[j].sortValue
		}
		return matched[i].sortValue > matched[j].sortValue
	})

	start := 0
	if params.ExclusiveStartKey != nil {
		lastSort, err := stringAttr(params.ExclusiveStartKey, skName)
		if err != nil {
			return nil, errors.NewInvalidRequestError("exclusiveStartKey", "missing sort attribute")
		}
		for i, e := range matched {
			passed := e.sortValue > lastSort
			if !forward {
				passed = e.sortValue < lastSort
			}
			if passed {
				start = i
				break
			}
			start = i + 1
		}
	}

	limit := s.pageSize
	if params.Limit != nil && int(*params.Limit) < limit {
		limit = int(*params.Limit)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	page := &storagemodels.QueryPage{}
	for _, e := range matched[start:end] {
		page.Items = append(page.Items, copyItem(e.item))
	}
	if end < len(matched) && end > start {
		last := matched[end-1].item
		page.LastEvaluatedKey = map[string]types.AttributeValue{
			"pk":   last["pk"],
			"sk":   last["sk"],
			skName: last[skName],
		}
	}
	return page, nil
}

// TransactWrite applies all operations atomically under one lock, or none of
// them when a failure is injected.
func (s *Store) TransactWrite(_ context.Context, ops []storagemodels.TransactOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > datastore.MaxTransactItems {
		return errors.NewInternalError("transaction of %d items exceeds the %d item limit", len(ops), datastore.MaxTransactItems)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactCalls++
	if s.transactErr != nil {
		if err := s.transactErr(s.transactCalls, ops); err != nil {
			return errors.NewTransactionFailedError("TransactWriteItems", err)
		}
	}

	for _, op := range ops {
		switch {
		case op.Put != nil:
			if err := s.putLocked(op.Put); err != nil {
				return err
			}
		case op.Delete != nil:
			delete(s.items[op.Delete.PK], op.Delete.SK)
		default:
			return errors.NewInternalError("transact op with neither put nor delete")
		}
	}
	return nil
}

// AtomicAdd atomically adds delta to a numeric attribute, creating the item
// if absent, and returns the new value.
func (s *Store) AtomicAdd(_ context.Context, key storagemodels.ItemKey, attribute string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.items[key.PK] == nil {
		s.items[key.PK] = make(map[string]map[string]types.AttributeValue)
	}
	item, ok := s.items[key.PK][key.SK]
	if !ok {
		item = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: key.PK},
			"sk": &types.AttributeValueMemberS{Value: key.SK},
		}
		s.items[key.PK][key.SK] = item
	}

	var current int64
	if attr, ok := item[attribute]; ok {
		if err := attributevalue.Unmarshal(attr, &current); err != nil {
			return 0, errors.NewInternalError("atomic add on non-numeric attribute %q", attribute)
		}
	}
	current += delta
	n, err := attributevalue.Marshal(current)
	if err != nil {
		return 0, err
	}
	item[attribute] = n
	return current, nil
}

// Len reports the total number of stored items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, partition := range s.items {
		total += len(partition)
	}
	return total
}

func stringAttr(item map[string]types.AttributeValue, name string) (string, error) {
	attr, ok := item[name]
	if !ok {
		return "", errors.NewInternalError("item missing %q attribute", name)
	}
	sAttr, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.NewInternalError("item attribute %q is not a string", name)
	}
	return sAttr.Value, nil
}

func typeMatches(item map[string]types.AttributeValue, filterTypes []string) bool {
	typ, err := stringAttr(item, "type")
	if err != nil {
		return false
	}
	for _, t := range filterTypes {
		if typ == t {
			return true
		}
	}
	return false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
