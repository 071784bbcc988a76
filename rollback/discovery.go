/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/datastore/ddb"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/records"
	"github.com/suparena/compactconnect/storagemodels"
)

// DiscoverAffectedProviders queries the upload-date GSI for every calendar
// month spanned by [start, end] and returns the distinct provider IDs with
// qualifying records, sorted. The same provider usually appears under many
// qualifying index entries, so dedup before sorting is essential; the sort
// makes continuation-by-provider-id well-defined across invocations
// regardless of index query order.
func DiscoverAffectedProviders(ctx context.Context, store datastore.Store, compact, jurisdiction string, start, end time.Time) ([]string, error) {
	seen := make(map[string]struct{})
	for _, month := range records.MonthBuckets(start, end) {
		items, err := datastore.QueryAll(ctx, store, &storagemodels.QueryParams{
			IndexName:    ddb.LicenseUploadDateGSIName,
			PartitionKey: records.UploadDateGSIPKForMonth(compact, jurisdiction, month),
			SortKeyBetween: &storagemodels.SortKeyRange{
				Start: records.UploadDateGSISKBound(start),
				// The bound has no provider suffix; "~" sorts after "#" so
				// every entry at the end instant is included.
				End: records.UploadDateGSISKBound(end) + "~",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query upload-date index for %s: %w", month, err)
		}
		for _, item := range items {
			sk, ok := item["licenseUploadDateGSISK"]
			if !ok {
				continue
			}
			skAttr, ok := sk.(*types.AttributeValueMemberS)
			if !ok {
				return nil, errors.NewDataCorruptionError("uploadDateIndex", month, "index sort key is not a string")
			}
			providerID, err := records.ProviderIDFromUploadDateGSISK(skAttr.Value)
			if err != nil {
				return nil, errors.NewDataCorruptionError("uploadDateIndex", skAttr.Value, err.Error())
			}
			seen[providerID] = struct{}{}
		}
	}

	providers := make([]string, 0, len(seen))
	for id := range seen {
		providers = append(providers, id)
	}
	sort.Strings(providers)
	return providers, nil
}

// sliceFromProvider resumes the sorted provider list at the continuation
// provider. The list is recomputed fresh on every invocation; an absent
// resume provider means the underlying data changed between invocations,
// which must surface rather than be silently skipped past.
func sliceFromProvider(providers []string, resumeFrom string) ([]string, error) {
	i := sort.SearchStrings(providers, resumeFrom)
	if i >= len(providers) || providers[i] != resumeFrom {
		return nil, errors.NewInternalError(
			"continuation provider %s is not in the recomputed discovery set", resumeFrom)
	}
	return providers[i:], nil
}
