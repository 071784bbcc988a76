/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"context"
	"time"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/provider"
	"github.com/suparena/compactconnect/records"
	"github.com/suparena/compactconnect/storagemodels"
)

// executePlan applies a provider's revert plan and regenerates the provider
// record. The returned summary is non-nil on success. A store-rejected
// transaction is a provider-scoped failure returned as providerErr; any
// other error is fatal for the whole execution.
//
// Operations are ordered: primary-record mutations first, then dependent
// update-record deletions, so an interruption between batches leaves either
// a consistent pre-revert state or a reverted license whose remaining
// update deletions are a no-op on re-run. A half-updated license pointing
// at deleted history is never observable.
func executePlan(ctx context.Context, store datastore.Store, compact string, plan *ProviderPlan, now time.Time) (summary *ProviderRevertedSummary, providerErr error, fatal error) {
	var primary, updateDeletes []storagemodels.TransactOp
	summary = &ProviderRevertedSummary{ProviderID: plan.ProviderID}

	for _, lp := range plan.Licenses {
		switch lp.Action {
		case ActionDelete:
			primary = append(primary, storagemodels.TransactOp{
				Delete: &storagemodels.ItemKey{PK: lp.License.PK, SK: lp.License.SK},
			})
		case ActionRevert:
			item, err := records.EncodeRecord(lp.Reverted)
			if err != nil {
				return nil, nil, err
			}
			primary = append(primary, storagemodels.TransactOp{Put: item})
		default:
			return nil, nil, errors.NewInternalError("unknown license action %q", lp.Action)
		}

		reverted := RevertedLicense{
			Jurisdiction:            lp.License.Jurisdiction,
			LicenseTypeAbbreviation: lp.License.LicenseTypeAbbreviation,
			Action:                  lp.Action,
		}
		for _, key := range lp.UpdateKeys {
			updateDeletes = append(updateDeletes, storagemodels.TransactOp{
				Delete: &storagemodels.ItemKey{PK: key.PK, SK: key.SK},
			})
			reverted.DeletedUpdateKeys = append(reverted.DeletedUpdateKeys, key.SK)
		}
		summary.LicensesReverted = append(summary.LicensesReverted, reverted)
	}

	if len(primary) == 0 && len(updateDeletes) == 0 {
		// The provider was discovered via the index, so something must be
		// revertable; an empty plan means the index and the aggregate
		// disagree.
		return nil, nil, errors.NewInternalError(
			"discovered provider %s produced an empty revert plan", plan.ProviderID)
	}

	ops := append(primary, updateDeletes...)
	for start := 0; start < len(ops); start += datastore.MaxTransactItems {
		end := start + datastore.MaxTransactItems
		if end > len(ops) {
			end = len(ops)
		}
		if err := store.TransactWrite(ctx, ops[start:end]); err != nil {
			if errors.IsTransactionFailed(err) {
				return nil, err, nil
			}
			return nil, nil, err
		}
	}

	if err := regenerateProvider(ctx, store, compact, plan.ProviderID, now); err != nil {
		if errors.IsTransactionFailed(err) || errors.IsNotFound(err) {
			return nil, err, nil
		}
		return nil, nil, err
	}
	return summary, nil, nil
}

// regenerateProvider re-reads the provider after the revert batches commit
// and rewrites the top-level record's derived status fields from the best
// remaining license. A provider with no licenses left is deleted outright,
// but only when nothing else remains in the partition: surviving privileges
// or investigations with no backing license are an integrity failure that
// must abort the execution rather than be silently orphaned.
func regenerateProvider(ctx context.Context, store datastore.Store, compact, providerID string, now time.Time) error {
	agg, err := provider.LoadProviderRecords(ctx, store, compact, providerID, records.TierThree)
	if err != nil {
		return err
	}
	prov, err := agg.GetProviderRecord()
	if err != nil {
		return err
	}

	licenses := agg.GetLicenseRecords(nil)
	if len(licenses) == 0 {
		// Deleting the provider record is only safe when the partition is
		// otherwise empty. Any surviving record of any kind, closed
		// investigations included, would be orphaned by the delete.
		n := len(agg.GetPrivilegeRecords(nil)) +
			len(agg.GetAllLicenseUpdateRecords()) +
			len(agg.GetAllPrivilegeUpdateRecords()) +
			len(agg.GetAllInvestigationRecords())
		if n > 0 {
			return errors.NewInternalError(
				"provider %s has no licenses left but %d other records remain", providerID, n)
		}
		return store.Delete(ctx, storagemodels.ItemKey{PK: prov.PK, SK: prov.SK})
	}

	best, err := provider.FindBestLicense(licenses, prov.LicenseJurisdiction)
	if err != nil {
		return err
	}
	updated := *prov
	provider.RegenerateProviderRecord(&updated, best)
	updated.DateOfUpdate = now
	item, err := records.EncodeRecord(&updated)
	if err != nil {
		return err
	}
	return store.TransactWrite(ctx, []storagemodels.TransactOp{{Put: item}})
}
