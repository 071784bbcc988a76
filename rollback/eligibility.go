/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rollback

import (
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/provider"
	"github.com/suparena/compactconnect/records"
	"github.com/suparena/compactconnect/storagemodels"
)

// License actions a plan can carry.
const (
	// ActionDelete removes a license created by the rolled-back upload,
	// together with all of its update records.
	ActionDelete = "DELETE"
	// ActionRevert rewrites a pre-existing license to the previous snapshot
	// of its earliest in-window update and deletes the in-window updates.
	ActionRevert = "REVERT"
)

// LicensePlan is the action for one license in the target jurisdiction.
type LicensePlan struct {
	License *records.LicenseRecord
	Action  string
	// Reverted is the rewritten license record; set for ActionRevert only.
	Reverted *records.LicenseRecord
	// UpdateKeys are the update records to delete.
	UpdateKeys []storagemodels.ItemKey
}

// ProviderPlan is the full revert plan for one provider. A plan is only
// executed when the provider had no ineligible updates; a provider is
// reverted completely or not at all.
type ProviderPlan struct {
	ProviderID string
	Licenses   []LicensePlan
}

// Ineligibility collects every reason a provider cannot be automatically
// reverted.
type Ineligibility struct {
	Reasons           []string
	IneligibleUpdates []IneligibleUpdate
}

// BuildProviderPlan inspects one provider's aggregate and either constructs
// a revert plan or reports why the provider is ineligible. Exactly one of
// the two return values is non-nil on success.
//
// An update in the window that is not upload-caused, or an upload-caused
// update after the window's end, makes the entire provider ineligible: an
// unrelated legitimate change cannot be safely discarded, and a revert
// beneath a later dependent change cannot be safely computed.
func BuildProviderPlan(agg *provider.ProviderRecords, jurisdiction string, start, end time.Time) (*ProviderPlan, *Ineligibility, error) {
	var inel Ineligibility

	// A license-update record with no corresponding primary license is a
	// data-consistency anomaly requiring manual review, never a guess.
	for _, u := range agg.GetAllLicenseUpdateRecords() {
		if len(agg.GetLicenseRecords(matchLicense(u.Jurisdiction, u.LicenseTypeAbbreviation))) == 0 {
			inel.Reasons = append(inel.Reasons, fmt.Sprintf(
				"orphaned update records for license %s/%s with no license record",
				u.Jurisdiction, u.LicenseTypeAbbreviation))
			break
		}
	}

	plan := &ProviderPlan{ProviderID: agg.ProviderID}
	for _, license := range agg.GetLicenseRecords(func(l *records.LicenseRecord) bool {
		return l.Jurisdiction == jurisdiction
	}) {
		licensePlan, licenseInel, err := buildLicensePlan(agg, license, start, end)
		if err != nil {
			return nil, nil, err
		}
		if licenseInel != nil {
			inel.Reasons = append(inel.Reasons, licenseInel.Reasons...)
			inel.IneligibleUpdates = append(inel.IneligibleUpdates, licenseInel.IneligibleUpdates...)
			continue
		}
		if licensePlan != nil {
			plan.Licenses = append(plan.Licenses, *licensePlan)
		}
	}

	if len(inel.Reasons) > 0 {
		return nil, &inel, nil
	}
	return plan, nil, nil
}

func buildLicensePlan(agg *provider.ProviderRecords, license *records.LicenseRecord, start, end time.Time) (*LicensePlan, *Ineligibility, error) {
	updates := agg.GetUpdateRecordsForLicense(license.Jurisdiction, license.LicenseTypeAbbreviation,
		func(u *records.UpdateRecord) bool { return !u.CreateDate.Before(start) })

	var inel Ineligibility
	var inWindow []*records.UpdateRecord
	for _, u := range updates {
		switch {
		case !u.UpdateType.IsUploadCaused():
			inel.Reasons = append(inel.Reasons, fmt.Sprintf(
				"license %s/%s has a %s update inside the rollback window",
				u.Jurisdiction, u.LicenseTypeAbbreviation, u.UpdateType))
			inel.IneligibleUpdates = append(inel.IneligibleUpdates, ineligibleUpdate(u,
				"update type is not caused by a license upload"))
		case u.CreateDate.After(end):
			inel.Reasons = append(inel.Reasons, fmt.Sprintf(
				"license %s/%s has an upload-caused update after the rollback window",
				u.Jurisdiction, u.LicenseTypeAbbreviation))
			inel.IneligibleUpdates = append(inel.IneligibleUpdates, ineligibleUpdate(u,
				"update occurred after the rollback window"))
		default:
			inWindow = append(inWindow, u)
		}
	}
	if len(inel.Reasons) > 0 {
		return nil, &inel, nil
	}

	if createdInWindow(license, start, end) {
		// The license itself was created by this upload: delete it outright
		// together with its entire history.
		all := agg.GetUpdateRecordsForLicense(license.Jurisdiction, license.LicenseTypeAbbreviation, nil)
		return &LicensePlan{
			License:    license,
			Action:     ActionDelete,
			UpdateKeys: updateKeys(all),
		}, nil, nil
	}

	if len(inWindow) == 0 {
		// Pre-existing license untouched by this window.
		return nil, nil, nil
	}

	sort.Slice(inWindow, func(i, j int) bool {
		return inWindow[i].CreateDate.Before(inWindow[j].CreateDate)
	})
	reverted, err := revertToPrevious(license, inWindow[0])
	if err != nil {
		return nil, nil, err
	}
	return &LicensePlan{
		License:    license,
		Action:     ActionRevert,
		Reverted:   reverted,
		UpdateKeys: updateKeys(inWindow),
	}, nil, nil
}

// revertToPrevious rewrites the license to the state captured by the
// earliest in-window update: fields the update introduced are dropped, then
// the previous snapshot is laid over the current item.
func revertToPrevious(license *records.LicenseRecord, earliest *records.UpdateRecord) (*records.LicenseRecord, error) {
	item, err := records.EncodeRecord(license)
	if err != nil {
		return nil, err
	}
	for field := range earliest.UpdatedValues {
		delete(item, field)
	}
	for field, value := range earliest.Previous {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("unmarshalable previous value for %q: %w", field, err)
		}
		item[field] = av
	}

	var reverted records.LicenseRecord
	if err := attributevalue.UnmarshalMap(item, &reverted); err != nil {
		return nil, errors.NewDataCorruptionError("licenseUpdate", earliest.SK, err.Error())
	}
	reverted.SetDerivedFields()
	reverted.Recalculate(time.Now().UTC())
	return &reverted, nil
}

func createdInWindow(license *records.LicenseRecord, start, end time.Time) bool {
	return !license.FirstUploadDate.Before(start) && !license.FirstUploadDate.After(end)
}

func updateKeys(updates []*records.UpdateRecord) []storagemodels.ItemKey {
	keys := make([]storagemodels.ItemKey, 0, len(updates))
	for _, u := range updates {
		keys = append(keys, storagemodels.ItemKey{PK: u.PK, SK: u.SK})
	}
	return keys
}

func ineligibleUpdate(u *records.UpdateRecord, reason string) IneligibleUpdate {
	return IneligibleUpdate{
		Jurisdiction:            u.Jurisdiction,
		LicenseTypeAbbreviation: u.LicenseTypeAbbreviation,
		UpdateType:              string(u.UpdateType),
		CreateDate:              u.CreateDate.UTC().Format(time.RFC3339),
		Reason:                  reason,
	}
}

func matchLicense(jurisdiction, abbr string) func(*records.LicenseRecord) bool {
	return func(l *records.LicenseRecord) bool {
		return l.Jurisdiction == jurisdiction && l.LicenseTypeAbbreviation == abbr
	}
}
