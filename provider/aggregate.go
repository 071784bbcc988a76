/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/records"
	"github.com/suparena/compactconnect/storagemodels"
)

// ProviderRecords is one provider's full record aggregate, loaded from the
// provider's partition and indexed by record kind. It returns faithfully
// what is stored; field-level filtering for external consumers is a caller
// responsibility applied at the response boundary.
type ProviderRecords struct {
	Compact    string
	ProviderID string
	Tier       records.UpdateTier

	providers        []*records.ProviderRecord
	licenses         []*records.LicenseRecord
	privileges       []*records.PrivilegeRecord
	licenseUpdates   []*records.UpdateRecord
	privilegeUpdates []*records.UpdateRecord
	investigations   []*records.InvestigationRecord
}

// LoadProviderRecords loads every record in the provider's partition at the
// given update tier. Record kinds outside the tier are excluded server-side
// with a filter on the type discriminator; the tier check below stays as a
// guard against items the filter lets through. The partition query is
// paginated; every page is accumulated before the aggregate is built, so the
// result is complete regardless of page count. Calculated license status
// fields are refreshed on load.
func LoadProviderRecords(ctx context.Context, store datastore.Store, compact, providerID string, tier records.UpdateTier) (*ProviderRecords, error) {
	items, err := datastore.QueryAll(ctx, store, &storagemodels.QueryParams{
		PartitionKey: records.ProviderPK(compact, providerID),
		FilterTypes:  tier.FilterTypes(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load provider %s/%s: %w", compact, providerID, err)
	}

	agg := &ProviderRecords{
		Compact:    compact,
		ProviderID: providerID,
		Tier:       tier,
	}
	now := time.Now().UTC()
	for _, item := range items {
		rec, err := records.DecodeRecord(item)
		if err != nil {
			return nil, err
		}
		if !tier.Includes(rec.RecordType()) {
			continue
		}
		switch r := rec.(type) {
		case *records.ProviderRecord:
			agg.providers = append(agg.providers, r)
		case *records.LicenseRecord:
			r.Recalculate(now)
			agg.licenses = append(agg.licenses, r)
		case *records.PrivilegeRecord:
			agg.privileges = append(agg.privileges, r)
		case *records.UpdateRecord:
			if r.IsLicenseUpdate() {
				agg.licenseUpdates = append(agg.licenseUpdates, r)
			} else {
				agg.privilegeUpdates = append(agg.privilegeUpdates, r)
			}
		case *records.InvestigationRecord:
			agg.investigations = append(agg.investigations, r)
		case *records.PrivilegeCountRecord:
			// Counter records live in their own partition; one here means
			// keys were corrupted.
			pk, sk := r.RecordKeys()
			return nil, errors.NewDataCorruptionError("privilegeCount", pk+"|"+sk, "counter record in provider partition")
		}
	}
	return agg, nil
}

// GetProviderRecord returns the provider's top-level record. Absence is a
// not-found error; more than one is an internal error.
func (p *ProviderRecords) GetProviderRecord() (*records.ProviderRecord, error) {
	switch len(p.providers) {
	case 0:
		return nil, errors.NewNotFoundError("provider", records.ProviderPK(p.Compact, p.ProviderID))
	case 1:
		return p.providers[0], nil
	default:
		return nil, errors.NewInternalError("provider %s/%s has %d provider records", p.Compact, p.ProviderID, len(p.providers))
	}
}

// GetLicenseRecords returns the provider's licenses, optionally filtered.
func (p *ProviderRecords) GetLicenseRecords(filter func(*records.LicenseRecord) bool) []*records.LicenseRecord {
	if filter == nil {
		return append([]*records.LicenseRecord(nil), p.licenses...)
	}
	var out []*records.LicenseRecord
	for _, l := range p.licenses {
		if filter(l) {
			out = append(out, l)
		}
	}
	return out
}

// GetPrivilegeRecords returns the provider's privileges, optionally filtered.
func (p *ProviderRecords) GetPrivilegeRecords(filter func(*records.PrivilegeRecord) bool) []*records.PrivilegeRecord {
	if filter == nil {
		return append([]*records.PrivilegeRecord(nil), p.privileges...)
	}
	var out []*records.PrivilegeRecord
	for _, pr := range p.privileges {
		if filter(pr) {
			out = append(out, pr)
		}
	}
	return out
}

// GetPrivilegeRecord returns the provider's privilege for one jurisdiction
// and license type abbreviation, or nil.
func (p *ProviderRecords) GetPrivilegeRecord(jurisdiction, licenseTypeAbbreviation string) *records.PrivilegeRecord {
	for _, pr := range p.privileges {
		if pr.Jurisdiction == jurisdiction && pr.LicenseTypeAbbreviation == licenseTypeAbbreviation {
			return pr
		}
	}
	return nil
}

// GetUpdateRecordsForLicense returns the update records of one license,
// optionally filtered.
func (p *ProviderRecords) GetUpdateRecordsForLicense(jurisdiction, licenseTypeAbbreviation string, filter func(*records.UpdateRecord) bool) []*records.UpdateRecord {
	return filterUpdates(p.licenseUpdates, jurisdiction, licenseTypeAbbreviation, filter)
}

// GetUpdateRecordsForPrivilege returns the update records of one privilege,
// optionally filtered.
func (p *ProviderRecords) GetUpdateRecordsForPrivilege(jurisdiction, licenseTypeAbbreviation string, filter func(*records.UpdateRecord) bool) []*records.UpdateRecord {
	return filterUpdates(p.privilegeUpdates, jurisdiction, licenseTypeAbbreviation, filter)
}

func filterUpdates(updates []*records.UpdateRecord, jurisdiction, licenseTypeAbbreviation string, filter func(*records.UpdateRecord) bool) []*records.UpdateRecord {
	var out []*records.UpdateRecord
	for _, u := range updates {
		if u.Jurisdiction != jurisdiction || u.LicenseTypeAbbreviation != licenseTypeAbbreviation {
			continue
		}
		if filter != nil && !filter(u) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// GetAllLicenseUpdateRecords returns every license update record.
func (p *ProviderRecords) GetAllLicenseUpdateRecords() []*records.UpdateRecord {
	return append([]*records.UpdateRecord(nil), p.licenseUpdates...)
}

// GetAllPrivilegeUpdateRecords returns every privilege update record.
func (p *ProviderRecords) GetAllPrivilegeUpdateRecords() []*records.UpdateRecord {
	return append([]*records.UpdateRecord(nil), p.privilegeUpdates...)
}

// GetAllInvestigationRecords returns every investigation record, closed ones
// included.
func (p *ProviderRecords) GetAllInvestigationRecords() []*records.InvestigationRecord {
	return append([]*records.InvestigationRecord(nil), p.investigations...)
}

// GetInvestigationRecordsForLicense returns the investigations against one
// license, excluding closed ones unless includeClosed is set.
func (p *ProviderRecords) GetInvestigationRecordsForLicense(jurisdiction, licenseTypeAbbreviation string, includeClosed bool) []*records.InvestigationRecord {
	return p.filterInvestigations(records.InvestigationAgainstLicense, jurisdiction, licenseTypeAbbreviation, includeClosed)
}

// GetInvestigationRecordsForPrivilege returns the investigations against one
// privilege, excluding closed ones unless includeClosed is set.
func (p *ProviderRecords) GetInvestigationRecordsForPrivilege(jurisdiction, licenseTypeAbbreviation string, includeClosed bool) []*records.InvestigationRecord {
	return p.filterInvestigations(records.InvestigationAgainstPrivilege, jurisdiction, licenseTypeAbbreviation, includeClosed)
}

func (p *ProviderRecords) filterInvestigations(against records.InvestigationAgainst, jurisdiction, licenseTypeAbbreviation string, includeClosed bool) []*records.InvestigationRecord {
	var out []*records.InvestigationRecord
	for _, inv := range p.investigations {
		if inv.InvestigationAgainst != against ||
			inv.Jurisdiction != jurisdiction ||
			inv.LicenseTypeAbbreviation != licenseTypeAbbreviation {
			continue
		}
		if !includeClosed && inv.Closed() {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// GetInvestigationRecord returns one investigation by its identity, or nil.
func (p *ProviderRecords) GetInvestigationRecord(against records.InvestigationAgainst, jurisdiction, licenseTypeAbbreviation, investigationID string) *records.InvestigationRecord {
	for _, inv := range p.investigations {
		if inv.InvestigationAgainst == against &&
			inv.Jurisdiction == jurisdiction &&
			inv.LicenseTypeAbbreviation == licenseTypeAbbreviation &&
			inv.InvestigationID == investigationID {
			return inv
		}
	}
	return nil
}

// FindBestLicenseInCurrentKnownLicenses selects the best license among the
// aggregate's loaded licenses.
func (p *ProviderRecords) FindBestLicenseInCurrentKnownLicenses() (*records.LicenseRecord, error) {
	return FindBestLicense(p.licenses, "")
}
