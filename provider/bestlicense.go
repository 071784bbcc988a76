/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package provider

import (
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/records"
)

// FindBestLicense selects the license a provider's derived status fields are
// generated from, in strict priority order:
//
//  1. if homeJurisdiction is given, restrict to licenses in that jurisdiction;
//  2. among remaining, prefer compact-eligible licenses;
//  3. among remaining, prefer active-status licenses;
//  4. tie-break by most recent dateOfIssuance.
//
// A provider must always have at least one license, so an empty input list
// is a caller defect surfaced as an internal error.
func FindBestLicense(licenses []*records.LicenseRecord, homeJurisdiction string) (*records.LicenseRecord, error) {
	if len(licenses) == 0 {
		return nil, errors.NewInternalError("find best license called with no licenses")
	}

	candidates := licenses
	if homeJurisdiction != "" {
		restricted := filterLicenses(candidates, func(l *records.LicenseRecord) bool {
			return l.Jurisdiction == homeJurisdiction
		})
		if len(restricted) > 0 {
			candidates = restricted
		}
	}

	if eligible := filterLicenses(candidates, func(l *records.LicenseRecord) bool {
		return l.CompactEligibility == records.CompactEligibilityEligible
	}); len(eligible) > 0 {
		candidates = eligible
	}

	if active := filterLicenses(candidates, func(l *records.LicenseRecord) bool {
		return l.LicenseStatus == records.LicenseStatusActive
	}); len(active) > 0 {
		candidates = active
	}

	best := candidates[0]
	for _, l := range candidates[1:] {
		// ISO date strings order correctly lexicographically.
		if l.DateOfIssuance > best.DateOfIssuance {
			best = l
		}
	}
	return best, nil
}

func filterLicenses(licenses []*records.LicenseRecord, keep func(*records.LicenseRecord) bool) []*records.LicenseRecord {
	var out []*records.LicenseRecord
	for _, l := range licenses {
		if keep(l) {
			out = append(out, l)
		}
	}
	return out
}

// RegenerateProviderRecord rewrites a provider record's derived status
// fields from its best license. The identity fields are refreshed from the
// best license as well, keeping the provider record consistent with the
// license data that backs it.
func RegenerateProviderRecord(prov *records.ProviderRecord, best *records.LicenseRecord) {
	prov.LicenseJurisdiction = best.Jurisdiction
	prov.LicenseStatus = best.LicenseStatus
	prov.CompactEligibility = best.CompactEligibility
	prov.GivenName = best.GivenName
	prov.MiddleName = best.MiddleName
	prov.FamilyName = best.FamilyName
	if best.DateOfBirth != "" {
		prov.DateOfBirth = best.DateOfBirth
	}
	prov.SetDerivedFields()
}
