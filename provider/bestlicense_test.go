/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package provider

import (
	"testing"

	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/records"
)

func license(jurisdiction, issuance string, status records.LicenseStatus, eligibility records.CompactEligibility) *records.LicenseRecord {
	return &records.LicenseRecord{
		Compact:                 testCompact,
		ProviderID:              testProviderID,
		Jurisdiction:            jurisdiction,
		LicenseTypeAbbreviation: "slp",
		DateOfIssuance:          issuance,
		DateOfExpiration:        "2030-01-01",
		LicenseStatus:           status,
		CompactEligibility:      eligibility,
	}
}

func TestFindBestLicense(t *testing.T) {
	t.Run("active beats inactive regardless of issuance date", func(t *testing.T) {
		newer := license("oh", "2024-02-01", records.LicenseStatusInactive, records.CompactEligibilityIneligible)
		older := license("oh", "2024-01-01", records.LicenseStatusActive, records.CompactEligibilityIneligible)
		best, err := FindBestLicense([]*records.LicenseRecord{newer, older}, "")
		if err != nil {
			t.Fatalf("FindBestLicense: %v", err)
		}
		if best != older {
			t.Errorf("best = %s issued %s, want the active 2024-01-01 record", best.LicenseStatus, best.DateOfIssuance)
		}
	})

	t.Run("eligible beats active regardless of issuance date", func(t *testing.T) {
		eligible := license("oh", "2024-02-01", records.LicenseStatusInactive, records.CompactEligibilityEligible)
		active := license("oh", "2024-01-01", records.LicenseStatusActive, records.CompactEligibilityIneligible)
		best, err := FindBestLicense([]*records.LicenseRecord{eligible, active}, "")
		if err != nil {
			t.Fatalf("FindBestLicense: %v", err)
		}
		if best != eligible {
			t.Errorf("best = %s/%s, want the eligible record", best.LicenseStatus, best.CompactEligibility)
		}
	})

	t.Run("most recent issuance breaks ties", func(t *testing.T) {
		older := license("oh", "2023-05-01", records.LicenseStatusActive, records.CompactEligibilityEligible)
		newer := license("oh", "2024-02-01", records.LicenseStatusActive, records.CompactEligibilityEligible)
		best, err := FindBestLicense([]*records.LicenseRecord{older, newer}, "")
		if err != nil {
			t.Fatalf("FindBestLicense: %v", err)
		}
		if best != newer {
			t.Errorf("best issued %s, want 2024-02-01", best.DateOfIssuance)
		}
	})

	t.Run("home jurisdiction restricts when present", func(t *testing.T) {
		home := license("oh", "2023-01-01", records.LicenseStatusInactive, records.CompactEligibilityIneligible)
		other := license("ky", "2024-01-01", records.LicenseStatusActive, records.CompactEligibilityEligible)
		best, err := FindBestLicense([]*records.LicenseRecord{home, other}, "oh")
		if err != nil {
			t.Fatalf("FindBestLicense: %v", err)
		}
		if best != home {
			t.Errorf("best in %s, want home jurisdiction oh", best.Jurisdiction)
		}
	})

	t.Run("absent home jurisdiction falls back to all licenses", func(t *testing.T) {
		other := license("ky", "2024-01-01", records.LicenseStatusActive, records.CompactEligibilityEligible)
		best, err := FindBestLicense([]*records.LicenseRecord{other}, "oh")
		if err != nil {
			t.Fatalf("FindBestLicense: %v", err)
		}
		if best != other {
			t.Error("fallback did not select the remaining license")
		}
	})

	t.Run("empty input is an internal error", func(t *testing.T) {
		if _, err := FindBestLicense(nil, "oh"); !errors.IsInternal(err) {
			t.Errorf("empty input produced %v, want internal error", err)
		}
	})
}

func TestRegenerateProviderRecord(t *testing.T) {
	prov := newProviderRecord("oh")
	prov.LicenseStatus = records.LicenseStatusActive
	prov.CompactEligibility = records.CompactEligibilityEligible

	best := license("ky", "2024-01-01", records.LicenseStatusInactive, records.CompactEligibilityIneligible)
	best.GivenName = "Janet"
	best.FamilyName = "Doe"

	RegenerateProviderRecord(prov, best)

	if prov.LicenseJurisdiction != "ky" {
		t.Errorf("licenseJurisdiction = %q, want ky", prov.LicenseJurisdiction)
	}
	if prov.LicenseStatus != records.LicenseStatusInactive {
		t.Errorf("licenseStatus = %s, want inactive", prov.LicenseStatus)
	}
	if prov.CompactEligibility != records.CompactEligibilityIneligible {
		t.Errorf("compactEligibility = %s, want ineligible", prov.CompactEligibility)
	}
	if prov.GivenName != "Janet" {
		t.Errorf("givenName = %q, want refreshed from best license", prov.GivenName)
	}
	if prov.PK != records.ProviderPK(testCompact, testProviderID) {
		t.Errorf("derived keys not refreshed: %q", prov.PK)
	}
}
