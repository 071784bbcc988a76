/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"testing"
	"time"
)

var statusNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func TestCalculateLicenseStatus(t *testing.T) {
	tests := []struct {
		name       string
		uploaded   LicenseStatus
		expiration string
		encumbered EncumberedStatus
		want       LicenseStatus
	}{
		{"active and unexpired", LicenseStatusActive, "2025-01-01", "", LicenseStatusActive},
		{"uploaded inactive", LicenseStatusInactive, "2025-01-01", "", LicenseStatusInactive},
		{"expired yesterday", LicenseStatusActive, "2024-06-14", "", LicenseStatusInactive},
		{"expires today is still active", LicenseStatusActive, "2024-06-15", "", LicenseStatusActive},
		{"encumbered", LicenseStatusActive, "2025-01-01", EncumberedStatusEncumbered, LicenseStatusInactive},
		{"unencumbered marker", LicenseStatusActive, "2025-01-01", EncumberedStatusUnencumbered, LicenseStatusActive},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateLicenseStatus(tc.uploaded, tc.expiration, tc.encumbered, statusNow)
			if got != tc.want {
				t.Errorf("CalculateLicenseStatus = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCalculateCompactEligibility(t *testing.T) {
	tests := []struct {
		name       string
		uploaded   CompactEligibility
		calculated LicenseStatus
		encumbered EncumberedStatus
		want       CompactEligibility
	}{
		{"eligible and active", CompactEligibilityEligible, LicenseStatusActive, "", CompactEligibilityEligible},
		{"uploaded ineligible", CompactEligibilityIneligible, LicenseStatusActive, "", CompactEligibilityIneligible},
		{"calculated inactive", CompactEligibilityEligible, LicenseStatusInactive, "", CompactEligibilityIneligible},
		{"encumbered", CompactEligibilityEligible, LicenseStatusActive, EncumberedStatusEncumbered, CompactEligibilityIneligible},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateCompactEligibility(tc.uploaded, tc.calculated, tc.encumbered)
			if got != tc.want {
				t.Errorf("CalculateCompactEligibility = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestRecalculateRefreshesBothFields(t *testing.T) {
	license := &LicenseRecord{
		JurisdictionUploadedLicenseStatus:      LicenseStatusActive,
		JurisdictionUploadedCompactEligibility: CompactEligibilityEligible,
		DateOfExpiration:                       "2024-01-01",
		// Stale persisted values from before expiry.
		LicenseStatus:      LicenseStatusActive,
		CompactEligibility: CompactEligibilityEligible,
	}
	license.Recalculate(statusNow)
	if license.LicenseStatus != LicenseStatusInactive {
		t.Errorf("LicenseStatus = %s, want inactive", license.LicenseStatus)
	}
	if license.CompactEligibility != CompactEligibilityIneligible {
		t.Errorf("CompactEligibility = %s, want ineligible", license.CompactEligibility)
	}
}

func TestCalculatePrivilegeStatus(t *testing.T) {
	base := PrivilegeRecord{
		PersistedStatus:  PrivilegeStatusActive,
		DateOfExpiration: "2025-01-01",
	}

	t.Run("active", func(t *testing.T) {
		p := base
		if got := CalculatePrivilegeStatus(&p, statusNow); got != PrivilegeStatusActive {
			t.Errorf("status = %s, want active", got)
		}
	})
	t.Run("administratively deactivated", func(t *testing.T) {
		p := base
		p.AdministratorSetStatus = PrivilegeStatusInactive
		if got := CalculatePrivilegeStatus(&p, statusNow); got != PrivilegeStatusInactive {
			t.Errorf("status = %s, want inactive", got)
		}
	})
	t.Run("expired", func(t *testing.T) {
		p := base
		p.DateOfExpiration = "2024-01-01"
		if got := CalculatePrivilegeStatus(&p, statusNow); got != PrivilegeStatusInactive {
			t.Errorf("status = %s, want inactive", got)
		}
	})
}

func TestUpdateTypeIsUploadCaused(t *testing.T) {
	uploadCaused := map[UpdateType]bool{
		UpdateTypeIssuance:             true,
		UpdateTypeRenewal:              true,
		UpdateTypeDeactivation:         false,
		UpdateTypeEncumbrance:          false,
		UpdateTypeInvestigation:        false,
		UpdateTypeClosingInvestigation: false,
	}
	for ut, want := range uploadCaused {
		if got := ut.IsUploadCaused(); got != want {
			t.Errorf("%s.IsUploadCaused() = %v, want %v", ut, got, want)
		}
	}
}
