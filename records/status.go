/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import "time"

// Derived-status computation. These are pure functions shared by every record
// constructor and by provider regeneration; records never persist a
// calculated status that disagrees with them.

// CalculateLicenseStatus derives the effective license status. A license is
// active only if the jurisdiction reported it active, it has not expired, and
// it is not encumbered.
func CalculateLicenseStatus(uploaded LicenseStatus, dateOfExpiration string, encumbered EncumberedStatus, now time.Time) LicenseStatus {
	if uploaded != LicenseStatusActive {
		return LicenseStatusInactive
	}
	if encumbered == EncumberedStatusEncumbered {
		return LicenseStatusInactive
	}
	today := now.UTC().Format(DateLayout)
	if dateOfExpiration < today {
		return LicenseStatusInactive
	}
	return LicenseStatusActive
}

// CalculateCompactEligibility derives the effective compact eligibility. A
// license confers eligibility only if the jurisdiction reported it eligible,
// its calculated status is active, and it is not encumbered.
func CalculateCompactEligibility(uploaded CompactEligibility, calculated LicenseStatus, encumbered EncumberedStatus) CompactEligibility {
	if uploaded != CompactEligibilityEligible {
		return CompactEligibilityIneligible
	}
	if calculated != LicenseStatusActive {
		return CompactEligibilityIneligible
	}
	if encumbered == EncumberedStatusEncumbered {
		return CompactEligibilityIneligible
	}
	return CompactEligibilityEligible
}

// Recalculate refreshes the license's calculated status fields.
func (r *LicenseRecord) Recalculate(now time.Time) {
	r.LicenseStatus = CalculateLicenseStatus(r.JurisdictionUploadedLicenseStatus, r.DateOfExpiration, r.EncumberedStatus, now)
	r.CompactEligibility = CalculateCompactEligibility(r.JurisdictionUploadedCompactEligibility, r.LicenseStatus, r.EncumberedStatus)
}

// CalculatePrivilegeStatus derives the effective privilege status. A
// privilege is active only while persisted active, not administratively
// deactivated, unexpired and unencumbered.
func CalculatePrivilegeStatus(r *PrivilegeRecord, now time.Time) PrivilegeStatus {
	if r.PersistedStatus != PrivilegeStatusActive {
		return PrivilegeStatusInactive
	}
	if r.AdministratorSetStatus == PrivilegeStatusInactive {
		return PrivilegeStatusInactive
	}
	if r.EncumberedStatus == EncumberedStatusEncumbered {
		return PrivilegeStatusInactive
	}
	today := now.UTC().Format(DateLayout)
	if r.DateOfExpiration < today {
		return PrivilegeStatusInactive
	}
	return PrivilegeStatusActive
}
