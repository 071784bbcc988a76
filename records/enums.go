/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"github.com/suparena/compactconnect/errors"
)

// RecordType discriminates the record kinds stored in the provider table.
// Every persisted item carries its RecordType in the "type" attribute.
type RecordType string

const (
	RecordTypeProvider        RecordType = "provider"
	RecordTypeLicense         RecordType = "license"
	RecordTypePrivilege       RecordType = "privilege"
	RecordTypeLicenseUpdate   RecordType = "licenseUpdate"
	RecordTypePrivilegeUpdate RecordType = "privilegeUpdate"
	RecordTypeInvestigation   RecordType = "investigation"
	RecordTypePrivilegeCount  RecordType = "privilegeCount"
)

// ParseRecordType coerces a stored discriminator string. Unknown values fail
// loudly; a record with an unrecognized type is treated as corrupted, never
// defaulted.
func ParseRecordType(s string) (RecordType, error) {
	switch RecordType(s) {
	case RecordTypeProvider, RecordTypeLicense, RecordTypePrivilege,
		RecordTypeLicenseUpdate, RecordTypePrivilegeUpdate,
		RecordTypeInvestigation, RecordTypePrivilegeCount:
		return RecordType(s), nil
	}
	return "", errors.NewDataCorruptionError("record", s, "unknown record type")
}

// UpdateType classifies the mutation captured by an update record.
type UpdateType string

const (
	UpdateTypeIssuance             UpdateType = "issuance"
	UpdateTypeRenewal              UpdateType = "renewal"
	UpdateTypeDeactivation         UpdateType = "deactivation"
	UpdateTypeEncumbrance          UpdateType = "encumbrance"
	UpdateTypeInvestigation        UpdateType = "investigation"
	UpdateTypeClosingInvestigation UpdateType = "closingInvestigation"
)

// ParseUpdateType coerces a stored update type string, failing loudly on
// unknown values.
func ParseUpdateType(s string) (UpdateType, error) {
	switch UpdateType(s) {
	case UpdateTypeIssuance, UpdateTypeRenewal, UpdateTypeDeactivation,
		UpdateTypeEncumbrance, UpdateTypeInvestigation, UpdateTypeClosingInvestigation:
		return UpdateType(s), nil
	}
	return "", errors.NewDataCorruptionError("update", s, "unknown update type")
}

// IsUploadCaused reports whether this update type results directly from
// automated license-data ingestion. Only upload-caused updates may be
// discarded by automated rollback; manually-applied actions never qualify.
func (u UpdateType) IsUploadCaused() bool {
	return u == UpdateTypeIssuance || u == UpdateTypeRenewal
}

// LicenseStatus is the active/inactive status of a license. The
// jurisdiction-uploaded value is what the state reported; the calculated
// value additionally accounts for expiration and encumbrance.
type LicenseStatus string

const (
	LicenseStatusActive   LicenseStatus = "active"
	LicenseStatusInactive LicenseStatus = "inactive"
)

func ParseLicenseStatus(s string) (LicenseStatus, error) {
	switch LicenseStatus(s) {
	case LicenseStatusActive, LicenseStatusInactive:
		return LicenseStatus(s), nil
	}
	return "", errors.NewDataCorruptionError("licenseStatus", s, "unknown license status")
}

// CompactEligibility is whether a license qualifies its holder for compact
// privileges.
type CompactEligibility string

const (
	CompactEligibilityEligible   CompactEligibility = "eligible"
	CompactEligibilityIneligible CompactEligibility = "ineligible"
)

func ParseCompactEligibility(s string) (CompactEligibility, error) {
	switch CompactEligibility(s) {
	case CompactEligibilityEligible, CompactEligibilityIneligible:
		return CompactEligibility(s), nil
	}
	return "", errors.NewDataCorruptionError("compactEligibility", s, "unknown compact eligibility")
}

// PrivilegeStatus is the persisted or administrator-set status of a privilege.
type PrivilegeStatus string

const (
	PrivilegeStatusActive   PrivilegeStatus = "active"
	PrivilegeStatusInactive PrivilegeStatus = "inactive"
)

func ParsePrivilegeStatus(s string) (PrivilegeStatus, error) {
	switch PrivilegeStatus(s) {
	case PrivilegeStatusActive, PrivilegeStatusInactive:
		return PrivilegeStatus(s), nil
	}
	return "", errors.NewDataCorruptionError("privilegeStatus", s, "unknown privilege status")
}

// EncumberedStatus marks a record encumbered by adverse action.
type EncumberedStatus string

const (
	EncumberedStatusEncumbered   EncumberedStatus = "encumbered"
	EncumberedStatusUnencumbered EncumberedStatus = "unencumbered"
)

// InvestigationStatus marks a record under an open investigation. Closing the
// investigation removes the attribute entirely rather than writing a
// "closed" value.
type InvestigationStatus string

const (
	InvestigationStatusUnderInvestigation InvestigationStatus = "underInvestigation"
)

// InvestigationAgainst scopes an investigation to its target record kind.
type InvestigationAgainst string

const (
	InvestigationAgainstLicense   InvestigationAgainst = "license"
	InvestigationAgainstPrivilege InvestigationAgainst = "privilege"
)

func ParseInvestigationAgainst(s string) (InvestigationAgainst, error) {
	switch InvestigationAgainst(s) {
	case InvestigationAgainstLicense, InvestigationAgainstPrivilege:
		return InvestigationAgainst(s), nil
	}
	return "", errors.NewInvalidRequestError("investigationAgainst", "must be license or privilege")
}

// UpdateTier selects how much of a provider's history is read when loading
// the aggregate. Higher tiers include more record kinds.
type UpdateTier int

const (
	// TierOne loads primary records only: provider, license, privilege.
	TierOne UpdateTier = 1
	// TierTwo additionally loads license and privilege update records.
	TierTwo UpdateTier = 2
	// TierThree loads everything, including investigation records.
	TierThree UpdateTier = 3
)

// FilterTypes returns the record type discriminators loaded at this tier, for
// use as a server-side query filter. TierThree returns nil: every record kind
// is wanted, so no filter is applied.
func (t UpdateTier) FilterTypes() []string {
	switch t {
	case TierOne:
		return []string{
			string(RecordTypeProvider),
			string(RecordTypeLicense),
			string(RecordTypePrivilege),
		}
	case TierTwo:
		return []string{
			string(RecordTypeProvider),
			string(RecordTypeLicense),
			string(RecordTypePrivilege),
			string(RecordTypeLicenseUpdate),
			string(RecordTypePrivilegeUpdate),
		}
	}
	return nil
}

// Includes reports whether records of the given type are loaded at this tier.
func (t UpdateTier) Includes(rt RecordType) bool {
	switch rt {
	case RecordTypeProvider, RecordTypeLicense, RecordTypePrivilege:
		return true
	case RecordTypeLicenseUpdate, RecordTypePrivilegeUpdate:
		return t >= TierTwo
	case RecordTypeInvestigation:
		return t >= TierThree
	}
	return false
}
