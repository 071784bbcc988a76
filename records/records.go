/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage layout for date-only fields. ISO dates compare
// correctly as strings, so date fields are stored and compared as strings.
const DateLayout = "2006-01-02"

// ParseDate parses a stored date-only field.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// CoerceDateTime parses a stored datetime field. Legacy records persisted
// date-only values in fields that are now full datetimes; those are coerced
// forward to midnight UTC.
func CoerceDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("unparsable datetime %q: %w", s, err)
	}
	return t, nil
}

// ProviderRecord is the top-level record for one licensee in one compact.
// Its status fields are derived from the provider's best license and are
// regenerated on every write that can affect them, never edited directly.
type ProviderRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact    string `dynamodbav:"compact"`
	ProviderID string `dynamodbav:"providerId"`

	GivenName   string `dynamodbav:"givenName"`
	MiddleName  string `dynamodbav:"middleName,omitempty"`
	FamilyName  string `dynamodbav:"familyName"`
	DateOfBirth string `dynamodbav:"dateOfBirth,omitempty"`
	Email       string `dynamodbav:"compactConnectRegisteredEmailAddress,omitempty"`
	PhoneNumber string `dynamodbav:"phoneNumber,omitempty"`

	LicenseJurisdiction string             `dynamodbav:"licenseJurisdiction"`
	LicenseStatus       LicenseStatus      `dynamodbav:"licenseStatus"`
	CompactEligibility  CompactEligibility `dynamodbav:"compactEligibility"`

	// PrivilegeJurisdictions is the set of jurisdictions for which an active
	// privilege record currently exists.
	PrivilegeJurisdictions []string `dynamodbav:"privilegeJurisdictions,stringset,omitempty"`

	// BirthMonthDay is a derived "mm-dd" index field.
	BirthMonthDay string `dynamodbav:"birthMonthDay,omitempty"`
	// ProviderFamGivMid is a derived lowercase composite search key.
	ProviderFamGivMid string `dynamodbav:"providerFamGivMid"`

	DateOfUpdate time.Time `dynamodbav:"dateOfUpdate"`
}

// SetDerivedFields populates the record type, keys and derived search fields
// from the identity fields already present.
func (r *ProviderRecord) SetDerivedFields() {
	r.Type = RecordTypeProvider
	r.PK = ProviderPK(r.Compact, r.ProviderID)
	r.SK = ProviderSK(r.Compact)
	r.ProviderFamGivMid = FamGivMid(r.FamilyName, r.GivenName, r.MiddleName)
	if len(r.DateOfBirth) == len(DateLayout) {
		r.BirthMonthDay = r.DateOfBirth[5:]
	}
}

// LicenseRecord is one jurisdiction-uploaded license for a provider, one per
// (compact, providerId, jurisdiction, licenseType).
type LicenseRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact                  string `dynamodbav:"compact"`
	ProviderID               string `dynamodbav:"providerId"`
	Jurisdiction             string `dynamodbav:"jurisdiction"`
	LicenseType              string `dynamodbav:"licenseType"`
	LicenseTypeAbbreviation  string `dynamodbav:"licenseTypeAbbreviation"`

	GivenName   string `dynamodbav:"givenName"`
	MiddleName  string `dynamodbav:"middleName,omitempty"`
	FamilyName  string `dynamodbav:"familyName"`
	DateOfBirth string `dynamodbav:"dateOfBirth,omitempty"`

	DateOfIssuance   string `dynamodbav:"dateOfIssuance"`
	DateOfRenewal    string `dynamodbav:"dateOfRenewal,omitempty"`
	DateOfExpiration string `dynamodbav:"dateOfExpiration"`

	// Status fields as reported by the jurisdiction's upload.
	JurisdictionUploadedLicenseStatus      LicenseStatus      `dynamodbav:"jurisdictionUploadedLicenseStatus"`
	JurisdictionUploadedCompactEligibility CompactEligibility `dynamodbav:"jurisdictionUploadedCompactEligibility"`

	// Calculated status fields, recomputed on read/write.
	LicenseStatus      LicenseStatus      `dynamodbav:"licenseStatus"`
	CompactEligibility CompactEligibility `dynamodbav:"compactEligibility"`

	EncumberedStatus    EncumberedStatus    `dynamodbav:"encumberedStatus,omitempty"`
	InvestigationStatus InvestigationStatus `dynamodbav:"investigationStatus,omitempty"`

	// FirstUploadDate marks when this license was first created by an
	// ingestion event. Rollback eligibility depends on it.
	FirstUploadDate time.Time `dynamodbav:"firstUploadDate"`

	LicenseGSIPK string `dynamodbav:"licenseGSIPK"`
	LicenseGSISK string `dynamodbav:"licenseGSISK"`

	LicenseUploadDateGSIPK string `dynamodbav:"licenseUploadDateGSIPK,omitempty"`
	LicenseUploadDateGSISK string `dynamodbav:"licenseUploadDateGSISK,omitempty"`

	DateOfUpdate time.Time `dynamodbav:"dateOfUpdate"`
}

// SetDerivedFields populates the record type, keys and GSI projections.
// The upload-date GSI keys are derived from FirstUploadDate so that a
// freshly-created license is discoverable by upload window.
func (r *LicenseRecord) SetDerivedFields() {
	r.Type = RecordTypeLicense
	r.PK = ProviderPK(r.Compact, r.ProviderID)
	r.SK = LicenseSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation)
	r.LicenseGSIPK = LicenseGSIPK(r.Compact, r.Jurisdiction)
	r.LicenseGSISK = FamGivMid(r.FamilyName, r.GivenName, r.MiddleName)
	if !r.FirstUploadDate.IsZero() {
		r.LicenseUploadDateGSIPK = UploadDateGSIPK(r.Compact, r.Jurisdiction, r.FirstUploadDate)
		r.LicenseUploadDateGSISK = UploadDateGSISK(r.FirstUploadDate, r.ProviderID)
	}
}

// PrivilegeRecord is a derived right to practice in a non-home jurisdiction,
// one per (compact, providerId, jurisdiction, licenseType).
//
// DateOfIssuance and DateOfRenewal are full datetimes. Legacy records hold
// date-only values; use IssuanceTime and RenewalTime, which coerce forward.
type PrivilegeRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact                 string `dynamodbav:"compact"`
	ProviderID              string `dynamodbav:"providerId"`
	Jurisdiction            string `dynamodbav:"jurisdiction"`
	LicenseJurisdiction     string `dynamodbav:"licenseJurisdiction"`
	LicenseType             string `dynamodbav:"licenseType"`
	LicenseTypeAbbreviation string `dynamodbav:"licenseTypeAbbreviation"`

	DateOfIssuance   string `dynamodbav:"dateOfIssuance"`
	DateOfRenewal    string `dynamodbav:"dateOfRenewal"`
	DateOfExpiration string `dynamodbav:"dateOfExpiration"`

	// PrivilegeID is the human-readable identifier, format
	// {LICENSE_ABBR}-{JURISDICTION}-{sequence}. Assigned at issuance and
	// preserved across renewals.
	PrivilegeID          string `dynamodbav:"privilegeId"`
	CompactTransactionID string `dynamodbav:"compactTransactionId"`

	PersistedStatus        PrivilegeStatus     `dynamodbav:"persistedStatus"`
	AdministratorSetStatus PrivilegeStatus     `dynamodbav:"administratorSetStatus,omitempty"`
	EncumberedStatus       EncumberedStatus    `dynamodbav:"encumberedStatus,omitempty"`
	InvestigationStatus    InvestigationStatus `dynamodbav:"investigationStatus,omitempty"`

	AttestationIDs []string `dynamodbav:"attestationIds,omitempty"`

	DateOfUpdate time.Time `dynamodbav:"dateOfUpdate"`
}

// SetDerivedFields populates the record type and keys.
func (r *PrivilegeRecord) SetDerivedFields() {
	r.Type = RecordTypePrivilege
	r.PK = ProviderPK(r.Compact, r.ProviderID)
	r.SK = PrivilegeSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation)
}

// IssuanceTime returns DateOfIssuance as a datetime, coercing legacy
// date-only values forward.
func (r *PrivilegeRecord) IssuanceTime() (time.Time, error) {
	return CoerceDateTime(r.DateOfIssuance)
}

// RenewalTime returns DateOfRenewal as a datetime, coercing legacy date-only
// values forward.
func (r *PrivilegeRecord) RenewalTime() (time.Time, error) {
	return CoerceDateTime(r.DateOfRenewal)
}

// UpdateRecord is an append-only history entry for one mutation of a license
// or privilege. Update records are immutable once written; undoing a change
// deletes the update record and rewrites the primary record, never mutates
// history in place.
type UpdateRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact                 string `dynamodbav:"compact"`
	ProviderID              string `dynamodbav:"providerId"`
	Jurisdiction            string `dynamodbav:"jurisdiction"`
	LicenseType             string `dynamodbav:"licenseType"`
	LicenseTypeAbbreviation string `dynamodbav:"licenseTypeAbbreviation"`

	UpdateType UpdateType `dynamodbav:"updateType"`
	CreateDate time.Time  `dynamodbav:"createDate"`

	// Previous is a full snapshot of all mutable fields before the change.
	Previous map[string]any `dynamodbav:"previous"`
	// UpdatedValues holds only the fields that changed.
	UpdatedValues map[string]any `dynamodbav:"updatedValues"`
	// RemovedValues names fields dropped by the change.
	RemovedValues []string `dynamodbav:"removedValues,omitempty"`

	LicenseUploadDateGSIPK string `dynamodbav:"licenseUploadDateGSIPK,omitempty"`
	LicenseUploadDateGSISK string `dynamodbav:"licenseUploadDateGSISK,omitempty"`
}

// SetDerivedFields populates the record keys. The sort key embeds the POSIX
// create timestamp and the change hash, so two updates at the same second
// with different content never collide. The kind must be
// RecordTypeLicenseUpdate or RecordTypePrivilegeUpdate.
func (r *UpdateRecord) SetDerivedFields(kind RecordType) error {
	hash, err := ChangeHash(r.UpdateType, r.UpdatedValues, r.RemovedValues)
	if err != nil {
		return err
	}
	r.Type = kind
	r.PK = ProviderPK(r.Compact, r.ProviderID)
	switch kind {
	case RecordTypeLicenseUpdate:
		r.SK = UpdateSK(LicenseSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation), r.CreateDate, hash)
	case RecordTypePrivilegeUpdate:
		r.SK = UpdateSK(PrivilegeSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation), r.CreateDate, hash)
	default:
		return fmt.Errorf("not an update record type: %s", kind)
	}
	return nil
}

// IsLicenseUpdate reports whether this update applies to a license record.
func (r *UpdateRecord) IsLicenseUpdate() bool {
	return r.Type == RecordTypeLicenseUpdate
}

// InvestigationRecord tracks one investigation against a license or
// privilege. Open investigations block certain other operations.
type InvestigationRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact                 string `dynamodbav:"compact"`
	ProviderID              string `dynamodbav:"providerId"`
	Jurisdiction            string `dynamodbav:"jurisdiction"`
	LicenseTypeAbbreviation string `dynamodbav:"licenseTypeAbbreviation"`

	InvestigationID      string               `dynamodbav:"investigationId"`
	InvestigationAgainst InvestigationAgainst `dynamodbav:"investigationAgainst"`

	CreatingUser string    `dynamodbav:"creatingUser"`
	CreateDate   time.Time `dynamodbav:"createDate"`

	CloseDate              *time.Time `dynamodbav:"closeDate,omitempty"`
	ClosingUser            string     `dynamodbav:"closingUser,omitempty"`
	ResultingEncumbranceID string     `dynamodbav:"resultingEncumbranceId,omitempty"`
}

// SetDerivedFields populates the record type and keys.
func (r *InvestigationRecord) SetDerivedFields() {
	r.Type = RecordTypeInvestigation
	r.PK = ProviderPK(r.Compact, r.ProviderID)
	r.SK = InvestigationSK(r.Compact, r.InvestigationAgainst, r.Jurisdiction, r.LicenseTypeAbbreviation, r.InvestigationID)
}

// Closed reports whether the investigation has been closed.
func (r *InvestigationRecord) Closed() bool {
	return r.CloseDate != nil
}

// PrivilegeCountRecord is the compact-scoped sequence counter used to
// generate privilege ID suffixes. It is claimed via an atomic increment; no
// two claimants may observe the same value.
type PrivilegeCountRecord struct {
	PK   string     `dynamodbav:"pk"`
	SK   string     `dynamodbav:"sk"`
	Type RecordType `dynamodbav:"type"`

	Compact        string `dynamodbav:"compact"`
	PrivilegeCount int64  `dynamodbav:"privilegeCount"`
}

// SetDerivedFields populates the record type and keys.
func (r *PrivilegeCountRecord) SetDerivedFields() {
	r.Type = RecordTypePrivilegeCount
	r.PK = PrivilegeCountKey(r.Compact)
	r.SK = PrivilegeCountKey(r.Compact)
}

// FamGivMid builds the lowercase family/given/middle composite search key.
func FamGivMid(family, given, middle string) string {
	parts := []string{strings.ToLower(family), strings.ToLower(given)}
	if middle != "" {
		parts = append(parts, strings.ToLower(middle))
	}
	return strings.Join(parts, "#")
}

// FormatPrivilegeID renders the human-readable privilege identifier.
func FormatPrivilegeID(licenseTypeAbbreviation, jurisdiction string, sequence int64) string {
	return fmt.Sprintf("%s-%s-%d",
		strings.ToUpper(licenseTypeAbbreviation),
		strings.ToUpper(jurisdiction),
		sequence)
}
