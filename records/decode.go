/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/compactconnect/errors"
)

// Record is the closed union of persisted record kinds.
type Record interface {
	RecordType() RecordType
	RecordKeys() (pk, sk string)
}

func (r *ProviderRecord) RecordType() RecordType       { return RecordTypeProvider }
func (r *LicenseRecord) RecordType() RecordType        { return RecordTypeLicense }
func (r *PrivilegeRecord) RecordType() RecordType      { return RecordTypePrivilege }
func (r *UpdateRecord) RecordType() RecordType         { return r.Type }
func (r *InvestigationRecord) RecordType() RecordType  { return RecordTypeInvestigation }
func (r *PrivilegeCountRecord) RecordType() RecordType { return RecordTypePrivilegeCount }

func (r *ProviderRecord) RecordKeys() (string, string)       { return r.PK, r.SK }
func (r *LicenseRecord) RecordKeys() (string, string)        { return r.PK, r.SK }
func (r *PrivilegeRecord) RecordKeys() (string, string)      { return r.PK, r.SK }
func (r *UpdateRecord) RecordKeys() (string, string)         { return r.PK, r.SK }
func (r *InvestigationRecord) RecordKeys() (string, string)  { return r.PK, r.SK }
func (r *PrivilegeCountRecord) RecordKeys() (string, string) { return r.PK, r.SK }

// DecodeRecord unmarshals a raw table item into its concrete record type,
// dispatching on the "type" discriminator with one exhaustive mapping, and
// validates the result. Every record loaded from the store passes through
// here, so a corrupted or partial write surfaces as a DataCorruptionError
// before it can reach an external consumer.
func DecodeRecord(item map[string]types.AttributeValue) (Record, error) {
	var discriminator string
	attr, ok := item["type"]
	if !ok {
		return nil, errors.NewDataCorruptionError("record", itemKeyString(item), "missing type attribute")
	}
	if err := attributevalue.Unmarshal(attr, &discriminator); err != nil {
		return nil, errors.NewDataCorruptionError("record", itemKeyString(item), "unreadable type attribute")
	}
	rt, err := ParseRecordType(discriminator)
	if err != nil {
		return nil, err
	}

	var rec Record
	switch rt {
	case RecordTypeProvider:
		rec = &ProviderRecord{}
	case RecordTypeLicense:
		rec = &LicenseRecord{}
	case RecordTypePrivilege:
		rec = &PrivilegeRecord{}
	case RecordTypeLicenseUpdate, RecordTypePrivilegeUpdate:
		rec = &UpdateRecord{}
	case RecordTypeInvestigation:
		rec = &InvestigationRecord{}
	case RecordTypePrivilegeCount:
		rec = &PrivilegeCountRecord{}
	}

	if err := unmarshalInto(item, rec, discriminator); err != nil {
		return nil, err
	}
	if err := ValidateOnLoad(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func unmarshalInto(item map[string]types.AttributeValue, rec Record, discriminator string) error {
	var err error
	switch r := rec.(type) {
	case *ProviderRecord:
		err = attributevalue.UnmarshalMap(item, r)
	case *LicenseRecord:
		err = attributevalue.UnmarshalMap(item, r)
	case *PrivilegeRecord:
		err = attributevalue.UnmarshalMap(item, r)
	case *UpdateRecord:
		err = attributevalue.UnmarshalMap(item, r)
	case *InvestigationRecord:
		err = attributevalue.UnmarshalMap(item, r)
	case *PrivilegeCountRecord:
		err = attributevalue.UnmarshalMap(item, r)
	}
	if err != nil {
		return errors.NewDataCorruptionError(discriminator, itemKeyString(item), err.Error())
	}
	return nil
}

// ValidateOnLoad rejects a record whose shape does not match its declared
// type. Stored keys must equal the keys rederived from the record's own
// fields; required identity fields must be present.
func ValidateOnLoad(rec Record) error {
	pk, sk := rec.RecordKeys()
	key := pk + "|" + sk

	switch r := rec.(type) {
	case *ProviderRecord:
		if r.Compact == "" || r.ProviderID == "" {
			return errors.NewDataCorruptionError("provider", key, "missing compact or providerId")
		}
		if pk != ProviderPK(r.Compact, r.ProviderID) || sk != ProviderSK(r.Compact) {
			return errors.NewDataCorruptionError("provider", key, "stored keys disagree with record fields")
		}
	case *LicenseRecord:
		if r.Compact == "" || r.ProviderID == "" || r.Jurisdiction == "" || r.LicenseTypeAbbreviation == "" {
			return errors.NewDataCorruptionError("license", key, "missing identity fields")
		}
		if pk != ProviderPK(r.Compact, r.ProviderID) || sk != LicenseSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation) {
			return errors.NewDataCorruptionError("license", key, "stored keys disagree with record fields")
		}
		if r.DateOfExpiration == "" {
			return errors.NewDataCorruptionError("license", key, "missing dateOfExpiration")
		}
	case *PrivilegeRecord:
		if r.Compact == "" || r.ProviderID == "" || r.Jurisdiction == "" || r.LicenseTypeAbbreviation == "" {
			return errors.NewDataCorruptionError("privilege", key, "missing identity fields")
		}
		if pk != ProviderPK(r.Compact, r.ProviderID) || sk != PrivilegeSK(r.Compact, r.Jurisdiction, r.LicenseTypeAbbreviation) {
			return errors.NewDataCorruptionError("privilege", key, "stored keys disagree with record fields")
		}
		if r.PrivilegeID == "" {
			return errors.NewDataCorruptionError("privilege", key, "missing privilegeId")
		}
	case *UpdateRecord:
		if r.Compact == "" || r.ProviderID == "" || r.Jurisdiction == "" || r.LicenseTypeAbbreviation == "" {
			return errors.NewDataCorruptionError(string(r.Type), key, "missing identity fields")
		}
		if _, err := ParseUpdateType(string(r.UpdateType)); err != nil {
			return err
		}
		if r.CreateDate.IsZero() {
			return errors.NewDataCorruptionError(string(r.Type), key, "missing createDate")
		}
		if _, _, err := ParseUpdateSK(sk); err != nil {
			return errors.NewDataCorruptionError(string(r.Type), key, err.Error())
		}
	case *InvestigationRecord:
		if r.Compact == "" || r.ProviderID == "" || r.InvestigationID == "" {
			return errors.NewDataCorruptionError("investigation", key, "missing identity fields")
		}
		if _, err := ParseInvestigationAgainst(string(r.InvestigationAgainst)); err != nil {
			return errors.NewDataCorruptionError("investigation", key, "invalid investigationAgainst")
		}
	case *PrivilegeCountRecord:
		if r.Compact == "" {
			return errors.NewDataCorruptionError("privilegeCount", key, "missing compact")
		}
		if pk != PrivilegeCountKey(r.Compact) || sk != PrivilegeCountKey(r.Compact) {
			return errors.NewDataCorruptionError("privilegeCount", key, "stored keys disagree with record fields")
		}
	}
	return nil
}

// EncodeRecord marshals a record to a raw table item. The caller is expected
// to have populated derived fields first.
func EncodeRecord(rec Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s record: %w", rec.RecordType(), err)
	}
	return item, nil
}

func itemKeyString(item map[string]types.AttributeValue) string {
	var pk, sk string
	if attr, ok := item["pk"]; ok {
		_ = attributevalue.Unmarshal(attr, &pk)
	}
	if attr, ok := item["sk"]; ok {
		_ = attributevalue.Unmarshal(attr, &sk)
	}
	return pk + "|" + sk
}
