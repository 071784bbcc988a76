/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"fmt"
	"strings"
	"time"
)

// Key derivation for the provider table. Every record belonging to one
// provider shares the partition {compact}#PROVIDER#{providerId}; the sort key
// encodes the record kind and its identifying fields. Derivation is a pure
// function of fields already present on the record.

// ProviderPK returns the partition key shared by all of a provider's records.
func ProviderPK(compact, providerID string) string {
	return fmt.Sprintf("%s#PROVIDER#%s", compact, providerID)
}

// ProviderSK returns the sort key of the top-level provider record.
func ProviderSK(compact string) string {
	return fmt.Sprintf("%s#PROVIDER", compact)
}

// LicenseSK returns the sort key of a license record. The trailing "#" keeps
// the primary record sorted ahead of its update records, which extend this
// prefix.
func LicenseSK(compact, jurisdiction, licenseTypeAbbreviation string) string {
	return fmt.Sprintf("%s#PROVIDER#license/%s/%s#", compact, jurisdiction, licenseTypeAbbreviation)
}

// PrivilegeSK returns the sort key of a privilege record.
func PrivilegeSK(compact, jurisdiction, licenseTypeAbbreviation string) string {
	return fmt.Sprintf("%s#PROVIDER#privilege/%s/%s#", compact, jurisdiction, licenseTypeAbbreviation)
}

// UpdateSK returns the sort key of an update record under the given primary
// record sort key. The POSIX timestamp orders a record's history; the change
// hash disambiguates same-second updates and deliberately embeds no other
// predictable ordering token. The hash must never be exposed through any
// public API: combined with guessable timestamps it could let an attacker
// verify guesses about hidden field values.
func UpdateSK(primarySK string, createDate time.Time, changeHash string) string {
	return fmt.Sprintf("%sUPDATE#%d/%s", primarySK, createDate.Unix(), changeHash)
}

// InvestigationSK returns the sort key of an investigation record.
func InvestigationSK(compact string, against InvestigationAgainst, jurisdiction, licenseTypeAbbreviation, investigationID string) string {
	return fmt.Sprintf("%s#PROVIDER#investigation/%s/%s/%s#%s",
		compact, against, jurisdiction, licenseTypeAbbreviation, investigationID)
}

// PrivilegeCountKey returns the pk (and identical sk) of the compact's
// privilege sequence counter.
func PrivilegeCountKey(compact string) string {
	return fmt.Sprintf("%s#PRIVILEGE_COUNT", compact)
}

// LicenseGSIPK returns the partition key of the name-search GSI, scoping
// name lookups to one jurisdiction within one compact.
func LicenseGSIPK(compact, jurisdiction string) string {
	return fmt.Sprintf("%s#JUR#%s", compact, jurisdiction)
}

// UploadDateGSIPK returns the month-bucketed partition key of the
// upload-date GSI: C#{compact}#J#{jurisdiction}#D#{yyyy-mm}. A query window
// spanning several calendar months requires one query per month bucket.
func UploadDateGSIPK(compact, jurisdiction string, uploadTime time.Time) string {
	return fmt.Sprintf("C#%s#J#%s#D#%s", compact, jurisdiction, uploadTime.UTC().Format("2006-01"))
}

// UploadDateGSIPKForMonth is UploadDateGSIPK for an already-formatted
// yyyy-mm month bucket, as produced by MonthBuckets.
func UploadDateGSIPKForMonth(compact, jurisdiction, month string) string {
	return fmt.Sprintf("C#%s#J#%s#D#%s", compact, jurisdiction, month)
}

// UploadDateGSISK returns the sort key of the upload-date GSI. The epoch is
// zero-padded so lexicographic order matches time order.
func UploadDateGSISK(uploadTime time.Time, providerID string) string {
	return fmt.Sprintf("TIME#%010d#PID#%s", uploadTime.Unix(), providerID)
}

// UploadDateGSISKBound returns a sort-key bound at the given instant without
// a provider suffix, for use in BETWEEN conditions.
func UploadDateGSISKBound(t time.Time) string {
	return fmt.Sprintf("TIME#%010d", t.Unix())
}

// ProviderIDFromUploadDateGSISK extracts the provider ID from an upload-date
// GSI sort key.
func ProviderIDFromUploadDateGSISK(sk string) (string, error) {
	i := strings.Index(sk, "#PID#")
	if !strings.HasPrefix(sk, "TIME#") || i < 0 || i+5 >= len(sk) {
		return "", fmt.Errorf("malformed upload-date GSI sort key %q", sk)
	}
	return sk[i+5:], nil
}

// MonthBuckets returns the yyyy-mm partition suffixes for every calendar
// month spanned by [start, end], in ascending order.
func MonthBuckets(start, end time.Time) []string {
	start = start.UTC()
	end = end.UTC()
	var buckets []string
	cur := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(end.Year(), end.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(last) {
		buckets = append(buckets, cur.Format("2006-01"))
		cur = cur.AddDate(0, 1, 0)
	}
	return buckets
}

// ParseUpdateSK extracts the POSIX timestamp and change hash from an update
// record's sort key.
func ParseUpdateSK(sk string) (int64, string, error) {
	i := strings.LastIndex(sk, "UPDATE#")
	if i < 0 {
		return 0, "", fmt.Errorf("not an update sort key: %q", sk)
	}
	rest := sk[i+len("UPDATE#"):]
	slash := strings.Index(rest, "/")
	if slash < 0 || slash == len(rest)-1 {
		return 0, "", fmt.Errorf("malformed update sort key: %q", sk)
	}
	var ts int64
	if _, err := fmt.Sscanf(rest[:slash], "%d", &ts); err != nil {
		return 0, "", fmt.Errorf("malformed update timestamp in %q: %w", sk, err)
	}
	return ts, rest[slash+1:], nil
}
