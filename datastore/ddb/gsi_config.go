/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

// GSIConfig holds the key attribute names for a secondary index.
type GSIConfig struct {
	// IndexName is the actual GSI name in DynamoDB.
	IndexName string
	// PartitionKeyName is the partition key attribute name in the GSI.
	PartitionKeyName string
	// SortKeyName is the sort key attribute name in the GSI.
	SortKeyName string
}

// Index names for the provider table.
const (
	// LicenseGSIName indexes licenses by jurisdiction and provider name for
	// name-based search.
	LicenseGSIName = "licenseGSI"
	// LicenseUploadDateGSIName indexes licenses and license updates by
	// month-bucketed upload window; used exclusively to find what changed
	// during an upload window.
	LicenseUploadDateGSIName = "licenseUploadDateGSI"
)

// DefaultGSIConfigs holds the provider table's GSI configurations.
var DefaultGSIConfigs = map[string]GSIConfig{
	LicenseGSIName: {
		IndexName:        LicenseGSIName,
		PartitionKeyName: "licenseGSIPK",
		SortKeyName:      "licenseGSISK",
	},
	LicenseUploadDateGSIName: {
		IndexName:        LicenseUploadDateGSIName,
		PartitionKeyName: "licenseUploadDateGSIPK",
		SortKeyName:      "licenseUploadDateGSISK",
	},
}

// GetGSIConfig returns the GSI configuration for a given index name.
func GetGSIConfig(indexName string) (GSIConfig, bool) {
	config, ok := DefaultGSIConfigs[indexName]
	return config, ok
}
