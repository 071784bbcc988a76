/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package provider loads and mutates the record family of a single
// provider.
//
// LoadProviderRecords reads the provider's partition in one paginated
// query and decodes it into a ProviderRecords aggregate; the tier argument
// bounds which record types are fetched. Mutations go through DataClient,
// which pairs every primary-record write with an append-only update record
// in the same transaction.
package provider
