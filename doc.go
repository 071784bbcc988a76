/*
Package compactconnect is the backend data layer for a multi-state licensing
compact: the provider record data model, the mutation client that keeps
append-only history alongside every primary-record change, and the
checkpointed batch engine that rolls back bad license uploads.

All records for one provider live in one partition of a single-table
key-value store, discriminated by a type field and addressed by structured
sort keys. Secondary indexes support name search and upload-window
discovery.

Package layout:
  - records: record schemas, key construction, change hashing, decode/validate
  - storagemodels: storage-layer parameter and result types
  - datastore: the narrow store contract; ddb (DynamoDB) and mock backends
  - provider: per-provider aggregate loading and the mutation client
  - compactconfig: compact registry (active jurisdictions, license types)
  - rollback: the license-upload rollback engine
  - cmd/rollback: CLI entry point for one engine invocation

For more information, see the documentation at https://github.com/suparena/compactconnect
*/
package compactconnect
