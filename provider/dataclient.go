/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/compactconnect/compactconfig"
	"github.com/suparena/compactconnect/datastore"
	"github.com/suparena/compactconnect/errors"
	"github.com/suparena/compactconnect/records"
	"github.com/suparena/compactconnect/storagemodels"
)

// DataClient performs the higher-level record mutations: every mutation
// writes its primary record together with an append-only update record in
// one transactional batch, so history can never drift from primary state.
type DataClient struct {
	store  datastore.Store
	config *compactconfig.Config
	logger *slog.Logger
	now    func() time.Time
}

// NewDataClient constructs a DataClient.
func NewDataClient(store datastore.Store, config *compactconfig.Config, logger *slog.Logger) *DataClient {
	return &DataClient{
		store:  store,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (c *DataClient) WithClock(now func() time.Time) *DataClient {
	c.now = now
	return c
}

// ClaimPrivilegeNumber atomically claims the next value of the compact's
// privilege sequence counter. The increment is atomic at the storage layer;
// no two callers observe the same value and the sequence has no gaps.
func (c *DataClient) ClaimPrivilegeNumber(ctx context.Context, compact string) (int64, error) {
	key := storagemodels.ItemKey{
		PK: records.PrivilegeCountKey(compact),
		SK: records.PrivilegeCountKey(compact),
	}
	n, err := c.store.AtomicAdd(ctx, key, "privilegeCount", 1)
	if err != nil {
		return 0, fmt.Errorf("failed to claim privilege number for compact %s: %w", compact, err)
	}
	return n, nil
}

// CreatePrivilegesInput is the input to CreateProviderPrivileges.
type CreatePrivilegesInput struct {
	Compact                         string
	ProviderID                      string
	JurisdictionPostalAbbreviations []string
	LicenseExpirationDate           string
	ProviderRecord                  *records.ProviderRecord
	ExistingPrivileges              []*records.PrivilegeRecord
	CompactTransactionID            string
	AttestationIDs                  []string
	LicenseType                     string
	LicenseJurisdiction             string
}

// CreateProviderPrivileges creates or renews one privilege per requested
// jurisdiction. A new privilege claims a fresh sequence number for its
// privilegeId; a renewal preserves the privilegeId and appends a renewal
// update holding only the fields that changed. The provider record's
// privilegeJurisdictions set is extended to cover every affected
// jurisdiction. All writes commit transactionally; batches beyond the
// storage limit are chunked and a failed batch surfaces as a transaction
// error for the whole operation.
func (c *DataClient) CreateProviderPrivileges(ctx context.Context, in CreatePrivilegesInput) error {
	abbr, err := c.config.LicenseTypeAbbreviation(in.Compact, in.LicenseType)
	if err != nil {
		return err
	}
	for _, jurisdiction := range in.JurisdictionPostalAbbreviations {
		active, err := c.config.IsActiveJurisdiction(in.Compact, jurisdiction)
		if err != nil {
			return err
		}
		if !active {
			return errors.NewInvalidRequestError("jurisdiction",
				fmt.Sprintf("jurisdiction %q is not active in compact %q", jurisdiction, in.Compact))
		}
	}

	now := c.now().UTC()
	var ops []storagemodels.TransactOp

	for _, jurisdiction := range in.JurisdictionPostalAbbreviations {
		existing := findPrivilege(in.ExistingPrivileges, jurisdiction, abbr)
		if existing != nil {
			renewOps, err := c.renewPrivilegeOps(existing, in, now)
			if err != nil {
				return err
			}
			ops = append(ops, renewOps...)
			continue
		}
		issueOps, err := c.issuePrivilegeOps(ctx, jurisdiction, abbr, in, now)
		if err != nil {
			return err
		}
		ops = append(ops, issueOps...)
	}

	prov := *in.ProviderRecord
	prov.PrivilegeJurisdictions = unionJurisdictions(prov.PrivilegeJurisdictions, in.JurisdictionPostalAbbreviations)
	prov.DateOfUpdate = now
	prov.SetDerivedFields()
	provItem, err := records.EncodeRecord(&prov)
	if err != nil {
		return err
	}
	ops = append(ops, storagemodels.TransactOp{Put: provItem})

	if err := c.transactChunked(ctx, "create provider privileges", ops); err != nil {
		return err
	}
	c.logger.Info("created provider privileges",
		"compact", in.Compact,
		"providerId", in.ProviderID,
		"jurisdictions", in.JurisdictionPostalAbbreviations)
	return nil
}

func (c *DataClient) issuePrivilegeOps(ctx context.Context, jurisdiction, abbr string, in CreatePrivilegesInput, now time.Time) ([]storagemodels.TransactOp, error) {
	seq, err := c.ClaimPrivilegeNumber(ctx, in.Compact)
	if err != nil {
		return nil, err
	}

	priv := &records.PrivilegeRecord{
		Compact:                 in.Compact,
		ProviderID:              in.ProviderID,
		Jurisdiction:            jurisdiction,
		LicenseJurisdiction:     in.LicenseJurisdiction,
		LicenseType:             in.LicenseType,
		LicenseTypeAbbreviation: abbr,
		DateOfIssuance:          now.Format(time.RFC3339),
		DateOfRenewal:           now.Format(time.RFC3339),
		DateOfExpiration:        in.LicenseExpirationDate,
		PrivilegeID:             records.FormatPrivilegeID(abbr, jurisdiction, seq),
		CompactTransactionID:    in.CompactTransactionID,
		PersistedStatus:         records.PrivilegeStatusActive,
		AttestationIDs:          in.AttestationIDs,
		DateOfUpdate:            now,
	}
	priv.SetDerivedFields()

	update := &records.UpdateRecord{
		Compact:                 in.Compact,
		ProviderID:              in.ProviderID,
		Jurisdiction:            jurisdiction,
		LicenseType:             in.LicenseType,
		LicenseTypeAbbreviation: abbr,
		UpdateType:              records.UpdateTypeIssuance,
		CreateDate:              now,
		Previous:                map[string]any{},
		UpdatedValues: map[string]any{
			"dateOfIssuance":       priv.DateOfIssuance,
			"dateOfExpiration":     priv.DateOfExpiration,
			"compactTransactionId": priv.CompactTransactionID,
			"persistedStatus":      string(priv.PersistedStatus),
			"privilegeId":          priv.PrivilegeID,
		},
	}
	return encodePrivilegePair(priv, update)
}

func (c *DataClient) renewPrivilegeOps(existing *records.PrivilegeRecord, in CreatePrivilegesInput, now time.Time) ([]storagemodels.TransactOp, error) {
	renewed := *existing
	renewed.DateOfRenewal = now.Format(time.RFC3339)
	renewed.DateOfExpiration = in.LicenseExpirationDate
	renewed.CompactTransactionID = in.CompactTransactionID
	renewed.PersistedStatus = records.PrivilegeStatusActive
	if len(in.AttestationIDs) > 0 {
		renewed.AttestationIDs = in.AttestationIDs
	}
	renewed.DateOfUpdate = now
	renewed.SetDerivedFields()

	updated := map[string]any{"dateOfRenewal": renewed.DateOfRenewal}
	if renewed.DateOfExpiration != existing.DateOfExpiration {
		updated["dateOfExpiration"] = renewed.DateOfExpiration
	}
	if renewed.CompactTransactionID != existing.CompactTransactionID {
		updated["compactTransactionId"] = renewed.CompactTransactionID
	}
	if renewed.PersistedStatus != existing.PersistedStatus {
		updated["persistedStatus"] = string(renewed.PersistedStatus)
	}

	update := &records.UpdateRecord{
		Compact:                 in.Compact,
		ProviderID:              in.ProviderID,
		Jurisdiction:            existing.Jurisdiction,
		LicenseType:             existing.LicenseType,
		LicenseTypeAbbreviation: existing.LicenseTypeAbbreviation,
		UpdateType:              records.UpdateTypeRenewal,
		CreateDate:              now,
		Previous:                privilegeSnapshot(existing),
		UpdatedValues:           updated,
	}
	return encodePrivilegePair(&renewed, update)
}

// DeactivatePrivilege marks the provider's privilege in the jurisdiction
// inactive, removes the jurisdiction from the provider's
// privilegeJurisdictions set, and appends a deactivation update. It fails
// with a not-found error if no privilege record exists for the jurisdiction,
// and is a no-op when the privilege is already inactive: re-running creates
// no duplicate history and no duplicate set removal.
func (c *DataClient) DeactivatePrivilege(ctx context.Context, compact, providerID, jurisdiction string) error {
	agg, err := LoadProviderRecords(ctx, c.store, compact, providerID, records.TierOne)
	if err != nil {
		return err
	}
	privileges := agg.GetPrivilegeRecords(func(p *records.PrivilegeRecord) bool {
		return p.Jurisdiction == jurisdiction
	})
	if len(privileges) == 0 {
		return errors.NewNotFoundError("privilege", records.PrivilegeSK(compact, jurisdiction, "*"))
	}

	active := make([]*records.PrivilegeRecord, 0, len(privileges))
	for _, p := range privileges {
		if p.PersistedStatus != records.PrivilegeStatusInactive {
			active = append(active, p)
		}
	}
	if len(active) == 0 {
		// Already inactive; idempotent no-op.
		return nil
	}

	prov, err := agg.GetProviderRecord()
	if err != nil {
		return err
	}

	now := c.now().UTC()
	var ops []storagemodels.TransactOp
	for _, p := range active {
		deactivated := *p
		deactivated.PersistedStatus = records.PrivilegeStatusInactive
		deactivated.DateOfUpdate = now
		deactivated.SetDerivedFields()

		update := &records.UpdateRecord{
			Compact:                 compact,
			ProviderID:              providerID,
			Jurisdiction:            jurisdiction,
			LicenseType:             p.LicenseType,
			LicenseTypeAbbreviation: p.LicenseTypeAbbreviation,
			UpdateType:              records.UpdateTypeDeactivation,
			CreateDate:              now,
			Previous:                privilegeSnapshot(p),
			UpdatedValues: map[string]any{
				"persistedStatus": string(records.PrivilegeStatusInactive),
			},
		}
		pairOps, err := encodePrivilegePair(&deactivated, update)
		if err != nil {
			return err
		}
		ops = append(ops, pairOps...)
	}

	updatedProv := *prov
	updatedProv.PrivilegeJurisdictions = removeJurisdiction(updatedProv.PrivilegeJurisdictions, jurisdiction)
	updatedProv.DateOfUpdate = now
	updatedProv.SetDerivedFields()
	provItem, err := records.EncodeRecord(&updatedProv)
	if err != nil {
		return err
	}
	ops = append(ops, storagemodels.TransactOp{Put: provItem})

	if err := c.transactChunked(ctx, "deactivate privilege", ops); err != nil {
		return err
	}
	c.logger.Info("deactivated privilege",
		"compact", compact, "providerId", providerID, "jurisdiction", jurisdiction)
	return nil
}

// CreateInvestigation opens an investigation against a license or privilege.
// The target must exist; the target record gains the underInvestigation
// marker and an investigation update is appended, all transactionally. A
// missing InvestigationID is assigned.
func (c *DataClient) CreateInvestigation(ctx context.Context, inv *records.InvestigationRecord) error {
	agg, err := LoadProviderRecords(ctx, c.store, inv.Compact, inv.ProviderID, records.TierThree)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	if inv.InvestigationID == "" {
		inv.InvestigationID = uuid.NewString()
	}
	inv.CreateDate = now
	inv.SetDerivedFields()

	targetOp, licenseType, err := c.markTarget(agg, inv.InvestigationAgainst, inv.Jurisdiction, inv.LicenseTypeAbbreviation, now)
	if err != nil {
		return err
	}

	invItem, err := records.EncodeRecord(inv)
	if err != nil {
		return err
	}

	update := &records.UpdateRecord{
		Compact:                 inv.Compact,
		ProviderID:              inv.ProviderID,
		Jurisdiction:            inv.Jurisdiction,
		LicenseType:             licenseType,
		LicenseTypeAbbreviation: inv.LicenseTypeAbbreviation,
		UpdateType:              records.UpdateTypeInvestigation,
		CreateDate:              now,
		Previous:                map[string]any{},
		UpdatedValues: map[string]any{
			"investigationStatus": string(records.InvestigationStatusUnderInvestigation),
		},
	}
	if err := update.SetDerivedFields(updateKindFor(inv.InvestigationAgainst)); err != nil {
		return err
	}
	updateItem, err := records.EncodeRecord(update)
	if err != nil {
		return err
	}

	ops := []storagemodels.TransactOp{*targetOp, {Put: invItem}, {Put: updateItem}}
	if err := c.transactChunked(ctx, "create investigation", ops); err != nil {
		return err
	}
	c.logger.Info("created investigation",
		"compact", inv.Compact, "providerId", inv.ProviderID,
		"investigationId", inv.InvestigationID, "against", inv.InvestigationAgainst)
	return nil
}

// CloseInvestigationInput is the input to CloseInvestigation.
type CloseInvestigationInput struct {
	Compact                 string
	ProviderID              string
	Jurisdiction            string
	LicenseTypeAbbreviation string
	InvestigationID         string
	ClosingUser             string
	CloseDate               time.Time
	InvestigationAgainst    records.InvestigationAgainst
	ResultingEncumbranceID  string
}

// CloseInvestigation closes an open investigation: removes the
// underInvestigation marker from the target record, appends a
// closingInvestigation update naming the removed field, and stamps the
// investigation record with its closing details. Closing is not idempotent:
// a second close of the same investigation fails with a not-found error.
func (c *DataClient) CloseInvestigation(ctx context.Context, in CloseInvestigationInput) error {
	agg, err := LoadProviderRecords(ctx, c.store, in.Compact, in.ProviderID, records.TierThree)
	if err != nil {
		return err
	}

	inv := agg.GetInvestigationRecord(in.InvestigationAgainst, in.Jurisdiction, in.LicenseTypeAbbreviation, in.InvestigationID)
	if inv == nil || inv.Closed() {
		return errors.NewNotFoundError("investigation", in.InvestigationID)
	}

	now := c.now().UTC()
	targetOp, licenseType, err := c.clearTarget(agg, in.InvestigationAgainst, in.Jurisdiction, in.LicenseTypeAbbreviation, now)
	if err != nil {
		return err
	}

	closed := *inv
	closeDate := in.CloseDate.UTC()
	closed.CloseDate = &closeDate
	closed.ClosingUser = in.ClosingUser
	closed.ResultingEncumbranceID = in.ResultingEncumbranceID
	closedItem, err := records.EncodeRecord(&closed)
	if err != nil {
		return err
	}

	update := &records.UpdateRecord{
		Compact:                 in.Compact,
		ProviderID:              in.ProviderID,
		Jurisdiction:            in.Jurisdiction,
		LicenseType:             licenseType,
		LicenseTypeAbbreviation: in.LicenseTypeAbbreviation,
		UpdateType:              records.UpdateTypeClosingInvestigation,
		CreateDate:              now,
		Previous: map[string]any{
			"investigationStatus": string(records.InvestigationStatusUnderInvestigation),
		},
		UpdatedValues: map[string]any{},
		RemovedValues: []string{"investigationStatus"},
	}
	if err := update.SetDerivedFields(updateKindFor(in.InvestigationAgainst)); err != nil {
		return err
	}
	updateItem, err := records.EncodeRecord(update)
	if err != nil {
		return err
	}

	ops := []storagemodels.TransactOp{*targetOp, {Put: closedItem}, {Put: updateItem}}
	if err := c.transactChunked(ctx, "close investigation", ops); err != nil {
		return err
	}
	c.logger.Info("closed investigation",
		"compact", in.Compact, "providerId", in.ProviderID,
		"investigationId", in.InvestigationID)
	return nil
}

// markTarget returns a put of the investigation target with the
// underInvestigation marker set.
func (c *DataClient) markTarget(agg *ProviderRecords, against records.InvestigationAgainst, jurisdiction, abbr string, now time.Time) (*storagemodels.TransactOp, string, error) {
	return c.stampTarget(agg, against, jurisdiction, abbr, now, records.InvestigationStatusUnderInvestigation)
}

// clearTarget returns a put of the investigation target with the
// underInvestigation marker removed.
func (c *DataClient) clearTarget(agg *ProviderRecords, against records.InvestigationAgainst, jurisdiction, abbr string, now time.Time) (*storagemodels.TransactOp, string, error) {
	return c.stampTarget(agg, against, jurisdiction, abbr, now, "")
}

func (c *DataClient) stampTarget(agg *ProviderRecords, against records.InvestigationAgainst, jurisdiction, abbr string, now time.Time, status records.InvestigationStatus) (*storagemodels.TransactOp, string, error) {
	switch against {
	case records.InvestigationAgainstLicense:
		licenses := agg.GetLicenseRecords(func(l *records.LicenseRecord) bool {
			return l.Jurisdiction == jurisdiction && l.LicenseTypeAbbreviation == abbr
		})
		if len(licenses) == 0 {
			return nil, "", errors.NewNotFoundError("license", records.LicenseSK(agg.Compact, jurisdiction, abbr))
		}
		target := *licenses[0]
		target.InvestigationStatus = status
		target.DateOfUpdate = now
		target.SetDerivedFields()
		item, err := records.EncodeRecord(&target)
		if err != nil {
			return nil, "", err
		}
		return &storagemodels.TransactOp{Put: item}, target.LicenseType, nil
	case records.InvestigationAgainstPrivilege:
		priv := agg.GetPrivilegeRecord(jurisdiction, abbr)
		if priv == nil {
			return nil, "", errors.NewNotFoundError("privilege", records.PrivilegeSK(agg.Compact, jurisdiction, abbr))
		}
		target := *priv
		target.InvestigationStatus = status
		target.DateOfUpdate = now
		target.SetDerivedFields()
		item, err := records.EncodeRecord(&target)
		if err != nil {
			return nil, "", err
		}
		return &storagemodels.TransactOp{Put: item}, target.LicenseType, nil
	}
	return nil, "", errors.NewInvalidRequestError("investigationAgainst", "must be license or privilege")
}

// transactChunked splits ops into storage-limit batches and applies them in
// order. A failing batch fails the whole operation; compensating rollback of
// batches already committed is the caller's responsibility.
func (c *DataClient) transactChunked(ctx context.Context, operation string, ops []storagemodels.TransactOp) error {
	for start := 0; start < len(ops); start += datastore.MaxTransactItems {
		end := start + datastore.MaxTransactItems
		if end > len(ops) {
			end = len(ops)
		}
		if err := c.store.TransactWrite(ctx, ops[start:end]); err != nil {
			if errors.IsTransactionFailed(err) {
				return err
			}
			return errors.NewTransactionFailedError(operation, err)
		}
	}
	return nil
}

func encodePrivilegePair(priv *records.PrivilegeRecord, update *records.UpdateRecord) ([]storagemodels.TransactOp, error) {
	if err := update.SetDerivedFields(records.RecordTypePrivilegeUpdate); err != nil {
		return nil, err
	}
	privItem, err := records.EncodeRecord(priv)
	if err != nil {
		return nil, err
	}
	updateItem, err := records.EncodeRecord(update)
	if err != nil {
		return nil, err
	}
	return []storagemodels.TransactOp{{Put: privItem}, {Put: updateItem}}, nil
}

// privilegeSnapshot captures every mutable privilege field for an update
// record's previous snapshot.
func privilegeSnapshot(p *records.PrivilegeRecord) map[string]any {
	snap := map[string]any{
		"dateOfIssuance":       p.DateOfIssuance,
		"dateOfRenewal":        p.DateOfRenewal,
		"dateOfExpiration":     p.DateOfExpiration,
		"compactTransactionId": p.CompactTransactionID,
		"persistedStatus":      string(p.PersistedStatus),
	}
	if p.AdministratorSetStatus != "" {
		snap["administratorSetStatus"] = string(p.AdministratorSetStatus)
	}
	if p.EncumberedStatus != "" {
		snap["encumberedStatus"] = string(p.EncumberedStatus)
	}
	if p.InvestigationStatus != "" {
		snap["investigationStatus"] = string(p.InvestigationStatus)
	}
	if len(p.AttestationIDs) > 0 {
		snap["attestationIds"] = append([]string(nil), p.AttestationIDs...)
	}
	return snap
}

func updateKindFor(against records.InvestigationAgainst) records.RecordType {
	if against == records.InvestigationAgainstPrivilege {
		return records.RecordTypePrivilegeUpdate
	}
	return records.RecordTypeLicenseUpdate
}

func findPrivilege(privileges []*records.PrivilegeRecord, jurisdiction, abbr string) *records.PrivilegeRecord {
	for _, p := range privileges {
		if p.Jurisdiction == jurisdiction && p.LicenseTypeAbbreviation == abbr {
			return p
		}
	}
	return nil
}

func unionJurisdictions(existing, added []string) []string {
	seen := make(map[string]bool, len(existing)+len(added))
	var out []string
	for _, j := range existing {
		if !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	for _, j := range added {
		if !seen[j] {
			seen[j] = true
			out = append(out, j)
		}
	}
	return out
}

func removeJurisdiction(jurisdictions []string, remove string) []string {
	var out []string
	for _, j := range jurisdictions {
		if j != remove {
			out = append(out, j)
		}
	}
	return out
}
