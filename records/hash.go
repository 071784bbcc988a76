/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ChangeHashLength is the hex length of a persisted change hash: 32 hex
// characters, 128 bits. The format is persisted in sort keys and must remain
// stable across implementation versions.
const ChangeHashLength = 32

// ChangeHash computes the deterministic, order-independent digest of an
// update's changed fields. The payload is canonicalized (encoding/json sorts
// map keys at every level; removed field names are sorted explicitly),
// hashed with SHA-256 and truncated to 128 bits.
//
// Different field-value sets produce different output. Collisions across
// different timestamps are tolerated because the timestamp is part of the
// sort key; at 128 bits a same-timestamp collision for different content is
// practically impossible, so any store-level overwrite detection is a fatal
// internal error, not a silent merge.
func ChangeHash(updateType UpdateType, updatedValues map[string]any, removedValues []string) (string, error) {
	payload := map[string]any{
		"updateType":    string(updateType),
		"updatedValues": updatedValues,
	}
	if len(removedValues) > 0 {
		removed := append([]string(nil), removedValues...)
		sort.Strings(removed)
		payload["removedValues"] = removed
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize update payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:ChangeHashLength/2]), nil
}
