/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package records

import "testing"

func TestChangeHashIsDeterministic(t *testing.T) {
	updated := map[string]any{
		"dateOfExpiration": "2025-10-31",
		"dateOfRenewal":    "2024-10-15T12:00:00Z",
	}
	a, err := ChangeHash(UpdateTypeRenewal, updated, nil)
	if err != nil {
		t.Fatalf("ChangeHash: %v", err)
	}
	b, err := ChangeHash(UpdateTypeRenewal, updated, nil)
	if err != nil {
		t.Fatalf("ChangeHash: %v", err)
	}
	if a != b {
		t.Errorf("same input hashed differently: %q vs %q", a, b)
	}
	if len(a) != ChangeHashLength {
		t.Errorf("hash length = %d, want %d", len(a), ChangeHashLength)
	}
}

func TestChangeHashDistinguishesContent(t *testing.T) {
	base := map[string]any{"dateOfExpiration": "2025-10-31"}
	a, err := ChangeHash(UpdateTypeRenewal, base, nil)
	if err != nil {
		t.Fatalf("ChangeHash: %v", err)
	}

	t.Run("different values", func(t *testing.T) {
		b, err := ChangeHash(UpdateTypeRenewal, map[string]any{"dateOfExpiration": "2026-10-31"}, nil)
		if err != nil {
			t.Fatalf("ChangeHash: %v", err)
		}
		if a == b {
			t.Error("different updated values produced the same hash")
		}
	})

	t.Run("different update type", func(t *testing.T) {
		b, err := ChangeHash(UpdateTypeIssuance, base, nil)
		if err != nil {
			t.Fatalf("ChangeHash: %v", err)
		}
		if a == b {
			t.Error("different update types produced the same hash")
		}
	})

	t.Run("removed values matter", func(t *testing.T) {
		b, err := ChangeHash(UpdateTypeRenewal, base, []string{"investigationStatus"})
		if err != nil {
			t.Fatalf("ChangeHash: %v", err)
		}
		if a == b {
			t.Error("removed values were ignored by the hash")
		}
	})
}

func TestChangeHashIgnoresRemovedValueOrder(t *testing.T) {
	updated := map[string]any{"persistedStatus": "inactive"}
	a, err := ChangeHash(UpdateTypeDeactivation, updated, []string{"encumberedStatus", "investigationStatus"})
	if err != nil {
		t.Fatalf("ChangeHash: %v", err)
	}
	b, err := ChangeHash(UpdateTypeDeactivation, updated, []string{"investigationStatus", "encumberedStatus"})
	if err != nil {
		t.Fatalf("ChangeHash: %v", err)
	}
	if a != b {
		t.Errorf("removed value order changed the hash: %q vs %q", a, b)
	}
}
