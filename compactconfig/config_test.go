/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package compactconfig

import (
	"testing"

	"github.com/suparena/compactconnect/errors"
)

const testYAML = `
compacts:
  aslp:
    activeJurisdictions: [oh, ky, ne]
    licenseTypes:
      - name: speech-language pathologist
        abbreviation: slp
      - name: audiologist
        abbreviation: aud
  octp:
    activeJurisdictions: [oh]
    licenseTypes:
      - name: occupational therapist
        abbreviation: ot
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Compacts) != 2 {
		t.Errorf("compacts = %d, want 2", len(cfg.Compacts))
	}
}

func TestParseRejectsEmptyRegistry(t *testing.T) {
	if _, err := Parse([]byte("compacts: {}")); !errors.IsInvalidRequest(err) {
		t.Errorf("empty registry produced %v, want invalid request", err)
	}
	if _, err := Parse([]byte("compacts:\n  aslp:\n    activeJurisdictions: [oh]\n")); !errors.IsInvalidRequest(err) {
		t.Errorf("compact without license types produced %v, want invalid request", err)
	}
}

func TestIsActiveJurisdiction(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	active, err := cfg.IsActiveJurisdiction("aslp", "ky")
	if err != nil || !active {
		t.Errorf("ky in aslp: active=%v err=%v, want active", active, err)
	}
	active, err = cfg.IsActiveJurisdiction("octp", "ky")
	if err != nil || active {
		t.Errorf("ky in octp: active=%v err=%v, want inactive", active, err)
	}
	if _, err := cfg.IsActiveJurisdiction("nursing", "oh"); !errors.IsInvalidRequest(err) {
		t.Errorf("unknown compact produced %v, want invalid request", err)
	}
}

func TestLicenseTypeAbbreviation(t *testing.T) {
	cfg, err := Parse([]byte(testYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	abbr, err := cfg.LicenseTypeAbbreviation("aslp", "Audiologist")
	if err != nil {
		t.Fatalf("LicenseTypeAbbreviation: %v", err)
	}
	if abbr != "aud" {
		t.Errorf("abbreviation = %q, want aud", abbr)
	}
	if _, err := cfg.LicenseTypeAbbreviation("aslp", "phrenologist"); !errors.IsInvalidRequest(err) {
		t.Errorf("unconfigured type produced %v, want invalid request", err)
	}
}
