/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package compactconfig loads the compact registry: which compacts exist,
// which jurisdictions participate in each, and which license types each
// compact recognizes. The registry backs the write-time invariants that a
// privilege's jurisdiction must be active in the compact and a license's
// type must be configured for it.
package compactconfig

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/suparena/compactconnect/errors"
)

// LicenseType is one license type configured for a compact.
type LicenseType struct {
	Name         string `yaml:"name"`
	Abbreviation string `yaml:"abbreviation"`
}

// CompactConfig describes one compact.
type CompactConfig struct {
	// ActiveJurisdictions is the postal abbreviations of jurisdictions
	// currently participating in the compact.
	ActiveJurisdictions []string      `yaml:"activeJurisdictions"`
	LicenseTypes        []LicenseType `yaml:"licenseTypes"`
}

// Config is the loaded compact registry.
type Config struct {
	Compacts map[string]CompactConfig `yaml:"compacts"`
}

// Load reads the compact registry from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compact configuration: %w", err)
	}
	return Parse(data)
}

// Parse decodes the compact registry from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse compact configuration: %w", err)
	}
	if len(cfg.Compacts) == 0 {
		return nil, errors.NewInvalidRequestError("compacts", "no compacts configured")
	}
	for name, c := range cfg.Compacts {
		if len(c.LicenseTypes) == 0 {
			return nil, errors.NewInvalidRequestError("licenseTypes", fmt.Sprintf("compact %q has no license types", name))
		}
	}
	return &cfg, nil
}

// Compact returns the configuration for a compact abbreviation, failing
// loudly on unknown compacts.
func (c *Config) Compact(compact string) (CompactConfig, error) {
	cc, ok := c.Compacts[strings.ToLower(compact)]
	if !ok {
		return CompactConfig{}, errors.NewInvalidRequestError("compact", fmt.Sprintf("unknown compact %q", compact))
	}
	return cc, nil
}

// IsActiveJurisdiction reports whether the jurisdiction currently
// participates in the compact.
func (c *Config) IsActiveJurisdiction(compact, jurisdiction string) (bool, error) {
	cc, err := c.Compact(compact)
	if err != nil {
		return false, err
	}
	for _, j := range cc.ActiveJurisdictions {
		if strings.EqualFold(j, jurisdiction) {
			return true, nil
		}
	}
	return false, nil
}

// LicenseTypeAbbreviation resolves a configured license type name to its
// abbreviation. An unconfigured type is an invalid request.
func (c *Config) LicenseTypeAbbreviation(compact, licenseType string) (string, error) {
	cc, err := c.Compact(compact)
	if err != nil {
		return "", err
	}
	for _, lt := range cc.LicenseTypes {
		if strings.EqualFold(lt.Name, licenseType) {
			return lt.Abbreviation, nil
		}
	}
	return "", errors.NewInvalidRequestError("licenseType",
		fmt.Sprintf("license type %q is not configured for compact %q", licenseType, compact))
}
