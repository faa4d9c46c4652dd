/*
Package factory builds policy configurations from external settings.

PURPOSE:
  The limits governing borrowing live outside the engine (an admin settings
  screen writes them). This package parses that raw settings document into a
  library.PolicyConfig, applying defaults for anything unset and rejecting
  values that cannot mean anything (negative limits).

DEFAULTS:
  maxBorrowLimit   5
  maxPenaltyPoints 100
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/warp/library-engine/library"
)

// settingsDocument mirrors the stored settings JSON. Fields use pointers so
// "absent" and "zero" stay distinguishable.
type settingsDocument struct {
	MaxBorrowLimit   *int `json:"maxBorrowLimit"`
	MaxPenaltyPoints *int `json:"maxPenaltyPoints"`
}

// ParsePolicy parses a raw settings document into a PolicyConfig.
// Missing fields fall back to defaults; negative values are rejected.
func ParsePolicy(raw []byte) (library.PolicyConfig, error) {
	cfg := library.DefaultPolicy()
	if len(raw) == 0 {
		return cfg, nil
	}

	var doc settingsDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return library.PolicyConfig{}, fmt.Errorf("invalid settings document: %w", err)
	}

	if doc.MaxBorrowLimit != nil {
		if *doc.MaxBorrowLimit < 0 {
			return library.PolicyConfig{}, &library.FieldError{Field: "maxBorrowLimit", Detail: "must not be negative"}
		}
		if *doc.MaxBorrowLimit > 0 {
			cfg.MaxBorrowLimit = *doc.MaxBorrowLimit
		}
	}
	if doc.MaxPenaltyPoints != nil {
		if *doc.MaxPenaltyPoints < 0 {
			return library.PolicyConfig{}, &library.FieldError{Field: "maxPenaltyPoints", Detail: "must not be negative"}
		}
		if *doc.MaxPenaltyPoints > 0 {
			cfg.MaxPenaltyPoints = *doc.MaxPenaltyPoints
		}
	}
	return cfg, nil
}
