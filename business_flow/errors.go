// Package businessflow contains the core business logic for the tariff pipeline
package businessflow

import (
	"errors"
)

// Business flow error constants
var (
	// ErrInvalidResponseShape marks an upstream payload missing its data
	// envelope or warehouse list. Treated as "no usable data", not a fault.
	ErrInvalidResponseShape = errors.New("upstream response has invalid shape")

	// ErrNoTariffData marks a fetch round that produced zero records.
	ErrNoTariffData = errors.New("no tariff data to save")

	// ErrExportNotConfigured marks an export run with no workbook targets.
	ErrExportNotConfigured = errors.New("no export targets configured")

	// ErrEmptySnapshot marks an export run against an empty store.
	ErrEmptySnapshot = errors.New("no tariff snapshot available to export")
)
