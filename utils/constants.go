package utils

import (
	"time"
)

// Wildberries API constants
const (
	// TariffsBoxPath is the WB endpoint serving box tariff data
	TariffsBoxPath = "/api/v1/tariffs/box"

	// DefaultFetchTimeout bounds a single WB API attempt
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the WB fetch attempt budget
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the fixed wait between WB fetch attempts
	DefaultRetryDelay = 2 * time.Second
)

// Scheduler constants
const (
	// DefaultSyncInterval is how often tariffs are fetched and persisted
	DefaultSyncInterval = time.Hour

	// DefaultExportInterval is how often the snapshot is republished
	DefaultExportInterval = 30 * time.Minute

	// DefaultRetentionDays is the age threshold for the retention sweep
	DefaultRetentionDays = 30
)

// Sheet export constants
const (
	// SnapshotSheetName is the worksheet holding the exported snapshot
	SnapshotSheetName = "stocks_coefs"
)
