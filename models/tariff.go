package models

import (
	"encoding/json"
	"time"
)

// BoxTypeFallback is stored when the upstream payload omits a box type label.
// The natural key includes box_type, so it must never be empty.
const BoxTypeFallback = "standard"

// Tariff is one warehouse/box-type tariff row for a calendar day.
// At most one row exists per (date, warehouse_name, box_type); repeated
// syncs for the same day merge into the existing row.
// Table: tariffs
type Tariff struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:uq_tariffs_date_wh_box,priority:1;index:idx_tariffs_date" json:"date"`
	WarehouseName string    `gorm:"size:255;not null;uniqueIndex:uq_tariffs_date_wh_box,priority:2" json:"warehouse_name"`
	BoxType       string    `gorm:"size:100;not null;uniqueIndex:uq_tariffs_date_wh_box,priority:3" json:"box_type"`

	// Coefficient is the ranking value downstream consumers sort by,
	// ascending (most favorable first). Zero means the upstream
	// expression was absent or unparseable.
	Coefficient float64 `gorm:"type:numeric(10,4);not null;index:idx_tariffs_coefficient" json:"coefficient"`

	// Validity window reported by WB, shared by all rows of one fetch.
	DtNextBox *time.Time `gorm:"type:timestamptz" json:"dt_next_box"`
	DtTillMax *time.Time `gorm:"type:timestamptz" json:"dt_till_max"`

	// Raw tariff expressions, normalized (comma decimal separators
	// replaced, blanks coerced to "0") but stored as text; the database
	// is not asked to interpret them.
	DeliveryBase  string `gorm:"size:50;not null;default:'0'" json:"delivery_base"`
	DeliveryLiter string `gorm:"size:50;not null;default:'0'" json:"delivery_liter"`
	StorageBase   string `gorm:"size:50;not null;default:'0'" json:"storage_base"`
	StorageLiter  string `gorm:"size:50;not null;default:'0'" json:"storage_liter"`

	// RawData preserves the untouched upstream warehouse object for audit.
	RawData json.RawMessage `gorm:"type:jsonb;default:'{}'" json:"raw_data"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Tariff) TableName() string {
	return "tariffs"
}

// TariffFilter narrows tariff queries
type TariffFilter struct {
	Date          *time.Time `json:"date,omitempty"`
	WarehouseName *string    `json:"warehouse_name,omitempty"`
	BoxType       *string    `json:"box_type,omitempty"`
}
