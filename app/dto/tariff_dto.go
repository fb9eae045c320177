package dto

// Wildberries box-tariffs API payload, as served by
// GET /api/v1/tariffs/box?date=YYYY-MM-DD.

// WarehouseTariff is one per-warehouse entry of the upstream payload.
// Numeric fields arrive as free text and may use comma decimal
// separators, dashes, or be blank.
type WarehouseTariff struct {
	WarehouseName       string `json:"warehouseName"`
	GeoName             string `json:"geoName,omitempty"`
	BoxTypeName         string `json:"boxTypeName,omitempty"`
	BoxDeliveryCoefExpr string `json:"boxDeliveryCoefExpr"`
	BoxStorageCoefExpr  string `json:"boxStorageCoefExpr"`
	BoxDeliveryBase     string `json:"boxDeliveryBase"`
	BoxDeliveryLiter    string `json:"boxDeliveryLiter"`
	BoxStorageBase      string `json:"boxStorageBase"`
	BoxStorageLiter     string `json:"boxStorageLiter"`
}

// TariffsBoxData is the payload body: one validity window shared by the
// whole fetch plus the warehouse list.
type TariffsBoxData struct {
	DtNextBox     string            `json:"dtNextBox"`
	DtTillMax     string            `json:"dtTillMax"`
	WarehouseList []WarehouseTariff `json:"warehouseList"`
}

// TariffsBoxEnvelope wraps the data object the way WB nests it.
type TariffsBoxEnvelope struct {
	Data *TariffsBoxData `json:"data"`
}

// TariffsBoxResponse is the full upstream response.
// A nil Response marks a structurally invalid payload.
type TariffsBoxResponse struct {
	Response *TariffsBoxEnvelope `json:"response"`
}

// SnapshotRow is the fixed six-column projection consumed by the
// spreadsheet export. Dates are YYYY-MM-DD; absent window dates are
// empty strings.
type SnapshotRow struct {
	WarehouseName string `json:"warehouse_name"`
	BoxType       string `json:"box_type"`
	Coefficient   string `json:"coefficient"`
	Date          string `json:"date"`
	DtNextBox     string `json:"dt_next_box"`
	DtTillMax     string `json:"dt_till_max"`
}
