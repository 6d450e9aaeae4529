package model

import (
	"time"

	"smartbin/portal/pkg/authz"
)

// FleetStats summarises the bin fleet for the operations dashboard.
type FleetStats struct {
	TotalBins      int64               `json:"total_bins"`
	ByStatus       map[BinStatus]int64 `json:"by_status"`
	ByWasteType    map[WasteType]int64 `json:"by_waste_type"`
	AverageFill    float64             `json:"average_fill"`
	NeedsPickup    int64               `json:"needs_pickup"`
	NewSubmissions int64               `json:"new_submissions"`
	Fullest        []Bin               `json:"fullest"`
	GeneratedAt    time.Time           `json:"generated_at"`
}

// Overview is the enterprise (HQ) view: fleet stats plus head counts.
type Overview struct {
	Fleet       FleetStats           `json:"fleet"`
	UsersByRole map[authz.Role]int64 `json:"users_by_role"`
	TotalUsers  int64                `json:"total_users"`
	GeneratedAt time.Time            `json:"generated_at"`
}
