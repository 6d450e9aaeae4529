package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BinStatus string

const (
	BinStatusActive      BinStatus = "active"
	BinStatusMaintenance BinStatus = "maintenance"
	BinStatusOffline     BinStatus = "offline"
)

func (s BinStatus) Valid() bool {
	switch s {
	case BinStatusActive, BinStatusMaintenance, BinStatusOffline:
		return true
	}
	return false
}

type WasteType string

const (
	WasteTypeGeneral   WasteType = "general"
	WasteTypeRecycling WasteType = "recycling"
	WasteTypeOrganic   WasteType = "organic"
	WasteTypeHazardous WasteType = "hazardous"
)

func (w WasteType) Valid() bool {
	switch w {
	case WasteTypeGeneral, WasteTypeRecycling, WasteTypeOrganic, WasteTypeHazardous:
		return true
	}
	return false
}

// Bin is a sensor-equipped container in the field.
type Bin struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code           string         `gorm:"type:varchar(32);uniqueIndex;not null" json:"code"`
	Location       string         `gorm:"type:varchar(256);not null" json:"location"`
	Latitude       float64        `json:"latitude"`
	Longitude      float64        `json:"longitude"`
	CapacityLiters int            `gorm:"not null;default:240" json:"capacity_liters"`
	FillLevel      int            `gorm:"type:smallint;not null;default:0" json:"fill_level"`
	Status         BinStatus      `gorm:"type:varchar(16);not null;default:'active';index" json:"status"`
	WasteType      WasteType      `gorm:"type:varchar(16);not null;default:'general'" json:"waste_type"`
	OwnerID        *uuid.UUID     `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	LastEmptiedAt  *time.Time     `json:"last_emptied_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Bin) TableName() string { return "bins" }

// NeedsPickup reports whether an active bin is at or above threshold percent.
func (b *Bin) NeedsPickup(threshold int) bool {
	return b.Status == BinStatusActive && b.FillLevel >= threshold
}

// OwnedBy reports whether the bin is assigned to the given customer.
func (b *Bin) OwnedBy(userID uuid.UUID) bool {
	return b.OwnerID != nil && *b.OwnerID == userID
}
