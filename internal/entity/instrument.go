package entity

import (
	"time"

	"gorm.io/gorm"
)

// Instrument is a tradeable symbol eligible for scanning. Symbol is unique
// within an exchange.
type Instrument struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Symbol    string         `gorm:"not null;uniqueIndex:idx_instruments_symbol_exchange" json:"symbol"`
	Exchange  string         `gorm:"not null;uniqueIndex:idx_instruments_symbol_exchange" json:"exchange"`
	Currency  string         `gorm:"not null" json:"currency"`
	Name      string         `json:"name"`
	IsActive  bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
}

func (Instrument) TableName() string {
	return "instruments"
}
