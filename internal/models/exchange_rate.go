package models

import (
	"time"

	"dualledger/internal/money"
	"dualledger/internal/uuid"

	"gorm.io/gorm"
)

// ExchangeRateSample is one observed secondary->primary rate.
// This is append-only time-series data: no Base embed, no soft deletes.
type ExchangeRateSample struct {
	ID            string      `gorm:"type:uuid;primaryKey" json:"id"`
	BaseCurrency  Currency    `gorm:"type:varchar(3);not null" json:"base_currency"`
	QuoteCurrency Currency    `gorm:"type:varchar(3);not null" json:"quote_currency"`
	Rate          money.Money `gorm:"type:varchar(40);not null" json:"rate"`
	Source        string      `gorm:"not null" json:"source"`
	FetchedAt     time.Time   `gorm:"not null;index" json:"fetched_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (s *ExchangeRateSample) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New()
	}
	return nil
}

// Age returns how long ago the sample was fetched.
func (s *ExchangeRateSample) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
