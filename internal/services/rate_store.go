package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"dualledger/internal/models"
)

// RateStore persists exchange rate samples with gorm. It is the SampleStore
// behind the rate cache.
type RateStore struct {
	db *gorm.DB
}

// NewRateStore creates a new RateStore.
func NewRateStore(db *gorm.DB) *RateStore {
	return &RateStore{db: db}
}

// Latest returns the most recently fetched sample for base->quote, or nil
// when none has been recorded.
func (s *RateStore) Latest(ctx context.Context, base, quote models.Currency) (*models.ExchangeRateSample, error) {
	var sample models.ExchangeRateSample
	err := s.db.WithContext(ctx).
		Where("base_currency = ? AND quote_currency = ?", base, quote).
		Order("fetched_at DESC").
		First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// Append inserts a new sample. Samples are never updated.
func (s *RateStore) Append(ctx context.Context, sample *models.ExchangeRateSample) error {
	return s.db.WithContext(ctx).Create(sample).Error
}

// List returns up to limit samples for base->quote, newest first.
func (s *RateStore) List(ctx context.Context, base, quote models.Currency, limit int) ([]models.ExchangeRateSample, error) {
	var samples []models.ExchangeRateSample
	err := s.db.WithContext(ctx).
		Where("base_currency = ? AND quote_currency = ?", base, quote).
		Order("fetched_at DESC").
		Limit(limit).
		Find(&samples).Error
	return samples, err
}
