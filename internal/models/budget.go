package models

import "dualledger/internal/money"

// Budget caps expense for one tag in one calendar month. RolloverAmount is the
// unspent allowance carried in from the previous month and is added to Limit
// to obtain the effective ceiling.
type Budget struct {
	Base
	UserID          string      `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_period" json:"user_id"`
	TagID           string      `gorm:"type:uuid;not null;uniqueIndex:idx_budgets_period" json:"tag_id"`
	Month           int         `gorm:"not null;uniqueIndex:idx_budgets_period" json:"month"`
	Year            int         `gorm:"not null;uniqueIndex:idx_budgets_period" json:"year"`
	Limit           money.Money `gorm:"column:limit_amount;type:varchar(40);not null" json:"limit"`
	Currency        Currency    `gorm:"type:varchar(3);not null" json:"currency"`
	RolloverEnabled bool        `gorm:"not null;default:false" json:"rollover_enabled"`
	RolloverAmount  money.Money `gorm:"type:varchar(40);not null;default:'0.0000'" json:"rollover_amount"`

	// Relationships
	Tag Tag `gorm:"foreignKey:TagID" json:"tag"`
}
