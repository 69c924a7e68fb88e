package models

import "dualledger/internal/money"

// FixedExpense is a recurring monthly expense template. Generating a month
// materializes one Transaction per active template, linked back through
// Transaction.SourceFixedExpenseID.
type FixedExpense struct {
	Base
	UserID     string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Name       string      `gorm:"not null" json:"name"`
	Amount     money.Money `gorm:"type:varchar(40);not null" json:"amount"`
	Currency   Currency    `gorm:"type:varchar(3);not null" json:"currency"`
	DayOfMonth int         `gorm:"not null;default:1" json:"day_of_month"`
	IsActive   bool        `gorm:"not null" json:"is_active"`

	// Relationships
	Tags []Tag `gorm:"many2many:fixed_expense_tags" json:"tags"`
}
