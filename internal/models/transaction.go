package models

import (
	"time"

	"dualledger/internal/money"
)

// TransactionKind represents the direction of a transaction
type TransactionKind string

const (
	TransactionKindIncome  TransactionKind = "income"
	TransactionKindExpense TransactionKind = "expense"
)

// Transaction represents a single income or expense entry in one of the two
// tracked currencies.
type Transaction struct {
	Base
	UserID               string          `gorm:"type:uuid;not null;index" json:"user_id"`
	Amount               money.Money     `gorm:"type:varchar(40);not null" json:"amount"`
	Currency             Currency        `gorm:"type:varchar(3);not null" json:"currency"`
	Kind                 TransactionKind `gorm:"not null" json:"kind"`
	Description          string          `json:"description"`
	Date                 time.Time       `gorm:"not null;index" json:"date"`
	SourceFixedExpenseID *string         `gorm:"type:uuid;index" json:"source_fixed_expense_id,omitempty"`

	// Relationships
	Tags []Tag `gorm:"many2many:transaction_tags" json:"tags"`
}

// TagIDs returns the ids of the attached tags in attachment order.
func (t *Transaction) TagIDs() []string {
	ids := make([]string, 0, len(t.Tags))
	for i := range t.Tags {
		ids = append(ids, t.Tags[i].ID)
	}
	return ids
}

// HasTag reports whether the transaction carries the given tag.
func (t *Transaction) HasTag(tagID string) bool {
	for i := range t.Tags {
		if t.Tags[i].ID == tagID {
			return true
		}
	}
	return false
}
