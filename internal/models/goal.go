package models

import (
	"time"

	"dualledger/internal/money"
)

// Goal is a savings target split into monthly installments. Deadline,
// DurationMonths and SavedAmount are derived: the first two at creation time,
// SavedAmount whenever an installment's completion flag changes.
type Goal struct {
	Base
	UserID         string      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title          string      `gorm:"not null" json:"title"`
	TotalCost      money.Money `gorm:"type:varchar(40);not null" json:"total_cost"`
	MonthlyAmount  money.Money `gorm:"type:varchar(40);not null" json:"monthly_amount"`
	Currency       Currency    `gorm:"type:varchar(3);not null" json:"currency"`
	StartDate      time.Time   `gorm:"not null" json:"start_date"`
	Deadline       time.Time   `gorm:"not null" json:"deadline"`
	DurationMonths int         `gorm:"not null" json:"duration_months"`
	SavedAmount    money.Money `gorm:"type:varchar(40);not null" json:"saved_amount"`

	// Installments are loaded by goal id and ordered by month index.
	Installments []GoalInstallment `gorm:"foreignKey:GoalID" json:"installments,omitempty"`
}

// GoalInstallment is one scheduled monthly portion of a goal. Only IsCompleted
// changes after creation.
type GoalInstallment struct {
	Base
	GoalID       string      `gorm:"type:uuid;not null;uniqueIndex:idx_installments_goal_month" json:"goal_id"`
	MonthIndex   int         `gorm:"not null;uniqueIndex:idx_installments_goal_month" json:"month_index"`
	DueDate      time.Time   `gorm:"not null" json:"due_date"`
	TargetAmount money.Money `gorm:"type:varchar(40);not null" json:"target_amount"`
	IsCompleted  bool        `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
}
