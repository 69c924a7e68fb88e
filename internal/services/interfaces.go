package services

import (
	"context"
	"time"

	"dualledger/internal/budget"
	"dualledger/internal/goal"
	"dualledger/internal/ledger"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
)

// TagServicer defines the contract for tag-related business logic.
type TagServicer interface {
	CreateTag(userID, name, color string) (*models.Tag, error)
	GetUserTags(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Tag], error)
	GetTagByID(userID, tagID string) (*models.Tag, error)
	DeleteTag(userID, tagID string) error
}

// TransactionInput carries the writable fields of a transaction.
type TransactionInput struct {
	Amount      money.Money
	Currency    models.Currency
	Kind        models.TransactionKind
	Description string
	Date        time.Time
	TagIDs      []string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Kind     *models.TransactionKind
	Currency *models.Currency
	TagID    *string
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, in TransactionInput) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error
}

// Dashboard combines balances, the trailing summary and the current rate.
// ConvertedTotal is the whole balance expressed in the primary currency and
// is nil when no rate sample exists at all.
type Dashboard struct {
	Balance        ledger.Balances            `json:"balance"`
	Summary        ledger.Summary             `json:"summary"`
	Rate           *models.ExchangeRateSample `json:"rate,omitempty"`
	RateAvailable  bool                       `json:"rate_available"`
	RateStale      bool                       `json:"rate_stale"`
	ConvertedTotal *money.Money               `json:"converted_total,omitempty"`
}

// LedgerServicer defines the contract for balance and summary reporting.
type LedgerServicer interface {
	GetBalance(userID string) (ledger.Balances, error)
	GetSummary(ctx context.Context, userID string, windowDays int) (*ledger.Summary, error)
	GetHistory(userID string, months int) ([]ledger.MonthBalance, error)
	GetDashboard(ctx context.Context, userID string) (*Dashboard, error)
}

// BudgetInput carries the fields of a new budget.
type BudgetInput struct {
	TagID           string
	Month           int
	Year            int
	Limit           money.Money
	Currency        models.Currency
	RolloverEnabled bool
}

// RolloverResult reports one user's period transition.
type RolloverResult struct {
	UserID    string         `json:"user_id"`
	Month     int            `json:"month"`
	Year      int            `json:"year"`
	NextMonth int            `json:"next_month"`
	NextYear  int            `json:"next_year"`
	Carries   []budget.Carry `json:"carries"`
	Created   int            `json:"created"`
	Updated   int            `json:"updated"`
}

// RolloverReport aggregates a period transition over all users.
type RolloverReport struct {
	Month   int              `json:"month"`
	Year    int              `json:"year"`
	Results []RolloverResult `json:"results"`
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	CreateBudget(userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(userID string, page pagination.PageRequest, month, year *int) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(userID, budgetID string) (*models.Budget, error)
	UpdateBudget(userID, budgetID string, limit *money.Money, rolloverEnabled *bool) (*models.Budget, error)
	DeleteBudget(userID, budgetID string) error
	GetBudgetProgress(userID, budgetID string) (*budget.Progress, error)
	RunRollover(userID string, month, year int) (*RolloverResult, error)
	RunRolloverForAll(ctx context.Context, month, year int) (*RolloverReport, error)
}

// GoalInput carries the fields of a new goal.
type GoalInput struct {
	Title         string
	TotalCost     money.Money
	MonthlyAmount money.Money
	Currency      models.Currency
	StartDate     time.Time
}

// GoalServicer defines the contract for savings goal business logic.
type GoalServicer interface {
	CreateGoal(userID string, in GoalInput) (*models.Goal, error)
	GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	GetGoalByID(userID, goalID string) (*models.Goal, error)
	DeleteGoal(userID, goalID string) error
	SetInstallmentCompleted(userID, goalID, installmentID string, completed bool) (*models.Goal, error)
	GetGoalProgress(userID, goalID string) (*goal.Progress, error)
}

// FixedExpenseInput carries the fields of a new fixed expense template.
type FixedExpenseInput struct {
	Name       string
	Amount     money.Money
	Currency   models.Currency
	DayOfMonth int
	TagIDs     []string
}

// GenerateResult reports the transactions materialized for one month.
type GenerateResult struct {
	Month   int                  `json:"month"`
	Year    int                  `json:"year"`
	Created []models.Transaction `json:"created"`
	Skipped int                  `json:"skipped"`
}

// FixedExpenseServicer defines the contract for recurring expense templates.
type FixedExpenseServicer interface {
	CreateFixedExpense(userID string, in FixedExpenseInput) (*models.FixedExpense, error)
	GetUserFixedExpenses(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.FixedExpense], error)
	SetFixedExpenseActive(userID, fixedExpenseID string, active bool) (*models.FixedExpense, error)
	DeleteFixedExpense(userID, fixedExpenseID string) error
	GenerateForMonth(userID string, month, year int) (*GenerateResult, error)
	GenerateForAll(ctx context.Context, month, year int) (int, error)
}

// RateQuote is the rate served to callers together with its freshness.
type RateQuote struct {
	Sample     *models.ExchangeRateSample `json:"sample"`
	Stale      bool                       `json:"stale"`
	AgeSeconds int64                      `json:"age_seconds"`
}

// RateServicer defines the contract for exchange rate access.
type RateServicer interface {
	CurrentRate(ctx context.Context) (*RateQuote, error)
	RefreshRate(ctx context.Context) (*RateQuote, error)
	RateHistory(ctx context.Context, limit int) ([]models.ExchangeRateSample, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
