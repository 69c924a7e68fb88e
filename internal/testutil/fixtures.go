package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"dualledger/internal/goal"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/uuid"

	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// TestPair is the currency pair used throughout the tests.
var TestPair = models.CurrencyPair{Primary: "ARS", Secondary: "USD"}

// NewUserID returns a fresh user id. Users live in the identity service, so
// there is no row to create.
func NewUserID() string {
	return uuid.New()
}

// CreateTestTag creates a tag with a unique name.
func CreateTestTag(t *testing.T, db *gorm.DB, userID string) *models.Tag {
	t.Helper()
	return CreateTestTagWithName(t, db, userID, fmt.Sprintf("Test Tag %d", nextID()))
}

// CreateTestTagWithName creates a tag with the given name.
func CreateTestTagWithName(t *testing.T, db *gorm.DB, userID, name string) *models.Tag {
	t.Helper()

	tag := &models.Tag{UserID: userID, Name: name, Color: "#336699"}
	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("failed to create test tag: %v", err)
	}
	return tag
}

// CreateTestTransaction creates a transaction dated date carrying tags.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, kind models.TransactionKind, amount string, currency models.Currency, date time.Time, tags ...*models.Tag) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Amount:      money.MustParse(amount),
		Currency:    currency,
		Kind:        kind,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		Date:        date,
	}
	for _, tag := range tags {
		tx.Tags = append(tx.Tags, *tag)
	}
	if err := db.Omit("Tags.*").Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// CreateTestBudget creates a budget for tag in month/year.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, tag *models.Tag, month, year int, limit string, rollover bool) *models.Budget {
	t.Helper()

	b := &models.Budget{
		UserID:          userID,
		TagID:           tag.ID,
		Month:           month,
		Year:            year,
		Limit:           money.MustParse(limit),
		Currency:        TestPair.Primary,
		RolloverEnabled: rollover,
		RolloverAmount:  money.Zero,
	}
	if err := db.Omit("Tag").Create(b).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return b
}

// CreateTestGoal creates a goal together with its generated installments.
func CreateTestGoal(t *testing.T, db *gorm.DB, userID, totalCost, monthly string, start time.Time) *models.Goal {
	t.Helper()

	total := money.MustParse(totalCost)
	schedule, err := goal.Generate(total, money.MustParse(monthly), start)
	if err != nil {
		t.Fatalf("failed to generate test goal schedule: %v", err)
	}

	g := &models.Goal{
		UserID:         userID,
		Title:          fmt.Sprintf("Test Goal %d", nextID()),
		TotalCost:      total,
		MonthlyAmount:  money.MustParse(monthly),
		Currency:       TestPair.Secondary,
		StartDate:      start,
		Deadline:       schedule.Deadline,
		DurationMonths: schedule.DurationMonths,
		SavedAmount:    money.Zero,
	}
	for _, inst := range schedule.Installments {
		g.Installments = append(g.Installments, models.GoalInstallment{
			MonthIndex:   inst.MonthIndex,
			DueDate:      inst.DueDate,
			TargetAmount: inst.TargetAmount,
		})
	}
	if err := db.Create(g).Error; err != nil {
		t.Fatalf("failed to create test goal: %v", err)
	}
	return g
}

// CreateTestFixedExpense creates an active fixed expense template.
func CreateTestFixedExpense(t *testing.T, db *gorm.DB, userID, amount string, dayOfMonth int, tags ...*models.Tag) *models.FixedExpense {
	t.Helper()

	fe := &models.FixedExpense{
		UserID:     userID,
		Name:       fmt.Sprintf("Test Fixed Expense %d", nextID()),
		Amount:     money.MustParse(amount),
		Currency:   TestPair.Primary,
		DayOfMonth: dayOfMonth,
		IsActive:   true,
	}
	for _, tag := range tags {
		fe.Tags = append(fe.Tags, *tag)
	}
	if err := db.Omit("Tags.*").Create(fe).Error; err != nil {
		t.Fatalf("failed to create test fixed expense: %v", err)
	}
	return fe
}

// CreateTestRateSample stores a secondary->primary rate sample.
func CreateTestRateSample(t *testing.T, db *gorm.DB, rate string, fetchedAt time.Time) *models.ExchangeRateSample {
	t.Helper()

	s := &models.ExchangeRateSample{
		BaseCurrency:  TestPair.Secondary,
		QuoteCurrency: TestPair.Primary,
		Rate:          money.MustParse(rate),
		Source:        "test",
		FetchedAt:     fetchedAt,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("failed to create test rate sample: %v", err)
	}
	return s
}
