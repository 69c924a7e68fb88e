package services

import (
	"testing"
	"time"

	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
	"dualledger/internal/testutil"
)

func goalInput(total, monthly string) GoalInput {
	return GoalInput{
		Title:         "New laptop",
		TotalCost:     money.MustParse(total),
		MonthlyAmount: money.MustParse(monthly),
		Currency:      "USD",
		StartDate:     time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateGoal(t *testing.T) {
	t.Run("schedules_installments", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db, testutil.TestPair)
		userID := testutil.NewUserID()

		g, err := svc.CreateGoal(userID, goalInput("1000", "300"))
		testutil.AssertNoError(t, err)

		if g.DurationMonths != 4 {
			t.Errorf("duration = %d, want 4", g.DurationMonths)
		}
		if want := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC); !g.Deadline.Equal(want) {
			t.Errorf("deadline = %v, want %v", g.Deadline, want)
		}

		stored, err := svc.GetGoalByID(userID, g.ID)
		testutil.AssertNoError(t, err)
		if len(stored.Installments) != 4 {
			t.Fatalf("expected 4 stored installments, got %d", len(stored.Installments))
		}
		sum := money.Zero
		for i, inst := range stored.Installments {
			if inst.MonthIndex != i+1 {
				t.Errorf("installment %d has month index %d", i, inst.MonthIndex)
			}
			sum = sum.Add(inst.TargetAmount)
		}
		if !sum.Equal(money.MustParse("1000")) {
			t.Errorf("installments sum to %s, want 1000", sum)
		}
		testutil.AssertMoney(t, "last installment", "100", stored.Installments[3].TargetAmount)
		// Jan 31 + 1 month clamps to Feb 28.
		if want := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC); !stored.Installments[1].DueDate.Equal(want) {
			t.Errorf("second due date = %v, want %v", stored.Installments[1].DueDate, want)
		}
	})

	t.Run("sub_cent_monthly_amount", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewGoalService(db, testutil.TestPair)
		userID := testutil.NewUserID()

		g, err := svc.CreateGoal(userID, goalInput("1.345", "0.445"))
		testutil.AssertNoError(t, err)

		stored, err := svc.GetGoalByID(userID, g.ID)
		testutil.AssertNoError(t, err)
		if len(stored.Installments) != 3 {
			t.Fatalf("expected 3 installments, got %d", len(stored.Installments))
		}
		for _, inst := range stored.Installments {
			if !inst.TargetAmount.IsPositive() {
				t.Errorf("installment %d has non-positive target %s", inst.MonthIndex, inst.TargetAmount.StorageString())
			}
		}
		testutil.AssertMoney(t, "last installment", "0.445", stored.Installments[2].TargetAmount)
	})

	tests := []struct {
		name     string
		in       GoalInput
		wantCode string
	}{
		{"zero_total", goalInput("0", "100"), "INVALID_GOAL_PARAMETERS"},
		{"negative_monthly", goalInput("100", "-1"), "INVALID_GOAL_PARAMETERS"},
		{"monthly_below_a_cent", goalInput("100", "0.004"), "INVALID_GOAL_PARAMETERS"},
		{"total_beyond_storage_precision", goalInput("100.00001", "10"), "INVALID_GOAL_PARAMETERS"},
		{"invalid_total", GoalInput{Title: "x", TotalCost: money.Invalid(), MonthlyAmount: money.MustParse("1"), Currency: "USD"}, "INVALID_GOAL_PARAMETERS"},
		{"missing_title", GoalInput{TotalCost: money.MustParse("1"), MonthlyAmount: money.MustParse("1"), Currency: "USD"}, "INVALID_INPUT"},
		{"untracked_currency", GoalInput{Title: "x", TotalCost: money.MustParse("1"), MonthlyAmount: money.MustParse("1"), Currency: "EUR"}, "INVALID_CURRENCY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			defer testutil.TeardownTestDB(t, db)
			svc := NewGoalService(db, testutil.TestPair)

			_, err := svc.CreateGoal(testutil.NewUserID(), tt.in)
			testutil.AssertAppError(t, err, tt.wantCode)

			var count int64
			db.Model(&models.GoalInstallment{}).Count(&count)
			if count != 0 {
				t.Errorf("no installments should be stored on failure, got %d", count)
			}
		})
	}
}

func TestSetInstallmentCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGoalService(db, testutil.TestPair)
	userID := testutil.NewUserID()
	g := testutil.CreateTestGoal(t, db, userID, "1000", "300", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	first, last := g.Installments[0].ID, g.Installments[3].ID

	updated, err := svc.SetInstallmentCompleted(userID, g.ID, first, true)
	testutil.AssertNoError(t, err)
	testutil.AssertMoney(t, "saved", "300", updated.SavedAmount)

	// Repeating the toggle does not double count.
	updated, err = svc.SetInstallmentCompleted(userID, g.ID, first, true)
	testutil.AssertNoError(t, err)
	testutil.AssertMoney(t, "saved after repeat", "300", updated.SavedAmount)

	_, err = svc.SetInstallmentCompleted(userID, g.ID, last, true)
	testutil.AssertNoError(t, err)

	stored, err := svc.GetGoalByID(userID, g.ID)
	testutil.AssertNoError(t, err)
	testutil.AssertMoney(t, "persisted saved", "400", stored.SavedAmount)
	if !stored.Installments[0].IsCompleted || stored.Installments[0].CompletedAt == nil {
		t.Error("first installment should be completed with a timestamp")
	}

	updated, err = svc.SetInstallmentCompleted(userID, g.ID, first, false)
	testutil.AssertNoError(t, err)
	testutil.AssertMoney(t, "saved after undo", "100", updated.SavedAmount)
	stored, err = svc.GetGoalByID(userID, g.ID)
	testutil.AssertNoError(t, err)
	if stored.Installments[0].CompletedAt != nil {
		t.Error("completed_at should be cleared")
	}

	_, err = svc.SetInstallmentCompleted(userID, g.ID, testutil.NewUserID(), true)
	testutil.AssertAppError(t, err, "INSTALLMENT_NOT_FOUND")

	_, err = svc.SetInstallmentCompleted(testutil.NewUserID(), g.ID, first, true)
	testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")
}

func TestGetGoalProgress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGoalService(db, testutil.TestPair)
	userID := testutil.NewUserID()
	g := testutil.CreateTestGoal(t, db, userID, "1000", "250", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.SetInstallmentCompleted(userID, g.ID, g.Installments[0].ID, true)
	testutil.AssertNoError(t, err)

	progress, err := svc.GetGoalProgress(userID, g.ID)
	testutil.AssertNoError(t, err)

	if progress.CompletedInstallments != 1 || progress.TotalInstallments != 4 {
		t.Errorf("unexpected counts %d/%d", progress.CompletedInstallments, progress.TotalInstallments)
	}
	testutil.AssertMoney(t, "remaining", "750", progress.Remaining)
	if progress.Percentage != "25.00" {
		t.Errorf("percentage = %s, want 25.00", progress.Percentage)
	}
	if progress.NextPendingInstallment == nil || progress.NextPendingInstallment.MonthIndex != 2 {
		t.Errorf("expected month 2 pending next, got %+v", progress.NextPendingInstallment)
	}
}

func TestGetUserGoalsAndDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewGoalService(db, testutil.TestPair)
	userID := testutil.NewUserID()
	g := testutil.CreateTestGoal(t, db, userID, "100", "50", time.Now())
	testutil.CreateTestGoal(t, db, testutil.NewUserID(), "100", "50", time.Now())

	result, err := svc.GetUserGoals(userID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if result.TotalItems != 1 {
		t.Errorf("expected 1 goal, got %d", result.TotalItems)
	}

	testutil.AssertNoError(t, svc.DeleteGoal(userID, g.ID))
	_, err = svc.GetGoalByID(userID, g.ID)
	testutil.AssertAppError(t, err, "GOAL_NOT_FOUND")

	var remaining int64
	db.Model(&models.GoalInstallment{}).Where("goal_id = ?", g.ID).Count(&remaining)
	if remaining != 0 {
		t.Errorf("installments should be deleted with the goal, %d left", remaining)
	}
}
