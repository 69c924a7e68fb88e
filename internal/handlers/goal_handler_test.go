package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/goal"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
	"dualledger/internal/services"
)

// --- mock goal service ---

type mockGoalService struct {
	createGoalFn              func(userID string, in services.GoalInput) (*models.Goal, error)
	getUserGoalsFn            func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error)
	getGoalByIDFn             func(userID, goalID string) (*models.Goal, error)
	deleteGoalFn              func(userID, goalID string) error
	setInstallmentCompletedFn func(userID, goalID, installmentID string, completed bool) (*models.Goal, error)
	getGoalProgressFn         func(userID, goalID string) (*goal.Progress, error)
}

func (m *mockGoalService) CreateGoal(userID string, in services.GoalInput) (*models.Goal, error) {
	if m.createGoalFn != nil {
		return m.createGoalFn(userID, in)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	if m.getUserGoalsFn != nil {
		return m.getUserGoalsFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Goal{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockGoalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	if m.getGoalByIDFn != nil {
		return m.getGoalByIDFn(userID, goalID)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) DeleteGoal(userID, goalID string) error {
	if m.deleteGoalFn != nil {
		return m.deleteGoalFn(userID, goalID)
	}
	return nil
}

func (m *mockGoalService) SetInstallmentCompleted(userID, goalID, installmentID string, completed bool) (*models.Goal, error) {
	if m.setInstallmentCompletedFn != nil {
		return m.setInstallmentCompletedFn(userID, goalID, installmentID, completed)
	}
	return &models.Goal{}, nil
}

func (m *mockGoalService) GetGoalProgress(userID, goalID string) (*goal.Progress, error) {
	if m.getGoalProgressFn != nil {
		return m.getGoalProgressFn(userID, goalID)
	}
	return &goal.Progress{}, nil
}

var _ services.GoalServicer = (*mockGoalService)(nil)

const (
	testGoalID        = "0190a4d2-7c3e-7b1a-9f00-0000000000f1"
	testInstallmentID = "0190a4d2-7c3e-7b1a-9f00-0000000000f2"
)

func setupGoalRouter(handler *GoalHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/goals", handler.CreateGoal)
	auth.GET("/goals", handler.GetGoals)
	auth.GET("/goals/:id", handler.GetGoal)
	auth.DELETE("/goals/:id", handler.DeleteGoal)
	auth.GET("/goals/:id/progress", handler.GetGoalProgress)
	auth.PATCH("/goals/:id/installments/:installmentId", handler.SetInstallmentCompleted)
	return r
}

func TestGoalHandler_CreateGoal(t *testing.T) {
	t.Run("returns 201 on success", func(t *testing.T) {
		var got services.GoalInput
		svc := &mockGoalService{
			createGoalFn: func(_ string, in services.GoalInput) (*models.Goal, error) {
				got = in
				return &models.Goal{Base: models.Base{ID: testGoalID}, Title: in.Title, DurationMonths: 4}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupGoalRouter(NewGoalHandler(svc, audit))

		rec := doRequest(r, "POST", "/goals",
			`{"title":"Laptop","total_cost":"1000","monthly_amount":"300","currency":"USD","start_date":"2025-01-31"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !got.TotalCost.Equal(money.MustParse("1000")) || !got.MonthlyAmount.Equal(money.MustParse("300")) {
			t.Errorf("unexpected amounts %s/%s", got.TotalCost, got.MonthlyAmount)
		}
		if !got.StartDate.Equal(time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)) {
			t.Errorf("unexpected start date %v", got.StartDate)
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "CREATE_GOAL" {
			t.Errorf("expected CREATE_GOAL audit, got %v", a)
		}
	})

	t.Run("returns 400 on invalid goal parameters", func(t *testing.T) {
		svc := &mockGoalService{
			createGoalFn: func(_ string, _ services.GoalInput) (*models.Goal, error) {
				return nil, apperrors.ErrInvalidGoalParameters
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals",
			`{"title":"Laptop","total_cost":"0","monthly_amount":"300","currency":"USD","start_date":"2025-01-31"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_GOAL_PARAMETERS")
	})

	t.Run("returns 400 on bad start date", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals",
			`{"title":"Laptop","total_cost":"1000","monthly_amount":"300","currency":"USD","start_date":"soon"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on malformed amount", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/goals",
			`{"title":"Laptop","total_cost":"lots","monthly_amount":"300","currency":"USD","start_date":"2025-01-31"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_AMOUNT")
	})
}

func TestGoalHandler_GetGoal(t *testing.T) {
	svc := &mockGoalService{
		getGoalByIDFn: func(_, _ string) (*models.Goal, error) {
			return nil, apperrors.ErrGoalNotFound
		},
	}
	r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/goals/"+testGoalID, "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	assertErrorCode(t, parseJSON(t, rec), "GOAL_NOT_FOUND")
}

func TestGoalHandler_SetInstallmentCompleted(t *testing.T) {
	t.Run("toggles and audits", func(t *testing.T) {
		var gotCompleted bool
		var gotInstallment string
		svc := &mockGoalService{
			setInstallmentCompletedFn: func(_, goalID, installmentID string, completed bool) (*models.Goal, error) {
				gotInstallment, gotCompleted = installmentID, completed
				return &models.Goal{Base: models.Base{ID: goalID}, SavedAmount: money.MustParse("300")}, nil
			},
		}
		audit := &mockAuditService{}
		r := setupGoalRouter(NewGoalHandler(svc, audit))

		rec := doRequest(r, "PATCH", "/goals/"+testGoalID+"/installments/"+testInstallmentID, `{"completed":true}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if !gotCompleted || gotInstallment != testInstallmentID {
			t.Errorf("unexpected call %s/%v", gotInstallment, gotCompleted)
		}
		g := parseJSON(t, rec)["goal"].(map[string]interface{})
		if g["saved_amount"] != "300.0000" {
			t.Errorf("unexpected saved_amount %v", g["saved_amount"])
		}
		if a := audit.actions(); len(a) != 1 || a[0] != "UPDATE_INSTALLMENT" {
			t.Errorf("expected UPDATE_INSTALLMENT audit, got %v", a)
		}
	})

	t.Run("accepts false", func(t *testing.T) {
		gotCompleted := true
		svc := &mockGoalService{
			setInstallmentCompletedFn: func(_, _, _ string, completed bool) (*models.Goal, error) {
				gotCompleted = completed
				return &models.Goal{}, nil
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/goals/"+testGoalID+"/installments/"+testInstallmentID, `{"completed":false}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotCompleted {
			t.Error("expected completed=false")
		}
	})

	t.Run("returns 400 when flag missing", func(t *testing.T) {
		r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/goals/"+testGoalID+"/installments/"+testInstallmentID, `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 on unknown installment", func(t *testing.T) {
		svc := &mockGoalService{
			setInstallmentCompletedFn: func(_, _, _ string, _ bool) (*models.Goal, error) {
				return nil, apperrors.ErrInstallmentNotFound
			},
		}
		r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

		rec := doRequest(r, "PATCH", "/goals/"+testGoalID+"/installments/"+testInstallmentID, `{"completed":true}`)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INSTALLMENT_NOT_FOUND")
	})
}

func TestGoalHandler_GetGoalProgress(t *testing.T) {
	svc := &mockGoalService{
		getGoalProgressFn: func(_, _ string) (*goal.Progress, error) {
			return &goal.Progress{Saved: money.MustParse("300"), CompletedInstallments: 1, TotalInstallments: 4, Percentage: "30.00"}, nil
		},
	}
	r := setupGoalRouter(NewGoalHandler(svc, &mockAuditService{}))

	rec := doRequest(r, "GET", "/goals/"+testGoalID+"/progress", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	progress := parseJSON(t, rec)["progress"].(map[string]interface{})
	if progress["total_installments"].(float64) != 4 {
		t.Errorf("unexpected progress %v", progress)
	}
}

func TestGoalHandler_DeleteGoal(t *testing.T) {
	audit := &mockAuditService{}
	r := setupGoalRouter(NewGoalHandler(&mockGoalService{}, audit))

	rec := doRequest(r, "DELETE", "/goals/"+testGoalID, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if a := audit.actions(); len(a) != 1 || a[0] != "DELETE_GOAL" {
		t.Errorf("expected DELETE_GOAL audit, got %v", a)
	}
}
