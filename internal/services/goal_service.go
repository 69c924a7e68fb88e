package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/goal"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
	"dualledger/internal/validator"
)

// goalService handles savings goal business logic.
type goalService struct {
	db   *gorm.DB
	pair models.CurrencyPair
	now  func() time.Time
}

// NewGoalService creates a new GoalServicer.
func NewGoalService(db *gorm.DB, pair models.CurrencyPair) GoalServicer {
	return &goalService{db: db, pair: pair, now: time.Now}
}

func orderedInstallments(db *gorm.DB) *gorm.DB {
	return db.Order("month_index ASC")
}

// CreateGoal schedules a goal and stores it with all of its installments in
// one database transaction.
func (s *goalService) CreateGoal(userID string, in GoalInput) (*models.Goal, error) {
	title := validator.Sanitize(in.Title)
	if title == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "goal title is required")
	}
	if !s.pair.Contains(in.Currency) {
		return nil, apperrors.ErrInvalidCurrency
	}
	if !in.TotalCost.Storable() || !in.MonthlyAmount.Storable() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidGoalParameters,
			fmt.Sprintf("amounts must have at most %d decimal places", money.StoragePlaces))
	}
	start := in.StartDate
	if start.IsZero() {
		start = s.now()
	}

	schedule, err := goal.Generate(in.TotalCost, in.MonthlyAmount, start)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidGoalParameters, err)
	}

	g := &models.Goal{
		UserID:         userID,
		Title:          title,
		TotalCost:      in.TotalCost,
		MonthlyAmount:  in.MonthlyAmount,
		Currency:       in.Currency,
		StartDate:      start,
		Deadline:       schedule.Deadline,
		DurationMonths: schedule.DurationMonths,
		SavedAmount:    money.Zero,
	}
	g.Installments = make([]models.GoalInstallment, 0, len(schedule.Installments))
	for _, inst := range schedule.Installments {
		g.Installments = append(g.Installments, models.GoalInstallment{
			MonthIndex:   inst.MonthIndex,
			DueDate:      inst.DueDate,
			TargetAmount: inst.TargetAmount,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GetUserGoals returns a paginated list of the user's goals without installments.
func (s *goalService) GetUserGoals(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Goal], error) {
	base := s.db.Model(&models.Goal{}).Where("user_id = ?", userID)
	result, err := pagination.Query[models.Goal](base, page, pagination.OrderBy("deadline ASC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetGoalByID returns a goal with its installments ordered by month index.
func (s *goalService) GetGoalByID(userID, goalID string) (*models.Goal, error) {
	return s.findGoal(s.db, userID, goalID)
}

func (s *goalService) findGoal(db *gorm.DB, userID, goalID string) (*models.Goal, error) {
	var g models.Goal
	if err := db.Preload("Installments", orderedInstallments).
		Where("id = ? AND user_id = ?", goalID, userID).
		First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrGoalNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &g, nil
}

// DeleteGoal soft-deletes a goal and its installments.
func (s *goalService) DeleteGoal(userID, goalID string) error {
	g, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("goal_id = ?", g.ID).Delete(&models.GoalInstallment{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&models.Goal{}, "id = ?", g.ID).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}

// SetInstallmentCompleted marks one installment done or pending and stores
// the recomputed saved amount with it.
func (s *goalService) SetInstallmentCompleted(userID, goalID, installmentID string, completed bool) (*models.Goal, error) {
	var result *models.Goal
	err := s.db.Transaction(func(tx *gorm.DB) error {
		g, err := s.findGoal(tx, userID, goalID)
		if err != nil {
			return err
		}

		saved, err := goal.ToggleInstallment(g.Installments, installmentID, completed, s.now())
		if errors.Is(err, goal.ErrInstallmentNotFound) {
			return apperrors.ErrInstallmentNotFound
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for i := range g.Installments {
			inst := &g.Installments[i]
			if inst.ID != installmentID {
				continue
			}
			if err := tx.Model(&models.GoalInstallment{}).Where("id = ?", inst.ID).Updates(map[string]interface{}{
				"is_completed": inst.IsCompleted,
				"completed_at": inst.CompletedAt,
			}).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		if err := tx.Model(&models.Goal{}).Where("id = ?", g.ID).Update("saved_amount", saved).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		g.SavedAmount = saved
		result = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetGoalProgress reports saved and remaining amounts of a goal.
func (s *goalService) GetGoalProgress(userID, goalID string) (*goal.Progress, error) {
	g, err := s.GetGoalByID(userID, goalID)
	if err != nil {
		return nil, err
	}
	progress := goal.ComputeProgress(g, g.Installments)
	return &progress, nil
}
