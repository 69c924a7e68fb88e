package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"dualledger/internal/budget"
	apperrors "dualledger/internal/errors"
	"dualledger/internal/logger"
	"dualledger/internal/models"
	"dualledger/internal/pagination"
	"dualledger/internal/validator"
)

// fixedExpenseService handles recurring expense templates.
type fixedExpenseService struct {
	db   *gorm.DB
	pair models.CurrencyPair
}

// NewFixedExpenseService creates a new FixedExpenseServicer.
func NewFixedExpenseService(db *gorm.DB, pair models.CurrencyPair) FixedExpenseServicer {
	return &fixedExpenseService{db: db, pair: pair}
}

// CreateFixedExpense stores an active template.
func (s *fixedExpenseService) CreateFixedExpense(userID string, in FixedExpenseInput) (*models.FixedExpense, error) {
	name := validator.Sanitize(in.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "fixed expense name is required")
	}
	if err := validatePositiveAmount(in.Amount, "amount"); err != nil {
		return nil, err
	}
	if !s.pair.Contains(in.Currency) {
		return nil, apperrors.ErrInvalidCurrency
	}
	if in.DayOfMonth == 0 {
		in.DayOfMonth = 1
	}
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "day_of_month must be between 1 and 31")
	}

	fe := &models.FixedExpense{
		UserID:     userID,
		Name:       name,
		Amount:     in.Amount,
		Currency:   in.Currency,
		DayOfMonth: in.DayOfMonth,
		IsActive:   true,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := loadUserTags(tx, userID, in.TagIDs)
		if err != nil {
			return err
		}
		fe.Tags = tags
		if err := tx.Omit("Tags.*").Create(fe).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fe, nil
}

// GetUserFixedExpenses returns a paginated list of the user's templates.
func (s *fixedExpenseService) GetUserFixedExpenses(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.FixedExpense], error) {
	base := s.db.Model(&models.FixedExpense{}).Where("user_id = ?", userID)
	result, err := pagination.Query[models.FixedExpense](base, page,
		pagination.Preload("Tags"), pagination.OrderBy("day_of_month ASC", "name ASC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func (s *fixedExpenseService) getFixedExpense(userID, fixedExpenseID string) (*models.FixedExpense, error) {
	var fe models.FixedExpense
	if err := s.db.Preload("Tags").Where("id = ? AND user_id = ?", fixedExpenseID, userID).First(&fe).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFixedExpenseNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &fe, nil
}

// SetFixedExpenseActive pauses or resumes a template.
func (s *fixedExpenseService) SetFixedExpenseActive(userID, fixedExpenseID string, active bool) (*models.FixedExpense, error) {
	fe, err := s.getFixedExpense(userID, fixedExpenseID)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.FixedExpense{}).Where("id = ?", fe.ID).Update("is_active", active).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	fe.IsActive = active
	return fe, nil
}

// DeleteFixedExpense soft-deletes a template. Transactions already generated
// from it are kept.
func (s *fixedExpenseService) DeleteFixedExpense(userID, fixedExpenseID string) error {
	fe, err := s.getFixedExpense(userID, fixedExpenseID)
	if err != nil {
		return err
	}
	if err := s.db.Delete(&models.FixedExpense{}, "id = ?", fe.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// dueDate places dayOfMonth in month/year, clamped to the month's last day.
func dueDate(dayOfMonth, month, year int) time.Time {
	first, next := budget.PeriodBounds(month, year, time.UTC)
	lastDay := next.AddDate(0, 0, -1).Day()
	if dayOfMonth > lastDay {
		dayOfMonth = lastDay
	}
	return first.AddDate(0, 0, dayOfMonth-1)
}

// GenerateForMonth creates one expense transaction per active template for
// month/year. A template that already produced a transaction in that month,
// even one deleted since, is skipped, so generation can be repeated safely.
func (s *fixedExpenseService) GenerateForMonth(userID string, month, year int) (*GenerateResult, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}
	result := &GenerateResult{Month: month, Year: year, Created: []models.Transaction{}}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var templates []models.FixedExpense
		if err := tx.Preload("Tags").
			Where("user_id = ? AND is_active = ?", userID, true).
			Order("day_of_month ASC").
			Find(&templates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(templates) == 0 {
			return nil
		}

		from, to := budget.PeriodBounds(month, year, time.UTC)
		var generated []string
		if err := tx.Unscoped().Model(&models.Transaction{}).
			Where("user_id = ? AND source_fixed_expense_id IS NOT NULL AND date >= ? AND date < ?", userID, from, to).
			Pluck("source_fixed_expense_id", &generated).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		done := make(map[string]bool, len(generated))
		for _, id := range generated {
			done[id] = true
		}

		for i := range templates {
			fe := &templates[i]
			if done[fe.ID] {
				result.Skipped++
				continue
			}
			sourceID := fe.ID
			t := models.Transaction{
				UserID:               userID,
				Amount:               fe.Amount,
				Currency:             fe.Currency,
				Kind:                 models.TransactionKindExpense,
				Description:          fe.Name,
				Date:                 dueDate(fe.DayOfMonth, month, year),
				SourceFixedExpenseID: &sourceID,
				Tags:                 fe.Tags,
			}
			if err := tx.Omit("Tags.*").Create(&t).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			result.Created = append(result.Created, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GenerateForAll runs GenerateForMonth for every user with an active template
// and returns the number of transactions created.
func (s *fixedExpenseService) GenerateForAll(ctx context.Context, month, year int) (int, error) {
	if err := validatePeriod(month, year); err != nil {
		return 0, err
	}

	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.FixedExpense{}).
		Where("is_active = ?", true).
		Distinct().Pluck("user_id", &userIDs).Error; err != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var (
		mu    sync.Mutex
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutConcurrency)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.GenerateForMonth(userID, month, year)
			if err != nil {
				return fmt.Errorf("generate fixed expenses for user %s: %w", userID, err)
			}
			mu.Lock()
			total += len(res.Created)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	logger.Get().Infow("fixed expenses generated", "month", month, "year", year, "users", len(userIDs), "created", total)
	return total, nil
}
