package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"dualledger/internal/budget"
	apperrors "dualledger/internal/errors"
	"dualledger/internal/logger"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
)

// fanOutConcurrency bounds how many users a period job processes at once.
const fanOutConcurrency = 4

var expenseKind = models.TransactionKindExpense

// budgetService handles budget-related business logic.
type budgetService struct {
	db   *gorm.DB
	pair models.CurrencyPair
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB, pair models.CurrencyPair) BudgetServicer {
	return &budgetService{db: db, pair: pair}
}

func validatePeriod(month, year int) error {
	if month < 1 || month > 12 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "month must be between 1 and 12")
	}
	if year < 1970 || year > 9999 {
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "year is out of range")
	}
	return nil
}

// CreateBudget creates a budget for one tag and month.
func (s *budgetService) CreateBudget(userID string, in BudgetInput) (*models.Budget, error) {
	if err := validatePeriod(in.Month, in.Year); err != nil {
		return nil, err
	}
	if err := validatePositiveAmount(in.Limit, "limit"); err != nil {
		return nil, err
	}
	if !s.pair.Contains(in.Currency) {
		return nil, apperrors.ErrInvalidCurrency
	}

	// Verify tag exists and belongs to user
	var tag models.Tag
	if err := s.db.Where("id = ? AND user_id = ?", in.TagID, userID).First(&tag).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTagNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var existing int64
	if err := s.db.Model(&models.Budget{}).
		Where("user_id = ? AND tag_id = ? AND month = ? AND year = ?", userID, in.TagID, in.Month, in.Year).
		Count(&existing).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if existing > 0 {
		return nil, apperrors.ErrDuplicateBudget
	}

	b := &models.Budget{
		UserID:          userID,
		TagID:           in.TagID,
		Month:           in.Month,
		Year:            in.Year,
		Limit:           in.Limit,
		Currency:        in.Currency,
		RolloverEnabled: in.RolloverEnabled,
		RolloverAmount:  money.Zero,
	}
	if err := s.db.Omit("Tag").Create(b).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	b.Tag = tag
	return b, nil
}

// GetUserBudgets returns a paginated list of budgets for the user with optional period filters.
func (s *budgetService) GetUserBudgets(userID string, page pagination.PageRequest, month, year *int) (*pagination.PageResponse[models.Budget], error) {
	base := s.db.Model(&models.Budget{}).Where("user_id = ?", userID)
	if month != nil {
		base = base.Where("month = ?", *month)
	}
	if year != nil {
		base = base.Where("year = ?", *year)
	}

	result, err := pagination.Query[models.Budget](base, page,
		pagination.Preload("Tag"), pagination.OrderBy("year DESC", "month DESC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(userID, budgetID string) (*models.Budget, error) {
	var b models.Budget
	if err := s.db.Preload("Tag").Where("id = ? AND user_id = ?", budgetID, userID).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &b, nil
}

// UpdateBudget changes the limit or the rollover flag. The carried-in
// rollover amount is owned by the period transition and cannot be set here.
func (s *budgetService) UpdateBudget(userID, budgetID string, limit *money.Money, rolloverEnabled *bool) (*models.Budget, error) {
	b, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if limit != nil {
		if err := validatePositiveAmount(*limit, "limit"); err != nil {
			return nil, err
		}
		updates["limit_amount"] = *limit
		b.Limit = *limit
	}
	if rolloverEnabled != nil {
		updates["rollover_enabled"] = *rolloverEnabled
		b.RolloverEnabled = *rolloverEnabled
	}

	if len(updates) > 0 {
		if err := s.db.Model(&models.Budget{}).Where("id = ?", b.ID).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}
	return b, nil
}

// DeleteBudget removes a budget. The row is hard-deleted so the period can be
// budgeted again.
func (s *budgetService) DeleteBudget(userID, budgetID string) error {
	b, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.Unscoped().Delete(&models.Budget{}, "id = ?", b.ID).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// GetBudgetProgress reports spend against the effective limit of the budget's month.
func (s *budgetService) GetBudgetProgress(userID, budgetID string) (*budget.Progress, error) {
	b, err := s.GetBudgetByID(userID, budgetID)
	if err != nil {
		return nil, err
	}

	from, to := budget.PeriodBounds(b.Month, b.Year, time.UTC)
	txs, err := findTransactions(s.db, userID, from, to, &expenseKind)
	if err != nil {
		return nil, err
	}

	progress := budget.ComputeProgress(b, budget.ComputeSpent(b, txs))
	return &progress, nil
}

// RunRollover closes month/year for one user: every rollover-enabled budget
// carries its unspent limit into the same tag's budget of the next month,
// which is created when missing. The next month's rollover amount is set,
// not added to, so running the same period twice changes nothing.
func (s *budgetService) RunRollover(userID string, month, year int) (*RolloverResult, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	var budgets []models.Budget
	if err := s.db.Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	from, to := budget.PeriodBounds(month, year, time.UTC)
	txs, err := findTransactions(s.db, userID, from, to, &expenseKind)
	if err != nil {
		return nil, err
	}

	carries := budget.ExecuteRollover(budgets, budget.SpentByBudget(budgets, txs))
	nextMonth, nextYear := budget.NextPeriod(month, year)
	result := &RolloverResult{
		UserID:    userID,
		Month:     month,
		Year:      year,
		NextMonth: nextMonth,
		NextYear:  nextYear,
		Carries:   carries,
	}

	byID := make(map[string]*models.Budget, len(budgets))
	for i := range budgets {
		byID[budgets[i].ID] = &budgets[i]
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, carry := range carries {
			src := byID[carry.BudgetID]

			var next models.Budget
			err := tx.Where("user_id = ? AND tag_id = ? AND month = ? AND year = ?",
				userID, carry.TagID, nextMonth, nextYear).First(&next).Error
			switch {
			case err == nil:
				if next.Currency != carry.Currency {
					logger.Get().Warnw("skipping rollover into budget with different currency",
						"user_id", userID, "budget_id", next.ID, "from_currency", carry.Currency, "to_currency", next.Currency)
					continue
				}
				if err := tx.Model(&models.Budget{}).Where("id = ?", next.ID).
					Update("rollover_amount", carry.NewRolloverAmount).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				result.Updated++
			case errors.Is(err, gorm.ErrRecordNotFound):
				created := &models.Budget{
					UserID:          userID,
					TagID:           carry.TagID,
					Month:           nextMonth,
					Year:            nextYear,
					Limit:           src.Limit,
					Currency:        carry.Currency,
					RolloverEnabled: true,
					RolloverAmount:  carry.NewRolloverAmount,
				}
				if err := tx.Omit("Tag").Create(created).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				result.Created++
			default:
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunRolloverForAll runs RunRollover for every user owning a rollover-enabled
// budget in month/year. Users are processed concurrently; the first failure
// cancels the users not yet started and is returned.
func (s *budgetService) RunRolloverForAll(ctx context.Context, month, year int) (*RolloverReport, error) {
	if err := validatePeriod(month, year); err != nil {
		return nil, err
	}

	var userIDs []string
	if err := s.db.WithContext(ctx).Model(&models.Budget{}).
		Where("month = ? AND year = ? AND rollover_enabled = ?", month, year, true).
		Distinct().Pluck("user_id", &userIDs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	report := &RolloverReport{Month: month, Year: year, Results: make([]RolloverResult, 0, len(userIDs))}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOutConcurrency)
	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.RunRollover(userID, month, year)
			if err != nil {
				return fmt.Errorf("rollover for user %s: %w", userID, err)
			}
			mu.Lock()
			report.Results = append(report.Results, *res)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].UserID < report.Results[j].UserID
	})
	logger.Get().Infow("budget rollover completed", "month", month, "year", year, "users", len(report.Results))
	return report, nil
}
