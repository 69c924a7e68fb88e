package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/pagination"
	"dualledger/internal/validator"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db   *gorm.DB
	pair models.CurrencyPair
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB, pair models.CurrencyPair) TransactionServicer {
	return &transactionService{db: db, pair: pair}
}

// validatePositiveAmount rejects amounts that are not strictly positive or
// that would lose digits in storage.
func validatePositiveAmount(m money.Money, field string) error {
	if !m.Valid() || !m.IsPositive() {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount, field+" must be greater than zero")
	}
	if !m.Storable() {
		return apperrors.WithMessage(apperrors.ErrInvalidAmount,
			fmt.Sprintf("%s must have at most %d decimal places", field, money.StoragePlaces))
	}
	return nil
}

func (s *transactionService) validate(in *TransactionInput) error {
	if err := validatePositiveAmount(in.Amount, "amount"); err != nil {
		return err
	}
	if !s.pair.Contains(in.Currency) {
		return apperrors.ErrInvalidCurrency
	}
	if in.Kind != models.TransactionKindIncome && in.Kind != models.TransactionKindExpense {
		return apperrors.ErrInvalidTransactionKind
	}
	in.Description = validator.Sanitize(in.Description)
	// Dates are kept in UTC so calendar months match the UTC period bounds.
	if in.Date.IsZero() {
		in.Date = time.Now()
	}
	in.Date = in.Date.UTC()
	return nil
}

// CreateTransaction records an income or expense and attaches its tags.
func (s *transactionService) CreateTransaction(userID string, in TransactionInput) (*models.Transaction, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		UserID:      userID,
		Amount:      in.Amount,
		Currency:    in.Currency,
		Kind:        in.Kind,
		Description: in.Description,
		Date:        in.Date,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := loadUserTags(tx, userID, in.TagIDs)
		if err != nil {
			return err
		}
		transaction.Tags = tags
		if err := tx.Omit("Tags.*").Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	base := s.db.Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	result, err := pagination.Query[models.Transaction](base, page,
		pagination.Preload("Tags"), pagination.OrderBy("date DESC", "created_at DESC"))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Kind != nil {
		q = q.Where("kind = ?", *f.Kind)
	}
	if f.Currency != nil {
		q = q.Where("currency = ?", *f.Currency)
	}
	if f.TagID != nil {
		q = q.Where("id IN (SELECT transaction_id FROM transaction_tags WHERE tag_id = ?)", *f.TagID)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("Tags").Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction replaces the writable fields and the tag set.
func (s *transactionService) UpdateTransaction(userID, transactionID string, in TransactionInput) (*models.Transaction, error) {
	if err := s.validate(&in); err != nil {
		return nil, err
	}
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		tags, err := loadUserTags(tx, userID, in.TagIDs)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{
			"amount":      in.Amount,
			"currency":    in.Currency,
			"kind":        in.Kind,
			"description": in.Description,
			"date":        in.Date,
		}
		if err := tx.Model(transaction).Omit("Tags").Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Model(transaction).Association("Tags").Replace(tags); err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	transaction.Amount = in.Amount
	transaction.Currency = in.Currency
	transaction.Kind = in.Kind
	transaction.Description = in.Description
	transaction.Date = in.Date
	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// findTransactions loads a user's transactions with tags in [from, to).
// A zero bound is open.
func findTransactions(db *gorm.DB, userID string, from, to time.Time, kind *models.TransactionKind) ([]models.Transaction, error) {
	q := db.Preload("Tags").Where("user_id = ?", userID)
	if !from.IsZero() {
		q = q.Where("date >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where("date < ?", to)
	}
	if kind != nil {
		q = q.Where("kind = ?", *kind)
	}

	var txs []models.Transaction
	if err := q.Order("date ASC").Find(&txs).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txs, nil
}
