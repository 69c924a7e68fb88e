package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	apperrors "dualledger/internal/errors"
	"dualledger/internal/ledger"
	"dualledger/internal/logger"
	"dualledger/internal/models"
	"dualledger/internal/money"
)

const (
	defaultHistoryMonths = 6
	maxHistoryMonths     = 60
	maxWindowDays        = 366
)

// ledgerService computes balances and summaries over a user's transactions.
type ledgerService struct {
	db         *gorm.DB
	pair       models.CurrencyPair
	windowDays int
	rates      RateServicer
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServicer. rates may be nil, in which
// case summaries rank tags by primary spend and dashboards report no rate.
func NewLedgerService(db *gorm.DB, pair models.CurrencyPair, windowDays int, rates RateServicer) LedgerServicer {
	return &ledgerService{db: db, pair: pair, windowDays: windowDays, rates: rates, now: time.Now}
}

// GetBalance returns income minus expense per currency over all transactions.
func (s *ledgerService) GetBalance(userID string) (ledger.Balances, error) {
	txs, err := findTransactions(s.db, userID, time.Time{}, time.Time{}, nil)
	if err != nil {
		return nil, err
	}
	return s.withPair(ledger.AggregateBalance(txs)), nil
}

// GetSummary totals the trailing window and ranks expense tags. The current
// rate is used for ranking when one can be obtained.
func (s *ledgerService) GetSummary(ctx context.Context, userID string, windowDays int) (*ledger.Summary, error) {
	return s.summarize(userID, windowDays, s.currentRate(ctx))
}

// summarize builds the summary with an already resolved quote, which may be nil.
func (s *ledgerService) summarize(userID string, windowDays int, quote *RateQuote) (*ledger.Summary, error) {
	if windowDays <= 0 {
		windowDays = s.windowDays
	}
	if windowDays > maxWindowDays {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "window_days must be at most 366")
	}
	now := s.now()

	txs, err := findTransactions(s.db, userID, now.AddDate(0, 0, -windowDays), time.Time{}, nil)
	if err != nil {
		return nil, err
	}

	var tags []models.Tag
	if err := s.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&tags).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	opts := ledger.SummaryOptions{
		WindowDays: windowDays,
		Now:        now,
		Pair:       s.pair,
		Tags:       tags,
	}
	if quote != nil {
		rate := quote.Sample.Rate
		opts.Rate = &rate
	}

	summary := ledger.Summarize(txs, opts)
	return &summary, nil
}

// GetHistory returns the monthly net per currency for the trailing months.
func (s *ledgerService) GetHistory(userID string, months int) ([]ledger.MonthBalance, error) {
	if months <= 0 {
		months = defaultHistoryMonths
	}
	if months > maxHistoryMonths {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "months must be at most 60")
	}
	now := s.now()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1-months, 0)

	txs, err := findTransactions(s.db, userID, from, time.Time{}, nil)
	if err != nil {
		return nil, err
	}
	return ledger.MonthlyHistory(txs, months, now, s.pair), nil
}

// GetDashboard combines balance, summary and the converted total. A missing
// rate degrades the dashboard instead of failing it.
func (s *ledgerService) GetDashboard(ctx context.Context, userID string) (*Dashboard, error) {
	balance, err := s.GetBalance(userID)
	if err != nil {
		return nil, err
	}
	// One quote backs both the tag ranking and the converted total.
	quote := s.currentRate(ctx)
	summary, err := s.summarize(userID, 0, quote)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Balance: balance, Summary: *summary}
	if quote != nil {
		d.Rate = quote.Sample
		d.RateAvailable = true
		d.RateStale = quote.Stale
		converted := balance.Get(s.pair.Primary).Add(
			ledger.Convert(balance.Get(s.pair.Secondary), s.pair.Secondary, s.pair.Primary, s.pair, quote.Sample.Rate))
		d.ConvertedTotal = &converted
	}
	return d, nil
}

func (s *ledgerService) currentRate(ctx context.Context) *RateQuote {
	if s.rates == nil {
		return nil
	}
	quote, err := s.rates.CurrentRate(ctx)
	if err != nil {
		logger.Get().Debugw("no exchange rate for ledger view", "error", err)
		return nil
	}
	return quote
}

func (s *ledgerService) withPair(b ledger.Balances) ledger.Balances {
	for _, c := range s.pair.Codes() {
		if _, ok := b[c]; !ok {
			b[c] = money.Zero
		}
	}
	return b
}
