// Package ledger aggregates transactions into per-currency balances, period
// summaries and tag rankings.
package ledger

import (
	"sort"
	"time"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

// DefaultTopTags is the number of tags returned in a summary ranking.
const DefaultTopTags = 3

// Balances maps a currency to an amount.
type Balances map[models.Currency]money.Money

// Get returns the amount for c, zero when absent.
func (b Balances) Get(c models.Currency) money.Money {
	if v, ok := b[c]; ok {
		return v
	}
	return money.Zero
}

func (b Balances) add(c models.Currency, amount money.Money) {
	b[c] = b.Get(c).Add(amount)
}

func newBalances(pair models.CurrencyPair) Balances {
	b := Balances{}
	for _, c := range pair.Codes() {
		if c != "" {
			b[c] = money.Zero
		}
	}
	return b
}

// signed returns the transaction amount with expenses negated.
func signed(tx *models.Transaction) money.Money {
	if tx.Kind == models.TransactionKindExpense {
		return tx.Amount.Neg()
	}
	return tx.Amount
}

// AggregateBalance returns income minus expense per currency in a single pass.
func AggregateBalance(txs []models.Transaction) Balances {
	out := Balances{}
	for i := range txs {
		out.add(txs[i].Currency, signed(&txs[i]))
	}
	return out
}

// TagTotal is the expense accumulated under one tag.
type TagTotal struct {
	TagID           string   `json:"tag_id"`
	Name            string   `json:"name"`
	Color           string   `json:"color,omitempty"`
	TotalByCurrency Balances `json:"total_by_currency"`
	Count           int      `json:"count"`
}

// Summary is the result of Summarize.
type Summary struct {
	WindowDays     int        `json:"window_days"`
	From           time.Time  `json:"from"`
	To             time.Time  `json:"to"`
	TotalIncome    Balances   `json:"total_income"`
	TotalExpense   Balances   `json:"total_expense"`
	NetSavings     Balances   `json:"net_savings"`
	TopExpenseTags []TagTotal `json:"top_expense_tags"`
	RankedBy       string     `json:"ranked_by"`
}

// SummaryOptions configures Summarize.
type SummaryOptions struct {
	WindowDays int
	Now        time.Time
	Pair       models.CurrencyPair
	// Tags fixes the tie-break order of the ranking; tags seen only on
	// transactions are appended in first-seen order.
	Tags []models.Tag
	TopN int
	// Rate, when set, converts secondary-currency tag spend into the primary
	// currency before ranking. Without it tags are ranked by primary spend only.
	Rate *money.Money
}

const (
	rankedByPrimary   = "primary"
	rankedByConverted = "converted"
)

// Summarize totals income and expense per currency over the trailing window
// and ranks expense tags. Each transaction enters the currency totals once
// and each of its tags' totals once.
func Summarize(txs []models.Transaction, opts SummaryOptions) Summary {
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopTags
	}
	to := opts.Now
	from := to.AddDate(0, 0, -opts.WindowDays)

	s := Summary{
		WindowDays:   opts.WindowDays,
		From:         from,
		To:           to,
		TotalIncome:  newBalances(opts.Pair),
		TotalExpense: newBalances(opts.Pair),
		NetSavings:   newBalances(opts.Pair),
		RankedBy:     rankedByPrimary,
	}

	order := make([]string, 0, len(opts.Tags))
	byID := make(map[string]*TagTotal, len(opts.Tags))
	register := func(tag *models.Tag) *TagTotal {
		if tt, ok := byID[tag.ID]; ok {
			return tt
		}
		tt := &TagTotal{TagID: tag.ID, Name: tag.Name, Color: tag.Color, TotalByCurrency: newBalances(opts.Pair)}
		byID[tag.ID] = tt
		order = append(order, tag.ID)
		return tt
	}
	for i := range opts.Tags {
		register(&opts.Tags[i])
	}

	for i := range txs {
		tx := &txs[i]
		if tx.Date.Before(from) || tx.Date.After(to) {
			continue
		}
		switch tx.Kind {
		case models.TransactionKindIncome:
			s.TotalIncome.add(tx.Currency, tx.Amount)
		case models.TransactionKindExpense:
			s.TotalExpense.add(tx.Currency, tx.Amount)
			seen := make(map[string]bool, len(tx.Tags))
			for j := range tx.Tags {
				if seen[tx.Tags[j].ID] {
					continue
				}
				seen[tx.Tags[j].ID] = true
				tt := register(&tx.Tags[j])
				tt.TotalByCurrency.add(tx.Currency, tx.Amount)
				tt.Count++
			}
		}
	}

	for c, income := range s.TotalIncome {
		s.NetSavings[c] = income.Sub(s.TotalExpense.Get(c))
	}
	for c, expense := range s.TotalExpense {
		if _, ok := s.TotalIncome[c]; !ok {
			s.NetSavings[c] = expense.Neg()
		}
	}

	rankKey := func(tt *TagTotal) money.Money {
		return tt.TotalByCurrency.Get(opts.Pair.Primary)
	}
	if opts.Rate != nil && opts.Rate.IsPositive() {
		s.RankedBy = rankedByConverted
		rate := *opts.Rate
		rankKey = func(tt *TagTotal) money.Money {
			secondary := Convert(tt.TotalByCurrency.Get(opts.Pair.Secondary), opts.Pair.Secondary, opts.Pair.Primary, opts.Pair, rate)
			return tt.TotalByCurrency.Get(opts.Pair.Primary).Add(secondary)
		}
	}

	ranked := make([]*TagTotal, 0, len(order))
	for _, id := range order {
		if tt := byID[id]; tt.Count > 0 {
			ranked = append(ranked, tt)
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return rankKey(ranked[a]).Cmp(rankKey(ranked[b])) > 0
	})
	if len(ranked) > opts.TopN {
		ranked = ranked[:opts.TopN]
	}
	s.TopExpenseTags = make([]TagTotal, len(ranked))
	for i, tt := range ranked {
		s.TopExpenseTags[i] = *tt
	}
	return s
}

// Convert converts amount between the two currencies of pair. rate is the
// number of primary units per secondary unit. Amounts already in the target
// currency are returned unchanged.
func Convert(amount money.Money, from, to models.Currency, pair models.CurrencyPair, rate money.Money) money.Money {
	switch {
	case from == to:
		return amount
	case from == pair.Secondary && to == pair.Primary:
		return amount.Mul(rate)
	case from == pair.Primary && to == pair.Secondary:
		return amount.Div(rate)
	default:
		return money.Invalid()
	}
}

// MonthBalance is the net result of one calendar month.
type MonthBalance struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Net   Balances   `json:"net"`
}

// MonthlyHistory returns the net balance per currency for each of the last
// months calendar months up to and including now's month, oldest first.
func MonthlyHistory(txs []models.Transaction, months int, now time.Time, pair models.CurrencyPair) []MonthBalance {
	if months <= 0 {
		return []MonthBalance{}
	}
	firstOfNow := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	out := make([]MonthBalance, months)
	index := make(map[[2]int]int, months)
	for i := 0; i < months; i++ {
		m := firstOfNow.AddDate(0, i-months+1, 0)
		out[i] = MonthBalance{Year: m.Year(), Month: m.Month(), Net: newBalances(pair)}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}
	for i := range txs {
		d := txs[i].Date.In(now.Location())
		if pos, ok := index[[2]int{d.Year(), int(d.Month())}]; ok {
			out[pos].Net.add(txs[i].Currency, signed(&txs[i]))
		}
	}
	return out
}
