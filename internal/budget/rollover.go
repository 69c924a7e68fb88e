// Package budget computes monthly spend against tag budgets and the unspent
// allowance each rollover-enabled budget carries into the next month.
package budget

import (
	"time"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

// InPeriod reports whether tx falls in the budget's calendar month, in UTC.
func InPeriod(b *models.Budget, tx *models.Transaction) bool {
	d := tx.Date.UTC()
	return d.Year() == b.Year && int(d.Month()) == b.Month
}

// Matches reports whether tx counts against b: an expense in the budget's
// currency, tag and month.
func Matches(b *models.Budget, tx *models.Transaction) bool {
	return tx.Kind == models.TransactionKindExpense &&
		tx.Currency == b.Currency &&
		InPeriod(b, tx) &&
		tx.HasTag(b.TagID)
}

// ComputeSpent sums the expenses that count against b.
func ComputeSpent(b *models.Budget, txs []models.Transaction) money.Money {
	spent := money.Zero
	for i := range txs {
		if Matches(b, &txs[i]) {
			spent = spent.Add(txs[i].Amount)
		}
	}
	return spent
}

// SpentByBudget computes ComputeSpent for every budget, keyed by budget id.
// Transactions are indexed by tag once so each budget only scans its own tag.
func SpentByBudget(budgets []models.Budget, txs []models.Transaction) map[string]money.Money {
	byTag := make(map[string][]int)
	for i := range txs {
		if txs[i].Kind != models.TransactionKindExpense {
			continue
		}
		seen := make(map[string]bool, len(txs[i].Tags))
		for _, id := range txs[i].TagIDs() {
			if !seen[id] {
				seen[id] = true
				byTag[id] = append(byTag[id], i)
			}
		}
	}

	out := make(map[string]money.Money, len(budgets))
	for i := range budgets {
		b := &budgets[i]
		spent := money.Zero
		for _, idx := range byTag[b.TagID] {
			if Matches(b, &txs[idx]) {
				spent = spent.Add(txs[idx].Amount)
			}
		}
		out[b.ID] = spent
	}
	return out
}

// Carry is the rollover outcome for one budget.
type Carry struct {
	BudgetID          string          `json:"budget_id"`
	TagID             string          `json:"tag_id"`
	Currency          models.Currency `json:"currency"`
	NewRolloverAmount money.Money     `json:"new_rollover_amount"`
}

// ExecuteRollover returns the amount each rollover-enabled budget carries into
// the next month: its limit minus what was spent, floored at zero. The carry
// is computed from the nominal limit, so the result depends only on the inputs
// and running it again for the same month yields the same carries.
// Budgets missing from spent are treated as having no spend.
func ExecuteRollover(budgets []models.Budget, spent map[string]money.Money) []Carry {
	out := make([]Carry, 0, len(budgets))
	for i := range budgets {
		b := &budgets[i]
		if !b.RolloverEnabled {
			continue
		}
		unspent := money.Max(b.Limit.Sub(spent[b.ID]), money.Zero)
		out = append(out, Carry{
			BudgetID:          b.ID,
			TagID:             b.TagID,
			Currency:          b.Currency,
			NewRolloverAmount: unspent,
		})
	}
	return out
}

// EffectiveLimit is the nominal limit plus the carried-in rollover.
func EffectiveLimit(b *models.Budget) money.Money {
	return b.Limit.Add(b.RolloverAmount)
}

// Progress is the spend status of one budget.
type Progress struct {
	BudgetID       string      `json:"budget_id"`
	Limit          money.Money `json:"limit"`
	RolloverAmount money.Money `json:"rollover_amount"`
	EffectiveLimit money.Money `json:"effective_limit"`
	Spent          money.Money `json:"spent"`
	Remaining      money.Money `json:"remaining"`
	Percentage     string      `json:"percentage"`
	OverBudget     bool        `json:"over_budget"`
}

// ComputeProgress derives the progress of b from its spend.
func ComputeProgress(b *models.Budget, spent money.Money) Progress {
	limit := EffectiveLimit(b)
	remaining := limit.Sub(spent)
	return Progress{
		BudgetID:       b.ID,
		Limit:          b.Limit,
		RolloverAmount: b.RolloverAmount,
		EffectiveLimit: limit,
		Spent:          spent,
		Remaining:      remaining,
		Percentage:     spent.Div(limit).Mul(money.NewFromInt(100)).DisplayString(),
		OverBudget:     remaining.IsNegative(),
	}
}

// NextPeriod returns the calendar month following month/year.
func NextPeriod(month, year int) (int, int) {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return int(t.Month()), t.Year()
}

// PeriodBounds returns the first instant of month/year and of the following
// month, in loc.
func PeriodBounds(month, year int, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}
