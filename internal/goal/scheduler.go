// Package goal schedules savings goals into monthly installments and keeps the
// goal's saved amount in sync with installment completion.
package goal

import (
	"errors"
	"fmt"
	"time"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

// ErrInvalidParameters is returned when the total cost or the monthly amount
// is not strictly positive.
var ErrInvalidParameters = errors.New("goal total cost and monthly amount must be positive")

// ErrInstallmentNotFound is returned by ToggleInstallment for an unknown id.
var ErrInstallmentNotFound = errors.New("installment not found")

// Installment is one generated schedule entry, before persistence.
type Installment struct {
	MonthIndex   int
	DueDate      time.Time
	TargetAmount money.Money
}

// Schedule is the result of Generate.
type Schedule struct {
	DurationMonths int
	Deadline       time.Time
	Installments   []Installment
}

// Generate splits totalCost into monthly installments of monthlyAmount
// rounded to display precision, the last one taking whatever remains. The
// installment targets are all positive and add up to totalCost exactly.
// Deadline is startDate plus DurationMonths calendar months, clamped to the
// last day of the target month. A monthly amount that rounds to zero is
// rejected.
func Generate(totalCost, monthlyAmount money.Money, startDate time.Time) (*Schedule, error) {
	if !totalCost.Valid() || !monthlyAmount.Valid() || !totalCost.IsPositive() || !monthlyAmount.IsPositive() {
		return nil, ErrInvalidParameters
	}
	monthly := monthlyAmount.Round()
	if !monthly.IsPositive() {
		return nil, ErrInvalidParameters
	}

	// Every installment before the last is monthly, and
	// (duration-1)*monthly < totalCost, so the last one is positive.
	duration := int(totalCost.CeilQuo(monthly))
	installments := make([]Installment, 0, duration)
	remaining := totalCost
	for i := 1; i <= duration; i++ {
		target := monthly
		if i == duration {
			target = remaining
		}
		installments = append(installments, Installment{
			MonthIndex:   i,
			DueDate:      AddMonths(startDate, i-1),
			TargetAmount: target,
		})
		remaining = remaining.Sub(target)
	}

	schedule := &Schedule{
		DurationMonths: duration,
		Deadline:       AddMonths(startDate, duration),
		Installments:   installments,
	}
	MustVerify(schedule, totalCost)
	return schedule, nil
}

// Verify checks the schedule invariants: 1-based contiguous unique month
// indexes, positive targets, and targets summing to totalCost.
func Verify(schedule *Schedule, totalCost money.Money) error {
	if len(schedule.Installments) != schedule.DurationMonths {
		return fmt.Errorf("schedule has %d installments for %d months", len(schedule.Installments), schedule.DurationMonths)
	}
	seen := make(map[int]bool, len(schedule.Installments))
	sum := money.Zero
	for _, inst := range schedule.Installments {
		if seen[inst.MonthIndex] {
			return fmt.Errorf("duplicate month index %d", inst.MonthIndex)
		}
		if inst.MonthIndex < 1 || inst.MonthIndex > schedule.DurationMonths {
			return fmt.Errorf("month index %d out of range 1..%d", inst.MonthIndex, schedule.DurationMonths)
		}
		if !inst.TargetAmount.IsPositive() {
			return fmt.Errorf("installment %d has non-positive target %s", inst.MonthIndex, inst.TargetAmount.StorageString())
		}
		seen[inst.MonthIndex] = true
		sum = sum.Add(inst.TargetAmount)
	}
	if !sum.Equal(totalCost) {
		return fmt.Errorf("installment sum %s does not match total cost %s", sum.StorageString(), totalCost.StorageString())
	}
	return nil
}

// MustVerify panics when Verify fails. A failure means the scheduler is broken.
func MustVerify(schedule *Schedule, totalCost money.Money) {
	if err := Verify(schedule, totalCost); err != nil {
		panic("goal: " + err.Error())
	}
}

// ToggleInstallment sets the completion flag of one installment and returns
// the recomputed saved amount. The saved amount is always the full sum over
// completed installments, so repeating a toggle has no further effect.
func ToggleInstallment(installments []models.GoalInstallment, installmentID string, completed bool, now time.Time) (money.Money, error) {
	found := false
	for i := range installments {
		if installments[i].ID != installmentID {
			continue
		}
		found = true
		if installments[i].IsCompleted != completed {
			installments[i].IsCompleted = completed
			if completed {
				at := now
				installments[i].CompletedAt = &at
			} else {
				installments[i].CompletedAt = nil
			}
		}
	}
	if !found {
		return money.Zero, ErrInstallmentNotFound
	}
	return SavedAmount(installments), nil
}

// SavedAmount sums the targets of completed installments.
func SavedAmount(installments []models.GoalInstallment) money.Money {
	saved := money.Zero
	for i := range installments {
		if installments[i].IsCompleted {
			saved = saved.Add(installments[i].TargetAmount)
		}
	}
	return saved
}

// Progress summarizes how far a goal is.
type Progress struct {
	Saved                  money.Money             `json:"saved"`
	Remaining              money.Money             `json:"remaining"`
	Percentage             string                  `json:"percentage"`
	CompletedInstallments  int                     `json:"completed_installments"`
	TotalInstallments      int                     `json:"total_installments"`
	NextPendingInstallment *models.GoalInstallment `json:"next_pending_installment,omitempty"`
}

// ComputeProgress derives progress from the goal and its installments, which
// must be ordered by month index.
func ComputeProgress(g *models.Goal, installments []models.GoalInstallment) Progress {
	saved := SavedAmount(installments)
	p := Progress{
		Saved:             saved,
		Remaining:         money.Max(g.TotalCost.Sub(saved), money.Zero),
		Percentage:        saved.Div(g.TotalCost).Mul(money.NewFromInt(100)).DisplayString(),
		TotalInstallments: len(installments),
	}
	for i := range installments {
		if installments[i].IsCompleted {
			p.CompletedInstallments++
			continue
		}
		if p.NextPendingInstallment == nil {
			next := installments[i]
			p.NextPendingInstallment = &next
		}
	}
	return p
}

// AddMonths adds n calendar months to t. When the day of month does not exist
// in the target month the last day of that month is used.
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
