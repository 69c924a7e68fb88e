// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

var (
	mu      sync.RWMutex
	tracked = models.CurrencyPair{Primary: "ARS", Secondary: "USD"}

	strict = bluemonday.StrictPolicy()
)

// Register registers all custom validators with the Gin binding engine.
// Currency fields are checked against pair.
func Register(pair models.CurrencyPair) {
	mu.Lock()
	tracked = pair
	mu.Unlock()

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterCustomTypeFunc(moneyValue, money.Money{})
		_ = v.RegisterValidation("positive_amount", validatePositiveAmount)
		_ = v.RegisterValidation("non_negative_amount", validateNonNegativeAmount)
		_ = v.RegisterValidation("tracked_currency", validateTrackedCurrency)
		_ = v.RegisterValidation("transaction_kind", validateTransactionKind)
		_ = v.RegisterValidation("hex_color", validateHexColor)
	}
}

// Sanitize strips all markup from user supplied text and trims it.
func Sanitize(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// TrackedCurrency reports whether c is one of the registered pair.
func TrackedCurrency(c models.Currency) bool {
	mu.RLock()
	defer mu.RUnlock()
	return tracked.Contains(c)
}

// moneyValue exposes Money to validation as its storage string. Invalid
// amounts become nil, so "required" rejects them.
func moneyValue(field reflect.Value) any {
	m, ok := field.Interface().(money.Money)
	if !ok || !m.Valid() {
		return nil
	}
	return m.StorageString()
}

// amountOf reads the field back as Money. Amounts with more digits than the
// storage form keeps are rejected.
func amountOf(fl validator.FieldLevel) (money.Money, bool) {
	m, ok := money.Parse(fl.Field().String())
	return m, ok && m.Storable()
}

func validatePositiveAmount(fl validator.FieldLevel) bool {
	m, ok := amountOf(fl)
	return ok && m.IsPositive()
}

func validateNonNegativeAmount(fl validator.FieldLevel) bool {
	m, ok := amountOf(fl)
	return ok && !m.IsNegative()
}

func validateTrackedCurrency(fl validator.FieldLevel) bool {
	return TrackedCurrency(models.Currency(fl.Field().String()))
}

func validateTransactionKind(fl validator.FieldLevel) bool {
	switch models.TransactionKind(fl.Field().String()) {
	case models.TransactionKindIncome, models.TransactionKindExpense:
		return true
	}
	return false
}

func validateHexColor(fl validator.FieldLevel) bool {
	return hexColorRegex.MatchString(fl.Field().String())
}
