package models

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 code. A ledger tracks exactly two of them at once.
type Currency string

// CurrencyPair is the primary/secondary currency set of a ledger.
type CurrencyPair struct {
	Primary   Currency
	Secondary Currency
}

// NewCurrencyPair normalizes both codes to upper case.
func NewCurrencyPair(primary, secondary string) CurrencyPair {
	return CurrencyPair{
		Primary:   Currency(strings.ToUpper(primary)),
		Secondary: Currency(strings.ToUpper(secondary)),
	}
}

// Contains reports whether c is one of the two tracked currencies.
func (p CurrencyPair) Contains(c Currency) bool {
	return c == p.Primary || c == p.Secondary
}

// Other returns the counterpart of c within the pair.
func (p CurrencyPair) Other(c Currency) Currency {
	if c == p.Primary {
		return p.Secondary
	}
	return p.Primary
}

// Codes returns the pair in primary, secondary order.
func (p CurrencyPair) Codes() []Currency {
	return []Currency{p.Primary, p.Secondary}
}

// Validate checks that both codes look like ISO 4217 codes and differ.
func (p CurrencyPair) Validate() error {
	for _, c := range p.Codes() {
		if !isCurrencyCode(c) {
			return fmt.Errorf("currency code %q must be three letters", c)
		}
	}
	if p.Primary == p.Secondary {
		return fmt.Errorf("primary and secondary currency are both %s", p.Primary)
	}
	return nil
}

func isCurrencyCode(c Currency) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
