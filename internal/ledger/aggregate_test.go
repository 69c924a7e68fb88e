package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualledger/internal/models"
	"dualledger/internal/money"
)

var (
	ars  = models.Currency("ARS")
	usd  = models.Currency("USD")
	pair = models.CurrencyPair{Primary: ars, Secondary: usd}
	now  = time.Date(2025, time.June, 30, 18, 0, 0, 0, time.UTC)

	food   = models.Tag{Base: models.Base{ID: "food"}, Name: "Food"}
	rent   = models.Tag{Base: models.Base{ID: "rent"}, Name: "Rent"}
	travel = models.Tag{Base: models.Base{ID: "travel"}, Name: "Travel"}
	fun    = models.Tag{Base: models.Base{ID: "fun"}, Name: "Fun"}
)

func tx(kind models.TransactionKind, amount string, cur models.Currency, daysAgo int, tags ...models.Tag) models.Transaction {
	return models.Transaction{
		Amount:   money.MustParse(amount),
		Currency: cur,
		Kind:     kind,
		Date:     now.AddDate(0, 0, -daysAgo),
		Tags:     tags,
	}
}

func income(amount string, cur models.Currency, daysAgo int, tags ...models.Tag) models.Transaction {
	return tx(models.TransactionKindIncome, amount, cur, daysAgo, tags...)
}

func expense(amount string, cur models.Currency, daysAgo int, tags ...models.Tag) models.Transaction {
	return tx(models.TransactionKindExpense, amount, cur, daysAgo, tags...)
}

func TestAggregateBalance(t *testing.T) {
	txs := []models.Transaction{
		income("1000", ars, 1),
		expense("250.50", ars, 2),
		income("100", usd, 3),
		expense("40", usd, 4),
		expense("10", usd, 400),
	}

	b := AggregateBalance(txs)

	assert.Equal(t, "749.5000", b.Get(ars).StorageString())
	assert.Equal(t, "50.0000", b.Get(usd).StorageString())
	assert.Len(t, b, 2)
}

func TestAggregateBalance_Empty(t *testing.T) {
	b := AggregateBalance(nil)
	assert.Empty(t, b)
	assert.True(t, b.Get(ars).IsZero())
}

func TestAggregateBalance_OrderIndependent(t *testing.T) {
	txs := []models.Transaction{
		income("1000.10", ars, 1),
		expense("333.33", ars, 2),
		income("0.01", usd, 3),
		expense("12.5", usd, 4),
		expense("1,000", ars, 5),
		income("77.7", usd, 6),
	}
	want := AggregateBalance(txs)

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := AggregateBalance(shuffled)
		for c, v := range want {
			assert.True(t, v.Equal(got.Get(c)), "currency %s", c)
		}
	}
}

func TestSummarize_Totals(t *testing.T) {
	txs := []models.Transaction{
		income("5000", ars, 1),
		expense("1200", ars, 2, food),
		expense("300", usd, 3, travel),
		income("50", usd, 10),
		expense("999", ars, 45, food),
	}

	s := Summarize(txs, SummaryOptions{WindowDays: 30, Now: now, Pair: pair})

	assert.Equal(t, "5000.0000", s.TotalIncome.Get(ars).StorageString())
	assert.Equal(t, "1200.0000", s.TotalExpense.Get(ars).StorageString())
	assert.Equal(t, "3800.0000", s.NetSavings.Get(ars).StorageString())
	assert.Equal(t, "50.0000", s.TotalIncome.Get(usd).StorageString())
	assert.Equal(t, "300.0000", s.TotalExpense.Get(usd).StorageString())
	assert.Equal(t, "-250.0000", s.NetSavings.Get(usd).StorageString())
	assert.Equal(t, now.AddDate(0, 0, -30), s.From)
}

func TestSummarize_EmptyWindow(t *testing.T) {
	s := Summarize(nil, SummaryOptions{WindowDays: 30, Now: now, Pair: pair})

	assert.True(t, s.TotalIncome.Get(ars).IsZero())
	assert.True(t, s.NetSavings.Get(usd).IsZero())
	assert.Empty(t, s.TopExpenseTags)
	assert.NotNil(t, s.TopExpenseTags)
}

func TestSummarize_MultiTagCountedOncePerTag(t *testing.T) {
	txs := []models.Transaction{
		expense("100", ars, 1, food, fun),
		expense("50", ars, 2, food, food),
	}

	s := Summarize(txs, SummaryOptions{WindowDays: 30, Now: now, Pair: pair})

	assert.Equal(t, "150.0000", s.TotalExpense.Get(ars).StorageString())
	require.Len(t, s.TopExpenseTags, 2)
	assert.Equal(t, "food", s.TopExpenseTags[0].TagID)
	assert.Equal(t, "150.0000", s.TopExpenseTags[0].TotalByCurrency.Get(ars).StorageString())
	assert.Equal(t, 2, s.TopExpenseTags[0].Count)
	assert.Equal(t, "fun", s.TopExpenseTags[1].TagID)
	assert.Equal(t, "100.0000", s.TopExpenseTags[1].TotalByCurrency.Get(ars).StorageString())
}

func TestSummarize_TopTagsByPrimaryCurrency(t *testing.T) {
	txs := []models.Transaction{
		expense("100", ars, 1, food),
		expense("500", ars, 1, rent),
		expense("300", ars, 1, fun),
		expense("10000", usd, 1, travel),
		expense("200", ars, 1, travel),
	}

	s := Summarize(txs, SummaryOptions{WindowDays: 30, Now: now, Pair: pair})

	assert.Equal(t, rankedByPrimary, s.RankedBy)
	ids := make([]string, len(s.TopExpenseTags))
	for i, tt := range s.TopExpenseTags {
		ids[i] = tt.TagID
	}
	assert.Equal(t, []string{"rent", "fun", "travel"}, ids)
	assert.Equal(t, "10000.0000", s.TopExpenseTags[2].TotalByCurrency.Get(usd).StorageString())
}

func TestSummarize_RankWithRate(t *testing.T) {
	txs := []models.Transaction{
		expense("500", ars, 1, rent),
		expense("1", usd, 1, travel),
	}
	rate := money.MustParse("1000")

	s := Summarize(txs, SummaryOptions{WindowDays: 30, Now: now, Pair: pair, Rate: &rate})

	assert.Equal(t, rankedByConverted, s.RankedBy)
	require.Len(t, s.TopExpenseTags, 2)
	assert.Equal(t, "travel", s.TopExpenseTags[0].TagID)
}

func TestSummarize_TiesFollowTagOrder(t *testing.T) {
	txs := []models.Transaction{
		expense("100", ars, 1, fun),
		expense("100", ars, 1, food),
		expense("100", ars, 1, rent),
		expense("100", ars, 1, travel),
	}

	s := Summarize(txs, SummaryOptions{
		WindowDays: 30, Now: now, Pair: pair,
		Tags: []models.Tag{rent, travel, food, fun},
	})

	require.Len(t, s.TopExpenseTags, DefaultTopTags)
	assert.Equal(t, "rent", s.TopExpenseTags[0].TagID)
	assert.Equal(t, "travel", s.TopExpenseTags[1].TagID)
	assert.Equal(t, "food", s.TopExpenseTags[2].TagID)
}

func TestSummarize_OrderIndependentTotals(t *testing.T) {
	txs := []models.Transaction{
		income("800", ars, 1),
		expense("120.25", ars, 2, food),
		expense("80", usd, 3, travel, fun),
		expense("10", ars, 4, rent),
		income("20", usd, 5),
	}
	opts := SummaryOptions{WindowDays: 30, Now: now, Pair: pair, Tags: []models.Tag{food, rent, travel, fun}}
	want := Summarize(txs, opts)

	r := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.Transaction(nil), txs...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := Summarize(shuffled, opts)

		for _, c := range pair.Codes() {
			assert.True(t, want.TotalIncome.Get(c).Equal(got.TotalIncome.Get(c)))
			assert.True(t, want.TotalExpense.Get(c).Equal(got.TotalExpense.Get(c)))
			assert.True(t, want.NetSavings.Get(c).Equal(got.NetSavings.Get(c)))
		}
		require.Equal(t, len(want.TopExpenseTags), len(got.TopExpenseTags))
		for j := range want.TopExpenseTags {
			assert.Equal(t, want.TopExpenseTags[j].TagID, got.TopExpenseTags[j].TagID)
		}
	}
}

func TestConvert(t *testing.T) {
	rate := money.MustParse("1200")

	assert.Equal(t, "12000.0000", Convert(money.MustParse("10"), usd, ars, pair, rate).StorageString())
	assert.Equal(t, "10.0000", Convert(money.MustParse("12000"), ars, usd, pair, rate).StorageString())
	assert.Equal(t, "5.0000", Convert(money.MustParse("5"), usd, usd, pair, rate).StorageString())
	assert.False(t, Convert(money.MustParse("5"), "EUR", ars, pair, rate).Valid())
	assert.True(t, Convert(money.MustParse("5"), ars, usd, pair, money.Zero).IsZero())
}

func TestMonthlyHistory(t *testing.T) {
	txs := []models.Transaction{
		{Amount: money.MustParse("100"), Currency: ars, Kind: models.TransactionKindIncome, Date: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)},
		{Amount: money.MustParse("40"), Currency: ars, Kind: models.TransactionKindExpense, Date: time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)},
		{Amount: money.MustParse("7"), Currency: usd, Kind: models.TransactionKindExpense, Date: time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)},
		{Amount: money.MustParse("500"), Currency: ars, Kind: models.TransactionKindIncome, Date: time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)},
	}

	h := MonthlyHistory(txs, 3, now, pair)

	require.Len(t, h, 3)
	assert.Equal(t, time.April, h[0].Month)
	assert.Equal(t, "-7.0000", h[0].Net.Get(usd).StorageString())
	assert.True(t, h[1].Net.Get(ars).IsZero())
	assert.Equal(t, time.June, h[2].Month)
	assert.Equal(t, "60.0000", h[2].Net.Get(ars).StorageString())

	assert.Empty(t, MonthlyHistory(txs, 0, now, pair))
}

func TestMonthlyHistory_CrossesYear(t *testing.T) {
	jan := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	h := MonthlyHistory(nil, 2, jan, pair)

	require.Len(t, h, 2)
	assert.Equal(t, 2025, h[0].Year)
	assert.Equal(t, time.December, h[0].Month)
	assert.Equal(t, 2026, h[1].Year)
}
