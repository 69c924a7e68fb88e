package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   string
		wantOK bool
	}{
		{"plain string", "1234.56", "1234.5600", true},
		{"thousands separators", "1,234.56", "1234.5600", true},
		{"surrounding spaces", "  42 ", "42.0000", true},
		{"negative", "-10.5", "-10.5000", true},
		{"int", 15, "15.0000", true},
		{"int64", int64(-3), "-3.0000", true},
		{"float", 0.1, "0.1000", true},
		{"json number", json.Number("99.99"), "99.9900", true},
		{"decimal", decimal.RequireFromString("7.25"), "7.2500", true},
		{"letters", "abc", "", false},
		{"empty", "", "", false},
		{"exponent", "1e5", "", false},
		{"trailing dot", "12.", "", false},
		{"nil", nil, "", false},
		{"bool", true, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := Parse(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantOK, m.Valid())
			if tt.wantOK {
				assert.Equal(t, tt.want, m.StorageString())
			}
		})
	}
}

func TestParse_SeparatorsEquivalent(t *testing.T) {
	a, ok := Parse("1,234.56")
	require.True(t, ok)
	b, ok := Parse("1234.56")
	require.True(t, ok)
	assert.True(t, a.Equal(b))
}

func TestArithmetic_IsExact(t *testing.T) {
	sum := Zero
	for i := 0; i < 10; i++ {
		sum = sum.Add(MustParse("0.1"))
	}
	assert.True(t, sum.Equal(MustParse("1")))
	assert.Equal(t, "0.3000", MustParse("0.1").Add(MustParse("0.2")).StorageString())
	assert.Equal(t, "-5.2500", MustParse("10").Sub(MustParse("15.25")).StorageString())
	assert.Equal(t, "3.7500", MustParse("1.5").Mul(MustParse("2.5")).StorageString())
}

func TestInvalidOperandsCountAsZero(t *testing.T) {
	bad := Invalid()
	assert.False(t, bad.Valid())
	assert.Equal(t, "5.0000", MustParse("5").Add(bad).StorageString())
	assert.True(t, bad.Add(bad).Valid())
	assert.Equal(t, "invalid", bad.String())
}

func TestDiv(t *testing.T) {
	assert.True(t, MustParse("10").Div(Zero).Equal(Zero))
	assert.True(t, MustParse("10").Div(Invalid()).Equal(Zero))
	assert.Equal(t, "2.50", MustParse("5").Div(MustParse("2")).DisplayString())
	assert.Equal(t, "0.33", MustParse("1").Div(MustParse("3")).DisplayString())
}

func TestCeilQuo(t *testing.T) {
	tests := []struct {
		a, b string
		want int64
	}{
		{"1000", "200", 5},
		{"1000", "300", 4},
		{"150", "500", 1},
		{"100.50", "33.25", 4},
		{"0.01", "0.01", 1},
		{"-7", "2", -3},
		{"7", "0", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MustParse(tt.a).CeilQuo(MustParse(tt.b)), "%s / %s", tt.a, tt.b)
	}
}

func TestRound(t *testing.T) {
	assert.Equal(t, "2.35", MustParse("2.345").Round().DisplayString())
	assert.Equal(t, "-2.35", MustParse("-2.345").Round().DisplayString())
	assert.Equal(t, "2.34", MustParse("2.344").Round().DisplayString())
}

func TestMinMax(t *testing.T) {
	a, b := MustParse("1"), MustParse("2")
	assert.True(t, Min(a, b).Equal(a))
	assert.True(t, Max(a, b).Equal(b))
	assert.True(t, Max(MustParse("-5"), Zero).Equal(Zero))
	assert.Equal(t, "3.0000", Sum(a, b, Invalid()).StorageString())
}

func TestJSON(t *testing.T) {
	type payload struct {
		Amount Money `json:"amount"`
	}

	data, err := json.Marshal(payload{Amount: MustParse("12.5")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"12.5000"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"1,500.25"}`), &p))
	assert.Equal(t, "1500.2500", p.Amount.StorageString())

	require.NoError(t, json.Unmarshal([]byte(`{"amount":42.1}`), &p))
	assert.Equal(t, "42.1000", p.Amount.StorageString())

	err = json.Unmarshal([]byte(`{"amount":"abc"}`), &p)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	data, err = json.Marshal(payload{Amount: Invalid()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":null}`, string(data))
}

func TestStorable(t *testing.T) {
	assert.True(t, MustParse("12.3456").Storable())
	assert.True(t, MustParse("12.34560").Storable())
	assert.True(t, MustParse("-7").Storable())
	assert.False(t, MustParse("0.00004").Storable())
	assert.False(t, MustParse("12.34567").Storable())
	assert.False(t, Invalid().Storable())
}

func TestValueScan(t *testing.T) {
	v, err := MustParse("1234.5").Value()
	require.NoError(t, err)
	assert.Equal(t, "1234.5000", v)

	_, err = Invalid().Value()
	assert.ErrorIs(t, err, ErrInvalidAmount)

	var m Money
	require.NoError(t, m.Scan([]byte("99.1000")))
	assert.Equal(t, "99.10", m.DisplayString())

	require.NoError(t, m.Scan("7"))
	assert.Equal(t, "7.0000", m.StorageString())

	require.NoError(t, m.Scan(int64(3)))
	assert.Equal(t, "3.0000", m.StorageString())

	assert.ErrorIs(t, m.Scan(nil), ErrInvalidAmount)
	assert.ErrorIs(t, m.Scan("garbage"), ErrInvalidAmount)
}
