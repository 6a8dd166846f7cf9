package remote

import "github.com/shopspring/decimal"

// Money is a decimal amount that goes over the wire as a bare JSON number.
// Decoding accepts both numbers and quoted strings.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}
