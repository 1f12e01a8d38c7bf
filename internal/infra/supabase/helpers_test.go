package supabase_test

import "github.com/shopspring/decimal"

func decimalPrice(v int64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromInt(v))
}
