package domain

// MaxAssetAmount bounds the magnitude of any asset amount.
const MaxAssetAmount = int64(1)<<62 - 1

// Asset is a fixed-point token quantity: an integer amount interpreted
// with the symbol's decimal precision.
type Asset struct {
	Amount int64
	Symbol Symbol
}

// IsValid reports whether the symbol is well formed and the amount is
// within the representable range.
func (a Asset) IsValid() bool {
	if !a.Symbol.IsValid() {
		return false
	}
	return a.Amount >= -MaxAssetAmount && a.Amount <= MaxAssetAmount
}

// SameSymbol reports whether two assets share code and precision.
func (a Asset) SameSymbol(b Asset) bool {
	return a.Symbol == b.Symbol
}
