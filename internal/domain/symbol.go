package domain

// MaxSymbolCodeLen is the longest allowed symbol code.
const MaxSymbolCodeLen = 7

// MaxPrecision is the largest supported number of decimal places.
const MaxPrecision = 18

// Symbol identifies a token: an uppercase code plus a fixed decimal
// precision. Both are set when the token is created and never change.
type Symbol struct {
	Code      string
	Precision uint8
}

// IsValid reports whether the symbol code is 1-7 uppercase letters A-Z
// and the precision is within range.
func (s Symbol) IsValid() bool {
	if len(s.Code) == 0 || len(s.Code) > MaxSymbolCodeLen {
		return false
	}
	for i := 0; i < len(s.Code); i++ {
		if s.Code[i] < 'A' || s.Code[i] > 'Z' {
			return false
		}
	}
	return s.Precision <= MaxPrecision
}
