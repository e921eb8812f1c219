package domain

// MaxDecayRatePPTM is the fixed-point scale for decay rates:
// parts per ten million of balance lost per elapsed decay period.
// A rate equal to MaxDecayRatePPTM removes the whole balance each period.
const MaxDecayRatePPTM = uint64(10_000_000)

// TokenConfig describes one token within one tenant.
// Corresponds to the token_configs table.
type TokenConfig struct {
	Tenant        string // namespace partitioning token economies
	Issuer        string // sole identity allowed to issue and move the token
	Supply        Asset  // current total supply; symbol/precision fixed at creation
	MaxSupply     Asset  // cap; negative amount means mintable (uncapped)
	DecayPeriod   int64  // seconds per decay step; 0 disables decay
	DecayRatePPTM uint64 // fraction lost per period, in parts per ten million
}

// Mintable reports whether the token has no supply cap.
func (c *TokenConfig) Mintable() bool {
	return c.MaxSupply.Amount < 0
}
