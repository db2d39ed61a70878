package model

// SymbolConfig describes one tradable instrument. Created and edited by
// the operator-facing dashboard; read-only to the core during a tick.
type SymbolConfig struct {
	OKXSymbol       string  `yaml:"okx_symbol"`       // e.g. BTC-USDT-SWAP
	ModelSymbol     string  `yaml:"model_symbol"`     // e.g. BTCUSDT, keys the model registry
	DisplayName     string  `yaml:"display_name"`
	Enabled         bool    `yaml:"enabled"`
	RiskMultiplier  float64 `yaml:"risk_multiplier"`   // > 0, scales per-trade notional
	MinBalance      float64 `yaml:"min_balance"`       // skip trading below this available balance
	MaxPositionSize float64 `yaml:"max_position_size"` // notional cap in quote currency, 0 = global cap only
	LotStep         float64 `yaml:"lot_step"`          // contract size granularity
}
