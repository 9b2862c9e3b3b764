package credits

import (
	"errors"
	"fmt"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

// ErrNegativeTokens is returned when a usage carries a negative token count.
var ErrNegativeTokens = errors.New("token counts must be non-negative")

// Config holds the global billing constants.
type Config struct {
	// CreditsPerCurrencyUnit converts one unit of raw provider cost to credits.
	CreditsPerCurrencyUnit float64 `mapstructure:"credits_per_currency_unit"`
	// MarginFactor is applied multiplicatively to the raw cost.
	MarginFactor float64 `mapstructure:"margin_factor"`
}

// DefaultConfig returns the reference deployment constants.
func DefaultConfig() Config {
	return Config{CreditsPerCurrencyUnit: 100, MarginFactor: 1.20}
}

// Validate checks the constants are usable for billing.
func (c Config) Validate() error {
	if c.CreditsPerCurrencyUnit <= 0 {
		return fmt.Errorf("credits_per_currency_unit must be > 0, got %g", c.CreditsPerCurrencyUnit)
	}
	if c.MarginFactor <= 1 {
		return fmt.Errorf("margin_factor must be > 1.0, got %g", c.MarginFactor)
	}
	return nil
}

// Usage is a prospective or completed generation.
type Usage struct {
	ModelKey     string
	InputTokens  int
	OutputTokens int
}

// Quote is the credit cost of a Usage. No rounding is applied.
type Quote struct {
	TotalCreditCost    float64 `json:"total_credit_cost"`
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
	RawCost            float64 `json:"raw_cost"`
}

// Estimator prices token usage against the catalogue.
type Estimator struct {
	reg *registry.Registry
	cfg Config
}

// NewEstimator creates an Estimator. cfg must pass Validate.
func NewEstimator(reg *registry.Registry, cfg Config) (*Estimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("credits config: %w", err)
	}
	return &Estimator{reg: reg, cfg: cfg}, nil
}

// Config returns the constants the estimator bills with.
func (e *Estimator) Config() Config { return e.cfg }

// Estimate returns the quote for u. Unknown keys fail with
// *registry.UnknownModelError; there is no fallback here.
func (e *Estimator) Estimate(u Usage) (Quote, error) {
	m, err := e.reg.Entry(u.ModelKey)
	if err != nil {
		return Quote{}, err
	}
	return e.QuoteModel(m, u.InputTokens, u.OutputTokens)
}

// QuoteModel prices in input and out output tokens on m.
func (e *Estimator) QuoteModel(m registry.Model, in, out int) (Quote, error) {
	if in < 0 || out < 0 {
		return Quote{}, fmt.Errorf("%s: %w (input=%d, output=%d)", m.Key, ErrNegativeTokens, in, out)
	}

	q := Quote{
		InputCostPerToken:  m.Price.InputPerToken(),
		OutputCostPerToken: m.Price.OutputPerToken(),
	}
	q.RawCost = float64(in)*q.InputCostPerToken + float64(out)*q.OutputCostPerToken
	q.TotalCreditCost = q.RawCost * e.cfg.CreditsPerCurrencyUnit * e.cfg.MarginFactor
	return q, nil
}
