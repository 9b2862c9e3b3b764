package warning

import (
	"fmt"

	"github.com/everstacklabs/modelmeter/internal/credits"
	"github.com/everstacklabs/modelmeter/internal/registry"
)

// Category is the kind of credit warning raised for a compose action.
type Category string

const (
	None    Category = "none"
	Message Category = "message_credit_warning"
	Chat    Category = "chat_credit_warning"
)

// Thresholds are the credit limits above which a warning is raised.
type Thresholds struct {
	Message float64 `mapstructure:"message_threshold"`
	Chat    float64 `mapstructure:"chat_threshold"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{Message: 10, Chat: 50}
}

// Validate checks both thresholds are positive.
func (t Thresholds) Validate() error {
	if t.Message <= 0 || t.Chat <= 0 {
		return fmt.Errorf("thresholds must be > 0, got message=%g chat=%g", t.Message, t.Chat)
	}
	return nil
}

// Input describes a prospective send. Acceptance flags come from the chat
// record store: MessageAccepted lasts for the compose action, ChatAccepted
// is persisted against the chat.
type Input struct {
	ModelKey      string
	ChatTokens    int
	MessageTokens int
	EnabledModels []string
	// EUOnly restricts suggestions to EU-hosted models.
	EUOnly          bool
	MessageAccepted bool
	ChatAccepted    bool
}

// Result is the outcome of a warning check.
type Result struct {
	Category  Category
	Cost      float64
	Threshold float64
	// Suggestion is the most expensive enabled model that stays under
	// Threshold, or "" when none qualifies.
	Suggestion     string
	SuggestionCost float64
}

// Raised reports whether a warning should be shown.
func (r Result) Raised() bool { return r.Category != None }

// Checker decides whether a send should warn about its credit cost.
type Checker struct {
	reg        *registry.Registry
	est        *credits.Estimator
	thresholds Thresholds
}

// NewChecker creates a Checker.
func NewChecker(reg *registry.Registry, est *credits.Estimator, t Thresholds) (*Checker, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Checker{reg: reg, est: est, thresholds: t}, nil
}

// Check evaluates the message threshold first and the chat threshold
// second. A message-level acceptance also silences the chat warning.
func (c *Checker) Check(in Input) (Result, error) {
	m, err := c.reg.Entry(in.ModelKey)
	if err != nil {
		return Result{}, err
	}

	messageCost, err := c.estimateFor(m, in.MessageTokens)
	if err != nil {
		return Result{}, err
	}
	if messageCost > c.thresholds.Message && !in.MessageAccepted {
		return c.raise(Message, messageCost, c.thresholds.Message, in.MessageTokens, in)
	}

	chatCost, err := c.estimateFor(m, in.ChatTokens)
	if err != nil {
		return Result{}, err
	}
	if chatCost > c.thresholds.Chat && !in.ChatAccepted && !in.MessageAccepted {
		return c.raise(Chat, chatCost, c.thresholds.Chat, in.ChatTokens, in)
	}

	return Result{Category: None}, nil
}

func (c *Checker) raise(cat Category, cost, threshold float64, tokens int, in Input) (Result, error) {
	res := Result{Category: cat, Cost: cost, Threshold: threshold}

	needed := in.ChatTokens + in.MessageTokens
	filters := []registry.Filter{registry.ChatCapable, registry.Active, registry.EnabledIn(in.EnabledModels)}
	if in.EUOnly {
		filters = append(filters, registry.HostedIn(registry.HostingEU))
	}
	candidates := c.reg.List(filters...)

	best := -1.0
	for _, m := range candidates {
		if m.ContextWindow < needed {
			continue
		}
		cost, err := c.estimateFor(m, tokens)
		if err != nil {
			return Result{}, err
		}
		if cost <= threshold && cost > best {
			best = cost
			res.Suggestion = m.Key
			res.SuggestionCost = cost
		}
	}

	return res, nil
}

// estimateFor prices tokens as input with no output.
func (c *Checker) estimateFor(m registry.Model, tokens int) (float64, error) {
	q, err := c.est.QuoteModel(m, tokens, 0)
	if err != nil {
		return 0, err
	}
	return q.TotalCreditCost, nil
}
