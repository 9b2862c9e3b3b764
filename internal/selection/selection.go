package selection

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/everstacklabs/modelmeter/internal/registry"
)

// ErrNegativeTokens is returned when a request carries a negative token count.
var ErrNegativeTokens = errors.New("token counts must be non-negative")

// Reason explains why a requested model was replaced by the organization
// default. The empty Reason means no downgrade happened.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonNotChatCapable Reason = "not_chat_capable"
	ReasonDisabledForOrg Reason = "disabled_for_organization"
	ReasonHostingRegion  Reason = "hosting_region"
)

// Policy is the organization's model configuration, owned by the
// organization record store.
type Policy struct {
	EnabledModels []string `mapstructure:"enabled_models"`
	DefaultModel  string   `mapstructure:"default_model"`
	EUOnly        bool     `mapstructure:"eu_only"`
}

// Validate checks the policy against the catalogue. The default model is
// what every downgrade lands on, so it must exist, be an active chat model,
// be enabled and comply with EUOnly.
func (p Policy) Validate(reg *registry.Registry) error {
	m, err := reg.Entry(p.DefaultModel)
	if err != nil {
		return fmt.Errorf("default model: %w", err)
	}
	if !m.AllowChat {
		return fmt.Errorf("default model %q cannot be used for chat", m.Key)
	}
	if m.Deprecated {
		return fmt.Errorf("default model %q is deprecated", m.Key)
	}
	if !slices.Contains(p.EnabledModels, m.Key) {
		return fmt.Errorf("default model %q is not in the enabled models", m.Key)
	}
	if p.EUOnly && m.Hosting != registry.HostingEU {
		return fmt.Errorf("default model %q is hosted in %s but the organization is EU-only", m.Key, m.Hosting)
	}
	for _, key := range p.EnabledModels {
		if !reg.IsValidKey(key) {
			return fmt.Errorf("enabled models: %w", &registry.UnknownModelError{Key: key})
		}
	}
	return nil
}

// Request is a single resolution: what the chat or message asked for and
// how many tokens the send will carry.
type Request struct {
	Selector               registry.Selector
	ChatHistoryTokens      int
	ProspectiveInputTokens int
	// GenerationOnly lifts the chat-capability requirement, for one-shot
	// generation such as deep research.
	GenerationOnly bool
}

// Resolution is the concrete model a request resolved to.
type Resolution struct {
	Key       string
	Requested registry.Selector
	Reason    Reason
	Automatic bool
}

// Downgraded reports whether the requested model was replaced.
func (r Resolution) Downgraded() bool { return r.Reason != ReasonNone }

// Notice renders a one-line informational message for a downgrade, or ""
// when the requested model was used.
func (r Resolution) Notice() string {
	switch r.Reason {
	case ReasonNotChatCapable:
		return fmt.Sprintf("%s cannot be used for chat; using %s instead.", r.Requested, r.Key)
	case ReasonDisabledForOrg:
		return fmt.Sprintf("%s has been disabled for your organization; using %s instead.", r.Requested, r.Key)
	case ReasonHostingRegion:
		return fmt.Sprintf("%s is not hosted in the EU; using %s instead.", r.Requested, r.Key)
	}
	return ""
}

// ContextLengthExceededError is returned when the prompt does not fit the
// resolved model's context window. It is never recovered by downgrading.
type ContextLengthExceededError struct {
	Key           string
	TokenCount    int
	ContextWindow int
}

func (e *ContextLengthExceededError) Error() string {
	return fmt.Sprintf("%s: %d tokens exceed the context window of %d", e.Key, e.TokenCount, e.ContextWindow)
}

// Resolver applies organization policy to model selectors. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	reg *registry.Registry
}

// NewResolver creates a Resolver over reg.
func NewResolver(reg *registry.Registry) *Resolver {
	return &Resolver{reg: reg}
}

// Resolve turns req.Selector into a concrete key under policy.
//
// A concrete selector that is not chat capable, not enabled for the
// organization, or hosted outside the EU for an EU-only organization is
// replaced by the organization default and the Reason is set. An unknown
// key fails with *registry.UnknownModelError and the caller falls back.
// The context check runs on the final key and fails with
// *ContextLengthExceededError.
func (r *Resolver) Resolve(req Request, policy Policy) (Resolution, error) {
	if req.ChatHistoryTokens < 0 || req.ProspectiveInputTokens < 0 {
		return Resolution{}, fmt.Errorf("%w (history=%d, input=%d)", ErrNegativeTokens, req.ChatHistoryTokens, req.ProspectiveInputTokens)
	}

	res := Resolution{Requested: req.Selector}

	if req.Selector.IsAutomatic() {
		res.Key = policy.DefaultModel
		res.Automatic = true
	} else {
		m, err := r.reg.Entry(req.Selector.Key())
		if err != nil {
			return Resolution{}, err
		}
		res.Key = m.Key

		switch {
		case !req.GenerationOnly && !m.AllowChat:
			res.Reason = ReasonNotChatCapable
		case !slices.Contains(policy.EnabledModels, m.Key):
			res.Reason = ReasonDisabledForOrg
		case policy.EUOnly && m.Hosting != registry.HostingEU:
			res.Reason = ReasonHostingRegion
		}

		if res.Downgraded() {
			res.Key = policy.DefaultModel
			slog.Info("model downgraded",
				"requested", m.Key,
				"resolved", res.Key,
				"reason", string(res.Reason),
			)
		}
	}

	m, err := r.reg.Entry(res.Key)
	if err != nil {
		return Resolution{}, fmt.Errorf("organization default: %w", err)
	}

	total := req.ChatHistoryTokens + req.ProspectiveInputTokens
	if total > m.ContextWindow {
		return Resolution{}, &ContextLengthExceededError{
			Key:           m.Key,
			TokenCount:    total,
			ContextWindow: m.ContextWindow,
		}
	}

	return res, nil
}
