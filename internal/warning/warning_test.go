package warning

import (
	"testing"

	"github.com/everstacklabs/modelmeter/internal/credits"
	"github.com/everstacklabs/modelmeter/internal/registry"
	"github.com/stretchr/testify/require"
)

func model(key string, inputRate float64, window int) registry.Model {
	return registry.Model{
		Key:           key,
		DisplayName:   key,
		Provider:      "Acme",
		Hosting:       registry.HostingEU,
		AllowChat:     true,
		ContextWindow: window,
		Price:         registry.Price{InputRate: inputRate, OutputRate: inputRate, Unit: registry.PerThousand},
		Backend:       registry.Backend{Name: "acme"},
	}
}

// With 1000 tokens, 1 credit per unit and a 1.25 margin, each model's cost
// is 1.25 times its input rate.
func newChecker(t *testing.T, models ...registry.Model) *Checker {
	t.Helper()
	reg, err := registry.New(registry.Document{FallbackModel: models[0].Key, Models: models})
	require.NoError(t, err)
	est, err := credits.NewEstimator(reg, credits.Config{CreditsPerCurrencyUnit: 1, MarginFactor: 1.25})
	require.NoError(t, err)
	c, err := NewChecker(reg, est, Thresholds{Message: 10, Chat: 50})
	require.NoError(t, err)
	return c
}

func TestMessageWarningAndAcceptance(t *testing.T) {
	c := newChecker(t, model("pricey", 12, 128000))

	in := Input{ModelKey: "pricey", MessageTokens: 1000, EnabledModels: []string{"pricey"}}
	res, err := c.Check(in)
	require.NoError(t, err)
	require.Equal(t, Message, res.Category)
	require.InDelta(t, 15, res.Cost, 1e-9)
	require.Equal(t, 10.0, res.Threshold)
	require.Empty(t, res.Suggestion)

	in.MessageAccepted = true
	res, err = c.Check(in)
	require.NoError(t, err)
	require.Equal(t, None, res.Category)
	require.False(t, res.Raised())
}

func TestCheaperModelSuggestion(t *testing.T) {
	c := newChecker(t,
		model("a", 4, 128000),   // 5
		model("b", 6.4, 128000), // 8
		model("c", 9.6, 128000), // 12
		model("d", 12, 128000),  // 15
	)

	res, err := c.Check(Input{
		ModelKey:      "d",
		MessageTokens: 1000,
		EnabledModels: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)
	require.Equal(t, Message, res.Category)
	require.Equal(t, "b", res.Suggestion)
	require.InDelta(t, 8, res.SuggestionCost, 1e-9)
}

func TestSuggestionSkipsIneligibleModels(t *testing.T) {
	small := model("small-window", 6.4, 1000)
	research := model("research", 6.4, 128000)
	research.AllowChat = false
	old := model("old", 6.4, 128000)
	old.Deprecated = true

	c := newChecker(t,
		model("a", 4, 128000),
		small,
		research,
		old,
		model("disabled", 6.4, 128000),
		model("d", 12, 128000),
	)

	res, err := c.Check(Input{
		ModelKey:      "d",
		ChatTokens:    500,
		MessageTokens: 1000,
		EnabledModels: []string{"a", "small-window", "research", "old", "d"},
	})
	require.NoError(t, err)
	require.Equal(t, "a", res.Suggestion)
}

func TestSuggestionTieKeepsCatalogueOrder(t *testing.T) {
	c := newChecker(t,
		model("first", 6.4, 128000),
		model("second", 6.4, 128000),
		model("d", 12, 128000),
	)

	res, err := c.Check(Input{ModelKey: "d", MessageTokens: 1000, EnabledModels: []string{"second", "first", "d"}})
	require.NoError(t, err)
	require.Equal(t, "first", res.Suggestion)
}

func TestChatWarning(t *testing.T) {
	c := newChecker(t, model("a", 4, 128000), model("d", 12, 128000))

	// 5000 chat tokens on d cost 75 > 50; the 100-token message costs 1.5.
	in := Input{ModelKey: "d", ChatTokens: 5000, MessageTokens: 100, EnabledModels: []string{"a", "d"}}
	res, err := c.Check(in)
	require.NoError(t, err)
	require.Equal(t, Chat, res.Category)
	require.Equal(t, 50.0, res.Threshold)
	require.InDelta(t, 75, res.Cost, 1e-9)
	require.Equal(t, "a", res.Suggestion)

	accepted := in
	accepted.ChatAccepted = true
	res, err = c.Check(accepted)
	require.NoError(t, err)
	require.Equal(t, None, res.Category)

	accepted = in
	accepted.MessageAccepted = true
	res, err = c.Check(accepted)
	require.NoError(t, err)
	require.Equal(t, None, res.Category)
}

func TestMessageWarningTakesPrecedence(t *testing.T) {
	c := newChecker(t, model("d", 12, 128000))

	res, err := c.Check(Input{ModelKey: "d", ChatTokens: 5000, MessageTokens: 1000, EnabledModels: []string{"d"}})
	require.NoError(t, err)
	require.Equal(t, Message, res.Category)
}

func TestChatAcceptanceDoesNotSilenceMessageWarning(t *testing.T) {
	c := newChecker(t, model("d", 12, 128000))

	res, err := c.Check(Input{ModelKey: "d", MessageTokens: 1000, ChatAccepted: true})
	require.NoError(t, err)
	require.Equal(t, Message, res.Category)
}

func TestUnknownModel(t *testing.T) {
	c := newChecker(t, model("d", 12, 128000))

	_, err := c.Check(Input{ModelKey: "nope"})
	require.ErrorIs(t, err, registry.ErrUnknownModel)
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())
	require.Error(t, Thresholds{Message: 0, Chat: 50}.Validate())
	require.Error(t, Thresholds{Message: 10, Chat: -1}.Validate())
}

func TestEUOnlySuggestionSkipsUSHostedModels(t *testing.T) {
	us := model("us-mid", 6.4, 128000) // 8
	us.Hosting = registry.HostingUS
	c := newChecker(t,
		model("eu-cheap", 4, 128000), // 5
		us,
		model("eu-pricey", 12, 128000), // 15
	)

	in := Input{
		ModelKey:      "eu-pricey",
		MessageTokens: 1000,
		EnabledModels: []string{"eu-cheap", "us-mid", "eu-pricey"},
	}
	res, err := c.Check(in)
	require.NoError(t, err)
	require.Equal(t, "us-mid", res.Suggestion)

	in.EUOnly = true
	res, err = c.Check(in)
	require.NoError(t, err)
	require.Equal(t, Message, res.Category)
	require.Equal(t, "eu-cheap", res.Suggestion)
	require.InDelta(t, 5, res.SuggestionCost, 1e-9)
}
