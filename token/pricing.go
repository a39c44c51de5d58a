package token

import "strings"

// Kind distinguishes prompt and completion token pricing.
type Kind string

const (
	Prompt     Kind = "prompt"
	Completion Kind = "completion"
)

// ModelPricing is USD per 1000 tokens for one model. Model supports a
// trailing-* wildcard ("gpt-4*").
type ModelPricing struct {
	Model           string
	PromptPer1K     float64
	CompletionPer1K float64
}

// DefaultPricing covers common models; prices in USD per 1K tokens.
var DefaultPricing = []ModelPricing{
	{Model: "gpt-4o", PromptPer1K: 0.005, CompletionPer1K: 0.015},
	{Model: "gpt-4o-mini", PromptPer1K: 0.00015, CompletionPer1K: 0.0006},
	{Model: "gpt-4-turbo*", PromptPer1K: 0.01, CompletionPer1K: 0.03},
	{Model: "gpt-4*", PromptPer1K: 0.03, CompletionPer1K: 0.06},
	{Model: "gpt-3.5-turbo", PromptPer1K: 0.0005, CompletionPer1K: 0.0015},

	{Model: "claude-3-5-sonnet*", PromptPer1K: 0.003, CompletionPer1K: 0.015},
	{Model: "claude-3-opus*", PromptPer1K: 0.015, CompletionPer1K: 0.075},
	{Model: "claude-3-haiku*", PromptPer1K: 0.00025, CompletionPer1K: 0.00125},

	{Model: "gemini-1.5-pro*", PromptPer1K: 0.00125, CompletionPer1K: 0.005},
	{Model: "gemini-1.5-flash*", PromptPer1K: 0.000075, CompletionPer1K: 0.0003},

	{Model: "deepseek-chat", PromptPer1K: 0.00014, CompletionPer1K: 0.00028},
	{Model: "llama-3*", PromptPer1K: 0.0002, CompletionPer1K: 0.0002},
	{Model: "mistral-large*", PromptPer1K: 0.004, CompletionPer1K: 0.012},
}

// Pricer estimates the dollar cost of token usage.
type Pricer struct {
	exact     map[string]ModelPricing
	wildcards []ModelPricing // longest-prefix-first
}

// NewPricer builds a Pricer; nil pricing uses DefaultPricing.
func NewPricer(pricing []ModelPricing) *Pricer {
	if pricing == nil {
		pricing = DefaultPricing
	}
	p := &Pricer{exact: make(map[string]ModelPricing)}
	for _, mp := range pricing {
		if strings.HasSuffix(mp.Model, "*") {
			p.wildcards = append(p.wildcards, mp)
		} else {
			p.exact[mp.Model] = mp
		}
	}
	// Longer prefixes match first so "gpt-4-turbo*" beats "gpt-4*".
	for i := 1; i < len(p.wildcards); i++ {
		for j := i; j > 0 && len(p.wildcards[j].Model) > len(p.wildcards[j-1].Model); j-- {
			p.wildcards[j], p.wildcards[j-1] = p.wildcards[j-1], p.wildcards[j]
		}
	}
	return p
}

// Cost returns the USD cost of tokens of the given kind for model.
// Unknown models cost 0.
func (p *Pricer) Cost(model string, tokens int, kind Kind) float64 {
	mp, ok := p.lookup(model)
	if !ok || tokens <= 0 {
		return 0
	}
	per1k := mp.PromptPer1K
	if kind == Completion {
		per1k = mp.CompletionPer1K
	}
	return float64(tokens) / 1000 * per1k
}

func (p *Pricer) lookup(model string) (ModelPricing, bool) {
	if mp, ok := p.exact[model]; ok {
		return mp, true
	}
	for _, mp := range p.wildcards {
		if strings.HasPrefix(model, strings.TrimSuffix(mp.Model, "*")) {
			return mp, true
		}
	}
	return ModelPricing{}, false
}
