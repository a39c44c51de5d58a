// Package token counts tokens and estimates costs for LLM prompts and
// responses. The engine consumes it through the Counter and Pricer ports so
// deployments can swap in provider-exact implementations.
package token

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Counter counts tokens for a given model.
type Counter interface {
	PromptTokens(text, model string) int
	CompletionTokens(text, model string) int
}

// Tiktoken counts with tiktoken encodings, falling back to a conservative
// len/4 estimate when no encoding is available for the model.
type Tiktoken struct {
	encodings sync.Map // model -> *tiktoken.Tiktoken (nil sentinel cached too)
}

var _ Counter = (*Tiktoken)(nil)

func NewTiktoken() *Tiktoken { return &Tiktoken{} }

func (t *Tiktoken) PromptTokens(text, model string) int     { return t.count(text, model) }
func (t *Tiktoken) CompletionTokens(text, model string) int { return t.count(text, model) }

func (t *Tiktoken) count(text, model string) int {
	if text == "" {
		return 0
	}
	enc := t.encoding(model)
	if enc == nil {
		return fallbackCount(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (t *Tiktoken) encoding(model string) *tiktoken.Tiktoken {
	if v, ok := t.encodings.Load(model); ok {
		enc, _ := v.(*tiktoken.Tiktoken)
		return enc
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Unknown model: try the universal base encoding once.
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			enc = nil
		}
	}
	t.encodings.Store(model, enc)
	return enc
}

// Heuristic is a dependency-free estimator: word count scaled by the rough
// tokens-per-word ratio of common BPE vocabularies. Used as the default when
// no exact counter is wired.
type Heuristic struct{}

var _ Counter = Heuristic{}

func (Heuristic) PromptTokens(text, _ string) int     { return fallbackCount(text) }
func (Heuristic) CompletionTokens(text, _ string) int { return fallbackCount(text) }

func fallbackCount(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	byLen := len(text) / 4
	if words*4/3 > byLen {
		return words * 4 / 3
	}
	return byLen
}
