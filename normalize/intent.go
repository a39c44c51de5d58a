package normalize

import "strings"

// intent prefixes, checked in order against the normalized query. The first
// matching rule wins so paraphrases land on the same label: "explain channels"
// and "what is channels" both map to "define:channels".
var intentRules = []struct {
	label    string
	prefixes []string
}{
	{"define", []string{"what is", "what are", "whats", "explain", "define", "describe", "tell about"}},
	{"howto", []string{"how to", "how do", "how does", "how can", "show how"}},
	{"debug", []string{"fix", "debug", "why does", "why is", "error", "troubleshoot"}},
	{"create", []string{"write", "create", "generate", "implement", "build", "make"}},
	{"compare", []string{"compare", "difference between", "which is better", "vs"}},
	{"optimize", []string{"optimize", "improve", "speed up", "refactor"}},
}

// maxSubjectTokens bounds the subject part of an intent label so near-identical
// long prompts still share a label.
const maxSubjectTokens = 6

// Intent maps a query to a deterministic intent label of the form
// "<verb>:<subject>". Queries with no recognized verb fall under "general".
func Intent(query string) string {
	n := Normalize(query)
	if n == "" {
		return "general:"
	}
	for _, rule := range intentRules {
		for _, p := range rule.prefixes {
			if n == p {
				return rule.label + ":"
			}
			if strings.HasPrefix(n, p+" ") {
				return rule.label + ":" + subject(n[len(p)+1:])
			}
		}
	}
	return "general:" + subject(n)
}

func subject(s string) string {
	fields := strings.Fields(s)
	if len(fields) > maxSubjectTokens {
		fields = fields[:maxSubjectTokens]
	}
	return strings.Join(fields, " ")
}
