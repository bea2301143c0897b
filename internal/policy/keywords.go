package policy

import "strings"

// Keywords is a case-insensitive substring matcher over a fixed term list.
type Keywords struct {
	terms []string
	lower []string
}

// NewKeywords normalizes the term list once; blank and repeated terms are dropped.
func NewKeywords(terms []string) Keywords {
	k := Keywords{}
	seen := map[string]struct{}{}
	for _, term := range terms {
		trimmed := strings.TrimSpace(term)
		low := strings.ToLower(trimmed)
		if low == "" {
			continue
		}
		if _, ok := seen[low]; ok {
			continue
		}
		seen[low] = struct{}{}
		k.terms = append(k.terms, trimmed)
		k.lower = append(k.lower, low)
	}
	return k
}

// Len returns the number of distinct terms.
func (k Keywords) Len() int {
	return len(k.terms)
}

// Matches reports whether any term occurs in the combined text.
func (k Keywords) Matches(title, body string) bool {
	text := strings.ToLower(title + " " + body)
	for _, term := range k.lower {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// Extract returns the terms, in vocabulary spelling, found in text. The result has no duplicates.
func (k Keywords) Extract(text string) []string {
	low := strings.ToLower(text)
	var tags []string
	for i, term := range k.lower {
		if strings.Contains(low, term) {
			tags = append(tags, k.terms[i])
		}
	}
	return tags
}

// ExtractTags matches a vocabulary against text without keeping a matcher around.
func ExtractTags(text string, vocabulary []string) []string {
	return NewKeywords(vocabulary).Extract(text)
}

// DefaultSignificanceKeywords qualify a discussion item as noteworthy.
func DefaultSignificanceKeywords() []string {
	return []string{
		"breakthrough", "release", "released", "launch", "announce", "milestone",
		"state-of-the-art", "sota", "open source", "open-source", "paper", "benchmark",
		"new model", "gpt", "llm", "openai", "anthropic", "claude", "gemini", "deepmind",
	}
}

// DefaultTagVocabulary is the controlled topic vocabulary used for tags.
func DefaultTagVocabulary() []string {
	return []string{
		"Artificial Intelligence", "Machine Learning", "Deep Learning", "Neural Network",
		"AI", "ML", "LLM", "GPT", "Transformer", "Chatbot", "Automation",
		"Computer Vision", "Natural Language", "Algorithm", "Data Science",
		"OpenAI", "ChatGPT", "Claude", "Gemini", "TensorFlow", "PyTorch",
		"Release", "Robotics",
	}
}
