package source

import "strings"

// DefaultAIKeywords is the base set used for filtering AI-related content.
var DefaultAIKeywords = []string{
	"artificial intelligence", "machine learning", "deep learning",
	"neural network", "LLM", "large language model", "GPT",
	"generative AI", "gen AI", "genai", "AGI",
	"AI agent", "agentic", "copilot", "chatbot", "foundation model",
	"RAG", "vector database", "embedding", "inference",
	"openai", "anthropic", "claude", "gemini", "llama", "mistral",
	"text-to-image", "text-to-video", "text-to-speech", "voice AI",
	"image generation", "code generation", "AI coding", "AI assistant",
	"multimodal", "robotics", "humanoid", "AI chip", "AI hardware",
	"AI startup", "AI-powered", "AI native",
	"人工智能", "大模型", "智能体", "生成式", "机器人", "AIGC", "具身智能",
}

// Filter holds keyword lists for AI content matching.
type Filter struct {
	keywords []string
	exclude  []string
}

// NewFilter creates a filter with default AI keywords plus extras.
func NewFilter(extraKeywords, excludeKeywords []string) *Filter {
	keywords := make([]string, 0, len(DefaultAIKeywords)+len(extraKeywords))
	for _, kw := range append(append([]string{}, DefaultAIKeywords...), extraKeywords...) {
		keywords = append(keywords, strings.ToLower(kw))
	}

	exclude := make([]string, len(excludeKeywords))
	for i, kw := range excludeKeywords {
		exclude[i] = strings.ToLower(kw)
	}

	return &Filter{keywords: keywords, exclude: exclude}
}

// MatchesAI returns true if text contains AI-related keywords and none of
// the excluded ones.
func (f *Filter) MatchesAI(text string) bool {
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	for _, kw := range f.keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
