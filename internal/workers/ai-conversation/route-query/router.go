package routequery

import (
	"fmt"
	"strings"
	"unicode"

	"query-orchestrator/internal/models"
)

// Keyword lists are matched as plain substrings of the lower-cased query.
var (
	RetrievalKeywords = []string{
		"what", "how", "why", "search", "find",
		"machine learning", "neural network", "deep learning", "ai",
	}

	VisualizationKeywords = []string{
		"chart", "graph", "visualize", "plot", "bar", "pie", "line", "doughnut",
	}

	// first match wins; bar is the default
	chartPriority = []models.ChartType{
		models.ChartTypePie,
		models.ChartTypeLine,
		models.ChartTypeDoughnut,
	}

	greetings = []string{
		"good morning", "good afternoon", "good evening",
		"hello", "hi", "hey", "greetings",
	}

	interrogatives = map[string]bool{"what": true, "how": true, "why": true}
)

// Decide returns the routing decision for a query. It never fails.
func Decide(query string) models.RoutingDecision {
	text := strings.ToLower(query)

	retrieval := matchKeywords(text, RetrievalKeywords)
	visualization := matchKeywords(text, VisualizationKeywords)

	decision := models.RoutingDecision{
		UseRetrieval:     len(retrieval) > 0,
		UseVisualization: len(visualization) > 0,
		ChartType:        models.ChartTypeBar,
	}

	var reasons []string
	if greeting, ok := leadingGreeting(text); ok && len(visualization) == 0 && onlyInterrogatives(retrieval) {
		decision.UseRetrieval = false
		reasons = append(reasons, fmt.Sprintf("conversational greeting %q", greeting))
	}

	if decision.UseRetrieval {
		reasons = append(reasons, "retrieval keywords: "+strings.Join(retrieval, ", "))
	}
	if decision.UseVisualization {
		decision.ChartType = chartType(text)
		reasons = append(reasons, fmt.Sprintf("visualization keywords: %s (chart type %s)",
			strings.Join(visualization, ", "), decision.ChartType))
	}
	if !decision.UseRetrieval && !decision.UseVisualization {
		reasons = append(reasons, "no capability keywords, direct reply")
	}

	decision.Reasoning = strings.Join(reasons, "; ")
	return decision
}

func matchKeywords(text string, keywords []string) []string {
	var matched []string
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			matched = append(matched, kw)
		}
	}
	return matched
}

func chartType(text string) models.ChartType {
	for _, ct := range chartPriority {
		if strings.Contains(text, string(ct)) {
			return ct
		}
	}
	return models.ChartTypeBar
}

func leadingGreeting(text string) (string, bool) {
	text = strings.TrimSpace(text)
	for _, g := range greetings {
		if !strings.HasPrefix(text, g) {
			continue
		}
		rest := []rune(text[len(g):])
		if len(rest) == 0 || !unicode.IsLetter(rest[0]) {
			return g, true
		}
	}
	return "", false
}

func onlyInterrogatives(matched []string) bool {
	for _, kw := range matched {
		if !interrogatives[kw] {
			return false
		}
	}
	return true
}
