package routequery

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"query-orchestrator/internal/models"
)

// ==========================
// Decision Table
// ==========================

func TestDecide(t *testing.T) {
	tests := []struct {
		name          string
		query         string
		retrieval     bool
		visualization bool
		chartType     models.ChartType
	}{
		{name: "retrieval question", query: "What is machine learning?", retrieval: true, chartType: models.ChartTypeBar},
		{name: "bar chart request", query: "Create a bar chart of sales data", visualization: true, chartType: models.ChartTypeBar},
		{name: "greeting", query: "Hello, how are you?", chartType: models.ChartTypeBar},
		{name: "pie beats graph", query: "draw a pie graph", visualization: true, chartType: models.ChartTypePie},
		{name: "pie beats line", query: "plot a line and a pie", visualization: true, chartType: models.ChartTypePie},
		{name: "line beats doughnut", query: "doughnut or line plot", visualization: true, chartType: models.ChartTypeLine},
		{name: "doughnut", query: "a doughnut chart please", visualization: true, chartType: models.ChartTypeDoughnut},
		{name: "combined", query: "Show me a chart of what deep learning models exist", retrieval: true, visualization: true, chartType: models.ChartTypeBar},
		{name: "upper case", query: "SEARCH FOR NEURAL NETWORK PAPERS", retrieval: true, chartType: models.ChartTypeBar},
		{name: "substring ai", query: "explain transformers", retrieval: true, chartType: models.ChartTypeBar},
		{name: "no keywords", query: "tell me a joke", chartType: models.ChartTypeBar},
		{name: "empty", query: "", chartType: models.ChartTypeBar},
		{name: "greeting with topic keyword", query: "hi, can you find deep learning docs?", retrieval: true, chartType: models.ChartTypeBar},
		{name: "greeting with chart", query: "hey, plot sales", visualization: true, chartType: models.ChartTypeBar},
		{name: "greeting prefix inside word", query: "history: how did it start", retrieval: true, chartType: models.ChartTypeBar},
		{name: "good morning", query: "Good morning! how is it going", chartType: models.ChartTypeBar},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.query)
			assert.Equal(t, tt.retrieval, d.UseRetrieval, d.Reasoning)
			assert.Equal(t, tt.visualization, d.UseVisualization, d.Reasoning)
			assert.Equal(t, tt.chartType, d.ChartType)
			assert.NotEmpty(t, d.Reasoning)
		})
	}
}

func TestDecide_GreetingReasoning(t *testing.T) {
	d := Decide("Hello, how are you?")
	assert.Contains(t, d.Reasoning, "greeting")
	assert.Equal(t, "direct", d.Route())
}

func TestDecide_GreetingShadowsInterrogativeQuestion(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		route     string
		reasoning string
	}{
		{name: "greeting then what question", query: "Hello, what is the refund policy?", route: "direct", reasoning: "greeting"},
		{name: "same question without greeting", query: "what is the refund policy?", route: "retrieval", reasoning: "retrieval keywords: what"},
		{name: "greeting then topic keyword", query: "Hello, what is machine learning?", route: "retrieval", reasoning: "machine learning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.query)
			assert.Equal(t, tt.route, d.Route(), d.Reasoning)
			assert.Contains(t, d.Reasoning, tt.reasoning)
		})
	}
}

func TestDecide_Routes(t *testing.T) {
	assert.Equal(t, "retrieval", Decide("What is machine learning?").Route())
	assert.Equal(t, "visualization", Decide("Create a bar chart of sales data").Route())
	assert.Equal(t, "combined", Decide("why is the line chart flat").Route())
	assert.Equal(t, "direct", Decide("weather today?").Route())
}

// ==========================
// Properties
// ==========================

func TestDecide_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("total and well-formed", prop.ForAll(
		func(q string) bool {
			d := Decide(q)
			return d.ChartType.Valid() && d.Reasoning != ""
		},
		gen.AnyString(),
	))

	properties.Property("deterministic", prop.ForAll(
		func(q string) bool {
			return Decide(q) == Decide(q)
		},
		gen.AnyString(),
	))

	properties.Property("case insensitive", prop.ForAll(
		func(q string) bool {
			return Decide(strings.ToUpper(q)) == Decide(strings.ToLower(q))
		},
		gen.AlphaString(),
	))

	properties.Property("no keywords routes to neither", prop.ForAll(
		func(q string) bool {
			d := Decide(q)
			return !d.UseRetrieval && !d.UseVisualization
		},
		gen.AlphaString().SuchThat(func(q string) bool { return !containsKeyword(q) }),
	))

	properties.Property("pie wins whenever a chart is requested", prop.ForAll(
		func(prefix, suffix string) bool {
			d := Decide(prefix + " pie graph " + suffix)
			return d.UseVisualization && d.ChartType == models.ChartTypePie
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func containsKeyword(q string) bool {
	text := strings.ToLower(q)
	for _, kw := range append(append([]string{}, RetrievalKeywords...), VisualizationKeywords...) {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func BenchmarkDecide(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = Decide("Show me a pie chart of what deep learning models exist")
	}
}
