// internal/models/query_types.go
package models

import "strings"

const DefaultTenant = "default"

// Query is the immutable input to the orchestrator.
type Query struct {
	Text   string `json:"query"`
	Tenant string `json:"tenant"`
}

// ResolveTenant returns tenant, or fallback when tenant is blank. A blank
// fallback resolves to DefaultTenant.
func ResolveTenant(tenant, fallback string) string {
	if strings.TrimSpace(tenant) != "" {
		return tenant
	}
	if strings.TrimSpace(fallback) != "" {
		return fallback
	}
	return DefaultTenant
}

type ChartType string

const (
	ChartTypeBar      ChartType = "bar"
	ChartTypeLine     ChartType = "line"
	ChartTypePie      ChartType = "pie"
	ChartTypeDoughnut ChartType = "doughnut"
)

var ChartTypes = []ChartType{ChartTypeBar, ChartTypeLine, ChartTypePie, ChartTypeDoughnut}

func (c ChartType) Valid() bool {
	for _, t := range ChartTypes {
		if c == t {
			return true
		}
	}
	return false
}

// RoutingDecision says which capabilities a query needs.
type RoutingDecision struct {
	UseRetrieval     bool      `json:"useRetrieval"`
	UseVisualization bool      `json:"useVisualization"`
	ChartType        ChartType `json:"chartType"`
	Reasoning        string    `json:"reasoning"`
}

func (d RoutingDecision) Route() string {
	switch {
	case d.UseRetrieval && d.UseVisualization:
		return "combined"
	case d.UseRetrieval:
		return "retrieval"
	case d.UseVisualization:
		return "visualization"
	default:
		return "direct"
	}
}
