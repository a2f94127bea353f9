// internal/workers/ai-conversation/route-query/models.go
package routequery

import "query-orchestrator/internal/models"

type Input struct {
	Query string `json:"query"`
}

type Output struct {
	models.RoutingDecision
	Route string `json:"route"`
}
