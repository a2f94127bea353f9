// internal/workers/ai-conversation/build-chart/models.go
package buildchart

import "query-orchestrator/internal/models"

type Input struct {
	ChartType models.ChartType `json:"chartType"`
	Title     string           `json:"title"`
}

type Output = models.VisualizationOutput
