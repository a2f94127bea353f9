// internal/workers/ai-conversation/compose-response/models.go
package composeresponse

import "query-orchestrator/internal/models"

type Input struct {
	Query  string `json:"query"`
	Tenant string `json:"tenant"`
}

type Output = models.Response

// partial is the settled result of one capability. The merge switches on
// the concrete type, never on the position a result arrived in.
type partial interface {
	tool() models.Tool
	outcome() models.Outcome
}

type retrievalPartial struct {
	models.Result[models.RetrievalOutput]
}

func (retrievalPartial) tool() models.Tool {
	return models.ToolRetrieval
}

func (p retrievalPartial) outcome() models.Outcome {
	return p.Outcome
}

type visualizationPartial struct {
	models.Result[models.VisualizationOutput]
	chartType models.ChartType
}

func (visualizationPartial) tool() models.Tool {
	return models.ToolVisualization
}

func (p visualizationPartial) outcome() models.Outcome {
	return p.Outcome
}

// faultPartial carries a panic recovered inside a capability goroutine.
type faultPartial struct {
	from      models.Tool
	recovered interface{}
}

func (p faultPartial) tool() models.Tool {
	return p.from
}

func (faultPartial) outcome() models.Outcome {
	return models.OutcomeFallback
}
