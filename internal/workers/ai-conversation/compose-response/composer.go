package composeresponse

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/metrics"
	"query-orchestrator/internal/models"
	retrievedocuments "query-orchestrator/internal/workers/ai-conversation/retrieve-documents"
)

const (
	ErrorAnswer = "I'm sorry, something went wrong while processing your request. Please try again."

	ReasonTimeout  = "timeout"
	ReasonCanceled = "canceled"
)

type Retriever interface {
	Retrieve(ctx context.Context, text, tenant string) models.Result[models.RetrievalOutput]
}

type Visualizer interface {
	Visualize(ctx context.Context, chartType models.ChartType, title string) models.Result[models.VisualizationOutput]
}

type Responder interface {
	Reply(query string) models.Result[models.DirectOutput]
}

type RouterFunc func(query string) models.RoutingDecision

// FaultNotifier is told about orchestrations that ended in the error response.
type FaultNotifier interface {
	Notify(ctx context.Context, subject, message string) error
}

type Recorder interface {
	RecordQuery(ctx context.Context, route string, tools []string)
}

type Composer struct {
	config     *Config
	route      RouterFunc
	retriever  Retriever
	visualizer Visualizer
	direct     Responder
	notifier   FaultNotifier
	recorder   Recorder
	tracer     trace.Tracer
	logger     Logger
}

type Option func(*Composer)

func WithNotifier(n FaultNotifier) Option {
	return func(c *Composer) { c.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(c *Composer) { c.recorder = r }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Composer) { c.tracer = t }
}

func NewComposer(config *Config, route RouterFunc, retriever Retriever, visualizer Visualizer, direct Responder, log Logger, opts ...Option) *Composer {
	c := &Composer{
		config:     config,
		route:      route,
		retriever:  retriever,
		visualizer: visualizer,
		direct:     direct,
		tracer:     otel.Tracer("query-orchestrator/compose-response"),
		logger:     log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Orchestrate routes the query and composes the response. It returns a
// response for every input.
func (c *Composer) Orchestrate(ctx context.Context, text, tenant string) (resp *models.Response) {
	started := time.Now()
	route := "error"
	defer func() {
		if r := recover(); r != nil {
			resp = c.fault(ctx, text, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
		metrics.ObserveOrchestration(route, started)
	}()

	query := models.Query{Text: text, Tenant: models.ResolveTenant(tenant, c.config.DefaultTenant)}

	decision := c.route(text)
	route = decision.Route()

	c.logger.Info("query routed", map[string]interface{}{
		"tenant":    query.Tenant,
		"route":     route,
		"reasoning": decision.Reasoning,
	})

	resp = c.Compose(ctx, query, decision)
	if resp.Used(models.ToolError) {
		route = "error"
	}
	if c.recorder != nil {
		c.recorder.RecordQuery(ctx, route, toolNames(resp.ToolsUsed))
	}
	return resp
}

// Compose runs the capabilities selected by decision and merges their
// results into one response.
func (c *Composer) Compose(ctx context.Context, query models.Query, decision models.RoutingDecision) (resp *models.Response) {
	ctx, span := c.tracer.Start(ctx, "Compose")
	span.SetAttributes(
		attribute.String("route", decision.Route()),
		attribute.String("tenant", query.Tenant),
	)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			resp = c.fault(ctx, query.Text, fmt.Sprintf("panic: %v\n%s", r, debug.Stack()))
		}
	}()

	if !decision.UseRetrieval && !decision.UseVisualization {
		reply := c.direct.Reply(query.Text)
		metrics.ObserveCapability(string(models.ToolDirect), string(reply.Outcome))
		resp = models.NewResponse()
		resp.Answer = reply.Value.Answer
		resp.ToolsUsed = append(resp.ToolsUsed, models.ToolDirect)
		return resp
	}

	partials := c.dispatch(ctx, c.tasks(query, decision))
	return c.merge(ctx, query, partials)
}

type task struct {
	tool     models.Tool
	run      func(ctx context.Context) partial
	fallback func(reason string) partial
}

// tasks lists the selected capabilities in invocation order.
func (c *Composer) tasks(query models.Query, decision models.RoutingDecision) []task {
	var tasks []task
	if decision.UseRetrieval {
		tasks = append(tasks, task{
			tool: models.ToolRetrieval,
			run: func(ctx context.Context) partial {
				return retrievalPartial{c.retriever.Retrieve(ctx, query.Text, query.Tenant)}
			},
			fallback: func(reason string) partial {
				return retrievalPartial{models.Fallback(retrievedocuments.ErrorOutput(), reason)}
			},
		})
	}
	if decision.UseVisualization {
		chartType := decision.ChartType
		tasks = append(tasks, task{
			tool: models.ToolVisualization,
			run: func(ctx context.Context) partial {
				return visualizationPartial{c.visualizer.Visualize(ctx, chartType, ""), chartType}
			},
			fallback: func(reason string) partial {
				return visualizationPartial{
					models.Fallback(models.VisualizationOutput{Success: false, Error: "visualization " + reason}, reason),
					chartType,
				}
			},
		})
	}
	return tasks
}

// dispatch starts every task at once and waits for all of them. A task that
// has not settled by the capability deadline is replaced by its fallback.
func (c *Composer) dispatch(ctx context.Context, tasks []task) []partial {
	capCtx, cancel := ctx, context.CancelFunc(func() {})
	var deadline <-chan time.Time
	if c.config.CapabilityTimeout > 0 {
		capCtx, cancel = context.WithTimeout(ctx, c.config.CapabilityTimeout)
		timer := time.NewTimer(c.config.CapabilityTimeout)
		defer timer.Stop()
		deadline = timer.C
	}
	defer cancel()

	settled := make([]chan partial, len(tasks))
	for i, t := range tasks {
		settled[i] = make(chan partial, 1)
		go c.run(capCtx, t, settled[i])
	}

	partials := make([]partial, len(tasks))
	expired := ""
	for i, t := range tasks {
		if expired != "" {
			select {
			case p := <-settled[i]:
				partials[i] = p
			default:
				partials[i] = c.timedOut(t, expired)
			}
			continue
		}

		select {
		case p := <-settled[i]:
			partials[i] = p
		case <-deadline:
			expired = ReasonTimeout
			partials[i] = c.timedOut(t, expired)
		case <-ctx.Done():
			expired = ReasonCanceled
			partials[i] = c.timedOut(t, expired)
		}
	}
	return partials
}

func (c *Composer) run(ctx context.Context, t task, out chan<- partial) {
	ctx, span := c.tracer.Start(ctx, string(t.tool))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			span.SetStatus(codes.Error, "panic")
			out <- faultPartial{from: t.tool, recovered: fmt.Sprintf("%v\n%s", r, debug.Stack())}
		}
	}()

	out <- t.run(ctx)
}

func (c *Composer) timedOut(t task, reason string) partial {
	stdErr := commonerrors.NewCapabilityTimeoutError(string(t.tool))
	c.logger.Warn("capability did not settle in time", map[string]interface{}{
		"tool":      t.tool,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Message,
		"reason":    reason,
		"timeout":   c.config.CapabilityTimeout.String(),
	})
	return t.fallback(reason)
}

func (c *Composer) merge(ctx context.Context, query models.Query, partials []partial) *models.Response {
	resp := models.NewResponse()
	var retrievalAnswer string
	var chartType models.ChartType
	var chartFailed bool

	for _, p := range partials {
		switch p := p.(type) {
		case retrievalPartial:
			retrievalAnswer = p.Value.Answer
			if p.Value.FileIDs != nil {
				resp.FileIDs = p.Value.FileIDs
			}
			if p.Value.References != nil {
				resp.References = p.Value.References
			}
		case visualizationPartial:
			chartType = p.chartType
			if p.Value.Success && p.Value.ChartConfig != nil {
				resp.ChartConfig = p.Value.ChartConfig
			} else {
				chartFailed = true
			}
		case faultPartial:
			return c.fault(ctx, query.Text, fmt.Sprintf("capability %s panicked: %v", p.from, p.recovered))
		default:
			return c.fault(ctx, query.Text, fmt.Sprintf("unexpected partial %T", p))
		}

		if p.outcome() == models.OutcomeFallback {
			c.logger.Warn("capability degraded", map[string]interface{}{
				"tool":   p.tool(),
				"tenant": query.Tenant,
			})
		}
		metrics.ObserveCapability(string(p.tool()), string(p.outcome()))
		resp.ToolsUsed = append(resp.ToolsUsed, p.tool())
	}

	switch {
	case len(resp.ToolsUsed) > 1:
		resp.Answer = narrate(query.Text, resp.ToolsUsed, retrievalAnswer)
	case resp.Used(models.ToolRetrieval):
		resp.Answer = retrievalAnswer
	case chartFailed:
		resp.Answer = fmt.Sprintf("I wasn't able to create the %s chart you asked for. Please try again.", chartType)
	default:
		resp.Answer = fmt.Sprintf("I've created a %s chart based on your request.", chartType)
	}

	c.logger.Info("response composed", map[string]interface{}{
		"tenant":    query.Tenant,
		"toolsUsed": toolNames(resp.ToolsUsed),
		"fileCount": len(resp.FileIDs),
		"hasChart":  resp.ChartConfig != nil,
	})
	return resp
}

func narrate(text string, tools []models.Tool, retrievalAnswer string) string {
	names := toolNames(tools)
	joined := names[len(names)-1]
	if len(names) > 1 {
		joined = strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
	narration := fmt.Sprintf("I processed your query \"%s\" using %s.", text, joined)
	if retrievalAnswer == "" {
		return narration
	}
	return narration + "\n\n" + retrievalAnswer
}

func (c *Composer) fault(ctx context.Context, text, details string) *models.Response {
	stdErr := commonerrors.NewOrchestrationFaultError(details)
	metrics.QueryFaults.Inc()
	c.logger.Error("orchestration fault", map[string]interface{}{
		"errorCode":   string(stdErr.Code),
		"error":       details,
		"queryLength": len(text),
	})

	if c.notifier != nil {
		body, err := json.Marshal(stdErr)
		if err != nil {
			body = []byte(stdErr.Error())
		}
		go func(n FaultNotifier) {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := n.Notify(notifyCtx, "query-orchestrator: "+stdErr.Message, string(body)); err != nil {
				c.logger.Warn("fault notification failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}(c.notifier)
	}

	resp := models.NewResponse()
	resp.Answer = ErrorAnswer
	resp.ToolsUsed = append(resp.ToolsUsed, models.ToolError)
	return resp
}

func toolNames(tools []models.Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = string(t)
	}
	return names
}
