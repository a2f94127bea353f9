// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/common/camunda"
	"query-orchestrator/internal/common/config"
	"query-orchestrator/internal/common/database"
	"query-orchestrator/internal/common/genai"
	"query-orchestrator/internal/common/logger"
	"query-orchestrator/internal/common/store"
	"query-orchestrator/internal/common/validation"
	"query-orchestrator/internal/models"
	"query-orchestrator/pkg/registry"

	buildchart "query-orchestrator/internal/workers/ai-conversation/build-chart"
	composeresponse "query-orchestrator/internal/workers/ai-conversation/compose-response"
	directreply "query-orchestrator/internal/workers/ai-conversation/direct-reply"
	llmsynthesis "query-orchestrator/internal/workers/ai-conversation/llm-synthesis"
	retrievedocuments "query-orchestrator/internal/workers/ai-conversation/retrieve-documents"
	routequery "query-orchestrator/internal/workers/ai-conversation/route-query"
)

const tenant = "e2e"

// Logger adapters to bridge logger.Logger to worker-specific Logger interfaces
type llmSynthesisLoggerAdapter struct {
	logger.Logger
}

func (a *llmSynthesisLoggerAdapter) With(fields map[string]interface{}) llmsynthesis.Logger {
	return &llmSynthesisLoggerAdapter{a.Logger.With(fields)}
}

type retrieveDocumentsLoggerAdapter struct {
	logger.Logger
}

func (a *retrieveDocumentsLoggerAdapter) With(fields map[string]interface{}) retrievedocuments.Logger {
	return &retrieveDocumentsLoggerAdapter{a.Logger.With(fields)}
}

type buildChartLoggerAdapter struct {
	logger.Logger
}

func (a *buildChartLoggerAdapter) With(fields map[string]interface{}) buildchart.Logger {
	return &buildChartLoggerAdapter{a.Logger.With(fields)}
}

type directReplyLoggerAdapter struct {
	logger.Logger
}

func (a *directReplyLoggerAdapter) With(fields map[string]interface{}) directreply.Logger {
	return &directReplyLoggerAdapter{a.Logger.With(fields)}
}

type composeResponseLoggerAdapter struct {
	logger.Logger
}

func (a *composeResponseLoggerAdapter) With(fields map[string]interface{}) composeresponse.Logger {
	return &composeResponseLoggerAdapter{a.Logger.With(fields)}
}

func TestMain(m *testing.M) {
	if os.Getenv("E2E_TESTS") != "1" {
		fmt.Println("skipping e2e tests: set E2E_TESTS=1 with Elasticsearch on localhost:9200")
		os.Exit(0)
	}
	os.Exit(m.Run())
}

var seedDocuments = []models.Document{
	{ID: "refund-1", Tenant: tenant, Question: "What is the refund policy?", Answer: "Refunds are issued within 30 days of purchase."},
	{ID: "shipping-1", Tenant: tenant, Question: "How long does shipping take?", Answer: "Standard shipping takes 5 business days."},
	{ID: "other-1", Tenant: "someone-else", Question: "What is the refund policy?", Answer: "No refunds."},
}

// ==========================
// Fixtures
// ==========================

func loadConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	cfg.Database.Elasticsearch.Index = "e2e-documents-" + uuid.NewString()[:8]
	cfg.APIs.GenAI.Provider = config.ProviderLocal
	return cfg
}

func seedIndex(t *testing.T, es *database.ElasticsearchClient) {
	t.Helper()
	ctx := context.Background()

	for _, doc := range seedDocuments {
		body, err := json.Marshal(doc)
		require.NoError(t, err)

		res, err := esapi.IndexRequest{
			Index:      es.Index,
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			Refresh:    "true",
		}.Do(ctx, es.Client)
		require.NoError(t, err)
		require.False(t, res.IsError(), res.String())
		res.Body.Close()
	}

	t.Cleanup(func() {
		res, err := esapi.IndicesDeleteRequest{Index: []string{es.Index}}.Do(context.Background(), es.Client)
		if err == nil {
			res.Body.Close()
		}
	})
}

type stack struct {
	store    store.Store
	composer *composeresponse.Composer
	handler  *composeresponse.Handler
}

func buildStack(t *testing.T, cfg *config.Config) stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
	require.NoError(t, err)
	require.NoError(t, es.Ping(context.Background()), "elasticsearch ping failed")
	seedIndex(t, es)

	backend := store.NewElasticsearchStore(es.Client, es.Index)

	model, err := genai.NewFromConfig(cfg.APIs.GenAI, log)
	require.NoError(t, err)

	synth := llmsynthesis.NewHandler(llmsynthesis.LoadConfig(), model, &llmSynthesisLoggerAdapter{log})
	retrieve := retrievedocuments.NewHandler(retrievedocuments.LoadConfig(), backend, synth, &retrieveDocumentsLoggerAdapter{log})
	chart := buildchart.NewHandler(buildchart.LoadConfig(), buildchart.NewPaletteBuilder(), &buildChartLoggerAdapter{log})
	direct := directreply.NewHandler(directreply.LoadConfig(), &directReplyLoggerAdapter{log})

	composerCfg := composeresponse.LoadConfig()
	composer := composeresponse.NewComposer(composerCfg, routequery.Decide, retrieve, chart, direct, &composeResponseLoggerAdapter{log})

	reg, err := registry.Default()
	require.NoError(t, err)
	validator, err := validation.NewValidator(reg)
	require.NoError(t, err)

	return stack{
		store:    backend,
		composer: composer,
		handler:  composeresponse.NewHandler(composerCfg, composer, validator, &composeResponseLoggerAdapter{log}),
	}
}

// ==========================
// Orchestration against Elasticsearch
// ==========================

func TestOrchestrateE2E(t *testing.T) {
	cfg := loadConfig(t)
	s := buildStack(t, cfg)
	ctx := context.Background()

	t.Run("retrieval is tenant scoped", func(t *testing.T) {
		resp := s.composer.Orchestrate(ctx, "what is the refund policy?", tenant)

		assert.Equal(t, []models.Tool{models.ToolRetrieval}, resp.ToolsUsed)
		assert.Contains(t, resp.FileIDs, "refund-1")
		assert.NotContains(t, resp.FileIDs, "other-1")
		assert.Contains(t, resp.Answer, "30 days")
	})

	t.Run("visualization", func(t *testing.T) {
		resp := s.composer.Orchestrate(ctx, "draw a pie chart of devices", tenant)

		assert.Equal(t, []models.Tool{models.ToolVisualization}, resp.ToolsUsed)
		require.NotNil(t, resp.ChartConfig)
		assert.Equal(t, models.ChartTypePie, resp.ChartConfig.Type)
		assert.Empty(t, resp.FileIDs)
	})

	t.Run("combined", func(t *testing.T) {
		resp := s.composer.Orchestrate(ctx, "what is the shipping time? show me a chart", tenant)

		assert.Equal(t, []models.Tool{models.ToolRetrieval, models.ToolVisualization}, resp.ToolsUsed)
		assert.NotNil(t, resp.ChartConfig)
		assert.Contains(t, resp.FileIDs, "shipping-1")
	})

	t.Run("direct", func(t *testing.T) {
		resp := s.composer.Orchestrate(ctx, "hello", tenant)

		assert.Equal(t, []models.Tool{models.ToolDirect}, resp.ToolsUsed)
		assert.Equal(t, directreply.GreetingReply, resp.Answer)
	})

	t.Run("fetch by ids", func(t *testing.T) {
		docs, err := s.store.FetchByIDs(ctx, []string{"shipping-1", "refund-1", "other-1"}, tenant)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "shipping-1", docs[0].ID)
		assert.Equal(t, "refund-1", docs[1].ID)
	})

	t.Run("job variables", func(t *testing.T) {
		out, err := s.handler.Execute(ctx, []byte(`{"query":"what is the refund policy?","tenant":"e2e"}`))
		require.NoError(t, err)
		assert.True(t, out.Used(models.ToolRetrieval))

		_, err = s.handler.Execute(ctx, []byte(`{"tenant":"e2e"}`))
		assert.Error(t, err)
	})
}

// ==========================
// Zeebe process
// ==========================

func TestProcessE2E(t *testing.T) {
	address := os.Getenv("ZEEBE_ADDRESS")
	if address == "" {
		t.Skip("ZEEBE_ADDRESS not set")
	}

	cfg := loadConfig(t)
	s := buildStack(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	zc, err := camunda.NewClient(address, time.Minute)
	require.NoError(t, err)
	defer zc.Close()

	require.NoError(t, zc.DeployProcess(ctx, "../../configs/bpmn/query-orchestration.bpmn"))

	workerCfg := &config.Config{Workers: map[string]config.WorkerConfig{
		composeresponse.TaskType: {Enabled: true, MaxJobsActive: 2, Timeout: 60000},
	}}
	workers := camunda.NewWorkerManager(zc.GetClient(), workerCfg, nil, logger.NewNoOpLogger())
	workers.Start(composeresponse.TaskType, s.handler.Handle)
	defer workers.Stop()

	variables, err := zc.RunProcess(ctx, "query-orchestration", map[string]string{"query": "hello", "tenant": tenant})
	require.NoError(t, err)

	var resp models.Response
	require.NoError(t, json.Unmarshal([]byte(variables), &resp))
	assert.Equal(t, directreply.GreetingReply, resp.Answer)
	assert.Equal(t, []models.Tool{models.ToolDirect}, resp.ToolsUsed)
}
