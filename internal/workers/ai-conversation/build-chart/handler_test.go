// internal/workers/ai-conversation/build-chart/handler_test.go
package buildchart

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/common/camunda/camundatest"
	"query-orchestrator/internal/models"
)

type TestLogger struct {
	t *testing.T
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v", msg, fields)
}

func (l *TestLogger) Warn(msg string, fields map[string]interface{}) {
	l.t.Logf("WARN: %s %v", msg, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v", msg, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger { return l }

type recordingLogger struct {
	*TestLogger
	errors []map[string]interface{}
}

func (l *recordingLogger) Error(msg string, fields map[string]interface{}) {
	l.errors = append(l.errors, fields)
	l.TestLogger.Error(msg, fields)
}

func (l *recordingLogger) With(fields map[string]interface{}) Logger { return l }

type failingBuilder struct{}

func (failingBuilder) Build(models.ChartType, models.ChartData, string) (*models.ChartConfig, error) {
	return nil, errors.New("renderer offline")
}

// ==========================
// PaletteBuilder
// ==========================

func TestPaletteBuilder_Build(t *testing.T) {
	data := models.ChartData{Labels: []string{"a", "b"}, Values: []float64{1, 2}}

	for _, ct := range models.ChartTypes {
		t.Run(string(ct), func(t *testing.T) {
			cfg, err := NewPaletteBuilder().Build(ct, data, "Title")
			require.NoError(t, err)
			assert.Equal(t, ct, cfg.Type)
			assert.Equal(t, data.Labels, cfg.Labels)
			assert.Equal(t, data.Values, cfg.Values)
			assert.Equal(t, "Title", cfg.Title)
			assert.Equal(t, palettes[ct], cfg.ColorPalette)
		})
	}
}

func TestPaletteBuilder_PaletteDependsOnlyOnType(t *testing.T) {
	b := NewPaletteBuilder()
	small, err := b.Build(models.ChartTypePie, models.ChartData{Labels: []string{"x"}, Values: []float64{1}}, "")
	require.NoError(t, err)
	large, err := b.Build(models.ChartTypePie, models.ChartData{Labels: []string{"x", "y"}, Values: []float64{1e9, -3}}, "other")
	require.NoError(t, err)

	assert.Equal(t, small.ColorPalette, large.ColorPalette)
}

func TestPaletteBuilder_Errors(t *testing.T) {
	b := NewPaletteBuilder()

	_, err := b.Build("radar", models.ChartData{Labels: []string{"a"}, Values: []float64{1}}, "")
	assert.ErrorIs(t, err, ErrUnknownChartType)

	_, err = b.Build(models.ChartTypeBar, models.ChartData{Labels: []string{"a", "b"}, Values: []float64{1}}, "")
	assert.ErrorIs(t, err, ErrInvalidChartData)

	_, err = b.Build(models.ChartTypeBar, models.ChartData{}, "")
	assert.ErrorIs(t, err, ErrInvalidChartData)
}

func TestSampleData_ReturnsCopies(t *testing.T) {
	data, _, ok := SampleData(models.ChartTypeBar)
	require.True(t, ok)
	data.Values[0] = -1

	again, _, _ := SampleData(models.ChartTypeBar)
	assert.NotEqual(t, -1.0, again.Values[0])
}

// ==========================
// Visualize
// ==========================

func TestHandler_Visualize(t *testing.T) {
	handler := NewHandler(LoadConfig(), NewPaletteBuilder(), &TestLogger{t})

	tests := []struct {
		name      string
		chartType models.ChartType
		title     string
		wantTitle string
	}{
		{name: "bar default title", chartType: models.ChartTypeBar, wantTitle: "Quarterly Sales"},
		{name: "line custom title", chartType: models.ChartTypeLine, title: "Users", wantTitle: "Users"},
		{name: "pie", chartType: models.ChartTypePie, wantTitle: "Traffic by Device"},
		{name: "doughnut", chartType: models.ChartTypeDoughnut, wantTitle: "Acquisition Channels"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := handler.Visualize(context.Background(), tt.chartType, tt.title)
			assert.False(t, result.Degraded())
			require.True(t, result.Value.Success)
			require.NotNil(t, result.Value.ChartConfig)
			assert.Equal(t, tt.chartType, result.Value.ChartConfig.Type)
			assert.Equal(t, tt.wantTitle, result.Value.ChartConfig.Title)
			assert.Len(t, result.Value.ChartConfig.Values, len(result.Value.ChartConfig.Labels))
		})
	}
}

func TestHandler_Visualize_UnknownType(t *testing.T) {
	handler := NewHandler(LoadConfig(), NewPaletteBuilder(), &TestLogger{t})

	result := handler.Visualize(context.Background(), "scatter", "")

	assert.True(t, result.Degraded())
	assert.False(t, result.Value.Success)
	assert.Nil(t, result.Value.ChartConfig)
	assert.Contains(t, result.Value.Error, "UNKNOWN_CHART_TYPE")
}

func TestHandler_Visualize_BuilderFailure(t *testing.T) {
	handler := NewHandler(LoadConfig(), failingBuilder{}, &TestLogger{t})

	result := handler.Visualize(context.Background(), models.ChartTypeBar, "")

	assert.True(t, result.Degraded())
	assert.False(t, result.Value.Success)
	assert.Equal(t, "renderer offline", result.Value.Error)
}

func TestHandler_Execute(t *testing.T) {
	handler := NewHandler(LoadConfig(), NewPaletteBuilder(), &TestLogger{t})

	out, err := handler.Execute(context.Background(), &Input{ChartType: models.ChartTypePie})
	require.NoError(t, err)
	assert.True(t, out.Success)

	out, err = handler.Execute(context.Background(), &Input{ChartType: "radar"})
	assert.ErrorIs(t, err, ErrChartBuildFailed)
	assert.False(t, out.Success)
}

// ==========================
// Handle
// ==========================

func chartJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 42, Type: TaskType, Retries: 3, Variables: variables}}
}

func TestHandler_Handle_CompletesWithChart(t *testing.T) {
	client := camundatest.NewJobClient()
	handler := NewHandler(LoadConfig(), NewPaletteBuilder(), &TestLogger{t})

	handler.Handle(client, chartJob(`{"chartType":"line","title":"Users"}`))

	require.Len(t, client.Completions(), 1)
	assert.Empty(t, client.Failures())
	assert.Contains(t, client.Completions()[0].Variables, `"success":true`)
	assert.Contains(t, client.Completions()[0].Variables, `"Users"`)
}

func TestHandler_Handle_FailureCodes(t *testing.T) {
	tests := []struct {
		name       string
		variables  string
		wantCode   string
		wantPrefix string
	}{
		{
			name:       "unknown chart type",
			variables:  `{"chartType":"radar"}`,
			wantCode:   "CHART_BUILD_FAILED",
			wantPrefix: "CHART_BUILD_FAILED: ",
		},
		{
			name:       "malformed variables",
			variables:  `{"chartType":`,
			wantCode:   "VALIDATION_FAILED",
			wantPrefix: "VALIDATION_FAILED: parse input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			log := &recordingLogger{TestLogger: &TestLogger{t}}
			handler := NewHandler(LoadConfig(), NewPaletteBuilder(), log)

			handler.Handle(client, chartJob(tt.variables))

			assert.Empty(t, client.Completions())
			require.Len(t, client.Failures(), 1)
			failure := client.Failures()[0]
			assert.Equal(t, int64(42), failure.JobKey)
			assert.Zero(t, failure.Retries)
			assert.True(t, strings.HasPrefix(failure.Message, tt.wantPrefix), failure.Message)

			require.Len(t, log.errors, 1)
			assert.Equal(t, tt.wantCode, log.errors[0]["errorCode"])
		})
	}
}
