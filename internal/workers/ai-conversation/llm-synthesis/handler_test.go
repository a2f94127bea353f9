// internal/workers/ai-conversation/llm-synthesis/handler_test.go
package llmsynthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"query-orchestrator/internal/common/camunda/camundatest"
	commonerrors "query-orchestrator/internal/common/errors"
	"query-orchestrator/internal/common/genai"
	httpclient "query-orchestrator/internal/common/http"
	"query-orchestrator/internal/models"
)

// ==========================
// Test Logger Implementation
// ==========================

type TestLogger struct {
	t      *testing.T
	fields map[string]interface{}
}

func NewTestLogger(t *testing.T) *TestLogger {
	return &TestLogger{t: t, fields: make(map[string]interface{})}
}

func (l *TestLogger) Info(msg string, fields map[string]interface{}) {
	l.t.Logf("INFO: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) Error(msg string, fields map[string]interface{}) {
	l.t.Logf("ERROR: %s %v %v", msg, l.fields, fields)
}

func (l *TestLogger) With(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &TestLogger{t: l.t, fields: merged}
}

type BenchmarkLogger struct{}

func (b *BenchmarkLogger) Info(msg string, fields map[string]interface{})  {}
func (b *BenchmarkLogger) Error(msg string, fields map[string]interface{}) {}
func (b *BenchmarkLogger) With(fields map[string]interface{}) Logger       { return b }

// ==========================
// Test Helper Functions
// ==========================

type stubModel struct {
	content  string
	err      error
	messages []models.Message
}

func (s *stubModel) Generate(ctx context.Context, messages []models.Message) (*genai.Completion, error) {
	s.messages = messages
	if s.err != nil {
		return nil, s.err
	}
	return &genai.Completion{Content: s.content, Source: genai.SourceRemote}, nil
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

func testDocuments() []models.Document {
	return []models.Document{
		{ID: "doc-1", Question: "What is machine learning?", Answer: "ML learns patterns from data.", Tenant: "default"},
		{ID: "doc-2", Question: "What is a neural network?", Answer: "Layers of connected units.", Tenant: "default"},
	}
}

// ==========================
// Prompt Tests
// ==========================

func TestBuildContext(t *testing.T) {
	ctx := BuildContext(testDocuments())
	assert.Equal(t,
		"Q: What is machine learning?\nA: ML learns patterns from data.\n\nQ: What is a neural network?\nA: Layers of connected units.",
		ctx)
	assert.Empty(t, BuildContext(nil))
}

func TestBuildMessages(t *testing.T) {
	msgs := BuildMessages("What is ML?", testDocuments())
	require.Len(t, msgs, 2)

	assert.Equal(t, models.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "only on the provided context")
	assert.Contains(t, msgs[0].Content, "not have enough information")

	assert.Equal(t, models.RoleUser, msgs[1].Role)
	assert.True(t, strings.HasPrefix(msgs[1].Content, "Context:\nQ: What is machine learning?"))
	assert.True(t, strings.HasSuffix(msgs[1].Content, "\n\nQuestion: What is ML?\n\nAnswer:"))
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	model := &stubModel{content: "  Machine learning learns patterns from data.  "}
	handler := NewHandler(createTestConfig(), model, NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Question: "What is ML?", Documents: testDocuments()})

	require.NoError(t, err)
	assert.Equal(t, "Machine learning learns patterns from data.", output.Answer)
	assert.Equal(t, genai.SourceRemote, output.Source)
	require.Len(t, model.messages, 2)
	assert.Contains(t, model.messages[1].Content, "Question: What is ML?")
}

func TestHandler_Execute_EmptyCompletion(t *testing.T) {
	handler := NewHandler(createTestConfig(), &stubModel{content: "   "}, NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Question: "q", Documents: testDocuments()})

	require.NoError(t, err)
	assert.Equal(t, genai.NoAnswerText, output.Answer)
}

func TestJobError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  commonerrors.ErrorCode
		retryable bool
	}{
		{name: "timeout", err: ErrLLMTimeout, wantCode: commonerrors.ErrCodeLLMTimeout, retryable: true},
		{name: "rate limited", err: fmt.Errorf("%w: %w", ErrLLMSynthesisFailed, genai.ErrLLMRateLimited), wantCode: commonerrors.ErrCodeLLMRateLimited, retryable: true},
		{name: "generation failed", err: fmt.Errorf("%w: boom", ErrLLMSynthesisFailed), wantCode: commonerrors.ErrCodeLLMGenerationFailed, retryable: true},
		{name: "validation passes through", err: commonerrors.NewValidationFailedError("bad"), wantCode: commonerrors.ErrCodeValidationFailed},
		{name: "unknown", err: errors.New("boom"), wantCode: commonerrors.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdErr := jobError(tt.err)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestHandler_Handle(t *testing.T) {
	tests := []struct {
		name          string
		model         *stubModel
		variables     string
		wantCompleted bool
		wantRetries   int32
	}{
		{name: "completes", model: &stubModel{content: "answer"}, variables: `{"question":"q","documents":[]}`, wantCompleted: true},
		{name: "timeout retries once", model: &stubModel{err: genai.ErrLLMTimeout}, variables: `{"question":"q"}`, wantRetries: 1},
		{name: "generation failure retries once", model: &stubModel{err: genai.ErrLLMGenerationFailed}, variables: `{"question":"q"}`, wantRetries: 1},
		{name: "malformed variables", model: &stubModel{content: "answer"}, variables: `[`, wantRetries: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			handler := NewHandler(createTestConfig(), tt.model, NewTestLogger(t))

			handler.Handle(client, entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 5, Type: TaskType, Retries: 3, Variables: tt.variables}})

			if tt.wantCompleted {
				require.Len(t, client.Completions(), 1)
				assert.Contains(t, client.Completions()[0].Variables, `"answer":"answer"`)
				return
			}
			require.Len(t, client.Failures(), 1)
			assert.Equal(t, tt.wantRetries, client.Failures()[0].Retries)
		})
	}
}

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "model timeout", err: genai.ErrLLMTimeout, wantErr: ErrLLMTimeout},
		{name: "generation failed", err: genai.ErrLLMGenerationFailed, wantErr: ErrLLMSynthesisFailed},
		{name: "unknown failure", err: errors.New("boom"), wantErr: ErrLLMSynthesisFailed},
		{name: "rate limit keeps its cause", err: genai.ErrLLMRateLimited, wantErr: genai.ErrLLMRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHandler(createTestConfig(), &stubModel{err: tt.err}, NewTestLogger(t))
			_, err := handler.Execute(context.Background(), &Input{Question: "q", Documents: testDocuments()})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ==========================
// Integration with the GenAI HTTP API
// ==========================

func TestHandler_Execute_WithHTTPModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Contains(t, reqBody["prompt"], "A: ML learns patterns from data.")

		json.NewEncoder(w).Encode(map[string]interface{}{"text": "ML learns patterns from data."})
	}))
	defer server.Close()

	model := genai.NewHTTPModel(&genai.HTTPModelConfig{BaseURL: server.URL, MaxRetries: 1, MaxTokens: 500},
		httpclient.NewClient(0, "test"))
	handler := NewHandler(createTestConfig(), model, NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{Question: "What is ML?", Documents: testDocuments()})
	require.NoError(t, err)
	assert.Equal(t, "ML learns patterns from data.", output.Answer)
}

func TestHandler_Execute_ContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]interface{}{"text": "late"})
	}))
	defer server.Close()

	model := genai.NewHTTPModel(&genai.HTTPModelConfig{BaseURL: server.URL}, httpclient.NewClient(0, "test"))
	handler := NewHandler(createTestConfig(), model, NewTestLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := handler.Execute(ctx, &Input{Question: "q", Documents: testDocuments()})
	assert.ErrorIs(t, err, ErrLLMTimeout)
}

// ==========================
// Benchmarks
// ==========================

func BenchmarkHandler_Execute(b *testing.B) {
	handler := NewHandler(createTestConfig(), genai.NewLocalGenerator(), &BenchmarkLogger{})
	input := &Input{Question: "What is ML?", Documents: testDocuments()}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = handler.Execute(context.Background(), input)
	}
}
