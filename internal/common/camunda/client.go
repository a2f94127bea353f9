// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	commonerrors "query-orchestrator/internal/common/errors"
)

// Client wraps the Zeebe gRPC client for deploying and running the
// orchestration process.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

// ClientConfig holds configuration for the Camunda/Zeebe client.
type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RequestTimeout         time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 3,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// NewClient connects to a plaintext gateway, as used in local setups.
func NewClient(address string, requestTimeout time.Duration) (*Client, error) {
	config := &ClientConfig{
		GatewayAddress:         address,
		UsePlaintextConnection: true,
		ConnectionTimeout:      10 * time.Second,
		RequestTimeout:         requestTimeout,
		RetryConfig:            DefaultRetryConfig,
	}
	return NewClientWithConfig(config)
}

// NewClientWithConfig creates the client and checks the broker topology.
func NewClientWithConfig(config *ClientConfig) (*Client, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig
	}

	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         config.GatewayAddress,
		UsePlaintextConnection: config.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectionTimeout)
	defer cancel()

	if _, err := zeebeClient.NewTopologyCommand().Send(ctx); err != nil {
		zeebeClient.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe broker at %s: %w", config.GatewayAddress, err)
	}

	return &Client{
		client: zeebeClient,
		config: config,
	}, nil
}

// GetClient returns the raw Zeebe client for opening job workers.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// ExecuteWithRetry runs a Zeebe command, retrying failures whose error code
// is retryable with exponential backoff. Failures come back as
// *errors.StandardError.
func (c *Client) ExecuteWithRetry(
	ctx context.Context,
	commandFunc func(context.Context) (interface{}, error),
	operationName string,
) (interface{}, error) {
	retry := c.config.RetryConfig
	for attempt := 0; ; attempt++ {
		result, err := commandFunc(ctx)
		if err == nil {
			return result, nil
		}

		stdErr := zeebeError(err, operationName, attempt)
		if attempt >= retry.MaxRetries || !commonerrors.IsRetryableErrorCode(stdErr.Code) {
			return nil, stdErr
		}

		delay := retry.BaseDelay * time.Duration(1<<attempt)
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("zeebe %s cancelled after %d attempts: %w", operationName, attempt+1, ctx.Err())
		}
	}
}

// zeebeError classifies a gateway error by the phrases in its message. Only
// deploy, create-instance and topology calls go through here, so unknown
// failures are treated as permanent.
func zeebeError(err error, operation string, attempt int) *commonerrors.StandardError {
	msg := strings.ToLower(err.Error())
	detail := fmt.Errorf("zeebe %s failed on attempt %d: %w", operation, attempt+1, err)

	switch {
	case containsAny(msg, "deadline exceeded", "deadlineexceeded", "timeout"):
		return commonerrors.NewTimeoutError("zeebe", detail)
	case containsAny(msg, "unavailable", "connection refused", "connection reset", "unreachable", "broken pipe"):
		return commonerrors.NewExternalServiceError("zeebe", detail)
	case containsAny(msg, "not found", "notfound"):
		return commonerrors.NewResourceNotFoundError("zeebe", detail.Error())
	default:
		return commonerrors.NewInternalError(detail)
	}
}

func containsAny(s string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// DeployProcess deploys a BPMN resource file to the broker.
func (c *Client) DeployProcess(ctx context.Context, path string) error {
	_, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		return c.client.NewDeployResourceCommand().AddResourceFile(path).Send(ctx)
	}, "deploy "+path)
	return err
}

// RunProcess starts bpmnProcessID with variables and waits for the instance
// to complete, returning its final variables as JSON.
func (c *Client) RunProcess(ctx context.Context, bpmnProcessID string, variables interface{}) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	result, err := c.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := c.client.NewCreateInstanceCommand().
			BPMNProcessId(bpmnProcessID).
			LatestVersion().
			VariablesFromObject(variables)
		if err != nil {
			return nil, err
		}
		return cmd.WithResult().Send(ctx)
	}, "run "+bpmnProcessID)
	if err != nil {
		return "", err
	}

	resp, ok := result.(interface{ GetVariables() string })
	if !ok {
		return "", fmt.Errorf("unexpected create instance response %T", result)
	}
	return resp.GetVariables(), nil
}

// HealthCheck performs a basic health check against the Zeebe broker.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	_, err := c.client.NewTopologyCommand().Send(ctx)
	if err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
