// Package camundatest provides an in-memory worker.JobClient for handler tests.
package camundatest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
)

// Completion is a completed job and the variables it was completed with.
type Completion struct {
	JobKey    int64
	Variables string
}

// Failure is a failed job.
type Failure struct {
	JobKey    int64
	Retries   int32
	Message   string
	Variables string
}

// Thrown is a job that threw a BPMN error.
type Thrown struct {
	JobKey    int64
	ErrorCode string
	Message   string
	Variables string
}

// JobClient records the commands a handler sends. It is safe for
// concurrent use.
type JobClient struct {
	mu          sync.Mutex
	completions []Completion
	failures    []Failure
	thrown      []Thrown
}

func NewJobClient() *JobClient {
	return &JobClient{}
}

func (c *JobClient) Completions() []Completion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Completion(nil), c.completions...)
}

func (c *JobClient) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Failure(nil), c.failures...)
}

func (c *JobClient) Thrown() []Thrown {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Thrown(nil), c.thrown...)
}

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return &completeCommand{client: c}
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return &failCommand{client: c}
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return &throwCommand{client: c}
}

func marshalVariables(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ==========================
// Complete
// ==========================

type completeCommand struct {
	client *JobClient
	record Completion
}

func (cmd *completeCommand) JobKey(key int64) commands.CompleteJobCommandStep2 {
	cmd.record.JobKey = key
	return cmd
}

func (cmd *completeCommand) VariablesFromString(s string) (commands.DispatchCompleteJobCommand, error) {
	cmd.record.Variables = s
	return cmd, nil
}

func (cmd *completeCommand) VariablesFromStringer(s fmt.Stringer) (commands.DispatchCompleteJobCommand, error) {
	return cmd.VariablesFromString(s.String())
}

func (cmd *completeCommand) VariablesFromMap(m map[string]interface{}) (commands.DispatchCompleteJobCommand, error) {
	return cmd.VariablesFromObject(m)
}

func (cmd *completeCommand) VariablesFromObject(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return cmd.VariablesFromString(s)
}

func (cmd *completeCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchCompleteJobCommand, error) {
	return cmd.VariablesFromObject(v)
}

func (cmd *completeCommand) Send(context.Context) (*pb.CompleteJobResponse, error) {
	cmd.client.mu.Lock()
	defer cmd.client.mu.Unlock()
	cmd.client.completions = append(cmd.client.completions, cmd.record)
	return &pb.CompleteJobResponse{}, nil
}

// ==========================
// Fail
// ==========================

type failCommand struct {
	client *JobClient
	record Failure
}

func (cmd *failCommand) JobKey(key int64) commands.FailJobCommandStep2 {
	cmd.record.JobKey = key
	return cmd
}

func (cmd *failCommand) Retries(retries int32) commands.FailJobCommandStep3 {
	cmd.record.Retries = retries
	return cmd
}

func (cmd *failCommand) RetryBackoff(time.Duration) commands.FailJobCommandStep3 {
	return cmd
}

func (cmd *failCommand) ErrorMessage(msg string) commands.FailJobCommandStep3 {
	cmd.record.Message = msg
	return cmd
}

func (cmd *failCommand) VariablesFromString(s string) (commands.DispatchFailJobCommand, error) {
	cmd.record.Variables = s
	return cmd, nil
}

func (cmd *failCommand) VariablesFromStringer(s fmt.Stringer) (commands.DispatchFailJobCommand, error) {
	return cmd.VariablesFromString(s.String())
}

func (cmd *failCommand) VariablesFromMap(m map[string]interface{}) (commands.DispatchFailJobCommand, error) {
	return cmd.VariablesFromObject(m)
}

func (cmd *failCommand) VariablesFromObject(v interface{}) (commands.DispatchFailJobCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return cmd.VariablesFromString(s)
}

func (cmd *failCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchFailJobCommand, error) {
	return cmd.VariablesFromObject(v)
}

func (cmd *failCommand) Send(context.Context) (*pb.FailJobResponse, error) {
	cmd.client.mu.Lock()
	defer cmd.client.mu.Unlock()
	cmd.client.failures = append(cmd.client.failures, cmd.record)
	return &pb.FailJobResponse{}, nil
}

// ==========================
// Throw
// ==========================

type throwCommand struct {
	client *JobClient
	record Thrown
}

func (cmd *throwCommand) JobKey(key int64) commands.ThrowErrorCommandStep2 {
	cmd.record.JobKey = key
	return cmd
}

func (cmd *throwCommand) ErrorCode(code string) commands.DispatchThrowErrorCommand {
	cmd.record.ErrorCode = code
	return cmd
}

func (cmd *throwCommand) ErrorMessage(msg string) commands.DispatchThrowErrorCommand {
	cmd.record.Message = msg
	return cmd
}

func (cmd *throwCommand) VariablesFromString(s string) (commands.DispatchThrowErrorCommand, error) {
	cmd.record.Variables = s
	return cmd, nil
}

func (cmd *throwCommand) VariablesFromStringer(s fmt.Stringer) (commands.DispatchThrowErrorCommand, error) {
	return cmd.VariablesFromString(s.String())
}

func (cmd *throwCommand) VariablesFromMap(m map[string]interface{}) (commands.DispatchThrowErrorCommand, error) {
	return cmd.VariablesFromObject(m)
}

func (cmd *throwCommand) VariablesFromObject(v interface{}) (commands.DispatchThrowErrorCommand, error) {
	s, err := marshalVariables(v)
	if err != nil {
		return nil, err
	}
	return cmd.VariablesFromString(s)
}

func (cmd *throwCommand) VariablesFromObjectIgnoreOmitempty(v interface{}) (commands.DispatchThrowErrorCommand, error) {
	return cmd.VariablesFromObject(v)
}

func (cmd *throwCommand) Send(context.Context) (*pb.ThrowErrorResponse, error) {
	cmd.client.mu.Lock()
	defer cmd.client.mu.Unlock()
	cmd.client.thrown = append(cmd.client.thrown, cmd.record)
	return &pb.ThrowErrorResponse{}, nil
}
