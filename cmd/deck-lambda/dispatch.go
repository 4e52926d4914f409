package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"
)

// workerEvent is the payload sent to the worker Lambda. Must stay in sync
// with the worker's event type.
type workerEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	JobID     string `json:"jobId"`
}

// workerDispatcher hands jobs to the worker Lambda via async Invoke. The
// invocation returns as soon as the Lambda service accepts the event, so the
// API request is not held open for the duration of the job.
type workerDispatcher struct {
	client       *lambdasvc.Client
	functionName string
}

func (d *workerDispatcher) Dispatch(ctx context.Context, kind, sessionID, jobID string) error {
	if d.functionName == "" {
		return errors.New("worker function not configured")
	}

	payload, err := json.Marshal(workerEvent{
		Type:      kind,
		SessionID: sessionID,
		JobID:     jobID,
	})
	if err != nil {
		return fmt.Errorf("marshaling worker event: %w", err)
	}

	_, err = d.client.Invoke(ctx, &lambdasvc.InvokeInput{
		FunctionName:   aws.String(d.functionName),
		InvocationType: lambdatypes.InvocationTypeEvent,
		Payload:        payload,
	})
	if err != nil {
		return fmt.Errorf("invoking worker for %s job: %w", kind, err)
	}

	log.Info().
		Str("kind", kind).
		Str("sessionId", sessionID).
		Str("jobId", jobID).
		Msg("Dispatched job to worker")
	return nil
}

func newWorkerDispatcher() *workerDispatcher {
	return &workerDispatcher{client: lambdaClient, functionName: workerFunctionName}
}
