// Package main is the worker Lambda for async job processing. It is invoked
// by the API Lambda via lambda:Invoke with InvocationType=Event, runs the
// full edit pipeline or export bundling, and writes every outcome to the
// job's DynamoDB record. The API Lambda polls DynamoDB for status.
//
// Event format:
//
//	{"type": "chat"|"export", "sessionId": "uuid", "jobId": "chat-xxx"}
//
// The handler returns nil for job-level failures (the failure lives in the
// job record), reserving a non-nil return for events it cannot route at all.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/auth"
	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/export"
	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/lambdaboot"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/logging"
	"github.com/fpang/ai-deck-studio/internal/metrics"
	"github.com/fpang/ai-deck-studio/internal/pipeline"
	"github.com/fpang/ai-deck-studio/internal/store"
)

var coldStart = true

// Cold-start state.
var (
	editor   *pipeline.Editor
	exporter *export.Exporter
)

// WorkerEvent is the top-level event received from the API Lambda.
type WorkerEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
	JobID     string `json:"jobId"`
}

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(aws.SSM)

	dynamo := lambdaboot.InitDynamo(aws.Config, "DYNAMO_TABLE_NAME")
	sessionStore := store.NewCachedStore(dynamo)

	s3Client, bucket := lambdaboot.InitS3(aws.Config, "DECK_BUCKET_NAME")
	exporter = export.NewExporter(sessionStore, export.NewS3BundleStore(s3Client, bucket))

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini API key unavailable")
	}
	chatClient, err := chat.NewClient(context.Background(), apiKey, os.Getenv("DECK_MODEL"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	editor = pipeline.NewEditor(sessionStore, locks.New(), chatClient)

	lambdaboot.StartupLog("worker-lambda", initStart).
		DynamoTable("sessions", os.Getenv("DYNAMO_TABLE_NAME")).
		S3Bucket("exports", bucket).
		Config("model", logging.EnvOrDefault("DECK_MODEL", chat.DefaultModelName)).
		Log()
}

func main() {
	lambda.Start(handler)
}

func handler(ctx context.Context, event WorkerEvent) error {
	if coldStart {
		coldStart = false
		log.Info().Str("function", "worker-lambda").Msg("Cold start — first invocation")
	}
	log.Info().
		Str("type", event.Type).
		Str("sessionId", event.SessionID).
		Str("jobId", event.JobID).
		Msg("Worker invoked")

	jobStart := time.Now()
	var err error
	switch event.Type {
	case jobs.KindChat:
		err = editor.RunChatJob(ctx, event.SessionID, event.JobID)
	case jobs.KindExport:
		err = exporter.RunExportJob(ctx, event.SessionID, event.JobID)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err != nil {
		log.Error().Err(err).Str("jobId", event.JobID).Str("sessionId", event.SessionID).Msg("Job processing failed")
		return err
	}

	metrics.New(metrics.Namespace).
		Dimension("JobType", event.Type).
		Metric("JobDurationMs", float64(time.Since(jobStart).Milliseconds()), metrics.UnitMilliseconds).
		Count("JobProcessed").
		Property("jobId", event.JobID).
		Property("sessionId", event.SessionID).
		Flush()
	return nil
}
