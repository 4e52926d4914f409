// Package main is the API Lambda for the deck editing service. It fronts the
// edit pipeline behind API Gateway: session lifecycle, synchronous and
// polled asynchronous deck edits, and export job management.
//
// Security:
//   - Origin-verify middleware blocks direct API Gateway access (CloudFront-only)
//   - sessionId inputs must be valid UUIDs
//   - Cryptographically random job IDs prevent enumeration
//   - Session ownership enforced on every job poll
//
// Endpoints:
//
//	GET    /api/health                        — health check
//	POST   /api/session                       — create a session
//	DELETE /api/session/{id}                  — delete a session and its deck
//	GET    /api/deck?sessionId=...            — committed deck snapshot
//	POST   /api/deck/edit                     — synchronous edit
//	POST   /api/deck/edit/async               — async edit, returns job id
//	GET    /api/chat/{id}/results?sessionId=  — poll an async edit
//	POST   /api/export/start                  — start a deck export
//	GET    /api/export/{id}/results?sessionId= — poll an export, download URL when done
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/ai-deck-studio/internal/auth"
	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/export"
	"github.com/fpang/ai-deck-studio/internal/lambdaboot"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/logging"
	"github.com/fpang/ai-deck-studio/internal/pipeline"
	"github.com/fpang/ai-deck-studio/internal/store"
)

func init() {
	initStart := time.Now()
	logging.Init()

	aws := lambdaboot.InitAWS()
	lambdaboot.LoadGeminiKey(aws.SSM)

	dynamo := lambdaboot.InitDynamo(aws.Config, "DYNAMO_TABLE_NAME")
	sessionStore = store.NewCachedStore(dynamo)
	sessionLocks = locks.New()

	s3Client, bucket := lambdaboot.InitS3(aws.Config, "DECK_BUCKET_NAME")
	exporter = export.NewExporter(sessionStore, export.NewS3BundleStore(s3Client, bucket))

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("Gemini API key unavailable")
	}
	chatClient, err = chat.NewClient(context.Background(), apiKey, os.Getenv("DECK_MODEL"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}
	editor = pipeline.NewEditor(sessionStore, sessionLocks, chatClient)

	lambdaClient = lambdasvc.NewFromConfig(aws.Config)
	workerFunctionName = os.Getenv("WORKER_FUNCTION_NAME")
	if workerFunctionName == "" {
		log.Warn().Msg("WORKER_FUNCTION_NAME not set — async edits and exports disabled")
	}

	originVerifySecret = os.Getenv("ORIGIN_VERIFY_SECRET")
	if originVerifySecret == "" {
		log.Warn().Msg("ORIGIN_VERIFY_SECRET not set — origin verification disabled")
	}

	lambdaboot.StartupLog("deck-lambda", initStart).
		DynamoTable("sessions", os.Getenv("DYNAMO_TABLE_NAME")).
		S3Bucket("exports", bucket).
		LambdaFunc("worker", workerFunctionName).
		SSMParam("geminiApiKey", logging.EnvOrDefault("SSM_API_KEY_PARAM", "/ai-deck-studio/prod/gemini-api-key")).
		Feature("originVerify", originVerifySecret != "").
		Config("model", logging.EnvOrDefault("DECK_MODEL", chat.DefaultModelName)).
		Log()
}

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", handleHealth)
	mux.HandleFunc("/api/session", handleSession)
	mux.HandleFunc("/api/session/", handleSessionByID)
	mux.HandleFunc("/api/deck", handleDeckGet)
	mux.HandleFunc("/api/deck/edit", handleEditSync)
	mux.HandleFunc("/api/deck/edit/async", handleEditAsync)
	mux.HandleFunc("/api/chat/", handleChatRoutes)
	mux.HandleFunc("/api/export/start", handleExportStart)
	mux.HandleFunc("/api/export/", handleExportRoutes)

	handler := withOriginVerify(withMetrics(mux))

	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "ai-deck-studio",
	})
}
