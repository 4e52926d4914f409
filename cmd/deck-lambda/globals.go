package main

import (
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/export"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/pipeline"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// Cold-start state shared by all handlers.
var (
	sessionStore *store.CachedStore
	sessionLocks *locks.SessionLocks
	chatClient   *chat.Client
	editor       *pipeline.Editor
	exporter     *export.Exporter

	lambdaClient       *lambdasvc.Client
	workerFunctionName string
	originVerifySecret string
)
