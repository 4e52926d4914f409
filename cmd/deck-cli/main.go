// Package main is an interactive terminal client for the deck edit pipeline.
// It runs the same pipeline as the deployed API against an in-memory store,
// so deck behavior can be exercised without any AWS resources. Exports are
// written to a local directory instead of S3.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/ai-deck-studio/internal/auth"
	"github.com/fpang/ai-deck-studio/internal/chat"
	"github.com/fpang/ai-deck-studio/internal/deck"
	"github.com/fpang/ai-deck-studio/internal/export"
	"github.com/fpang/ai-deck-studio/internal/jobs"
	"github.com/fpang/ai-deck-studio/internal/locks"
	"github.com/fpang/ai-deck-studio/internal/logging"
	"github.com/fpang/ai-deck-studio/internal/pipeline"
	"github.com/fpang/ai-deck-studio/internal/store"
)

// CLI flags
var (
	modelFlag     string
	exportDirFlag string
	retriesFlag   int
	sessionFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "deck-cli",
	Short: "Interactive AI slide deck editor",
	Long: `Deck CLI is an interactive editor for AI-generated slide decks.

Type instructions ("create three slides about Go concurrency", "make slide 2
shorter") and the tool generates, validates, and merges slides into the deck.
Commands:

  :show            print the committed deck
  :select N M      target the next instruction at slides N..M (1-based)
  :clear           drop the slide selection
  :export          bundle the deck into a zip under the export directory
  :quit            exit

Examples:
  deck-cli
  deck-cli --model gemini-3-pro-preview --export-dir ./out`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&modelFlag, "model", "m", chat.DefaultModelName, "Gemini model to use")
	rootCmd.Flags().StringVar(&exportDirFlag, "export-dir", "exports", "Directory for exported deck bundles")
	rootCmd.Flags().IntVar(&retriesFlag, "retries", deck.DefaultRetryLimit, "Extra generation attempts when a response fails validation")
	rootCmd.Flags().StringVar(&sessionFlag, "session", "", "Session ID to use (default: random UUID)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// inlineDispatcher runs dispatched jobs in the calling goroutine. The CLI has
// no worker process, so a "dispatched" job completes before the dispatch call
// returns.
type inlineDispatcher struct {
	editor   *pipeline.Editor
	exporter *export.Exporter
}

func (d *inlineDispatcher) Dispatch(ctx context.Context, kind, sessionID, jobID string) error {
	switch kind {
	case jobs.KindChat:
		return d.editor.RunChatJob(ctx, sessionID, jobID)
	case jobs.KindExport:
		return d.exporter.RunExportJob(ctx, sessionID, jobID)
	default:
		return fmt.Errorf("unknown job kind: %s", kind)
	}
}

func runMain(cmd *cobra.Command, args []string) {
	logging.Init()
	ctx := context.Background()

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to retrieve API key")
	}

	chatClient, err := chat.NewClient(ctx, apiKey, modelFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Gemini client")
	}
	if err := auth.ValidateAPIKey(ctx, chatClient.Genai()); err != nil {
		handleValidationError(err)
	}
	log.Info().Msg("API key validation complete - ready for operations")

	sessionStore := store.NewCachedStore(store.NewMemoryStore())
	editor := pipeline.NewEditor(sessionStore, locks.New(), chatClient)
	editor.Validator.RetryLimit = retriesFlag
	exporter := export.NewExporter(sessionStore, export.NewDirBundleStore(exportDirFlag))

	sessionID := sessionFlag
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	fmt.Println()
	fmt.Println("============================================")
	fmt.Println("🖥️  Deck Editor")
	fmt.Println("============================================")
	fmt.Printf("Session: %s\n", sessionID)
	fmt.Printf("Model: %s\n", modelFlag)
	fmt.Printf("Export directory: %s\n", exportDirFlag)
	fmt.Println("Type an instruction, or :help for commands.")
	fmt.Println("--------------------------------------------")

	repl(ctx, sessionStore, editor, exporter, sessionID)
}

func repl(ctx context.Context, st store.SessionStore, editor *pipeline.Editor, exporter *export.Exporter, sessionID string) {
	reader := bufio.NewReader(os.Stdin)
	var selection *deck.SlideContext

	for {
		if selection != nil {
			fmt.Printf("[slides %d-%d] > ", selection.Start+1, selection.End+1)
		} else {
			fmt.Print("> ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if done := runCommand(ctx, st, exporter, sessionID, line, &selection); done {
				return
			}
			continue
		}

		result, err := editor.EditDeck(ctx, pipeline.EditRequest{
			SessionID: sessionID,
			Message:   line,
			Context:   selection,
		})
		if err != nil {
			if pipeline.IsClientFault(err) {
				fmt.Printf("❌ %v\n", err)
			} else {
				log.Error().Err(err).Msg("edit failed")
			}
			continue
		}
		selection = nil

		fmt.Printf("✅ %s: +%d slides, -%d slides (deck now %d)\n",
			result.Intent, result.SlidesAdded, result.SlidesRemoved, result.Deck.Count())
		for _, warning := range result.Warnings {
			fmt.Printf("⚠️  %s\n", warning)
		}
	}
}

// runCommand handles one ":" command. Returns true when the REPL should exit.
func runCommand(ctx context.Context, st store.SessionStore, exporter *export.Exporter, sessionID, line string, selection **deck.SlideContext) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true

	case ":help":
		fmt.Println(":show | :select N M | :clear | :export | :quit")

	case ":show":
		rec, err := st.GetDeck(ctx, sessionID)
		if err != nil {
			log.Error().Err(err).Msg("failed to load deck")
			return false
		}
		d := rec.Deck()
		if d.Count() == 0 {
			fmt.Println("(empty deck)")
			return false
		}
		for _, s := range d.Slides {
			fmt.Printf("--- slide %d ---\n%s\n", s.Index+1, s.HTML)
		}

	case ":select":
		if len(fields) != 3 {
			fmt.Println("usage: :select N M (1-based, inclusive)")
			return false
		}
		start, err1 := strconv.Atoi(fields[1])
		end, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || start < 1 || end < start {
			fmt.Println("usage: :select N M (1-based, inclusive)")
			return false
		}
		sctx, err := snapshotSelection(ctx, st, sessionID, start-1, end-1)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return false
		}
		*selection = sctx
		fmt.Printf("Next instruction targets slides %d-%d\n", start, end)

	case ":clear":
		*selection = nil

	case ":export":
		jobID, err := exporter.StartExport(ctx, sessionID, &inlineDispatcher{exporter: exporter})
		if err != nil {
			if errors.Is(err, export.ErrNoDeck) {
				fmt.Println("❌ nothing to export yet")
			} else {
				log.Error().Err(err).Msg("export failed")
			}
			return false
		}
		job, err := st.GetExportJob(ctx, sessionID, jobID)
		if err != nil || job == nil {
			log.Error().Err(err).Msg("export job vanished")
			return false
		}
		if job.Error != "" {
			fmt.Printf("❌ export failed: %s\n", job.Error)
			return false
		}
		if err := exporter.AttachDownloadURL(ctx, job); err != nil {
			log.Error().Err(err).Msg("failed to resolve bundle path")
			return false
		}
		fmt.Printf("✅ exported %d slides to %s\n", job.Total, job.DownloadURL)

	default:
		fmt.Printf("unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// snapshotSelection builds a slide context from the committed deck, with the
// HTML snapshots the pipeline verifies against.
func snapshotSelection(ctx context.Context, st store.SessionStore, sessionID string, start, end int) (*deck.SlideContext, error) {
	rec, err := st.GetDeck(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	d := rec.Deck()
	if end >= d.Count() {
		return nil, fmt.Errorf("deck has %d slides", d.Count())
	}
	snapshots := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		snapshots = append(snapshots, d.Slides[i].HTML)
	}
	return &deck.SlideContext{Start: start, End: end, Snapshots: snapshots}, nil
}

// handleValidationError exits with a message matched to the validation failure.
func handleValidationError(err error) {
	var validationErr *auth.ValidationError
	if errors.As(err, &validationErr) {
		switch validationErr.Type {
		case auth.ErrTypeNoKey:
			log.Fatal().Msg("No API key configured. Set GEMINI_API_KEY")
		case auth.ErrTypeInvalidKey:
			log.Fatal().Err(err).Msg("Invalid API key. Please check your API key and try again")
		case auth.ErrTypeNetworkError:
			log.Fatal().Err(err).Msg("Network error. Please check your internet connection")
		case auth.ErrTypeQuotaExceeded:
			log.Fatal().Err(err).Msg("API quota exceeded. Please try again later or check your usage limits")
		default:
			log.Fatal().Err(err).Msg("API key validation failed")
		}
	} else {
		log.Fatal().Err(err).Msg("unexpected error during API key validation")
	}
	os.Exit(1)
}
