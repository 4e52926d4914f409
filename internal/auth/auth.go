// Package auth resolves and validates the Gemini API key. In Lambda the key
// arrives via SSM Parameter Store (see lambdaboot.LoadGeminiKey); locally it
// comes from the environment.
package auth

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// GetAPIKey retrieves the Gemini API key from the GEMINI_API_KEY environment
// variable. Deployed processes populate the variable from SSM during
// cold-start, so by the time anything calls this the env var is the single
// source of truth.
func GetAPIKey() (string, error) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		log.Debug().Msg("Using API key from environment variable")
		return key, nil
	}
	return "", fmt.Errorf("API key not found: set GEMINI_API_KEY (or SSM_API_KEY_PARAM in Lambda)")
}
