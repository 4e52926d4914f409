package auth

import (
	"errors"
	"os"
	"testing"

	"google.golang.org/genai"
)

func TestGetAPIKeyFromEnv(t *testing.T) {
	const testKey = "test-api-key-12345"

	t.Setenv("GEMINI_API_KEY", testKey)

	key, err := GetAPIKey()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != testKey {
		t.Errorf("expected key %q, got %q", testKey, key)
	}
}

func TestGetAPIKeyMissing(t *testing.T) {
	originalKey := os.Getenv("GEMINI_API_KEY")
	defer os.Setenv("GEMINI_API_KEY", originalKey)
	os.Unsetenv("GEMINI_API_KEY")

	if _, err := GetAPIKey(); err == nil {
		t.Error("expected error when GEMINI_API_KEY is unset")
	}
}

func TestClassifyErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ValidationErrorType
	}{
		{"invalid key", errors.New("API key not valid. Please pass a valid API key."), ErrTypeInvalidKey},
		{"permission denied", errors.New("rpc error: permission denied"), ErrTypeInvalidKey},
		{"quota", errors.New("quota exceeded for quota metric"), ErrTypeQuotaExceeded},
		{"rate limit", errors.New("rate limit hit, slow down"), ErrTypeQuotaExceeded},
		{"network", errors.New("dial tcp: no such host"), ErrTypeNetworkError},
		{"timeout", errors.New("context deadline exceeded: timeout"), ErrTypeNetworkError},
		{"unknown", errors.New("something else entirely"), ErrTypeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyError(tc.err)
			if got.Type != tc.want {
				t.Errorf("classifyError(%q).Type = %v, want %v", tc.err, got.Type, tc.want)
			}
			if !errors.Is(got, tc.err) {
				t.Error("classified error does not unwrap to the original")
			}
		})
	}
}

func TestClassifyAPIErrorCodes(t *testing.T) {
	cases := []struct {
		code int
		want ValidationErrorType
	}{
		{400, ErrTypeInvalidKey},
		{401, ErrTypeInvalidKey},
		{403, ErrTypeInvalidKey},
		{429, ErrTypeQuotaExceeded},
		{500, ErrTypeNetworkError},
		{503, ErrTypeNetworkError},
		{418, ErrTypeUnknown},
	}

	for _, tc := range cases {
		got := classifyAPIError(&genai.APIError{Code: tc.code, Message: "x"})
		if got.Type != tc.want {
			t.Errorf("classifyAPIError(code=%d).Type = %v, want %v", tc.code, got.Type, tc.want)
		}
	}
}
