package chat

// cache.go implements Gemini Context Caching so the committed deck state and
// the slide-authoring system prompt are uploaded once per session and reused
// across retries and follow-up edits, instead of resent on every call.

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// DefaultCacheTTL is the time-to-live for cached context entries. An editing
// session rarely outlives an hour of inactivity, and the entry is recreated
// transparently if it expires mid-session.
const DefaultCacheTTL = 1 * time.Hour

// CacheConfig controls how context caching is applied to a GenerateContent call.
type CacheConfig struct {
	// SessionID uniquely identifies the editing session for cache keying.
	SessionID string

	// Operation identifies the pipeline stage (e.g., "edit").
	Operation string

	// TTL overrides the default cache TTL. Zero uses DefaultCacheTTL.
	TTL time.Duration
}

// cacheEntry pairs a Gemini cached-content handle with a fingerprint of the
// deck state it was built from. The deck changes after every committed edit,
// so a stale fingerprint means the entry must be recreated.
type cacheEntry struct {
	cached      *genai.CachedContent
	fingerprint string
}

// CacheManager manages Gemini cached content entries for a client.
// It is safe for concurrent use.
type CacheManager struct {
	client *genai.Client
	mu     sync.Mutex
	caches map[string]cacheEntry // cacheKey -> entry
}

// NewCacheManager creates a CacheManager for the given Gemini client.
func NewCacheManager(client *genai.Client) *CacheManager {
	return &CacheManager{
		client: client,
		caches: make(map[string]cacheEntry),
	}
}

// cacheKey returns the lookup key for a given session and operation.
func cacheKey(sessionID, operation string) string {
	return sessionID + ":" + operation
}

// contentFingerprint hashes the cacheable contents so a changed deck produces
// a different fingerprint and forces a fresh cache entry.
func contentFingerprint(contents []*genai.Content) string {
	h := sha256.New()
	for _, c := range contents {
		for _, p := range c.Parts {
			h.Write([]byte(p.Text))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// GetOrCreate returns the name of a cached content entry for the given
// session/operation and contents, creating (or replacing) the entry when none
// exists or the deck state has changed since it was built.
//
// If caching fails (e.g., token count below the API minimum), returns ("", nil)
// and the caller should fall back to inline context.
func (cm *CacheManager) GetOrCreate(
	ctx context.Context,
	cfg CacheConfig,
	modelName string,
	systemInstruction *genai.Content,
	contents []*genai.Content,
) (string, error) {
	key := cacheKey(cfg.SessionID, cfg.Operation)
	fp := contentFingerprint(contents)

	cm.mu.Lock()
	entry, ok := cm.caches[key]
	cm.mu.Unlock()

	if ok && entry.fingerprint == fp {
		log.Debug().
			Str("cache_key", key).
			Str("cache_name", entry.cached.Name).
			Msg("Reusing existing Gemini context cache")
		return entry.cached.Name, nil
	}
	if ok {
		// Deck changed since the entry was created. Drop the stale entry
		// before building a replacement.
		cm.Delete(ctx, cfg.SessionID, cfg.Operation)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}

	log.Info().
		Str("cache_key", key).
		Str("model", modelName).
		Dur("ttl", ttl).
		Int("content_parts", countParts(contents)).
		Msg("Creating Gemini context cache")

	createStart := time.Now()
	cached, err := cm.client.Caches.Create(ctx, modelName, &genai.CreateCachedContentConfig{
		SystemInstruction: systemInstruction,
		Contents:          contents,
		TTL:               ttl,
		DisplayName:       key,
	})
	createDuration := time.Since(createStart)

	if err != nil {
		log.Warn().
			Err(err).
			Str("cache_key", key).
			Dur("duration", createDuration).
			Msg("Failed to create Gemini context cache — falling back to inline context")
		return "", nil
	}

	log.Info().
		Str("cache_key", key).
		Str("cache_name", cached.Name).
		Dur("duration", createDuration).
		Msg("Gemini context cache created")

	cm.mu.Lock()
	cm.caches[key] = cacheEntry{cached: cached, fingerprint: fp}
	cm.mu.Unlock()

	return cached.Name, nil
}

// Delete removes a cached content entry from both Gemini and the local map.
func (cm *CacheManager) Delete(ctx context.Context, sessionID, operation string) {
	key := cacheKey(sessionID, operation)

	cm.mu.Lock()
	entry, ok := cm.caches[key]
	if ok {
		delete(cm.caches, key)
	}
	cm.mu.Unlock()

	if !ok {
		return
	}

	if _, err := cm.client.Caches.Delete(ctx, entry.cached.Name, nil); err != nil {
		log.Warn().
			Err(err).
			Str("cache_key", key).
			Str("cache_name", entry.cached.Name).
			Msg("Failed to delete Gemini context cache")
	} else {
		log.Debug().
			Str("cache_key", key).
			Str("cache_name", entry.cached.Name).
			Msg("Gemini context cache deleted")
	}
}

// DeleteAll removes all cached content entries for a session. Called when a
// session is deleted so orphaned caches do not linger until TTL expiry.
func (cm *CacheManager) DeleteAll(ctx context.Context, sessionID string) {
	prefix := sessionID + ":"

	cm.mu.Lock()
	var toDelete []struct {
		key  string
		name string
	}
	for k, v := range cm.caches {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			toDelete = append(toDelete, struct {
				key  string
				name string
			}{k, v.cached.Name})
			delete(cm.caches, k)
		}
	}
	cm.mu.Unlock()

	for _, entry := range toDelete {
		if _, err := cm.client.Caches.Delete(ctx, entry.name, nil); err != nil {
			log.Warn().
				Err(err).
				Str("cache_key", entry.key).
				Msg("Failed to delete Gemini context cache during session cleanup")
		} else {
			log.Debug().
				Str("cache_key", entry.key).
				Msg("Gemini context cache deleted during session cleanup")
		}
	}
}

// GenerateWithCache calls GenerateContent using a cached context if available,
// or falls back to inline context. It handles the full flow:
// 1. Try to get/create a cache for the system instruction and deck contents.
// 2. If cached, call GenerateContent with a CachedContent reference.
// 3. If not cached, call GenerateContent with inline system instruction.
//
// userParts are the parts specific to this request (the edit prompt).
// cacheContents are the parts to cache (the committed deck state).
func (cm *CacheManager) GenerateWithCache(
	ctx context.Context,
	cfg CacheConfig,
	modelName string,
	systemInstruction *genai.Content,
	cacheContents []*genai.Content,
	userParts []*genai.Part,
	extraConfig *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error) {
	var cacheName string
	if len(cacheContents) > 0 {
		var err error
		cacheName, err = cm.GetOrCreate(ctx, cfg, modelName, systemInstruction, cacheContents)
		if err != nil {
			log.Warn().Err(err).Msg("Cache creation error — proceeding with inline context")
		}
	}

	config := &genai.GenerateContentConfig{}
	if extraConfig != nil {
		*config = *extraConfig
	}

	var contents []*genai.Content

	if cacheName != "" {
		config.CachedContent = cacheName
		config.SystemInstruction = nil
		contents = []*genai.Content{{Role: "user", Parts: userParts}}

		log.Debug().
			Str("cache_name", cacheName).
			Msg("Using cached context for GenerateContent")
	} else {
		config.SystemInstruction = systemInstruction
		allParts := make([]*genai.Part, 0, len(userParts))
		for _, c := range cacheContents {
			allParts = append(allParts, c.Parts...)
		}
		allParts = append(allParts, userParts...)
		contents = []*genai.Content{{Role: "user", Parts: allParts}}

		log.Debug().Msg("Using inline context for GenerateContent (cache unavailable)")
	}

	return cm.client.Models.GenerateContent(ctx, modelName, contents, config)
}

// countParts returns the total number of parts across all content entries.
func countParts(contents []*genai.Content) int {
	n := 0
	for _, c := range contents {
		n += len(c.Parts)
	}
	return n
}
