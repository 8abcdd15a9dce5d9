package cache

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/dmmcquay/othello-dataset/internal/config"
	"github.com/dmmcquay/othello-dataset/internal/logging"
	"github.com/dmmcquay/othello-dataset/internal/transcript"
)

// Transcripts caches parsed games keyed by a hash of the transcript text.
// A disabled cache parses on every call.
type Transcripts struct {
	cache   *LRU[[]transcript.Game]
	logger  logging.ContextLogger
	enabled bool
}

// NewTranscripts creates a transcript cache from cfg. A nil cfg disables it.
func NewTranscripts(cfg *config.CacheConfig, logger logging.ContextLogger) *Transcripts {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if cfg == nil || !cfg.Enabled {
		return &Transcripts{logger: logger}
	}
	return &Transcripts{
		cache:   NewLRU[[]transcript.Game](cfg.MaxItems, cfg.MaxSizeBytes),
		logger:  logger,
		enabled: true,
	}
}

// Key returns the cache key for a transcript.
func Key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Parse returns the games in text, reusing a previous parse of identical
// text. Callers must not modify the returned games.
func (t *Transcripts) Parse(text string) []transcript.Game {
	if !t.enabled {
		return transcript.Parse(text)
	}

	key := Key(text)
	if games, ok := t.cache.Get(key); ok {
		t.logger.Debug("Transcript cache hit", "key", key[:12], "games", len(games))
		return games
	}

	games := transcript.Parse(text)
	t.cache.Put(key, games, int64(len(text)))
	t.logger.Debug("Cached parsed transcript", "key", key[:12], "games", len(games), "size", len(text))
	return games
}

// Stats returns cache statistics; zero when disabled.
func (t *Transcripts) Stats() Stats {
	if !t.enabled {
		return Stats{}
	}
	return t.cache.Stats()
}

// IsEnabled reports whether caching is enabled.
func (t *Transcripts) IsEnabled() bool {
	return t.enabled
}
