package bot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/aerostream/aeros/internal/answer"
)

// interactionEntry is the JSON record written for every answered mention.
type interactionEntry struct {
	Timestamp       string   `json:"timestamp"`
	InteractionID   string   `json:"interaction_id"`
	Query           string   `json:"query"`
	Response        string   `json:"response"`
	RetrievedChunks []string `json:"retrieved_chunks"`
	Model           string   `json:"model"`
	LatencySeconds  float64  `json:"latency_seconds"`
}

// InteractionLogger writes one JSON file per bot interaction for later audit
// and debugging of retrieval quality.
type InteractionLogger struct {
	dir string
	log *slog.Logger
}

// NewInteractionLogger creates the logs directory if needed.
func NewInteractionLogger(dir string, log *slog.Logger) (*InteractionLogger, error) {
	if dir == "" {
		dir = filepath.Join("data", "logs")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("bot: failed to create logs dir %s: %w", dir, err)
	}
	return &InteractionLogger{dir: dir, log: log}, nil
}

// Log persists one interaction. Failures are logged, never fatal; a full
// disk must not take the bot down.
func (l *InteractionLogger) Log(query string, res *answer.Result) {
	id := uuid.NewString()
	entry := interactionEntry{
		Timestamp:       time.Now().Format(time.RFC3339),
		InteractionID:   id,
		Query:           query,
		Response:        res.Answer,
		RetrievedChunks: res.RetrievedChunks,
		Model:           res.Model,
		LatencySeconds:  res.Latency.Seconds(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		l.log.Warn("bot: failed to marshal interaction", slog.String("error", err.Error()))
		return
	}

	name := fmt.Sprintf("interaction_%s_%s.json", time.Now().Format("20060102_150405"), id)
	path := filepath.Join(l.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		l.log.Warn("bot: failed to write interaction log",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return
	}
	l.log.Debug("bot: interaction logged", slog.String("path", path))
}
