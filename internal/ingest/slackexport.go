package ingest

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// exportThread is one thread record in a Slack conversation export file.
type exportThread struct {
	ParentMessage string   `json:"parent_message"`
	Replies       []string `json:"replies"`
}

// LoadSlackExports reads Slack conversation export files (*.json) from dir.
// Each file holds an array of {parent_message, replies[]} thread records;
// every thread becomes one atomic Unit rendered as a question/answer pair.
func LoadSlackExports(dir string, log *slog.Logger) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ingest: failed to read export directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var units []Unit
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("ingest: failed to read export %s: %w", name, err)
		}

		var threads []exportThread
		if err := json.Unmarshal(data, &threads); err != nil {
			log.Warn("ingest: skipping malformed Slack export",
				slog.String("file", name),
				slog.String("error", err.Error()),
			)
			continue
		}

		count := 0
		for _, th := range threads {
			u, ok := renderExportThread(th, name)
			if !ok {
				continue
			}
			units = append(units, u)
			count++
		}
		log.Info("ingest: loaded Slack export",
			slog.String("file", name),
			slog.Int("threads", count),
		)
	}

	return units, nil
}

// renderExportThread formats one thread as a Q&A unit. Threads with an empty
// parent message are dropped; threads without replies keep the question only.
func renderExportThread(th exportThread, source string) (Unit, bool) {
	parent := strings.TrimSpace(th.ParentMessage)
	if parent == "" {
		return Unit{}, false
	}

	var b strings.Builder
	b.WriteString("Question/Issue: ")
	b.WriteString(parent)
	replies := joinReplies(th.Replies)
	if replies != "" {
		b.WriteString("\nAnswer/Reply: ")
		b.WriteString(replies)
	}

	return Unit{
		Text:   b.String(),
		Source: source,
		Atomic: true,
		Metadata: map[string]string{
			"doc_type": "slack_export",
		},
	}, true
}

// joinReplies concatenates non-empty replies with a single space.
func joinReplies(replies []string) string {
	parts := make([]string, 0, len(replies))
	for _, r := range replies {
		if r = strings.TrimSpace(r); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, " ")
}
