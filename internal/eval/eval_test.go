package eval

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/aerostream/aeros/internal/answer"
	"github.com/aerostream/aeros/internal/evalstore"
)

// verdictModel replies CORRECT or INCORRECT depending on whether the bot
// answer in the prompt contains "1.2 Nm".
type verdictModel struct{}

func (verdictModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if strings.Contains(input[0].Content, "1.2 Nm") {
		return schema.AssistantMessage("CORRECT", nil), nil
	}
	return schema.AssistantMessage("INCORRECT", nil), nil
}

func (verdictModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

// cannedModel replies with a fixed string.
type cannedModel struct{ reply string }

func (m cannedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m cannedModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, nil
}

// fakeAnswerer maps questions to canned pipeline results.
type fakeAnswerer struct {
	answers map[string]string
}

func (f *fakeAnswerer) Answer(ctx context.Context, query string) (*answer.Result, error) {
	return &answer.Result{
		Answer:          f.answers[query],
		RetrievedChunks: []string{"chunk"},
		Model:           "llama3.1:8b",
		RetrievalType:   "hybrid",
		Latency:         100 * time.Millisecond,
	}, nil
}

func writeTestSet(t *testing.T, pairs []QAPair) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_set.json")
	data, err := json.Marshal(map[string]any{"qa_pairs": pairs})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadTestSet(t *testing.T) {
	t.Parallel()

	path := writeTestSet(t, []QAPair{
		{Question: "q1", Answer: "a1", Location: "SOP-01"},
		{Question: "q2", Answer: "a2"},
	})

	pairs, err := LoadTestSet(path)
	if err != nil {
		t.Fatalf("LoadTestSet failed: %v", err)
	}
	if len(pairs) != 2 {
		t.Fatalf("want 2 pairs, got %d", len(pairs))
	}
	if pairs[0].Location != "SOP-01" {
		t.Errorf("location = %q", pairs[0].Location)
	}
}

func TestLoadTestSet_Errors(t *testing.T) {
	t.Parallel()

	if _, err := LoadTestSet(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(empty, []byte(`{"qa_pairs": []}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadTestSet(empty); err == nil {
		t.Error("expected error for empty test set")
	}
}

func TestJudge_Verdicts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply string
		want  bool
	}{
		{"bare correct", "CORRECT", true},
		{"bare incorrect", "INCORRECT", false},
		{"lowercase", "correct", true},
		{"chatty correct", "The answer is CORRECT because it covers the facts.", true},
		// INCORRECT contains CORRECT as a substring; INCORRECT wins.
		{"chatty incorrect", "I would say INCORRECT here.", false},
		{"no verdict", "I cannot decide.", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			j := NewJudge(cannedModel{reply: tc.reply})
			got, err := j.Correct(context.Background(), "q", "bot", "gold")
			if err != nil {
				t.Fatalf("Correct failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("Correct = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHarness_Run(t *testing.T) {
	t.Parallel()

	path := writeTestSet(t, []QAPair{
		{Question: "What torque for the arm bolts?", Answer: "1.2 Nm", Location: "SOP-01"},
		{Question: "Storage voltage?", Answer: "3.8V per cell", Location: "SOP-02"},
	})

	store, err := evalstore.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	answerer := &fakeAnswerer{answers: map[string]string{
		"What torque for the arm bolts?": "Torque them to 1.2 Nm.\n\n*References:*\n• SOP-01.pdf (Page 4)",
		"Storage voltage?":               "I don't know.",
	}}

	resultsDir := t.TempDir()
	h, err := NewHarness(answerer, NewJudge(verdictModel{}), store, "llama3.1:8b", resultsDir, slog.Default())
	if err != nil {
		t.Fatalf("NewHarness failed: %v", err)
	}

	summary, err := h.Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.TotalQuestions != 2 || summary.CorrectAnswers != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.Accuracy != 50 {
		t.Errorf("accuracy = %v, want 50", summary.Accuracy)
	}
	if summary.AvgLatency <= 0 {
		t.Error("avg latency not computed")
	}
	if summary.RunID == 0 {
		t.Error("run not persisted")
	}

	// Details landed in the store with citation matching applied.
	details, err := store.RunDetails(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("run details: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("want 2 details, got %d", len(details))
	}
	if !details[0].IsCorrect || !details[0].CitationMatch {
		t.Errorf("detail[0] = %+v, want correct with citation match", details[0])
	}
	if details[1].IsCorrect || details[1].CitationMatch {
		t.Errorf("detail[1] = %+v, want incorrect without citation match", details[1])
	}

	// The JSON results file exists and carries the run metadata.
	if summary.ResultsPath == "" {
		t.Fatal("results path not set")
	}
	data, err := os.ReadFile(summary.ResultsPath)
	if err != nil {
		t.Fatalf("read results file: %v", err)
	}
	var out resultsFile
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("parse results file: %v", err)
	}
	if out.Metadata.Accuracy != "50.00%" {
		t.Errorf("metadata accuracy = %q", out.Metadata.Accuracy)
	}
	if len(out.Results) != 2 {
		t.Errorf("results file holds %d records", len(out.Results))
	}
}
