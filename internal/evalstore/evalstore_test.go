package evalstore

import (
	"context"
	"math"
	"testing"
)

// openTestStore opens an in-memory Store for use in tests.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDetails() []Detail {
	return []Detail{
		{Question: "What torque for arm bolts?", GoldAnswer: "1.2 Nm", BotAnswer: "1.2 Nm per SOP-01.pdf (Page 4)", IsCorrect: true, CitationMatch: true, Latency: 1.5, RetrievalType: "hybrid"},
		{Question: "Storage voltage?", GoldAnswer: "3.8V per cell", BotAnswer: "Around 4.2V", IsCorrect: false, CitationMatch: false, Latency: 2.0, RetrievalType: "hybrid"},
	}
}

func Test_Store_SaveAndGetRun(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	run := Run{ModelName: "llama3.1:8b", Accuracy: 50, TotalQuestions: 2, AvgLatency: 1.75, RetrievalType: "hybrid"}
	runID, err := s.SaveRun(ctx, run, sampleDetails())
	if err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if got.ModelName != "llama3.1:8b" || got.TotalQuestions != 2 {
		t.Errorf("run mismatch: %+v", got)
	}
	// verified_accuracy starts equal to accuracy
	if got.VerifiedAccuracy != got.Accuracy {
		t.Errorf("verified_accuracy = %v, want %v", got.VerifiedAccuracy, got.Accuracy)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not persisted")
	}

	details, err := s.RunDetails(ctx, runID)
	if err != nil {
		t.Fatalf("run details: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("want 2 details, got %d", len(details))
	}
	if !details[0].IsCorrect || !details[0].VerifiedCorrect {
		t.Errorf("detail[0] should be correct and verified-correct: %+v", details[0])
	}
	if details[1].IsCorrect || details[1].VerifiedCorrect {
		t.Errorf("detail[1] should be incorrect: %+v", details[1])
	}
}

func Test_Store_RunsNewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.SaveRun(ctx, Run{ModelName: "a", Accuracy: 10, TotalQuestions: 1}, nil)
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := s.SaveRun(ctx, Run{ModelName: "b", Accuracy: 20, TotalQuestions: 1}, nil)
	if err != nil {
		t.Fatalf("save second: %v", err)
	}

	runs, err := s.Runs(ctx)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("want 2 runs, got %d", len(runs))
	}
	if runs[0].ID != second || runs[1].ID != first {
		t.Errorf("runs not newest-first: %v, %v", runs[0].ID, runs[1].ID)
	}
}

func Test_Store_RunLinksToLatestIngestionConfig(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.LogIngestionConfig(ctx, IngestionConfig{ChunkSize: 500, Overlap: 100, EmbeddingModel: "nomic-embed-text", IngestionType: "standard"}); err != nil {
		t.Fatalf("log config 1: %v", err)
	}
	latest, err := s.LogIngestionConfig(ctx, IngestionConfig{
		ChunkSize: 1000, Overlap: 200, EmbeddingModel: "nomic-embed-text", IngestionType: "structure",
		Configuration: map[string]any{"max_chunk_size": 1500},
	})
	if err != nil {
		t.Fatalf("log config 2: %v", err)
	}

	runID, err := s.SaveRun(ctx, Run{ModelName: "m", Accuracy: 100, TotalQuestions: 1}, nil)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.IngestionConfigID != latest {
		t.Errorf("ingestion_config_id = %d, want %d", run.IngestionConfigID, latest)
	}

	cfg, err := s.GetIngestionConfig(ctx, latest)
	if err != nil {
		t.Fatalf("get ingestion config: %v", err)
	}
	if cfg.IngestionType != "structure" || cfg.ChunkSize != 1000 {
		t.Errorf("config mismatch: %+v", cfg)
	}
	if cfg.Configuration["max_chunk_size"] != float64(1500) {
		t.Errorf("configuration_json not round-tripped: %v", cfg.Configuration)
	}
}

func Test_Store_RunWithoutIngestionConfig(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveRun(ctx, Run{ModelName: "m", Accuracy: 100, TotalQuestions: 1}, nil)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.IngestionConfigID != 0 {
		t.Errorf("ingestion_config_id = %d, want 0", run.IngestionConfigID)
	}
}

func Test_Store_SetVerifiedRecomputesAccuracy(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	runID, err := s.SaveRun(ctx, Run{ModelName: "m", Accuracy: 50, TotalQuestions: 2, RetrievalType: "hybrid"}, sampleDetails())
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	details, err := s.RunDetails(ctx, runID)
	if err != nil {
		t.Fatalf("run details: %v", err)
	}

	// A human reviewer decides the second answer was actually acceptable.
	if err := s.SetVerified(ctx, details[1].ID, true); err != nil {
		t.Fatalf("set verified: %v", err)
	}

	run, err := s.GetRun(ctx, runID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if math.Abs(run.VerifiedAccuracy-100) > 1e-9 {
		t.Errorf("verified_accuracy = %v, want 100", run.VerifiedAccuracy)
	}
	if run.Accuracy != 50 {
		t.Errorf("raw accuracy must stay untouched, got %v", run.Accuracy)
	}

	details, err = s.RunDetails(ctx, runID)
	if err != nil {
		t.Fatalf("run details after verify: %v", err)
	}
	if !details[1].VerifiedCorrect {
		t.Error("detail not marked verified-correct")
	}
	if details[1].IsCorrect {
		t.Error("raw is_correct must stay untouched")
	}
}

func Test_Store_SetVerifiedUnknownDetail(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.SetVerified(context.Background(), 999, true); err == nil {
		t.Fatal("expected error for unknown detail id")
	}
}

func Test_Store_EmptyRunsReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	runs, err := s.Runs(context.Background())
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("want 0 runs, got %d", len(runs))
	}
}
