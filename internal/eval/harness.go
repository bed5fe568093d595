package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aerostream/aeros/internal/answer"
	"github.com/aerostream/aeros/internal/evalstore"
)

// Answerer runs the answer pipeline for one query. *answer.Engine satisfies
// it; tests substitute a fake.
type Answerer interface {
	Answer(ctx context.Context, query string) (*answer.Result, error)
}

// Summary aggregates one evaluation run.
type Summary struct {
	RunID          int64
	Accuracy       float64
	TotalQuestions int
	CorrectAnswers int
	AvgLatency     float64
	ResultsPath    string
}

// resultRecord is one question's entry in the JSON results file.
type resultRecord struct {
	Timestamp        string   `json:"timestamp"`
	Question         string   `json:"question"`
	GoldAnswer       string   `json:"gold_answer"`
	ExpectedLocation string   `json:"expected_location"`
	BotAnswer        string   `json:"bot_answer"`
	RetrievedChunks  []string `json:"retrieved_chunks"`
	ModelUsed        string   `json:"model_used"`
	RetrievalType    string   `json:"retrieval_type"`
	LatencySeconds   float64  `json:"latency_seconds"`
	IsCorrect        bool     `json:"is_correct"`
	CitationMatch    bool     `json:"citation_match"`
}

type resultsFile struct {
	Metadata struct {
		Model              string `json:"model"`
		ExecutionTimestamp string `json:"execution_timestamp"`
		Accuracy           string `json:"accuracy"`
		TotalQuestions     int    `json:"total_questions"`
		CorrectAnswers     int    `json:"correct_answers"`
	} `json:"metadata"`
	Results []resultRecord `json:"results"`
}

// Harness evaluates the answer pipeline over a test set.
type Harness struct {
	answerer   Answerer
	judge      *Judge
	store      *evalstore.Store
	modelName  string
	resultsDir string
	log        *slog.Logger
}

// NewHarness constructs a Harness. store may be nil to skip persistence;
// resultsDir defaults to "evaluation_results".
func NewHarness(a Answerer, judge *Judge, store *evalstore.Store, modelName, resultsDir string, log *slog.Logger) (*Harness, error) {
	if a == nil {
		return nil, fmt.Errorf("eval: answerer must not be nil")
	}
	if judge == nil {
		return nil, fmt.Errorf("eval: judge must not be nil")
	}
	if resultsDir == "" {
		resultsDir = "evaluation_results"
	}
	return &Harness{
		answerer:   a,
		judge:      judge,
		store:      store,
		modelName:  modelName,
		resultsDir: resultsDir,
		log:        log,
	}, nil
}

// Run executes the full harness over the test set at path and returns the
// run summary.
func (h *Harness) Run(ctx context.Context, testSetPath string) (*Summary, error) {
	pairs, err := LoadTestSet(testSetPath)
	if err != nil {
		return nil, err
	}
	h.log.Info("eval: test set loaded",
		slog.String("path", testSetPath),
		slog.Int("questions", len(pairs)),
	)

	var (
		records      []resultRecord
		details      []evalstore.Detail
		correct      int
		totalLatency float64
	)

	for i, pair := range pairs {
		h.log.Info("eval: running test",
			slog.Int("index", i+1),
			slog.Int("total", len(pairs)),
			slog.String("question", pair.Question),
		)

		res, err := h.answerer.Answer(ctx, pair.Question)
		if err != nil {
			return nil, fmt.Errorf("eval: pipeline failed on question %d: %w", i+1, err)
		}
		latency := res.Latency.Seconds()
		totalLatency += latency

		isCorrect, err := h.judge.Correct(ctx, pair.Question, res.Answer, pair.Answer)
		if err != nil {
			// A judge failure scores the answer incorrect rather than
			// aborting a long evaluation run.
			h.log.Warn("eval: judge failed, scoring incorrect",
				slog.Int("index", i+1),
				slog.String("error", err.Error()),
			)
			isCorrect = false
		}
		if isCorrect {
			correct++
		}

		citationMatch := pair.Location != "" && pair.Location != "N/A" &&
			strings.Contains(res.Answer, pair.Location)

		records = append(records, resultRecord{
			Timestamp:        time.Now().Format(time.RFC3339),
			Question:         pair.Question,
			GoldAnswer:       pair.Answer,
			ExpectedLocation: pair.Location,
			BotAnswer:        res.Answer,
			RetrievedChunks:  res.RetrievedChunks,
			ModelUsed:        res.Model,
			RetrievalType:    res.RetrievalType,
			LatencySeconds:   latency,
			IsCorrect:        isCorrect,
			CitationMatch:    citationMatch,
		})
		details = append(details, evalstore.Detail{
			Question:      pair.Question,
			GoldAnswer:    pair.Answer,
			BotAnswer:     res.Answer,
			IsCorrect:     isCorrect,
			CitationMatch: citationMatch,
			Latency:       latency,
			RetrievalType: res.RetrievalType,
		})
	}

	accuracy := float64(correct) / float64(len(pairs)) * 100
	avgLatency := totalLatency / float64(len(pairs))

	summary := &Summary{
		Accuracy:       accuracy,
		TotalQuestions: len(pairs),
		CorrectAnswers: correct,
		AvgLatency:     avgLatency,
	}

	resultsPath, err := h.writeResults(records, summary)
	if err != nil {
		return nil, err
	}
	summary.ResultsPath = resultsPath

	if h.store != nil {
		retrievalType := "unknown"
		if len(details) > 0 {
			retrievalType = details[0].RetrievalType
		}
		runID, err := h.store.SaveRun(ctx, evalstore.Run{
			ModelName:      h.modelName,
			Accuracy:       accuracy,
			TotalQuestions: len(pairs),
			AvgLatency:     avgLatency,
			RetrievalType:  retrievalType,
		}, details)
		if err != nil {
			return nil, err
		}
		summary.RunID = runID
	}

	h.log.Info("eval: run complete",
		slog.Float64("accuracy", accuracy),
		slog.Int("correct", correct),
		slog.Int("total", len(pairs)),
		slog.Float64("avg_latency_seconds", avgLatency),
	)
	return summary, nil
}

// writeResults saves the timestamped JSON results file and returns its path.
func (h *Harness) writeResults(records []resultRecord, summary *Summary) (string, error) {
	if err := os.MkdirAll(h.resultsDir, 0o755); err != nil {
		return "", fmt.Errorf("eval: failed to create results dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	path := filepath.Join(h.resultsDir, fmt.Sprintf("evaluation_results_%s.json", stamp))

	var out resultsFile
	out.Metadata.Model = h.modelName
	out.Metadata.ExecutionTimestamp = stamp
	out.Metadata.Accuracy = fmt.Sprintf("%.2f%%", summary.Accuracy)
	out.Metadata.TotalQuestions = summary.TotalQuestions
	out.Metadata.CorrectAnswers = summary.CorrectAnswers
	out.Results = records

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("eval: failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("eval: failed to write results file: %w", err)
	}
	return path, nil
}
