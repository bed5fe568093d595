package ingest

import (
	"context"
	"strings"
	"testing"
)

func TestStandardChunker_WindowsWithOverlap(t *testing.T) {
	t.Parallel()

	c := NewStandardChunker(10, 4)
	text := strings.Repeat("abcdef", 5) // 30 chars

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}

	// Every chunk except possibly the last is exactly the window size.
	for i, chunk := range chunks[:len(chunks)-1] {
		if len(chunk) != 10 {
			t.Errorf("chunk[%d] len = %d, want 10", i, len(chunk))
		}
	}

	// Consecutive chunks share the overlap region.
	first := chunks[0]
	second := chunks[1]
	if !strings.HasPrefix(second, first[len(first)-4:]) {
		t.Errorf("chunk[1] %q does not start with chunk[0] overlap %q", second, first[len(first)-4:])
	}
}

func TestStandardChunker_Empty(t *testing.T) {
	t.Parallel()

	c := NewStandardChunker(0, -1) // defaults
	chunks, err := c.Chunk(context.Background(), "")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
}

func TestStandardChunker_ShortTextSingleChunk(t *testing.T) {
	t.Parallel()

	c := NewStandardChunker(1000, 200)
	chunks, err := c.Chunk(context.Background(), "Torque the arm bolts to 1.2 Nm.")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestSplitSentences_ProtectsNumbers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "plain sentences",
			text: "Check the props. Replace if cracked! Is the ESC armed? Yes.",
			want: []string{"Check the props.", "Replace if cracked!", "Is the ESC armed?", "Yes."},
		},
		{
			name: "numbered list items stay attached",
			text: "Follow the steps: 1. Attach the arm 2. Torque the bolts",
			want: []string{"Follow the steps: 1. Attach the arm 2. Torque the bolts"},
		},
		{
			name: "decimals never split",
			text: "Use 2.5 Nm of torque. Then recheck.",
			want: []string{"Use 2.5 Nm of torque.", "Then recheck."},
		},
		{
			name: "part number terminated sentence",
			text: "Install part #RA-400. The washer goes on top.",
			// The period follows a digit, so no break after the part number.
			want: []string{"Install part #RA-400. The washer goes on top."},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := splitSentences(tc.text)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d sentences %q, want %d %q", len(got), got, len(tc.want), tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("sentence[%d] = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

// directionEmbedder maps sentences about "motor" and "battery" to orthogonal
// vectors so grouping behavior is predictable.
type directionEmbedder struct{}

func (directionEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.Contains(strings.ToLower(t), "battery") {
			out[i] = []float32{0, 1}
		} else {
			out[i] = []float32{1, 0}
		}
	}
	return out, nil
}

func TestSemanticChunker_GroupsBySimilarity(t *testing.T) {
	t.Parallel()

	c := NewSemanticChunker(directionEmbedder{}, 0.4, 1)
	text := "Mount the motor on the arm. Tighten the motor screws evenly. " +
		"Store the battery at room temperature. Never puncture the battery casing."

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if !strings.Contains(chunks[0], "motor") || strings.Contains(chunks[0], "battery") {
		t.Errorf("chunk[0] should hold motor sentences only: %q", chunks[0])
	}
	if !strings.Contains(chunks[1], "battery") {
		t.Errorf("chunk[1] should hold battery sentences: %q", chunks[1])
	}
}

func TestSemanticChunker_MergesSmallChunks(t *testing.T) {
	t.Parallel()

	// minSize large enough that the battery group is folded back.
	c := NewSemanticChunker(directionEmbedder{}, 0.4, 500)
	text := "Mount the motor on the arm. Store the battery safely."

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected merged single chunk, got %d: %q", len(chunks), chunks)
	}
}

func TestSemanticChunker_SingleSentenceSkipsEmbedding(t *testing.T) {
	t.Parallel()

	c := NewSemanticChunker(failingEmbedder{}, 0.4, 100)
	chunks, err := c.Chunk(context.Background(), "Only one sentence here.")
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
}

func TestStructureChunker_SplitsAtHeaders(t *testing.T) {
	t.Parallel()

	c := NewStructureChunker(1500, 10)
	text := "MOTOR INSTALLATION\n" +
		"1. Place the motor on the mount.\n" +
		"2. Torque each screw to 1.2 Nm.\n" +
		"\n" +
		"BATTERY SAFETY\n" +
		"Never charge unattended.\n" +
		"Store at 3.8V per cell."

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "MOTOR INSTALLATION") {
		t.Errorf("chunk[0] should start at the first header: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "BATTERY SAFETY") {
		t.Errorf("chunk[1] should start at the second header: %q", chunks[1])
	}
}

func TestStructureChunker_TableRowsMayOverflow(t *testing.T) {
	t.Parallel()

	c := NewStructureChunker(40, 5)
	row := "| part | torque | tool |" // 24 chars
	text := "SPEC TABLE\n" + row + "\n" + row + "\n" + row

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	// Rows fit within the 1.5× limit (60 chars) before a split happens,
	// so no chunk should hold a partial row.
	for i, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || line == "SPEC TABLE" {
				continue
			}
			if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
				t.Errorf("chunk[%d] holds a split table row: %q", i, line)
			}
		}
	}
}

func TestStructureChunker_MergesSmallChunks(t *testing.T) {
	t.Parallel()

	c := NewStructureChunker(1500, 200)
	text := "INTRO:\nshort\n\nDETAILS:\n" + strings.Repeat("The assembly sequence matters. ", 10)

	chunks, err := c.Chunk(context.Background(), text)
	if err != nil {
		t.Fatalf("Chunk failed: %v", err)
	}
	for i, chunk := range chunks {
		if len(chunk) < 200 && len(chunks) > 1 {
			t.Errorf("chunk[%d] under min size survived merge: %q", i, chunk)
		}
	}
}

func TestNewChunker_Factory(t *testing.T) {
	t.Parallel()

	if _, err := NewChunker(ChunkerConfig{Strategy: "standard"}); err != nil {
		t.Errorf("standard: %v", err)
	}
	if _, err := NewChunker(ChunkerConfig{Strategy: ""}); err != nil {
		t.Errorf("default: %v", err)
	}
	if _, err := NewChunker(ChunkerConfig{Strategy: "structure"}); err != nil {
		t.Errorf("structure: %v", err)
	}
	if _, err := NewChunker(ChunkerConfig{Strategy: "semantic", Embedder: directionEmbedder{}}); err != nil {
		t.Errorf("semantic: %v", err)
	}
	if _, err := NewChunker(ChunkerConfig{Strategy: "semantic"}); err == nil {
		t.Error("semantic without embedder should fail")
	}
	if _, err := NewChunker(ChunkerConfig{Strategy: "recursive"}); err == nil {
		t.Error("unknown strategy should fail")
	}
}
