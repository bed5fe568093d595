package budget

import (
	"strings"
	"testing"

	"github.com/aerostream/aeros/internal/rag"
)

func Test_Estimate(t *testing.T) {
	t.Parallel()
	cases := []struct {
		input string
		want  int
	}{
		{"", 0},
		{"a", 1},        // < 4 chars → 1
		{"abcd", 1},     // exactly 4 chars → 1
		{"abcde", 1},    // 5 chars → 1
		{"abcdefgh", 2}, // 8 chars → 2
		{strings.Repeat("x", 400), 100},
	}
	for _, tc := range cases {
		got := Estimate(tc.input)
		if got != tc.want {
			t.Errorf("Estimate(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func Test_EstimateDocuments(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "hello world"}, // 2 overhead + 2 (content) = 4
		{Content: "hello world"},
	}
	got := EstimateDocuments(docs)
	if got != 8 {
		t.Errorf("EstimateDocuments = %d, want 8", got)
	}
}

func Test_TrimDocuments_NoTrimNeeded(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: "torque spec for arm bolts"},
		{Content: "ESC calibration steps"},
	}
	got := TrimDocuments(docs, 100, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 documents, got %d", len(got))
	}
}

func Test_TrimDocuments_DropsLowestRanked(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: strings.Repeat("a", 400), Score: 0.9}, // ~102 tokens incl. overhead
		{Content: strings.Repeat("b", 400), Score: 0.5},
	}
	// Two documents = 204 tokens, one = 102. Budget of 150 with no reserve
	// fits exactly one — the lower-scored trailing document must go.
	got := TrimDocuments(docs, 0, 150)
	if len(got) != 1 {
		t.Fatalf("want 1 document after trim, got %d", len(got))
	}
	if got[0].Score != 0.9 {
		t.Errorf("want top-ranked document retained, got score %v", got[0].Score)
	}
}

func Test_TrimDocuments_KeepsAtLeastOne(t *testing.T) {
	t.Parallel()
	docs := []rag.Document{
		{Content: strings.Repeat("x", 4*7000)}, // ~7000 tokens, over any budget
	}
	got := TrimDocuments(docs, 0, 6000)
	if len(got) != 1 {
		t.Errorf("want 1 document, got %d", len(got))
	}
}

func Test_TrimDocuments_Empty(t *testing.T) {
	t.Parallel()
	got := TrimDocuments(nil, 0, DefaultMaxContextTokens)
	if len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}
