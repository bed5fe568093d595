// Package eval runs the evaluation harness: every test-set question goes
// through the full answer pipeline, an LLM judge scores correctness, and the
// results are persisted to the evaluation store plus a JSON results file.
package eval

import (
	"encoding/json"
	"fmt"
	"os"
)

// QAPair is one test case: a question, its gold answer, and the expected
// citation location (e.g. "SOP-01").
type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Location string `json:"location"`
}

type testSet struct {
	QAPairs []QAPair `json:"qa_pairs"`
}

// LoadTestSet reads a JSON test set of the form {"qa_pairs": [...]}.
func LoadTestSet(path string) ([]QAPair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("eval: failed to read test set %s: %w", path, err)
	}

	var ts testSet
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, fmt.Errorf("eval: failed to parse test set %s: %w", path, err)
	}
	if len(ts.QAPairs) == 0 {
		return nil, fmt.Errorf("eval: test set %s holds no qa_pairs", path)
	}
	return ts.QAPairs, nil
}
