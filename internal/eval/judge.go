package eval

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultJudgeModel is the default model used for judging answers. A larger
// model than the guard gives better reasoning on paraphrased answers.
const DefaultJudgeModel = "llama3.1:8b"

// judgePromptFormat asks for a bare CORRECT/INCORRECT verdict.
const judgePromptFormat = `You are an impartial judge evaluating a chatbot's response.

Question: %s

Gold Answer: %s

Bot Answer: %s

Does the Bot Answer contain the information present in the Gold Answer?

Respond 'INCORRECT' if:
- The bot says "I don't know", "I can't help", or similar.
- The bot's answer is missing the key facts from the Gold Answer.
- The bot's answer contradicts the Gold Answer.

Respond 'CORRECT' if:
- The bot's answer contains the core facts from the Gold Answer (even if phrased differently).

Respond with ONLY 'CORRECT' or 'INCORRECT'.`

// Judge scores a bot answer against the gold answer with an LLM.
type Judge struct {
	model model.BaseChatModel
}

// NewJudge constructs a Judge over the given chat model.
func NewJudge(m model.BaseChatModel) *Judge {
	return &Judge{model: m}
}

// Correct asks the judge model whether botAnswer covers goldAnswer. Models
// sometimes reply with more than the bare verdict; since "INCORRECT" contains
// "CORRECT" as a substring, an INCORRECT anywhere in the reply wins.
func (j *Judge) Correct(ctx context.Context, question, botAnswer, goldAnswer string) (bool, error) {
	prompt := fmt.Sprintf(judgePromptFormat, question, goldAnswer, botAnswer)

	resp, err := j.model.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return false, fmt.Errorf("eval: judge generation failed: %w", err)
	}

	verdict := strings.ToUpper(strings.TrimSpace(resp.Content))
	if strings.Contains(verdict, "INCORRECT") {
		return false, nil
	}
	return strings.Contains(verdict, "CORRECT"), nil
}
