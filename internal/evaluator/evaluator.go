package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docchat/internal/domain"
)

const rubricPrompt = `You are a strict reviewer of question-answering systems.
Assess the answer below against the context excerpt it was based on.
Score each criterion from 0 to 10 with a one-sentence justification:
1. Relevance - does the answer address the question?
2. Faithfulness - is the answer supported by the context?
3. Completeness - does it cover what the context offers?
4. Clarity - is it easy to follow?
5. Conciseness - is it free of filler?
Finish with an overall score out of 10 and concrete suggestions for improvement.`

// Evaluator scores a synthesized answer against a fixed rubric with one
// extra completion call. The model's reply is kept verbatim: the report is
// advisory free text, not a machine-readable format.
type Evaluator struct {
	generator    domain.Generator
	temperature  float32
	contextChars int
	maxTokens    int
	log          *slog.Logger
}

func New(generator domain.Generator, temperature float64, contextChars, maxTokens int, log *slog.Logger) *Evaluator {
	if contextChars <= 0 {
		contextChars = 1000
	}
	if log == nil {
		log = slog.Default()
	}
	return &Evaluator{
		generator:    generator,
		temperature:  float32(temperature),
		contextChars: contextChars,
		maxTokens:    maxTokens,
		log:          log,
	}
}

// Request carries one finished turn to assess.
type Request struct {
	Question string
	Answer   string
	Context  []domain.ScoredChunk
	Model    string
}

// Evaluate issues one synchronous completion at the fixed low temperature
// and returns the report body. Failures degrade to a diagnostic string; the
// already-delivered answer is never affected.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) string {
	prompt := fmt.Sprintf("Question:\n%s\n\nContext excerpt:\n%s\n\nAnswer:\n%s",
		req.Question, e.excerpt(req.Context), req.Answer)

	report, err := e.generator.Complete(ctx, domain.CompletionRequest{
		Model:       req.Model,
		Temperature: e.temperature,
		MaxTokens:   e.maxTokens,
		Messages: []domain.Message{
			{Role: domain.RoleSystem, Content: rubricPrompt},
			{Role: domain.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		e.log.Error("evaluation failed", "error", err)
		return fmt.Sprintf("Evaluation unavailable: %v", err)
	}
	return strings.TrimSpace(report)
}

// excerpt concatenates the retrieved texts and keeps the leading
// contextChars characters; anything beyond is dropped.
func (e *Evaluator) excerpt(context []domain.ScoredChunk) string {
	var b strings.Builder
	for _, sc := range context {
		b.WriteString(sc.Chunk.Text)
		b.WriteString("\n")
	}
	runes := []rune(b.String())
	if len(runes) > e.contextChars {
		runes = runes[:e.contextChars]
	}
	return string(runes)
}
