package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

type fakeGenerator struct {
	reply   string
	err     error
	lastReq domain.CompletionRequest
}

func (f *fakeGenerator) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.lastReq = req
	return f.reply, f.err
}

func (f *fakeGenerator) StreamComplete(_ context.Context, _ domain.CompletionRequest) (domain.CompletionStream, error) {
	return nil, errors.New("not used")
}

func TestEvaluateReturnsReportBody(t *testing.T) {
	gen := &fakeGenerator{reply: "  Relevance: 9/10 ...\nOverall: 8/10\n"}
	e := New(gen, 0.1, 1000, 1024, nil)

	report := e.Evaluate(context.Background(), Request{
		Question: "What changed?",
		Answer:   "The policy changed.",
		Model:    "gpt-4o-mini",
	})
	assert.Equal(t, "Relevance: 9/10 ...\nOverall: 8/10", report)
}

func TestEvaluateUsesFixedLowTemperature(t *testing.T) {
	gen := &fakeGenerator{reply: "report"}
	e := New(gen, 0.1, 1000, 256, nil)

	e.Evaluate(context.Background(), Request{Question: "q", Answer: "a", Model: "gpt-4o"})
	assert.Equal(t, "gpt-4o", gen.lastReq.Model)
	assert.InDelta(t, 0.1, gen.lastReq.Temperature, 1e-6)
	assert.Equal(t, 256, gen.lastReq.MaxTokens)
	require.Len(t, gen.lastReq.Messages, 2)
	assert.Equal(t, domain.RoleSystem, gen.lastReq.Messages[0].Role)
	assert.Contains(t, gen.lastReq.Messages[0].Content, "Faithfulness")
}

func TestEvaluateCapsContextExcerpt(t *testing.T) {
	gen := &fakeGenerator{reply: "report"}
	e := New(gen, 0.1, 1000, 1024, nil)

	long := strings.Repeat("x", 3000)
	e.Evaluate(context.Background(), Request{
		Question: "q",
		Answer:   "a",
		Context:  []domain.ScoredChunk{{Chunk: domain.Chunk{Text: long}}},
		Model:    "gpt-4o-mini",
	})

	prompt := gen.lastReq.Messages[1].Content
	assert.Contains(t, prompt, strings.Repeat("x", 1000))
	assert.NotContains(t, prompt, strings.Repeat("x", 1001))
}

func TestEvaluateFailureDegradesToDiagnostic(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("rate limited")}
	e := New(gen, 0.1, 1000, 1024, nil)

	report := e.Evaluate(context.Background(), Request{Question: "q", Answer: "a", Model: "gpt-4o-mini"})
	assert.Contains(t, report, "Evaluation unavailable:")
	assert.Contains(t, report, "rate limited")
}
