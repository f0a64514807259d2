package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"docchat/internal/session"
)

func newTestModel() Model {
	svc := session.New(session.Config{
		Models:             []string{"gpt-4o-mini"},
		DefaultModel:       "gpt-4o-mini",
		DefaultTemperature: 0.3,
		MaxSelected:        4,
	}, session.Deps{})
	return New(svc, []string{"a.txt"})
}

func TestTranscriptShowsInFlightQuestion(t *testing.T) {
	m := newTestModel()
	m.question = "What is chunking?"
	m.pending = "Chunking is"

	out := m.renderTranscript()
	assert.Contains(t, out, "What is chunking?")
	assert.Contains(t, out, "Chunking is")
	assert.Less(t, strings.Index(out, "What is chunking?"), strings.Index(out, "Chunking is"),
		"the question renders above the streaming answer")
}

func TestTranscriptShowsQuestionBeforeFirstToken(t *testing.T) {
	m := newTestModel()
	m.question = "Still thinking?"

	out := m.renderTranscript()
	assert.Contains(t, out, "Still thinking?")
}

func TestTranscriptEmptyPlaceholder(t *testing.T) {
	m := newTestModel()
	assert.Contains(t, m.renderTranscript(), "No messages yet")
}
