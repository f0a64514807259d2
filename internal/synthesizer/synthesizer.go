package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"docchat/internal/domain"
)

// FallbackMessage is yielded as the only token when the model returns no
// usable text.
const FallbackMessage = "I couldn't find a relevant response. Could you rephrase your question?"

const systemPrompt = `You are an assistant answering questions about a set of documents.
Answer using only the context below. If the context does not contain the
answer, say so instead of guessing. Keep answers clear and to the point.`

// defaultPromptBudget bounds the token size of one completion request,
// leaving room for the reply within common context windows.
const defaultPromptBudget = 6144

// Request carries everything one synthesis turn depends on.
type Request struct {
	Question    string
	Context     []domain.ScoredChunk
	History     []domain.Turn
	Model       string
	Temperature float32
}

// Synthesizer produces a natural-language answer from retrieved context and
// conversation history, delivered as a token stream.
type Synthesizer struct {
	generator    domain.Generator
	maxTokens    int
	promptBudget int
	log          *slog.Logger
}

func New(generator domain.Generator, maxTokens int, log *slog.Logger) *Synthesizer {
	if log == nil {
		log = slog.Default()
	}
	return &Synthesizer{
		generator:    generator,
		maxTokens:    maxTokens,
		promptBudget: defaultPromptBudget,
		log:          log,
	}
}

// Synthesize streams tokens over the returned channel; the channel is closed
// when generation completes. Upstream failures never escape as errors: an
// empty reply degrades to FallbackMessage and a failed call degrades to a
// single diagnostic token.
func (s *Synthesizer) Synthesize(ctx context.Context, req Request) <-chan string {
	out := make(chan string, 16)
	go func() {
		defer close(out)

		messages := s.buildMessages(req)
		stream, err := s.generator.StreamComplete(ctx, domain.CompletionRequest{
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   s.maxTokens,
			Messages:    messages,
		})
		if err != nil {
			s.log.Error("starting completion stream", "error", err)
			out <- fmt.Sprintf("An error occurred: %v", err)
			return
		}
		defer stream.Close()

		emitted := false
		for {
			delta, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				s.log.Error("reading completion stream", "error", err)
				out <- fmt.Sprintf("An error occurred: %v", err)
				return
			}
			if !emitted {
				delta = strings.TrimLeft(delta, " \t\r\n")
			}
			if delta == "" {
				continue
			}
			emitted = true
			out <- delta
		}
		if !emitted {
			out <- FallbackMessage
		}
	}()
	return out
}

// buildMessages lays out system prompt + context, prior turns, and the
// question, trimming the oldest turns while the request exceeds the token
// budget.
func (s *Synthesizer) buildMessages(req Request) []domain.Message {
	var ctxBuilder strings.Builder
	for _, sc := range req.Context {
		fmt.Fprintf(&ctxBuilder, "[Source: %s]\n%s\n\n", sc.Chunk.DocName, sc.Chunk.Text)
	}
	system := systemPrompt + "\n\nContext:\n" + ctxBuilder.String()

	history := req.History
	for {
		messages := assemble(system, history, req.Question)
		tokens := s.countTokens(messages)
		if tokens <= s.promptBudget || len(history) == 0 {
			s.log.Debug("prompt assembled", "tokens", tokens, "history_turns", len(history))
			return messages
		}
		history = history[1:]
	}
}

func assemble(system string, history []domain.Turn, question string) []domain.Message {
	messages := make([]domain.Message, 0, 2*len(history)+2)
	messages = append(messages, domain.Message{Role: domain.RoleSystem, Content: system})
	for _, turn := range history {
		messages = append(messages,
			domain.Message{Role: domain.RoleUser, Content: turn.Question},
			domain.Message{Role: domain.RoleAssistant, Content: turn.Answer},
		)
	}
	return append(messages, domain.Message{Role: domain.RoleUser, Content: question})
}

// countTokens measures message content with the cl100k_base encoding. If the
// encoding cannot be loaded the budget check is skipped rather than failing
// the turn.
func (s *Synthesizer) countTokens(messages []domain.Message) int {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		s.log.Warn("token encoding unavailable, skipping prompt trim", "error", err)
		return 0
	}
	total := 0
	for _, m := range messages {
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total
}
