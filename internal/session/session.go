package session

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat/internal/docs"
	"docchat/internal/domain"
	"docchat/internal/evaluator"
	"docchat/internal/retriever"
	"docchat/internal/segmenter"
	"docchat/internal/synthesizer"
)

// State is the orchestrator's position in the turn lifecycle.
type State int

const (
	StateIdle       State = iota // no index
	StateIndexing                // build in progress
	StateReady                   // index available
	StateAnswering               // retrieval + synthesis in progress
	StateEvaluating              // advisory scoring in progress
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIndexing:
		return "indexing"
	case StateReady:
		return "ready"
	case StateAnswering:
		return "answering"
	case StateEvaluating:
		return "evaluating"
	default:
		return "unknown"
	}
}

// Settings are the per-session knobs, mutable between turns and read-only
// while a turn is processing.
type Settings struct {
	Model       string
	Temperature float64
	Evaluate    bool
}

// BuildReport summarizes one index build for the UI.
type BuildReport struct {
	Documents int
	Chunks    int
	Truncated int // selected documents beyond the limit, ignored
}

// AnswerStream delivers one turn: Tokens streams the answer as it is
// generated, then Done carries the finished turn (including the evaluation
// report when enabled) after the stream closes.
type AnswerStream struct {
	Tokens <-chan string
	Done   <-chan domain.Turn
}

// Config holds the session's fixed bounds and initial settings.
type Config struct {
	Models             []string
	DefaultModel       string
	DefaultTemperature float64
	EvaluationEnabled  bool
	MaxSelected        int
}

// Session owns all mutable conversation state: settings, selection, index,
// and turn history. One Session serves one user; independent sessions never
// share an index.
type Session struct {
	mu       sync.Mutex
	state    State
	settings Settings
	models   []string
	maxDocs  int
	selected []string
	index    domain.Index
	turns    []domain.Turn

	loader    *docs.Loader
	segmenter *segmenter.Segmenter
	embedder  domain.Embedder
	builder   domain.IndexBuilder
	retriever *retriever.Retriever
	synth     *synthesizer.Synthesizer
	eval      *evaluator.Evaluator
	log       *slog.Logger
}

// Deps are the collaborating components, wired once at startup.
type Deps struct {
	Loader      *docs.Loader
	Segmenter   *segmenter.Segmenter
	Embedder    domain.Embedder
	Builder     domain.IndexBuilder
	Retriever   *retriever.Retriever
	Synthesizer *synthesizer.Synthesizer
	Evaluator   *evaluator.Evaluator
	Logger      *slog.Logger
}

func New(cfg Config, deps Deps) *Session {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Session{
		state: StateIdle,
		settings: Settings{
			Model:       cfg.DefaultModel,
			Temperature: cfg.DefaultTemperature,
			Evaluate:    cfg.EvaluationEnabled,
		},
		models:    cfg.Models,
		maxDocs:   cfg.MaxSelected,
		loader:    deps.Loader,
		segmenter: deps.Segmenter,
		embedder:  deps.Embedder,
		builder:   deps.Builder,
		retriever: deps.Retriever,
		synth:     deps.Synthesizer,
		eval:      deps.Evaluator,
		log:       log,
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Session) Models() []string { return s.models }

// Turns returns a copy of the conversation history.
func (s *Session) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.turns)
}

// IndexSize reports the chunk count of the published index, 0 when none.
func (s *Session) IndexSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return 0
	}
	return s.index.Len()
}

// ListDocuments enumerates the selectable documents.
func (s *Session) ListDocuments() ([]string, error) {
	return s.loader.List()
}

// SelectDocuments loads the named documents and rebuilds the index. At most
// MaxSelected documents are used; extras are dropped and reported. The
// previously published index stays active until the new build fully
// succeeds.
func (s *Session) SelectDocuments(ctx context.Context, names []string) (BuildReport, error) {
	if len(names) == 0 {
		return BuildReport{}, fmt.Errorf("%w: no documents selected", domain.ErrDocumentLoad)
	}
	truncated := 0
	if len(names) > s.maxDocs {
		truncated = len(names) - s.maxDocs
		names = names[:s.maxDocs]
	}
	report, err := s.rebuild(ctx, names)
	if err != nil {
		return BuildReport{}, err
	}
	report.Truncated = truncated
	return report, nil
}

// SetModel switches the generation model and, when documents are selected,
// rebuilds the index since embeddings and generation settings are tied to
// the model choice.
func (s *Session) SetModel(ctx context.Context, model string) error {
	if !slices.Contains(s.models, model) {
		return fmt.Errorf("%w: unknown model %q", domain.ErrInvalidConfig, model)
	}
	s.mu.Lock()
	prev := s.settings.Model
	s.settings.Model = model
	selected := slices.Clone(s.selected)
	s.mu.Unlock()
	if len(selected) == 0 {
		return nil
	}
	if _, err := s.rebuild(ctx, selected); err != nil {
		// The published index was built under the previous model; the
		// settings must keep matching it.
		s.mu.Lock()
		s.settings.Model = prev
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Session) SetTemperature(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: temperature must be in [0, 1], got %g", domain.ErrInvalidConfig, t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Temperature = t
	return nil
}

func (s *Session) SetEvaluation(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Evaluate = on
}

// Clear resets the conversation: history, selection, and index are dropped
// and the session returns to idle.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.selected = nil
	s.index = nil
	s.state = StateIdle
	s.log.Info("conversation cleared")
}

// rebuild runs the build phase: load, segment, embed, build, publish. Any
// failure leaves the previously published index and state untouched.
func (s *Session) rebuild(ctx context.Context, names []string) (BuildReport, error) {
	s.mu.Lock()
	prev := s.state
	s.state = StateIndexing
	s.mu.Unlock()

	restore := func() {
		s.mu.Lock()
		s.state = prev
		s.mu.Unlock()
	}

	documents, err := s.loader.Load(names)
	if err != nil {
		restore()
		return BuildReport{}, err
	}

	var chunks []domain.Chunk
	for _, doc := range documents {
		docChunks, err := s.segmenter.Segment(doc)
		if err != nil {
			restore()
			return BuildReport{}, err
		}
		chunks = append(chunks, docChunks...)
	}
	if len(chunks) == 0 {
		restore()
		return BuildReport{}, fmt.Errorf("%w: selected documents are empty", domain.ErrDocumentLoad)
	}

	// Embedding calls run sequentially; the first failure aborts the whole
	// batch and nothing is published.
	vectors := make([][]float32, len(chunks))
	for i := range chunks {
		vec, err := s.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			restore()
			return BuildReport{}, fmt.Errorf("embedding chunk %s: %w", chunks[i].ID, err)
		}
		vectors[i] = vec
	}

	idx, err := s.builder.Build(ctx, chunks, vectors)
	if err != nil {
		restore()
		return BuildReport{}, fmt.Errorf("building index: %w", err)
	}

	s.mu.Lock()
	s.index = idx
	s.selected = slices.Clone(names)
	s.state = StateReady
	s.mu.Unlock()

	s.log.Info("index built", "documents", len(documents), "chunks", len(chunks))
	return BuildReport{Documents: len(documents), Chunks: len(chunks)}, nil
}

// Ask runs one turn: retrieval, streamed synthesis, and the optional
// evaluation pass once the full answer is assembled. It returns immediately
// with the stream; primary-path failures surface as diagnostic tokens, never
// as errors on Done.
func (s *Session) Ask(ctx context.Context, question string) (*AnswerStream, error) {
	s.mu.Lock()
	switch s.state {
	case StateIdle:
		s.mu.Unlock()
		return nil, domain.ErrEmptyIndex
	case StateIndexing, StateAnswering, StateEvaluating:
		s.mu.Unlock()
		return nil, domain.ErrBusy
	}
	if s.index == nil {
		s.mu.Unlock()
		return nil, domain.ErrEmptyIndex
	}
	idx := s.index
	settings := s.settings
	history := slices.Clone(s.turns)
	s.state = StateAnswering
	s.mu.Unlock()

	tokens := make(chan string, 16)
	done := make(chan domain.Turn, 1)

	go s.runTurn(ctx, idx, settings, history, question, tokens, done)

	return &AnswerStream{Tokens: tokens, Done: done}, nil
}

func (s *Session) runTurn(ctx context.Context, idx domain.Index, settings Settings, history []domain.Turn, question string, tokens chan<- string, done chan<- domain.Turn) {
	retrieved, err := s.retriever.Query(ctx, idx, question)
	var answer string
	degraded := err != nil
	if degraded {
		// Primary-path degradation: the failure is shown in place of the
		// answer and the session stays usable.
		s.log.Error("retrieval failed", "error", err)
		answer = fmt.Sprintf("An error occurred: %v", err)
		tokens <- answer
		close(tokens)
	} else {
		var b []byte
		for token := range s.synth.Synthesize(ctx, synthesizer.Request{
			Question:    question,
			Context:     retrieved,
			History:     history,
			Model:       settings.Model,
			Temperature: float32(settings.Temperature),
		}) {
			b = append(b, token...)
			tokens <- token
		}
		close(tokens)
		answer = string(b)
	}

	turn := domain.Turn{
		ID:        uuid.New(),
		Question:  question,
		Answer:    answer,
		CreatedAt: time.Now(),
	}

	// A degraded turn carries a diagnostic instead of an answer; there is
	// nothing worth scoring.
	if settings.Evaluate && !degraded {
		s.setTurnState(StateEvaluating)
		turn.Report = s.eval.Evaluate(ctx, evaluator.Request{
			Question: question,
			Answer:   answer,
			Context:  retrieved,
			Model:    settings.Model,
		})
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	// A rebuild may have started against the old index while this turn was
	// finishing; only hand back to ready from a turn state.
	if s.state == StateAnswering || s.state == StateEvaluating {
		s.state = StateReady
	}
	s.mu.Unlock()

	done <- turn
	close(done)
}

func (s *Session) setTurnState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAnswering || s.state == StateEvaluating {
		s.state = state
	}
}
