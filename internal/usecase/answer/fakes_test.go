package answer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/futig/medrag/internal/entity"
	"go.uber.org/zap"
)

type fakeRetriever struct {
	passages []entity.Passage
	err      error
	calls    int
	lastK    int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, k int) ([]entity.Passage, error) {
	f.calls++
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k <= 0 {
		return []entity.Passage{}, nil
	}
	if len(f.passages) > k {
		return f.passages[:k], nil
	}
	return f.passages, nil
}

// fakeGenerator returns answer in full or split on spaces when streaming.
// streamErr is delivered after the first fragment. A stream cut by its
// context ends with an error token; closeAfterDeadline holds a completed
// stream open until the context expires and then closes it normally.
type fakeGenerator struct {
	answer             string
	err                error
	streamErr          error
	delay              time.Duration
	closeAfterDeadline bool

	mu      sync.Mutex
	calls   int
	prompts []string
}

func (f *fakeGenerator) record(prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.record(prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) GenerateStream(ctx context.Context, prompt string) (<-chan entity.Token, error) {
	f.record(prompt)
	if f.err != nil {
		return nil, f.err
	}

	tokens := make(chan entity.Token)
	go func() {
		defer close(tokens)
		for i, part := range strings.SplitAfter(f.answer, " ") {
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-ctx.Done():
					tokens <- entity.Token{Err: ctx.Err()}
					return
				}
			}
			select {
			case tokens <- entity.Token{Content: part}:
			case <-ctx.Done():
				tokens <- entity.Token{Err: ctx.Err()}
				return
			}
			if i == 0 && f.streamErr != nil {
				tokens <- entity.Token{Err: f.streamErr}
				return
			}
		}
		if f.closeAfterDeadline {
			<-ctx.Done()
		}
	}()
	return tokens, nil
}

type fakeHistory struct {
	mu        sync.Mutex
	sessions  map[string][]entity.ConversationTurn
	getErr    error
	appendErr error
	appends   int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{sessions: map[string][]entity.ConversationTurn{}}
}

func (f *fakeHistory) Get(_ context.Context, sessionID string) ([]entity.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	return append([]entity.ConversationTurn{}, f.sessions[sessionID]...), nil
}

func (f *fakeHistory) Append(_ context.Context, sessionID string, turns ...entity.ConversationTurn) ([]entity.ConversationTurn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	f.appends++
	f.sessions[sessionID] = append(f.sessions[sessionID], turns...)
	return append([]entity.ConversationTurn{}, f.sessions[sessionID]...), nil
}

func (f *fakeHistory) Delete(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

var diabetesPassages = []entity.Passage{
	{
		Text:    "Type 2 diabetes is characterised by insulin resistance. Symptoms include polyuria and polydipsia.",
		Source:  "medical_book.pdf",
		Locator: entity.PageLocator(12),
	},
	{
		Text:    "Metformin is the first-line medication for type 2 diabetes.",
		Source:  "medical_book.pdf",
		Locator: entity.PageLocator(45),
	},
}

const diabetesAnswer = "Type 2 diabetes causes polyuria and polydipsia [Page 12] and is treated first with metformin [Page 45]."

func newTestUsecase(r Retriever, g Generator) *Usecase {
	return NewUsecase(r, g, Options{
		PreviewLength:     200,
		RetrievalTimeout:  time.Second,
		GenerationTimeout: time.Second,
	}, zap.NewNop())
}

func collect(frames <-chan entity.Frame) []entity.Frame {
	var out []entity.Frame
	for f := range frames {
		out = append(out, f)
	}
	return out
}

func joinText(frames []entity.Frame) string {
	var sb strings.Builder
	for _, f := range frames {
		if f.Type == entity.FrameText {
			sb.WriteString(f.Text)
		}
	}
	return sb.String()
}
