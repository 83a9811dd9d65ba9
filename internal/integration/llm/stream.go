package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/medrag/internal/entity"
)

// emitFunc forwards one fragment to the consumer. It returns false once the
// consumer is gone and the producer should stop.
type emitFunc func(content string) bool

// pump runs produce in its own goroutine and exposes its fragments as a
// finite token channel. A produce error, including the context deadline
// expiring mid-answer, becomes the last token. Only a cancelled context ends
// the channel without one. Consumers read until close.
func pump(ctx context.Context, backend string, produce func(emit emitFunc) error) <-chan entity.Token {
	tokens := make(chan entity.Token)

	go func() {
		defer close(tokens)

		emit := func(content string) bool {
			if content == "" {
				return ctx.Err() == nil
			}
			select {
			case tokens <- entity.Token{Content: content}:
				return true
			case <-ctx.Done():
				return false
			}
		}

		if err := produce(emit); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			tokens <- entity.Token{Err: generationError(backend, err)}
		}
	}()

	return tokens
}

func generationError(backend string, err error) error {
	return fmt.Errorf("%w: %s: %w", entity.ErrGenerationFailure, backend, err)
}
