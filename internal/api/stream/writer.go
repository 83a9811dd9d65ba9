package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/futig/medrag/internal/entity"
	"github.com/futig/medrag/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	FormatText   = "text"
	FormatNDJSON = "ndjson"

	textContentType   = "text/plain; charset=utf-8"
	ndjsonContentType = "application/x-ndjson"
)

// Encoder turns frames into bytes of one wire format.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, f entity.Frame) error
}

// NewEncoder returns the encoder for format, defaulting to plain text.
func NewEncoder(format string) (Encoder, error) {
	switch format {
	case "", FormatText:
		return TextEncoder{}, nil
	case FormatNDJSON:
		return NDJSONEncoder{}, nil
	default:
		return nil, fmt.Errorf("%w: stream format %q (allowed: text, ndjson)", entity.ErrInvalidFormat, format)
	}
}

// Write copies frames to w, flushing after each one, until the channel is
// closed or the client disconnects.
func Write(ctx context.Context, w http.ResponseWriter, enc Encoder, frames <-chan entity.Frame) {
	w.Header().Set("Content-Type", enc.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}
	flush()

	for f := range frames {
		if err := enc.Encode(w, f); err != nil {
			ctxzap.Warn(ctx, "failed to write stream frame", zap.String("frame", string(f.Type)), zap.Error(err))
			drain(frames)
			return
		}
		flush()
	}
}

// drain lets the producer finish once the client is gone.
func drain(frames <-chan entity.Frame) {
	for range frames {
	}
}

// TextEncoder writes answer fragments as they come followed by
// "[SOURCES]: <json>" and "[TIMING]: ..." trailer lines.
type TextEncoder struct{}

func (TextEncoder) ContentType() string { return textContentType }

func (TextEncoder) Encode(w io.Writer, f entity.Frame) error {
	var err error
	switch f.Type {
	case entity.FrameText:
		_, err = io.WriteString(w, f.Text)
	case entity.FrameSources:
		var data []byte
		data, err = json.Marshal(nonNil(f.Sources))
		if err == nil {
			_, err = fmt.Fprintf(w, "\n[SOURCES]: %s\n", data)
		}
	case entity.FrameTiming:
		_, err = fmt.Fprintf(w, "[TIMING]: retrieval=%.3fs, llm=%.3fs, total=%.3fs\n",
			f.Timing.RetrievalTime, f.Timing.GenerationTime, f.Timing.TotalTime)
	case entity.FrameError:
		_, message := response.Classify(f.Err)
		_, err = fmt.Fprintf(w, "\n[ERROR]: %s\n", message)
	}
	return err
}

// NDJSONEncoder writes one {"type","payload"} object per line.
type NDJSONEncoder struct{}

type ndjsonFrame struct {
	Type    entity.FrameType `json:"type"`
	Payload any              `json:"payload"`
}

func (NDJSONEncoder) ContentType() string { return ndjsonContentType }

func (NDJSONEncoder) Encode(w io.Writer, f entity.Frame) error {
	out := ndjsonFrame{Type: f.Type}
	switch f.Type {
	case entity.FrameText:
		out.Payload = f.Text
	case entity.FrameSources:
		out.Payload = nonNil(f.Sources)
	case entity.FrameTiming:
		out.Payload = f.Timing
	case entity.FrameError:
		_, out.Payload = response.Classify(f.Err)
	}
	return json.NewEncoder(w).Encode(out)
}

func nonNil(sources []entity.Source) []entity.Source {
	if sources == nil {
		return []entity.Source{}
	}
	return sources
}
