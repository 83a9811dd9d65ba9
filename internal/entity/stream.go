package entity

type FrameType string

const (
	FrameText    FrameType = "text"
	FrameSources FrameType = "sources"
	FrameTiming  FrameType = "timing"
	FrameError   FrameType = "error"
)

// Frame is one element of an answer stream. Exactly one payload field is set,
// matching Type. The stream ends when its channel is closed.
type Frame struct {
	Type    FrameType
	Text    string
	Sources []Source
	Timing  Timing
	Err     error
}

func TextFrame(text string) Frame {
	return Frame{Type: FrameText, Text: text}
}

func SourcesFrame(sources []Source) Frame {
	return Frame{Type: FrameSources, Sources: sources}
}

func TimingFrame(timing Timing) Frame {
	return Frame{Type: FrameTiming, Timing: timing}
}

func ErrorFrame(err error) Frame {
	return Frame{Type: FrameError, Err: err}
}

// Token is one fragment produced by a streaming generation backend.
// A Token with a non-nil Err is always the last one sent.
type Token struct {
	Content string
	Err     error
}
