package runner

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
)

// Sink renders events for a frontend.
type Sink interface {
	Emit(e domain.Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e domain.Event) error

// Emit calls f.
func (f SinkFunc) Emit(e domain.Event) error { return f(e) }

// ErrRunFailed is returned by Pump when the stream ended with an error event.
var ErrRunFailed = errors.New("run failed")

// Pump forwards every event of stream to sink until the stream closes.
// If the sink fails, the stream is detached and the error returned.
func Pump(stream *Stream, sink Sink) error {
	var failed string
	for e := range stream.C {
		if e.Error != "" {
			failed = e.Error
		}
		if err := sink.Emit(e); err != nil {
			stream.Detach()
			return err
		}
	}
	if failed != "" {
		return fmt.Errorf("%w: %s", ErrRunFailed, failed)
	}
	return nil
}

// JSONSink writes one JSON object per event (JSON Lines).
type JSONSink struct {
	enc *json.Encoder
}

// NewJSONSink creates a JSON Lines sink. A nil writer means stdout.
func NewJSONSink(w io.Writer) *JSONSink {
	if w == nil {
		w = os.Stdout
	}
	return &JSONSink{enc: json.NewEncoder(w)}
}

// Emit encodes e.
func (s *JSONSink) Emit(e domain.Event) error {
	return s.enc.Encode(e)
}

// TextSink prints the history entries carried by each event as plain lines.
type TextSink struct {
	w io.Writer
}

// NewTextSink creates a plain text sink. A nil writer means stdout.
func NewTextSink(w io.Writer) *TextSink {
	if w == nil {
		w = os.Stdout
	}
	return &TextSink{w: w}
}

// Emit prints e.
func (s *TextSink) Emit(e domain.Event) error {
	var err error
	switch {
	case e.Error != "":
		_, err = fmt.Fprintf(s.w, "[error] %s\n", e.Error)
	case e.Finished:
		_, err = fmt.Fprintf(s.w, "[done] session %s finished\n", e.SessionID)
	default:
		if e.StateDelta == nil {
			return nil
		}
		for _, entry := range e.StateDelta.History {
			if _, err = fmt.Fprintf(s.w, "[%s] %s\n", e.Stage, firstLine(entry)); err != nil {
				return err
			}
		}
	}
	return err
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
