package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/muesli/termenv"
)

// RichSink renders run events for an interactive terminal: coloured stage
// badges, research notes as markdown and verification feedback inline.
type RichSink struct {
	w      io.Writer
	out    *termenv.Output
	render func(string) (string, error)
}

// NewRichSink creates a sink writing to w. Colours follow what w supports.
func NewRichSink(w io.Writer) *RichSink {
	return &RichSink{
		w:      w,
		out:    termenv.NewOutput(w),
		render: NewRenderer(Width(w, 100) - 4),
	}
}

// Emit implements runner.Sink.
func (s *RichSink) Emit(e domain.Event) error {
	switch {
	case e.Error != "":
		_, err := fmt.Fprintf(s.w, "%s %s\n", StageBadge(s.out, domain.StageFailed), s.out.String(e.Error).Foreground(s.out.Color("#f87171")))
		return err
	case e.Finished:
		_, err := fmt.Fprintf(s.w, "%s session %s finished\n", StageBadge(s.out, domain.StageDone), e.SessionID)
		return err
	case e.StateDelta == nil:
		return nil
	}

	badge := StageBadge(s.out, e.Stage)
	for _, entry := range e.StateDelta.History {
		if notes, ok := strings.CutPrefix(entry, domain.ResearchNotesPrefix); ok {
			if err := s.markdown(notes); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(s.w, "%s %s\n", badge, entry); err != nil {
			return err
		}
	}

	if fb := e.StateDelta.FailureFeedback; fb != nil && *fb != "" {
		for _, line := range strings.Split(strings.TrimRight(*fb, "\n"), "\n") {
			if _, err := fmt.Fprintf(s.w, "         %s\n", s.out.String("│ "+line).Faint()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *RichSink) markdown(notes string) error {
	rendered, err := s.render(notes)
	if err != nil {
		rendered = notes + "\n"
	}
	_, err = io.WriteString(s.w, rendered)
	return err
}
