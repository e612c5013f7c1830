package tui

import (
	"fmt"
	"io"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/muesli/termenv"
)

// PrintBanner outputs the auraflow ASCII art banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Subtle gradient (Indigo/Violet)
	lines := []struct{ text, color string }{
		{"                          __ _               ", "#818cf8"},
		{"   __ _ _   _ _ __ __ _  / _| | _____      __", "#a78bfa"},
		{"  / _` | | | | '__/ _` || |_| |/ _ \\ \\ /\\ / /", "#c084fc"},
		{" | (_| | |_| | | | (_| ||  _| | (_) \\ V  V / ", "#e879f9"},
		{"  \\__,_|\\__,_|_|  \\__,_||_| |_|\\___/ \\_/\\_/  ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  "+version).Faint())
	fmt.Fprintln(w)
}

var stageColors = map[domain.Stage]string{
	domain.StageIntake:   "#818cf8",
	domain.StageResearch: "#a78bfa",
	domain.StageGenerate: "#e879f9",
	domain.StageVerify:   "#f472b6",
	domain.StageDone:     "#34d399",
	domain.StageFailed:   "#f87171",
}

// StageBadge renders the stage name as a coloured label.
func StageBadge(out *termenv.Output, stage domain.Stage) string {
	color, ok := stageColors[stage]
	if !ok {
		color = "#9ca3af"
	}
	return out.String(fmt.Sprintf("%-8s", stage)).Foreground(out.Color(color)).Bold().String()
}
