package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcoot/topple/internal/api/response"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case response.Match:
		o.printMatch(v)
	case response.MatchListResponse:
		o.printMatchList(v)
	case response.StructuresResponse:
		o.printStructures(v)
	case response.HealthResponse:
		o.printHealth(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

func (o *Output) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.w, format, args...)
}

func (o *Output) printMatch(m response.Match) {
	o.printf("Match: %s\n", m.ID)
	o.printf("Phase: %s\n", m.Phase)
	o.printf("Round: %d\n", m.Round)
	o.printf("Score: player %d - bot %d\n", m.PlayerScore, m.BotScore)

	switch {
	case m.Winner != nil:
		o.printf("Winner: %s\n", *m.Winner)
	case m.TurnInProgress:
		o.printf("Turn: %s (in flight)\n", m.ActiveSide)
	default:
		o.printf("Turn: %s\n", m.ActiveSide)
	}

	o.printf("\nStructure #%d (%d bricks):\n", m.Structure.ID, m.Structure.Bricks)
	o.printStructureRender(m.Structure.Render)

	if len(m.Turns) > 0 {
		o.printf("\nTurns:\n")
		for _, t := range m.Turns {
			hit := ""
			if t.HitStructure {
				hit = ", hit"
			}
			o.printf("  R%d %-6s power %5.1f  score %3d  (%s%s)\n",
				t.Round, t.Side, t.Power, t.Score, t.Reason, hit)
		}
	}
}

func (o *Output) printStructureRender(render string) {
	for _, line := range strings.Split(strings.TrimSuffix(render, "\n"), "\n") {
		o.printf("  %s\n", line)
	}
}

func (o *Output) printMatchList(l response.MatchListResponse) {
	if len(l.Matches) == 0 {
		o.printf("No matches\n")
		return
	}
	for _, id := range l.Matches {
		o.printf("%s\n", id)
	}
}

func (o *Output) printStructures(s response.StructuresResponse) {
	for i, st := range s.Structures {
		if i > 0 {
			o.printf("\n")
		}
		o.printf("Structure #%d: %d layers, %d bricks\n", st.ID, len(st.Layers), st.Bricks)
		o.printStructureRender(st.Render)
	}
}

func (o *Output) printHealth(h response.HealthResponse) {
	o.printf("Status: %s\n", h.Status)
	o.printf("Active matches: %d\n", h.ActiveMatches)
}
