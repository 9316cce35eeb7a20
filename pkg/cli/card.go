package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vibelab/vibecard/pkg/vibe"
)

// Theme defines the card color scheme, normally lifted from the palette
// the analysis picked for the voice.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Dim       lipgloss.Color
}

// DefaultTheme is used until a personality arrives.
var DefaultTheme = Theme{
	Primary:   lipgloss.Color("#e94560"),
	Secondary: lipgloss.Color("#16213e"),
	Accent:    lipgloss.Color("#00ff9f"),
	Dim:       lipgloss.Color("#6e7681"),
}

// ThemeFor derives a Theme from a personality's palette, falling back
// to DefaultTheme colors for unset entries.
func ThemeFor(p *vibe.PersonalityVector) Theme {
	t := DefaultTheme
	if p == nil {
		return t
	}
	if p.Palette.Primary != "" {
		t.Primary = lipgloss.Color(p.Palette.Primary)
	}
	if p.Palette.Secondary != "" {
		t.Secondary = lipgloss.Color(p.Palette.Secondary)
	}
	if p.Palette.Accent != "" {
		t.Accent = lipgloss.Color(p.Palette.Accent)
	}
	return t
}

// RenderCard draws a session snapshot as a framed terminal vibe card.
func RenderCard(snap vibe.Snapshot, width int) string {
	if width <= 0 {
		width = 56
	}
	theme := ThemeFor(snap.Personality)

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(1, 2).
		Width(width)
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	chip := lipgloss.NewStyle().Foreground(theme.Accent)
	dim := lipgloss.NewStyle().Foreground(theme.Dim)
	story := lipgloss.NewStyle().Italic(true).Width(width - 6)

	var lines []string

	header := "vibe card"
	if p := snap.Personality; p != nil && p.Mood != "" {
		header = p.Mood
	}
	lines = append(lines, title.Render(header))

	if p := snap.Personality; p != nil {
		if len(p.Traits) > 0 {
			chips := make([]string, len(p.Traits))
			for i, tr := range p.Traits {
				chips[i] = chip.Render("· " + tr)
			}
			lines = append(lines, strings.Join(chips, "  "))
		}
		lines = append(lines, dim.Render("energy ")+energyMeter(p.Energy))
	}

	if a := snap.Assets; a != nil {
		lines = append(lines, "", story.Render(a.Story))
		if a.Music.Genre != "" {
			music := fmt.Sprintf("%s · %d bpm", a.Music.Genre, a.Music.BPM)
			if len(a.Music.Instruments) > 0 {
				music += " · " + strings.Join(a.Music.Instruments, ", ")
			}
			lines = append(lines, "", dim.Render(music))
		}
		lines = append(lines, "", dim.Render("art        ")+FormatBytes(int64(len(a.Image.Data))))
		lines = append(lines, dim.Render("narration  ")+FormatBytes(int64(len(a.Speech.Data))))
		if a.VideoURI != "" {
			lines = append(lines, dim.Render("reel       ")+a.VideoURI)
		}
	}

	if snap.ErrorMessage != "" {
		lines = append(lines, "", title.Render("✗ ")+snap.ErrorMessage)
	} else if snap.StatusMessage != "" {
		lines = append(lines, "", dim.Render(snap.StatusMessage))
	}

	return frame.Render(strings.Join(lines, "\n"))
}

// energyMeter renders a 1..10 energy value as a ten-segment bar.
func energyMeter(n int) string {
	if n < 0 {
		n = 0
	}
	if n > 10 {
		n = 10
	}
	return strings.Repeat("▰", n) + strings.Repeat("▱", 10-n)
}
