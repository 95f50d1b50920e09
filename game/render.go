package game

import (
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
)

var objectStyles = map[rune]lipgloss.Style{
	'#': lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	'M': lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
	'@': lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
	'+': lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
}

// styleLine colors a rendered row of the field for terminals that understand ANSI.
// Runs of the same character share one styled span.
func styleLine(line []rune) string {
	var sb strings.Builder

	for start := 0; start < len(line); {
		end := start + 1
		for end < len(line) && line[end] == line[start] {
			end++
		}

		run := string(line[start:end])
		if style, ok := objectStyles[line[start]]; ok {
			sb.WriteString(style.Render(run))
		} else {
			sb.WriteString(run)
		}

		start = end
	}

	return sb.String()
}

// view renders the player's slice of the field and returns it with the column where
// the cursor should rest
func (g *Game) view(player *Player) ([]rune, int) {
	left := player.Posn - player.Left
	right := left + player.Width

	line := g.Field.Render(left, right)
	for _, p := range g.Players {
		if p.Posn >= left && p.Posn < right {
			line[p.Posn-left] = '@'
		}
	}

	return line, player.Left
}

// frame redraws the player's line if anything on it changed since the last call.
// The cursor is parked on the player by reprinting the line up to their column.
func (g *Game) frame(player *Player, ansi bool) (string, bool) {
	line, cursor := g.view(player)
	plain := string(line)

	if plain == player.displayCache && player.Posn == player.posnCache {
		return "", false
	}

	player.displayCache = plain
	player.posnCache = player.Posn

	if !ansi {
		return "\r" + plain + "\r" + string(line[:cursor]), true
	}

	return "\r" + styleLine(line) + "\r" + styleLine(line[:cursor]), true
}
