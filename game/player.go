package game

// Margin is how close, in characters, a player may get to either edge of their view
// before it scrolls
const Margin = 3

const (
	defaultWidth = 80
	minWidth     = 2*Margin + 1
)

// Player is one connected avatar. Everything else about the players, like health,
// is shared across the whole game.
type Player struct {
	ID   uint64
	Posn int
	// Width is the terminal width in characters
	Width int
	// Left is the player's column in their own view, 0 <= Left < Width
	Left int

	displayCache string
	posnCache    int
}

// NewPlayer creates a player at the start of the field. A width of zero means the
// terminal didn't report one.
func NewPlayer(id uint64, width uint16) *Player {
	w := int(width)
	if w == 0 {
		w = defaultWidth
	} else if w < minWidth {
		w = minWidth
	}

	return &Player{
		ID:    id,
		Posn:  1,
		Left:  1,
		Width: w,
	}
}

// Offset moves x by dx, reporting false if that would fall off the near end
func Offset(x, dx int) (int, bool) {
	if x+dx < 0 {
		return 0, false
	}

	return x + dx, true
}

// AdjustDisplay slides the player's view for a step of dirn, keeping the player
// Margin characters away from either edge where possible
func (p *Player) AdjustDisplay(dirn int) {
	posn, ok := Offset(p.Posn, dirn)
	if !ok {
		return
	}

	left, ok := Offset(p.Left, dirn)
	if !ok {
		p.Left = 0
		return
	}

	left = min(left, p.Width-Margin)
	left = max(left, Margin)
	p.Left = min(left, posn)
}
