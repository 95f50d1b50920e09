package game

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/moodclient/owo/store"
	"github.com/moodclient/owo/telnet"
)

// Remote is what a player's connection has to offer the game
type Remote interface {
	io.Writer
	// ReadText returns the next input, with ok false if nothing arrived this poll
	ReadText() (text string, ok bool, err error)
	Width() (uint16, bool)
	ANSI() bool
}

var _ Remote = &telnet.Connection{}

// Recorder receives every finished game
type Recorder interface {
	Record(result store.Result) error
}

// Handle is the one game shared by every connected player. Each player's connection
// is driven by its own goroutine calling Play; they take turns with the game state
// under a mutex.
type Handle struct {
	mu   sync.Mutex
	game *Game

	dice     Dice
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandle starts a fresh game. recorder may be nil.
func NewHandle(dice Dice, recorder Recorder, logger *slog.Logger) *Handle {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handle{
		game:     NewGame(dice),
		dice:     dice,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// RunConnection plays one telnet session until the player leaves
func (h *Handle) RunConnection(conn *telnet.Connection) {
	err := h.Play(conn)
	if err != nil {
		h.logger.Warn("player connection ended", slog.Any("error", err))
	}
}

// withGame runs action under the game lock
func (h *Handle) withGame(action func(g *Game)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	action(h.game)
}

// finish records the current game and replaces it with a new one. The lock must be held.
func (h *Handle) finish(outcome store.Outcome) {
	result := store.Result{
		Outcome:  outcome,
		Turns:    h.game.Turns,
		Players:  h.game.PlayersJoined(),
		Finished: h.now(),
	}

	h.logger.Info("game over", slog.String("outcome", string(outcome)), slog.Uint64("turns", result.Turns))

	if h.recorder != nil {
		if err := h.recorder.Record(result); err != nil {
			h.logger.Warn("could not record game", slog.Any("error", err))
		}
	}

	h.game = NewGame(h.dice)
}

func writeMessage(w io.Writer, message string) error {
	_, err := fmt.Fprintf(w, "\r%s    \r\n", message)
	return err
}

// Play runs one player from joining until they quit, escape, die, or hang up
func (h *Handle) Play(remote Remote) error {
	width, _ := remote.Width()

	var id uint64
	h.withGame(func(g *Game) {
		id = g.Join(width).ID
	})

	logger := h.logger.With(slog.Uint64("player", id))
	logger.Info("player joined")

	for {
		text, ok, err := remote.ReadText()
		if err != nil {
			h.abandon(id)
			return fmt.Errorf("player %d: %w", id, err)
		}

		if ok {
			message, quit := h.act(id, text)
			if quit {
				logger.Info("player quit")
				return writeMessage(remote, message)
			}
		}

		message, done, frame := h.update(id, remote.ANSI())
		if done {
			logger.Info("player left", slog.String("reason", message))
			return writeMessage(remote, message)
		}

		if frame != "" {
			if _, err := io.WriteString(remote, frame); err != nil {
				h.abandon(id)
				return fmt.Errorf("player %d: %w", id, err)
			}
		}
	}
}

// act applies each command character in text. Escape sequences sent by special keys
// and anything else that isn't a command are ignored.
func (h *Handle) act(id uint64, text string) (message string, quit bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, command := range ansi.Strip(text) {
		switch command {
		case 'h':
			h.game.Step(id, -1)
		case 'l':
			h.game.Step(id, 1)
		case '.':
			h.game.Rest()
		case 'q':
			if h.game.Leave(id) {
				return "you quit, how sad", true
			}

			h.finish(store.OutcomeAbandoned)
			return "no more players, new game", true
		default:
			continue
		}

		h.game.Turn()
	}

	return "", false
}

// update checks whether the player's game is over and redraws their view if not
func (h *Handle) update(id uint64, ansi bool) (message string, done bool, frame string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	g := h.game

	if g.Health == 0 {
		if !g.Leave(id) {
			h.finish(store.OutcomeWiped)
		}
		return "board wipe, game over", true, ""
	}

	player, ok := g.Players[id]
	if !ok {
		return "game over", true, ""
	}

	if player.Posn >= DoorPosn {
		if !g.Leave(id) {
			h.finish(store.OutcomeEscaped)
			return "y'all escaped, win!", true, ""
		}
		return "you escaped, one down", true, ""
	}

	frame, _ = g.frame(player, ansi)
	return "", false, frame
}

// abandon removes a player whose connection failed
func (h *Handle) abandon(id uint64) {
	h.withGame(func(g *Game) {
		if !g.Leave(id) {
			h.finish(store.OutcomeAbandoned)
		}
	})
}
