package game

import (
	"maps"
	"slices"
)

// MaxHealth is the most health the players can have. Health is shared by every
// player in the game.
const MaxHealth = 100

// Game is the state of one running game. Time only moves when somebody acts: every
// player action is followed by a Turn.
type Game struct {
	nextPlayerID  uint64
	nextMonsterID uint64

	Players  map[uint64]*Player
	Monsters map[uint64]*Mob
	Field    *Field
	Turns    uint64
	Health   int

	dice Dice
}

func NewGame(dice Dice) *Game {
	return &Game{
		nextPlayerID:  1,
		nextMonsterID: 1,
		Players:       make(map[uint64]*Player),
		Monsters:      make(map[uint64]*Mob),
		Field:         NewField(),
		Health:        MaxHealth,
		dice:          dice,
	}
}

// PlayersJoined is how many players have entered this game, including those who left
func (g *Game) PlayersJoined() uint64 {
	return g.nextPlayerID - 1
}

// Join places a new player as far left as there is room
func (g *Game) Join(width uint16) *Player {
	player := NewPlayer(g.nextPlayerID, width)
	g.nextPlayerID++

	for g.Field.HasObject(player.Posn) {
		player.Posn++
	}

	g.Players[player.ID] = player
	g.Field.Insert(Object{Kind: KindPlayer, ID: player.ID}, player.Posn)
	g.Field.Establish(player.Posn + Margin)

	return player
}

// Leave takes a player off the field. It reports whether anybody is left.
func (g *Game) Leave(id uint64) bool {
	player, ok := g.Players[id]
	if ok {
		g.Field.Clear(player.Posn)
		delete(g.Players, id)
	}

	return len(g.Players) > 0
}

// Step moves a player one square, or attacks the monster standing there
func (g *Game) Step(id uint64, dirn int) {
	player, ok := g.Players[id]
	if !ok {
		return
	}

	newPosn, ok := Offset(player.Posn, dirn)
	if !ok {
		return
	}

	g.Field.Establish(newPosn)
	moved := false

	top := g.Field.At(newPosn).Top()
	switch top.Kind {
	case KindMonster:
		mob := g.Monsters[top.ID]
		if mob != nil && !mob.Hit(g.dice) {
			delete(g.Monsters, top.ID)
			g.Field.Clear(newPosn)
			moved = true
		}
	case KindNone, KindDoor:
		moved = true
	}

	if !moved {
		return
	}

	player.AdjustDisplay(dirn)
	g.Field.Establish(newPosn + Margin)
	g.Field.Clear(player.Posn)
	player.Posn = newPosn
	g.Field.Insert(Object{Kind: KindPlayer, ID: id}, newPosn)
}

// Turn advances everything that isn't a player: monsters spawn, attack and wander
func (g *Game) Turn() {
	g.Turns++

	length := g.Field.Len()
	monsters := len(g.Monsters)
	if monsters < length/20 && uint64(monsters) < g.Turns/5 {
		posn := g.dice.Roll(length)
		if !g.Field.HasObject(posn) {
			id := g.nextMonsterID
			g.nextMonsterID++
			g.Field.Insert(Object{Kind: KindMonster, ID: id}, posn)
			g.Monsters[id] = NewMob(id, posn, g.dice)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(g.Players)) {
		player := g.Players[id]
		for _, posn := range []int{player.Posn - 1, player.Posn + 1} {
			if g.Field.HasMonster(posn) && g.Health > 0 {
				g.Health--
			}
		}
	}

	for _, id := range slices.Sorted(maps.Keys(g.Monsters)) {
		mob := g.Monsters[id]
		newPosn := mob.Move(g.dice)
		if newPosn == mob.Posn || newPosn >= g.Field.Len() {
			continue
		}

		if !g.Field.At(newPosn).Top().IsEmpty() {
			continue
		}

		g.Field.Clear(mob.Posn)
		g.Field.Insert(Object{Kind: KindMonster, ID: id}, newPosn)
		mob.Posn = newPosn
	}
}

// Rest recovers a little health
func (g *Game) Rest() {
	g.Health = min(MaxHealth, g.Health+g.dice.Roll(2))
}
