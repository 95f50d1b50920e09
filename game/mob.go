package game

// Mob is a monster wandering the field
type Mob struct {
	ID     uint64
	Posn   int
	health int
}

func NewMob(id uint64, posn int, dice Dice) *Mob {
	return &Mob{
		ID:     id,
		Posn:   posn,
		health: dice.Roll(3) + 3,
	}
}

// Hit lands a blow of random strength and reports whether the mob survived it
func (m *Mob) Hit(dice Dice) bool {
	hit := dice.Roll(3)
	if hit >= m.health {
		m.health = 0
		return false
	}

	m.health -= hit
	return true
}

// Move picks where the mob wants to go next: one step left, stay, or one step right
func (m *Mob) Move(dice Dice) int {
	switch dice.Roll(3) {
	case 0:
		if m.Posn == 0 {
			return 0
		}
		return m.Posn - 1
	case 1:
		return m.Posn
	default:
		return m.Posn + 1
	}
}
