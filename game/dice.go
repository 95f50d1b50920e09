package game

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Dice is the game's source of randomness. Tests build it from a fixed seed.
type Dice struct {
	rng *rand.Rand
}

func NewDiceFromSeed(seed uint64) Dice {
	return Dice{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

func NewDice() (Dice, error) {
	var randBytes [8]byte

	_, err := crand.Read(randBytes[:])
	if err != nil {
		return Dice{}, err
	}

	return NewDiceFromSeed(binary.LittleEndian.Uint64(randBytes[:])), nil
}

// Roll returns a number in [0, n)
func (d Dice) Roll(n int) int {
	return d.rng.IntN(n)
}
