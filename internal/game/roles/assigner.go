// Package roles selects the hidden liar among a session's participants.
package roles

import (
	"errors"
	"math/rand"
	"sync"

	"github.com/louisbranch/liargame/internal/random"
)

// ErrNoParticipants indicates a draw over an empty roster.
var ErrNoParticipants = errors.New("no participants to draw from")

// Assigner draws one participant uniformly at random. Every call draws
// fresh: a retry after a failed fan-out is an independent selection, not a
// replay of the previous one.
type Assigner struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Assigner seeded from crypto/rand.
func New() (*Assigner, error) {
	seed, err := random.NewSeed()
	if err != nil {
		return nil, err
	}
	return NewWithSource(rand.NewSource(seed)), nil
}

// NewWithSource creates an Assigner over the given source. Tests use this to
// pin the draw.
func NewWithSource(source rand.Source) *Assigner {
	return &Assigner{rng: rand.New(source)}
}

// Pick returns the ID of the participant selected as the liar, with
// probability 1/n for each of the n participants.
func (a *Assigner) Pick(participants []string) (string, error) {
	if len(participants) == 0 {
		return "", ErrNoParticipants
	}

	a.mu.Lock()
	index := a.rng.Intn(len(participants))
	a.mu.Unlock()

	return participants[index], nil
}
