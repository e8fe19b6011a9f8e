package game

import (
	"errors"
	"strings"
	"time"
)

// Choice is one symbol of the rock/paper/scissors alphabet.
type Choice string

const (
	Rock     Choice = "rock"
	Paper    Choice = "paper"
	Scissors Choice = "scissors"
)

var ErrUnknownChoice = errors.New("unknown choice")

// Choices lists the alphabet in a stable order.
func Choices() []Choice {
	return []Choice{Rock, Paper, Scissors}
}

// ParseChoice accepts the wire spelling of a choice, ignoring case and
// surrounding blanks.
func ParseChoice(s string) (Choice, error) {
	switch c := Choice(strings.ToLower(strings.TrimSpace(s))); c {
	case Rock, Paper, Scissors:
		return c, nil
	}
	return "", ErrUnknownChoice
}

func (c Choice) Valid() bool {
	switch c {
	case Rock, Paper, Scissors:
		return true
	}
	return false
}

// Move is a choice together with the moment it was captured.
// At is informational only and never used to break ties.
type Move struct {
	Choice Choice
	At     time.Time
}

func NewMove(c Choice) Move {
	return Move{Choice: c, At: time.Now()}
}
