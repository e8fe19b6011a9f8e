package match

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the rules a Matchmaker applies to every session it creates.
type Config struct {
	MaxRounds    int
	MinPlayers   int
	MaxPlayers   int
	WinThreshold int

	// SessionLinger is how long a finished session stays visible to Stats
	// before the cleanup sweep drops it.
	SessionLinger time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRounds:     3,
		MinPlayers:    2,
		MaxPlayers:    2,
		WinThreshold:  2,
		SessionLinger: 30 * time.Second,
	}
}

var ErrInvalidConfig = errors.New("invalid match config")

func (c Config) Validate() error {
	switch {
	case c.MinPlayers != 2 || c.MaxPlayers != 2:
		return fmt.Errorf("%w: sessions are strictly two-player (min=%d max=%d)", ErrInvalidConfig, c.MinPlayers, c.MaxPlayers)
	case c.MaxRounds < 1:
		return fmt.Errorf("%w: max rounds must be positive, got %d", ErrInvalidConfig, c.MaxRounds)
	case c.WinThreshold < 1:
		return fmt.Errorf("%w: win threshold must be positive, got %d", ErrInvalidConfig, c.WinThreshold)
	case c.SessionLinger < 0:
		return fmt.Errorf("%w: negative session linger", ErrInvalidConfig)
	}
	return nil
}
