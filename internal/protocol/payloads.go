package protocol

// client → server
type ConnectPayload struct {
	PlayerID string `json:"playerId,omitempty"`
}

type MovePayload struct {
	Choice string `json:"choice"` // rock | paper | scissors
}

// server → client
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
}

type MatchmakingPayload struct {
	Matched bool   `json:"matched"`
	Waiting *bool  `json:"waiting,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

type PlayerInfo struct {
	ID string `json:"id"`
}

type GameStartPayload struct {
	RoomID    string       `json:"roomId"`
	Players   []PlayerInfo `json:"players"`
	MaxRounds int          `json:"maxRounds"`
}

type RoundResultPayload struct {
	Round  int               `json:"round"`
	Winner *string           `json:"winner"`
	Moves  map[string]string `json:"moves"`
	Scores map[string]int    `json:"scores"`
}

type NextRoundPayload struct {
	Round int `json:"round"`
}

type GameEndPayload struct {
	Winner      *string        `json:"winner"`
	FinalScores map[string]int `json:"finalScores"`
}

type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
