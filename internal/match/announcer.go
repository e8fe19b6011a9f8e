package match

import "time"

type NoticeKind string

const (
	NoticeStarted   NoticeKind = "started"
	NoticeEnded     NoticeKind = "ended"
	NoticeAbandoned NoticeKind = "abandoned"
)

// Notice describes a session lifecycle transition for collaborators outside
// the process. It carries no state the core depends on.
type Notice struct {
	Kind      NoticeKind     `json:"kind"`
	SessionID string         `json:"session_id"`
	Players   []string       `json:"players"`
	Winner    string         `json:"winner,omitempty"`
	Scores    map[string]int `json:"scores,omitempty"`
	Rounds    int            `json:"rounds,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	At        time.Time      `json:"at"`
}

// Announcer receives lifecycle notices. Implementations must not block.
type Announcer interface {
	Announce(n Notice)
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(Notice) {}
