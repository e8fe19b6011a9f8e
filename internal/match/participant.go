package match

import "rps_arena/internal/protocol"

// Sink delivers outbound events to one participant's connection.
// Send must not block; a failed delivery is reported, not retried.
type Sink interface {
	Send(msg protocol.Message) error
}

// Participant is the core's non-owning view of a connected client.
type Participant struct {
	ID   string
	Sink Sink
}

func (p Participant) send(msg protocol.Message) error {
	if p.Sink == nil {
		return errNoSink
	}
	return p.Sink.Send(msg)
}
