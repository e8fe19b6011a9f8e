package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"rps_arena/internal/logger"
	"rps_arena/internal/protocol"

	"github.com/gorilla/websocket"
)

// Plays one full match between two clients against a running server.
// APP_PORT selects the port (default 8080).
func main() {
	logger.Init(os.Getenv("LOG_LEVEL"), false)

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	url := fmt.Sprintf("ws://127.0.0.1:%s/ws", port)

	a := mustDial(url, "smokeA")
	defer a.Close()
	b := mustDial(url, "smokeB")
	defer b.Close()

	send(a, protocol.MsgFindMatch, nil)
	send(b, protocol.MsgFindMatch, nil)

	var start protocol.GameStartPayload
	readUntil(a, "A", protocol.MsgGameStart, &start)
	readUntil(b, "B", protocol.MsgGameStart, nil)
	logger.Info("match started", "room", start.RoomID, "max_rounds", start.MaxRounds)

	for round := 1; ; round++ {
		send(a, protocol.MsgPlayerMove, protocol.MovePayload{Choice: "rock"})
		send(b, protocol.MsgPlayerMove, protocol.MovePayload{Choice: "scissors"})

		var res protocol.RoundResultPayload
		readUntil(a, "A", protocol.MsgRoundResult, &res)
		readUntil(b, "B", protocol.MsgRoundResult, nil)
		logger.Info("round", "round", res.Round, "scores", res.Scores)

		typ := next(a, "A", protocol.MsgNextRound, protocol.MsgGameEnd)
		if typ == protocol.MsgGameEnd {
			break
		}
		if round >= start.MaxRounds {
			logger.Fatal("match did not end", "rounds", round)
		}
	}

	logger.Info("smoke test finished")
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func mustDial(url, id string) *websocket.Conn {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		logger.Fatal("dial failed", "player", id, "error", err)
	}

	send(conn, protocol.MsgConnect, protocol.ConnectPayload{PlayerID: id})
	var got protocol.ConnectedPayload
	readUntil(conn, id, protocol.MsgConnected, &got)
	return conn
}

func send(conn *websocket.Conn, typ string, payload any) {
	if err := conn.WriteJSON(protocol.Message{Type: typ, Payload: payload}); err != nil {
		logger.Fatal("write failed", "type", typ, "error", err)
	}
}

// readUntil drains frames until one of type want arrives.
func readUntil(conn *websocket.Conn, name, want string, into any) {
	f := readFrame(conn, name, want)
	if into != nil {
		if err := json.Unmarshal(f.Payload, into); err != nil {
			logger.Fatal("bad payload", "player", name, "type", want, "error", err)
		}
	}
}

// next returns the type of the first frame matching any of types.
func next(conn *websocket.Conn, name string, types ...string) string {
	return readFrame(conn, name, types...).Type
}

func readFrame(conn *websocket.Conn, name string, types ...string) frame {
	deadline := time.Now().Add(3 * time.Second)
	_ = conn.SetReadDeadline(deadline)
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			logger.Fatal("read failed", "player", name, "waiting_for", types, "error", err)
		}
		logger.Debug("got", "player", name, "type", f.Type, "payload", string(f.Payload))
		if f.Type == protocol.MsgError {
			logger.Fatal("server error", "player", name, "payload", string(f.Payload))
		}
		for _, t := range types {
			if f.Type == t {
				return f
			}
		}
	}
}
