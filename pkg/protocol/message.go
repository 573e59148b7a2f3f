// Package protocol implements the wire framing and message encoding used
// between clients and the server (C8): a 4-byte big-endian length prefix
// around a "type:field=value;field=value" payload.
package protocol

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MessageType tags every frame exchanged over the wire.
type MessageType int

const (
	Login MessageType = iota
	Register
	Connect
	Move
	RequestDraw
	RespondDraw
	Resign
	MatchmakingRequest
	MatchmakingCancel
	SaveGame
	LoadGame
	PlayerStats
	LeaderboardRequest
	GameAnalysisRequest
	MoveRecommendationsRequest
	Ping
	Pong
	GameStart
	GameState
	MoveResult
	PossibleMoves
	TimeUpdate
	GameEnd
	MatchmakingStatus
	Error
)

var typeNames = map[MessageType]string{
	Login:                      "LOGIN",
	Register:                   "REGISTER",
	Connect:                    "CONNECT",
	Move:                       "MOVE",
	RequestDraw:                "REQUEST_DRAW",
	RespondDraw:                "RESPOND_DRAW",
	Resign:                     "RESIGN",
	MatchmakingRequest:         "MATCHMAKING_REQUEST",
	MatchmakingCancel:          "MATCHMAKING_CANCEL",
	SaveGame:                   "SAVE_GAME",
	LoadGame:                   "LOAD_GAME",
	PlayerStats:                "PLAYER_STATS",
	LeaderboardRequest:         "LEADERBOARD_REQUEST",
	GameAnalysisRequest:        "GAME_ANALYSIS_REQUEST",
	MoveRecommendationsRequest: "MOVE_RECOMMENDATIONS_REQUEST",
	Ping:                       "PING",
	Pong:                       "PONG",
	GameStart:                  "GAME_START",
	GameState:                  "GAME_STATE",
	MoveResult:                 "MOVE_RESULT",
	PossibleMoves:              "POSSIBLE_MOVES",
	TimeUpdate:                 "TIME_UPDATE",
	GameEnd:                    "GAME_END",
	MatchmakingStatus:          "MATCHMAKING_STATUS",
	Error:                      "ERROR",
}

func (t MessageType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", int(t))
}

// Message is a single protocol frame: a type tag plus a flat set of named
// fields. Fields are intentionally untyped strings -- handlers parse what
// they expect and reject anything malformed, rather than the wire format
// carrying a rich type system of its own.
type Message struct {
	Type   MessageType
	Fields map[string]string
}

// New builds a Message from inline key/value pairs, e.g.
// New(Move, "game", id, "move", "e2e4").
func New(t MessageType, kv ...string) Message {
	if len(kv)%2 != 0 {
		panic("protocol: New requires an even number of key/value arguments")
	}
	fields := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return Message{Type: t, Fields: fields}
}

// Get returns a field value, or "" if absent.
func (m Message) Get(key string) string {
	return m.Fields[key]
}

// GetInt parses a field as an int, returning an error naming the field on
// failure.
func (m Message) GetInt(key string) (int, error) {
	v, ok := m.Fields[key]
	if !ok {
		return 0, fmt.Errorf("protocol: missing field %q", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("protocol: field %q is not an integer: %w", key, err)
	}
	return n, nil
}

// Encode renders m as "type:k=v;k=v" with fields sorted by key for
// deterministic output.
func Encode(m Message) (string, error) {
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		if strings.ContainsAny(k, ":=;") {
			return "", fmt.Errorf("protocol: field key %q contains a reserved character", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "%d:", int(m.Type))
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		v := m.Fields[k]
		if strings.ContainsAny(v, ";") {
			return "", fmt.Errorf("protocol: field %q value contains a reserved character", k)
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(v)
	}
	return b.String(), nil
}

// Decode parses the "type:k=v;k=v" payload format produced by Encode.
func Decode(payload string) (Message, error) {
	colon := strings.IndexByte(payload, ':')
	if colon < 0 {
		return Message{}, fmt.Errorf("protocol: malformed message, missing type separator")
	}

	typeInt, err := strconv.Atoi(payload[:colon])
	if err != nil {
		return Message{}, fmt.Errorf("protocol: malformed message type: %w", err)
	}

	fields := make(map[string]string)
	rest := payload[colon+1:]
	if rest != "" {
		for _, pair := range strings.Split(rest, ";") {
			eq := strings.IndexByte(pair, '=')
			if eq < 0 {
				return Message{}, fmt.Errorf("protocol: malformed field %q", pair)
			}
			fields[pair[:eq]] = pair[eq+1:]
		}
	}

	return Message{Type: MessageType(typeInt), Fields: fields}, nil
}
