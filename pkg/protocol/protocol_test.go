package protocol_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/opsnlops/mpchess/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := protocol.New(protocol.Move, "game", "game-1", "move", "e2e4")

	encoded, err := protocol.Encode(m)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "3:"))

	decoded, err := protocol.Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, protocol.Move, decoded.Type)
	assert.Equal(t, "game-1", decoded.Get("game"))
	assert.Equal(t, "e2e4", decoded.Get("move"))
}

func TestEncodeIsDeterministic(t *testing.T) {
	m := protocol.New(protocol.GameState, "b", "2", "a", "1", "c", "3")

	first, err := protocol.Encode(m)
	require.NoError(t, err)
	second, err := protocol.Encode(m)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "18:a=1;b=2;c=3", first)
}

func TestDecodeRejectsMissingTypeSeparator(t *testing.T) {
	_, err := protocol.Decode("no-colon-here")
	assert.Error(t, err)
}

func TestDecodeRejectsMalformedField(t *testing.T) {
	_, err := protocol.Decode("3:gameWithoutEquals")
	assert.Error(t, err)
}

func TestGetIntParsesField(t *testing.T) {
	m := protocol.New(protocol.TimeUpdate, "remainingMs", "45000")
	n, err := m.GetInt("remainingMs")
	require.NoError(t, err)
	assert.Equal(t, 45000, n)
}

func TestGetIntMissingFieldErrors(t *testing.T) {
	m := protocol.New(protocol.TimeUpdate)
	_, err := m.GetInt("remainingMs")
	assert.Error(t, err)
}

func TestWriteMessageThenReadMessage(t *testing.T) {
	var buf bytes.Buffer
	m := protocol.New(protocol.GameStart, "game", "game-1", "color", "white")

	require.NoError(t, protocol.WriteMessage(&buf, m))

	got, err := protocol.ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.GameStart, got.Type)
	assert.Equal(t, "game-1", got.Get("game"))
	assert.Equal(t, "white", got.Get("color"))
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	var buf bytes.Buffer
	var header [4]byte
	header[0] = 0x7F // huge length, well beyond MaxFrameLength
	buf.Write(header[:])

	_, err := protocol.ReadMessage(&buf)
	assert.Error(t, err)
}

func TestReadMessageTwoFramesInSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, buf.WriteByte(0)) // placeholder to keep buf non-empty path obvious
	buf.Reset()

	require.NoError(t, protocol.WriteMessage(&buf, protocol.New(protocol.Ping)))
	require.NoError(t, protocol.WriteMessage(&buf, protocol.New(protocol.Pong)))

	first, err := protocol.ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.Ping, first.Type)

	second, err := protocol.ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, protocol.Pong, second.Type)
}

func TestMessageTypeStringIsReadable(t *testing.T) {
	assert.Equal(t, "MOVE", protocol.Move.String())
	assert.Equal(t, "GAME_END", protocol.GameEnd.String())
}
