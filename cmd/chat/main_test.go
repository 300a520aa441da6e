package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stazy/concierge/internal/catalog"
	"github.com/stazy/concierge/internal/dialogue"
)

type echoTurns struct {
	seen []dialogue.Turn
}

func (e *echoTurns) HandleTurn(ctx context.Context, t dialogue.Turn) dialogue.Response {
	e.seen = append(e.seen, t)
	return dialogue.Response{AgentResponse: "đã nhận: " + t.Message, Data: dialogue.Data{Hotels: []catalog.Summary{}}}
}

func TestLoopOneTurnPerLine(t *testing.T) {
	turns := &echoTurns{}
	var out bytes.Buffer

	err := loop(context.Background(), turns, "u9", strings.NewReader("tìm phòng Huế\n\n  chốt cái đầu tiên  \n"), &out)
	require.NoError(t, err)

	require.Len(t, turns.seen, 2)
	assert.Equal(t, "u9", turns.seen[0].UserID)
	assert.Equal(t, "chốt cái đầu tiên", turns.seen[1].Message)
	assert.Contains(t, out.String(), `"agent_response": "đã nhận: tìm phòng Huế"`)
}
