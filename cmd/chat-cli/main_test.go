package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"casedesk/internal/config"
	"casedesk/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type upperAgent struct {
	threads []string
}

func (a *upperAgent) Stream(ctx context.Context, threadID, input string, onToken ports.TokenFunc) error {
	a.threads = append(a.threads, threadID)
	if input == "fail" {
		return fmt.Errorf("model unavailable")
	}
	return onToken(strings.ToUpper(input))
}

func TestReplStreamsAnswers(t *testing.T) {
	agent := &upperAgent{}
	var out bytes.Buffer

	err := repl(context.Background(), agent, "t1", strings.NewReader("abc\nfail\nxyz\n\nignored\n"), &out)
	require.NoError(t, err)

	assert.Equal(t, "> ABC\n> \nerror: model unavailable\n> XYZ\n> ", out.String())
	assert.Equal(t, []string{"t1", "t1", "t1"}, agent.threads)
}

func TestReplStopsAtEOF(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, repl(context.Background(), &upperAgent{}, "t", strings.NewReader("a"), &out))
	assert.Equal(t, "> A\n> \n", out.String())
}

func TestResolveThread(t *testing.T) {
	assert.Equal(t, "x", resolveThread("x", &config.Config{Agent: config.AgentConfig{ThreadID: "2"}}))
	assert.Equal(t, "2", resolveThread("", &config.Config{Agent: config.AgentConfig{ThreadID: "2"}}))
	assert.Equal(t, "cli", resolveThread("", nil))
}
