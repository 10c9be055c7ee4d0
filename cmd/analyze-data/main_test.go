package main

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"casedesk/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(port string) *config.Config {
	return &config.Config{
		Tools:  config.ToolsConfig{Name: "analyze_data", Version: "test", Port: port},
		Server: config.ServerConfig{ShutdownTimeout: time.Second},
	}
}

func TestServeReturnsExitCodeWhenPortIsTaken(t *testing.T) {
	taken, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer taken.Close()
	port := strconv.Itoa(taken.Addr().(*net.TCPAddr).Port)

	core, logs := observer.New(zapcore.InfoLevel)
	code := serve(context.Background(), testConfig(port), zap.New(core))

	assert.Equal(t, 1, code)
	stopped := logs.FilterMessage("tool server stopped").All()
	require.Len(t, stopped, 1)
	assert.Equal(t, zapcore.ErrorLevel, stopped[0].Level)
}

func TestServeCleanShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	core, logs := observer.New(zapcore.InfoLevel)
	assert.Equal(t, 0, serve(ctx, testConfig("0"), zap.New(core)))
	assert.Zero(t, logs.FilterMessage("tool server stopped").Len())
}
