package ui

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Control frames of the chat socket protocol
const (
	FrameReceived = "__received__"
	FrameDone     = "__done__"
	FrameError    = "__err__"

	MessageAgentNotReady = "agent not ready"
)

const writeWait = 10 * time.Second

// handleWebSocket relays each text message to the agent: the client gets
// FrameReceived, the streamed tokens, then FrameDone or FrameError.
// Closing the socket cancels the answer in flight.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	agent := s.currentAgent()
	if agent == nil {
		writeText(conn, FrameError+MessageAgentNotReady)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, MessageAgentNotReady),
			time.Now().Add(writeWait))
		return
	}

	threadID := c.Query("thread")
	if threadID == "" {
		threadID = s.threadID
	}
	if threadID == "" {
		threadID = uuid.NewString()
	}
	logger := s.logger.With(zap.String("thread_id", threadID))
	logger.Info("client connected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inputs := make(chan string)
	go func() {
		defer close(inputs)
		defer cancel()
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			select {
			case inputs <- string(data):
			case <-ctx.Done():
				return
			}
		}
	}()

	for input := range inputs {
		if err := writeText(conn, FrameReceived); err != nil {
			break
		}

		err := agent.Stream(ctx, threadID, input, func(token string) error {
			return writeText(conn, token)
		})
		if ctx.Err() != nil {
			break
		}
		if err != nil {
			logger.Error("agent failed", zap.Error(err))
			if writeText(conn, FrameError+"agent failed: "+err.Error()) != nil {
				break
			}
			continue
		}
		if err := writeText(conn, FrameDone); err != nil {
			break
		}
	}

	// unblock the reader before waiting for it
	cancel()
	conn.Close()
	for range inputs {
	}
	logger.Info("client disconnected")
}

func writeText(conn *websocket.Conn, text string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(text))
}
