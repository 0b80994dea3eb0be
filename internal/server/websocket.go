package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/blescan/internal/logging"
	"github.com/muurk/blescan/internal/pipeline"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Message types sent to display clients
const (
	MessageStatus  = "status"
	MessageRecord  = "record"
	MessageCleared = "cleared"
	MessageError   = "error"
)

// Client actions
const (
	ActionStart = "start"
	ActionStop  = "stop"
)

// Message is one server-to-client WebSocket message
type Message struct {
	Type       string      `json:"type"`
	Status     *StatusJSON `json:"status,omitempty"`
	Record     *RecordJSON `json:"record,omitempty"`
	Generation uint64      `json:"generation,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// Command is one client-to-server WebSocket message
type Command struct {
	Action string `json:"action"`
}

func statusMessage(st pipeline.Status) Message {
	js := newStatusJSON(st)
	return Message{Type: MessageStatus, Status: &js, Generation: st.Generation}
}

func changeMessage(c pipeline.Change) Message {
	if c.Kind == pipeline.RecordsCleared {
		return Message{Type: MessageCleared, Generation: c.Generation}
	}
	js := newRecordJSON(c.Record)
	return Message{Type: MessageRecord, Record: &js, Generation: c.Generation}
}

// handleWebSocket streams status and record changes to one display client
// and applies its start/stop commands. Each client has its own
// subscriptions; only this goroutine writes to the connection.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}
	remoteAddr := conn.RemoteAddr().String()

	s.wg.Add(1)
	defer s.wg.Done()

	s.track(remoteAddr, conn)
	defer s.untrack(remoteAddr)
	defer func() { _ = conn.Close() }()

	statusSub := s.ctrl.SubscribeStatus()
	defer statusSub.Close()
	recordSub := s.ctrl.SubscribeRecords()
	defer recordSub.Close()

	replies := make(chan Message, 8)
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	defer close(writerDone)

	go func() {
		defer close(readerDone)
		s.readCommands(conn, remoteAddr, replies, writerDone)
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg Message
		select {
		case st, ok := <-statusSub.C():
			if !ok {
				return
			}
			msg = statusMessage(st)
		case c, ok := <-recordSub.C():
			if !ok {
				return
			}
			msg = changeMessage(c)
		case msg = <-replies:
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		case <-readerDone:
			return
		case <-s.closing:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
			return
		}

		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(msg); err != nil {
			logging.Info("Failed to write to client",
				zap.String("remote_addr", remoteAddr),
				zap.Error(err),
			)
			return
		}
		logging.LogClientMessage(remoteAddr, "send", msg.Type)
	}
}

// readCommands reads client commands until the connection fails
func (s *Server) readCommands(conn *websocket.Conn, remoteAddr string, replies chan<- Message, writerDone <-chan struct{}) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Info("Connection closed or error reading message",
					zap.String("remote_addr", remoteAddr),
					zap.Error(err),
				)
			}
			return
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			s.reply(replies, writerDone, Message{Type: MessageError, Error: "invalid command"})
			continue
		}
		logging.LogClientMessage(remoteAddr, "receive", cmd.Action)

		switch cmd.Action {
		case ActionStart:
			s.ctrl.Start()
		case ActionStop:
			s.ctrl.Stop()
		default:
			s.reply(replies, writerDone, Message{Type: MessageError, Error: "unknown action: " + cmd.Action})
		}
	}
}

func (s *Server) reply(replies chan<- Message, writerDone <-chan struct{}, msg Message) {
	select {
	case replies <- msg:
	case <-writerDone:
	}
}
