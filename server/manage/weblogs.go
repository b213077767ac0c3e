package servermanage

import (
	"net/http"
	"sync"

	"log/slog"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/robert-nix/ansihtml"
)

// logging is designed such that even if the user destroys their websocket
//    and then comes back they will see the stream of any run that is still
//    going
// logs are OK to be lost while nobody is connected because every committed
//    run can be audited from the ingestion_runs table after the fact

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins
	},
}

// LogHub is an io.Writer the ingestion logger can point at, it converts
// the ANSI colored log lines to html and fans them out to every connected
// websocket. Slow consumers drop lines rather than stall the pipeline.
type LogHub struct {
	mu          sync.Mutex
	connections []*WebSocketConnection
}

func NewLogHub() *LogHub {
	return &LogHub{}
}

func (h *LogHub) Write(b []byte) (int, error) {
	bytesLen := len(b)
	formattedLog := ansihtml.ConvertToHTML(b)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.connections {
		if c == nil || c.send == nil {
			continue
		}
		select {
		case c.send <- formattedLog:
		default:
		}
	}
	return bytesLen, nil
}

func (h *LogHub) add(c *WebSocketConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections = append(h.connections, c)
}

type WebSocketConnection struct {
	conn *websocket.Conn
	send chan []byte
	hub  *LogHub
}

type manageHandler struct {
	hub    *LogHub
	logger *slog.Logger
}

func (h *manageHandler) loggingWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Info("Could not upgrade", "err", err)
		return
	}

	wsConn := &WebSocketConnection{
		conn: conn,
		send: make(chan []byte, 64),
		hub:  h.hub,
	}
	h.hub.add(wsConn)

	// running of the websocket
	go wsConn.writePump()
}

func (wsConn *WebSocketConnection) writePump() {
	defer wsConn.disconnect()
	for message := range wsConn.send {
		err := wsConn.conn.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			slog.Error("Channel error: ", "err", err)
			return
		}
	}
	wsConn.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (wsConn *WebSocketConnection) disconnect() {
	hub := wsConn.hub
	hub.mu.Lock()
	defer hub.mu.Unlock()
	wsConn.conn.Close()
	for i, c := range hub.connections {
		if c == wsConn {
			hub.connections = slices.Delete(hub.connections, i, i+1)
			break
		}
	}
}
