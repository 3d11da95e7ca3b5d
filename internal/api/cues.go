package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/Iv91/kidslearning/internal/cue"
)

const cueWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// CueMessage is one frame on the cue stream
type CueMessage struct {
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`
}

// handleCueStream forwards the sound cues of a view over a websocket.
// Cues that arrive while no client is connected are not replayed.
func (s *Server) handleCueStream(w http.ResponseWriter, r *http.Request) {
	viewID := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	events, cancel := s.cues.Subscribe(viewID)
	defer cancel()

	slog.Info("cue stream connected", "view_id", viewID)

	if err := sendCueMessage(conn, CueMessage{Type: "connected"}); err != nil {
		return
	}

	// the client never sends anything meaningful; reading detects the close
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					slog.Debug("websocket read error", "error", err)
				}
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			slog.Info("cue stream disconnected", "view_id", viewID)
			return
		case ev, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "view closed"),
					time.Now().Add(cueWriteWait))
				slog.Info("cue stream ended", "view_id", viewID)
				return
			}
			if err := sendCueMessage(conn, cueFrame(ev)); err != nil {
				return
			}
		}
	}
}

func cueFrame(ev cue.Event) CueMessage {
	return CueMessage{
		Type:   "cue",
		Name:   string(ev.Cue.Name),
		Source: ev.Cue.Source,
	}
}

func sendCueMessage(conn *websocket.Conn, msg CueMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal cue message", "error", err)
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(cueWriteWait))
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send cue message", "error", err)
		return err
	}
	return nil
}
