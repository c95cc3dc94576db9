package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
)

const (
	wsReadLimit  = 4096
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 50 * time.Second
	wsWriteWait  = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsEvent is a client message. Type is one of move, hover, click, reset,
// tier or reload.
type wsEvent struct {
	Type   string  `json:"type"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	W      int     `json:"w,omitempty"`
	H      int     `json:"h,omitempty"`
	Tier   string  `json:"tier,omitempty"`
	Region string  `json:"region,omitempty"`
}

// wsReply answers exactly one event.
type wsReply struct {
	Type       string            `json:"type"`
	Snapshot   explorer.Snapshot `json:"snapshot"`
	Transition *drill.Transition `json:"transition,omitempty"`
	Error      *errorBody        `json:"error,omitempty"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	ls, err := s.lookup(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replies and pings share the connection; gorilla allows one
	// concurrent writer, so all writes go through this channel.
	out := make(chan any, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.wsWriter(ctx, conn, out)
	}()

	s.logger.Debug("websocket opened", "session", ls.sess.ID)
	for {
		var ev wsEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "session", ls.sess.ID, "err", err)
			}
			break
		}
		reply := s.dispatch(ctx, ls, ev)
		select {
		case out <- reply:
		case <-done:
			cancel()
			return
		}
	}
	cancel()
	<-done
}

func (s *Server) wsWriter(ctx context.Context, conn *websocket.Conn, out <-chan any) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		case v := <-out:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(v); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// dispatch applies one event under the session lock and saves the
// session.
func (s *Server) dispatch(ctx context.Context, ls *liveSession, ev wsEvent) wsReply {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	reply := wsReply{Type: ev.Type}
	if err := ls.gone(); err != nil {
		reply.Error = &errorBody{Error: errs.UserMessage(err), Code: string(errs.GetCode(err))}
		return reply
	}
	var err error
	switch ev.Type {
	case "move":
		reply.Snapshot, err = ls.x.Move(ctx, ev.X, ev.Y, ev.W, ev.H)
	case "hover":
		reply.Snapshot, err = ls.x.HoverRegion(ctx, ev.Region)
	case "click":
		var t drill.Transition
		reply.Snapshot, t, err = ls.x.Click(ctx)
		reply.Transition = &t
	case "reset":
		reply.Snapshot, err = ls.x.Reset(ctx)
	case "tier":
		var tier region.Tier
		if tier, err = region.ParseTier(ev.Tier); err == nil {
			err = ls.x.Load(ctx, tier)
		}
		reply.Snapshot = ls.x.Snapshot()
	case "reload":
		err = ls.x.Reload(ctx)
		reply.Snapshot = ls.x.Snapshot()
	case "snapshot":
		reply.Snapshot = ls.x.Snapshot()
	default:
		err = errs.New(errs.ErrCodeInvalidInput, "unknown event type %q", ev.Type)
		reply.Snapshot = ls.x.Snapshot()
	}
	s.save(ctx, ls)
	if err != nil {
		reply.Error = &errorBody{Error: errs.UserMessage(err), Code: string(errs.GetCode(err))}
	}
	return reply
}
