package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/creasty/defaults"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"trading-backtestv1/internal/service"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	maxRequest   = 64 << 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// Event types sent over /ws/backtests.
const (
	EventStart  = "start"
	EventMarker = "marker"
	EventEquity = "equity"
	EventResult = "result"
	EventError  = "error"
)

// StreamEvent is one WebSocket message of a backtest replay. Time is set
// on marker and equity events only.
type StreamEvent struct {
	Type string `json:"type"`
	Time *int64 `json:"time,omitempty"`
	Data any    `json:"data"`
}

type streamStart struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Bars      int    `json:"bars"`
	Trades    int    `json:"trades"`
}

// streamBacktest reads one BacktestRequest from the socket, runs it and
// replays the markers and equity points in time order before the result.
// Closing the socket cancels the replay.
func (h *Handler) streamBacktest(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return nil
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.WSClients.Inc()
		defer h.metrics.WSClients.Dec()
	}

	conn.SetReadLimit(maxRequest)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		slog.Debug("ws client left before sending a request", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		// Keep reading so pongs and the close frame are processed.
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var req service.BacktestRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		writeEvent(conn, StreamEvent{Type: EventError, Data: []*AppError{BadRequestErrorf("invalid request: %v", err)}})
		return nil
	}
	if err := defaults.Set(&req); err != nil {
		writeEvent(conn, StreamEvent{Type: EventError, Data: validationErrors(err)})
		return nil
	}
	if err := validate.StructCtx(ctx, &req); err != nil {
		writeEvent(conn, StreamEvent{Type: EventError, Data: validationErrors(err)})
		return nil
	}

	run, err := h.svc.RunBacktest(ctx, req)
	if err != nil {
		_, body := classify(err)
		writeEvent(conn, StreamEvent{Type: EventError, Data: body})
		return nil
	}

	if err := h.replay(ctx, conn, replayEvents(run)); err != nil {
		slog.Debug("ws replay stopped", "error", err)
		return nil
	}

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	return nil
}

func (h *Handler) replay(ctx context.Context, conn *websocket.Conn, events []StreamEvent) error {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	var pace <-chan time.Time
	if h.streamInterval > 0 {
		t := time.NewTicker(h.streamInterval)
		defer t.Stop()
		pace = t.C
	}

	for i, ev := range events {
		// The first and last events are never delayed.
		if pace != nil && i > 0 && i < len(events)-1 {
			if err := wait(ctx, conn, ping.C, pace); err != nil {
				return err
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEvent(conn, ev); err != nil {
			return err
		}
	}
	return nil
}

// wait blocks until the next pace tick, pinging the peer meanwhile.
func wait(ctx context.Context, conn *websocket.Conn, ping, pace <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-pace:
			return nil
		case <-ping:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		}
	}
}

func writeEvent(conn *websocket.Conn, ev StreamEvent) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}

// replayEvents orders a run as start, markers and equity points by time,
// then the full result. At equal times markers precede the equity point.
func replayEvents(run service.Run) []StreamEvent {
	res := run.Result
	events := make([]StreamEvent, 0, len(run.Markers)+len(res.EquityCurve)+2)
	events = append(events, StreamEvent{Type: EventStart, Data: streamStart{
		Symbol:    res.Symbol,
		Timeframe: res.Timeframe,
		Bars:      res.Bars,
		Trades:    res.TotalTrades,
	}})

	body := make([]StreamEvent, 0, len(run.Markers)+len(res.EquityCurve))
	for _, m := range run.Markers {
		body = append(body, StreamEvent{Type: EventMarker, Time: &m.Time, Data: m})
	}
	for _, p := range res.EquityCurve {
		body = append(body, StreamEvent{Type: EventEquity, Time: &p.Time, Data: p})
	}
	sort.SliceStable(body, func(i, j int) bool { return *body[i].Time < *body[j].Time })

	events = append(events, body...)
	return append(events, StreamEvent{Type: EventResult, Data: res})
}
