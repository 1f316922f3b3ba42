package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tipscope/internal/aggregate"
	"tipscope/internal/model"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.controller.Snapshot())
}

func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	period := model.PeriodDay
	if raw := query.Get("period"); raw != "" {
		parsed, err := model.ParsePeriod(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		period = parsed
	}

	fill := s.cfg.DefaultFillEmpty
	if raw := query.Get("fill"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "invalid fill", http.StatusBadRequest)
			return
		}
		fill = parsed
	}

	topN := s.cfg.TopN
	if raw := query.Get("top"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid top", http.StatusBadRequest)
			return
		}
		topN = parsed
	}

	snapshot := s.controller.Snapshot()
	if snapshot.Period != period {
		// A period change needs a fresh full fetch with that period's
		// lookback. The fetch outlives this request; the snapshot served
		// below is the current one, with IsLoading signalling the switch.
		s.controller.SetPeriod(s.lifetimeContext(), period)
		snapshot = s.controller.Snapshot()
	}
	window := aggregate.Compute(snapshot.Events, aggregate.Params{
		Period:        period,
		Asset:         model.AssetKind(query.Get("asset")),
		FillEmpty:     fill,
		TopN:          topN,
		AssetDecimals: s.cfg.AssetDecimals,
	})
	s.decorate(r, &window)

	writeJSON(w, window)
}

// decorate fills display names and messages on leaderboard entries. Lookup
// failures are logged and leave entries plain; this path never blocks the
// aggregation itself.
func (s *Server) decorate(r *http.Request, window *model.AggregationWindow) {
	if s.profiles == nil {
		return
	}

	senders := make([]string, 0)
	seen := make(map[string]struct{})
	for _, board := range window.Leaderboards {
		for _, entry := range board {
			if _, ok := seen[entry.Sender]; ok {
				continue
			}
			seen[entry.Sender] = struct{}{}
			senders = append(senders, entry.Sender)
		}
	}
	if len(senders) == 0 {
		return
	}

	profiles, err := s.profiles.Lookup(r.Context(), senders)
	if err != nil {
		s.logger.Warn("profile lookup failed", zap.Error(err))
		return
	}

	for asset, board := range window.Leaderboards {
		for i := range board {
			if p, ok := profiles[board[i].Sender]; ok {
				board[i].DisplayName = p.Name
				board[i].Message = p.Message
			}
		}
		window.Leaderboards[asset] = board
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := s.controller.Snapshot()
	status := map[string]interface{}{
		"status":        "ok",
		"cursor":        snapshot.Cursor,
		"is_loading":    snapshot.IsLoading,
		"is_refreshing": snapshot.IsRefreshing,
	}
	if snapshot.LastError != "" {
		status["status"] = "degraded"
		status["last_error"] = snapshot.LastError
	}
	writeJSON(w, status)
}

// handleWebSocket pushes the current snapshot to the client on a fixed
// interval until the client goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.cfg.PushInterval)
	defer ticker.Stop()

	for {
		if err := conn.WriteJSON(s.controller.Snapshot()); err != nil {
			return
		}
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) lifetimeContext() context.Context {
	if s.baseCtx != nil {
		return s.baseCtx
	}
	return context.Background()
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
