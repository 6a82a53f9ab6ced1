package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/guesstheplant/quiz-engine/internal/apperr"
	"github.com/guesstheplant/quiz-engine/internal/game"
	"github.com/guesstheplant/quiz-engine/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// PlayMessage is the wire format for interactive play, client to
// server and back.
type PlayMessage struct {
	Type     string               `json:"type"`
	Mode     models.GameMode      `json:"mode,omitempty"`
	Language string               `json:"language,omitempty"`
	OptionID models.ID            `json:"optionId,omitempty"`
	Question *game.QuestionView   `json:"question,omitempty"`
	Outcome  *game.AnswerOutcome  `json:"outcome,omitempty"`
	Summary  *game.RoundSummary   `json:"summary,omitempty"`
	Score    int                  `json:"score,omitempty"`
	Error    *apperr.Presentation `json:"error,omitempty"`
}

// handlePlayWS runs one interactive game per websocket connection.
// The read loop is the only goroutine touching the engine, which keeps
// the engine free of locking.
func (s *Server) handlePlayWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	slog.Info("play websocket connected", "remote_addr", r.RemoteAddr)

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = s.gameCfg.DefaultLanguage
	}

	tracker := game.NewSessionTracker(s.kv, s.newRand())
	engine := game.NewEngine(s.loader.Catalog(), s.rounds, tracker, s.newRand(), lang)

	// The request context is cancelled by the timeout middleware;
	// game state writes must outlive it.
	ctx := context.Background()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("websocket read error", "error", err)
			}
			break
		}

		var msg PlayMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			slog.Debug("invalid message format", "error", err)
			continue
		}

		switch msg.Type {
		case "start":
			if msg.Language != "" {
				lang = msg.Language
				engine = game.NewEngine(s.loader.Catalog(), s.rounds, tracker, s.newRand(), lang)
			}
			mode := msg.Mode
			if mode == "" {
				mode = models.ModeClassic
			}
			if err := engine.Start(ctx, mode); err != nil {
				s.sendPlayError(conn, err)
				continue
			}
			s.sendCurrentQuestion(conn, engine)

		case "answer":
			if msg.OptionID.IsZero() {
				s.sendPlayError(conn, apperr.GameLogic(nil, "an answer option id is required"))
				continue
			}
			outcome, err := engine.Answer(ctx, msg.OptionID)
			if err != nil {
				s.sendPlayError(conn, err)
				continue
			}
			s.sendPlayMessage(conn, PlayMessage{
				Type:    "outcome",
				Outcome: outcome,
				Score:   engine.Score(),
			})
			switch engine.Phase() {
			case game.PhasePlaying:
				s.sendCurrentQuestion(conn, engine)
			case game.PhaseFailed, game.PhaseComplete:
				s.sendPlayMessage(conn, PlayMessage{
					Type:  "gameOver",
					Score: engine.Score(),
				})
			}

		case "finishRound":
			summary, err := engine.FinishRound(ctx)
			if err != nil {
				s.sendPlayError(conn, err)
				continue
			}
			s.sendPlayMessage(conn, PlayMessage{
				Type:    "roundSummary",
				Summary: summary,
				Score:   engine.Score(),
			})
			if engine.Phase() == game.PhasePlaying {
				s.sendCurrentQuestion(conn, engine)
			} else {
				s.sendPlayMessage(conn, PlayMessage{
					Type:  "gameOver",
					Score: engine.Score(),
				})
			}

		case "clearSeen":
			if err := tracker.ClearSeenImages(ctx); err != nil {
				s.sendPlayError(conn, err)
				continue
			}
			s.sendPlayMessage(conn, PlayMessage{Type: "seenCleared"})

		default:
			slog.Debug("unknown play message type", "type", msg.Type)
		}
	}

	slog.Info("play websocket disconnected", "remote_addr", r.RemoteAddr)
}

func (s *Server) sendCurrentQuestion(conn *websocket.Conn, engine *game.Engine) {
	view, err := engine.CurrentQuestion()
	if err != nil {
		s.sendPlayError(conn, err)
		return
	}
	s.sendPlayMessage(conn, PlayMessage{
		Type:     "question",
		Question: view,
		Score:    engine.Score(),
	})
}

func (s *Server) sendPlayMessage(conn *websocket.Conn, msg PlayMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal play message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("failed to send play message", "error", err)
		return err
	}
	return nil
}

func (s *Server) sendPlayError(conn *websocket.Conn, err error) {
	p := apperr.Present(err)
	s.sendPlayMessage(conn, PlayMessage{
		Type:  "error",
		Error: &p,
	})
}
