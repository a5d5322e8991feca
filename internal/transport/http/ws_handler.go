package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-gauntlet/internal/app"
	"quiz-gauntlet/internal/domain"
	"quiz-gauntlet/internal/logger"
)

// Player bundles the per-player collaborators, bound to that player's storage.
type Player struct {
	Profile   *app.Profile
	Presenter *app.ResultPresenter
}

// PlayerFunc resolves the collaborators for one player.
type PlayerFunc func(ownerID string) Player

var errInvalidPayload = errors.New("invalid payload")

type WSHandler struct {
	service  *app.ExtraStageService
	players  PlayerFunc
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ExtraStageService, players PlayerFunc, log *logger.Logger) *WSHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &WSHandler{
		service:  service,
		players:  players,
		log:      log.With("component", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	Choice string `json:"choice"`
}

type answerPayload struct {
	Value  string   `json:"value"`
	Values []string `json:"values"`
}

type nicknamePayload struct {
	Nickname string `json:"nickname"`
}

type registerPayload struct {
	Remote bool `json:"remote"`
}

type registerResult struct {
	SavedLocal      bool   `json:"savedLocal"`
	SubmittedRemote bool   `json:"submittedRemote"`
	LocalError      string `json:"localError,omitempty"`
	RemoteError     string `json:"remoteError,omitempty"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: userMessage(err)}}
}

// userMessage maps collaborator failures to something a player can act on.
func userMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrQuestionsUnavailable):
		return "Could not load questions. Please return to genre selection and try again."
	case errors.Is(err, domain.ErrNoQuestions):
		return "No questions are available right now. Please return to genre selection."
	case errors.Is(err, domain.ErrNicknameRequired):
		return "Please set a nickname first."
	case errors.Is(err, domain.ErrInvalidNickname):
		return "Nicknames are up to 10 letters, digits, kana or kanji."
	}
	return err.Error()
}

// ServeWS upgrades HTTP requests to websockets and drives one extra-stage run per connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		http.Error(w, "missing userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	run, err := h.service.Start(ctx, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}
	defer h.service.Release(userID, run)
	player := h.players(userID)
	presenter := player.Presenter

	events, cancel := run.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				out := []outboundMessage[any]{{Type: "event", Payload: ev}}
				if ev.Kind == app.EventFinished && ev.Result != nil {
					out = append(out, outboundMessage[any]{Type: "result", Payload: presenter.Present(ctx, *ev.Result)})
				}
				for _, msg := range out {
					select {
					case send <- msg:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply, ok := h.handle(ctx, run, player, inbound); ok {
			send <- reply
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// handle applies one inbound message. Run transitions are reported through the
// event stream, so only failures and request/response style actions reply directly.
func (h *WSHandler) handle(ctx context.Context, run *app.ExtraStageRun, player Player, in inboundMessage) (outboundMessage[any], bool) {
	presenter := player.Presenter
	switch in.Type {
	case "select":
		var p selectPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage(errInvalidPayload), true
		}
		if _, err := run.Select(p.Choice); err != nil {
			return errorMessage(err), true
		}
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage(errInvalidPayload), true
		}
		if _, err := run.Submit(toAnswer(run, p)); err != nil {
			return errorMessage(err), true
		}
	case "confirm":
		if _, err := run.Confirm(); err != nil {
			return errorMessage(err), true
		}
	case "nickname":
		var p nicknamePayload
		if err := json.Unmarshal(in.Payload, &p); err != nil {
			return errorMessage(errInvalidPayload), true
		}
		name, err := player.Profile.SetNickname(ctx, p.Nickname)
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "nickname", Payload: nicknamePayload{Nickname: name}}, true
	case "register":
		var p registerPayload
		_ = json.Unmarshal(in.Payload, &p)
		res, ok := run.Result()
		if !ok {
			return errorMessage(domain.ErrNoActiveQuestion), true
		}
		outcome := presenter.RegisterBest(ctx, presenter.Present(ctx, res), p.Remote)
		return outboundMessage[any]{Type: "registered", Payload: toRegisterResult(outcome)}, true
	case "certificate":
		res, ok := run.Result()
		if !ok {
			return errorMessage(domain.ErrNoActiveQuestion), true
		}
		cert, err := presenter.IssueExtraCertificate(ctx, presenter.Present(ctx, res))
		if err != nil {
			return errorMessage(err), true
		}
		return outboundMessage[any]{Type: "certificate", Payload: cert}, true
	default:
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}, true
	}
	return outboundMessage[any]{}, false
}

func toAnswer(run *app.ExtraStageRun, p answerPayload) domain.Answer {
	q, ok := run.State().Current()
	if ok && q.IsMultiple() {
		return domain.MultiAnswer(p.Values...)
	}
	if p.Value == "" && len(p.Values) > 0 {
		return domain.SingleAnswer(p.Values[0])
	}
	return domain.SingleAnswer(p.Value)
}

func toRegisterResult(o app.RegisterOutcome) registerResult {
	r := registerResult{SavedLocal: o.SavedLocal, SubmittedRemote: o.SubmittedRemote}
	if o.LocalErr != nil {
		r.LocalError = userMessage(o.LocalErr)
	}
	if o.RemoteErr != nil {
		r.RemoteError = userMessage(o.RemoteErr)
	}
	return r
}
