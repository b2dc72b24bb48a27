package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/metaform/pkg/domain/model"
	"github.com/secmon-lab/metaform/pkg/domain/types"
	"github.com/secmon-lab/metaform/pkg/service/notify"
	"github.com/secmon-lab/metaform/pkg/utils/logging"
)

// Live form protocol. The server sends "form" on connect. The client sends
// "input" (field + value) and "submit"; the server answers with "field",
// "status", "notification", "navigate" and "error" messages.

type clientMessage struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Field string `json:"field,omitempty"`
	Value any    `json:"value,omitempty"`
}

type serverMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

type statusData struct {
	Valid bool `json:"valid"`
}

type errorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// wsPresenter forwards view notifications and navigation to the socket
type wsPresenter struct {
	conn *websocket.Conn
}

func (p *wsPresenter) Success(ctx context.Context, msg string) {
	send(ctx, p.conn, serverMessage{Type: "notification", Data: notify.Notification{Level: notify.LevelSuccess, Message: msg}})
}

func (p *wsPresenter) Error(ctx context.Context, msg, detail string) {
	send(ctx, p.conn, serverMessage{Type: "notification", Data: notify.Notification{Level: notify.LevelError, Message: msg, Detail: detail}})
}

func (p *wsPresenter) NavigateToRecord(ctx context.Context, entity types.EntityName, key string) {
	send(ctx, p.conn, serverMessage{Type: "navigate", Data: notify.Navigation{Entity: entity, Key: key}})
}

// formSession upgrades to WebSocket and runs one "new record" view for the
// lifetime of the connection.
func (s *Server) formSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	origins := s.wsOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: origins})
	if err != nil {
		logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow() //nolint:errcheck // best effort

	presenter := &wsPresenter{conn: conn}
	session, err := s.openForm(ctx, chi.URLParam(r, "entity"), presenter)
	if err != nil {
		sendError(ctx, conn, "", "FORM_LOAD_FAILED", model.ErrorDetail(err))
		conn.Close(websocket.StatusPolicyViolation, "form could not be loaded") //nolint:errcheck // closing anyway
		return
	}
	defer session.Close()

	unsub := session.view.Form.OnChange(func(valid bool) {
		send(ctx, conn, serverMessage{Type: "status", Data: statusData{Valid: valid}})
	})
	defer unsub()

	send(ctx, conn, serverMessage{Type: "form", Data: session.response()})

	for {
		msg, err := readClientMessage(ctx, conn)
		if err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.Debug("form session closed", "status", status)
				return
			}
			if errors.Is(err, errMalformedMessage) {
				sendError(ctx, conn, "", "INVALID_MESSAGE", "message must be a JSON object")
				continue
			}
			return
		}

		switch msg.Type {
		case "input":
			wg, ok := session.widget(msg.Field)
			if !ok {
				sendError(ctx, conn, msg.ID, "UNKNOWN_FIELD", "field "+msg.Field+" is not declared")
				continue
			}
			// a rejected value is reported through the field errors
			_ = wg.Input(msg.Value)
			send(ctx, conn, serverMessage{Type: "field", RequestID: msg.ID, Data: newFieldResponse(wg)})

		case "submit":
			rec, err := session.view.Submit(ctx)
			if err != nil {
				sendError(ctx, conn, msg.ID, "SUBMIT_FAILED", model.ErrorDetail(err))
				continue
			}
			send(ctx, conn, serverMessage{Type: "created", RequestID: msg.ID, Data: rec.Data})

		case "ping":
			send(ctx, conn, serverMessage{Type: "pong", RequestID: msg.ID})

		default:
			sendError(ctx, conn, msg.ID, "UNKNOWN_TYPE", "unknown message type: "+msg.Type)
		}
	}
}

var errMalformedMessage = goerr.New("malformed client message")

// readClientMessage reads one text frame. Numbers are kept as json.Number so
// that LONG values beyond 2^53 reach the control exactly.
func readClientMessage(ctx context.Context, conn *websocket.Conn) (clientMessage, error) {
	var msg clientMessage
	typ, data, err := conn.Read(ctx)
	if err != nil {
		return msg, err
	}
	if typ != websocket.MessageText {
		return msg, goerr.Wrap(errMalformedMessage, "binary frame")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&msg); err != nil {
		return msg, goerr.Wrap(errMalformedMessage, "invalid JSON", goerr.V("error", err.Error()))
	}
	return msg, nil
}

func send(ctx context.Context, conn *websocket.Conn, msg serverMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		logging.From(ctx).Debug("websocket write failed", "error", err, "type", msg.Type)
	}
}

func sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	send(ctx, conn, serverMessage{
		Type:      "error",
		RequestID: requestID,
		Data:      errorData{Code: code, Message: message},
	})
}
