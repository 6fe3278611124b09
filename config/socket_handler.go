package config

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	socketio "github.com/doquangtan/socket.io/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"travorier/app/models"
	"travorier/app/services"
	"travorier/app/utils"
)

// ChatNamespace is the socket.io namespace serving match chats
const ChatNamespace = "/chat"

// SocketIoHandler handles all Socket.IO related functionality
type SocketIoHandler struct {
	io       *socketio.Io
	channels *services.ChannelService
	tokens   *utils.JWTManager
	logger   zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*chatSession
}

// chatSession is the per-socket state: who joined and which feeds are live
type chatSession struct {
	socket *socketio.Socket
	emitMu sync.Mutex

	mu       sync.Mutex
	identity string
	subs     map[string]*services.Subscription
}

// NewSocketHandler creates a new Socket.IO handler instance
func NewSocketHandler(channels *services.ChannelService, tokens *utils.JWTManager, logger zerolog.Logger) *SocketIoHandler {
	handler := &SocketIoHandler{
		io:       socketio.New(),
		channels: channels,
		tokens:   tokens,
		logger:   logger.With().Str("component", "socket").Logger(),
		sessions: make(map[string]*chatSession),
	}
	handler.setupSocketHandlers()
	return handler
}

// setupSocketHandlers configures all Socket.IO event handlers
func (h *SocketIoHandler) setupSocketHandlers() {
	// Tokens are checked per chat:join, so the handshake itself is open
	h.io.OnAuthorization(func(params map[string]string) bool {
		return true
	})

	h.io.Of(ChatNamespace).OnConnection(func(socket *socketio.Socket) {
		h.logger.Debug().Str("socket_id", socket.Id).Str("namespace", socket.Nps).Msg("socket connected")
		sess := h.openSession(socket)

		socket.On(models.EventChatJoin, func(event *socketio.EventPayload) {
			var req models.ChatJoinRequest
			if !h.decode(sess, event, "join_data", &req) {
				return
			}
			h.handleJoin(sess, req)
		})

		socket.On(models.EventChatSend, func(event *socketio.EventPayload) {
			var req models.ChatSendRequest
			if !h.decode(sess, event, "send_data", &req) {
				return
			}
			h.handleSend(sess, req)
		})

		socket.On(models.EventChatLeave, func(event *socketio.EventPayload) {
			var req models.ChatLeaveRequest
			if !h.decode(sess, event, "leave_data", &req) {
				return
			}
			sess.release(req.MatchID)
			sess.emit(models.EventChatLeft, models.ChatAck{
				Status:    "success",
				MatchID:   req.MatchID,
				Timestamp: timestamp(),
				Event:     models.EventChatLeft,
			})
		})

		socket.On("disconnect", func(event *socketio.EventPayload) {
			h.closeSession(socket.Id)
			h.logger.Debug().Str("socket_id", socket.Id).Msg("socket disconnected")
		})
	})
}

func (h *SocketIoHandler) handleJoin(sess *chatSession, req models.ChatJoinRequest) {
	if req.MatchID == "" {
		sess.emitError(req.MatchID, models.ErrorCodeMissingField, string(models.KindValidation), "match_id", "match_id is required")
		return
	}

	identity := sess.currentIdentity()
	if req.Token != "" {
		claims, err := h.tokens.ValidateToken(req.Token)
		if err != nil {
			sess.emitError(req.MatchID, models.ErrorCodeUnauthorized, string(models.KindAuthorization), "token", "Invalid token")
			return
		}
		if identity != "" && identity != claims.UserID {
			sess.emitError(req.MatchID, models.ErrorCodeUnauthorized, string(models.KindAuthorization), "token", "Socket is bound to another user")
			return
		}
		identity = claims.UserID
	}
	if identity == "" {
		sess.emitError(req.MatchID, models.ErrorCodeUnauthorized, string(models.KindAuthorization), "token", "token is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	open, err := h.channels.Open(ctx, identity, req.MatchID)
	if err != nil {
		sess.emitAppError(req.MatchID, err)
		return
	}

	sess.bind(identity, open.Subscription)
	sess.emit(models.EventChatHistory, models.ChatHistoryResponse{
		Status:    "success",
		MatchID:   req.MatchID,
		Channel:   open.Status,
		Messages:  open.History,
		Timestamp: timestamp(),
		Event:     models.EventChatHistory,
	})
	go h.pump(sess, open.Subscription)
}

func (h *SocketIoHandler) handleSend(sess *chatSession, req models.ChatSendRequest) {
	identity := sess.currentIdentity()
	if identity == "" {
		sess.emitError(req.MatchID, models.ErrorCodeNotJoined, string(models.KindAuthorization), "match_id", "join a chat before sending")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg, err := h.channels.Send(ctx, identity, req.MatchID, req.Content)
	if err != nil {
		sess.emitAppError(req.MatchID, err)
		return
	}
	sess.emit(models.EventChatSent, models.ChatAck{
		Status:    "success",
		MatchID:   req.MatchID,
		Message:   msg,
		Timestamp: timestamp(),
		Event:     models.EventChatSent,
	})
}

// pump forwards a subscription to the socket until it is released or dropped
func (h *SocketIoHandler) pump(sess *chatSession, sub *services.Subscription) {
	for msg := range sub.C() {
		sess.emit(models.EventChatMessage, msg)
	}
	if err := sub.Err(); err != nil {
		// the client reloads history by joining again
		sess.emitAppError(sub.MatchID(), err)
	}
	sess.forget(sub)
}

func (h *SocketIoHandler) decode(sess *chatSession, event *socketio.EventPayload, field string, dest interface{}) bool {
	if len(event.Data) == 0 {
		sess.emitError("", models.ErrorCodeMissingField, string(models.KindValidation), field, "No data provided")
		return false
	}
	raw, err := json.Marshal(event.Data[0])
	if err == nil {
		err = json.Unmarshal(raw, dest)
	}
	if err != nil {
		sess.emitError("", models.ErrorCodeInvalidFormat, string(models.KindValidation), field, "Invalid data format")
		return false
	}
	return true
}

func (h *SocketIoHandler) openSession(socket *socketio.Socket) *chatSession {
	sess := &chatSession{socket: socket, subs: make(map[string]*services.Subscription)}
	h.mu.Lock()
	h.sessions[socket.Id] = sess
	h.mu.Unlock()
	return sess
}

func (h *SocketIoHandler) closeSession(socketID string) {
	h.mu.Lock()
	sess, ok := h.sessions[socketID]
	delete(h.sessions, socketID)
	h.mu.Unlock()
	if ok {
		sess.releaseAll()
	}
}

// Close releases every live subscription
func (h *SocketIoHandler) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*chatSession)
	h.mu.Unlock()
	for _, sess := range sessions {
		sess.releaseAll()
	}
}

// SetupSocketRoutes configures Socket.IO routes for the Fiber app
func (h *SocketIoHandler) SetupSocketRoutes(app *fiber.App) {
	app.Use("/", h.io.Middleware)
	app.Route("/socket.io", h.io.FiberRoute)
}

func (s *chatSession) currentIdentity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// bind records identity and replaces any earlier feed for the same match
func (s *chatSession) bind(identity string, sub *services.Subscription) {
	s.mu.Lock()
	s.identity = identity
	old := s.subs[sub.MatchID()]
	s.subs[sub.MatchID()] = sub
	s.mu.Unlock()
	if old != nil {
		old.Unsubscribe()
	}
}

func (s *chatSession) forget(sub *services.Subscription) {
	s.mu.Lock()
	if s.subs[sub.MatchID()] == sub {
		delete(s.subs, sub.MatchID())
	}
	s.mu.Unlock()
}

func (s *chatSession) release(matchID string) {
	s.mu.Lock()
	sub := s.subs[matchID]
	delete(s.subs, matchID)
	s.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (s *chatSession) releaseAll() {
	s.mu.Lock()
	subs := s.subs
	s.subs = make(map[string]*services.Subscription)
	s.mu.Unlock()
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}

func (s *chatSession) emit(event string, payload interface{}) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	s.socket.Emit(event, payload)
}

func (s *chatSession) emitError(matchID, code, kind, field, message string) {
	s.emit(models.EventChatError, models.ConnectionError{
		Status:    "error",
		ErrorCode: code,
		ErrorType: kind,
		Field:     field,
		Message:   message,
		MatchID:   matchID,
		Timestamp: timestamp(),
		SocketID:  s.socket.Id,
		Event:     models.EventChatError,
	})
}

func (s *chatSession) emitAppError(matchID string, err error) {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		s.emitError(matchID, appErr.Code, string(appErr.Kind), appErr.Field, appErr.Message)
		return
	}
	s.emitError(matchID, models.ErrorCodeInternal, string(models.KindResource), "", "Internal server error")
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
