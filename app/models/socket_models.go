package models

// Socket event names on the /chat namespace
const (
	EventChatJoin    = "chat:join"
	EventChatHistory = "chat:history"
	EventChatMessage = "chat:message"
	EventChatSend    = "chat:send"
	EventChatSent    = "chat:sent"
	EventChatLeave   = "chat:leave"
	EventChatLeft    = "chat:left"
	EventChatError   = "chat:error"
)

// ChatJoinRequest authenticates the socket and opens a match channel
type ChatJoinRequest struct {
	Token   string `json:"token"`
	MatchID string `json:"match_id"`
}

// ChatSendRequest posts a message on a joined channel
type ChatSendRequest struct {
	MatchID string `json:"match_id"`
	Content string `json:"content"`
}

// ChatLeaveRequest stops the live feed of a channel
type ChatLeaveRequest struct {
	MatchID string `json:"match_id"`
}

// ChatHistoryResponse is emitted once after a successful join
type ChatHistoryResponse struct {
	Status    string        `json:"status"`
	MatchID   string        `json:"match_id"`
	Channel   ChannelStatus `json:"channel"`
	Messages  []Message     `json:"messages"`
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
}

// ChatAck confirms a send or leave
type ChatAck struct {
	Status    string   `json:"status"`
	MatchID   string   `json:"match_id"`
	Message   *Message `json:"message,omitempty"`
	Timestamp string   `json:"timestamp"`
	Event     string   `json:"event"`
}

// ConnectionError represents a socket error response
type ConnectionError struct {
	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorType string `json:"error_type"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
	MatchID   string `json:"match_id,omitempty"`
	Timestamp string `json:"timestamp"`
	SocketID  string `json:"socket_id"`
	Event     string `json:"event"`
}

// Socket-only error codes
const (
	ErrorCodeMissingField  = "MISSING_FIELD"
	ErrorCodeInvalidFormat = "INVALID_FORMAT"
	ErrorCodeUnauthorized  = "UNAUTHORIZED"
	ErrorCodeNotJoined     = "NOT_JOINED"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)
