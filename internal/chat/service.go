// Package chat is the free-form messaging feature that shares the websocket
// transport with the game. It keeps no game state and uses its own groups.
package chat

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Inbound events
const (
	EventJoin    = "chatJoin"
	EventMessage = "chatMessage"
	EventReply   = "chatReply"
	EventLike    = "chatLike"
	EventDislike = "chatDislike"
)

// Outbound events. chatMessage and chatReply are echoed under the same name.
const (
	EventHistory     = "chatHistory"
	EventUpdateLikes = "updateLikes"
	EventError       = "error"
)

const (
	// DefaultHistory is the per-room message cap when none is configured
	DefaultHistory = 100

	maxTextLength = 500
	groupPrefix   = "chat:"
)

var (
	ErrNoRoom          = errors.New("chat room is required")
	ErrNotInChat       = errors.New("join the chat before posting")
	ErrEmptyMessage    = errors.New("message is empty")
	ErrMessageNotFound = errors.New("message not found")
)

var errorKinds = map[error]string{
	ErrNoRoom:          "NoRoom",
	ErrNotInChat:       "NotInChat",
	ErrEmptyMessage:    "EmptyMessage",
	ErrMessageNotFound: "MessageNotFound",
}

// Transport is the subset of the connection layer chat needs.
type Transport interface {
	Emit(connID, event string, payload any)
	Broadcast(group, event string, payload any)
	JoinGroup(connID, group string)
	LeaveGroup(connID, group string)
}

type reaction int

const (
	none reaction = iota
	like
	dislike
)

// Reply is a response attached to a message
type Reply struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message is one chat entry with its reactions and replies
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Likes     int       `json:"likes"`
	Dislikes  int       `json:"dislikes"`
	Replies   []Reply   `json:"replies"`
	CreatedAt time.Time `json:"createdAt"`

	reactions map[string]reaction
}

// react applies connID's reaction. Repeating a reaction withdraws it.
func (m *Message) react(connID string, r reaction) {
	prev := m.reactions[connID]
	switch prev {
	case like:
		m.Likes--
	case dislike:
		m.Dislikes--
	}
	if prev == r {
		delete(m.reactions, connID)
		return
	}
	m.reactions[connID] = r
	switch r {
	case like:
		m.Likes++
	case dislike:
		m.Dislikes++
	}
}

func (m *Message) view() Message {
	v := *m
	v.Replies = append([]Reply(nil), m.Replies...)
	v.reactions = nil
	return v
}

type thread struct {
	messages []*Message
	members  map[string]string
}

func (t *thread) find(id string) *Message {
	for _, m := range t.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Service holds chat threads keyed by room name
type Service struct {
	transport Transport
	history   int
	threads   map[string]*thread
	mu        sync.Mutex
}

// NewService creates a chat service that keeps at most history messages per room
func NewService(transport Transport, history int) *Service {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Service{
		transport: transport,
		history:   history,
		threads:   make(map[string]*thread),
	}
}

// Handles reports whether event belongs to chat.
func Handles(event string) bool {
	return strings.HasPrefix(event, "chat")
}

type joinRequest struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

type messageRequest struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Text      string `json:"text"`
}

type historyPayload struct {
	Room     string    `json:"room"`
	Messages []Message `json:"messages"`
}

type messagePayload struct {
	Room    string  `json:"room"`
	Message Message `json:"message"`
}

type replyPayload struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Reply     Reply  `json:"reply"`
}

type likesPayload struct {
	Room      string `json:"room"`
	MessageID string `json:"messageId"`
	Likes     int    `json:"likes"`
	Dislikes  int    `json:"dislikes"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Dispatch handles one chat event from connID.
func (s *Service) Dispatch(connID, event string, payload json.RawMessage) {
	var err error
	switch event {
	case EventJoin:
		var req joinRequest
		if decode(connID, event, payload, &req) {
			err = s.join(connID, req)
		}
	case EventMessage, EventReply, EventLike, EventDislike:
		var req messageRequest
		if decode(connID, event, payload, &req) {
			err = s.handleMessage(connID, event, req)
		}
	default:
		log.Warn().Str("conn", connID).Str("event", event).Msg("Ignoring unknown chat event")
	}

	if err != nil {
		kind := errorKinds[err]
		s.transport.Emit(connID, EventError, errorPayload{Kind: kind, Message: err.Error()})
	}
}

func decode(connID, event string, payload json.RawMessage, v any) bool {
	if err := json.Unmarshal(payload, v); err != nil {
		log.Warn().Err(err).Str("conn", connID).Str("event", event).Msg("Ignoring malformed chat payload")
		return false
	}
	return true
}

func (s *Service) join(connID string, req joinRequest) error {
	room := strings.TrimSpace(req.Room)
	if room == "" {
		return ErrNoRoom
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Anonymous"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[room]
	if !ok {
		t = &thread{members: make(map[string]string)}
		s.threads[room] = t
	}
	t.members[connID] = name
	s.transport.JoinGroup(connID, groupPrefix+room)

	messages := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		messages = append(messages, m.view())
	}
	s.transport.Emit(connID, EventHistory, historyPayload{Room: room, Messages: messages})
	return nil
}

func (s *Service) handleMessage(connID, event string, req messageRequest) error {
	room := strings.TrimSpace(req.Room)
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.threads[room]
	if !ok {
		return ErrNotInChat
	}
	author, ok := t.members[connID]
	if !ok {
		return ErrNotInChat
	}
	group := groupPrefix + room

	switch event {
	case EventMessage:
		text, err := cleanText(req.Text)
		if err != nil {
			return err
		}
		m := &Message{
			ID:        uuid.NewString(),
			Author:    author,
			Text:      text,
			Replies:   []Reply{},
			CreatedAt: time.Now(),
			reactions: make(map[string]reaction),
		}
		t.messages = append(t.messages, m)
		if len(t.messages) > s.history {
			t.messages = t.messages[len(t.messages)-s.history:]
		}
		s.transport.Broadcast(group, EventMessage, messagePayload{Room: room, Message: m.view()})

	case EventReply:
		m := t.find(req.MessageID)
		if m == nil {
			return ErrMessageNotFound
		}
		text, err := cleanText(req.Text)
		if err != nil {
			return err
		}
		r := Reply{ID: uuid.NewString(), Author: author, Text: text, CreatedAt: time.Now()}
		m.Replies = append(m.Replies, r)
		s.transport.Broadcast(group, EventReply, replyPayload{Room: room, MessageID: m.ID, Reply: r})

	case EventLike, EventDislike:
		m := t.find(req.MessageID)
		if m == nil {
			return ErrMessageNotFound
		}
		r := like
		if event == EventDislike {
			r = dislike
		}
		m.react(connID, r)
		s.transport.Broadcast(group, EventUpdateLikes, likesPayload{
			Room:      room,
			MessageID: m.ID,
			Likes:     m.Likes,
			Dislikes:  m.Dislikes,
		})
	}
	return nil
}

func cleanText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		text = string([]rune(text)[:maxTextLength])
	}
	return text, nil
}

// Disconnect drops connID from every thread. A thread with no members left is discarded.
func (s *Service) Disconnect(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for room, t := range s.threads {
		if _, ok := t.members[connID]; !ok {
			continue
		}
		delete(t.members, connID)
		s.transport.LeaveGroup(connID, groupPrefix+room)
		if len(t.members) == 0 {
			delete(s.threads, room)
		}
	}
}
