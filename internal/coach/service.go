package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/store"
)

// Defaults for Service
const (
	DefaultHistoryLimit = 20
	DefaultTimeout      = 60 * time.Second
	MaxMessageLength    = 4000
)

var (
	// ErrUnavailable is returned when no model is configured
	ErrUnavailable = errors.New("AI coach is not configured")
	// ErrInvalidMessage is returned for empty or oversized messages
	ErrInvalidMessage = fmt.Errorf("message must be 1 to %d characters", MaxMessageLength)
	// ErrModelFailed wraps failures of the model call
	ErrModelFailed = errors.New("AI coach request failed")
)

// Service runs one chat exchange per Send
type Service struct {
	Store        store.Store
	Model        Model
	Timeout      time.Duration
	HistoryLimit int
}

// NewService returns a Service with default limits. A nil model disables the coach.
func NewService(st store.Store, m Model, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{Store: st, Model: m, Timeout: timeout, HistoryLimit: DefaultHistoryLimit}
}

// Available reports whether a model is configured
func (s *Service) Available() bool {
	return s != nil && s.Model != nil
}

// Exchange is the persisted pair of messages of one Send
type Exchange struct {
	Message *model.ChatMessage `json:"message"`
	Reply   *model.ChatMessage `json:"reply"`
}

// Send asks the model about doc on behalf of user and stores both sides of the exchange.
// Nothing is stored when the model fails. The caller has already checked read access.
func (s *Service) Send(ctx context.Context, user *model.User, doc *model.A3Document, content string, focus model.SectionType) (*Exchange, error) {
	if !s.Available() {
		return nil, ErrUnavailable
	}

	content = strings.TrimSpace(content)
	if n := utf8.RuneCountInString(content); n == 0 || n > MaxMessageLength {
		return nil, ErrInvalidMessage
	}
	if focus != "" {
		if _, err := model.ParseSectionType(string(focus)); err != nil {
			return nil, err
		}
	}

	sections, err := s.Store.ListSections(ctx, doc.Key)
	if err != nil {
		return nil, err
	}

	limit := s.HistoryLimit
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	history, err := s.Store.ListChatMessages(ctx, doc.Key, user.Key, limit)
	if err != nil {
		return nil, err
	}

	system := BuildSystemInstruction(doc, sections, focus)
	turns := BuildTurns(history, content)

	callCtx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	reply, err := s.Model.Generate(callCtx, system, turns)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFailed, err)
	}

	now := time.Now().UTC()
	question := &model.ChatMessage{
		DocumentKey: doc.Key,
		UserKey:     user.Key,
		Role:        model.ChatRoleUser,
		Content:     content,
		SectionType: focus,
		CreatedAt:   now,
	}
	answer := &model.ChatMessage{
		DocumentKey: doc.Key,
		UserKey:     user.Key,
		Role:        model.ChatRoleAssistant,
		Content:     reply,
		SectionType: focus,
		CreatedAt:   now.Add(time.Millisecond),
	}
	if err := s.Store.AppendChatExchange(ctx, question, answer); err != nil {
		return nil, err
	}

	return &Exchange{Message: question, Reply: answer}, nil
}

// History returns the user's recent messages about a document, oldest first
func (s *Service) History(ctx context.Context, user *model.User, doc *model.A3Document, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = s.HistoryLimit
	}
	return s.Store.ListChatMessages(ctx, doc.Key, user.Key, limit)
}

// Clear deletes the user's conversation about a document
func (s *Service) Clear(ctx context.Context, user *model.User, doc *model.A3Document) error {
	return s.Store.ClearChat(ctx, doc.Key, user.Key)
}
