package services

import (
	"errors"
	"sync"
	"time"

	"github.com/dontwait/dontwait/internal/forms"
	"go.uber.org/zap"
)

const (
	DefaultChatSearchTimeout = 20 * time.Second
	chatRetention            = time.Hour
)

var ErrChatStopped = errors.New("chat service stopped")

type ChatPhase string

const (
	ChatIdle         ChatPhase = "idle"
	ChatSearching    ChatPhase = "searching"
	ChatNoAgentFound ChatPhase = "no_agent_found"
)

type ChatStatus struct {
	Phase     ChatPhase `json:"phase"`
	StartedAt time.Time `json:"started_at,omitempty"`
	// FallbackVariant names the form offered once no agent answered.
	FallbackVariant string `json:"fallback_variant,omitempty"`
}

func (s ChatStatus) FallbackAvailable() bool {
	return s.Phase == ChatNoAgentFound
}

type chatSession struct {
	phase      ChatPhase
	startedAt  time.Time
	timer      *time.Timer
	generation uint64
}

// ChatService simulates the "searching for an agent" widget: opening it starts a fixed timer,
// and when the timer fires the widget switches to "no agent found" exactly once.
// There is no real agent presence behind it.
type ChatService struct {
	mu         sync.Mutex
	timeout    time.Duration
	sessions   map[string]*chatSession
	generation uint64
	stopped    bool
	now        func() time.Time
	logger     *zap.Logger
	onNoAgent  func(id string)
}

func NewChatService(timeout time.Duration, logger *zap.Logger) *ChatService {
	if timeout <= 0 {
		timeout = DefaultChatSearchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		timeout:  timeout,
		sessions: make(map[string]*chatSession),
		now:      time.Now,
		logger:   logger.With(zap.String("component", "chat")),
	}
}

// OnNoAgent registers a callback run after a session switches to no_agent_found.
func (s *ChatService) OnNoAgent(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onNoAgent = fn
}

// Open (re)starts the search for id. A running timer for the same id is replaced.
func (s *ChatService) Open(id string) (ChatStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ChatStatus{Phase: ChatIdle}, ErrChatStopped
	}
	s.pruneLocked()

	if existing, ok := s.sessions[id]; ok && existing.timer != nil {
		existing.timer.Stop()
	}

	s.generation++
	generation := s.generation
	session := &chatSession{
		phase:      ChatSearching,
		startedAt:  s.now(),
		generation: generation,
	}
	session.timer = time.AfterFunc(s.timeout, func() {
		s.expire(id, generation)
	})
	s.sessions[id] = session

	s.logger.Debug("chat search started", zap.Duration("timeout", s.timeout))
	return statusOf(session), nil
}

func (s *ChatService) Status(id string) ChatStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ChatStatus{Phase: ChatIdle}
	}
	return statusOf(session)
}

// Close stops the timer for id and forgets the session.
func (s *ChatService) Close(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session, ok := s.sessions[id]; ok {
		if session.timer != nil {
			session.timer.Stop()
		}
		delete(s.sessions, id)
	}
}

// Stop cancels every pending timer. Open fails afterwards.
func (s *ChatService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.sessions {
		if session.timer != nil {
			session.timer.Stop()
		}
		delete(s.sessions, id)
	}
	s.stopped = true
}

func (s *ChatService) expire(id string, generation uint64) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if !ok || session.generation != generation || session.phase != ChatSearching {
		s.mu.Unlock()
		return
	}
	session.phase = ChatNoAgentFound
	session.timer = nil
	callback := s.onNoAgent
	s.mu.Unlock()

	s.logger.Debug("chat search timed out")
	if callback != nil {
		callback(id)
	}
}

// pruneLocked drops sessions that finished searching long ago and were never closed.
func (s *ChatService) pruneLocked() {
	threshold := s.now().Add(-chatRetention)
	for id, session := range s.sessions {
		if session.phase == ChatNoAgentFound && session.startedAt.Before(threshold) {
			delete(s.sessions, id)
		}
	}
}

func statusOf(session *chatSession) ChatStatus {
	status := ChatStatus{Phase: session.phase, StartedAt: session.startedAt}
	if session.phase == ChatNoAgentFound {
		status.FallbackVariant = forms.VariantChatEmail
	}
	return status
}
