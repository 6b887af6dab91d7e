package service

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/mmcdole/inferno/internal/domain"
)

// Persisted session keys. The store adds its namespace prefix.
const (
	KeySessionToken = "session_token"
	KeySavedScore   = "saved_score"
	KeySavedLevel   = "saved_level"
	KeyFinalScore   = "final_score"
	KeyHighScore    = "high_score"
)

const startLevel = 1

// TokenGenerator issues opaque session tokens
type TokenGenerator interface {
	GenerateSessionToken() (string, error)
}

// SessionService manages the player's session token and saved progress
type SessionService struct {
	store  domain.Store
	tokens TokenGenerator
	logger *slog.Logger

	mu    sync.Mutex
	token string
	score int
	level int
}

// NewSessionService creates a new SessionService
func NewSessionService(store domain.Store, tokens TokenGenerator, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{
		store:  store,
		tokens: tokens,
		logger: logger,
		level:  startLevel,
	}
}

// Start issues and persists a fresh session token, then restores any saved
// score and level
func (s *SessionService) Start() (string, error) {
	token, err := s.tokens.GenerateSessionToken()
	if err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	if err := s.store.SetString(KeySessionToken, token); err != nil {
		return "", fmt.Errorf("failed to persist session token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.restoreLocked()

	s.logger.Info("session started", "score", s.score, "level", s.level)
	return token, nil
}

// Resume restores the persisted token and progress without issuing a new
// token. It reports whether a token was stored.
func (s *SessionService) Resume() bool {
	token, ok := s.store.GetString(KeySessionToken)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.restoreLocked()
	return ok
}

func (s *SessionService) restoreLocked() {
	s.score = 0
	s.level = startLevel
	if v, ok := s.store.GetInt(KeySavedScore); ok {
		s.score = v
	}
	if v, ok := s.store.GetInt(KeySavedLevel); ok {
		s.level = v
	}
}

// Token returns the current session token, empty before Start
func (s *SessionService) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Progress returns the current score and level
func (s *SessionService) Progress() (score, level int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.score, s.level
}

// SaveProgress records score and level so the next Start restores them
func (s *SessionService) SaveProgress(score, level int) error {
	s.mu.Lock()
	s.score, s.level = score, level
	s.mu.Unlock()

	if err := s.store.SetInt(KeySavedScore, score); err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	if err := s.store.SetInt(KeySavedLevel, level); err != nil {
		return fmt.Errorf("failed to save level: %w", err)
	}
	return nil
}

// End stores the current score encrypted as the final score, raises the high
// score when beaten and clears the saved progress
func (s *SessionService) End() error {
	s.mu.Lock()
	score := s.score
	s.mu.Unlock()

	if err := s.store.SetSecure(KeyFinalScore, strconv.Itoa(score)); err != nil {
		return fmt.Errorf("failed to save final score: %w", err)
	}
	if high, ok := s.store.GetInt(KeyHighScore); !ok || score > high {
		if err := s.store.SetInt(KeyHighScore, score); err != nil {
			return fmt.Errorf("failed to save high score: %w", err)
		}
	}
	for _, key := range []string{KeySavedScore, KeySavedLevel} {
		if err := s.store.Delete(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}

	s.logger.Info("session ended", "score", score)
	return nil
}

// FinalScore returns the last ended session's score. A stored value that
// does not decrypt to an integer counts as absent.
func (s *SessionService) FinalScore() (int, bool) {
	raw, ok := s.store.GetSecure(KeyFinalScore)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.logger.Warn("discarding unreadable final score")
		return 0, false
	}
	return n, true
}

// HighScore returns the best final score recorded
func (s *SessionService) HighScore() (int, bool) {
	return s.store.GetInt(KeyHighScore)
}

// Reset removes every persisted session value and returns to a fresh state.
// The high score survives.
func (s *SessionService) Reset() error {
	for _, key := range []string{KeySavedScore, KeySavedLevel, KeyFinalScore, KeySessionToken} {
		if err := s.store.Delete(key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}

	s.mu.Lock()
	s.token = ""
	s.score = 0
	s.level = startLevel
	s.mu.Unlock()

	s.logger.Info("session reset")
	return nil
}
