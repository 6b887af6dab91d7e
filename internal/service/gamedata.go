package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mmcdole/inferno/internal/domain"
)

// Key prefixes for imported game data
const (
	configKeyPrefix   = "config_"
	userKeyPrefix     = "user_"
	settingsKeyPrefix = "settings_"
)

// GameDataService imports game data payloads exported by the web game
type GameDataService struct {
	store  domain.Store
	logger *slog.Logger
}

// NewGameDataService creates a new GameDataService
func NewGameDataService(store domain.Store, logger *slog.Logger) *GameDataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GameDataService{store: store, logger: logger}
}

// ParseGameData decodes a payload. The payload must be a JSON object; a
// section with the wrong shape is skipped rather than failing the payload.
func ParseGameData(raw []byte, logger *slog.Logger) (domain.GameData, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var sections map[string]json.RawMessage
	if err := json.Unmarshal(raw, &sections); err != nil || sections == nil {
		return domain.GameData{}, fmt.Errorf("%w: expected a JSON object", domain.ErrInvalidPayload)
	}

	var data domain.GameData
	if msg, ok := sections["gameConfig"]; ok {
		var cfg domain.GameConfig
		if decodeSection("gameConfig", msg, &cfg, logger) {
			data.Config = &cfg
		}
	}
	if msg, ok := sections["userData"]; ok {
		var user domain.UserData
		if decodeSection("userData", msg, &user, logger) {
			data.User = &user
		}
	}
	if msg, ok := sections["settings"]; ok {
		var settings domain.GameSettings
		if decodeSection("settings", msg, &settings, logger) {
			data.Settings = &settings
		}
	}
	return data, nil
}

func decodeSection(name string, msg json.RawMessage, dest any, logger *slog.Logger) bool {
	// null and non-objects carry nothing usable
	if trimmed := strings.TrimSpace(string(msg)); !strings.HasPrefix(trimmed, "{") {
		logger.Debug("skipping non-object section", "section", name)
		return false
	}
	if err := json.Unmarshal(msg, dest); err != nil {
		logger.Debug("skipping malformed section", "section", name, "error", err)
		return false
	}
	return true
}

// Import parses raw and persists every recognised value. Settings strings
// are stored encrypted.
func (s *GameDataService) Import(raw []byte) (domain.GameData, error) {
	data, err := ParseGameData(raw, s.logger)
	if err != nil {
		return domain.GameData{}, err
	}

	if err := s.persist(data); err != nil {
		return domain.GameData{}, err
	}

	s.logger.Info("imported game data",
		"config", data.Config != nil,
		"user", data.User != nil,
		"settings", data.Settings != nil,
	)
	return data, nil
}

func (s *GameDataService) persist(data domain.GameData) error {
	if c := data.Config; c != nil {
		if err := setStringPtr(s.store.SetString, configKeyPrefix+"version", c.Version); err != nil {
			return err
		}
		if err := setStringPtr(s.store.SetString, configKeyPrefix+"difficulty", c.Difficulty); err != nil {
			return err
		}
		if err := setBoolPtr(s.store, configKeyPrefix+"soundenabled", c.SoundOn); err != nil {
			return err
		}
		if err := setBoolPtr(s.store, configKeyPrefix+"musicenabled", c.MusicOn); err != nil {
			return err
		}
	}

	// Score and level become the saved session progress restored by Start
	if u := data.User; u != nil {
		if u.Score != nil {
			if err := s.store.SetInt(KeySavedScore, *u.Score); err != nil {
				return fmt.Errorf("failed to store score: %w", err)
			}
		}
		if u.Level != nil {
			if err := s.store.SetInt(KeySavedLevel, *u.Level); err != nil {
				return fmt.Errorf("failed to store level: %w", err)
			}
		}
		if u.Achievements != nil {
			if err := setJSON(s.store, userKeyPrefix+"achievements", u.Achievements); err != nil {
				return err
			}
		}
		if u.Preferences != nil {
			if err := setJSON(s.store, userKeyPrefix+"preferences", u.Preferences); err != nil {
				return err
			}
		}
	}

	if st := data.Settings; st != nil {
		for key, value := range map[string]*string{
			"language": st.Language,
			"nickname": st.Nickname,
			"theme":    st.Theme,
		} {
			if err := setStringPtr(s.store.SetSecure, settingsKeyPrefix+key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Settings returns the decrypted imported settings
func (s *GameDataService) Settings() domain.GameSettings {
	get := func(key string) *string {
		if v, ok := s.store.GetSecure(settingsKeyPrefix + key); ok {
			return &v
		}
		return nil
	}
	return domain.GameSettings{
		Language: get("language"),
		Nickname: get("nickname"),
		Theme:    get("theme"),
	}
}

// Achievements returns the imported achievement list
func (s *GameDataService) Achievements() []string {
	raw, ok := s.store.GetString(userKeyPrefix + "achievements")
	if !ok {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func setStringPtr(set func(key, value string) error, key string, value *string) error {
	if value == nil {
		return nil
	}
	if err := set(key, *value); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func setBoolPtr(store domain.Store, key string, value *bool) error {
	if value == nil {
		return nil
	}
	n := 0
	if *value {
		n = 1
	}
	if err := store.SetInt(key, n); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func setJSON(store domain.Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.SetString(key, string(data)); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}
