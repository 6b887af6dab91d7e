package domain

// GameData is the typed form of a game data payload exported by the web game.
// Every section is optional; absent sections stay nil.
type GameData struct {
	Config   *GameConfig   `json:"gameConfig,omitempty"`
	User     *UserData     `json:"userData,omitempty"`
	Settings *GameSettings `json:"settings,omitempty"`
}

// GameConfig holds server-provided game configuration
type GameConfig struct {
	Version    *string `json:"version,omitempty"`
	Difficulty *string `json:"difficulty,omitempty"`
	SoundOn    *bool   `json:"soundEnabled,omitempty"`
	MusicOn    *bool   `json:"musicEnabled,omitempty"`
}

// UserData holds the player's progress. Only these fields are accepted from
// a payload; unknown user keys are dropped at parse time.
type UserData struct {
	Score        *int              `json:"score,omitempty"`
	Level        *int              `json:"level,omitempty"`
	Achievements []string          `json:"achievements,omitempty"`
	Preferences  map[string]string `json:"preferences,omitempty"`
}

// GameSettings holds free-form player settings. String values are stored
// encrypted.
type GameSettings struct {
	Language *string `json:"language,omitempty"`
	Nickname *string `json:"nickname,omitempty"`
	Theme    *string `json:"theme,omitempty"`
}

// IsEmpty returns true if the payload carried no recognised section
func (g GameData) IsEmpty() bool {
	return g.Config == nil && g.User == nil && g.Settings == nil
}

// Event is a recorded analytics event awaiting flush
type Event struct {
	ID        string            `json:"id"`
	Name      string            `json:"event"`
	Timestamp int64             `json:"timestamp"`
	Params    map[string]string `json:"parameters,omitempty"`
}
