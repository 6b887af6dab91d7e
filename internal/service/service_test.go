package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mmcdole/inferno/internal/security"
	"github.com/mmcdole/inferno/internal/store"
)

func newTestStore(t *testing.T) *store.PrefStore {
	t.Helper()
	helper, err := security.NewHelper()
	require.NoError(t, err)
	s, err := store.NewPrefStore("", "", helper)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) GenerateSessionToken() (string, error) {
	return s.token, s.err
}

// steppingClock advances one millisecond per call so events keep insertion order
func steppingClock() func() time.Time {
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}
