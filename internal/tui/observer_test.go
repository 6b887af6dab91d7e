package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mmcdole/inferno/internal/domain"
)

func TestChannelObserver_NewestWins(t *testing.T) {
	obs := NewChannelObserver(2)

	obs.OnStatus(domain.Progressing(0))
	obs.OnStatus(domain.Progressing(0.5))
	obs.OnStatus(domain.Finished())

	updates := obs.Updates()
	assert.Equal(t, domain.Progressing(0.5), <-updates)
	assert.Equal(t, domain.Finished(), <-updates)
	assert.Empty(t, updates)
}

func TestChannelObserver_MinimumBuffer(t *testing.T) {
	obs := NewChannelObserver(0)

	obs.OnStatus(domain.Standby())
	obs.OnStatus(domain.NoConnection())

	assert.Equal(t, domain.NoConnection(), <-obs.Updates())
}
