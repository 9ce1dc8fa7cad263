package params

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		p, err := New("admin", "treasury", 250, 24*time.Hour, t0)
		require.NoError(t, err)
		assert.Equal(t, CurrentVersion, p.Version)
		assert.Equal(t, "admin", p.Admin)
		assert.Equal(t, "treasury", p.Treasury)
		assert.Equal(t, 250, p.FeeBps)
		assert.Equal(t, 24*time.Hour, p.DisputeWindow)
	})

	t.Run("empty treasury defaults to admin", func(t *testing.T) {
		p, err := New("admin", "", 0, time.Hour, t0)
		require.NoError(t, err)
		assert.Equal(t, "admin", p.Treasury)
	})

	t.Run("fee above cap rejected", func(t *testing.T) {
		_, err := New("admin", "", MaxFeeBps+1, time.Hour, t0)
		assert.ErrorIs(t, err, ErrInvalidFeeBps)
	})

	t.Run("window out of bounds rejected", func(t *testing.T) {
		_, err := New("admin", "", 0, 59*time.Second, t0)
		assert.ErrorIs(t, err, ErrInvalidDisputeWindow)

		_, err = New("admin", "", 0, MaxDisputeWindow+time.Second, t0)
		assert.ErrorIs(t, err, ErrInvalidDisputeWindow)
	})
}

func TestParameters_Setters(t *testing.T) {
	p, err := New("admin", "treasury", 250, 24*time.Hour, t0)
	require.NoError(t, err)

	t.Run("set fee bps", func(t *testing.T) {
		require.NoError(t, p.SetFeeBps(MaxFeeBps, t0.Add(time.Minute)))
		assert.Equal(t, MaxFeeBps, p.FeeBps)
		assert.Equal(t, t0.Add(time.Minute), p.UpdatedAt)

		assert.ErrorIs(t, p.SetFeeBps(-1, t0), ErrInvalidFeeBps)
		assert.ErrorIs(t, p.SetFeeBps(MaxFeeBps+1, t0), ErrInvalidFeeBps)
	})

	t.Run("set dispute window", func(t *testing.T) {
		require.NoError(t, p.SetDisputeWindow(MinDisputeWindow, t0))
		assert.Equal(t, MinDisputeWindow, p.DisputeWindow)

		assert.ErrorIs(t, p.SetDisputeWindow(time.Second, t0), ErrInvalidDisputeWindow)
	})

	t.Run("set treasury", func(t *testing.T) {
		require.NoError(t, p.SetTreasury("vault-2", t0))
		assert.Equal(t, "vault-2", p.Treasury)

		assert.ErrorIs(t, p.SetTreasury("", t0), ErrInvalidTreasury)
	})
}

func TestParameters_RequireAdmin(t *testing.T) {
	p, err := New("admin", "", 0, time.Hour, t0)
	require.NoError(t, err)

	assert.NoError(t, p.RequireAdmin("admin"))
	assert.ErrorIs(t, p.RequireAdmin("intruder"), ErrUnauthorized)
}

func TestParameters_Migrate(t *testing.T) {
	t.Run("old version gets treasury backfilled", func(t *testing.T) {
		p := &Parameters{Version: 1, Admin: "admin"}
		assert.True(t, p.Migrate())
		assert.Equal(t, CurrentVersion, p.Version)
		assert.Equal(t, "admin", p.Treasury)
	})

	t.Run("current version untouched", func(t *testing.T) {
		p, err := New("admin", "vault", 100, time.Hour, t0)
		require.NoError(t, err)
		assert.False(t, p.Migrate())
		assert.Equal(t, "vault", p.Treasury)
	})
}
