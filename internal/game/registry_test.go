package game

import (
	"strings"
	"testing"
	"time"

	"tictacshift/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateIssuesUniqueCodes(t *testing.T) {
	r := NewRegistry()
	seen := make(map[string]bool)

	for i := 0; i < 500; i++ {
		room := r.Create()
		assert.Len(t, room.Code, 8)
		assert.Equal(t, strings.ToUpper(room.Code), room.Code)
		assert.False(t, seen[room.Code], "duplicate code %s", room.Code)
		seen[room.Code] = true

		assert.Equal(t, models.PhaseWaiting, room.Phase)
		assert.Equal(t, models.PlayerX, room.TurnOwner)
		assert.Empty(t, room.Participants)
	}
	assert.Equal(t, 500, r.Len())
}

func TestRegistryGet(t *testing.T) {
	r := NewRegistry()
	room := r.Create()

	got, err := r.Get(room.Code)
	require.NoError(t, err)
	assert.Same(t, room, got)

	got, err = r.Get("  " + strings.ToLower(room.Code) + " ")
	require.NoError(t, err)
	assert.Same(t, room, got)

	_, err = r.Get("NOPE1234")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestRegistryRemoveCancelsTimer(t *testing.T) {
	r := NewRegistry()
	room := r.Create()
	timer := startTurnTimer(room.Code, 1, time.Hour, func(string, uint64, <-chan struct{}) bool { return true })
	room.timer = timer

	r.Remove(room.Code)

	_, err := r.Get(room.Code)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	assert.Nil(t, room.timer)
	assert.Eventually(t, func() bool { return isClosed(timer.done) }, time.Second, 5*time.Millisecond)

	// removing twice is harmless
	r.Remove(room.Code)
	assert.Equal(t, 0, r.Len())
}

func TestRegistryForEachIsSorted(t *testing.T) {
	r := NewRegistry()
	for i := 0; i < 20; i++ {
		r.Create()
	}

	var codes []string
	r.ForEach(func(room *Room) { codes = append(codes, room.Code) })
	require.Len(t, codes, 20)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
}

func TestRegistryClear(t *testing.T) {
	r := NewRegistry()
	var timers []*turnTimer
	for i := 0; i < 3; i++ {
		room := r.Create()
		room.timer = startTurnTimer(room.Code, uint64(i), time.Hour, func(string, uint64, <-chan struct{}) bool { return true })
		timers = append(timers, room.timer)
	}

	r.Clear()

	assert.Equal(t, 0, r.Len())
	for _, timer := range timers {
		timer := timer
		assert.Eventually(t, func() bool { return isClosed(timer.done) }, time.Second, 5*time.Millisecond)
	}
}

func TestRoomSeating(t *testing.T) {
	room := newRoom("ABCD1234")

	host, err := room.seat("a", "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerX, host.Symbol)

	_, err = room.seat("a", "Alice again")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	guest, err := room.seat("b", "Bob")
	require.NoError(t, err)
	assert.Equal(t, models.PlayerO, guest.Symbol)

	_, err = room.seat("c", "Carol")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Len(t, room.Participants, 2)

	opp, ok := room.Opponent("a")
	require.True(t, ok)
	assert.Equal(t, "Bob", opp.Name)

	left, ok := room.unseat("a")
	require.True(t, ok)
	assert.Equal(t, "Alice", left.Name)
	_, ok = room.unseat("a")
	assert.False(t, ok)
	assert.Len(t, room.Participants, 1)
}

func TestRoomSummaryOpen(t *testing.T) {
	room := newRoom("ABCD1234")
	_, _ = room.seat("a", "Alice")
	assert.True(t, room.Summary().Open)

	_, _ = room.seat("b", "Bob")
	room.reset()
	summary := room.Summary()
	assert.False(t, summary.Open)
	assert.Equal(t, []string{"Alice", "Bob"}, summary.Players)
	assert.Equal(t, models.PhaseActive, summary.Phase)
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
