package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travorier/app/models"
	"travorier/app/services"
)

func TestChannelLocksDayAfterDeparture(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "10:00")
	match := f.unlockedMatch(t, offer, sender, 2)

	lockTime, err := f.channels.LockTime(*offer)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC), lockTime)

	f.clock.Set(lockTime.Add(-time.Second))
	_, err = f.channels.Send(ctx, sender, match.ID, "landing soon")
	require.NoError(t, err)

	status, err := f.channels.Status(ctx, traveler, match.ID)
	require.NoError(t, err)
	assert.False(t, status.Locked)
	assert.True(t, status.Unlocked)

	f.clock.Set(lockTime.Add(time.Second))
	_, err = f.channels.Send(ctx, sender, match.ID, "too late")
	require.ErrorIs(t, err, models.ErrChannelLocked)
	assert.Equal(t, models.KindPrecondition, models.KindOf(err))

	status, err = f.channels.Status(ctx, traveler, match.ID)
	require.NoError(t, err)
	assert.True(t, status.Locked)

	// history stays readable after the lock
	history, err := f.channels.LoadHistory(ctx, traveler, match.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "landing soon", history[0].Content)
}

func TestIsLockedBoundary(t *testing.T) {
	lock := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	assert.False(t, services.IsLocked(lock, lock.Add(-time.Second)))
	assert.True(t, services.IsLocked(lock, lock))
	assert.True(t, services.IsLocked(lock, lock.Add(time.Second)))
}

func TestSendRejectsEmptyContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	match := f.unlockedMatch(t, offer, sender, 2)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := f.channels.Send(ctx, sender, match.ID, content)
		require.ErrorIs(t, err, models.ErrEmptyContent)
		assert.Equal(t, models.KindValidation, models.KindOf(err))
	}

	history, err := f.channels.LoadHistory(ctx, sender, match.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendTrimsContent(t *testing.T) {
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	match := f.unlockedMatch(t, offer, sender, 2)

	msg, err := f.channels.Send(context.Background(), traveler, match.ID, "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, traveler, msg.SenderID)
	assert.Equal(t, match.ID, msg.MatchID)
}

func TestChannelAccessRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	request := f.request(t, sender, 2)
	match, err := f.matches.CreateMatch(ctx, sender, request.ID, offer.ID, 2)
	require.NoError(t, err)

	_, err = f.channels.Send(ctx, sender, match.ID, "hi")
	assert.ErrorIs(t, err, models.ErrUnlockRequired)
	_, err = f.channels.Open(ctx, sender, match.ID)
	assert.ErrorIs(t, err, models.ErrUnlockRequired)

	require.NoError(t, f.ledger.Grant(ctx, sender, 1, "purchase-1"))
	_, err = f.unlocks.Unlock(ctx, sender, match.ID)
	require.NoError(t, err)

	_, err = f.channels.Send(ctx, stranger, match.ID, "hi")
	assert.ErrorIs(t, err, models.ErrNotParticipant)
	_, err = f.channels.LoadHistory(ctx, stranger, match.ID)
	assert.ErrorIs(t, err, models.ErrNotParticipant)
	_, err = f.channels.Subscribe(ctx, stranger, match.ID)
	assert.ErrorIs(t, err, models.ErrNotParticipant)
	_, err = f.channels.Send(ctx, sender, "missing", "hi")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestHistoryOrderWithEqualTimestamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	match := f.unlockedMatch(t, offer, sender, 2)

	// the clock does not move, so every message shares one timestamp
	var sent []string
	for _, content := range []string{"one", "two", "three", "four"} {
		msg, err := f.channels.Send(ctx, sender, match.ID, content)
		require.NoError(t, err)
		sent = append(sent, msg.ID)
	}

	history, err := f.channels.LoadHistory(ctx, traveler, match.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, msg := range history {
		assert.Equal(t, sent[i], msg.ID)
		assert.True(t, msg.CreatedAt.Equal(history[0].CreatedAt))
	}
}

func TestOpenDeliversHistoryThenLiveMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	match := f.unlockedMatch(t, offer, sender, 2)

	first, err := f.channels.Send(ctx, sender, match.ID, "before join")
	require.NoError(t, err)

	open, err := f.channels.Open(ctx, traveler, match.ID)
	require.NoError(t, err)
	defer open.Subscription.Unsubscribe()
	require.Len(t, open.History, 1)
	assert.Equal(t, first.ID, open.History[0].ID)
	assert.False(t, open.Status.Locked)

	live, err := f.channels.Send(ctx, sender, match.ID, "after join")
	require.NoError(t, err)

	select {
	case got := <-open.Subscription.C():
		assert.Equal(t, live.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("live message not delivered")
	}

	conv := services.NewConversation(open.History)
	assert.True(t, conv.Add(*live))
	assert.False(t, conv.Add(*live))
	assert.Equal(t, 2, conv.Len())
}

func TestReapLockedClosesSubscriptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	offer := f.offer(t, traveler, 10, 5, "2024-06-01", "")
	match := f.unlockedMatch(t, offer, sender, 2)

	sub, err := f.channels.Subscribe(ctx, sender, match.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, f.channels.ReapLocked(ctx))

	f.clock.Set(time.Date(2024, 6, 2, 0, 0, 1, 0, time.UTC))
	assert.Equal(t, 1, f.channels.ReapLocked(ctx))

	_, open := <-sub.C()
	assert.False(t, open)
	assert.ErrorIs(t, sub.Err(), models.ErrChannelLocked)
	sub.Unsubscribe()
}
