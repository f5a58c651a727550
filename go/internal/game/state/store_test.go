package state

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreSubscribeReceivesLatest(t *testing.T) {
	store := NewStore(clockwork.NewFakeClockAt(epoch))
	ch, unsubscribe := store.Subscribe()
	defer unsubscribe()

	store.Update(LoadingSet{Loading: true})
	store.Update(ErrorSet{Message: "first"})
	store.Update(ErrorSet{Message: "second"})

	got := <-ch
	assert.Equal(t, "second", got.Error)
	assert.False(t, got.Loading)

	select {
	case extra := <-ch:
		t.Fatalf("unexpected pending state: %+v", extra)
	default:
	}
}

func TestStoreUnsubscribeClosesChannel(t *testing.T) {
	store := NewStore(clockwork.NewFakeClockAt(epoch))
	ch, unsubscribe := store.Subscribe()

	unsubscribe()
	unsubscribe() // second call is a no-op

	_, ok := <-ch
	assert.False(t, ok)

	// Updates after unsubscribe must not panic on the closed channel.
	store.Update(LoadingSet{Loading: true})
}

func TestStoreSnapshotMatchesUpdate(t *testing.T) {
	store := NewStore(clockwork.NewFakeClockAt(epoch))
	next := store.Update(SessionBound{RoomCode: "AB12", Username: "alice"})

	snap := store.Snapshot()
	require.True(t, snap.Bound())
	assert.Equal(t, next, snap)
}

func TestNewStoreDefaultsToRealClock(t *testing.T) {
	store := NewStore(nil)
	assert.Equal(t, Initial(), store.Snapshot())
}
