package core_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-app/parley/internal/core"
	"github.com/parley-app/parley/internal/domain"
)

type nopConn struct{}

func (nopConn) TrySend(core.Frame) error { return nil }
func (nopConn) Close()                   {}

func peer(cid, uid string, host bool) *core.Peer {
	return &core.Peer{
		Info: &domain.Participant{
			ConnID:   domain.ConnID(cid),
			UserID:   domain.UserID(uid),
			Username: uid,
			IsHost:   host,
			JoinedAt: time.Now(),
		},
		Conn: nopConn{},
	}
}

func mustQueue(t *testing.T, reg *core.Registry, roomID domain.RoomID, w *core.Waiting) {
	t.Helper()
	added, _ := reg.EnqueueWaiting(roomID, w)
	require.True(t, added)
}

func guest(cid, uid string) *core.Waiting {
	return &core.Waiting{
		Info: &domain.WaitingGuest{
			ConnID:      domain.ConnID(cid),
			UserID:      domain.UserID(uid),
			Username:    uid,
			RequestedAt: time.Now(),
		},
		Conn: nopConn{},
	}
}

func TestSeatAndLookup(t *testing.T) {
	reg := core.NewRegistry()

	require.NoError(t, reg.Seat("room1", peer("c1", "u1", true)))

	roomID, ok := reg.Lookup("c1")
	assert.True(t, ok)
	assert.Equal(t, domain.RoomID("room1"), roomID)

	// A connection cannot be seated in two rooms.
	err := reg.Seat("room2", peer("c1", "u1", false))
	assert.ErrorIs(t, err, core.ErrAlreadySeated)

	roomID, _ = reg.Lookup("c1")
	assert.Equal(t, domain.RoomID("room1"), roomID)
}

func TestUnseatIdempotent(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("c1", "u1", true)))

	roomID, p, wasHost, ok := reg.Unseat("c1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("room1"), roomID)
	assert.True(t, wasHost)
	assert.Equal(t, domain.UserID("u1"), p.Info.UserID)

	_, _, _, ok = reg.Unseat("c1")
	assert.False(t, ok, "second unseat must be a no-op")

	_, ok = reg.Lookup("c1")
	assert.False(t, ok)
}

func TestRoomDiscardedWhenEmpty(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("c1", "u1", true)))
	reg.Unseat("c1")

	rooms, seated, waiting := reg.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, seated)
	assert.Zero(t, waiting)

	// Room can be recreated after discard.
	require.NoError(t, reg.Seat("room1", peer("c2", "u2", false)))
	s, _ := reg.Counts("room1")
	assert.Equal(t, 1, s)
}

func TestRoomSurvivesWhileGuestsWait(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	mustQueue(t, reg, "room1", guest("g1", "u2"))

	reg.Unseat("h")

	// Host left but a guest is still waiting: the room record stays.
	rooms, _, waiting := reg.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, waiting)

	_, ok := reg.RemoveWaiting("room1", "g1")
	assert.True(t, ok)
	rooms, _, _ = reg.Stats()
	assert.Zero(t, rooms)
}

func TestWaitingDedup(t *testing.T) {
	reg := core.NewRegistry()
	added, host := reg.EnqueueWaiting("room1", guest("g1", "u2"))
	assert.True(t, added)
	assert.Nil(t, host, "no host seated yet")

	added, _ = reg.EnqueueWaiting("room1", guest("g1", "u2"))
	assert.False(t, added, "duplicate enqueue must be refused")
	assert.Len(t, reg.WaitingSnapshot("room1"), 1)
}

func TestWaitingNotificationClaimedOnce(t *testing.T) {
	reg := core.NewRegistry()
	mustQueue(t, reg, "room1", guest("g1", "u2"))

	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))

	claimed := reg.ClaimWaitingNotifications("room1")
	require.Len(t, claimed, 1)
	assert.Equal(t, domain.ConnID("g1"), claimed[0].Info.ConnID)
	assert.Empty(t, reg.ClaimWaitingNotifications("room1"), "a second flush claims nothing")

	// Queued while the host is seated: announced at enqueue time, so a later
	// flush must not announce it again.
	added, host := reg.EnqueueWaiting("room1", guest("g2", "u3"))
	require.True(t, added)
	require.NotNil(t, host)
	assert.Equal(t, domain.ConnID("h"), host.Info.ConnID)
	assert.Empty(t, reg.ClaimWaitingNotifications("room1"))
}

func TestRemoveWaitingClaimsOnce(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	mustQueue(t, reg, "room1", guest("g1", "u2"))

	_, ok := reg.RemoveWaiting("room1", "g1")
	assert.True(t, ok)
	_, ok = reg.RemoveWaiting("room1", "g1")
	assert.False(t, ok, "second claim must be a no-op")
}

func TestSeatConsumesWaitingEntry(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	mustQueue(t, reg, "room1", guest("g1", "u2"))

	require.NoError(t, reg.Seat("room1", peer("g1", "u2", false)))

	assert.Empty(t, reg.WaitingSnapshot("room1"),
		"a connection id must never be seated and waiting in the same room")
	_, _, ok := reg.DropWaiting("g1")
	assert.False(t, ok)
}

func TestDropWaitingOnDisconnect(t *testing.T) {
	reg := core.NewRegistry()
	mustQueue(t, reg, "room1", guest("g1", "u2"))

	roomID, w, ok := reg.DropWaiting("g1")
	require.True(t, ok)
	assert.Equal(t, domain.RoomID("room1"), roomID)
	assert.Equal(t, domain.UserID("u2"), w.Info.UserID)

	_, _, ok = reg.DropWaiting("g1")
	assert.False(t, ok)
}

func TestListPeersExcluding(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	require.NoError(t, reg.Seat("room1", peer("g1", "u2", false)))
	require.NoError(t, reg.Seat("room1", peer("g2", "u3", false)))

	peers := reg.ListPeers("room1", "g1")
	assert.Len(t, peers, 2)
	for _, p := range peers {
		assert.NotEqual(t, domain.ConnID("g1"), p.Info.ConnID)
	}
}

func TestHostOf(t *testing.T) {
	reg := core.NewRegistry()
	_, ok := reg.HostOf("room1")
	assert.False(t, ok)

	require.NoError(t, reg.Seat("room1", peer("g1", "u2", false)))
	_, ok = reg.HostOf("room1")
	assert.False(t, ok)

	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	host, ok := reg.HostOf("room1")
	require.True(t, ok)
	assert.Equal(t, domain.ConnID("h"), host.Info.ConnID)
}

func TestSetMedia(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("c1", "u1", false)))

	info, err := reg.SetMedia("c1", core.MediaCamera, true)
	require.NoError(t, err)
	assert.True(t, info.Camera)

	info, err = reg.SetMedia("c1", core.MediaScreen, true)
	require.NoError(t, err)
	assert.True(t, info.Screen)
	assert.True(t, info.Camera, "previous flags must be preserved")

	_, err = reg.SetMedia("nope", core.MediaMic, true)
	assert.ErrorIs(t, err, core.ErrNotSeated)
}

func TestDropRoom(t *testing.T) {
	reg := core.NewRegistry()
	require.NoError(t, reg.Seat("room1", peer("h", "host", true)))
	require.NoError(t, reg.Seat("room1", peer("g1", "u2", false)))
	mustQueue(t, reg, "room1", guest("w1", "u3"))

	peers, waiting := reg.DropRoom("room1")
	assert.Len(t, peers, 2)
	assert.Len(t, waiting, 1)

	rooms, seated, waitCount := reg.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, seated)
	assert.Zero(t, waitCount)

	// Everyone's index entries are gone, so later disconnects are no-ops.
	_, _, _, ok := reg.Unseat("g1")
	assert.False(t, ok)
	_, _, ok2 := reg.DropWaiting("w1")
	assert.False(t, ok2)
}

// The reverse index and the seated sets must stay mutually consistent under
// concurrent churn across rooms.
func TestConcurrentSeatUnseat(t *testing.T) {
	reg := core.NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			room := domain.RoomID(fmt.Sprintf("room%d", worker%4))
			for j := 0; j < 100; j++ {
				cid := fmt.Sprintf("c%d-%d", worker, j)
				require.NoError(t, reg.Seat(room, peer(cid, cid, false)))
				got, ok := reg.Lookup(domain.ConnID(cid))
				assert.True(t, ok)
				assert.Equal(t, room, got)
				_, _, _, ok = reg.Unseat(domain.ConnID(cid))
				assert.True(t, ok)
			}
		}(i)
	}
	wg.Wait()

	rooms, seated, waiting := reg.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, seated)
	assert.Zero(t, waiting)
}
