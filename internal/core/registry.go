package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/parley-app/parley/internal/domain"
)

// meeting is the ephemeral in-memory state of one live room: the seated set
// and the waiting list. All mutations on a meeting are serialized by mu.
// gone marks a meeting that has been discarded; holders must re-resolve.
type meeting struct {
	id      domain.RoomID
	mu      sync.RWMutex
	seated  map[domain.ConnID]*Peer
	waiting map[domain.ConnID]*Waiting
	gone    bool
}

// Registry is the source of truth for who is live and where.
// It owns the rooms map and the reverse indexes (connection -> room) used
// for O(1) cleanup on disconnect. Cross-room lookups take the registry
// lock briefly; membership mutations take the room's own lock, so traffic
// in unrelated rooms does not contend.
//
// Lock order: meeting.mu before Registry.mu, never the reverse.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[domain.RoomID]*meeting
	seatIndex map[domain.ConnID]domain.RoomID
	waitIndex map[domain.ConnID]domain.RoomID
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:     make(map[domain.RoomID]*meeting),
		seatIndex: make(map[domain.ConnID]domain.RoomID),
		waitIndex: make(map[domain.ConnID]domain.RoomID),
	}
}

func (r *Registry) getOrCreate(id domain.RoomID) *meeting {
	r.mu.RLock()
	m, ok := r.rooms[id]
	r.mu.RUnlock()
	if ok {
		return m
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok = r.rooms[id]; ok {
		return m
	}
	m = &meeting{
		id:      id,
		seated:  make(map[domain.ConnID]*Peer),
		waiting: make(map[domain.ConnID]*Waiting),
	}
	r.rooms[id] = m
	log.Debug().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return m
}

func (r *Registry) room(id domain.RoomID) (*meeting, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.rooms[id]
	return m, ok
}

// discardIfEmpty drops the meeting from the rooms map once nobody is seated
// and nobody is waiting. Caller must hold m.mu.
func (r *Registry) discardIfEmpty(m *meeting) {
	if len(m.seated) > 0 || len(m.waiting) > 0 {
		return
	}
	m.gone = true
	r.mu.Lock()
	if r.rooms[m.id] == m {
		delete(r.rooms, m.id)
	}
	r.mu.Unlock()
	log.Debug().Str("module", "core.registry").Str("room", string(m.id)).Msg("room discarded")
}

// Seat inserts the connection into the room's seated set and the reverse
// index. It fails if the connection is already seated anywhere; the caller
// must unseat first. A waiting entry of the same connection in the same room
// is consumed by seating.
func (r *Registry) Seat(roomID domain.RoomID, p *Peer) error {
	cid := p.Info.ConnID
	for {
		m := r.getOrCreate(roomID)
		m.mu.Lock()
		if m.gone {
			m.mu.Unlock()
			continue
		}
		r.mu.Lock()
		if _, dup := r.seatIndex[cid]; dup {
			r.mu.Unlock()
			m.mu.Unlock()
			return ErrAlreadySeated
		}
		r.seatIndex[cid] = roomID
		if wr, ok := r.waitIndex[cid]; ok && wr == roomID {
			delete(r.waitIndex, cid)
		}
		r.mu.Unlock()
		delete(m.waiting, cid)
		m.seated[cid] = p
		m.mu.Unlock()
		log.Info().Str("module", "core.registry").
			Str("room", string(roomID)).
			Str("conn", string(cid)).
			Bool("host", p.Info.IsHost).
			Msg("seated")
		return nil
	}
}

// Unseat atomically removes the connection from its room's seated set and
// the reverse index. Idempotent: unknown connections are a no-op with
// ok=false. wasHost reports whether the removed seat held host authority,
// for cascade decisions.
func (r *Registry) Unseat(cid domain.ConnID) (roomID domain.RoomID, p *Peer, wasHost, ok bool) {
	r.mu.RLock()
	roomID, ok = r.seatIndex[cid]
	r.mu.RUnlock()
	if !ok {
		return "", nil, false, false
	}
	m, found := r.room(roomID)
	if !found {
		// Stale index entry; repair and report not seated.
		r.mu.Lock()
		delete(r.seatIndex, cid)
		r.mu.Unlock()
		return "", nil, false, false
	}
	m.mu.Lock()
	p, ok = m.seated[cid]
	if !ok {
		m.mu.Unlock()
		return "", nil, false, false
	}
	delete(m.seated, cid)
	r.mu.Lock()
	delete(r.seatIndex, cid)
	r.mu.Unlock()
	r.discardIfEmpty(m)
	m.mu.Unlock()
	log.Info().Str("module", "core.registry").
		Str("room", string(roomID)).
		Str("conn", string(cid)).
		Bool("host", p.Info.IsHost).
		Msg("unseated")
	return roomID, p, p.Info.IsHost, true
}

// Lookup resolves the reverse index for a seated connection.
func (r *Registry) Lookup(cid domain.ConnID) (domain.RoomID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.seatIndex[cid]
	return roomID, ok
}

// Peer returns a copy-on-read view of a seated connection.
func (r *Registry) Peer(cid domain.ConnID) (*Peer, bool) {
	roomID, ok := r.Lookup(cid)
	if !ok {
		return nil, false
	}
	m, found := r.room(roomID)
	if !found {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.seated[cid]
	if !ok {
		return nil, false
	}
	cp := *p.Info
	return &Peer{Info: &cp, Conn: p.Conn}, true
}

// ListPeers returns a consistent snapshot of the room's seated set,
// optionally excluding one connection. Participant meta is copied so the
// caller can fan out without holding the room lock.
func (r *Registry) ListPeers(roomID domain.RoomID, excluding domain.ConnID) []*Peer {
	m, found := r.room(roomID)
	if !found {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Peer, 0, len(m.seated))
	for cid, p := range m.seated {
		if cid == excluding {
			continue
		}
		cp := *p.Info
		out = append(out, &Peer{Info: &cp, Conn: p.Conn})
	}
	return out
}

// HostOf returns the seated host of the room, if one is present.
func (r *Registry) HostOf(roomID domain.RoomID) (*Peer, bool) {
	m, found := r.room(roomID)
	if !found {
		return nil, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p := hostLocked(m); p != nil {
		return p, true
	}
	return nil, false
}

// SetMedia updates the authoritative media flag on a seated connection and
// returns a copy of the updated participant. Unknown connections are an error,
// not a silent drop.
func (r *Registry) SetMedia(cid domain.ConnID, field MediaField, enabled bool) (*domain.Participant, error) {
	roomID, ok := r.Lookup(cid)
	if !ok {
		return nil, ErrNotSeated
	}
	m, found := r.room(roomID)
	if !found {
		return nil, ErrNotSeated
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.seated[cid]
	if !ok {
		return nil, ErrNotSeated
	}
	switch field {
	case MediaCamera:
		p.Info.Camera = enabled
	case MediaMic:
		p.Info.Mic = enabled
	case MediaScreen:
		p.Info.Screen = enabled
	}
	cp := *p.Info
	return &cp, nil
}

// hostLocked returns a snapshot of the room's seated host.
// Caller must hold m.mu.
func hostLocked(m *meeting) *Peer {
	for _, p := range m.seated {
		if p.Info.IsHost {
			cp := *p.Info
			return &Peer{Info: &cp, Conn: p.Conn}
		}
	}
	return nil
}

// EnqueueWaiting parks a join request on the room's waiting list,
// deduplicated by connection id. added is false if the connection is already
// waiting or already seated in the room. When a host is seated at enqueue
// time its snapshot is returned and the entry is marked notified, under the
// same room lock, so the caller's notification and a concurrent host flush
// cannot both fire for the same entry.
func (r *Registry) EnqueueWaiting(roomID domain.RoomID, w *Waiting) (added bool, host *Peer) {
	cid := w.Info.ConnID
	for {
		m := r.getOrCreate(roomID)
		m.mu.Lock()
		if m.gone {
			m.mu.Unlock()
			continue
		}
		if _, seatedHere := m.seated[cid]; seatedHere {
			m.mu.Unlock()
			return false, nil
		}
		if _, dup := m.waiting[cid]; dup {
			m.mu.Unlock()
			return false, nil
		}
		m.waiting[cid] = w
		if host = hostLocked(m); host != nil {
			w.notified = true
		}
		r.mu.Lock()
		r.waitIndex[cid] = roomID
		r.mu.Unlock()
		m.mu.Unlock()
		log.Info().Str("module", "core.registry").
			Str("room", string(roomID)).
			Str("conn", string(cid)).
			Msg("guest queued")
		return true, host
	}
}

// ClaimWaitingNotifications returns the waiting entries the host has not been
// told about yet and marks them notified, atomically. Each parked request is
// claimed at most once across enqueue-time notification and host flushes.
func (r *Registry) ClaimWaitingNotifications(roomID domain.RoomID) []*Waiting {
	m, found := r.room(roomID)
	if !found {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Waiting
	for _, w := range m.waiting {
		if w.notified {
			continue
		}
		w.notified = true
		cp := *w.Info
		out = append(out, &Waiting{Info: &cp, Conn: w.Conn})
	}
	return out
}

// RemoveWaiting claims a waiting entry. The first caller wins; later calls
// for the same connection are a no-op with ok=false, which makes
// admit/reject races benign.
func (r *Registry) RemoveWaiting(roomID domain.RoomID, cid domain.ConnID) (*Waiting, bool) {
	m, found := r.room(roomID)
	if !found {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.waiting[cid]
	if !ok {
		return nil, false
	}
	delete(m.waiting, cid)
	r.mu.Lock()
	delete(r.waitIndex, cid)
	r.mu.Unlock()
	r.discardIfEmpty(m)
	return w, true
}

// DropWaiting removes a waiting entry by connection id alone, for disconnects
// that happen before a decision.
func (r *Registry) DropWaiting(cid domain.ConnID) (domain.RoomID, *Waiting, bool) {
	r.mu.RLock()
	roomID, ok := r.waitIndex[cid]
	r.mu.RUnlock()
	if !ok {
		return "", nil, false
	}
	w, removed := r.RemoveWaiting(roomID, cid)
	if !removed {
		return "", nil, false
	}
	return roomID, w, true
}

// WaitingSnapshot returns a copy of the room's waiting list.
func (r *Registry) WaitingSnapshot(roomID domain.RoomID) []*Waiting {
	m, found := r.room(roomID)
	if !found {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Waiting, 0, len(m.waiting))
	for _, w := range m.waiting {
		cp := *w.Info
		out = append(out, &Waiting{Info: &cp, Conn: w.Conn})
	}
	return out
}

// DropRoom discards the room and everything in it: remaining seats, the
// waiting list and all their index entries. Returns snapshots of what was
// removed so the caller can notify after the mutation is done.
func (r *Registry) DropRoom(roomID domain.RoomID) (peers []*Peer, waiting []*Waiting) {
	m, found := r.room(roomID)
	if !found {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gone {
		return nil, nil
	}
	r.mu.Lock()
	for cid, p := range m.seated {
		delete(r.seatIndex, cid)
		cp := *p.Info
		peers = append(peers, &Peer{Info: &cp, Conn: p.Conn})
	}
	for cid, w := range m.waiting {
		delete(r.waitIndex, cid)
		cp := *w.Info
		waiting = append(waiting, &Waiting{Info: &cp, Conn: w.Conn})
	}
	r.mu.Unlock()
	m.seated = make(map[domain.ConnID]*Peer)
	m.waiting = make(map[domain.ConnID]*Waiting)
	m.gone = true
	r.mu.Lock()
	if r.rooms[roomID] == m {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
	log.Info().Str("module", "core.registry").
		Str("room", string(roomID)).
		Int("seated", len(peers)).
		Int("waiting", len(waiting)).
		Msg("room dropped")
	return peers, waiting
}

// Counts reports live occupancy for one room.
func (r *Registry) Counts(roomID domain.RoomID) (seated, waiting int) {
	m, found := r.room(roomID)
	if !found {
		return 0, 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.seated), len(m.waiting)
}

// Stats reports process-wide occupancy, for metrics.
func (r *Registry) Stats() (rooms, seated, waiting int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.seatIndex), len(r.waitIndex)
}
