// Package presence is the authoritative registry of room membership.
// It owns membership mutation and broadcast; negotiation payloads pass
// through it as opaque bytes.
package presence

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/starkhackai/voiceroom/internal/core"
	"github.com/starkhackai/voiceroom/internal/domain"
	"github.com/starkhackai/voiceroom/internal/metrics"
)

// room is a plain membership map. It only exists while non-empty.
type room struct {
	members map[domain.UserID]core.SignalConnection
}

// Registry maps rooms to their member connections. One mutex serializes
// membership mutation and broadcast so a member-joined broadcast never
// races a concurrent leave, and room deletion never races a join.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[domain.RoomID]*room
	members int

	collector *metrics.Collector
}

func NewRegistry(collector *metrics.Collector) *Registry {
	return &Registry{
		rooms:     make(map[domain.RoomID]*room),
		collector: collector,
	}
}

// JoinResult reports side effects the caller (the transport adapter) must
// act on outside the registry lock.
type JoinResult struct {
	// Replaced is the prior connection of the same (room, user), if any.
	// Last writer wins; the adapter should close the stale handle.
	Replaced core.SignalConnection
	// Dropped holds members whose send buffer overflowed during broadcast.
	Dropped []core.SignalConnection
}

// Join registers the member, replacing any prior handle for the same
// (room, user), and announces member-joined to the other members.
func (r *Registry) Join(roomID domain.RoomID, userID domain.UserID, conn core.SignalConnection) JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		rm = &room{members: make(map[domain.UserID]core.SignalConnection)}
		r.rooms[roomID] = rm
	}

	res := JoinResult{Replaced: rm.members[userID]}
	rm.members[userID] = conn
	if res.Replaced == nil {
		r.members++
	}

	res.Dropped = r.broadcast(rm, userID, event{Type: EventMemberJoined, UserID: userID})

	log.Info().Str("module", "presence").
		Str("room", string(roomID)).Str("user", string(userID)).
		Bool("replaced", res.Replaced != nil).
		Int("member_count", len(rm.members)).
		Msg("member joined")
	r.collector.SetPresence(len(r.rooms), r.members)
	return res
}

// Leave removes the member if present and announces member-left to the
// remaining members. Leaving a non-member is a no-op. The room itself is
// discarded once its last member is gone.
func (r *Registry) Leave(roomID domain.RoomID, userID domain.UserID) (removed bool, dropped []core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(roomID, userID)
}

func (r *Registry) leaveLocked(roomID domain.RoomID, userID domain.UserID) (bool, []core.SignalConnection) {
	rm, ok := r.rooms[roomID]
	if !ok {
		return false, nil
	}
	if _, ok := rm.members[userID]; !ok {
		return false, nil
	}
	delete(rm.members, userID)
	r.members--

	var dropped []core.SignalConnection
	if len(rm.members) == 0 {
		delete(r.rooms, roomID)
	} else {
		dropped = r.broadcast(rm, userID, event{Type: EventMemberLeft, UserID: userID})
	}

	log.Info().Str("module", "presence").
		Str("room", string(roomID)).Str("user", string(userID)).
		Int("member_count", len(rm.members)).
		Msg("member left")
	r.collector.SetPresence(len(r.rooms), r.members)
	return true, dropped
}

// Disconnect is the leave-equivalent for an abrupt transport close. It is
// guarded by the connection handle so a stale, already-replaced connection
// cannot evict its successor.
func (r *Registry) Disconnect(roomID domain.RoomID, userID domain.UserID, conn core.SignalConnection) (removed bool, dropped []core.SignalConnection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return false, nil
	}
	if rm.members[userID] != conn {
		return false, nil
	}
	return r.leaveLocked(roomID, userID)
}

// Relay delivers an addressed negotiation payload to target iff target is
// currently a member of the room. Anything else is a silent drop: the
// target may have legitimately left already.
func (r *Registry) Relay(roomID domain.RoomID, senderID, targetID domain.UserID, payload json.RawMessage) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		r.collector.SignalDropped()
		return false
	}
	conn, ok := rm.members[targetID]
	if !ok {
		r.collector.SignalDropped()
		return false
	}

	frame, err := encode(event{Type: EventSignal, UserID: senderID, Signal: payload})
	if err != nil {
		log.Error().Err(err).Str("module", "presence").Msg("encode signal event")
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Str("module", "presence").
			Str("room", string(roomID)).Str("target", string(targetID)).
			Msg("relay dropped, target buffer full")
		r.collector.SignalDropped()
		return false
	}
	r.collector.SignalRelayed()
	return true
}

// Snapshot returns the member set of a room; empty for an absent room.
func (r *Registry) Snapshot(roomID domain.RoomID) []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[roomID]
	if !ok {
		return nil
	}
	out := make([]domain.UserID, 0, len(rm.members))
	for id := range rm.members {
		out = append(out, id)
	}
	return out
}

func (r *Registry) MemberCount(roomID domain.RoomID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if rm, ok := r.rooms[roomID]; ok {
		return len(rm.members)
	}
	return 0
}

// RoomInfo is a read-only view for APIs (no transport fields).
type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	MemberCount int           `json:"memberCount"`
}

func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RoomInfo, 0, len(r.rooms))
	for id, rm := range r.rooms {
		out = append(out, RoomInfo{ID: id, MemberCount: len(rm.members)})
	}
	return out
}

// broadcast fans an event out to every member except from. Delivery is
// best-effort via TrySend; members with full buffers are reported back so
// the adapter can apply its backpressure policy outside the lock.
func (r *Registry) broadcast(rm *room, from domain.UserID, ev event) []core.SignalConnection {
	frame, err := encode(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "presence").Str("type", ev.Type).Msg("encode event")
		return nil
	}
	var dropped []core.SignalConnection
	for id, conn := range rm.members {
		if id == from {
			continue
		}
		if err := conn.TrySend(frame); err != nil {
			r.collector.BackpressureHit()
			dropped = append(dropped, conn)
		}
	}
	return dropped
}
