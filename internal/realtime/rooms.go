package realtime

import (
	"fmt"
	"sync"
)

// RoomIndex is the many-to-many relation between rooms and connections. Rooms
// come into existence on first join and vanish when their last member leaves;
// an unknown room behaves as an empty one, never an error.
//
// Mutations are funneled through the Controller. MembersOf is safe to call
// from any goroutine.
type RoomIndex struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]struct{} // roomID -> set of connection ids
	byConn map[string]map[string]struct{} // connection id -> set of roomIDs
}

// NewRoomIndex creates an empty membership index.
func NewRoomIndex() *RoomIndex {
	return &RoomIndex{
		rooms:  make(map[string]map[string]struct{}),
		byConn: make(map[string]map[string]struct{}),
	}
}

// Join subscribes a connection to a room. Joining twice is a no-op.
func (ix *RoomIndex) Join(roomID, connID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.rooms[roomID] == nil {
		ix.rooms[roomID] = make(map[string]struct{})
	}
	ix.rooms[roomID][connID] = struct{}{}
	if ix.byConn[connID] == nil {
		ix.byConn[connID] = make(map[string]struct{})
	}
	ix.byConn[connID][roomID] = struct{}{}
}

// Leave removes one membership. Leaving a room the connection is not in is a
// no-op.
func (ix *RoomIndex) Leave(roomID, connID string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.remove(roomID, connID)
}

// LeaveAll removes every membership for a connection and returns the rooms it
// was a member of. It returns ErrInternalState if the forward and reverse maps
// disagree; that is an invariant violation, not routine churn.
func (ix *RoomIndex) LeaveAll(connID string) ([]string, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	joined := ix.byConn[connID]
	left := make([]string, 0, len(joined))
	for roomID := range joined {
		members, ok := ix.rooms[roomID]
		if !ok {
			return left, fmt.Errorf("%w: connection %s indexed in missing room %s", ErrInternalState, connID, roomID)
		}
		if _, ok := members[connID]; !ok {
			return left, fmt.Errorf("%w: connection %s missing from room %s member set", ErrInternalState, connID, roomID)
		}
		ix.remove(roomID, connID)
		left = append(left, roomID)
	}
	delete(ix.byConn, connID)
	return left, nil
}

// MembersOf returns a snapshot of the connection ids subscribed to a room.
// Unknown and empty rooms yield an empty slice.
func (ix *RoomIndex) MembersOf(roomID string) []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set := ix.rooms[roomID]
	members := make([]string, 0, len(set))
	for connID := range set {
		members = append(members, connID)
	}
	return members
}

// RoomCount returns the number of rooms with at least one member.
func (ix *RoomIndex) RoomCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.rooms)
}

// remove deletes one membership pair and reaps empty sets. Callers hold the
// write lock.
func (ix *RoomIndex) remove(roomID, connID string) {
	if members, ok := ix.rooms[roomID]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(ix.rooms, roomID)
		}
	}
	if joined, ok := ix.byConn[connID]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(ix.byConn, connID)
		}
	}
}
