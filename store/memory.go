package store

import (
	"container/list"
	"maps"

	"github.com/tabeth/fakesqs/models"
)

// MemoryStore is the in-memory implementation of the Store interface.
//
// The available partition is a linked list in delivery order plus an index
// from handle to list element, so a message can be removed from the middle of
// the list without a scan. In-flight messages are unordered.
type MemoryStore struct {
	handles      HandleAllocator
	available    *list.List
	availableIdx map[models.ReceiptHandle]*list.Element
	inFlight     map[models.ReceiptHandle]*models.Message
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		available:    list.New(),
		availableIdx: make(map[models.ReceiptHandle]*list.Element),
		inFlight:     make(map[models.ReceiptHandle]*models.Message),
	}
}

// Enqueue stores msg under a fresh handle at the tail of the available partition.
func (s *MemoryStore) Enqueue(msg models.Message) models.ReceiptHandle {
	handle := s.handles.Next()
	msg.ReceiptHandle = handle
	s.pushAvailable(&msg)
	return handle
}

// ReserveOldest moves up to n of the oldest available messages in flight.
func (s *MemoryStore) ReserveOldest(n int) []models.Message {
	if n <= 0 || s.available.Len() == 0 {
		return nil
	}
	reserved := make([]models.Message, 0, min(n, s.available.Len()))
	for len(reserved) < n {
		front := s.available.Front()
		if front == nil {
			break
		}
		msg := s.available.Remove(front).(*models.Message)
		delete(s.availableIdx, msg.ReceiptHandle)
		s.inFlight[msg.ReceiptHandle] = msg
		reserved = append(reserved, copyMessage(msg))
	}
	return reserved
}

// Release returns an in-flight message to the tail of the available partition.
func (s *MemoryStore) Release(handle models.ReceiptHandle) bool {
	msg, ok := s.inFlight[handle]
	if !ok {
		return false
	}
	delete(s.inFlight, handle)
	s.pushAvailable(msg)
	return true
}

// Remove deletes a message from whichever partition holds it.
func (s *MemoryStore) Remove(handle models.ReceiptHandle) bool {
	if elem, ok := s.availableIdx[handle]; ok {
		s.available.Remove(elem)
		delete(s.availableIdx, handle)
		return true
	}
	if _, ok := s.inFlight[handle]; ok {
		delete(s.inFlight, handle)
		return true
	}
	return false
}

// Purge drops every live message. The handle counter is not reset.
func (s *MemoryStore) Purge() int {
	n := s.available.Len() + len(s.inFlight)
	s.available.Init()
	clear(s.availableIdx)
	clear(s.inFlight)
	return n
}

// Depth reports the partition sizes.
func (s *MemoryStore) Depth() Depth {
	return Depth{Available: s.available.Len(), InFlight: len(s.inFlight)}
}

func (s *MemoryStore) pushAvailable(msg *models.Message) {
	s.availableIdx[msg.ReceiptHandle] = s.available.PushBack(msg)
}

// copyMessage returns a copy that does not share the attribute map with the store.
func copyMessage(msg *models.Message) models.Message {
	out := *msg
	out.Attributes = maps.Clone(msg.Attributes)
	return out
}
