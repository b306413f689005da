// Package inmem provides map-backed implementations of the repository
// interfaces. Every repository shares one Store and one mutex, which makes
// single calls atomic. It backs unit tests and local runs without Postgres;
// commands run with a nil transaction so there is no rollback.
package inmem

import (
	"sort"
	"strings"
	"sync"
	"time"

	"officine/internal/model"

	"github.com/google/uuid"
)

// Store is the shared in-memory state.
type Store struct {
	mu sync.RWMutex

	users         map[uuid.UUID]model.User
	products      map[uuid.UUID]model.Product
	categories    map[uuid.UUID]model.Category
	suppliers     map[uuid.UUID]model.Supplier
	movements     []model.StockMovement
	sales         map[uuid.UUID]model.Sale
	prescriptions map[uuid.UUID]model.Prescription
	orders        map[uuid.UUID]model.Order
	messages      map[uuid.UUID]model.ChatMessage

	now  func() time.Time
	last time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]model.User),
		products:      make(map[uuid.UUID]model.Product),
		categories:    make(map[uuid.UUID]model.Category),
		suppliers:     make(map[uuid.UUID]model.Supplier),
		sales:         make(map[uuid.UUID]model.Sale),
		prescriptions: make(map[uuid.UUID]model.Prescription),
		orders:        make(map[uuid.UUID]model.Order),
		messages:      make(map[uuid.UUID]model.ChatMessage),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// tick returns a strictly increasing timestamp so ordering by time is stable.
// Callers hold the write lock.
func (s *Store) tick() time.Time {
	t := s.now()
	if !t.After(s.last) {
		t = s.last.Add(time.Microsecond)
	}
	s.last = t
	return t
}

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func sortByTimeAsc[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).Before(at(items[j])) })
}

func sortByTimeDesc[T any](items []T, at func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool { return at(items[i]).After(at(items[j])) })
}
