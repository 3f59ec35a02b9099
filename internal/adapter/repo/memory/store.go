package memory

import (
	"sync"

	"satfarm/internal/app/ports"
)

type Store struct {
	txMu sync.Mutex

	mu      sync.RWMutex
	seq     int64
	journal map[string][]ports.JournalEntry
	ids     map[string]struct{}
	scores  map[string]ports.ScoreRecord
}

func NewStore() *Store {
	return &Store{
		journal: make(map[string][]ports.JournalEntry),
		ids:     make(map[string]struct{}),
		scores:  make(map[string]ports.ScoreRecord),
	}
}
