package memory

import (
	"context"
	"sync"
)

// Inventory is an in-memory card collection double.
type Inventory struct {
	mu    sync.RWMutex
	cards map[string]map[string]struct{}
}

func NewInventory() *Inventory {
	return &Inventory{cards: make(map[string]map[string]struct{})}
}

func (i *Inventory) Grant(userID string, playerRefs ...string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	owned, ok := i.cards[userID]
	if !ok {
		owned = make(map[string]struct{}, len(playerRefs))
		i.cards[userID] = owned
	}
	for _, ref := range playerRefs {
		owned[ref] = struct{}{}
	}
}

func (i *Inventory) MissingCards(_ context.Context, userID string, playerRefs []string) ([]string, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	owned := i.cards[userID]
	missing := make([]string, 0)
	for _, ref := range playerRefs {
		if _, ok := owned[ref]; !ok {
			missing = append(missing, ref)
		}
	}

	return missing, nil
}
