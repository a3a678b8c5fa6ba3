package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"bilancio/internal/core"
	"bilancio/internal/records"
)

var _ records.Store = (*Store)(nil)

type household struct {
	cards     []core.Card
	purchases []core.Purchase
	services  []core.Service
	shopping  []core.ShoppingItem
}

// Store keeps every household in memory. Records keep insertion order.
type Store struct {
	mu         sync.Mutex
	households map[string]*household
	hub        *records.Hub
}

func New() *Store {
	return &Store{households: make(map[string]*household), hub: records.NewHub()}
}

// seedFile is the on-disk shape of one household seed.
type seedFile struct {
	Household string              `json:"household"`
	Cards     []core.Card         `json:"cards"`
	Purchases []core.Purchase     `json:"purchases"`
	Services  []core.Service      `json:"services"`
	Shopping  []core.ShoppingItem `json:"shopping"`
}

// NewFromFiles seeds the store from every base/*.household.json file.
// Unreadable files and invalid records are skipped and logged.
func NewFromFiles(base string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := New()
	paths, _ := filepath.Glob(filepath.Join(base, "*.household.json"))
	sort.Strings(paths)
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			logger.Warn("Skipping unreadable seed file", "file", p, "error", err)
			continue
		}
		var seed seedFile
		if err := json.Unmarshal(data, &seed); err != nil {
			logger.Warn("Skipping malformed seed file", "file", p, "error", err)
			continue
		}
		name := strings.TrimSpace(seed.Household)
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(p), ".household.json")
		}
		skip := func(collection records.Collection, id string, err error) {
			logger.Warn("Skipping invalid seed record",
				"file", p,
				"household", name,
				"collection", collection,
				"id", id,
				"error", err)
		}
		ctx := context.Background()
		for _, c := range seed.Cards {
			if err := s.SaveCard(ctx, name, c); err != nil {
				skip(records.Cards, c.ID, err)
			}
		}
		for _, pu := range seed.Purchases {
			if err := s.SavePurchase(ctx, name, pu); err != nil {
				skip(records.Purchases, pu.ID, err)
			}
		}
		for _, sv := range seed.Services {
			if err := s.SaveService(ctx, name, sv); err != nil {
				skip(records.Services, sv.ID, err)
			}
		}
		for _, it := range seed.Shopping {
			if err := s.SaveShoppingItem(ctx, name, it); err != nil {
				skip(records.Shopping, it.ID, err)
			}
		}
	}
	return s
}

// lookup returns the household without creating it. Reads and deletes use
// it so a miss never registers a household.
func (s *Store) lookup(name string) *household {
	if h, ok := s.households[name]; ok {
		return h
	}
	return &household{}
}

// get returns the household, creating it on first save.
func (s *Store) get(name string) *household {
	h, ok := s.households[name]
	if !ok {
		h = &household{}
		s.households[name] = h
	}
	return h
}

func (s *Store) notify(name string, c records.Collection) {
	s.hub.Publish(records.Change{Household: name, Collection: c})
}

// Snapshot returns copies; callers may not observe later writes through it.
func (s *Store) Snapshot(_ context.Context, name string) (records.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := records.Snapshot{Household: name}
	h, ok := s.households[name]
	if !ok {
		return snap, nil
	}
	snap.Cards = make([]core.Card, len(h.cards))
	for i, c := range h.cards {
		snap.Cards[i] = copyCard(c)
	}
	snap.Purchases = append([]core.Purchase(nil), h.purchases...)
	snap.Services = append([]core.Service(nil), h.services...)
	snap.Shopping = append([]core.ShoppingItem(nil), h.shopping...)
	return snap, nil
}

func (s *Store) Households(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.households))
	for name := range s.households {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) Subscribe(name string) (<-chan records.Change, func()) {
	return s.hub.Subscribe(name)
}

func (s *Store) GetCard(_ context.Context, name, id string) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.lookup(name)
	if i := indexOf(len(h.cards), func(i int) bool { return h.cards[i].ID == id }); i >= 0 {
		return copyCard(h.cards[i]), nil
	}
	return core.Card{}, fmt.Errorf("card %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveCard(_ context.Context, name string, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	h := s.get(name)
	c = copyCard(c)
	if i := indexOf(len(h.cards), func(i int) bool { return h.cards[i].ID == c.ID }); i >= 0 {
		h.cards[i] = c
	} else {
		h.cards = append(h.cards, c)
	}
	s.mu.Unlock()
	s.notify(name, records.Cards)
	return nil
}

func (s *Store) DeleteCard(_ context.Context, name, id string) error {
	s.mu.Lock()
	h := s.lookup(name)
	i := indexOf(len(h.cards), func(i int) bool { return h.cards[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
	}
	h.cards = append(h.cards[:i], h.cards[i+1:]...)
	s.mu.Unlock()
	s.notify(name, records.Cards)
	return nil
}

func (s *Store) GetPurchase(_ context.Context, name, id string) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.lookup(name)
	if i := indexOf(len(h.purchases), func(i int) bool { return h.purchases[i].ID == id }); i >= 0 {
		return h.purchases[i], nil
	}
	return core.Purchase{}, fmt.Errorf("purchase %s: %w", id, core.ErrNotFound)
}

func (s *Store) SavePurchase(_ context.Context, name string, p core.Purchase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	h := s.get(name)
	if i := indexOf(len(h.purchases), func(i int) bool { return h.purchases[i].ID == p.ID }); i >= 0 {
		h.purchases[i] = p
	} else {
		h.purchases = append(h.purchases, p)
	}
	s.mu.Unlock()
	s.notify(name, records.Purchases)
	return nil
}

func (s *Store) DeletePurchase(_ context.Context, name, id string) error {
	s.mu.Lock()
	h := s.lookup(name)
	i := indexOf(len(h.purchases), func(i int) bool { return h.purchases[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("purchase %s: %w", id, core.ErrNotFound)
	}
	h.purchases = append(h.purchases[:i], h.purchases[i+1:]...)
	s.mu.Unlock()
	s.notify(name, records.Purchases)
	return nil
}

func (s *Store) GetService(_ context.Context, name, id string) (core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.lookup(name)
	if i := indexOf(len(h.services), func(i int) bool { return h.services[i].ID == id }); i >= 0 {
		return h.services[i], nil
	}
	return core.Service{}, fmt.Errorf("service %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveService(_ context.Context, name string, sv core.Service) error {
	if err := sv.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	h := s.get(name)
	if i := indexOf(len(h.services), func(i int) bool { return h.services[i].ID == sv.ID }); i >= 0 {
		h.services[i] = sv
	} else {
		h.services = append(h.services, sv)
	}
	s.mu.Unlock()
	s.notify(name, records.Services)
	return nil
}

func (s *Store) DeleteService(_ context.Context, name, id string) error {
	s.mu.Lock()
	h := s.lookup(name)
	i := indexOf(len(h.services), func(i int) bool { return h.services[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("service %s: %w", id, core.ErrNotFound)
	}
	h.services = append(h.services[:i], h.services[i+1:]...)
	s.mu.Unlock()
	s.notify(name, records.Services)
	return nil
}

func (s *Store) GetShoppingItem(_ context.Context, name, id string) (core.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.lookup(name)
	if i := indexOf(len(h.shopping), func(i int) bool { return h.shopping[i].ID == id }); i >= 0 {
		return h.shopping[i], nil
	}
	return core.ShoppingItem{}, fmt.Errorf("shopping item %s: %w", id, core.ErrNotFound)
}

func (s *Store) SaveShoppingItem(_ context.Context, name string, it core.ShoppingItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	h := s.get(name)
	if i := indexOf(len(h.shopping), func(i int) bool { return h.shopping[i].ID == it.ID }); i >= 0 {
		h.shopping[i] = it
	} else {
		h.shopping = append(h.shopping, it)
	}
	s.mu.Unlock()
	s.notify(name, records.Shopping)
	return nil
}

func (s *Store) DeleteShoppingItem(_ context.Context, name, id string) error {
	s.mu.Lock()
	h := s.lookup(name)
	i := indexOf(len(h.shopping), func(i int) bool { return h.shopping[i].ID == id })
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("shopping item %s: %w", id, core.ErrNotFound)
	}
	h.shopping = append(h.shopping[:i], h.shopping[i+1:]...)
	s.mu.Unlock()
	s.notify(name, records.Shopping)
	return nil
}

func indexOf(n int, match func(i int) bool) int {
	for i := 0; i < n; i++ {
		if match(i) {
			return i
		}
	}
	return -1
}

func copyCard(c core.Card) core.Card {
	if c.Adjustments != nil {
		adj := make(map[core.MonthKey]core.Money, len(c.Adjustments))
		for k, v := range c.Adjustments {
			adj[k] = v
		}
		c.Adjustments = adj
	}
	return c
}
