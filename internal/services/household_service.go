package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
	"bilancio/internal/records"

	"github.com/google/uuid"
)

// ChangePublisher announces household changes to other processes.
type ChangePublisher interface {
	PublishHouseholdChanged(ctx context.Context, household, collection string) error
}

type Config struct {
	CriticalDueDay int
	Horizon        int
}

func DefaultConfig() Config {
	return Config{CriticalDueDay: obligation.DefaultCriticalDueDay, Horizon: obligation.DefaultHorizon}
}

// HouseholdService reads snapshots through the engine and applies writes to
// the store. Writes are saved locally first; publishing the change is best
// effort and never fails the request.
type HouseholdService struct {
	store     records.Store
	publisher ChangePublisher
	engine    obligation.Config
	horizon   int

	// serializes read-modify-write operations
	mu    sync.Mutex
	newID func() string
	now   func() time.Time
}

// NewHouseholdService wires a service over store. publisher may be nil.
func NewHouseholdService(store records.Store, publisher ChangePublisher, cfg Config) *HouseholdService {
	if cfg.CriticalDueDay <= 0 {
		cfg.CriticalDueDay = obligation.DefaultCriticalDueDay
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = obligation.DefaultHorizon
	}
	return &HouseholdService{
		store:     store,
		publisher: publisher,
		engine:    obligation.Config{CriticalDueDay: cfg.CriticalDueDay},
		horizon:   cfg.Horizon,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Today is the current calendar day in local time.
func (s *HouseholdService) Today() core.CalendarDay {
	return core.CalendarDayOf(s.now())
}

// CurrentMonth is the key of the month containing Today.
func (s *HouseholdService) CurrentMonth() core.MonthKey {
	return s.Today().MonthIndex().Key()
}

func (s *HouseholdService) Subscribe(household string) (<-chan records.Change, func()) {
	return s.store.Subscribe(household)
}

func (s *HouseholdService) Households(ctx context.Context) ([]string, error) {
	return s.store.Households(ctx)
}

func (s *HouseholdService) Summary(ctx context.Context, household string, key core.MonthKey) (obligation.Summary, error) {
	if err := key.Validate(); err != nil {
		return obligation.Summary{}, err
	}
	snap, err := s.store.Snapshot(ctx, household)
	if err != nil {
		return obligation.Summary{}, fmt.Errorf("load household %s: %w", household, err)
	}
	sum, err := s.engine.BuildSummary(snap.Input(), key)
	if err != nil {
		return obligation.Summary{}, err
	}
	if len(sum.Issues) > 0 {
		slog.WarnContext(ctx, "Summary skipped invalid records",
			"household", household,
			"month_key", key,
			"issues", len(sum.Issues))
	}
	return sum, nil
}

// Projection projects from anchor over horizon months; horizon <= 0 uses the
// configured default.
func (s *HouseholdService) Projection(ctx context.Context, household string, anchor core.CalendarDay, horizon int, hyp *obligation.Hypothetical) ([]obligation.ProjectionMonth, error) {
	if horizon <= 0 {
		horizon = s.horizon
	}
	snap, err := s.store.Snapshot(ctx, household)
	if err != nil {
		return nil, fmt.Errorf("load household %s: %w", household, err)
	}
	return obligation.Project(snap.Input(), anchor, horizon, hyp)
}

func (s *HouseholdService) CardObligation(ctx context.Context, household, cardID string, key core.MonthKey) (obligation.Obligation, error) {
	snap, card, err := s.cardSnapshot(ctx, household, cardID)
	if err != nil {
		return obligation.Obligation{}, err
	}
	return obligation.CardObligationForKey(card, snap.Purchases, key)
}

func (s *HouseholdService) CardUsage(ctx context.Context, household, cardID string, key core.MonthKey) (obligation.Usage, error) {
	month, err := key.Month()
	if err != nil {
		return obligation.Usage{}, err
	}
	snap, card, err := s.cardSnapshot(ctx, household, cardID)
	if err != nil {
		return obligation.Usage{}, err
	}
	return obligation.CardUsage(card, snap.Purchases, month), nil
}

func (s *HouseholdService) cardSnapshot(ctx context.Context, household, cardID string) (records.Snapshot, core.Card, error) {
	snap, err := s.store.Snapshot(ctx, household)
	if err != nil {
		return records.Snapshot{}, core.Card{}, fmt.Errorf("load household %s: %w", household, err)
	}
	for _, c := range snap.Cards {
		if c.ID == cardID {
			return snap, c, nil
		}
	}
	return records.Snapshot{}, core.Card{}, fmt.Errorf("card %s: %w", cardID, core.ErrNotFound)
}

// AddPurchase finalizes draft and saves it. Card purchases must reference an
// existing card and fit its limits from the purchase month on.
func (s *HouseholdService) AddPurchase(ctx context.Context, household string, draft core.PurchaseDraft) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := draft.Finalize(s.newID())
	if err != nil {
		return core.Purchase{}, err
	}
	if err := s.checkCardPurchase(ctx, household, p, ""); err != nil {
		return core.Purchase{}, err
	}
	if err := s.store.SavePurchase(ctx, household, p); err != nil {
		return core.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}
	slog.InfoContext(ctx, "Purchase added",
		"household", household,
		"purchase_id", p.ID,
		"card_id", p.CardID,
		"amount_cents", p.TotalAmount.Cents,
		"installments", p.InstallmentCount)
	s.publish(ctx, household, records.Purchases)
	return p, nil
}

// UpdatePurchase replaces purchase id with the finalized draft.
func (s *HouseholdService) UpdatePurchase(ctx context.Context, household, id string, draft core.PurchaseDraft) (core.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetPurchase(ctx, household, id); err != nil {
		return core.Purchase{}, err
	}
	p, err := draft.Finalize(id)
	if err != nil {
		return core.Purchase{}, err
	}
	if err := s.checkCardPurchase(ctx, household, p, id); err != nil {
		return core.Purchase{}, err
	}
	if err := s.store.SavePurchase(ctx, household, p); err != nil {
		return core.Purchase{}, fmt.Errorf("save purchase: %w", err)
	}
	s.publish(ctx, household, records.Purchases)
	return p, nil
}

func (s *HouseholdService) checkCardPurchase(ctx context.Context, household string, p core.Purchase, replacing string) error {
	if p.Kind != core.KindCard {
		return nil
	}
	snap, err := s.store.Snapshot(ctx, household)
	if err != nil {
		return fmt.Errorf("load household %s: %w", household, err)
	}
	var card *core.Card
	for i := range snap.Cards {
		if snap.Cards[i].ID == p.CardID {
			card = &snap.Cards[i]
			break
		}
	}
	if card == nil {
		return &core.ValidationError{Field: "cardId", Err: obligation.ErrUnknownCard}
	}
	others := make([]core.Purchase, 0, len(snap.Purchases))
	for _, existing := range snap.Purchases {
		if existing.ID != replacing {
			others = append(others, existing)
		}
	}
	if err := obligation.CheckLimit(*card, others, p.Date.MonthIndex(), p.TotalAmount, p.InstallmentCount); err != nil {
		if core.IsValidation(err) {
			return err
		}
		return &core.ValidationError{Field: "totalAmount", Err: err}
	}
	return nil
}

func (s *HouseholdService) DeletePurchase(ctx context.Context, household, id string) error {
	if err := s.store.DeletePurchase(ctx, household, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Purchase deleted", "household", household, "purchase_id", id)
	s.publish(ctx, household, records.Purchases)
	return nil
}

// SetAdjustment overrides the card's obligation for key. Zero is a valid
// override.
func (s *HouseholdService) SetAdjustment(ctx context.Context, household, cardID string, key core.MonthKey, amount core.Money) (core.Card, error) {
	if err := key.Validate(); err != nil {
		return core.Card{}, err
	}
	if amount.Cents < 0 {
		return core.Card{}, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	return s.updateCard(ctx, household, cardID, func(c core.Card) core.Card {
		return c.WithAdjustment(key, amount)
	})
}

func (s *HouseholdService) ClearAdjustment(ctx context.Context, household, cardID string, key core.MonthKey) (core.Card, error) {
	if err := key.Validate(); err != nil {
		return core.Card{}, err
	}
	return s.updateCard(ctx, household, cardID, func(c core.Card) core.Card {
		return c.WithoutAdjustment(key)
	})
}

func (s *HouseholdService) ToggleCardPaid(ctx context.Context, household, cardID string, key core.MonthKey) (core.Card, error) {
	if err := key.Validate(); err != nil {
		return core.Card{}, err
	}
	return s.updateCard(ctx, household, cardID, func(c core.Card) core.Card {
		c.PaidPeriods = c.PaidPeriods.Toggle(key)
		return c
	})
}

func (s *HouseholdService) updateCard(ctx context.Context, household, cardID string, fn func(core.Card) core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	card, err := s.store.GetCard(ctx, household, cardID)
	if err != nil {
		return core.Card{}, err
	}
	card = fn(card)
	if err := s.store.SaveCard(ctx, household, card); err != nil {
		return core.Card{}, fmt.Errorf("save card: %w", err)
	}
	s.publish(ctx, household, records.Cards)
	return card, nil
}

// SaveCard creates the card when its ID is empty or unknown, otherwise
// updates its profile. Adjustments and paid periods of an existing card are
// kept; they change through their own operations.
func (s *HouseholdService) SaveCard(ctx context.Context, household string, c core.Card) (core.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Name = strings.TrimSpace(c.Name)
	if c.ID == "" {
		c.ID = s.newID()
	} else if existing, err := s.store.GetCard(ctx, household, c.ID); err == nil {
		c.Adjustments = existing.Adjustments
		c.PaidPeriods = existing.PaidPeriods
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Card{}, err
	}
	if err := s.store.SaveCard(ctx, household, c); err != nil {
		return core.Card{}, fmt.Errorf("save card: %w", err)
	}
	slog.InfoContext(ctx, "Card saved", "household", household, "card_id", c.ID)
	s.publish(ctx, household, records.Cards)
	return c, nil
}

// DeleteCard removes the card. Its purchases stay and show up as orphans.
func (s *HouseholdService) DeleteCard(ctx context.Context, household, id string) error {
	if err := s.store.DeleteCard(ctx, household, id); err != nil {
		return err
	}
	s.publish(ctx, household, records.Cards)
	return nil
}

// SaveService creates or updates a service, keeping the paid periods of an
// existing one.
func (s *HouseholdService) SaveService(ctx context.Context, household string, svc core.Service) (core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc.Name = strings.TrimSpace(svc.Name)
	if svc.ID == "" {
		svc.ID = s.newID()
	} else if existing, err := s.store.GetService(ctx, household, svc.ID); err == nil {
		svc.PaidPeriods = existing.PaidPeriods
	} else if !errors.Is(err, core.ErrNotFound) {
		return core.Service{}, err
	}
	if err := s.store.SaveService(ctx, household, svc); err != nil {
		return core.Service{}, fmt.Errorf("save service: %w", err)
	}
	slog.InfoContext(ctx, "Service saved", "household", household, "service_id", svc.ID)
	s.publish(ctx, household, records.Services)
	return svc, nil
}

func (s *HouseholdService) DeleteService(ctx context.Context, household, id string) error {
	if err := s.store.DeleteService(ctx, household, id); err != nil {
		return err
	}
	s.publish(ctx, household, records.Services)
	return nil
}

func (s *HouseholdService) ToggleServicePaid(ctx context.Context, household, serviceID string, key core.MonthKey) (core.Service, error) {
	if err := key.Validate(); err != nil {
		return core.Service{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, err := s.store.GetService(ctx, household, serviceID)
	if err != nil {
		return core.Service{}, err
	}
	svc.PaidPeriods = svc.PaidPeriods.Toggle(key)
	if err := s.store.SaveService(ctx, household, svc); err != nil {
		return core.Service{}, fmt.Errorf("save service: %w", err)
	}
	s.publish(ctx, household, records.Services)
	return svc, nil
}

func (s *HouseholdService) SaveShoppingItem(ctx context.Context, household string, it core.ShoppingItem) (core.ShoppingItem, error) {
	it.Name = strings.TrimSpace(it.Name)
	if it.ID == "" {
		it.ID = s.newID()
	}
	if it.MonthKey == "" {
		it.MonthKey = s.CurrentMonth()
	}
	if err := s.store.SaveShoppingItem(ctx, household, it); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("save shopping item: %w", err)
	}
	s.publish(ctx, household, records.Shopping)
	return it, nil
}

func (s *HouseholdService) ToggleShoppingItem(ctx context.Context, household, id string) (core.ShoppingItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.store.GetShoppingItem(ctx, household, id)
	if err != nil {
		return core.ShoppingItem{}, err
	}
	it.Checked = !it.Checked
	if err := s.store.SaveShoppingItem(ctx, household, it); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("save shopping item: %w", err)
	}
	s.publish(ctx, household, records.Shopping)
	return it, nil
}

func (s *HouseholdService) DeleteShoppingItem(ctx context.Context, household, id string) error {
	if err := s.store.DeleteShoppingItem(ctx, household, id); err != nil {
		return err
	}
	s.publish(ctx, household, records.Shopping)
	return nil
}

func (s *HouseholdService) publish(ctx context.Context, household string, c records.Collection) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping change message")
		return
	}
	if err := s.publisher.PublishHouseholdChanged(ctx, household, string(c)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish household change",
			"household", household,
			"collection", c,
			"error", err)
	}
}
