// Package records defines the storage collaborator: the four record
// collections of a household, read as full snapshots and written one record at
// a time, plus change notifications.
package records

import (
	"context"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
)

type Collection string

const (
	Cards     Collection = "cards"
	Purchases Collection = "purchases"
	Services  Collection = "services"
	Shopping  Collection = "shopping"
)

// Snapshot is every record of one household at a point in time.
type Snapshot struct {
	Household string
	Cards     []core.Card
	Purchases []core.Purchase
	Services  []core.Service
	Shopping  []core.ShoppingItem
}

// Input adapts the snapshot for the obligation engine.
func (s Snapshot) Input() obligation.Input {
	return obligation.Input{
		Cards:     s.Cards,
		Purchases: s.Purchases,
		Services:  s.Services,
		Shopping:  s.Shopping,
	}
}

// Change announces that a collection of a household was rewritten.
type Change struct {
	Household  string
	Collection Collection
}

// Ports for outbound adapters.
type (
	SnapshotReader interface {
		Snapshot(ctx context.Context, household string) (Snapshot, error)
	}

	HouseholdLister interface {
		Households(ctx context.Context) ([]string, error)
	}

	CardStore interface {
		GetCard(ctx context.Context, household, id string) (core.Card, error)
		SaveCard(ctx context.Context, household string, c core.Card) error
		DeleteCard(ctx context.Context, household, id string) error
	}

	PurchaseStore interface {
		GetPurchase(ctx context.Context, household, id string) (core.Purchase, error)
		SavePurchase(ctx context.Context, household string, p core.Purchase) error
		DeletePurchase(ctx context.Context, household, id string) error
	}

	ServiceStore interface {
		GetService(ctx context.Context, household, id string) (core.Service, error)
		SaveService(ctx context.Context, household string, s core.Service) error
		DeleteService(ctx context.Context, household, id string) error
	}

	ShoppingStore interface {
		GetShoppingItem(ctx context.Context, household, id string) (core.ShoppingItem, error)
		SaveShoppingItem(ctx context.Context, household string, it core.ShoppingItem) error
		DeleteShoppingItem(ctx context.Context, household, id string) error
	}

	// Subscriber delivers change notifications. An empty household
	// subscribes to every household. The returned func unsubscribes.
	Subscriber interface {
		Subscribe(household string) (<-chan Change, func())
	}

	// Store is everything a household backend provides.
	Store interface {
		SnapshotReader
		HouseholdLister
		CardStore
		PurchaseStore
		ServiceStore
		ShoppingStore
		Subscriber
	}
)
