package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"bilancio/internal/core"
	"bilancio/internal/records"

	_ "modernc.org/sqlite"
)

var _ records.Store = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	hub     *records.Hub
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		hub:     records.NewHub(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Subscribe(household string) (<-chan records.Change, func()) {
	return r.hub.Subscribe(household)
}

func (r *SQLiteRepository) notify(household string, c records.Collection) {
	r.hub.Publish(records.Change{Household: household, Collection: c})
}

// inTx runs fn inside a transaction and commits when it returns nil.
func (r *SQLiteRepository) inTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func notFound(what, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func (r *SQLiteRepository) Households(ctx context.Context) ([]string, error) {
	names, err := r.queries.ListHouseholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("list households: %w", err)
	}
	return names, nil
}

// Snapshot implements records.SnapshotReader. All collections are read in
// one transaction so the snapshot is consistent.
func (r *SQLiteRepository) Snapshot(ctx context.Context, household string) (records.Snapshot, error) {
	snap := records.Snapshot{Household: household}
	err := r.inTx(ctx, func(q *Queries) error {
		cardRows, err := q.ListCards(ctx, household)
		if err != nil {
			return fmt.Errorf("list cards: %w", err)
		}
		adjustments, err := q.ListCardAdjustments(ctx, household)
		if err != nil {
			return fmt.Errorf("list card adjustments: %w", err)
		}
		paid, err := q.ListCardPaidPeriods(ctx, household)
		if err != nil {
			return fmt.Errorf("list card paid periods: %w", err)
		}
		snap.Cards = assembleCards(cardRows, adjustments, paid)

		purchaseRows, err := q.ListPurchases(ctx, household)
		if err != nil {
			return fmt.Errorf("list purchases: %w", err)
		}
		for _, row := range purchaseRows {
			p, err := purchaseFromRow(row)
			if err != nil {
				// Keep loading; the engine reports bad records as issues.
				slog.WarnContext(ctx, "Unreadable purchase row", "household", household, "id", row.ID, "error", err)
			}
			snap.Purchases = append(snap.Purchases, p)
		}

		serviceRows, err := q.ListServices(ctx, household)
		if err != nil {
			return fmt.Errorf("list services: %w", err)
		}
		servicePaid, err := q.ListServicePaidPeriods(ctx, household)
		if err != nil {
			return fmt.Errorf("list service paid periods: %w", err)
		}
		snap.Services = assembleServices(serviceRows, servicePaid)

		itemRows, err := q.ListShoppingItems(ctx, household)
		if err != nil {
			return fmt.Errorf("list shopping items: %w", err)
		}
		for _, row := range itemRows {
			snap.Shopping = append(snap.Shopping, shoppingFromRow(row))
		}
		return nil
	})
	if err != nil {
		return records.Snapshot{}, err
	}
	return snap, nil
}

func (r *SQLiteRepository) GetCard(ctx context.Context, household, id string) (core.Card, error) {
	var card core.Card
	err := r.inTx(ctx, func(q *Queries) error {
		row, err := q.GetCard(ctx, household, id)
		if err != nil {
			return notFound("card", id, err)
		}
		adjustments, err := q.ListCardAdjustments(ctx, household)
		if err != nil {
			return fmt.Errorf("list card adjustments: %w", err)
		}
		paid, err := q.ListCardPaidPeriods(ctx, household)
		if err != nil {
			return fmt.Errorf("list card paid periods: %w", err)
		}
		card = assembleCards([]CardRow{row}, adjustments, paid)[0]
		return nil
	})
	return card, err
}

// SaveCard upserts the card and replaces its adjustments and paid periods.
func (r *SQLiteRepository) SaveCard(ctx context.Context, household string, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.UpsertCard(ctx, CardRow{
			HouseholdID:       household,
			ID:                c.ID,
			Name:              c.Name,
			IssuingBank:       c.IssuingBank,
			CreditLimitCents:  c.CreditLimit.Cents,
			OneShotLimitCents: c.OneShotLimit.Cents,
			StatementCloseDay: int64(c.StatementCloseDay),
			DueDay:            int64(c.DueDay),
			Color:             c.Color,
		}); err != nil {
			return fmt.Errorf("upsert card: %w", err)
		}
		if err := q.DeleteCardAdjustments(ctx, household, c.ID); err != nil {
			return fmt.Errorf("clear card adjustments: %w", err)
		}
		for key, amount := range c.Adjustments {
			if err := q.InsertCardAdjustment(ctx, household, CardMonthRow{CardID: c.ID, MonthKey: string(key), AmountCents: amount.Cents}); err != nil {
				return fmt.Errorf("insert card adjustment: %w", err)
			}
		}
		if err := q.DeleteCardPaidPeriods(ctx, household, c.ID); err != nil {
			return fmt.Errorf("clear card paid periods: %w", err)
		}
		for _, key := range c.PaidPeriods.Keys() {
			if err := q.InsertCardPaidPeriod(ctx, household, c.ID, string(key)); err != nil {
				return fmt.Errorf("insert card paid period: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Card saved to SQLite", "household", household, "card_id", c.ID)
	r.notify(household, records.Cards)
	return nil
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, household, id string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteCard(ctx, household, id)
		if err != nil {
			return fmt.Errorf("delete card: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("card %s: %w", id, core.ErrNotFound)
		}
		if err := q.DeleteCardAdjustments(ctx, household, id); err != nil {
			return fmt.Errorf("clear card adjustments: %w", err)
		}
		return q.DeleteCardPaidPeriods(ctx, household, id)
	})
	if err != nil {
		return err
	}
	r.notify(household, records.Cards)
	return nil
}

func (r *SQLiteRepository) GetPurchase(ctx context.Context, household, id string) (core.Purchase, error) {
	row, err := r.queries.GetPurchase(ctx, household, id)
	if err != nil {
		return core.Purchase{}, notFound("purchase", id, err)
	}
	return purchaseFromRow(row)
}

func (r *SQLiteRepository) SavePurchase(ctx context.Context, household string, p core.Purchase) error {
	if err := p.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertPurchase(ctx, PurchaseRow{
		HouseholdID:      household,
		ID:               p.ID,
		CardID:           p.CardID,
		Description:      p.Description,
		PurchaseDate:     p.Date.String(),
		TotalCents:       p.TotalAmount.Cents,
		InstallmentCount: int64(p.InstallmentCount),
		Category:         p.Category,
		Kind:             string(p.EffectiveKind()),
	})
	if err != nil {
		return fmt.Errorf("upsert purchase: %w", err)
	}
	slog.InfoContext(ctx, "Purchase saved to SQLite",
		"household", household,
		"id", p.ID,
		"amount_cents", p.TotalAmount.Cents,
		"installments", p.InstallmentCount)
	r.notify(household, records.Purchases)
	return nil
}

func (r *SQLiteRepository) DeletePurchase(ctx context.Context, household, id string) error {
	n, err := r.queries.DeletePurchase(ctx, household, id)
	if err != nil {
		return fmt.Errorf("delete purchase: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("purchase %s: %w", id, core.ErrNotFound)
	}
	r.notify(household, records.Purchases)
	return nil
}

func (r *SQLiteRepository) GetService(ctx context.Context, household, id string) (core.Service, error) {
	row, err := r.queries.GetService(ctx, household, id)
	if err != nil {
		return core.Service{}, notFound("service", id, err)
	}
	paid, err := r.queries.ListServicePaidPeriods(ctx, household)
	if err != nil {
		return core.Service{}, fmt.Errorf("list service paid periods: %w", err)
	}
	return assembleServices([]ServiceRow{row}, paid)[0], nil
}

// SaveService upserts the service and replaces its paid periods.
func (r *SQLiteRepository) SaveService(ctx context.Context, household string, s core.Service) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := r.inTx(ctx, func(q *Queries) error {
		if err := q.UpsertService(ctx, ServiceRow{
			HouseholdID:     household,
			ID:              s.ID,
			Name:            s.Name,
			AmountCents:     s.Amount.Cents,
			DueDay:          int64(s.DueDay),
			FrequencyMonths: int64(s.FrequencyMonths),
			FirstDueMonth:   string(s.FirstDueMonth),
		}); err != nil {
			return fmt.Errorf("upsert service: %w", err)
		}
		if err := q.DeleteServicePaidPeriods(ctx, household, s.ID); err != nil {
			return fmt.Errorf("clear service paid periods: %w", err)
		}
		for _, key := range s.PaidPeriods.Keys() {
			if err := q.InsertServicePaidPeriod(ctx, household, s.ID, string(key)); err != nil {
				return fmt.Errorf("insert service paid period: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.notify(household, records.Services)
	return nil
}

func (r *SQLiteRepository) DeleteService(ctx context.Context, household, id string) error {
	err := r.inTx(ctx, func(q *Queries) error {
		n, err := q.DeleteService(ctx, household, id)
		if err != nil {
			return fmt.Errorf("delete service: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("service %s: %w", id, core.ErrNotFound)
		}
		return q.DeleteServicePaidPeriods(ctx, household, id)
	})
	if err != nil {
		return err
	}
	r.notify(household, records.Services)
	return nil
}

func (r *SQLiteRepository) GetShoppingItem(ctx context.Context, household, id string) (core.ShoppingItem, error) {
	row, err := r.queries.GetShoppingItem(ctx, household, id)
	if err != nil {
		return core.ShoppingItem{}, notFound("shopping item", id, err)
	}
	return shoppingFromRow(row), nil
}

func (r *SQLiteRepository) SaveShoppingItem(ctx context.Context, household string, it core.ShoppingItem) error {
	if err := it.Validate(); err != nil {
		return err
	}
	err := r.queries.UpsertShoppingItem(ctx, ShoppingItemRow{
		HouseholdID:    household,
		ID:             it.ID,
		Name:           it.Name,
		UnitPriceCents: it.UnitPrice.Cents,
		Quantity:       int64(it.Quantity),
		Checked:        it.Checked,
		MonthKey:       string(it.MonthKey),
	})
	if err != nil {
		return fmt.Errorf("upsert shopping item: %w", err)
	}
	r.notify(household, records.Shopping)
	return nil
}

func (r *SQLiteRepository) DeleteShoppingItem(ctx context.Context, household, id string) error {
	n, err := r.queries.DeleteShoppingItem(ctx, household, id)
	if err != nil {
		return fmt.Errorf("delete shopping item: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("shopping item %s: %w", id, core.ErrNotFound)
	}
	r.notify(household, records.Shopping)
	return nil
}

func assembleCards(rows []CardRow, adjustments, paid []CardMonthRow) []core.Card {
	adjByCard := make(map[string]map[core.MonthKey]core.Money)
	for _, a := range adjustments {
		m, ok := adjByCard[a.CardID]
		if !ok {
			m = make(map[core.MonthKey]core.Money)
			adjByCard[a.CardID] = m
		}
		m[core.MonthKey(a.MonthKey)] = core.Cents(a.AmountCents)
	}
	paidByCard := make(map[string][]core.MonthKey)
	for _, p := range paid {
		paidByCard[p.CardID] = append(paidByCard[p.CardID], core.MonthKey(p.MonthKey))
	}

	cards := make([]core.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, core.Card{
			ID:                row.ID,
			Name:              row.Name,
			IssuingBank:       row.IssuingBank,
			CreditLimit:       core.Cents(row.CreditLimitCents),
			OneShotLimit:      core.Cents(row.OneShotLimitCents),
			StatementCloseDay: int(row.StatementCloseDay),
			DueDay:            int(row.DueDay),
			Color:             row.Color,
			Adjustments:       adjByCard[row.ID],
			PaidPeriods:       core.NewPeriodSet(paidByCard[row.ID]...),
		})
	}
	return cards
}

func assembleServices(rows []ServiceRow, paid []ServiceMonthRow) []core.Service {
	paidByService := make(map[string][]core.MonthKey)
	for _, p := range paid {
		paidByService[p.ServiceID] = append(paidByService[p.ServiceID], core.MonthKey(p.MonthKey))
	}
	services := make([]core.Service, 0, len(rows))
	for _, row := range rows {
		services = append(services, core.Service{
			ID:              row.ID,
			Name:            row.Name,
			Amount:          core.Cents(row.AmountCents),
			DueDay:          int(row.DueDay),
			FrequencyMonths: int(row.FrequencyMonths),
			FirstDueMonth:   core.MonthKey(row.FirstDueMonth),
			PaidPeriods:     core.NewPeriodSet(paidByService[row.ID]...),
		})
	}
	return services
}

// purchaseFromRow returns the purchase even when its date is unreadable so
// the engine can report it.
func purchaseFromRow(row PurchaseRow) (core.Purchase, error) {
	p := core.Purchase{
		ID:               row.ID,
		CardID:           row.CardID,
		Description:      row.Description,
		TotalAmount:      core.Cents(row.TotalCents),
		InstallmentCount: int(row.InstallmentCount),
		Category:         row.Category,
		Kind:             core.PurchaseKind(row.Kind),
	}
	d, err := core.ParseCalendarDay(row.PurchaseDate)
	if err != nil {
		return p, fmt.Errorf("purchase %s date %q: %w", row.ID, row.PurchaseDate, err)
	}
	p.Date = d
	return p, nil
}

func shoppingFromRow(row ShoppingItemRow) core.ShoppingItem {
	return core.ShoppingItem{
		ID:        row.ID,
		Name:      row.Name,
		UnitPrice: core.Cents(row.UnitPriceCents),
		Quantity:  int(row.Quantity),
		Checked:   row.Checked,
		MonthKey:  core.MonthKey(row.MonthKey),
	}
}
