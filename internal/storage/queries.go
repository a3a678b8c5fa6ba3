package storage

import (
	"context"
)

const listHouseholds = `-- name: ListHouseholds :many
SELECT household_id FROM cards
UNION SELECT household_id FROM purchases
UNION SELECT household_id FROM services
UNION SELECT household_id FROM shopping_items
ORDER BY household_id
`

func (q *Queries) ListHouseholds(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listHouseholds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		items = append(items, h)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertCard = `-- name: UpsertCard :exec
INSERT INTO cards (household_id, id, name, issuing_bank, credit_limit_cents, one_shot_limit_cents, statement_close_day, due_day, color)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (household_id, id) DO UPDATE SET
    name = excluded.name,
    issuing_bank = excluded.issuing_bank,
    credit_limit_cents = excluded.credit_limit_cents,
    one_shot_limit_cents = excluded.one_shot_limit_cents,
    statement_close_day = excluded.statement_close_day,
    due_day = excluded.due_day,
    color = excluded.color
`

func (q *Queries) UpsertCard(ctx context.Context, arg CardRow) error {
	_, err := q.db.ExecContext(ctx, upsertCard,
		arg.HouseholdID,
		arg.ID,
		arg.Name,
		arg.IssuingBank,
		arg.CreditLimitCents,
		arg.OneShotLimitCents,
		arg.StatementCloseDay,
		arg.DueDay,
		arg.Color,
	)
	return err
}

const cardColumns = `household_id, id, name, issuing_bank, credit_limit_cents, one_shot_limit_cents, statement_close_day, due_day, color`

const getCard = `-- name: GetCard :one
SELECT ` + cardColumns + ` FROM cards WHERE household_id = ? AND id = ?
`

func (q *Queries) GetCard(ctx context.Context, householdID, id string) (CardRow, error) {
	row := q.db.QueryRowContext(ctx, getCard, householdID, id)
	var i CardRow
	err := row.Scan(
		&i.HouseholdID,
		&i.ID,
		&i.Name,
		&i.IssuingBank,
		&i.CreditLimitCents,
		&i.OneShotLimitCents,
		&i.StatementCloseDay,
		&i.DueDay,
		&i.Color,
	)
	return i, err
}

const listCards = `-- name: ListCards :many
SELECT ` + cardColumns + ` FROM cards WHERE household_id = ? ORDER BY rowid
`

func (q *Queries) ListCards(ctx context.Context, householdID string) ([]CardRow, error) {
	rows, err := q.db.QueryContext(ctx, listCards, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardRow
	for rows.Next() {
		var i CardRow
		if err := rows.Scan(
			&i.HouseholdID,
			&i.ID,
			&i.Name,
			&i.IssuingBank,
			&i.CreditLimitCents,
			&i.OneShotLimitCents,
			&i.StatementCloseDay,
			&i.DueDay,
			&i.Color,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteCard = `-- name: DeleteCard :execrows
DELETE FROM cards WHERE household_id = ? AND id = ?
`

func (q *Queries) DeleteCard(ctx context.Context, householdID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCard, householdID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCardAdjustments = `-- name: DeleteCardAdjustments :exec
DELETE FROM card_adjustments WHERE household_id = ? AND card_id = ?
`

func (q *Queries) DeleteCardAdjustments(ctx context.Context, householdID, cardID string) error {
	_, err := q.db.ExecContext(ctx, deleteCardAdjustments, householdID, cardID)
	return err
}

const insertCardAdjustment = `-- name: InsertCardAdjustment :exec
INSERT INTO card_adjustments (household_id, card_id, month_key, amount_cents) VALUES (?, ?, ?, ?)
`

func (q *Queries) InsertCardAdjustment(ctx context.Context, householdID string, arg CardMonthRow) error {
	_, err := q.db.ExecContext(ctx, insertCardAdjustment, householdID, arg.CardID, arg.MonthKey, arg.AmountCents)
	return err
}

const listCardAdjustments = `-- name: ListCardAdjustments :many
SELECT card_id, month_key, amount_cents FROM card_adjustments WHERE household_id = ? ORDER BY card_id, month_key
`

func (q *Queries) ListCardAdjustments(ctx context.Context, householdID string) ([]CardMonthRow, error) {
	return q.listCardMonths(ctx, listCardAdjustments, householdID)
}

const deleteCardPaidPeriods = `-- name: DeleteCardPaidPeriods :exec
DELETE FROM card_paid_periods WHERE household_id = ? AND card_id = ?
`

func (q *Queries) DeleteCardPaidPeriods(ctx context.Context, householdID, cardID string) error {
	_, err := q.db.ExecContext(ctx, deleteCardPaidPeriods, householdID, cardID)
	return err
}

const insertCardPaidPeriod = `-- name: InsertCardPaidPeriod :exec
INSERT INTO card_paid_periods (household_id, card_id, month_key) VALUES (?, ?, ?)
`

func (q *Queries) InsertCardPaidPeriod(ctx context.Context, householdID, cardID, monthKey string) error {
	_, err := q.db.ExecContext(ctx, insertCardPaidPeriod, householdID, cardID, monthKey)
	return err
}

const listCardPaidPeriods = `-- name: ListCardPaidPeriods :many
SELECT card_id, month_key, 0 FROM card_paid_periods WHERE household_id = ? ORDER BY card_id, month_key
`

func (q *Queries) ListCardPaidPeriods(ctx context.Context, householdID string) ([]CardMonthRow, error) {
	return q.listCardMonths(ctx, listCardPaidPeriods, householdID)
}

func (q *Queries) listCardMonths(ctx context.Context, query, householdID string) ([]CardMonthRow, error) {
	rows, err := q.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CardMonthRow
	for rows.Next() {
		var i CardMonthRow
		if err := rows.Scan(&i.CardID, &i.MonthKey, &i.AmountCents); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertPurchase = `-- name: UpsertPurchase :exec
INSERT INTO purchases (household_id, id, card_id, description, purchase_date, total_cents, installment_count, category, kind)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (household_id, id) DO UPDATE SET
    card_id = excluded.card_id,
    description = excluded.description,
    purchase_date = excluded.purchase_date,
    total_cents = excluded.total_cents,
    installment_count = excluded.installment_count,
    category = excluded.category,
    kind = excluded.kind
`

func (q *Queries) UpsertPurchase(ctx context.Context, arg PurchaseRow) error {
	_, err := q.db.ExecContext(ctx, upsertPurchase,
		arg.HouseholdID,
		arg.ID,
		arg.CardID,
		arg.Description,
		arg.PurchaseDate,
		arg.TotalCents,
		arg.InstallmentCount,
		arg.Category,
		arg.Kind,
	)
	return err
}

const purchaseColumns = `household_id, id, card_id, description, purchase_date, total_cents, installment_count, category, kind`

const getPurchase = `-- name: GetPurchase :one
SELECT ` + purchaseColumns + ` FROM purchases WHERE household_id = ? AND id = ?
`

func (q *Queries) GetPurchase(ctx context.Context, householdID, id string) (PurchaseRow, error) {
	row := q.db.QueryRowContext(ctx, getPurchase, householdID, id)
	var i PurchaseRow
	err := row.Scan(
		&i.HouseholdID,
		&i.ID,
		&i.CardID,
		&i.Description,
		&i.PurchaseDate,
		&i.TotalCents,
		&i.InstallmentCount,
		&i.Category,
		&i.Kind,
	)
	return i, err
}

const listPurchases = `-- name: ListPurchases :many
SELECT ` + purchaseColumns + ` FROM purchases WHERE household_id = ? ORDER BY rowid
`

func (q *Queries) ListPurchases(ctx context.Context, householdID string) ([]PurchaseRow, error) {
	rows, err := q.db.QueryContext(ctx, listPurchases, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PurchaseRow
	for rows.Next() {
		var i PurchaseRow
		if err := rows.Scan(
			&i.HouseholdID,
			&i.ID,
			&i.CardID,
			&i.Description,
			&i.PurchaseDate,
			&i.TotalCents,
			&i.InstallmentCount,
			&i.Category,
			&i.Kind,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deletePurchase = `-- name: DeletePurchase :execrows
DELETE FROM purchases WHERE household_id = ? AND id = ?
`

func (q *Queries) DeletePurchase(ctx context.Context, householdID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePurchase, householdID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertService = `-- name: UpsertService :exec
INSERT INTO services (household_id, id, name, amount_cents, due_day, frequency_months, first_due_month)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (household_id, id) DO UPDATE SET
    name = excluded.name,
    amount_cents = excluded.amount_cents,
    due_day = excluded.due_day,
    frequency_months = excluded.frequency_months,
    first_due_month = excluded.first_due_month
`

func (q *Queries) UpsertService(ctx context.Context, arg ServiceRow) error {
	_, err := q.db.ExecContext(ctx, upsertService,
		arg.HouseholdID,
		arg.ID,
		arg.Name,
		arg.AmountCents,
		arg.DueDay,
		arg.FrequencyMonths,
		arg.FirstDueMonth,
	)
	return err
}

const serviceColumns = `household_id, id, name, amount_cents, due_day, frequency_months, first_due_month`

const getService = `-- name: GetService :one
SELECT ` + serviceColumns + ` FROM services WHERE household_id = ? AND id = ?
`

func (q *Queries) GetService(ctx context.Context, householdID, id string) (ServiceRow, error) {
	row := q.db.QueryRowContext(ctx, getService, householdID, id)
	var i ServiceRow
	err := row.Scan(
		&i.HouseholdID,
		&i.ID,
		&i.Name,
		&i.AmountCents,
		&i.DueDay,
		&i.FrequencyMonths,
		&i.FirstDueMonth,
	)
	return i, err
}

const listServices = `-- name: ListServices :many
SELECT ` + serviceColumns + ` FROM services WHERE household_id = ? ORDER BY rowid
`

func (q *Queries) ListServices(ctx context.Context, householdID string) ([]ServiceRow, error) {
	rows, err := q.db.QueryContext(ctx, listServices, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ServiceRow
	for rows.Next() {
		var i ServiceRow
		if err := rows.Scan(
			&i.HouseholdID,
			&i.ID,
			&i.Name,
			&i.AmountCents,
			&i.DueDay,
			&i.FrequencyMonths,
			&i.FirstDueMonth,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteService = `-- name: DeleteService :execrows
DELETE FROM services WHERE household_id = ? AND id = ?
`

func (q *Queries) DeleteService(ctx context.Context, householdID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteService, householdID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteServicePaidPeriods = `-- name: DeleteServicePaidPeriods :exec
DELETE FROM service_paid_periods WHERE household_id = ? AND service_id = ?
`

func (q *Queries) DeleteServicePaidPeriods(ctx context.Context, householdID, serviceID string) error {
	_, err := q.db.ExecContext(ctx, deleteServicePaidPeriods, householdID, serviceID)
	return err
}

const insertServicePaidPeriod = `-- name: InsertServicePaidPeriod :exec
INSERT INTO service_paid_periods (household_id, service_id, month_key) VALUES (?, ?, ?)
`

func (q *Queries) InsertServicePaidPeriod(ctx context.Context, householdID, serviceID, monthKey string) error {
	_, err := q.db.ExecContext(ctx, insertServicePaidPeriod, householdID, serviceID, monthKey)
	return err
}

const listServicePaidPeriods = `-- name: ListServicePaidPeriods :many
SELECT service_id, month_key FROM service_paid_periods WHERE household_id = ? ORDER BY service_id, month_key
`

func (q *Queries) ListServicePaidPeriods(ctx context.Context, householdID string) ([]ServiceMonthRow, error) {
	rows, err := q.db.QueryContext(ctx, listServicePaidPeriods, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ServiceMonthRow
	for rows.Next() {
		var i ServiceMonthRow
		if err := rows.Scan(&i.ServiceID, &i.MonthKey); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const upsertShoppingItem = `-- name: UpsertShoppingItem :exec
INSERT INTO shopping_items (household_id, id, name, unit_price_cents, quantity, checked, month_key)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (household_id, id) DO UPDATE SET
    name = excluded.name,
    unit_price_cents = excluded.unit_price_cents,
    quantity = excluded.quantity,
    checked = excluded.checked,
    month_key = excluded.month_key
`

func (q *Queries) UpsertShoppingItem(ctx context.Context, arg ShoppingItemRow) error {
	_, err := q.db.ExecContext(ctx, upsertShoppingItem,
		arg.HouseholdID,
		arg.ID,
		arg.Name,
		arg.UnitPriceCents,
		arg.Quantity,
		arg.Checked,
		arg.MonthKey,
	)
	return err
}

const shoppingColumns = `household_id, id, name, unit_price_cents, quantity, checked, month_key`

const getShoppingItem = `-- name: GetShoppingItem :one
SELECT ` + shoppingColumns + ` FROM shopping_items WHERE household_id = ? AND id = ?
`

func (q *Queries) GetShoppingItem(ctx context.Context, householdID, id string) (ShoppingItemRow, error) {
	row := q.db.QueryRowContext(ctx, getShoppingItem, householdID, id)
	var i ShoppingItemRow
	err := row.Scan(
		&i.HouseholdID,
		&i.ID,
		&i.Name,
		&i.UnitPriceCents,
		&i.Quantity,
		&i.Checked,
		&i.MonthKey,
	)
	return i, err
}

const listShoppingItems = `-- name: ListShoppingItems :many
SELECT ` + shoppingColumns + ` FROM shopping_items WHERE household_id = ? ORDER BY rowid
`

func (q *Queries) ListShoppingItems(ctx context.Context, householdID string) ([]ShoppingItemRow, error) {
	rows, err := q.db.QueryContext(ctx, listShoppingItems, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ShoppingItemRow
	for rows.Next() {
		var i ShoppingItemRow
		if err := rows.Scan(
			&i.HouseholdID,
			&i.ID,
			&i.Name,
			&i.UnitPriceCents,
			&i.Quantity,
			&i.Checked,
			&i.MonthKey,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteShoppingItem = `-- name: DeleteShoppingItem :execrows
DELETE FROM shopping_items WHERE household_id = ? AND id = ?
`

func (q *Queries) DeleteShoppingItem(ctx context.Context, householdID, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteShoppingItem, householdID, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
