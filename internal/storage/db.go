package storage

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types, one per table.

type CardRow struct {
	HouseholdID       string
	ID                string
	Name              string
	IssuingBank       string
	CreditLimitCents  int64
	OneShotLimitCents int64
	StatementCloseDay int64
	DueDay            int64
	Color             string
}

type CardMonthRow struct {
	CardID      string
	MonthKey    string
	AmountCents int64
}

type PurchaseRow struct {
	HouseholdID      string
	ID               string
	CardID           string
	Description      string
	PurchaseDate     string
	TotalCents       int64
	InstallmentCount int64
	Category         string
	Kind             string
}

type ServiceRow struct {
	HouseholdID     string
	ID              string
	Name            string
	AmountCents     int64
	DueDay          int64
	FrequencyMonths int64
	FirstDueMonth   string
}

type ServiceMonthRow struct {
	ServiceID string
	MonthKey  string
}

type ShoppingItemRow struct {
	HouseholdID    string
	ID             string
	Name           string
	UnitPriceCents int64
	Quantity       int64
	Checked        bool
	MonthKey       string
}
