package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bilancio/internal/core"
	"bilancio/internal/obligation"
)

const maxBodyBytes = 1 << 20

// errBadBody marks a body that is not a single JSON object.
var errBadBody = errors.New("request body must be a single JSON object")

// decodeJSON reads one JSON object from the request body into dst. Field
// errors raised by the domain types (amounts, dates) come back as
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, core.ErrInvalidAmount) {
			return &core.ValidationError{Field: "amount", Err: err}
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errBadBody
	}
	return nil
}

// ParseMonthKey reads a YYYY-MM query parameter, falling back when absent.
func ParseMonthKey(query url.Values, name string, fallback core.MonthKey) (core.MonthKey, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return fallback, nil
	}
	m, err := core.ParseMonthKey(v)
	if err != nil {
		return "", err
	}
	return m.Key(), nil
}

// ParseCalendarDay reads a YYYY-MM-DD query parameter, falling back when absent.
func ParseCalendarDay(query url.Values, name string, fallback core.CalendarDay) (core.CalendarDay, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return fallback, nil
	}
	d, err := core.ParseCalendarDay(v)
	if err != nil {
		return core.CalendarDay{}, &core.ValidationError{Field: name, Err: core.ErrInvalidDate}
	}
	if err := d.Validate(); err != nil {
		return core.CalendarDay{}, &core.ValidationError{Field: name, Err: err}
	}
	return d, nil
}

// ParseIntParam reads a non-negative integer query parameter.
func ParseIntParam(query url.Values, name string, fallback int) (int, error) {
	v := strings.TrimSpace(query.Get(name))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, &core.ValidationError{Field: name, Err: fmt.Errorf("must be a non-negative integer")}
	}
	return n, nil
}

// ParseHypothetical reads the draft purchase of a projection request:
// amount (decimal euros, dot or comma), installments (default 1) and an
// optional card. No amount means no draft.
func ParseHypothetical(query url.Values) (*obligation.Hypothetical, error) {
	amount := strings.TrimSpace(query.Get("amount"))
	if amount == "" {
		return nil, nil
	}
	cents, err := core.ParseDecimalToCents(amount)
	if err != nil {
		return nil, &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
	}
	installments, err := ParseIntParam(query, "installments", 1)
	if err != nil {
		return nil, err
	}
	hyp := &obligation.Hypothetical{
		Amount:           core.Cents(cents),
		InstallmentCount: installments,
		CardID:           sanitizeInput(query.Get("card")),
	}
	if err := hyp.Validate(); err != nil {
		return nil, err
	}
	return hyp, nil
}

// adjustmentRequest is the body of PUT .../adjustments/{month}.
type adjustmentRequest struct {
	Amount *core.Money `json:"amount"`
}
