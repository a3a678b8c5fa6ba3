package obligation

import (
	"errors"
	"sort"

	"bilancio/internal/core"
)

// DefaultCriticalDueDay is the latest due day that still raises the alert.
const DefaultCriticalDueDay = 5

// ErrUnknownCard marks a purchase pointing at a card that no longer exists.
var ErrUnknownCard = errors.New("purchase references an unknown card")

type EntryKind string

const (
	EntryCard    EntryKind = "card"
	EntryService EntryKind = "service"
)

// Input is a full snapshot of one household's records.
type Input struct {
	Cards     []core.Card
	Purchases []core.Purchase
	Services  []core.Service
	Shopping  []core.ShoppingItem
}

// Issue describes a record that was skipped or degraded. Issues never abort a
// computation.
type Issue struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Err        error  `json:"-"`
	Message    string `json:"message"`
}

type CardLine struct {
	CardID     string     `json:"cardId"`
	Name       string     `json:"name"`
	DueDay     int        `json:"dueDay"`
	Obligation Obligation `json:"obligation"`
	Paid       bool       `json:"paid"`
}

type ServiceLine struct {
	ServiceID string     `json:"serviceId"`
	Name      string     `json:"name"`
	DueDay    int        `json:"dueDay"`
	Amount    core.Money `json:"amount"`
	Active    bool       `json:"active"`
	Paid      bool       `json:"paid"`
}

type ShoppingTotals struct {
	Budget core.Money `json:"budget"`
	Spent  core.Money `json:"spent"`
}

// AgendaEntry is one obligation in the month's due list.
type AgendaEntry struct {
	Kind    EntryKind        `json:"kind"`
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Amount  core.Money       `json:"amount"`
	DueDay  int              `json:"dueDay"`
	DueDate core.CalendarDay `json:"dueDate"`
	Paid    bool             `json:"paid"`
}

// CriticalAlert is raised by the soonest unpaid entry when it falls due early
// in the month.
type CriticalAlert struct {
	Name   string     `json:"name"`
	Amount core.Money `json:"amount"`
	DueDay int        `json:"dueDay"`
}

type Summary struct {
	MonthKey        core.MonthKey  `json:"monthKey"`
	MonthLabel      string         `json:"monthLabel"`
	Cards           []CardLine     `json:"cards"`
	Services        []ServiceLine  `json:"services"`
	Shopping        ShoppingTotals `json:"shopping"`
	TotalNeeded     core.Money     `json:"totalNeeded"`
	TotalPaid       core.Money     `json:"totalPaid"`
	Remaining       core.Money     `json:"remaining"`
	PercentComplete float64        `json:"percentComplete"`
	Agenda          []AgendaEntry  `json:"agenda"` // every due entry, paid or not, by due day
	Critical        *CriticalAlert `json:"critical,omitempty"`
	Issues          []Issue        `json:"issues,omitempty"`
}

// Config tunes summary building.
type Config struct {
	CriticalDueDay int
}

func DefaultConfig() Config {
	return Config{CriticalDueDay: DefaultCriticalDueDay}
}

// BuildSummary builds the summary for key with the default configuration.
func BuildSummary(in Input, key core.MonthKey) (Summary, error) {
	return DefaultConfig().BuildSummary(in, key)
}

// BuildSummary resolves every card and service for key and aggregates them.
// Only a malformed key is an error; bad records become Issues.
func (c Config) BuildSummary(in Input, key core.MonthKey) (Summary, error) {
	month, err := key.Month()
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		MonthKey:   month.Key(),
		MonthLabel: month.Label(),
		Cards:      make([]CardLine, 0, len(in.Cards)),
		Services:   make([]ServiceLine, 0, len(in.Services)),
		Issues:     Validate(in),
	}

	agenda := make([]AgendaEntry, 0, len(in.Services)+len(in.Cards))
	for _, svc := range in.Services {
		line := ServiceLine{
			ServiceID: svc.ID,
			Name:      svc.Name,
			DueDay:    svc.DueDay,
			Amount:    ServiceAmount(svc),
			Active:    svc.Validate() == nil && IsServiceActive(svc, month),
			Paid:      svc.PaidPeriods.Contains(s.MonthKey),
		}
		s.Services = append(s.Services, line)
		if !line.Active {
			continue
		}
		s.TotalNeeded = s.TotalNeeded.Add(line.Amount)
		if line.Paid {
			s.TotalPaid = s.TotalPaid.Add(line.Amount)
		}
		agenda = append(agenda, AgendaEntry{
			Kind:    EntryService,
			ID:      svc.ID,
			Name:    svc.Name,
			Amount:  line.Amount,
			DueDay:  svc.DueDay,
			DueDate: month.DueDate(svc.DueDay),
			Paid:    line.Paid,
		})
	}

	for _, card := range in.Cards {
		line := CardLine{
			CardID:     card.ID,
			Name:       card.Name,
			DueDay:     card.DueDay,
			Obligation: CardObligation(card, in.Purchases, month),
			Paid:       card.PaidPeriods.Contains(s.MonthKey),
		}
		s.Cards = append(s.Cards, line)
		amount := line.Obligation.Amount
		s.TotalNeeded = s.TotalNeeded.Add(amount)
		if line.Paid {
			s.TotalPaid = s.TotalPaid.Add(amount)
		}
		if amount.Cents > 0 {
			agenda = append(agenda, AgendaEntry{
				Kind:    EntryCard,
				ID:      card.ID,
				Name:    card.Name,
				Amount:  amount,
				DueDay:  card.DueDay,
				DueDate: month.DueDate(card.DueDay),
				Paid:    line.Paid,
			})
		}
	}

	s.Shopping = Shopping(in.Shopping, s.MonthKey)
	s.TotalNeeded = s.TotalNeeded.Add(s.Shopping.Budget)
	s.TotalPaid = s.TotalPaid.Add(s.Shopping.Spent)
	s.Remaining = s.TotalNeeded.Sub(s.TotalPaid)
	s.PercentComplete = Percent(s.TotalPaid, s.TotalNeeded)

	sort.SliceStable(agenda, func(i, j int) bool { return agenda[i].DueDay < agenda[j].DueDay })
	s.Agenda = agenda
	if pending := s.Pending(); len(pending) > 0 && pending[0].DueDay <= c.CriticalDueDay {
		s.Critical = &CriticalAlert{Name: pending[0].Name, Amount: pending[0].Amount, DueDay: pending[0].DueDay}
	}
	return s, nil
}

// Pending returns the unpaid agenda entries, soonest first.
func (s Summary) Pending() []AgendaEntry {
	out := make([]AgendaEntry, 0, len(s.Agenda))
	for _, e := range s.Agenda {
		if !e.Paid {
			out = append(out, e)
		}
	}
	return out
}

// NextDue returns at most n pending entries.
func (s Summary) NextDue(n int) []AgendaEntry {
	pending := s.Pending()
	if n >= 0 && len(pending) > n {
		pending = pending[:n]
	}
	return pending
}

// Percent is paid/needed as a percentage, 0 when nothing is needed.
func Percent(paid, needed core.Money) float64 {
	if needed.Cents == 0 {
		return 0
	}
	return float64(paid.Cents) * 100 / float64(needed.Cents)
}

// Shopping sums the items planned for key (budget) and the checked ones (spent).
func Shopping(items []core.ShoppingItem, key core.MonthKey) ShoppingTotals {
	var t ShoppingTotals
	for _, it := range items {
		if it.MonthKey != key || it.Validate() != nil {
			continue
		}
		t.Budget = t.Budget.Add(it.Total())
		if it.Checked {
			t.Spent = t.Spent.Add(it.Total())
		}
	}
	return t
}

// Validate lists every record that the resolvers will skip or degrade.
func Validate(in Input) []Issue {
	var issues []Issue
	add := func(collection, id string, err error) {
		issues = append(issues, Issue{Collection: collection, ID: id, Err: err, Message: err.Error()})
	}
	cards := make(map[string]struct{}, len(in.Cards))
	for _, c := range in.Cards {
		cards[c.ID] = struct{}{}
		if err := c.Validate(); err != nil {
			add("cards", c.ID, err)
		}
	}
	for _, p := range in.Purchases {
		if err := p.ValidateAmortization(); err != nil {
			add("purchases", p.ID, err)
			continue
		}
		if p.EffectiveKind() == core.KindCard {
			if _, ok := cards[p.CardID]; !ok {
				add("purchases", p.ID, ErrUnknownCard)
			}
		}
	}
	for _, s := range in.Services {
		if err := s.Validate(); err != nil {
			add("services", s.ID, err)
		}
	}
	for _, it := range in.Shopping {
		if err := it.Validate(); err != nil {
			add("shopping", it.ID, err)
		}
	}
	return issues
}
