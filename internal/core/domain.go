package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

type (
	// Participant is a member of the roster, identified by display name.
	Participant string

	// Roster is the fixed, ordered set of people sharing expenses.
	// Its order is the tie-break order for debt simplification.
	Roster []Participant

	Date struct {
		time.Time
	}

	Expense struct {
		ID                string        `json:"id"`
		Description       string        `json:"description"`
		Amount            float64       `json:"amount"`
		PaidBy            Participant   `json:"paidBy"`
		Participants      []Participant `json:"participants"`
		Date              Date          `json:"date"`
		ReceiptAttachment string        `json:"receiptAttachment"`
	}

	// Debt is a directed obligation. Live debts come from the balance
	// engine; settled ones are historical records.
	Debt struct {
		From      Participant `json:"from"`
		To        Participant `json:"to"`
		Amount    float64     `json:"amount"`
		IsSettled bool        `json:"isSettled"`
	}

	BalanceState struct {
		TotalSpent float64 `json:"totalSpent"`
		Debts      []Debt  `json:"debts"`
	}

	// NetPosition is a participant's rounded net contribution:
	// positive is owed money, negative owes money.
	NetPosition struct {
		Participant Participant `json:"participant"`
		Net         float64     `json:"net"`
	}
)

var (
	ErrEmptyDescription   = errors.New("empty description")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownParticipant = errors.New("participant not in roster")
	ErrNoParticipants     = errors.New("no participants selected")
	ErrMissingReceipt     = errors.New("receipt attachment required")
	ErrSelfDebt           = errors.New("debtor and creditor are the same person")
	ErrEmptyRoster        = errors.New("roster is empty")
	ErrDuplicateMember    = errors.New("duplicate roster member")
)

// DefaultRoster is used when no roster is configured.
func DefaultRoster() Roster {
	return Roster{"Juan", "María", "Pedro"}
}

// ParseRoster splits a comma separated list of names.
func ParseRoster(s string) (Roster, error) {
	var r Roster
	for _, name := range strings.Split(s, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		r = append(r, Participant(name))
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r Roster) Validate() error {
	if len(r) == 0 {
		return ErrEmptyRoster
	}
	seen := make(map[Participant]struct{}, len(r))
	for _, p := range r {
		if strings.TrimSpace(string(p)) == "" {
			return fmt.Errorf("blank roster member: %w", ErrUnknownParticipant)
		}
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, p)
		}
		seen[p] = struct{}{}
	}
	return nil
}

func (r Roster) Contains(p Participant) bool {
	for _, m := range r {
		if m == p {
			return true
		}
	}
	return false
}

// Names returns the roster as plain strings.
func (r Roster) Names() []string {
	out := make([]string, len(r))
	for i, p := range r {
		out[i] = string(p)
	}
	return out
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks the user-entered fields of an expense against the roster.
// ID and Date are assigned by the ledger and are not checked here.
func (e Expense) Validate(roster Roster) error {
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Err: ErrEmptyDescription}
	}
	if e.Amount <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	if !roster.Contains(e.PaidBy) {
		return &ValidationError{Field: "paidBy", Err: fmt.Errorf("%w: %q", ErrUnknownParticipant, e.PaidBy)}
	}
	if len(e.Participants) == 0 {
		return &ValidationError{Field: "participants", Err: ErrNoParticipants}
	}
	for _, p := range e.Participants {
		if !roster.Contains(p) {
			return &ValidationError{Field: "participants", Err: fmt.Errorf("%w: %q", ErrUnknownParticipant, p)}
		}
	}
	if strings.TrimSpace(e.ReceiptAttachment) == "" {
		return &ValidationError{Field: "receiptAttachment", Err: ErrMissingReceipt}
	}
	return nil
}

// Clone returns a copy that shares no slices with e.
func (e Expense) Clone() Expense {
	e.Participants = append([]Participant(nil), e.Participants...)
	return e
}

func (d Debt) Validate(roster Roster) error {
	if !roster.Contains(d.From) {
		return &ValidationError{Field: "from", Err: fmt.Errorf("%w: %q", ErrUnknownParticipant, d.From)}
	}
	if !roster.Contains(d.To) {
		return &ValidationError{Field: "to", Err: fmt.Errorf("%w: %q", ErrUnknownParticipant, d.To)}
	}
	if d.From == d.To {
		return &ValidationError{Field: "to", Err: ErrSelfDebt}
	}
	if d.Amount <= 0 {
		return &ValidationError{Field: "amount", Err: ErrInvalidAmount}
	}
	return nil
}

// Matches reports whether d and o describe the same obligation,
// ignoring settlement status.
func (d Debt) Matches(o Debt) bool {
	return d.From == o.From && d.To == o.To && d.Amount == o.Amount
}
