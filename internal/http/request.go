package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gastos/internal/core"
	"gastos/internal/ledger"
)

const maxBodyBytes = 64 << 10

// expenseRequest is the body of POST /api/v1/expenses.
type expenseRequest struct {
	Description       string             `json:"description"`
	Amount            json.RawMessage    `json:"amount"`
	PaidBy            core.Participant   `json:"paidBy"`
	Participants      []core.Participant `json:"participants"`
	ReceiptAttachment string             `json:"receiptAttachment"`
}

// settleRequest is the body of POST /api/v1/debts/settle.
type settleRequest struct {
	From   core.Participant `json:"from"`
	To     core.Participant `json:"to"`
	Amount json.RawMessage  `json:"amount"`
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// parseAmount accepts a JSON number or a decimal string such as "12,50".
// A missing amount yields zero, which validation rejects.
func parseAmount(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, invalidAmount()
		}
		v, err := core.ParseAmount(s)
		if err != nil {
			return 0, invalidAmount()
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, invalidAmount()
	}
	return v, nil
}

func invalidAmount() error {
	return &core.ValidationError{Field: "amount", Err: core.ErrInvalidAmount}
}

func (req expenseRequest) toNewExpense() (ledger.NewExpense, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return ledger.NewExpense{}, err
	}
	participants := make([]core.Participant, 0, len(req.Participants))
	for _, p := range req.Participants {
		participants = append(participants, core.Participant(sanitizeInput(string(p))))
	}
	return ledger.NewExpense{
		Description:       sanitizeInput(req.Description),
		Amount:            amount,
		PaidBy:            core.Participant(sanitizeInput(string(req.PaidBy))),
		Participants:      participants,
		ReceiptAttachment: strings.TrimSpace(req.ReceiptAttachment),
	}, nil
}

func (req settleRequest) toDebt() (core.Debt, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.Debt{}, err
	}
	return core.Debt{
		From:   core.Participant(sanitizeInput(string(req.From))),
		To:     core.Participant(sanitizeInput(string(req.To))),
		Amount: amount,
	}, nil
}

// parsePeriodDays reads the optional "days" query parameter.
func parsePeriodDays(r *http.Request, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("days"))
	if v == "" {
		return fallback, nil
	}
	days, err := strconv.Atoi(v)
	if err != nil || days < 1 || days > 366 {
		return 0, fmt.Errorf("days must be a whole number between 1 and 366, got %q", v)
	}
	return days, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' {
			return -1
		}
		return r
	}, s)
}
