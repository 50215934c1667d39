package http

import (
	"bytes"
	"errors"
	"net/http"

	"gastos/internal/core"
	applog "gastos/internal/log"
	"gastos/internal/report"
)

type balanceResponse struct {
	core.BalanceState
	Nets []core.NetPosition `json:"nets"`
}

type settleResponse struct {
	Debt     core.Debt `json:"debt"`
	Recorded bool      `json:"recorded"`
}

type reportResponse struct {
	report.Report
	Categories []report.CategoryTotal `json:"categories"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			Error(w, http.StatusServiceUnavailable, CodeUnavailable, "not ready")
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleRoster(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.ledger.Roster())
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, s.ledger.Expenses())
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	in, err := req.toNewExpense()
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpAddExpense)
		return
	}

	e, err := s.ledger.AddExpense(r.Context(), in)
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpAddExpense)
		return
	}
	JSON(w, http.StatusCreated, e)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	state := s.ledger.Balance()
	if state.Debts == nil {
		state.Debts = []core.Debt{}
	}
	JSON(w, http.StatusOK, balanceResponse{BalanceState: state, Nets: s.ledger.Nets()})
}

func (s *Server) handleSettleDebt(w http.ResponseWriter, r *http.Request) {
	var req settleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		BadRequest(w, err.Error())
		return
	}

	debt, err := req.toDebt()
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpSettleDebt)
		return
	}

	recorded, err := s.ledger.SettleDebt(r.Context(), debt)
	if err != nil {
		s.writeLedgerError(w, r, err, applog.OpSettleDebt)
		return
	}
	debt.Amount = core.Round2(debt.Amount)
	debt.IsSettled = true
	JSON(w, http.StatusOK, settleResponse{Debt: debt, Recorded: recorded})
}

func (s *Server) buildReport(r *http.Request) (report.Report, error) {
	days, err := parsePeriodDays(r, s.periodDays)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(s.ledger.Expenses(), days), nil
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}
	categories := rep.CategoryTotals()
	if categories == nil {
		categories = []report.CategoryTotal{}
	}
	JSON(w, http.StatusOK, reportResponse{Report: rep, Categories: categories})
}

func (s *Server) handleReportHTML(w http.ResponseWriter, r *http.Request) {
	rep, err := s.buildReport(r)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := report.RenderHTML(&buf, rep); err != nil {
		applog.LogError(r.Context(), applog.FromContext(r.Context()), "Failed to render report", err, applog.OpReport, nil)
		InternalError(w, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// writeLedgerError maps validation failures to 422 and anything else to 500.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error, op string) {
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		applog.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected by validation",
			applog.FieldOperation, op, applog.FieldError, err)
		FieldError(w, http.StatusUnprocessableEntity, CodeValidation, verr.Field, verr.Error())
		return
	}
	applog.LogError(r.Context(), applog.FromContext(r.Context()), "Ledger operation failed", err, op, nil)
	InternalError(w, "internal error")
}
