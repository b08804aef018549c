package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	"fintrack/internal/services"
)

func (s *Server) handleAmortizationSchedule(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	schedule, err := s.services.Debts.Schedule(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

// Debt payments are immutable: they can be recorded and deleted only.

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request, owner string) {
	debtID, err := queryID(r.URL.Query(), "debt")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f ledger.PaymentFilter
	if debtID != nil {
		f.DebtID = *debtID
	}
	payments, err := s.store.Payments().List(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request, owner string) {
	var body struct {
		DebtID           int64            `json:"debt"`
		PaymentDate      core.Date        `json:"payment_date"`
		Amount           *decimal.Decimal `json:"amount"`
		PrincipalPayment *decimal.Decimal `json:"principal_payment"`
		InterestPayment  *decimal.Decimal `json:"interest_payment"`
		Notes            string           `json:"notes"`
	}
	if err := NewRequestBodyParser(w, r).Decode(&body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.Amount == nil {
		writeError(w, r, core.Invalid("amount", "This field is required"))
		return
	}
	payment, err := s.services.Debts.RecordPayment(r.Context(), owner, services.PaymentInput{
		DebtID:    body.DebtID,
		Date:      body.PaymentDate,
		Amount:    *body.Amount,
		Principal: body.PrincipalPayment,
		Interest:  body.InterestPayment,
		Notes:     sanitizeInput(body.Notes),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := s.store.Payments().Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.services.Debts.DeletePayment(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleBudgetSummary(w http.ResponseWriter, r *http.Request, owner string) {
	summary, err := s.services.Budgets.Summary(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request, owner string) {
	result, err := s.services.Budgets.CheckAlerts(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBudgetExpenses(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.services.Budgets.Expenses(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request, owner string) {
	q := r.URL.Query()
	budgetID, err := queryID(q, "budget")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := ledger.AlertFilter{UnreadOnly: q.Get("is_read") == "false" || q.Get("unread") == "true"}
	if budgetID != nil {
		f.BudgetID = *budgetID
	}
	alerts, err := s.store.Alerts().List(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleGetAlert(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	alert, err := s.store.Alerts().Get(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (s *Server) handleDeleteAlert(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.Alerts().Delete(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleMarkAlertRead(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.Alerts().MarkRead(r.Context(), owner, id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "marked as read"})
}

func (s *Server) handleMarkAllAlertsRead(w http.ResponseWriter, r *http.Request, owner string) {
	n, err := s.store.Alerts().MarkAllRead(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"marked_read": n})
}

func (s *Server) handleCompleteTransfer(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.services.Transfers.Complete(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message
		Transfer core.MoneyTransfer `json:"transfer"`
	}{Message{"Transfer completed successfully"}, t})
}

func (s *Server) handleCancelTransfer(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	t, err := s.services.Transfers.Cancel(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message
		Transfer core.MoneyTransfer `json:"transfer"`
	}{Message{"Transfer cancelled"}, t})
}

func (s *Server) handleExchangeRate(w http.ResponseWriter, r *http.Request, _ string) {
	q := r.URL.Query()
	from, err := queryCurrency(q, "from", core.USD)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := queryCurrency(q, "to", core.KES)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rate := s.services.Transfers.Rate(r.Context(), from, to)
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "rate": rate})
}

func (s *Server) handleUpcomingEvents(w http.ResponseWriter, r *http.Request, owner string) {
	events, err := s.services.Calendar.Upcoming(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request, owner string) {
	params, err := ParseMonthParams(r.URL.Query(), s.services.Calendar.Clock.Today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.services.Calendar.MonthlySummary(r.Context(), owner, params.Year, params.Month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSendReminders(w http.ResponseWriter, r *http.Request, owner string) {
	run, err := s.services.Calendar.SendReminders(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleMarkDeposited(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dep, err := s.services.Incomes.MarkDeposited(r.Context(), owner, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message
		services.Deposit
	}{Message{"Income marked as deposited and transaction created"}, dep})
}

func (s *Server) handleUpcomingIncome(w http.ResponseWriter, r *http.Request, owner string) {
	incomes, err := s.services.Incomes.Upcoming(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (s *Server) handleTransactionSummary(w http.ResponseWriter, r *http.Request, owner string) {
	f, err := transactionFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.services.Planning.TransactionSummary(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request, owner string) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	amount, err := parseAmount(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	goal, err := s.services.Planning.UpdateProgress(r.Context(), owner, id, amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message
		Goal services.GoalView `json:"goal"`
	}{Message{"Progress updated successfully"}, goal})
}

func (s *Server) handleCategoryTree(w http.ResponseWriter, r *http.Request, owner string) {
	f, err := categoryFilter(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	tree, err := s.services.Categories.Tree(r.Context(), owner, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// handleCategoriesOfType lists active categories usable for t, including
// those of type both.
func (s *Server) handleCategoriesOfType(t core.CategoryType) func(http.ResponseWriter, *http.Request, string) {
	return func(w http.ResponseWriter, r *http.Request, owner string) {
		categories, err := s.services.Categories.List(r.Context(), owner, ledger.CategoryFilter{
			Type:   t,
			Active: ledger.Bool(true),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, categories)
	}
}

func (s *Server) handleCreateDefaultCategories(w http.ResponseWriter, r *http.Request, owner string) {
	created, err := s.services.Categories.CreateDefaults(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":    "Default categories created",
		"created":    len(created),
		"categories": created,
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, owner string) {
	dash, err := s.services.Dashboard.Overview(r.Context(), owner)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}
