package controllers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/deadline"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/httperr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/ruleerr"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/tiered"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/pkg/timebudget"
)

type TableReader interface {
	LookupBracketTable(area string, name string) (tiered.BracketTable, error)
	LookupPercentageSchedule(area string, name string) (tiered.PercentageSchedule, error)
	LookupTimeBudgets(area string, name string) ([]timebudget.Budget, error)
}

// CalcController exposes the standalone calculators over catalogue tables.
type CalcController struct {
	Tables TableReader
	NowUTC func() time.Time
}

type deadlineAPIRequest struct {
	Trigger    string `json:"trigger"`
	OffsetDays *int   `json:"offset_days"`
	AsOf       string `json:"as_of"`
}

type deadlineAPIResponse struct {
	Trigger       string          `json:"trigger"`
	OffsetDays    int             `json:"offset_days"`
	Due           string          `json:"due"`
	DaysRemaining int             `json:"days_remaining"`
	Status        deadline.Status `json:"status"`
}

func (c CalcController) HandleDeadlineAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req deadlineAPIRequest
	if err := readJSON(w, r, &req); err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	if req.OffsetDays == nil {
		httperr.WriteErr(w, r, fmt.Errorf("%w: offset_days is required", ruleerr.ErrInvalidInput))
		return
	}
	trigger, err := deadline.ParseDate(req.Trigger)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	now, err := resolveNow(req.AsOf, c.NowUTC)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	ev, err := deadline.Evaluate(trigger, *req.OffsetDays, now)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, deadlineAPIResponse{
		Trigger:       ev.Trigger.Format(deadline.DateLayout),
		OffsetDays:    ev.OffsetDays,
		Due:           ev.Due.Format(deadline.DateLayout),
		DaysRemaining: ev.DaysRemaining,
		Status:        ev.Status,
	})
}

type bracketAPIRequest struct {
	PracticeArea string          `json:"practice_area"`
	Table        string          `json:"table"`
	Amount       decimal.Decimal `json:"amount"`
}

func (c CalcController) HandleBracketAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req bracketAPIRequest
	if err := readJSON(w, r, &req); err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	table, err := c.Tables.LookupBracketTable(req.PracticeArea, req.Table)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	res, err := tiered.ApplyBracketTable(table, req.Amount)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	res.Computed = tiered.RoundCents(res.Computed)
	httperr.WriteJSON(w, http.StatusOK, res)
}

type percentageAPIRequest struct {
	PracticeArea string           `json:"practice_area"`
	Table        string           `json:"table"`
	Key          string           `json:"key"`
	Amount       *decimal.Decimal `json:"amount"`
}

type percentageAPIResponse struct {
	Key      int              `json:"key"`
	Rate     decimal.Decimal  `json:"rate"`
	Computed *decimal.Decimal `json:"computed,omitempty"`
}

// HandlePercentageAPI selects a schedule rate by key ("3" or "5+") and applies it to amount when given.
func (c CalcController) HandlePercentageAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req percentageAPIRequest
	if err := readJSON(w, r, &req); err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	key, err := tiered.ParseKey(req.Key)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	sched, err := c.Tables.LookupPercentageSchedule(req.PracticeArea, req.Table)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	rate, err := tiered.ApplyPercentageSchedule(sched, key)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	resp := percentageAPIResponse{Key: key, Rate: rate}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			httperr.WriteErr(w, r, fmt.Errorf("%w: amount must be non-negative", ruleerr.ErrOutOfRange))
			return
		}
		computed := tiered.RoundCents(req.Amount.Mul(rate))
		resp.Computed = &computed
	}
	httperr.WriteJSON(w, http.StatusOK, resp)
}

type timeBudgetAPIRequest struct {
	PracticeArea   string `json:"practice_area"`
	Table          string `json:"table"`
	Category       string `json:"category"`
	Anchor         string `json:"anchor"`
	ElapsedDays    *int   `json:"elapsed_days"`
	ExcludableDays int    `json:"excludable_days"`
	AsOf           string `json:"as_of"`
}

type timeBudgetAPIResponse struct {
	Category string            `json:"category"`
	Statute  string            `json:"statute,omitempty"`
	Result   timebudget.Result `json:"result"`
}

// HandleTimeBudgetAPI computes chargeable time against a category budget.
// Elapsed days default to the calendar days from anchor to as_of.
func (c CalcController) HandleTimeBudgetAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r)
		return
	}
	var req timeBudgetAPIRequest
	if err := readJSON(w, r, &req); err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	budgets, err := c.Tables.LookupTimeBudgets(req.PracticeArea, req.Table)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	var budget timebudget.Budget
	found := false
	for _, b := range budgets {
		if b.Category == strings.TrimSpace(req.Category) {
			budget, found = b, true
			break
		}
	}
	if !found {
		httperr.WriteErr(w, r, fmt.Errorf("%w: category %q in %s", ruleerr.ErrNotFound, req.Category, req.Table))
		return
	}
	anchor, err := deadline.ParseDate(req.Anchor)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	var elapsed int
	if req.ElapsedDays != nil {
		elapsed = *req.ElapsedDays
	} else {
		now, err := resolveNow(req.AsOf, c.NowUTC)
		if err != nil {
			httperr.WriteErr(w, r, err)
			return
		}
		elapsed = timebudget.CalendarDaysBetween(anchor, now)
	}
	res, err := timebudget.Remaining(budget, anchor, elapsed, req.ExcludableDays)
	if err != nil {
		httperr.WriteErr(w, r, err)
		return
	}
	httperr.WriteJSON(w, http.StatusOK, timeBudgetAPIResponse{Category: budget.Category, Statute: budget.Statute, Result: res})
}
