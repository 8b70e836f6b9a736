package screen

import (
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-ops/internal/handler"
	"github.com/jwalitptl/clinic-ops/internal/model"
	"github.com/jwalitptl/clinic-ops/internal/query"
	"github.com/jwalitptl/clinic-ops/pkg/httputil"
)

// Report aggregates the appointment rows for the reports screen.
// Chart rendering is the presentation layer's job; only the numbers
// are computed here.
type Report struct {
	TotalAppointments int            `json:"total_appointments"`
	CountsByStatus    map[string]int `json:"counts_by_status"`
	Revenue           float64        `json:"revenue"`
	RevenueByDay      []DailyRevenue `json:"revenue_by_day"`
	CountsByPayment   map[string]int `json:"counts_by_payment_status"`
}

type DailyRevenue struct {
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

func (h *Handler) reports(c *gin.Context) {
	cfg := h.screens[model.EntityAppointment]

	snap, err := h.loader.LoadSnapshot(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	rows, warnings := h.join.Rows(snap.Records(model.EntityAppointment), cfg, snap.Collections)

	// The same engine handles the report's date range; pagination is
	// disabled by sizing the page to the whole set.
	state := handler.ParseQueryState(c, cfg, len(rows)+1)
	state.Page = 1
	state.PageSize = len(rows) + 1
	res := h.query.Run(rows, cfg, state)

	report := Report{
		CountsByStatus:  make(map[string]int),
		CountsByPayment: make(map[string]int),
	}
	byDay := make(map[string]float64)

	for _, row := range res.PageRows {
		report.TotalAppointments++
		if s := row.Field("status"); s != "" {
			report.CountsByStatus[s]++
		}
		if p := row.Field("paymentStatus"); p != "" {
			report.CountsByPayment[p]++
		}

		amount := rowAmount(row)
		report.Revenue += amount
		if d, err := query.ParseDate(row.Field(cfg.DateField)); err == nil {
			byDay[d.Format("2006-01-02")] += amount
		}
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		report.RevenueByDay = append(report.RevenueByDay, DailyRevenue{Date: d, Amount: byDay[d]})
	}

	c.JSON(200, httputil.Response{Success: true, Data: report, Warnings: append(snap.Warnings(), warnings...)})
}

// rowAmount reads the appointment's monetary field; the upstream
// exposes either total or price depending on the call site.
func rowAmount(row model.ViewRow) float64 {
	for _, f := range []string{"total", "price", "amount"} {
		if v := row.Field(f); v != "" {
			if amount, err := strconv.ParseFloat(v, 64); err == nil {
				return amount
			}
		}
	}
	return 0
}
