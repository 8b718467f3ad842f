// controllers/report.go
package controllers

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReportController handles all reporting functions
type ReportController struct {
	*Deps
}

// AnalyticsSummary is revenue from confirmed appointments, in cents.
type AnalyticsSummary struct {
	CurrentMonthRevenue   int64             `json:"currentMonthRevenue"`
	MonthGrowth           float64           `json:"monthGrowth"`
	CurrentQuarterRevenue int64             `json:"currentQuarterRevenue"`
	QuarterGrowth         float64           `json:"quarterGrowth"`
	CurrentYearRevenue    int64             `json:"currentYearRevenue"`
	YearGrowth            float64           `json:"yearGrowth"`
	TopServices           []ServiceSummary  `json:"topServices"`
	TopCustomers          []CustomerSummary `json:"topCustomers"`
	QuickStats            QuickStatistics   `json:"quickStats"`
}

type ServiceSummary struct {
	Name    string `json:"name"`
	Count   int    `json:"count"`
	Revenue int64  `json:"revenue"`
}

type CustomerSummary struct {
	Name   string `json:"name"`
	Visits int    `json:"visits"`
	Spent  int64  `json:"spent"`
}

type QuickStatistics struct {
	TotalAppointments int     `json:"totalAppointments"`
	CancellationRate  float64 `json:"cancellationRate"`
	AvgMonthlyVisits  float64 `json:"avgMonthlyVisits"`
	AvgBookingValue   int64   `json:"avgBookingValue"`
}

// GetReportAnalytics compares the current month, quarter and year with the
// previous ones, in the workspace's timezone.
func (rc *ReportController) GetReportAnalytics(c *gin.Context) {
	ws, ok := rc.workspace(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	now := utils.InZone(time.Now(), ws.Timezone)
	firstOfMonth, _ := utils.MonthBounds(now)
	firstOfYear := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	// previous year onwards covers every window below
	appts, err := rc.appointmentsBetween(ctx, ws.ID, firstOfYear.AddDate(-1, 0, 0), firstOfYear.AddDate(1, 0, 0))
	if err != nil {
		rc.respondError(c, err, "")
		return
	}

	quarterStart := rc.getQuarterStart(now)
	summary := AnalyticsSummary{
		CurrentMonthRevenue:   revenue(appts, firstOfMonth, firstOfMonth.AddDate(0, 1, 0)),
		CurrentQuarterRevenue: revenue(appts, quarterStart, quarterStart.AddDate(0, 3, 0)),
		CurrentYearRevenue:    revenue(appts, firstOfYear, firstOfYear.AddDate(1, 0, 0)),
	}
	summary.MonthGrowth = rc.calculateGrowthPercentage(summary.CurrentMonthRevenue,
		revenue(appts, firstOfMonth.AddDate(0, -1, 0), firstOfMonth))
	summary.QuarterGrowth = rc.calculateGrowthPercentage(summary.CurrentQuarterRevenue,
		revenue(appts, quarterStart.AddDate(0, -3, 0), quarterStart))
	summary.YearGrowth = rc.calculateGrowthPercentage(summary.CurrentYearRevenue,
		revenue(appts, firstOfYear.AddDate(-1, 0, 0), firstOfYear))

	month := within(appts, firstOfMonth, firstOfMonth.AddDate(0, 1, 0))
	summary.TopServices = rc.getTopServices(month, 4)
	summary.TopCustomers = rc.getTopCustomers(month, 4)
	summary.QuickStats = rc.getQuickStatistics(within(appts, firstOfYear, firstOfYear.AddDate(1, 0, 0)), int(now.Month()))

	c.JSON(http.StatusOK, summary)
}

// Helper functions for reports

func (rc *ReportController) appointmentsBetween(ctx context.Context, workspaceID uuid.UUID, start, end time.Time) ([]models.Appointment, error) {
	from, to := start.UTC(), end.UTC()
	return rc.Store.Appointments.List(ctx, workspaceID, repository.AppointmentFilter{From: &from, To: &to})
}

func within(appts []models.Appointment, start, end time.Time) []models.Appointment {
	var out []models.Appointment
	for _, a := range appts {
		if !a.StartTime.Before(start) && a.StartTime.Before(end) {
			out = append(out, a)
		}
	}
	return out
}

func revenue(appts []models.Appointment, start, end time.Time) int64 {
	var total int64
	for i, a := range appts {
		if a.Status == models.StatusConfirmed && !a.StartTime.Before(start) && a.StartTime.Before(end) {
			total += price(&appts[i])
		}
	}
	return total
}

func (rc *ReportController) getQuarterStart(date time.Time) time.Time {
	quarter := (int(date.Month())-1)/3 + 1
	startMonth := time.Month((quarter-1)*3 + 1)
	return time.Date(date.Year(), startMonth, 1, 0, 0, 0, 0, date.Location())
}

func (rc *ReportController) calculateGrowthPercentage(current, previous int64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return float64(current-previous) / float64(previous) * 100
}

func (rc *ReportController) getTopServices(appts []models.Appointment, limit int) []ServiceSummary {
	byService := map[uuid.UUID]*ServiceSummary{}
	for i, a := range appts {
		if a.Status == models.StatusCancelled || a.Service == nil {
			continue
		}
		s, ok := byService[a.ServiceID]
		if !ok {
			s = &ServiceSummary{Name: a.Service.Name}
			byService[a.ServiceID] = s
		}
		s.Count++
		if a.Status == models.StatusConfirmed {
			s.Revenue += price(&appts[i])
		}
	}
	out := make([]ServiceSummary, 0, len(byService))
	for _, s := range byService {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// getTopCustomers groups by email, falling back to the name for walk-ins.
func (rc *ReportController) getTopCustomers(appts []models.Appointment, limit int) []CustomerSummary {
	byCustomer := map[string]*CustomerSummary{}
	for i, a := range appts {
		if a.Status != models.StatusConfirmed {
			continue
		}
		key := a.CustomerEmail
		if key == "" {
			key = strings.ToLower(a.CustomerName)
		}
		s, ok := byCustomer[key]
		if !ok {
			s = &CustomerSummary{Name: a.CustomerName}
			byCustomer[key] = s
		}
		s.Visits++
		s.Spent += price(&appts[i])
	}
	out := make([]CustomerSummary, 0, len(byCustomer))
	for _, s := range byCustomer {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Visits != out[j].Visits {
			return out[i].Visits > out[j].Visits
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (rc *ReportController) getQuickStatistics(year []models.Appointment, monthsElapsed int) QuickStatistics {
	var stats QuickStatistics
	var cancelled, confirmed int
	var value int64
	for i, a := range year {
		stats.TotalAppointments++
		switch a.Status {
		case models.StatusCancelled:
			cancelled++
		case models.StatusConfirmed:
			confirmed++
			value += price(&year[i])
		}
	}
	if stats.TotalAppointments > 0 {
		stats.CancellationRate = float64(cancelled) / float64(stats.TotalAppointments) * 100
	}
	if monthsElapsed > 0 {
		stats.AvgMonthlyVisits = float64(confirmed) / float64(monthsElapsed)
	}
	if confirmed > 0 {
		stats.AvgBookingValue = value / int64(confirmed)
	}
	return stats
}
