package controllers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

type DashboardOverview struct {
	TodayAppointments    int                   `json:"todayAppointments"`
	PendingAppointments  int                   `json:"pendingAppointments"`
	MonthlyAppointments  int                   `json:"monthlyAppointments"`
	MonthlyRevenueCents  int64                 `json:"monthlyRevenueCents"`
	UpcomingAppointments []UpcomingAppointment `json:"upcomingAppointments"`
}

type UpcomingAppointment struct {
	ID           string `json:"id"`
	CustomerName string `json:"customerName"`
	Service      string `json:"service"`
	TeamMember   string `json:"teamMember,omitempty"`
	Status       string `json:"status"`
	When         string `json:"when"` // e.g. "Today 3:00 PM", "In 3 days"
}

type DashboardController struct {
	*Deps
}

// GetDashboardOverview summarises the workspace's calendar in its own timezone.
func (dc *DashboardController) GetDashboardOverview(c *gin.Context) {
	ws, ok := dc.workspace(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	now := utils.InZone(time.Now(), ws.Timezone)
	monthStart, monthEnd := utils.MonthBounds(now)
	dayStart := utils.BeginningOfDay(now)
	dayEnd := dayStart.AddDate(0, 0, 1)

	from, to := monthStart.UTC(), monthEnd.UTC()
	month, err := dc.Store.Appointments.List(ctx, ws.ID, repository.AppointmentFilter{From: &from, To: &to})
	if err != nil {
		dc.respondError(c, err, "")
		return
	}

	var overview DashboardOverview
	for i := range month {
		a := &month[i]
		if a.Status == models.StatusCancelled {
			continue
		}
		overview.MonthlyAppointments++
		if a.Status == models.StatusConfirmed {
			overview.MonthlyRevenueCents += price(a)
		}
		if !a.StartTime.Before(dayStart) && a.StartTime.Before(dayEnd) {
			overview.TodayAppointments++
		}
	}

	pending, err := dc.Store.Appointments.List(ctx, ws.ID, repository.AppointmentFilter{Status: models.StatusPending})
	if err != nil {
		dc.respondError(c, err, "")
		return
	}
	overview.PendingAppointments = len(pending)

	// Upcoming appointments (next 7 days, at most 5)
	upFrom, upTo := now.UTC(), now.AddDate(0, 0, 7).UTC()
	upcoming, err := dc.Store.Appointments.List(ctx, ws.ID, repository.AppointmentFilter{From: &upFrom, To: &upTo})
	if err != nil {
		dc.respondError(c, err, "")
		return
	}
	overview.UpcomingAppointments = []UpcomingAppointment{}
	for i := range upcoming {
		a := &upcoming[i]
		if a.Status == models.StatusCancelled {
			continue
		}
		item := UpcomingAppointment{
			ID:           a.ID.String(),
			CustomerName: a.CustomerName,
			Status:       string(a.Status),
			When:         relativeDay(now, utils.InZone(a.StartTime, ws.Timezone)),
		}
		if a.Service != nil {
			item.Service = a.Service.Name
		}
		if a.TeamMember != nil {
			item.TeamMember = a.TeamMember.Name
		}
		overview.UpcomingAppointments = append(overview.UpcomingAppointments, item)
		if len(overview.UpcomingAppointments) >= 5 {
			break
		}
	}

	c.JSON(http.StatusOK, overview)
}

// price is the variant price when booked with one, else the service price.
func price(a *models.Appointment) int64 {
	if a.Service == nil {
		return 0
	}
	if a.VariantID != nil {
		if v, ok := a.Service.Variant(*a.VariantID); ok {
			return v.PriceCents
		}
	}
	return a.Service.PriceCents
}

func relativeDay(now, t time.Time) string {
	days := int(math.Round(utils.BeginningOfDay(t).Sub(utils.BeginningOfDay(now)).Hours() / 24))
	switch days {
	case 0:
		return "Today " + t.Format("3:04 PM")
	case 1:
		return "Tomorrow " + t.Format("3:04 PM")
	default:
		return fmt.Sprintf("In %d days", days)
	}
}
