// services/reminder_service.go
package services

import (
	"context"
	"time"

	"bookingdesk-backend/metrics"
	"bookingdesk-backend/models"
	"bookingdesk-backend/repository"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type ReminderNotifier interface {
	Reminder(ctx context.Context, ws *models.Workspace, a *models.Appointment)
}

// ReminderService periodically reminds customers of confirmed appointments
// starting within the lead window. Each appointment is reminded once.
type ReminderService struct {
	appointments repository.AppointmentRepository
	notifier     ReminderNotifier
	lead         time.Duration
	logger       *zap.Logger
	cron         *cron.Cron
	now          func() time.Time
}

func NewReminderService(appointments repository.AppointmentRepository, notifier ReminderNotifier, lead time.Duration, logger *zap.Logger) *ReminderService {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	return &ReminderService{
		appointments: appointments,
		notifier:     notifier,
		lead:         lead,
		logger:       logger,
		now:          time.Now,
	}
}

// StartScheduler runs the reminder pass on the given cron spec.
func (s *ReminderService) StartScheduler(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := s.Run(context.Background()); err != nil {
			s.logger.Error("reminder run failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminder scheduler started", zap.String("spec", spec), zap.Duration("lead", s.lead))
	return nil
}

// Stop halts the scheduler and waits for a running pass to finish.
func (s *ReminderService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// Run sends due reminders once and returns how many appointments were reminded.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	started := s.now()
	now := started.UTC()
	due, err := s.appointments.ListStartingBetween(ctx, now, now.Add(s.lead))
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		a := &due[i]
		meta, err := a.Meta()
		if err != nil {
			s.logger.Warn("unreadable appointment metadata", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			continue
		}
		if meta.ReminderSentAt != nil || a.Workspace == nil {
			continue
		}

		// stamped first: at most one reminder, none once cancelled
		claimed, err := s.appointments.MarkReminderSent(ctx, a.ID, now)
		if err != nil {
			s.logger.Error("failed to stamp reminder", zap.String("appointment_id", a.ID.String()), zap.Error(err))
			continue
		}
		if !claimed {
			continue
		}
		s.notifier.Reminder(ctx, a.Workspace, a)
		sent++
	}

	metrics.RecordReminderRun(time.Since(started), sent)
	s.logger.Info("reminder run completed", zap.Int("due", len(due)), zap.Int("sent", sent))
	return sent, nil
}
