package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gradflow/core/internal/models"
	"github.com/gradflow/core/internal/modules/defense"
	"github.com/gradflow/core/internal/modules/milestone"
	"github.com/gradflow/core/internal/modules/notification"
	pkgcron "github.com/gradflow/core/internal/pkg/cron"
	"github.com/gradflow/core/internal/pkg/mail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defenseReminderWindow = 24 * time.Hour

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, notifier *notification.Service, mailer *mail.Sender, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")
	defenseSvc := defense.NewService(db, notifier)
	milestoneSvc := milestone.NewService(db, notifier)

	sched.Register(pkgcron.Job{
		Name:        "defense_reminders",
		Description: "Notify participants of defenses starting within 24 hours",
		Interval:    30 * time.Minute,
		Fn: func(ctx context.Context) error {
			due, err := defenseSvc.UpcomingUnreminded(defenseReminderWindow)
			if err != nil {
				cronLogger.Warn("loading upcoming defenses failed", zap.Error(err))
				return err
			}
			for i := range due {
				d := &due[i]
				if err := remindDefense(ctx, db, defenseSvc, notifier, mailer, d); err != nil {
					cronLogger.Warn("defense reminder failed",
						zap.String("defense_id", d.ID), zap.Error(err))
					continue
				}
				if err := defenseSvc.MarkReminded(d.ID); err != nil {
					cronLogger.Warn("marking reminder sent failed",
						zap.String("defense_id", d.ID), zap.Error(err))
				}
			}
			if len(due) > 0 {
				cronLogger.Info(fmt.Sprintf("sent %d defense reminders", len(due)))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "overdue_milestones",
		Description: "Flag pending milestones past their due date",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := milestoneSvc.MarkOverdue(ctx)
			if err != nil {
				cronLogger.Warn("overdue milestone sweep failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("flagged %d milestones as overdue", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_sessions",
		Description: "Delete expired and revoked login sessions",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7)
			result := db.Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", time.Now(), cutoff).
				Delete(&models.UserSession{})
			if result.Error != nil {
				cronLogger.Warn("session cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			if result.RowsAffected > 0 {
				cronLogger.Info(fmt.Sprintf("deleted %d stale sessions", result.RowsAffected))
			}
			return nil
		},
	})
}

// remindDefense pushes an in-app notification to the student and each
// committee member, plus an email to the student when mail is enabled.
func remindDefense(ctx context.Context, db *gorm.DB, svc *defense.Service, notifier *notification.Service, mailer *mail.Sender, d *models.DefenseModel) error {
	p, err := svc.Project(d.ProjectID)
	if err != nil {
		return err
	}
	when := d.ScheduledAt.Format("2006-01-02 15:04")
	msg := fmt.Sprintf("Reminder: defense for %q starts on %s in room %s.", p.Title, when, d.Room)

	recipients := make([]string, 0, len(d.Committee)+1)
	if p.Student != nil && p.Student.UserID != "" {
		recipients = append(recipients, p.Student.UserID)
	}
	for _, advisorID := range d.Committee {
		var adv models.AdvisorModel
		if err := db.First(&adv, "id = ?", advisorID).Error; err == nil && adv.UserID != "" {
			recipients = append(recipients, adv.UserID)
		}
	}
	for _, uid := range recipients {
		_ = notifier.Notify(ctx, models.NotificationModel{
			Title:         "Defense reminder",
			Message:       msg,
			Type:          "defense",
			Priority:      "high",
			RecipientType: models.RecipientUser,
			RecipientID:   uid,
			ActionURL:     "/defenses/" + d.ID,
			ActionText:    "View details",
		})
	}

	if p.Student != nil && p.Student.Email != "" {
		return mailer.SendDefenseReminder(p.Student.Email, mail.DefenseReminderData{
			Name:         p.Student.Name,
			ProjectTitle: p.Title,
			Room:         d.Room,
			ScheduledAt:  d.ScheduledAt,
		})
	}
	return nil
}
