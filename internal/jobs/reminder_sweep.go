package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"slacksum/internal/database"
	"slacksum/internal/models"
	"slacksum/internal/services"

	"github.com/go-co-op/gocron/v2"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ReminderSweep periodically finds reminders that have come due and pushes
// a notification to the owner's devices. Each reminder is notified at most
// once: a successful sweep stamps notifiedAt.
type ReminderSweep struct {
	reminders *mongo.Collection
	push      *services.PushService
	scheduler gocron.Scheduler
	cronExpr  string
}

// NewReminderSweep creates the sweep job. The cron expression is validated
// up front; the scheduler runs in UTC.
func NewReminderSweep(db *database.MongoDB, push *services.PushService, cronExpr string) (*ReminderSweep, error) {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return nil, fmt.Errorf("invalid reminder sweep cron %q: %w", cronExpr, err)
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ReminderSweep{
		reminders: db.Collection(database.CollectionReminders),
		push:      push,
		scheduler: scheduler,
		cronExpr:  cronExpr,
	}, nil
}

// Start schedules and starts the sweep
func (s *ReminderSweep) Start() error {
	_, err := s.scheduler.NewJob(
		gocron.CronJob(s.cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
			defer cancel()
			if err := s.Sweep(ctx); err != nil {
				log.Printf("⚠️  Reminder sweep failed: %v", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule reminder sweep: %w", err)
	}

	s.scheduler.Start()
	log.Printf("⏰ Reminder sweep scheduled (%s, UTC)", s.cronExpr)
	return nil
}

// Stop shuts the scheduler down
func (s *ReminderSweep) Stop() error {
	log.Println("🛑 Stopping reminder sweep...")
	return s.scheduler.Shutdown()
}

// Sweep runs one pass: load candidate reminders, notify the ones past due,
// and stamp them so they are never notified twice.
func (s *ReminderSweep) Sweep(ctx context.Context) error {
	cursor, err := s.reminders.Find(ctx, bson.M{
		"isCompleted": false,
		"notifiedAt":  bson.M{"$exists": false},
	})
	if err != nil {
		return fmt.Errorf("failed to load candidate reminders: %w", err)
	}

	var candidates []models.Reminder
	if err := cursor.All(ctx, &candidates); err != nil {
		return fmt.Errorf("failed to decode candidate reminders: %w", err)
	}

	now := time.Now().UTC()
	notified := 0

	for _, reminder := range candidates {
		due, err := reminder.DueAt()
		if err != nil {
			// Unparseable due date: skip, it will never come due on its own
			log.Printf("⚠️  Skipping reminder %s: %v", reminder.ID, err)
			continue
		}
		if due.After(now) {
			continue
		}

		if err := s.notifyDue(ctx, reminder); err != nil {
			log.Printf("⚠️  Failed to notify reminder %s: %v", reminder.ID, err)
			continue
		}
		notified++
	}

	if notified > 0 {
		log.Printf("⏰ Reminder sweep notified %d reminder(s)", notified)
	}
	return nil
}

func (s *ReminderSweep) notifyDue(ctx context.Context, reminder models.Reminder) error {
	body := reminder.Description
	if body == "" {
		body = fmt.Sprintf("Due %s at %s", reminder.DueDate, reminder.DueTime)
	}
	if reminder.ChannelName != "" {
		body = fmt.Sprintf("%s (#%s)", body, reminder.ChannelName)
	}

	if s.push != nil && s.push.Enabled() {
		report, err := s.push.Notify(ctx, reminder.UserID, "", models.NotificationPayload{
			Title: "Reminder: " + reminder.Title,
			Body:  body,
		})
		if err != nil {
			return err
		}
		log.Printf("⏰ Reminder %s delivered to %d/%d device(s)", reminder.ID, report.Delivered, report.Targeted)
	}

	// Stamp even when push is disabled so the sweep doesn't retry forever
	now := time.Now().UTC()
	_, err := s.reminders.UpdateOne(ctx,
		bson.M{"reminderId": reminder.ID},
		bson.M{"$set": bson.M{"notifiedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("failed to stamp notifiedAt: %w", err)
	}
	return nil
}
