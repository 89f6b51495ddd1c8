package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"slacksum/internal/database"
	"slacksum/internal/models"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SubscriptionStore is the subscription lookup Notify fans out over.
// Implemented over Mongo in production and by fakes in tests.
type SubscriptionStore interface {
	Find(ctx context.Context, userID, deviceID string) ([]models.PushSubscription, error)
	Remove(ctx context.Context, userID, deviceID string) error
}

// PushSender sends one Web Push message to one subscription. Implemented
// by webpush-go in production and by fakes in tests.
type PushSender func(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)

// PushService manages Web Push subscriptions and notification fan-out
type PushService struct {
	collection      *mongo.Collection
	subs            SubscriptionStore
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
	sender          PushSender
	metrics         *Metrics
}

// NewPushService creates a push service using VAPID keys for delivery
func NewPushService(db *database.MongoDB, vapidPublicKey, vapidPrivateKey, subscriber string, metrics *Metrics) *PushService {
	collection := db.Collection(database.CollectionPushSubscriptions)
	return &PushService{
		collection:      collection,
		subs:            &mongoSubscriptionStore{collection: collection},
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
		sender: func(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
			return webpush.SendNotification(payload, sub, opts)
		},
		metrics: metrics,
	}
}

// SetSender replaces the delivery function (used in tests)
func (s *PushService) SetSender(sender PushSender) {
	s.sender = sender
}

// Enabled reports whether VAPID keys are configured
func (s *PushService) Enabled() bool {
	return s.vapidPublicKey != "" && s.vapidPrivateKey != ""
}

// Subscribe upserts a push subscription for a (user, device) pair.
// Re-subscribing from the same device replaces the old endpoint.
func (s *PushService) Subscribe(ctx context.Context, userID string, req models.SubscribeRequest) error {
	now := time.Now().UTC()
	sub := models.PushSubscription{
		UserID:    userID,
		DeviceID:  req.DeviceID,
		Endpoint:  req.Endpoint,
		Keys:      req.Keys,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"userId": userID, "deviceId": req.DeviceID},
		sub,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}

	log.Printf("✅ Push subscription registered for user %s (device %s)", userID, req.DeviceID)
	return nil
}

// Unsubscribe removes the subscription for a (user, device) pair
func (s *PushService) Unsubscribe(ctx context.Context, userID, deviceID string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"userId": userID, "deviceId": deviceID})
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// Status reports whether the given device has an active subscription and
// how many devices the user has registered in total.
func (s *PushService) Status(ctx context.Context, userID, deviceID string) (*models.PushStatusResponse, error) {
	total, err := s.collection.CountDocuments(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("failed to count push subscriptions: %w", err)
	}

	subscribed := false
	if deviceID != "" {
		n, err := s.collection.CountDocuments(ctx, bson.M{"userId": userID, "deviceId": deviceID})
		if err != nil {
			return nil, fmt.Errorf("failed to check push subscription: %w", err)
		}
		subscribed = n > 0
	}

	return &models.PushStatusResponse{
		HasSubscription: subscribed,
		DeviceCount:     int(total),
	}, nil
}

// Notify fans a notification out to the user's devices. When deviceID is
// non-empty only that device is targeted. Subscriptions rejected with
// 404 or 410 are expired and get deleted. A delivery failure never fails
// the operation as a whole; the report carries the counts.
func (s *PushService) Notify(ctx context.Context, userID, deviceID string, payload models.NotificationPayload) (*models.DeliveryReport, error) {
	subs, err := s.subs.Find(ctx, userID, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions: %w", err)
	}

	report := &models.DeliveryReport{Targeted: len(subs)}
	if len(subs) == 0 {
		return report, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode notification payload: %w", err)
	}

	// Deliveries are independent, so fan out in parallel
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, sub := range subs {
		sub := sub
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.send(ctx, body, sub); err != nil {
				var expired *expiredSubscriptionError
				if errors.As(err, &expired) {
					s.removeExpired(ctx, sub)
					if s.metrics != nil {
						s.metrics.RecordPushDelivery("expired")
					}
					return
				}
				log.Printf("⚠️  Push delivery failed for device %s: %v", sub.DeviceID, err)
				if s.metrics != nil {
					s.metrics.RecordPushDelivery("failed")
				}
				return
			}
			mu.Lock()
			report.Delivered++
			mu.Unlock()
			if s.metrics != nil {
				s.metrics.RecordPushDelivery("delivered")
			}
		}()
	}
	wg.Wait()

	return report, nil
}

// expiredSubscriptionError marks a push endpoint the service rejected as gone
type expiredSubscriptionError struct {
	statusCode int
}

func (e *expiredSubscriptionError) Error() string {
	return fmt.Sprintf("subscription expired (status %d)", e.statusCode)
}

func (s *PushService) send(ctx context.Context, body []byte, sub models.PushSubscription) error {
	resp, err := s.sender(body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.subscriber,
		VAPIDPublicKey:  s.vapidPublicKey,
		VAPIDPrivateKey: s.vapidPrivateKey,
		TTL:             60,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return &expiredSubscriptionError{statusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	return nil
}

func (s *PushService) removeExpired(ctx context.Context, sub models.PushSubscription) {
	if err := s.subs.Remove(ctx, sub.UserID, sub.DeviceID); err != nil {
		log.Printf("⚠️  Failed to remove expired subscription for device %s: %v", sub.DeviceID, err)
		return
	}
	log.Printf("🔌 Removed expired push subscription for user %s (device %s)", sub.UserID, sub.DeviceID)
}

type mongoSubscriptionStore struct {
	collection *mongo.Collection
}

func (m *mongoSubscriptionStore) Find(ctx context.Context, userID, deviceID string) ([]models.PushSubscription, error) {
	filter := bson.M{"userId": userID}
	if deviceID != "" {
		filter["deviceId"] = deviceID
	}

	cursor, err := m.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var subs []models.PushSubscription
	if err := cursor.All(ctx, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (m *mongoSubscriptionStore) Remove(ctx context.Context, userID, deviceID string) error {
	_, err := m.collection.DeleteOne(ctx, bson.M{"userId": userID, "deviceId": deviceID})
	return err
}
