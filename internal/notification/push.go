package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
)

// Sender defines the interface for sending a single web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real implementation using the webpush library.
type WebPushSender struct{}

func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Message is the payload the service worker unpacks.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	URL   string `json:"url,omitempty"`
}

// Result summarizes one multicast attempt. Callers treat any result as
// "attempted": even all-failures is not a reason to retry.
type Result struct {
	SuccessCount int
	FailureCount int
}

// Dispatcher resolves party membership to device subscriptions and performs
// best-effort multicast delivery.
type Dispatcher struct {
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewDispatcher creates a dispatcher using the real web push sender.
func NewDispatcher(db *gorm.DB, webpushOptions *webpush.Options) *Dispatcher {
	return &Dispatcher{db: db, webpush: webpushOptions, sender: &WebPushSender{}}
}

// SetSender swaps the sender; used by tests.
func (d *Dispatcher) SetSender(s Sender) { d.sender = s }

// SubscriptionsForParty collects the push subscriptions of every user in the
// party. Endpoints are unique by primary key, so the result is already
// deduplicated across users and devices.
func (d *Dispatcher) SubscriptionsForParty(ctx context.Context, party string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := d.db.WithContext(ctx).
		Joins("JOIN users ON users.id = push_subscriptions.user_id").
		Where("users.party = ?", party).
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("notification: load subscriptions for %s: %w", party, err)
	}
	return subs, nil
}

// Multicast delivers one message to every subscription. Individual failures
// are logged and counted, never fatal; expired subscriptions (HTTP 410) are
// deleted on the spot.
func (d *Dispatcher) Multicast(ctx context.Context, subs []model.PushSubscription, msg Message) Result {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("notification: marshal payload: %v", err)
		return Result{FailureCount: len(subs)}
	}

	var result Result
	for _, sub := range subs {
		if d.send(ctx, sub, payload) {
			result.SuccessCount++
		} else {
			result.FailureCount++
		}
	}
	return result
}

func (d *Dispatcher) send(ctx context.Context, sub model.PushSubscription, payload []byte) bool {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := d.sender.Send(payload, wpSub, d.webpush)
	if err != nil {
		log.Printf("notification: send to %s: %v", sub.Endpoint, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		log.Printf("notification: subscription %s expired, deleting", sub.Endpoint)
		if err := d.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("notification: delete expired subscription %s: %v", sub.Endpoint, err)
		}
		return false
	}

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
