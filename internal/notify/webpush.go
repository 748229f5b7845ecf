// Package notify delivers proactive coach messages to the user's browsers
// through Web Push.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"

	"goalcoach/internal/models"
)

// Payload is what the service worker receives.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type Subscriptions interface {
	ListPushSubscriptions(ctx context.Context, userID int) ([]models.PushSubscription, error)
	DropPushEndpoint(ctx context.Context, endpoint string) error
}

type Keys struct {
	PublicKey  string
	PrivateKey string
	Subject    string
}

type WebPush struct {
	subs Subscriptions
	keys Keys
	// HTTPClient overrides the client used to reach push services.
	HTTPClient webpush.HTTPClient
}

func New(subs Subscriptions, keys Keys) *WebPush {
	return &WebPush{subs: subs, keys: keys}
}

// Configured reports whether all three VAPID settings are present.
func (w *WebPush) Configured() bool {
	return w.keys.PublicKey != "" && w.keys.PrivateKey != "" && w.keys.Subject != ""
}

func (w *WebPush) PublicKey() string { return w.keys.PublicKey }

func (w *WebPush) options() *webpush.Options {
	return &webpush.Options{
		HTTPClient:      w.HTTPClient,
		Subscriber:      w.keys.Subject,
		VAPIDPublicKey:  w.keys.PublicKey,
		VAPIDPrivateKey: w.keys.PrivateKey,
		TTL:             30,
	}
}

// SendToUser pushes payload to every subscription of the user. Subscriptions
// the push service reports as gone (404, 410) or as signed with other keys
// (403) are removed so the client re-subscribes.
func (w *WebPush) SendToUser(ctx context.Context, userID int, payload Payload) error {
	if !w.Configured() {
		return nil
	}

	subs, err := w.subs.ListPushSubscriptions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	opts := w.options()
	sent, failed := 0, 0
	for _, sub := range subs {
		resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.P256dh, Auth: sub.Auth},
		}, opts)
		if err != nil {
			log.Printf("[push] send to user %d failed: %v", userID, err)
			failed++
			continue
		}
		status := resp.StatusCode
		if status >= 400 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			log.Printf("[push] service returned %d for user %d: %s", status, userID, msg)
		}
		resp.Body.Close()

		switch {
		case status == http.StatusGone || status == http.StatusNotFound || status == http.StatusForbidden:
			if err := w.subs.DropPushEndpoint(ctx, sub.Endpoint); err != nil {
				log.Printf("[push] drop endpoint: %v", err)
			}
			failed++
		case status >= 400:
			failed++
		default:
			sent++
		}
	}

	log.Printf("[push] user %d: subscriptions=%d sent=%d failed=%d", userID, len(subs), sent, failed)
	if sent == 0 && failed > 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failed)
	}
	return nil
}

// Notify is the fire-and-forget form used by the scheduler.
func (w *WebPush) Notify(ctx context.Context, userID int, title, body string) {
	if err := w.SendToUser(ctx, userID, Payload{Title: title, Body: body, Tag: "coach"}); err != nil {
		log.Printf("[push] notify user %d: %v", userID, err)
	}
}
