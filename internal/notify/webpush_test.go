package notify_test

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"

	"goalcoach/internal/models"
	"goalcoach/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSubs struct {
	subs    []models.PushSubscription
	dropped []string
}

func (f *fakeSubs) ListPushSubscriptions(_ context.Context, userID int) ([]models.PushSubscription, error) {
	var out []models.PushSubscription
	for _, s := range f.subs {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubs) DropPushEndpoint(_ context.Context, endpoint string) error {
	f.dropped = append(f.dropped, endpoint)
	return nil
}

func browserSubscription(t *testing.T, userID int, endpoint string) models.PushSubscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	auth := make([]byte, 16)
	_, err = rand.Read(auth)
	require.NoError(t, err)
	return models.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(auth),
	}
}

func vapidKeys(t *testing.T) notify.Keys {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return notify.Keys{PublicKey: pub, PrivateKey: priv, Subject: "coach@example.com"}
}

func TestSendToUserDeliversAndDropsGoneEndpoints(t *testing.T) {
	var delivered atomic.Int32
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered.Add(1)
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer live.Close()
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	subs := &fakeSubs{subs: []models.PushSubscription{
		browserSubscription(t, 1, live.URL+"/push/a"),
		browserSubscription(t, 1, gone.URL+"/push/b"),
		browserSubscription(t, 2, live.URL+"/push/c"),
	}}
	w := notify.New(subs, vapidKeys(t))

	err := w.SendToUser(context.Background(), 1, notify.Payload{Title: "Coach", Body: "Morning!"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), delivered.Load())
	assert.Equal(t, []string{gone.URL + "/push/b"}, subs.dropped)
}

func TestSendToUserFailsWhenNothingDelivered(t *testing.T) {
	gone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer gone.Close()

	subs := &fakeSubs{subs: []models.PushSubscription{browserSubscription(t, 1, gone.URL)}}
	err := notify.New(subs, vapidKeys(t)).SendToUser(context.Background(), 1, notify.Payload{Title: "x"})
	assert.Error(t, err)
}

func TestUnconfiguredIsNoop(t *testing.T) {
	subs := &fakeSubs{subs: []models.PushSubscription{{UserID: 1, Endpoint: "http://127.0.0.1:1"}}}
	w := notify.New(subs, notify.Keys{})

	assert.False(t, w.Configured())
	assert.NoError(t, w.SendToUser(context.Background(), 1, notify.Payload{Title: "x"}))
	assert.Empty(t, subs.dropped)
}
