package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"laundry-booking-backend/internal/model"
	"laundry-booking-backend/internal/testutil"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func okResponse() *http.Response {
	return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(bytes.NewReader(nil))}
}

func TestSubscriptionsForParty(t *testing.T) {
	gdb := testutil.NewDB(t)
	d := NewDispatcher(gdb, &webpush.Options{})

	require.NoError(t, gdb.Create(&model.User{ID: "u1", Name: "ann", Party: "GroundFloor", PasswordHash: "x"}).Error)
	require.NoError(t, gdb.Create(&model.User{ID: "u2", Name: "ben", Party: "GroundFloor", PasswordHash: "x"}).Error)
	require.NoError(t, gdb.Create(&model.User{ID: "u3", Name: "cho", Party: "FirstFloor", PasswordHash: "x"}).Error)

	require.NoError(t, gdb.Create(&model.PushSubscription{Endpoint: "https://push/1", P256DH: "k", Auth: "a", UserID: "u1"}).Error)
	require.NoError(t, gdb.Create(&model.PushSubscription{Endpoint: "https://push/2", P256DH: "k", Auth: "a", UserID: "u1"}).Error)
	require.NoError(t, gdb.Create(&model.PushSubscription{Endpoint: "https://push/3", P256DH: "k", Auth: "a", UserID: "u2"}).Error)
	require.NoError(t, gdb.Create(&model.PushSubscription{Endpoint: "https://push/4", P256DH: "k", Auth: "a", UserID: "u3"}).Error)

	subs, err := d.SubscriptionsForParty(context.Background(), "GroundFloor")
	require.NoError(t, err)
	assert.Len(t, subs, 3, "two devices for u1 plus one for u2, none from the other party")
}

func TestMulticastCountsOutcomes(t *testing.T) {
	gdb := testutil.NewDB(t)
	d := NewDispatcher(gdb, &webpush.Options{})

	var delivered []string
	d.SetSender(&mockSender{SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		delivered = append(delivered, sub.Endpoint)
		if sub.Endpoint == "https://push/bad" {
			return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(bytes.NewReader(nil))}, nil
		}
		return okResponse(), nil
	}})

	subs := []model.PushSubscription{
		{Endpoint: "https://push/ok", P256DH: "k", Auth: "a", UserID: "u1"},
		{Endpoint: "https://push/bad", P256DH: "k", Auth: "a", UserID: "u1"},
	}
	result := d.Multicast(context.Background(), subs, Message{Title: "t", Body: "b"})
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.Len(t, delivered, 2, "an individual failure must not abort the multicast")
}

func TestMulticastDeletesExpiredSubscription(t *testing.T) {
	gdb := testutil.NewDB(t)
	d := NewDispatcher(gdb, &webpush.Options{})

	require.NoError(t, gdb.Create(&model.PushSubscription{Endpoint: "https://push/gone", P256DH: "k", Auth: "a", UserID: "u1"}).Error)

	d.SetSender(&mockSender{SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusGone, Body: io.NopCloser(bytes.NewReader(nil))}, nil
	}})

	subs := []model.PushSubscription{{Endpoint: "https://push/gone", P256DH: "k", Auth: "a", UserID: "u1"}}
	result := d.Multicast(context.Background(), subs, Message{Title: "t", Body: "b"})
	assert.Equal(t, 1, result.FailureCount)

	var count int64
	gdb.Model(&model.PushSubscription{}).Count(&count)
	assert.Zero(t, count, "a 410 response must remove the subscription")
}

// SQL-level check of the party join, against a mocked connection.
func TestSubscriptionsForPartySQL(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{})
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT "push_subscriptions".* FROM "push_subscriptions" JOIN users ON users.id = push_subscriptions.user_id WHERE users.party = $1`)).
		WithArgs("GroundFloor").
		WillReturnRows(sqlmock.NewRows([]string{"endpoint", "p256dh", "auth", "user_id"}).
			AddRow("https://push/1", "k", "a", "u1"))

	d := NewDispatcher(gormDB, &webpush.Options{})
	subs, err := d.SubscriptionsForParty(context.Background(), "GroundFloor")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/1", subs[0].Endpoint)
	assert.NoError(t, mock.ExpectationsWereMet())
}
