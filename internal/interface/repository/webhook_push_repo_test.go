package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"jeeptrack-service/internal/domain/entity"
	"jeeptrack-service/pkg/logger"
)

func TestWebhookPushSend(t *testing.T) {
	c := qt.New(t)
	var got entity.PushMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.Check(r.URL.Path, qt.Equals, "/api/v1/push/send")
		c.Check(r.Header.Get("Authorization"), qt.Equals, "Bearer secret")
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"success":true,"data":{"messageId":"m-1","status":"queued"}}`))
	}))
	defer srv.Close()

	repo := NewWebhookPushRepository(logger.NewNopLogger(), srv.URL, "secret", time.Second)
	id, err := repo.Send(context.Background(), &entity.PushMessage{NotificationID: "n1", PassengerID: "p1", Title: "hi"})
	c.Assert(err, qt.IsNil)
	c.Assert(id, qt.Equals, "m-1")
	c.Assert(got.PassengerID, qt.Equals, "p1")
}

func TestWebhookPushFailure(t *testing.T) {
	c := qt.New(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"success":false}`))
	}))
	defer srv.Close()

	repo := NewWebhookPushRepository(logger.NewNopLogger(), srv.URL, "", time.Second)
	_, err := repo.Send(context.Background(), &entity.PushMessage{NotificationID: "n1", PassengerID: "p1", Title: "hi"})
	c.Assert(err, qt.ErrorMatches, "push gateway returned status 502.*")

	_, err = repo.Send(context.Background(), &entity.PushMessage{PassengerID: "p1"})
	c.Assert(err, qt.Not(qt.IsNil))
}
