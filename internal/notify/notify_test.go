package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	name string
	err  error
	mu   sync.Mutex
	got  []Notice
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(_ context.Context, n Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, n)
	return s.err
}

type panickingSink struct{}

func (panickingSink) Name() string { return "panicky" }

func (panickingSink) Send(context.Context, Notice) error { panic("boom") }

func sampleNotice() Notice {
	return Notice{
		Email:      "buyer@example.com",
		LicenseKey: "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345",
		OrderNo:    "XP20260101120000123456",
		DeviceID:   "device-1",
		IssuedAt:   time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_FansOutAndReportsFailures(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("smtp down")}

	var mu sync.Mutex
	failed := map[string]int{}
	d := NewDispatcher(time.Second, func(sink string, err error) {
		mu.Lock()
		failed[sink]++
		mu.Unlock()
	}, ok, failing, panickingSink{})

	d.Dispatch(sampleNotice())
	d.Wait()

	require.Len(t, ok.got, 1)
	assert.Equal(t, "XP20260101120000123456", ok.got[0].OrderNo)
	require.Len(t, failing.got, 1)
	assert.Equal(t, map[string]int{"failing": 1, "panicky": 1}, failed)
}

func TestLogSink_NeverFails(t *testing.T) {
	assert.NoError(t, LogSink{}.Send(context.Background(), sampleNotice()))
}

func TestWebhookSink_SignsPayload(t *testing.T) {
	var (
		gotBody []byte
		gotSig  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "s3cret")
	require.NoError(t, sink.Send(context.Background(), sampleNotice()))

	var payload WebhookPayload
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, "license.issued", payload.Event)
	assert.Equal(t, "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345", payload.LicenseKey)
	assert.Equal(t, "2026-01-01T12:00:00Z", payload.IssuedAt)
	assert.Equal(t, Sign(gotBody, "s3cret"), gotSig)
}

func TestWebhookSink_RetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "")
	sink.retryDelays = []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond}

	require.NoError(t, sink.Send(context.Background(), sampleNotice()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookSink_GivesUp(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "")
	sink.retryDelays = []time.Duration{time.Millisecond, time.Millisecond}

	err := sink.Send(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestWebhookSink_StopsOnContextCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := NewWebhookSink(srv.URL, "")
	sink.retryDelays = []time.Duration{time.Hour, time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := sink.Send(ctx, sampleNotice())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBrevoSink_SendsLicenseEmail(t *testing.T) {
	var (
		gotKey  string
		gotPath string
		payload map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messageId":"<test@smtp-relay>"}`))
	}))
	defer srv.Close()

	sink := NewBrevoSink("xkeysib-test", "noreply@example.com", "License Server", "XPlayer", srv.URL)
	require.NoError(t, sink.Send(context.Background(), sampleNotice()))

	assert.Equal(t, "xkeysib-test", gotKey)
	assert.Equal(t, "/smtp/email", gotPath)
	assert.Equal(t, "XPlayer - Your License Key", payload["subject"])
	assert.Contains(t, payload["htmlContent"], "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345")
	assert.Contains(t, payload["textContent"], "XP20260101120000123456")
}

func TestBrevoSink_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"unauthorized","message":"Key not found"}`))
	}))
	defer srv.Close()

	sink := NewBrevoSink("bad", "noreply@example.com", "License Server", "XPlayer", srv.URL)
	err := sink.Send(context.Background(), sampleNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
