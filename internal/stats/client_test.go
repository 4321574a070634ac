package stats

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Togather-Foundation/ewm/internal/domain/errs"
	"github.com/Togather-Foundation/ewm/internal/timestamp"
	"github.com/stretchr/testify/require"
)

func TestClientRecordHit(t *testing.T) {
	var got Hit
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/hit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL + "/")
	hit := Hit{App: "ewm-main-service", URI: "/events/1", IP: "10.0.0.1", Timestamp: timestamp.New(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))}

	require.NoError(t, client.RecordHit(context.Background(), hit))
	require.Equal(t, hit, got)
}

func TestClientRecordHitStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewClient(server.URL).RecordHit(context.Background(), Hit{App: "a", URI: "/", IP: "1"})
	require.ErrorContains(t, err, "400")
}

func TestClientQueryHits(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "/stats", r.URL.Path)
		require.Equal(t, "2026-05-01 10:00:00", q.Get("start"))
		require.Equal(t, "2026-05-01 12:00:00", q.Get("end"))
		require.Equal(t, []string{"/events/1", "/events/2"}, q["uris"])
		require.Equal(t, "false", q.Get("unique"))
		_ = json.NewEncoder(w).Encode([]ViewStats{{App: "ewm-main-service", URI: "/events/2", Hits: 3}})
	}))
	defer server.Close()

	stats, err := NewClient(server.URL).QueryHits(context.Background(), Query{
		Start: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		URIs:  []string{"/events/1", "/events/2"},
	})

	require.NoError(t, err)
	require.Equal(t, []ViewStats{{App: "ewm-main-service", URI: "/events/2", Hits: 3}}, stats)
}

func TestClientQueryHitsRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer server.Close()

	now := time.Now()
	stats, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).QueryHits(context.Background(), Query{Start: now, End: now})

	require.NoError(t, err)
	require.Empty(t, stats)
	require.Equal(t, int32(2), calls.Load())
}

func TestClientQueryHitsRejectsInvertedWindow(t *testing.T) {
	client := NewClient("http://127.0.0.1:1")
	now := time.Now()

	_, err := client.QueryHits(context.Background(), Query{Start: now, End: now.Add(-time.Second)})

	var validation errs.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestClientQueryHitsDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad window", http.StatusBadRequest)
	}))
	defer server.Close()

	now := time.Now()
	_, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).QueryHits(context.Background(), Query{Start: now, End: now})

	var status *StatusError
	require.ErrorAs(t, err, &status)
	require.Equal(t, http.StatusBadRequest, status.Code)
	require.Equal(t, "bad window", status.Body)
	require.Equal(t, int32(1), calls.Load())
}

func TestClientQueryHitsGivesUpAfterLastAttempt(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	now := time.Now()
	_, err := NewClient(server.URL, WithRetryDelay(time.Millisecond)).QueryHits(context.Background(), Query{Start: now, End: now})

	require.Error(t, err)
	require.Equal(t, int32(QueryAttempts), calls.Load())
}
