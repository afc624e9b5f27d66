package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gracechapel/outreach-backend/internal/pkg/logger"
)

func testClient(t *testing.T, srv *httptest.Server) Client {
	t.Helper()
	c, err := New(logger.NewNop(), Config{
		BaseURL:    srv.URL,
		BaseID:     "appTEST",
		APIKey:     "key",
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RatePerSec: 1000,
		Burst:      1000,
	})
	require.NoError(t, err)
	return c
}

func TestListFollowsPagination(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			if r.URL.Query().Get("offset") != "" {
				t.Errorf("first page should not carry an offset")
			}
			fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{"Phone":"0244000111"}}],"offset":"page2"}`)
			return
		}
		if got := r.URL.Query().Get("offset"); got != "page2" {
			t.Errorf("second page offset = %q, want page2", got)
		}
		fmt.Fprint(w, `{"records":[{"id":"rec2","fields":{"Phone":"0244000222"}}]}`)
	}))
	defer srv.Close()

	recs, err := testClient(t, srv).List(context.Background(), "Members", ListOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "rec1", recs[0].ID)
	require.Equal(t, "rec2", recs[1].ID)
}

func TestRetriesOn429ThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"type":"RATE_LIMIT","message":"rate limited"}}`)
			return
		}
		fmt.Fprint(w, `{"records":[{"id":"rec1","fields":{}}]}`)
	}))
	defer srv.Close()

	recs, err := testClient(t, srv).List(context.Background(), "Members", ListOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestNonRetryableStatusFailsImmediately(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error":{"type":"INVALID_REQUEST","message":"bad field"}}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Create(context.Background(), "Members", Fields{"Phone": "x"})
	require.Error(t, err)
	require.EqualValues(t, 1, atomic.LoadInt32(&calls))

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, http.StatusUnprocessableEntity, httpErr.HTTPStatusCode())
}

func TestBatchCreateChunks(t *testing.T) {
	var sizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Records []struct {
				Fields Fields `json:"fields"`
			} `json:"records"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode batch body: %v", err)
		}
		sizes = append(sizes, len(body.Records))
		resp := listResponse{}
		for i := range body.Records {
			resp.Records = append(resp.Records, Record{ID: fmt.Sprintf("rec%d", i)})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	fields := make([]Fields, 25)
	for i := range fields {
		fields[i] = Fields{"Phone": fmt.Sprintf("024400%04d", i)}
	}
	recs, err := testClient(t, srv).BatchCreate(context.Background(), "Members", fields)
	require.NoError(t, err)
	require.Len(t, recs, 25)
	require.Equal(t, []int{10, 10, 5}, sizes)
}

func TestLimiterSpacesRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"records":[]}`)
	}))
	defer srv.Close()

	c, err := New(logger.NewNop(), Config{
		BaseURL:    srv.URL,
		BaseID:     "appTEST",
		APIKey:     "key",
		RatePerSec: 20,
		Burst:      1,
	})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 4; i++ {
		_, err := c.List(context.Background(), "Members", ListOptions{})
		require.NoError(t, err)
	}
	// 4 requests at 20 rps with burst 1 need >= 3 token refills (150ms).
	require.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
}
