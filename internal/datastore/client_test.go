package datastore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openmedicaid/nadac-mcp/config"
)

func testConfig(baseURL string) config.Config {
	cfg := config.Default()
	cfg.BaseURL = baseURL
	cfg.DatasetID = "test-dataset"
	cfg.UserAgent = "nadac-mcp-test/1.0"
	cfg.RequestTimeout = 2 * time.Second
	return cfg
}

func TestQueryRows_SerializesConditionsInOrder(t *testing.T) {
	var gotPath, gotRawQuery, gotUserAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRawQuery = r.URL.RawQuery
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ndc":"123","nadac_per_unit":"1.50"}]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	rows, err := c.QueryRows(context.Background(), QueryRequest{
		Conditions: []FilterCondition{
			{Property: "ndc_description", Operator: OpContains, Value: "IBUPROFEN"},
			{Property: "as_of_date", Operator: OpGTE, Value: "2025-01-01"},
		},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "1.50", rows[0].Str("nadac_per_unit"))

	require.Equal(t, "/test-dataset/0/download", gotPath)
	require.Equal(t,
		"conditions%5B0%5D%5Bproperty%5D=ndc_description"+
			"&conditions%5B0%5D%5Bvalue%5D=IBUPROFEN"+
			"&conditions%5B0%5D%5Boperator%5D=contains"+
			"&conditions%5B1%5D%5Bproperty%5D=as_of_date"+
			"&conditions%5B1%5D%5Bvalue%5D=2025-01-01"+
			"&conditions%5B1%5D%5Boperator%5D=%3E%3D"+
			"&format=json&limit=10",
		gotRawQuery)
	require.Equal(t, "nadac-mcp-test/1.0", gotUserAgent)
}

func TestQueryRows_DefaultsLimitAndFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "json", q.Get("format"))
		require.Equal(t, "100", q.Get("limit"))
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	rows, err := c.QueryRows(context.Background(), QueryRequest{})
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestQueryCSV_ReturnsBodyVerbatim(t *testing.T) {
	const body = "ndc,nadac_per_unit\n123,1.50\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	got, err := c.QueryCSV(context.Background(), QueryRequest{Limit: 5})
	require.NoError(t, err)
	require.Equal(t, body, got)
}

func TestQuery_NonSuccessStatusWrapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "condition 0 is malformed", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.QueryRows(context.Background(), QueryRequest{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUpstream)
	require.Contains(t, err.Error(), "status 400")
	require.Contains(t, err.Error(), "condition 0 is malformed")
}

func TestQuery_TimeoutIsSingleAttempt(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		time.Sleep(500 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.RequestTimeout = 50 * time.Millisecond
	c := NewClient(cfg)

	_, err := c.QueryRows(context.Background(), QueryRequest{})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrUpstream)
	require.Equal(t, int32(1), attempts.Load())
}

func TestQueryRows_DecodeFailureIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not":"an array"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.QueryRows(context.Background(), QueryRequest{})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrUpstream))
}
