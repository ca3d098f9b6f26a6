package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zonewatch/zonereport/pkg/config"
)

func testQuery() Query {
	return Query{
		ZoneID:  "zone-1",
		Since:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Until:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Dataset: DatasetRequests,
		Fields:  []string{"clientIP"},
		Limit:   GroupLimit,
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*HTTPClient, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(config.UpstreamConfig{
		Endpoint: srv.URL,
		APIToken: "test-token",
		Timeout:  "5s",
	})
	require.NoError(t, err)

	return client, srv
}

// TestQueryGroups tests the request wire format and group decoding
func TestQueryGroups(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"groups": []map[string]interface{}{
				{"count": 42, "dimensions": map[string]string{"clientIP": "203.0.113.9"}},
			},
		})
	})

	groups, err := client.QueryGroups(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, "/zones/zone-1/analytics/query", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "requests", gotBody["dataset"])
	assert.Equal(t, "2024-01-01T00:00:00Z", gotBody["since"])
	assert.NotContains(t, gotBody, "bucketed")

	require.Len(t, groups, 1)
	assert.Equal(t, int64(42), groups[0].Count)
	assert.Equal(t, "203.0.113.9", groups[0].Dimensions["clientIP"])
}

// TestQueryDailySetsBucketed tests that wide-window queries request the
// bucketed shape
func TestQueryDailySetsBucketed(t *testing.T) {
	var gotBody map[string]interface{}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"buckets": []map[string]interface{}{
				{"date": "2024-01-01T00:00:00Z", "sum": 100},
			},
		})
	})

	buckets, err := client.QueryDaily(context.Background(), testQuery())
	require.NoError(t, err)

	assert.Equal(t, true, gotBody["bucketed"])
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(100), buckets[0].Sum)
}

// TestQueryServerErrorIsUnavailable tests the 5xx mapping
func TestQueryServerErrorIsUnavailable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.QueryGroups(context.Background(), testQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// TestQueryTransportErrorIsUnavailable tests the unreachable-host mapping
func TestQueryTransportErrorIsUnavailable(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	srv.Close()

	_, err := client.QueryGroups(context.Background(), testQuery())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

// TestQueryUnsupportedFieldIsFieldError tests that field rejections come
// back as a typed, recoverable error
func TestQueryUnsupportedFieldIsFieldError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"code": "unsupported_field", "message": "field not available on this plan", "field": "botScore"},
			},
		})
	})

	_, err := client.QueryGroups(context.Background(), testQuery())
	require.Error(t, err)

	var fieldErr *FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "botScore", fieldErr.Field)
}

// TestQueryOtherAPIError tests that non-field errors are terminal
func TestQueryOtherAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"errors": []map[string]string{
				{"code": "invalid_zone", "message": "zone does not exist"},
			},
		})
	})

	_, err := client.QueryGroups(context.Background(), testQuery())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)

	var fieldErr *FieldError
	assert.False(t, errors.As(err, &fieldErr))
}

// TestNewHTTPClientValidation tests constructor validation
func TestNewHTTPClientValidation(t *testing.T) {
	_, err := NewHTTPClient(config.UpstreamConfig{Timeout: "5s"})
	assert.Error(t, err)

	_, err = NewHTTPClient(config.UpstreamConfig{Endpoint: "http://api", Timeout: "soon"})
	assert.Error(t, err)
}
