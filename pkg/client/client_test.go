package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamCoscia/KnowledgeVIS/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]Option{WithRetryWait(time.Millisecond, 2*time.Millisecond)}, opts...)
	c, err := NewClient(server.URL, opts...)
	require.NoError(t, err)
	return c
}

type testLogger struct {
	mu      sync.Mutex
	lastMsg string
	count   int32
}

func (l *testLogger) Debugf(format string, args ...interface{}) { l.log(format, args...) }
func (l *testLogger) Infof(format string, args ...interface{})  { l.log(format, args...) }
func (l *testLogger) Errorf(format string, args ...interface{}) { l.log(format, args...) }

func (l *testLogger) log(format string, args ...interface{}) {
	atomic.AddInt32(&l.count, 1)
	l.mu.Lock()
	l.lastMsg = fmt.Sprintf(format, args...)
	l.mu.Unlock()
}

const sampleResponse = `{
  "model": "bert", "topk": 2, "fill": "_",
  "groups": [{"template": "[subject] is a _.", "subjects": [{"id": "s1", "name": "cat"}, {"id": "s2", "name": "dog"}]}],
  "heatMapData": [
    {"parent": "s1", "name": "pet", "value": 0.5, "id": "p1"},
    {"parent": "s1", "name": "animal", "value": 0.3, "id": "p2"},
    {"parent": "s2", "name": "pet", "value": 0.4, "id": "p1"}
  ],
  "setViewData": {"name": "_root_", "children": [
    {"id": "s1", "name": "cat", "template": "[subject] is a _.", "children": [{"parent": "s1", "name": "pet", "value": 0.5}]}
  ]},
  "scatterPlotData": [{"id": "p1", "name": "pet", "s1": 0.5, "s2": 0.4}, {"id": "p2", "name": "animal", "s1": 0.3}],
  "subjectsIDKey": {"s1": "cat", "s2": "dog"},
  "predictionsIDKey": {"p1": "pet", "p2": "animal"},
  "predictionsNameKey": {"pet": "p1", "animal": "p2"},
  "predictionsClusters": {"pet": "organism", "animal": "other"}
}`

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
	_, err = NewClient("ftp://host")
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	c, err := NewClient("http://localhost:3000/")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:3000", c.BaseURL())
	assert.True(t, c.healthCheck)
}

func TestGetData_PingsThenPosts(t *testing.T) {
	var calls []string
	var mu sync.Mutex
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		switch r.URL.Path {
		case "/":
			_, _ = io.WriteString(w, `"Connected!"`)
		case "/getData":
			var req Request
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "bert", req.Model)
			assert.Equal(t, "_", req.Fill)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			_, _ = io.WriteString(w, sampleResponse)
		}
	})

	resp, err := c.GetData(context.Background(), &Request{Model: "bert", TopK: 2, Fill: "_"})
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /", "POST /getData"}, calls)

	assert.Len(t, resp.HeatMapData, 3)
	assert.Equal(t, "_root_", resp.SetViewData.Name)
	require.Len(t, resp.ScatterPlotData, 2)
	assert.Equal(t, map[string]float64{"s1": 0.5, "s2": 0.4}, resp.ScatterPlotData[0].Scores)
	assert.Equal(t, Ordered{{"pet", "organism"}, {"animal", "other"}}, resp.PredictionsClusters)
}

func TestGetData_PingFailureSkipsQuery(t *testing.T) {
	var posted int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/getData" {
			atomic.AddInt32(&posted, 1)
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}, WithRetryMax(0))

	_, err := c.GetData(context.Background(), &Request{Model: "bert"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeExternalService))
	assert.Zero(t, atomic.LoadInt32(&posted))
}

func TestGetData_WithoutHealthCheck(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getData", r.URL.Path)
		_, _ = io.WriteString(w, sampleResponse)
	}, WithHealthCheck(false))

	_, err := c.GetData(context.Background(), &Request{Model: "bert"})
	require.NoError(t, err)
}

func TestDo_RetriesServerErrors(t *testing.T) {
	var attempts int32
	logger := &testLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = io.WriteString(w, `"Connected!"`)
	}, WithLogger(logger))

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Greater(t, atomic.LoadInt32(&logger.count), int32(0))
}

func TestDo_ClientErrorIsNotRetried(t *testing.T) {
	var attempts int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"message": "unknown model"}`)
	}, WithHealthCheck(false))

	_, err := c.GetData(context.Background(), &Request{Model: "gpt"})
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "unknown model", apiErr.Message)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestDo_ExhaustedRetriesReturnLastError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, WithRetryMax(2))

	err := c.Ping(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsServerError())
}

func TestDo_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, WithRetryWait(time.Second, time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := c.Ping(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTimeout))
}

func TestDo_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"heatMapData": 7}`)
	}, WithHealthCheck(false))

	_, err := c.GetData(context.Background(), &Request{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

func TestCalculateBackoff(t *testing.T) {
	c, err := NewClient("http://localhost", WithRetryWait(100*time.Millisecond, 300*time.Millisecond))
	require.NoError(t, err)

	b1 := c.calculateBackoff(1)
	assert.GreaterOrEqual(t, b1, 100*time.Millisecond)
	assert.Less(t, b1, 125*time.Millisecond)

	b5 := c.calculateBackoff(5)
	assert.GreaterOrEqual(t, b5, 300*time.Millisecond)
	assert.Less(t, b5, 375*time.Millisecond)
}

func TestOrdered_RoundTripKeepsOrder(t *testing.T) {
	var o Ordered
	require.NoError(t, json.Unmarshal([]byte(`{"z": "1", "a": "2", "m": "1"}`), &o))
	assert.Equal(t, Ordered{{"z", "1"}, {"a", "2"}, {"m", "1"}}, o)

	out, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2","m":"1"}`, string(out))

	var empty Ordered
	require.NoError(t, json.Unmarshal([]byte(`null`), &empty))
	assert.Nil(t, empty)
	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &empty))

	assert.Equal(t, Ordered{{"a", "x"}, {"b", "y"}}, OrderedFromMap(map[string]string{"b": "y", "a": "x"}))
}

func TestScatterRow_JSON(t *testing.T) {
	var r ScatterRow
	require.NoError(t, json.Unmarshal([]byte(`{"id": "p3", "name": "nurse", "s2": 0.25}`), &r))
	assert.Equal(t, ScatterRow{ID: "p3", Name: "nurse", Scores: map[string]float64{"s2": 0.25}}, r)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "p3", "name": "nurse", "s2": 0.25}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"id": "p3", "s1": "high"}`), &r))
}
