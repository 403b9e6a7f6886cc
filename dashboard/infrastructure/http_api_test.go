package infrastructure

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
)

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(_ string, _ ...interface{}) {}

func (m *mockLogger) Error(msg string, _ ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

var testNow = time.Date(2025, 3, 1, 10, 1, 0, 0, time.UTC)

const testLog = "time,source_id,value\n" +
	"2025-03-01T10:00:00Z,27eU,1200\n" +
	"2025-03-01T10:00:30Z,27eU,1300\n" +
	"2025-03-01T10:00:40Z,27eU,bad\n"

type testDashboard struct {
	poller  *dashboardDomain.Poller
	hub     *Hub
	server  *httptest.Server
	source  dashboardDomain.Source
	logPath string
}

func newTestDashboard(t *testing.T, limit rate.Limit) *testDashboard {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "sensor_data.csv")
	require.NoError(t, os.WriteFile(logPath, []byte(testLog), 0o644))

	src, err := dashboardDomain.NewSource(logPath, "Tank")
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(testNow)
	logger := &mockLogger{}
	sources := dashboardDomain.NewSources([]dashboardDomain.Source{src}, nil)
	poller := dashboardDomain.NewPoller(sources, dashboardDomain.RefreshInterval(time.Second), mock, nil, logger)
	hub := NewHub(poller, logger)
	poller.Poll()

	api := NewAPI(poller, hub, "Live Sensor Data Chart", dashboardDomain.RefreshInterval(5*time.Second),
		filepath.Join(dir, "default.csv"), logger)
	server := httptest.NewServer(api.Handler(rate.NewLimiter(limit, int(limit))))
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})

	return &testDashboard{poller: poller, hub: hub, server: server, source: src, logPath: logPath}
}

func (d *testDashboard) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, d.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func TestAPI_Series(t *testing.T) {
	d := newTestDashboard(t, 100)

	resp, body := d.do(t, http.MethodGet, "/api/series?source="+string(d.source.ID)+"&range=1m&smoothing=2", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var view dashboardDomain.View
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "Tank", view.Title)
	assert.Equal(t, "value", view.Field)
	assert.Equal(t, dashboardDomain.LastMinute, view.Range)
	require.Len(t, view.Points, 2)
	assert.Equal(t, 1200.0, *view.Points[0].Value)
	assert.Equal(t, 1250.0, *view.Points[1].Value)
	assert.Equal(t, 1300.0, *view.Latest)
	assert.Equal(t, 1, view.Dropped)
	assert.True(t, view.ShowPoints)
	require.NotNil(t, view.YDomain)
	assert.InDelta(t, 1195.0, view.YDomain[0], 1e-9)
	assert.InDelta(t, 1255.0, view.YDomain[1], 1e-9)

	resp, body = d.do(t, http.MethodGet, "/api/series?source="+string(d.source.ID)+"&ymin=0&ymax=5000", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, [2]float64{0, 5000}, *view.YDomain)
}

func TestAPI_SeriesErrors(t *testing.T) {
	d := newTestDashboard(t, 100)
	id := string(d.source.ID)

	cases := map[string]struct {
		query string
		want  int
	}{
		"missing source":   {query: "", want: http.StatusBadRequest},
		"unknown source":   {query: "source=nope", want: http.StatusNotFound},
		"bad range":        {query: "source=" + id + "&range=1y", want: http.StatusBadRequest},
		"bad smoothing":    {query: "source=" + id + "&smoothing=x", want: http.StatusBadRequest},
		"zero smoothing":   {query: "source=" + id + "&smoothing=-2", want: http.StatusBadRequest},
		"bad limit":        {query: "source=" + id + "&ymin=low", want: http.StatusBadRequest},
		"inverted limits":  {query: "source=" + id + "&ymin=10&ymax=1", want: http.StatusBadRequest},
		"not a finite max": {query: "source=" + id + "&ymax=NaN", want: http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, body := d.do(t, http.MethodGet, "/api/series?"+tc.query, "")
			assert.Equal(t, tc.want, resp.StatusCode, string(body))
			assert.Contains(t, string(body), `"error"`)
		})
	}
}

func TestAPI_Sources(t *testing.T) {
	d := newTestDashboard(t, 100)

	resp, body := d.do(t, http.MethodGet, "/api/sources", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []sourceStatus
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, d.source.ID, list[0].ID)
	assert.Equal(t, 2, list[0].Rows)
	assert.Equal(t, 1, list[0].Dropped)
	assert.Equal(t, []string{"value"}, list[0].Fields)

	resp, body = d.do(t, http.MethodPost, "/api/sources", `{"title":"Default"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var added dashboardDomain.Source
	require.NoError(t, json.Unmarshal(body, &added))
	assert.Equal(t, "Default", added.Title)
	assert.Equal(t, "default.csv", filepath.Base(string(added.Path)))

	resp, _ = d.do(t, http.MethodPost, "/api/sources", `{"path":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = d.do(t, http.MethodDelete, "/api/sources/"+string(d.source.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = d.do(t, http.MethodDelete, "/api/sources/"+string(d.source.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = d.do(t, http.MethodGet, "/api/sources", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list, 1)
	assert.Equal(t, added.ID, list[0].ID)
	assert.Zero(t, list[0].Rows, "the default log does not exist yet")
}

func TestAPI_DashboardAndHealth(t *testing.T) {
	d := newTestDashboard(t, 100)

	resp, body := d.do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var info dashboardResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, "Live Sensor Data Chart", info.Title)
	assert.Equal(t, 5.0, info.RefreshInterval)
	assert.Len(t, info.Ranges, 6)
	assert.Equal(t, dashboardDomain.LastHour, info.DefaultRange)

	resp, body = d.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, _ = d.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_RateLimit(t *testing.T) {
	d := newTestDashboard(t, 1)

	resp, _ := d.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = d.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}
