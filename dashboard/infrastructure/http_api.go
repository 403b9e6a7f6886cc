package infrastructure

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	dashboardDomain "github.com/samoilenko/sensor_telemetry/dashboard/domain"
	"github.com/samoilenko/sensor_telemetry/pkg/cliflags"
	"github.com/samoilenko/sensor_telemetry/pkg/httpserver"
)

const maxBodySize = 1 << 16

// API serves the dashboard JSON endpoints.
type API struct {
	poller      *dashboardDomain.Poller
	hub         *Hub
	title       string
	refresh     dashboardDomain.RefreshInterval
	defaultPath string
	logger      dashboardDomain.Logger
}

// NewAPI creates the API. defaultPath is used for sources added without a path.
func NewAPI(
	poller *dashboardDomain.Poller,
	hub *Hub,
	title string,
	refresh dashboardDomain.RefreshInterval,
	defaultPath string,
	logger dashboardDomain.Logger,
) *API {
	return &API{
		poller:      poller,
		hub:         hub,
		title:       title,
		refresh:     refresh,
		defaultPath: defaultPath,
		logger:      logger,
	}
}

// Handler routes the API, the websocket, /metrics and /healthz behind the
// recovery and rate limit middleware.
func (a *API) Handler(limiter *rate.Limiter) http.Handler {
	mux := httpserver.NewMux()
	mux.HandleFunc("GET /api/dashboard", a.dashboard)
	mux.HandleFunc("GET /api/sources", a.listSources)
	mux.HandleFunc("POST /api/sources", a.addSource)
	mux.HandleFunc("DELETE /api/sources/{id}", a.removeSource)
	mux.HandleFunc("GET /api/series", a.series)
	mux.Handle("GET /ws", a.hub)

	return httpserver.Chain(mux, httpserver.Recover(a.logger), httpserver.RateLimit(limiter))
}

type dashboardResponse struct {
	Title           string                      `json:"title"`
	RefreshInterval float64                     `json:"refresh_interval"`
	Ranges          []dashboardDomain.TimeRange `json:"ranges"`
	DefaultRange    dashboardDomain.TimeRange   `json:"default_range"`
}

func (a *API) dashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dashboardResponse{
		Title:           a.title,
		RefreshInterval: time.Duration(a.refresh).Seconds(),
		Ranges:          dashboardDomain.TimeRanges(),
		DefaultRange:    dashboardDomain.DefaultRange,
	})
}

type sourceStatus struct {
	dashboardDomain.Source
	Rows    int      `json:"rows"`
	Dropped int      `json:"dropped"`
	Fields  []string `json:"fields"`
	Error   string   `json:"error,omitempty"`
}

func (a *API) listSources(w http.ResponseWriter, _ *http.Request) {
	sources := a.poller.Sources().List()
	out := make([]sourceStatus, 0, len(sources))
	for _, src := range sources {
		series, err := a.poller.Series(src.ID)
		if err != nil {
			// removed while listing
			continue
		}
		status := sourceStatus{
			Source:  src,
			Rows:    len(series.Rows),
			Dropped: series.Dropped,
			Fields:  append([]string{}, series.Schema...),
		}
		if series.Err != nil {
			status.Error = series.Err.Error()
		}
		out = append(out, status)
	}
	writeJSON(w, http.StatusOK, out)
}

type addSourceRequest struct {
	Path  string `json:"path"`
	Title string `json:"title"`
}

func (a *API) addSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}
	if strings.TrimSpace(req.Path) == "" {
		req.Path = a.defaultPath
	}

	src, err := a.poller.Sources().Add(req.Path, req.Title)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.logger.Info("source %s added: %s", src.ID, src.Path)
	a.poller.Poll()

	writeJSON(w, http.StatusCreated, src)
}

func (a *API) removeSource(w http.ResponseWriter, r *http.Request) {
	id := dashboardDomain.SourceID(r.PathValue("id"))
	err := a.poller.Sources().Remove(id)
	if errors.Is(err, dashboardDomain.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	a.logger.Info("source %s removed", id)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) series(w http.ResponseWriter, r *http.Request) {
	id, q, err := parseViewRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	view, err := a.poller.View(id, q)
	if errors.Is(err, dashboardDomain.ErrSourceNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// parseViewRequest reads source, field, range, smoothing, ymin and ymax
// from the query string.
func parseViewRequest(r *http.Request) (dashboardDomain.SourceID, dashboardDomain.ViewQuery, error) {
	values := r.URL.Query()

	id := dashboardDomain.SourceID(strings.TrimSpace(values.Get("source")))
	if id == "" {
		return "", dashboardDomain.ViewQuery{}, errors.New("source is required")
	}

	timeRange, err := dashboardDomain.NewTimeRange(values.Get("range"))
	if err != nil {
		return "", dashboardDomain.ViewQuery{}, err
	}

	smoothing := 0
	if raw := values.Get("smoothing"); raw != "" {
		if smoothing, err = strconv.Atoi(raw); err != nil {
			return "", dashboardDomain.ViewQuery{}, fmt.Errorf("smoothing must be an integer: %q", raw)
		}
	}

	yMin, err := optionalFloat("ymin", values.Get("ymin"))
	if err != nil {
		return "", dashboardDomain.ViewQuery{}, err
	}
	yMax, err := optionalFloat("ymax", values.Get("ymax"))
	if err != nil {
		return "", dashboardDomain.ViewQuery{}, err
	}

	q, err := dashboardDomain.NewViewQuery(strings.TrimSpace(values.Get("field")), timeRange, smoothing, yMin, yMax)
	if err != nil {
		return "", dashboardDomain.ViewQuery{}, err
	}
	return id, q, nil
}

func optionalFloat(name, raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := cliflags.ParseFloat(name, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
