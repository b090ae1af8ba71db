package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/ritzau/route-viewer/pkg/logging"
	"github.com/ritzau/route-viewer/pkg/model"
	"github.com/ritzau/route-viewer/pkg/planner"
	"github.com/ritzau/route-viewer/pkg/pubsub"
	"github.com/ritzau/route-viewer/pkg/render"
	"github.com/ritzau/route-viewer/pkg/store"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

// statusOf maps domain errors onto HTTP status codes
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrSameNode),
		errors.Is(err, model.ErrUnknownMetric),
		errors.Is(err, model.ErrInvalidGraph):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnknownNode),
		errors.Is(err, model.ErrNoPath),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, planner.ErrNotLoaded),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logging.ErrorContext(r.Context(), "request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.planner.Graph(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	rg, err := s.planner.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rg.Source().Wire())
}

// pathVars returns the route variables with percent-escapes decoded
func pathVars(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	raw := mux.Vars(r)
	vars := make(map[string]string, len(raw))
	for k, v := range raw {
		unescaped, err := url.PathUnescape(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid %s: %v", k, err)})
			return nil, false
		}
		vars[k] = unescaped
	}
	return vars, true
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	vars, ok := pathVars(w, r)
	if !ok {
		return
	}
	metric, err := model.ParseMetric(vars["metric"])
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.planner.Route(r.Context(), metric, vars["start"], vars["goal"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type compareResponse struct {
	Results map[model.Metric]*model.PathResult `json:"results"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	vars, ok := pathVars(w, r)
	if !ok {
		return
	}
	results, err := s.planner.Compare(r.Context(), vars["start"], vars["goal"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{Results: results})
}

type shortestPathResponse struct {
	Path []string `json:"path"`
	Cost float64  `json:"cost"`
}

// handleShortestPath keeps the first API version alive: distance only, and
// every failure is reported as a missing path
func (s *Server) handleShortestPath(w http.ResponseWriter, r *http.Request) {
	vars, ok := pathVars(w, r)
	if !ok {
		return
	}
	start, goal := vars["start"], vars["goal"]

	rg, err := s.planner.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}
	if start == goal && rg.HasNode(start) {
		writeJSON(w, http.StatusOK, shortestPathResponse{Path: []string{start}, Cost: 0})
		return
	}

	res, err := s.planner.Route(r.Context(), model.MetricDistance, start, goal)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Path not found"})
		return
	}
	writeJSON(w, http.StatusOK, shortestPathResponse{Path: res.Path, Cost: res.Cost})
}

func (s *Server) handleRenderSVG(w http.ResponseWriter, r *http.Request) {
	rg, err := s.planner.Graph()
	if err != nil {
		writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := render.DefaultOptions()
	if opts.Labels, err = render.ParseLabelScheme(q.Get("labels")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	var overlays []render.Overlay
	start, goal := q.Get("start"), q.Get("goal")
	if start != "" || goal != "" {
		overlays, err = s.overlays(r.Context(), q.Get("metric"), start, goal)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	var buf bytes.Buffer
	if err := render.SVG(&buf, rg.Source(), overlays, opts); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(buf.Bytes())
}

// overlays routes start to goal under metric, or under every metric when
// metric is "all"
func (s *Server) overlays(ctx context.Context, metric, start, goal string) ([]render.Overlay, error) {
	if metric == "all" {
		results, err := s.planner.Compare(ctx, start, goal)
		if err != nil {
			return nil, err
		}
		out := make([]render.Overlay, 0, len(results))
		for _, m := range model.Metrics() {
			out = append(out, render.OverlayOf(results[m]))
		}
		return out, nil
	}

	if metric == "" {
		metric = string(model.MetricDistance)
	}
	m, err := model.ParseMetric(metric)
	if err != nil {
		return nil, err
	}
	res, err := s.planner.Route(ctx, m, start, goal)
	if err != nil {
		return nil, err
	}
	return []render.Overlay{render.OverlayOf(res)}, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.planner.Stats()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type edgePatch struct {
	Closed   *bool   `json:"closed"`
	RoadType *string `json:"road_type"`
}

func (s *Server) handlePatchEdge(w http.ResponseWriter, r *http.Request) {
	vars, ok := pathVars(w, r)
	if !ok {
		return
	}
	from, to := vars["from"], vars["to"]

	var patch edgePatch
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid body: %v", err)})
		return
	}
	if patch.Closed == nil && patch.RoadType == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "nothing to update: set closed or road_type"})
		return
	}

	update := store.EdgeUpdate{Closed: patch.Closed}
	if patch.RoadType != nil {
		rt, err := model.ParseRoadType(*patch.RoadType)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		update.RoadType = &rt
	}
	if err := s.planner.UpdateEdge(r.Context(), from, to, update); err != nil {
		writeError(w, r, err)
		return
	}

	logging.InfoContext(r.Context(), "edge updated", "from", from, "to", to)
	s.handleStats(w, r)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.planner.Reload(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	s.handleStats(w, r)
}

func (s *Server) handleSubscribeGraphStatus(w http.ResponseWriter, r *http.Request) {
	if s.publisher == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "live updates disabled"})
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "streaming unsupported"})
		return
	}

	sub, err := s.publisher.Subscribe(r.Context(), pubsub.TopicGraphStatus)
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Initial comment establishes the stream in Safari
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.done:
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "sse client gone", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
