/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface polled by display devices: the
// synchronized catalog, the command relay, content delivery, and health.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/friendsincode/heimdall_signage/internal/catalog"
	"github.com/friendsincode/heimdall_signage/internal/clients"
	"github.com/friendsincode/heimdall_signage/internal/config"
	"github.com/friendsincode/heimdall_signage/internal/mailbox"
	"github.com/friendsincode/heimdall_signage/internal/playlist"
	"github.com/friendsincode/heimdall_signage/internal/telemetry"
)

// API exposes HTTP handlers.
type API struct {
	cfg      *config.Config
	catalog  *catalog.Service
	relay    *mailbox.Relay
	registry *clients.Registry
	logger   zerolog.Logger
}

// New creates the API router wrapper.
func New(cfg *config.Config, catalogSvc *catalog.Service, relay *mailbox.Relay, registry *clients.Registry, logger zerolog.Logger) *API {
	return &API{
		cfg:      cfg,
		catalog:  catalogSvc,
		relay:    relay,
		registry: registry,
		logger:   logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers all endpoints on the router.
func (a *API) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/playlist", a.handlePlaylist)
		r.Get("/playlist-sync", a.handlePlaylistSync)
		r.Get("/command", a.handleCommand)
		r.Get("/status", a.handleStatus)
	})
	r.Get("/health", a.handleStatus)

	r.Route("/content", func(r chi.Router) {
		r.Get("/videos/{name}", a.handleVideo)
		r.Get("/slides/{doc}/{image}", a.handleSlide)
	})
}

// itemJSON is the wire form of a playable item. Duration is in seconds; -1
// marks a video that plays to natural completion.
type itemJSON struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Duration float64 `json:"duration"`
}

func itemToJSON(item playlist.Item) itemJSON {
	out := itemJSON{
		Type:     string(item.Kind),
		Name:     item.Name,
		Duration: item.Duration.Seconds(),
	}
	if item.Duration < 0 {
		out.Duration = -1
	}
	switch item.Kind {
	case playlist.KindVideo:
		out.URL = "/content/videos/" + item.Name
	case playlist.KindSlide:
		doc := filepath.Base(filepath.Dir(item.SourcePath))
		out.URL = "/content/slides/" + doc + "/" + item.Name
	}
	return out
}

func itemsToJSON(items []playlist.Item) []itemJSON {
	out := make([]itemJSON, 0, len(items))
	for _, item := range items {
		out = append(out, itemToJSON(item))
	}
	return out
}

// handlePlaylist returns the resolved catalog and its fingerprint. Responses
// are marked cacheable for the catalog TTL so display-side HTTP caches line
// up with the server cache.
func (a *API) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	a.trackClient(r)

	items, fp := a.catalog.Snapshot()
	w.Header().Set("Cache-Control", "max-age=5")
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist": itemsToJSON(items),
		"hash":     fp,
	})
}

// handlePlaylistSync additionally carries the shared cycle origin and the
// position every display should be at right now.
func (a *API) handlePlaylistSync(w http.ResponseWriter, r *http.Request) {
	a.trackClient(r)

	state := a.catalog.Sync()
	writeJSON(w, http.StatusOK, map[string]any{
		"playlist":          itemsToJSON(state.Items),
		"hash":              state.Fingerprint,
		"serverTime":        float64(state.ServerTime.UnixMilli()) / 1000.0,
		"playlistStartTime": float64(state.CycleStart.UnixMilli()) / 1000.0,
		"currentIndex":      state.Index,
		"itemElapsed":       state.Offset.Seconds(),
	})
}

// handleCommand relays the pending operator command without consuming it.
// Every display sees the same command until the operator posts a new one.
func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	a.trackClient(r)

	msg, err := a.relay.Peek()
	if err != nil {
		a.logger.Warn().Err(err).Msg("command relay read failed")
		writeError(w, http.StatusInternalServerError, "command_unavailable")
		return
	}
	if msg == nil {
		writeJSON(w, http.StatusOK, map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action": msg.Action,
		"ts":     msg.TS,
	})
}

// handleStatus reports liveness plus a coarse operational snapshot.
func (a *API) handleStatus(w http.ResponseWriter, r *http.Request) {
	items, fp := a.catalog.Snapshot()
	active := a.registry.ActiveCount()
	telemetry.ActiveDisplays.Set(float64(active))

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	status := map[string]any{
		"status":         "ok",
		"active_clients": active,
		"playlist_items": len(items),
		"fingerprint":    fp,
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc":     mem.HeapAlloc,
	}
	if info, err := os.Stat(a.cfg.OrderingFile); err == nil {
		status["ordering_mtime"] = info.ModTime().UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, status)
}

// handleVideo serves a video file by name.
func (a *API) handleVideo(w http.ResponseWriter, r *http.Request) {
	a.trackClient(r)

	name := chi.URLParam(r, "name")
	if !safeSegment(name) {
		writeError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	a.serveContent(w, r, filepath.Join(a.cfg.VideosDir, name))
}

// handleSlide serves one rendered slide image from the conversion cache.
func (a *API) handleSlide(w http.ResponseWriter, r *http.Request) {
	a.trackClient(r)

	doc := chi.URLParam(r, "doc")
	image := chi.URLParam(r, "image")
	if !safeSegment(doc) || !safeSegment(image) {
		writeError(w, http.StatusBadRequest, "invalid_name")
		return
	}
	a.serveContent(w, r, filepath.Join(a.cfg.SlidesCacheDir, doc, image))
}

func (a *API) serveContent(w http.ResponseWriter, r *http.Request, path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	// Content files are immutable in place; replacements arrive under new names
	// or fresh cache entries, so long-lived caching is safe.
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

// safeSegment rejects path traversal in a single URL segment.
func safeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	return !strings.ContainsAny(s, "/\\")
}

// trackClient records display contact for liveness accounting. RealIP
// middleware has already folded X-Forwarded-For into RemoteAddr.
func (a *API) trackClient(r *http.Request) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	a.registry.Track(host)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
