package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bryanchriswhite/livewindow/internal/config"
	"github.com/bryanchriswhite/livewindow/internal/host"
	"github.com/bryanchriswhite/livewindow/internal/logger"
	"github.com/bryanchriswhite/livewindow/internal/output"
	"github.com/bryanchriswhite/livewindow/internal/scene"
	"github.com/bryanchriswhite/livewindow/internal/window"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server represents the HTTP API server
type Server struct {
	router    *mux.Router
	sys       window.System
	configMgr *config.Manager
	host      *host.Host
	stream    *output.MJPEGOutput
	upgrader  websocket.Upgrader
}

// NewServer creates a new API server. stream may be nil when no MJPEG output
// is mounted.
func NewServer(sys window.System, configMgr *config.Manager, h *host.Host, stream *output.MJPEGOutput) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		sys:       sys,
		configMgr: configMgr,
		host:      h,
		stream:    stream,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Window discovery
	api.HandleFunc("/windows", s.handleGetWindows).Methods("GET")
	api.HandleFunc("/priorities", s.handleGetPriorities).Methods("GET")

	// Sources
	api.HandleFunc("/sources", s.handleGetSources).Methods("GET")
	api.HandleFunc("/sources", s.handleAddSource).Methods("POST")
	api.HandleFunc("/sources/stream", s.handleSourceStream)
	api.HandleFunc("/sources/{name}", s.handleUpdateSource).Methods("PUT")
	api.HandleFunc("/sources/{name}", s.handleRemoveSource).Methods("DELETE")

	// Scenes
	api.HandleFunc("/scenes", s.handleGetScenes).Methods("GET")
	api.HandleFunc("/scenes/active", s.handleSetActiveScene).Methods("PUT")

	if s.stream != nil {
		api.HandleFunc("/stream/stats", s.stream.StatsHandler()).Methods("GET")
		s.router.HandleFunc("/stream", s.stream.StreamHandler()).Methods("GET")
		s.router.HandleFunc("/", s.stream.ViewerHandler()).Methods("GET")
	}
}

// Handler returns the router wrapped with CORS headers
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves the API on port until the listener fails
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	logger.WithComponent("api").Info().Str("addr", addr).Msg("Starting HTTP server")
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, config.ErrSourceNotFound), errors.Is(err, host.ErrSourceNotFound),
		errors.Is(err, config.ErrSceneNotFound), errors.Is(err, scene.ErrNoScene):
		status = http.StatusNotFound
	case errors.Is(err, config.ErrSourceExists), errors.Is(err, host.ErrSourceExists):
		status = http.StatusConflict
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// windowEntry is a window as offered to configuration UIs
type windowEntry struct {
	window.Info
	Descriptor string `json:"descriptor"`
}

func (s *Server) handleGetWindows(w http.ResponseWriter, r *http.Request) {
	exclude := true
	if v := r.URL.Query().Get("exclude_minimized"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			http.Error(w, "exclude_minimized must be a boolean", http.StatusBadRequest)
			return
		}
		exclude = b
	}

	entries := []windowEntry{}
	for info := range s.sys.Windows(exclude) {
		entries = append(entries, windowEntry{
			Info:       info,
			Descriptor: window.IdentityOf(info, window.PriorityTitle).Descriptor(),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetPriorities(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(window.Priorities))
	for _, p := range window.Priorities {
		names = append(names, p.String())
	}
	writeJSON(w, http.StatusOK, names)
}

// sourceEntry pairs a source's configuration with its live state
type sourceEntry struct {
	config.SourceConfig
	State  string `json:"state"`
	Handle string `json:"handle,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (s *Server) handleGetSources(w http.ResponseWriter, r *http.Request) {
	statuses := map[string]int{}
	live := s.host.Statuses()
	for i, st := range live {
		statuses[st.Name] = i
	}

	entries := []sourceEntry{}
	for _, sc := range s.configMgr.Get().Sources {
		e := sourceEntry{SourceConfig: sc}
		if i, ok := statuses[sc.Name]; ok {
			e.State = live[i].State
			e.Handle = live[i].Handle
			e.Width = live[i].Width
			e.Height = live[i].Height
		}
		entries = append(entries, e)
	}
	writeJSON(w, http.StatusOK, entries)
}

type addSourceRequest struct {
	config.SourceConfig
	X int `json:"x"`
	Y int `json:"y"`
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var req addSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item := config.ItemConfig{X: req.X, Y: req.Y}
	if err := s.configMgr.AddSource(req.SourceConfig, item); err != nil {
		writeError(w, err)
		return
	}
	if err := s.host.AddSource(req.SourceConfig, item); err != nil {
		if rbErr := s.configMgr.RemoveSource(req.Name); rbErr != nil {
			logger.WithComponent("api").Error().Err(rbErr).Str("source", req.Name).Msg("Failed to roll back source")
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req.SourceConfig)
}

func (s *Server) handleUpdateSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var sc config.SourceConfig
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sc.Name = name

	previous, err := s.configMgr.Source(name)
	if err != nil {
		writeError(w, err)
		return
	}
	if sc.Type == "" {
		sc.Type = previous.Type
	}
	if err := s.configMgr.UpdateSource(name, sc); err != nil {
		writeError(w, err)
		return
	}
	if err := s.host.UpdateSource(sc); err != nil {
		s.configMgr.UpdateSource(name, previous)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (s *Server) handleRemoveSource(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := s.configMgr.RemoveSource(name); err != nil {
		writeError(w, err)
		return
	}
	if err := s.host.RemoveSource(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (s *Server) handleGetScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.host.Scenes())
}

func (s *Server) handleSetActiveScene(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := s.host.SetActiveScene(req.Name); err != nil {
		writeError(w, err)
		return
	}
	if err := s.configMgr.SetActiveScene(req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"active_scene": req.Name})
}

func (s *Server) handleSourceStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	updates := s.host.Subscribe()
	defer s.host.Unsubscribe(updates)

	// Reads only to notice the client going away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.host.Statuses()); err != nil {
		log.Debug().Err(err).Msg("WebSocket write failed")
		return
	}

	for {
		select {
		case <-closed:
			return
		case statuses, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(statuses); err != nil {
				log.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		}
	}
}
