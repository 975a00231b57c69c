package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/ent0n29/taskdesk/internal/config"
	"github.com/ent0n29/taskdesk/internal/dialog"
	"github.com/ent0n29/taskdesk/internal/logging"
	"github.com/ent0n29/taskdesk/internal/notify"
	"github.com/ent0n29/taskdesk/internal/observability"
	"github.com/ent0n29/taskdesk/internal/tasks"
)

const maxBodyBytes = 1 << 20

type Server struct {
	cfg           config.Config
	store         *tasks.Store
	dialogs       *dialog.Manager
	notifications *notify.Hub
	metrics       *observability.Metrics
	logger        *log.Logger
	upgrader      websocket.Upgrader
	static        http.Handler
}

func New(cfg config.Config, store *tasks.Store, dialogs *dialog.Manager, notifications *notify.Hub, metrics *observability.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{
		cfg:           cfg,
		store:         store,
		dialogs:       dialogs,
		notifications: notifications,
		metrics:       metrics,
		logger:        logger,
		static:        newStaticHandler(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser pages may subscribe unless explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.observeRequests)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Get("/ui", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ui/", http.StatusTemporaryRedirect)
	})
	r.Handle("/ui/*", http.StripPrefix("/ui/", s.static))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Route("/v1/tasks", func(r chi.Router) {
		r.Get("/", s.handleListTasks)
		r.Post("/", s.handleCreateTask)
		r.Post("/validate", s.handleValidateTask)
		r.Get("/{id}", s.handleGetTask)
		r.Put("/{id}", s.handleUpdateTask)
		r.Delete("/{id}", s.handleDeleteTask)
		r.Put("/{id}/completion", s.handleSetCompletion)
	})

	r.Route("/v1/dialogs", func(r chi.Router) {
		r.Post("/", s.handleOpenDialog)
		r.Get("/{id}", s.handleGetDialog)
		r.Put("/{id}/fields", s.handleSetDialogFields)
		r.Post("/{id}/save", s.handleSaveDialog)
		r.Post("/{id}/cancel", s.handleCancelDialog)
		r.Post("/{id}/delete", s.handleDeleteDialog)
	})

	r.Get("/v1/notifications", s.handleListNotifications)
	r.Delete("/v1/notifications/{id}", s.handleDismissNotification)
	r.Get("/v1/notifications/ws", s.handleNotificationsWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"tasks":        s.store.Len(),
		"open_dialogs": s.dialogs.OpenCount(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"tasks":  s.store.Len(),
	})
}

func (s *Server) observeRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		if s.metrics != nil {
			s.metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(status/100)+"xx").Inc()
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

// readBody returns the raw request body, or errEmptyBody when there is none.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errEmptyBody
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errEmptyBody
	}
	return raw, nil
}

// decodeChecked reads the body, checks its shape against schema and decodes
// it into out.
func decodeChecked(r *http.Request, schema string, out any) error {
	raw, err := readBody(r)
	if err != nil {
		return err
	}
	if err := checkShape(schema, raw); err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
