package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict

	"telemetry-dashboard/internal/auth"
	"telemetry-dashboard/internal/data"
	"telemetry-dashboard/internal/websocket"
)

const (
	maxPacketBytes = 1 << 20
	submitTimeout  = 5 * time.Second
)

// Snapshotter is the read side of the telemetry store.
type Snapshotter interface {
	Snapshot() data.Telemetry
}

// Ingester queues work for the single apply goroutine.
type Ingester interface {
	Submit(ctx context.Context, raw []byte) error
	Reset(ctx context.Context) error
}

type APIHandler struct {
	store    Snapshotter
	ingest   Ingester
	hub      *websocket.Hub
	auth     *auth.AuthManager
	upgrader gwebsocket.Upgrader
	origins  []string
	webDir   string
	logger   *log.Logger
}

func NewAPIHandler(store Snapshotter, ingest Ingester, hub *websocket.Hub, am *auth.AuthManager, webDir string, allowedOrigins []string, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = log.Default()
	}
	return &APIHandler{
		store:  store,
		ingest: ingest,
		hub:    hub,
		auth:   am,
		upgrader: gwebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		origins: allowedOrigins,
		webDir:  webDir,
		logger: logger,
	}
}

// checkOrigin allows every origin when none are configured. Otherwise
// same-origin pages and the listed origins are accepted.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		for _, a := range allowed {
			if strings.EqualFold(a, origin) || strings.EqualFold(a, u.Host) {
				return true
			}
		}
		return false
	}
}

// Authenticate guards a handler with the API key check.
func (h *APIHandler) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return h.auth.APIKeyMiddleware(next).ServeHTTP
}

// HandleDataIngest accepts one telemetry packet from the car uplink and
// queues it for the store.
func (h *APIHandler) HandleDataIngest(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPacketBytes))
	if err != nil {
		h.logger.Printf("Error reading request body: %v", err)
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Reject what the dispatcher would drop anyway, so the sender sees it.
	if _, err := data.Parse(body); err != nil {
		h.logger.Printf("Error parsing packet: %v", err)
		http.Error(w, "Bad Request: Cannot parse packet", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if err := h.ingest.Submit(ctx, body); err != nil {
		h.logger.Printf("Error queueing packet: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HandleWebSocket upgrades connections and registers clients with the hub.
// The hub sends the initial data packet.
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	if !h.hub.RegisterClient(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()

	h.logger.Printf("WebSocket connection established: %s (%s)", client.RemoteAddr(), client.ID)
}

// HandleHistorical returns the current metric and historic state.
func (h *APIHandler) HandleHistorical(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Snapshot())
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *APIHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	role, err := h.auth.AuthenticateUser(req.Username, req.Password)
	if err != nil {
		h.logger.Printf("Login failed for %q: %v", req.Username, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := h.auth.GenerateJWT(req.Username, role)
	if err != nil {
		h.logger.Printf("Error generating token: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "role": role})
}

// HandleReset restores the power-on defaults; clients receive a data packet.
func (h *APIHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), submitTimeout)
	defer cancel()
	if err := h.ingest.Reset(ctx); err != nil {
		h.logger.Printf("Error resetting store: %v", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if user, _, ok := auth.UserFromContext(r.Context()); ok {
		h.logger.Printf("Telemetry state reset by %s", user)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *APIHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeWebUI serves the built dashboard's index page.
func (h *APIHandler) ServeWebUI(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(h.webDir, "index.html")
	http.ServeFile(w, r, index)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
