package relay

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sigchat/internal/domain"
)

// maxBody caps request bodies accepted by the server.
const maxBody = 1 << 20

// Server is the in-memory relay. All state is lost when the process exits.
//
// HTTP API
//
//	POST /register              store a DeviceInfo under its UserID
//	GET  /prekey/{user}         latest DeviceInfo; its one-time pre-key is handed out once
//	POST /msg/{user}            enqueue a Parcel for {user}
//	GET  /msg/{user}?limit=N    up to N queued parcels, oldest first
//	POST /msg/{user}/ack        drop the first {"count": N} queued parcels
type Server struct {
	mu      sync.Mutex
	bundles map[domain.UserID]domain.DeviceInfo
	queues  map[domain.UserID][]domain.Parcel

	log *slog.Logger
	now func() time.Time
	mux *http.ServeMux
}

// NewServer returns an empty relay that writes its access log to log.
func NewServer(log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		bundles: make(map[domain.UserID]domain.DeviceInfo),
		queues:  make(map[domain.UserID][]domain.Parcel),
		log:     log,
		now:     time.Now,
		mux:     http.NewServeMux(),
	}
	s.mux.HandleFunc("POST /register", s.handleRegister)
	s.mux.HandleFunc("GET /prekey/{user}", s.handlePrekey)
	s.mux.HandleFunc("POST /msg/{user}", s.handleSend)
	s.mux.HandleFunc("GET /msg/{user}", s.handleFetch)
	s.mux.HandleFunc("POST /msg/{user}/ack", s.handleAck)
	return s
}

// ServeHTTP serves the relay API with an access log line per request.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	r.Body = http.MaxBytesReader(rec, r.Body, maxBody)
	s.mux.ServeHTTP(rec, r)
	s.log.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"status", rec.status,
		"bytes", rec.bytes,
		"duration", time.Since(start),
	)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var info domain.DeviceInfo
	if err := json.NewDecoder(r.Body).Decode(&info); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if info.UserID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.bundles[info.UserID] = info
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePrekey(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("user"))
	s.mu.Lock()
	info, ok := s.bundles[user]
	if ok {
		// The one-time pre-key goes to the first requester only.
		spent := info
		spent.OneTimePreKey = domain.None[domain.OneTimePreKeyPublic]()
		s.bundles[user] = spent
	}
	s.mu.Unlock()
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, info)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("user"))
	var p domain.Parcel
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if p.To != user {
		http.Error(w, "parcel recipient does not match path", http.StatusBadRequest)
		return
	}
	if p.Timestamp == 0 {
		p.Timestamp = s.now().UTC().Unix()
	}
	s.mu.Lock()
	s.queues[user] = append(s.queues[user], p)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("user"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	s.mu.Lock()
	q := s.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	out := append([]domain.Parcel{}, q...)
	s.mu.Unlock()
	writeJSON(w, out)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	user := domain.UserID(r.PathValue("user"))
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Count < 0 {
		http.Error(w, "bad count", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	q := s.queues[user]
	if req.Count >= len(q) {
		delete(s.queues, user)
	} else {
		s.queues[user] = q[req.Count:]
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}
