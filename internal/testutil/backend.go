// Package testutil provides an in-process stand-in for the QueryNest users
// API, for tests of the packages that call it.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/PadhikariDev/querynest/internal/model"
)

// Backend serves the users API from in-memory fixtures. Fields may be set
// before Start; use the accessors once requests are in flight.
type Backend struct {
	Queries  []model.Query
	Users    []model.User
	Identity model.Identity
	// Token, when set, is the only bearer token accepted.
	Token string
	// Password is accepted for any email at /login.
	Password string
	// FailStatus forces every request to fail with this status.
	FailStatus int

	mu        sync.Mutex
	submitted []model.AddQueryRequest
	requests  map[string]int
}

func NewBackend() *Backend {
	return &Backend{Password: "secret", requests: make(map[string]int)}
}

// Start serves the backend until the test ends.
func (b *Backend) Start(t testing.TB) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func (b *Backend) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(b.count)
	r.Use(b.failing)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/login", b.login)
		r.Post("/register", b.register)

		r.Group(func(r chi.Router) {
			r.Use(b.auth)
			r.Get("/me", b.me)
			r.Get("/my-queries", b.myQueries)
			r.Get("/allUsers", b.allUsers)
			r.Post("/add-query", b.addQuery)
		})
	})
	return r
}

// Submitted returns the queries received at /add-query.
func (b *Backend) Submitted() []model.AddQueryRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.AddQueryRequest(nil), b.submitted...)
}

// Requests returns how many requests hit path.
func (b *Backend) Requests(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests[path]
}

func (b *Backend) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests[r.URL.Path]++
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) failing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.FailStatus != 0 {
			writeJSON(w, b.FailStatus, map[string]string{"error": "backend unavailable"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if b.Token != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != b.Token {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if in.Password != b.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, model.AuthResponse{
		Token:    b.Token,
		UserName: b.Identity.UserName,
		Role:     b.Identity.Role,
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	for _, u := range b.Users {
		if strings.EqualFold(u.Email, in.Email) {
			writeJSON(w, http.StatusConflict, map[string]string{"message": "user already exists"})
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "User created Successfully"})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	if b.Identity.UserName == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not logged in"})
		return
	}
	writeJSON(w, http.StatusOK, b.Identity)
}

func (b *Backend) myQueries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.QueryList{Queries: b.Queries})
}

func (b *Backend) allUsers(w http.ResponseWriter, r *http.Request) {
	users := b.Users
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (b *Backend) addQuery(w http.ResponseWriter, r *http.Request) {
	var in model.AddQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	b.mu.Lock()
	b.submitted = append(b.submitted, in)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Query submitted"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
