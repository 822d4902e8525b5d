package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/PadhikariDev/querynest/internal/model"
)

type ClientConfig struct {
	// BaseURL is the backend root, e.g. "http://localhost:5000".
	BaseURL string
	// Token is sent as a bearer token on every request.
	Token string
	// HTTPClient is used for all requests. If nil, one with Timeout is built.
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     zerolog.Logger
}

// Client talks to the QueryNest users API. Every request carries the bearer
// token; cookies are never used.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger

	mu    sync.RWMutex
	token string
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("directory: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("directory: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("component", "directory").Logger(),
		token:      cfg.Token,
	}, nil
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Login exchanges credentials for a token and keeps it for later requests.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, validationError("login", "email and password are required")
	}
	var resp model.AuthResponse
	err := c.do(ctx, "login", http.MethodPost, "/api/users/login",
		model.LoginRequest{Email: strings.TrimSpace(email), Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Token == "" {
		return nil, &Error{Kind: KindAuth, Op: "login", Message: "backend returned no token"}
	}
	c.SetToken(resp.Token)
	c.logger.Info().Str("user", resp.UserName).Msg("logged in")
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req model.RegisterRequest) error {
	req.UserName = strings.TrimSpace(req.UserName)
	req.Email = strings.TrimSpace(req.Email)
	if req.UserName == "" || req.Email == "" || req.Password == "" {
		return validationError("register", ErrMissingFields)
	}
	return c.do(ctx, "register", http.MethodPost, "/api/users/register", req, nil)
}

func (c *Client) Me(ctx context.Context) (*model.Identity, error) {
	var id model.Identity
	if err := c.do(ctx, "me", http.MethodGet, "/api/users/me", nil, &id); err != nil {
		return nil, err
	}
	return &id, nil
}

// MyQueries returns the queries the backend shows the current actor, with
// defaults applied.
func (c *Client) MyQueries(ctx context.Context) ([]model.Query, error) {
	var list model.QueryList
	if err := c.do(ctx, "my-queries", http.MethodGet, "/api/users/my-queries", nil, &list); err != nil {
		return nil, err
	}
	for i := range list.Queries {
		list.Queries[i].Normalize()
	}
	if list.Queries == nil {
		list.Queries = []model.Query{}
	}
	return list.Queries, nil
}

func (c *Client) AllUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := c.do(ctx, "all-users", http.MethodGet, "/api/users/allUsers", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) AddQuery(ctx context.Context, req model.AddQueryRequest) error {
	return c.do(ctx, "add-query", http.MethodPost, "/api/users/add-query", req, nil)
}

// do performs one JSON request. A non-nil out receives the decoded body of a
// 2xx response.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: KindNetwork, Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn().Err(err).Str("op", op).Msg("request failed")
		return &Error{Kind: KindNetwork, Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug().
		Str("op", op).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		kind := KindNetwork
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			kind = KindAuth
		}
		return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Message: serverMessage(respBody)}
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &Error{Kind: KindNetwork, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// serverMessage pulls the message or error field out of an error body.
func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return strings.TrimSpace(string(body))
}
