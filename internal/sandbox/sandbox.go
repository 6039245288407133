package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/HerbHall/marketdesk/internal/admin"
	"github.com/HerbHall/marketdesk/internal/event"
	"github.com/HerbHall/marketdesk/internal/live"
	"github.com/HerbHall/marketdesk/internal/server"
)

const (
	maxBodyBytes  = 1 << 20
	liveBuffer    = 64
	liveWriteWait = 5 * time.Second
)

// Compile-time interface guard.
var _ server.RouteProvider = (*Sandbox)(nil)

// Option configures a Sandbox.
type Option func(*Sandbox)

// WithLogger sets the sandbox logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sandbox) { s.logger = l }
}

// WithClock overrides the time source used by operation effects.
func WithClock(now func() time.Time) Option {
	return func(s *Sandbox) { s.now = now }
}

// Sandbox serves the catalog resources from a Repository.
type Sandbox struct {
	repo   *Repository
	auth   *Auth
	bus    *event.Bus
	logger *zap.Logger
	now    func() time.Time
}

// New creates a sandbox. A nil auth serves every route without
// authentication.
func New(repo *Repository, auth *Auth, bus *event.Bus, opts ...Option) *Sandbox {
	s := &Sandbox{
		repo:   repo,
		auth:   auth,
		bus:    bus,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sandbox) Name() string { return "sandbox" }

// Routes generates list, detail and operation routes from the admin catalog.
// Resources that share an operation path (the account kinds share
// toggle-suspend) get one route that searches all of their kinds.
func (s *Sandbox) Routes() []server.Route {
	routes := []server.Route{
		{Method: http.MethodPost, Path: "/api/auth/login", Handler: s.handleLogin},
		{Method: http.MethodGet, Path: "/api/live", Handler: s.protect(s.handleLive)},
	}

	type shared struct {
		op   string
		defs []admin.Definition
	}
	var order []string
	ops := map[string]*shared{}

	for _, def := range admin.Catalog() {
		ep := def.Endpoints.WithDefaults()
		routes = append(routes, server.Route{
			Method: http.MethodGet, Path: ep.List, Handler: s.protect(s.handleList(def)),
		})
		if ep.Detail != "" {
			routes = append(routes, server.Route{
				Method: http.MethodGet, Path: ep.Detail, Handler: s.protect(s.handleGet(def)),
			})
		}
		if def.Creatable() {
			routes = append(routes, server.Route{
				Method: ep.Create.Method, Path: ep.Create.Path, Handler: s.protect(s.handleCreate(def)),
			})
		}
		for _, name := range def.Operations() {
			op, _ := ep.Operation(name)
			key := op.Method + " " + op.Path
			if sh, ok := ops[key]; ok {
				sh.defs = append(sh.defs, def)
				continue
			}
			ops[key] = &shared{op: name, defs: []admin.Definition{def}}
			order = append(order, key)
		}
	}

	for _, key := range order {
		sh := ops[key]
		method, path, _ := strings.Cut(key, " ")
		routes = append(routes, server.Route{
			Method: method, Path: path, Handler: s.protect(s.handleOperation(sh.op, sh.defs)),
		})
	}

	routes = append(routes,
		server.Route{Method: http.MethodGet, Path: admin.MessagesPath, Handler: s.protect(s.handleMessages)},
		server.Route{Method: http.MethodPost, Path: admin.MessagesPath, Handler: s.protect(s.handleSendMessage)},
	)
	for _, def := range admin.Reports() {
		routes = append(routes, server.Route{
			Method: http.MethodGet, Path: def.Path, Handler: s.protect(s.handleReport(def)),
		})
	}
	return routes
}

// protect requires a valid bearer token when authentication is enabled.
func (s *Sandbox) protect(next http.HandlerFunc) http.HandlerFunc {
	if s.auth == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			server.Unauthorized(w, "missing bearer token", r.URL.Path)
			return
		}
		if _, err := s.auth.Verify(token); err != nil {
			server.Unauthorized(w, err.Error(), r.URL.Path)
			return
		}
		next(w, r)
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse mirrors the production API: {status, message, data}.
type loginResponse struct {
	Status  bool      `json:"status"`
	Message string    `json:"message"`
	Data    loginData `json:"data"`
}

type loginData struct {
	User  Admin  `json:"user"`
	Token string `json:"token"`
}

func (s *Sandbox) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		server.NotFound(w, "authentication is disabled", r.URL.Path)
		return
	}
	var req loginRequest
	if err := decodeBody(r, &req); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	user, token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("admin logged in", zap.String("email", user.Email))
	server.WriteJSON(w, http.StatusOK, loginResponse{
		Status:  true,
		Message: "Login successful",
		Data:    loginData{User: user, Token: token},
	})
}

func (s *Sandbox) handleList(def admin.Definition) http.HandlerFunc {
	ep := def.Endpoints.WithDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		opts := ListOptions{
			Page:   atoi(q.Get(ep.PageParam)),
			Limit:  atoi(q.Get(ep.LimitParam)),
			Newest: def.NewestFirst,
		}
		filter := Filter{}
		for key := range q {
			if key == ep.PageParam || key == ep.LimitParam {
				continue
			}
			filter[key] = q.Get(key)
		}

		res, err := s.repo.List(r.Context(), def.Name, filter, opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body, err := ep.Envelope.Wrap(res.Items, res.Total, res.Page, res.Limit)
		if err != nil {
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.WriteJSON(w, http.StatusOK, body)
	}
}

func (s *Sandbox) handleGet(def admin.Definition) http.HandlerFunc {
	ep := def.Endpoints.WithDefaults()
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.repo.Get(r.Context(), def.Name, r.PathValue("id"))
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body, err := ep.Envelope.WrapItem(doc)
		if err != nil {
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.WriteJSON(w, http.StatusOK, body)
	}
}

func (s *Sandbox) handleOperation(op string, defs []admin.Definition) http.HandlerFunc {
	kinds := make([]string, len(defs))
	byKind := make(map[string]admin.Definition, len(defs))
	for i, d := range defs {
		kinds[i] = d.Name
		byKind[d.Name] = d
	}
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{}
		if err := decodeBody(r, &payload); err != nil {
			server.BadRequest(w, err.Error(), r.URL.Path)
			return
		}

		doc, kind, err := s.repo.Find(r.Context(), r.PathValue("id"), kinds...)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := applyOperation(op, kind, doc, payload, s.now()); err != nil {
			s.writeError(w, r, err)
			return
		}
		if err := s.repo.Put(r.Context(), kind, doc); err != nil {
			s.writeError(w, r, err)
			return
		}

		s.logger.Info("operation applied",
			zap.String("resource", kind),
			zap.String("id", doc.ID()),
			zap.String("operation", op),
		)
		s.publish(r.Context(), kind, doc)
		s.record(r.Context(), kind, op)

		ep := byKind[kind].Endpoints.WithDefaults()
		envelope := ep.Envelope
		if o, _ := ep.Operation(op); o.Item != "" {
			envelope.Item = o.Item
		}
		body, err := envelope.WrapItem(doc)
		if err != nil {
			server.InternalError(w, err.Error(), r.URL.Path)
			return
		}
		server.WriteJSON(w, http.StatusOK, body)
	}
}

// publish announces a changed document on the bus.
func (s *Sandbox) publish(ctx context.Context, kind string, doc Document) {
	if s.bus == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("encode update", zap.Error(err))
		return
	}
	_ = s.bus.Publish(ctx, event.Event{
		Topic:  live.TopicResourceUpdated,
		Source: s.Name(),
		Payload: live.Message{
			Topic:    live.TopicResourceUpdated,
			Resource: kind,
			Item:     raw,
		},
	})
}

// handleLive streams resource updates over a websocket until the client
// disconnects. Slow clients drop updates rather than block publishers.
func (s *Sandbox) handleLive(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		server.NotFound(w, "live updates are disabled", r.URL.Path)
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket accept failed", zap.Error(err))
		return
	}
	defer func() { _ = conn.CloseNow() }()

	updates := make(chan live.Message, liveBuffer)
	unsubscribe := s.bus.Subscribe(live.TopicResourceUpdated, func(_ context.Context, e event.Event) {
		msg, ok := e.Payload.(live.Message)
		if !ok {
			return
		}
		select {
		case updates <- msg:
		default:
			s.logger.Warn("live client too slow, update dropped", zap.String("resource", msg.Resource))
		}
	})
	defer unsubscribe()

	ctx := conn.CloseRead(r.Context())
	s.logger.Debug("live client connected", zap.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-updates:
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, liveWriteWait)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.logger.Debug("live client write failed", zap.Error(err))
				return
			}
		}
	}
}

func (s *Sandbox) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.NotFound(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrBadFilter):
		server.BadRequest(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrConflict):
		server.Conflict(w, err.Error(), r.URL.Path)
	case errors.Is(err, ErrInvalidCredentials):
		server.Unauthorized(w, err.Error(), r.URL.Path)
	default:
		s.logger.Error("sandbox request failed", zap.String("path", r.URL.Path), zap.Error(err))
		server.InternalError(w, "internal error", r.URL.Path)
	}
}

// decodeBody decodes a JSON request body. An empty body leaves v unchanged.
func decodeBody(r *http.Request, v any) error {
	data, err := readBody(r)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
