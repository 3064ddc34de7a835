package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/User184/apple-signin-bridge/instrumentation"
	"github.com/User184/apple-signin-bridge/security"
	"github.com/User184/apple-signin-bridge/server"
)

// maxRequestBodySize limits callback and JSON request bodies
const maxRequestBodySize = 64 << 10

// Endpoint names used in metrics and spans
const (
	endpointCallback = "callback"
	endpointExchange = "exchange_token"
	endpointRevoke   = "revoke_token"
	endpointHealth   = "health"
)

// Route paths. Each endpoint is also served under /api for clients that
// were built against the serverless deployment.
const (
	PathCallback      = "/callback"
	PathExchangeToken = "/exchange-token"
	PathRevokeToken   = "/revoke-apple-token"
	PathHealth        = "/healthz"
	PathMetrics       = "/metrics"

	pathAPICallback      = "/api/apple-callback"
	pathAPIExchangeToken = "/api/exchange-token"
	pathAPIRevokeToken   = "/api/revoke-apple-token"
)

const messageTokenRevoked = "Token revoked successfully" //nolint:gosec // response message, not a credential

// formDecoder is implemented by request bodies that may also arrive form-encoded
type formDecoder interface {
	decodeForm(values url.Values)
}

// Handler is a thin HTTP adapter for the bridge Server.
// It handles HTTP requests and delegates to the Server for business logic.
type Handler struct {
	server  *server.Server
	logger  *slog.Logger
	proxies security.ProxyConfig
	tracer  trace.Tracer // OpenTelemetry tracer for HTTP layer
}

// NewHandler creates a new HTTP handler
func NewHandler(srv *server.Server, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		server:  srv,
		logger:  logger,
		proxies: security.ProxyConfig{
			TrustProxy:        srv.Config.TrustProxy,
			TrustedProxyCount: srv.Config.TrustedProxyCount,
		},
	}

	if srv.Instrumentation != nil {
		h.tracer = srv.Instrumentation.Tracer("http")
	}

	return h
}

// Router returns the route table for every bridge endpoint.
// Unknown paths get a JSON 404 and known paths with the wrong method a JSON 405.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(security.RequestIDMiddleware)
	r.Use(security.SecurityHeadersMiddleware(h.server.Config.PublicURL))
	r.Use(h.propagateTraceContext)
	r.Use(h.logRequests)

	for _, path := range []string{PathCallback, pathAPICallback} {
		r.HandleFunc(path, h.ServeCallback).Methods(http.MethodGet, http.MethodPost)
	}
	for _, path := range []string{PathExchangeToken, pathAPIExchangeToken} {
		r.HandleFunc(path, h.ServeExchangeToken).Methods(http.MethodPost)
	}
	for _, path := range []string{PathRevokeToken, pathAPIRevokeToken} {
		r.HandleFunc(path, h.ServeRevokeToken).Methods(http.MethodPost)
	}
	r.HandleFunc(PathHealth, h.ServeHealth).Methods(http.MethodGet)
	if inst := h.server.Instrumentation; inst != nil {
		if metrics := inst.MetricsHandler(); metrics != nil {
			r.Handle(PathMetrics, metrics).Methods(http.MethodGet)
		}
	}

	// Middleware registered with Use does not run for these two
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.recordHTTPMetrics(req.Context(), "unmatched", req.Method, http.StatusMethodNotAllowed, time.Now())
		h.writeError(w, ErrMethodNotAllowed())
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.recordHTTPMetrics(req.Context(), "unmatched", req.Method, http.StatusNotFound, time.Now())
		h.writeError(w, ErrNotFound())
	})

	return r
}

// ServeCallback handles the browser callback from Apple and redirects to the
// app's deep link. Apple uses GET for the query response mode and POST for
// form_post; JSON bodies are accepted as well.
//
// The redirect happens even when the code exchange fails, unless the server is
// configured with server.FailClosed.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	// Create span if tracing is enabled
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "bridge.http.callback")
		defer span.End()
	}

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		h.recordHTTPMetrics(ctx, endpointCallback, r.Method, http.StatusMethodNotAllowed, startTime)
		h.writeError(w, ErrMethodNotAllowed())
		return
	}

	logger := security.LoggerWithRequestID(ctx, h.logger)
	clientIP := h.clientIP(r)
	h.addSecurityAttributes(span, clientIP)

	params, err := h.callbackParameters(w, r)
	if err != nil {
		// An unreadable callback still sends the user back to the app
		logger.Warn("Callback parameters could not be parsed, redirecting without them", "error", err)
		instrumentation.RecordError(span, err)
		params = server.NewParameterSet()
	}

	result, err := h.server.HandleCallback(ctx, params, clientIP)
	if err != nil {
		apiErr := callbackError(err)
		logger.Error("Callback aborted", "status", apiErr.Status, "error", err)
		h.recordHTTPMetrics(ctx, endpointCallback, r.Method, apiErr.Status, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, apiErr)
		return
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, result.ClientID),
		attribute.Bool(instrumentation.AttrTokensAttached, result.TokensAttached),
	)
	instrumentation.AddHTTPAttributes(span, r.Method, endpointCallback, http.StatusTemporaryRedirect)
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics(ctx, endpointCallback, r.Method, http.StatusTemporaryRedirect, startTime)

	security.SetSecurityHeaders(w, h.server.Config.PublicURL)
	http.Redirect(w, r, result.Target, http.StatusTemporaryRedirect)
}

// callbackParameters reads the callback fields in the order they were sent
func (h *Handler) callbackParameters(w http.ResponseWriter, r *http.Request) (*server.ParameterSet, error) {
	if r.Method == http.MethodGet {
		return server.ParseQuery(r.URL.RawQuery), nil
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		return nil, fmt.Errorf("read callback body: %w", err)
	}
	if isJSONRequest(r) {
		return server.ParseJSONObject(bytes.NewReader(body))
	}
	return server.ParseQuery(string(body)), nil
}

// ServeExchangeToken exchanges an authorization code obtained by a native client
func (h *Handler) ServeExchangeToken(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	// Create span if tracing is enabled
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "bridge.http.exchange_token")
		defer span.End()
	}

	if r.Method != http.MethodPost {
		h.recordHTTPMetrics(ctx, endpointExchange, r.Method, http.StatusMethodNotAllowed, startTime)
		h.writeError(w, ErrMethodNotAllowed())
		return
	}

	logger := security.LoggerWithRequestID(ctx, h.logger)
	clientIP := h.clientIP(r)
	h.addSecurityAttributes(span, clientIP)

	var req ExchangeTokenRequest
	if err := h.decodeRequest(w, r, &req); err != nil {
		logger.Debug("Invalid exchange request body", "error", err)
		h.recordHTTPMetrics(ctx, endpointExchange, r.Method, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "invalid request body")
		h.writeError(w, ErrInvalidRequestBody(err))
		return
	}

	tokens, err := h.server.ExchangeCode(ctx, req.AuthorizationCode, req.IdentityToken, clientIP)
	if err != nil {
		apiErr := exchangeError(err)
		h.logAPIError(logger, "Token exchange request failed", apiErr, err)
		h.recordHTTPMetrics(ctx, endpointExchange, r.Method, apiErr.Status, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, apiErr)
		return
	}

	instrumentation.SetSpanAttributes(span, attribute.String(instrumentation.AttrClientID, tokens.ClientID))
	instrumentation.AddHTTPAttributes(span, r.Method, endpointExchange, http.StatusOK)
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics(ctx, endpointExchange, r.Method, http.StatusOK, startTime)

	h.writeJSON(w, http.StatusOK, &ExchangeTokenResponse{
		Success:      true,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		IDToken:      tokens.IDToken,
		ExpiresIn:    tokens.ExpiresIn,
	})
}

// ServeRevokeToken revokes the refresh or access token of a signed-in user
func (h *Handler) ServeRevokeToken(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	// Create span if tracing is enabled
	var span trace.Span
	if h.tracer != nil {
		ctx, span = h.tracer.Start(ctx, "bridge.http.revoke_token")
		defer span.End()
	}

	if r.Method != http.MethodPost {
		h.recordHTTPMetrics(ctx, endpointRevoke, r.Method, http.StatusMethodNotAllowed, startTime)
		h.writeError(w, ErrMethodNotAllowed())
		return
	}

	logger := security.LoggerWithRequestID(ctx, h.logger)
	clientIP := h.clientIP(r)
	h.addSecurityAttributes(span, clientIP)

	var req RevokeTokenRequest
	if err := h.decodeRequest(w, r, &req); err != nil {
		logger.Debug("Invalid revocation request body", "error", err)
		h.recordHTTPMetrics(ctx, endpointRevoke, r.Method, http.StatusBadRequest, startTime)
		instrumentation.SetSpanError(span, "invalid request body")
		h.writeError(w, ErrInvalidRequestBody(err))
		return
	}

	result, err := h.server.RevokeToken(ctx, &server.RevokeRequest{
		AuthorizationCode: req.AuthorizationCode,
		IdentityToken:     req.IdentityToken,
		RefreshToken:      req.RefreshToken,
		AccessToken:       req.AccessToken,
	}, clientIP)
	if err != nil {
		apiErr := revokeError(err)
		h.logAPIError(logger, "Token revocation request failed", apiErr, err)
		h.recordHTTPMetrics(ctx, endpointRevoke, r.Method, apiErr.Status, startTime)
		instrumentation.RecordError(span, err)
		h.writeError(w, apiErr)
		return
	}

	instrumentation.SetSpanAttributes(span,
		attribute.String(instrumentation.AttrClientID, result.ClientID),
		attribute.String(instrumentation.AttrRevokedTokenType, result.RevokedTokenType),
	)
	instrumentation.AddHTTPAttributes(span, r.Method, endpointRevoke, http.StatusOK)
	instrumentation.SetSpanSuccess(span)
	h.recordHTTPMetrics(ctx, endpointRevoke, r.Method, http.StatusOK, startTime)

	h.writeJSON(w, http.StatusOK, &RevokeTokenResponse{
		Success:          true,
		Message:          messageTokenRevoked,
		RevokedTokenType: result.RevokedTokenType,
		UsedClientID:     result.ClientID,
	})
}

// ServeHealth reports whether client assertions can be minted
func (h *Handler) ServeHealth(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	ctx := r.Context()

	if r.Method != http.MethodGet {
		h.recordHTTPMetrics(ctx, endpointHealth, r.Method, http.StatusMethodNotAllowed, startTime)
		h.writeError(w, ErrMethodNotAllowed())
		return
	}

	if err := h.server.HealthCheck(ctx); err != nil {
		h.logger.Error("Health check failed", "error", err)
		h.recordHTTPMetrics(ctx, endpointHealth, r.Method, http.StatusServiceUnavailable, startTime)
		h.writeError(w, &APIError{
			Status:  http.StatusServiceUnavailable,
			Message: MessageServiceUnavailable,
			Failure: true,
		})
		return
	}

	h.recordHTTPMetrics(ctx, endpointHealth, r.Method, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, &HealthResponse{
		Status:   "ok",
		Provider: h.server.Provider().Name(),
	})
}

// decodeRequest decodes a JSON or form-encoded body into dst.
// An empty body leaves dst zero-valued.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request, dst formDecoder) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	if mediaType(r) == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return err
		}
		dst.decodeForm(r.PostForm)
		return nil
	}

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

func isJSONRequest(r *http.Request) bool {
	return mediaType(r) == "application/json"
}

func (h *Handler) clientIP(r *http.Request) string {
	return h.proxies.ClientIP(r)
}

// addSecurityAttributes records the client IP on span when the deployment allows it
func (h *Handler) addSecurityAttributes(span trace.Span, clientIP string) {
	if inst := h.server.Instrumentation; inst != nil && inst.ShouldLogClientIPs() {
		instrumentation.AddSecurityAttributes(span, clientIP)
	}
}

// logAPIError logs server-side failures as errors and caller mistakes at debug level
func (h *Handler) logAPIError(logger *slog.Logger, msg string, apiErr *APIError, err error) {
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Error(msg, "status", apiErr.Status, "error", err)
	case len(apiErr.Attempts) > 0:
		logger.Warn(msg, "status", apiErr.Status, "attempts", len(apiErr.Attempts), "error", err)
	default:
		logger.Debug(msg, "status", apiErr.Status, "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	security.SetSecurityHeaders(w, h.server.Config.PublicURL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Debug("Failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, apiErr *APIError) {
	h.writeJSON(w, apiErr.Status, apiErr.Response())
}

// propagateTraceContext continues traces started by upstream callers
func (h *Handler) propagateTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inst := h.server.Instrumentation; inst != nil {
			ctx := inst.Propagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for request logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// logRequests logs one line per request. Only the path is logged: callback
// query strings carry authorization codes.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		security.LoggerWithRequestID(r.Context(), h.logger).Info("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// recordHTTPMetrics records HTTP request metrics (total count and duration)
func (h *Handler) recordHTTPMetrics(ctx context.Context, endpoint, method string, status int, startTime time.Time) {
	if h.server.Instrumentation == nil {
		return
	}

	duration := time.Since(startTime).Seconds() * 1000 // convert to milliseconds
	h.server.Instrumentation.Metrics().RecordHTTPRequest(ctx, method, endpoint, status, duration)
}
