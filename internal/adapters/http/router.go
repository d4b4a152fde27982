package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/document-approval/internal/adapters/http/openapi"
	"github.com/kirillkom/document-approval/internal/config"
	"github.com/kirillkom/document-approval/internal/core/domain"
	"github.com/kirillkom/document-approval/internal/core/ports"
	"github.com/kirillkom/document-approval/internal/observability/logging"
	"github.com/kirillkom/document-approval/internal/observability/metrics"
)

const defaultMaxBodyBytes = 4 << 20

// TokenVerifier resolves a bearer token into the acting identity.
type TokenVerifier interface {
	Verify(token string) (domain.Actor, error)
}

type Dependencies struct {
	Submitter ports.DocumentSubmitter
	Workflow  ports.ApprovalWorkflow
	Reader    ports.DocumentReader
	Inbox     ports.NotificationInbox
	Tokens    TokenVerifier
	Metrics   *metrics.HTTPServerMetrics
	// Ready reports whether downstream dependencies are reachable; nil means always ready.
	Ready func(context.Context) error
}

type Router struct {
	cfg      config.Config
	deps     Dependencies
	contract *openapi3.T

	maxBodyBytes int64
}

func NewRouter(cfg config.Config, deps Dependencies) (*Router, error) {
	if deps.Tokens == nil {
		return nil, errors.New("http router: token verifier is required")
	}
	contract, err := openapi.Load(context.Background())
	if err != nil {
		return nil, fmt.Errorf("http router: %w", err)
	}
	maxBody := cfg.APIMaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}
	return &Router{cfg: cfg, deps: deps, contract: contract, maxBodyBytes: maxBody}, nil
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPIDocument)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.authenticated(rt.submitDocument))
	mux.HandleFunc("GET /v1/documents/{documentId}", rt.authenticated(rt.getDocument))
	mux.HandleFunc("POST /v1/documents/{documentId}/submit", rt.authenticated(rt.submitDraft))
	mux.HandleFunc("POST /v1/documents/{documentId}/resubmit", rt.authenticated(rt.resubmitDocument))
	mux.HandleFunc("POST /v1/documents/{documentId}/validate", rt.authenticated(rt.validateDocument))
	mux.HandleFunc("GET /v1/documents/{documentId}/audit", rt.authenticated(rt.listAudit))
	mux.HandleFunc("GET /v1/documents/{documentId}/audit.xlsx", rt.authenticated(rt.exportAudit))

	mux.HandleFunc("POST /v1/approvals/{approvalId}/sign", rt.authenticated(rt.signApproval))
	mux.HandleFunc("POST /v1/approvals/{approvalId}/confirm", rt.authenticated(rt.confirmApproval))
	mux.HandleFunc("POST /v1/approvals/{approvalId}/reject", rt.authenticated(rt.rejectApproval))
	mux.HandleFunc("POST /v1/approvals/{approvalId}/revision", rt.authenticated(rt.requestRevision))
	mux.HandleFunc("GET /v1/approvals/{approvalId}/signature", rt.authenticated(rt.getSignature))

	mux.HandleFunc("GET /v1/notifications", rt.authenticated(rt.listNotifications))
	mux.HandleFunc("POST /v1/notifications/{notificationId}/read", rt.authenticated(rt.markNotificationRead))

	var h http.Handler = mux
	if rt.deps.Metrics != nil {
		h = rt.deps.Metrics.Middleware(h)
	}
	h = backpressureMiddleware(h, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	h = rateLimitMiddleware(h, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	h = accessLogMiddleware(h)
	return requestIDMiddleware(h)
}

type actorHandler func(w http.ResponseWriter, r *http.Request, actor domain.Actor)

func (rt *Router) authenticated(next actorHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			writeError(w, r, domain.WrapError(domain.ErrUnauthenticated, "authenticate", errors.New("missing bearer token")))
			return
		}
		actor, err := rt.deps.Tokens.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next(w, r.WithContext(logging.WithActorID(r.Context(), actor.UserID)), actor)
	}
}

func bearerToken(headerValue string) (string, bool) {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if len(headerValue) <= len(bearerPrefix) || !strings.EqualFold(headerValue[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(headerValue[len(bearerPrefix):])
	return token, token != ""
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Ready != nil {
		if err := rt.deps.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPIDocument(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openapi.Raw())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
