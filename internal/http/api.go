package http

import (
	"log/slog"
	"net/http"

	"github.com/Flarenzy/vpc-cidr-allocator/internal/auth"
	"github.com/Flarenzy/vpc-cidr-allocator/internal/domain"
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultOperatorRole is the role a caller needs for manual claims when auth
// is enabled.
const DefaultOperatorRole = "network-operator"

type API struct {
	Logger        *slog.Logger
	health        domain.HealthChecker
	service       domain.Allocator
	authenticator auth.Authenticator
	operatorRole  string
	metrics       http.Handler
}

func NewAPI(logger *slog.Logger, health domain.HealthChecker, service domain.Allocator, authenticator auth.Authenticator) *API {
	return &API{
		Logger:        logger,
		health:        health,
		service:       service,
		authenticator: authenticator,
		operatorRole:  DefaultOperatorRole,
	}
}

// WithOperatorRole overrides the role required for manual claims.
func (a *API) WithOperatorRole(role string) *API {
	if role != "" {
		a.operatorRole = role
	}
	return a
}

// WithMetrics serves h on /metrics.
func (a *API) WithMetrics(h http.Handler) *API {
	a.metrics = h
	return a
}

func (a *API) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/readyz", a.handleReadyz)
	mux.HandleFunc("POST /api/v1/allocations", a.handleAllocate)
	mux.HandleFunc("POST /api/v1/allocations/manual", a.requireRole(a.handleClaimExact))
	mux.HandleFunc("GET /api/v1/blocks", a.handleListBlocks)
	mux.HandleFunc("GET /api/v1/audit", a.handleAudit)
	mux.Handle("/swagger/", httpSwagger.WrapHandler)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}

	return a.authMiddleware(mux)
}
