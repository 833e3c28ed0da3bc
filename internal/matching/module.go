// Package matching provides the match allocation bounded context: scoring
// legal-aid cases against approved providers, generating ranked offers, and
// coordinating the citizen/provider decision lifecycle through acceptance.
package matching

import (
	directoryrepo "legalaid_backend/internal/directory/repository"
	"legalaid_backend/internal/events"
	apphttp "legalaid_backend/internal/http"
	"legalaid_backend/internal/matching/handler"
	"legalaid_backend/internal/matching/repository"
	"legalaid_backend/internal/matching/scoring"
	"legalaid_backend/internal/matching/service"
	"legalaid_backend/platform/config"
	"legalaid_backend/platform/httpkit"
	"legalaid_backend/platform/logger"
	"legalaid_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the matching bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the matching module with all its dependencies.
// Scoring weights come compiled in; a weights file configured through
// MatchingConfig overrides them for tuning.
func NewModule(pool *pgxpool.Pool, directory directoryrepo.Repository, bus events.Bus, val *validator.Validator, log *logger.Logger, cfg config.MatchingConfig) (*Module, error) {
	weights := scoring.DefaultWeights()
	if path := cfg.GetScoringWeightsPath(); path != "" {
		loaded, err := scoring.LoadWeights(path)
		if err != nil {
			return nil, err
		}
		weights = loaded
	}

	repo := repository.New(pool)
	svc := service.New(repo, directory, scoring.New(weights), bus, log, service.Options{
		ScoreThreshold: cfg.GetMatchScoreThreshold(),
		LockTimeout:    cfg.GetMatchLockTimeout(),
	})
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "matching"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts match allocation routes on the provided router context.
// Citizens drive generation and selection; providers answer assignments.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	citizen := httpkit.RequireRole(httpkit.RoleCitizen)
	provider := httpkit.RequireRole(httpkit.RoleProvider)

	cases := ctx.Protected.Group("/cases")
	cases.POST("/:id/matches", citizen, m.handler.GenerateMatches)
	cases.GET("/:id/matches/pending", citizen, m.handler.ListPendingMatches)

	matches := ctx.Protected.Group("/matches")
	matches.POST("/:id/select", citizen, m.handler.SelectMatch)
	matches.POST("/:id/reject", citizen, m.handler.RejectMatch)
	matches.POST("/:id/accept", provider, m.handler.AcceptAssignment)
	matches.POST("/:id/decline", provider, m.handler.DeclineAssignment)

	ctx.Protected.GET("/assignments", provider, m.handler.ListAssignedCases)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
