// Package rest wires the HTTP API over the pipeline services.
package rest

import (
	"net/http"

	"github.com/atelier-ai/atelier/internal/database"
	"github.com/atelier-ai/atelier/internal/feedback"
	"github.com/atelier-ai/atelier/internal/generate"
	"github.com/atelier-ai/atelier/internal/ingest"
	"github.com/atelier-ai/atelier/internal/learn/bandit"
	"github.com/atelier-ai/atelier/internal/learn/rlhf"
	"github.com/atelier-ai/atelier/internal/profile"
	"github.com/atelier-ai/atelier/internal/redis"
	"github.com/atelier-ai/atelier/internal/rest/handler"
	"github.com/atelier-ai/atelier/internal/rest/middleware/ratelimit"
	"github.com/atelier-ai/atelier/internal/selector"
	"github.com/atelier-ai/atelier/internal/setup/config"
	"github.com/klauspost/compress/gzhttp"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Deps bundles the services the API exposes.
type Deps struct {
	DB           database.Client
	RedisManager *redis.Manager
	Pipeline     *ingest.Pipeline
	Profiles     *profile.Aggregator
	Orchestrator *generate.Orchestrator
	Selector     *selector.Selector
	Feedback     *feedback.Processor
	Bandit       *bandit.Store
	RLHF         *rlhf.Store
}

// Server implements the REST API service.
type Server struct {
	portfolioHandler *handler.PortfolioHandler
	profileHandler   *handler.ProfileHandler
	generateHandler  *handler.GenerateHandler
	feedbackHandler  *handler.FeedbackHandler
	learningHandler  *handler.LearningHandler
}

// NewServer creates the REST API handler tree.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) (http.Handler, error) {
	server := &Server{
		portfolioHandler: handler.NewPortfolioHandler(deps.DB, deps.Pipeline, logger),
		profileHandler:   handler.NewProfileHandler(deps.DB, deps.Profiles, logger),
		generateHandler: handler.NewGenerateHandler(
			deps.DB, deps.Orchestrator, deps.Selector, deps.Profiles,
			cfg.Server.Pipeline.DailyBudgetCents, logger,
		),
		feedbackHandler: handler.NewFeedbackHandler(deps.Feedback, logger),
		learningHandler: handler.NewLearningHandler(deps.Bandit, deps.RLHF, logger),
	}

	ratelimitClient, err := deps.RedisManager.GetClient(redis.RatelimitDBIndex)
	if err != nil {
		return nil, err
	}

	rateLimiter := ratelimit.New(ratelimitClient, &cfg.Server.RateLimit, logger)

	router := bunrouter.New()

	router.Use(rateLimiter.AsRESTMiddleware).WithGroup("/v1", func(g *bunrouter.Group) {
		g.POST("/portfolios", server.portfolioHandler.Upload)
		g.GET("/portfolios/:id", server.portfolioHandler.Status)
		g.POST("/portfolios/:id/images", server.portfolioHandler.AddImages)
		g.GET("/portfolio", server.portfolioHandler.Active)
		g.GET("/profile", server.profileHandler.Get)
		g.POST("/profile/refresh", server.profileHandler.Refresh)
		g.POST("/generations", server.generateHandler.Create)
		g.GET("/generations", server.generateHandler.List)
		g.GET("/prompts", server.generateHandler.ListPrompts)
		g.POST("/feedback", server.feedbackHandler.Create)
		g.GET("/learning/bandit", server.learningHandler.BanditSnapshot)
		g.GET("/learning/weights", server.learningHandler.TokenWeights)
	})

	router.GET("/healthz", func(w http.ResponseWriter, req bunrouter.Request) error {
		return bunrouter.JSON(w, map[string]string{"status": "ok"})
	})

	return gzhttp.GzipHandler(router), nil
}
