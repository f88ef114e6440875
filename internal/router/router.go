package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	accountHandler "github.com/jwalitptl/metabridge-api/internal/handler/account"
	authHandler "github.com/jwalitptl/metabridge-api/internal/handler/auth"
	"github.com/jwalitptl/metabridge-api/internal/handler/health"
	predictionHandler "github.com/jwalitptl/metabridge-api/internal/handler/prediction"
	"github.com/jwalitptl/metabridge-api/internal/middleware"
)

type Router struct {
	engine      *gin.Engine
	auth        *middleware.AuthMiddleware
	userTypeHs  []*authHandler.Handler
	accountH    *accountHandler.Handler
	predictionH *predictionHandler.Handler
	healthH     *health.Handler
}

type RouterConfig struct {
	Mode           string
	RateLimit      rate.Limit
	RateBurst      int
	RateEnabled    bool
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	MetricsPrefix  string
	Registerer     prometheus.Registerer
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	userTypeHs []*authHandler.Handler,
	accountH *accountHandler.Handler,
	predictionH *predictionHandler.Handler,
	healthH *health.Handler,
	config RouterConfig,
) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	engine := gin.New()

	r := &Router{
		engine:      engine,
		auth:        auth,
		userTypeHs:  userTypeHs,
		accountH:    accountH,
		predictionH: predictionH,
		healthH:     healthH,
	}

	sizeLimit := middleware.DefaultSizeLimitConfig()
	if config.MaxBodyBytes > 0 {
		sizeLimit.MaxBodySize = config.MaxBodyBytes
	}

	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(),
	)
	if config.Registerer != nil {
		engine.Use(middleware.NewHTTPMetrics(config.Registerer, config.MetricsPrefix).Handler())
	}
	engine.Use(
		middleware.ErrorHandler(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
		middleware.SizeLimit(sizeLimit),
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
	)

	if config.RateEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

// Setup mounts every route. Only /me is behind the auth middleware.
func (r *Router) Setup() {
	r.healthH.RegisterRoutes(r.engine)

	api := r.engine.Group("/api")
	for _, h := range r.userTypeHs {
		h.RegisterRoutes(api, r.auth.Authenticate(), r.auth.RequireUserType(h.UserType()))
	}
	r.accountH.RegisterRoutes(api)
	r.predictionH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
