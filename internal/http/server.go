package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"repairhub/internal/config"
	"repairhub/internal/metrics"
	"repairhub/internal/service"
)

// Deps зависимости HTTP слоя
type Deps struct {
	Cases       *service.CaseService
	Scheduler   *service.Scheduler
	Loyalty     *service.LoyaltyService
	Eligibility *service.Eligibility
	Log         *zap.Logger
	JWT         config.JWTConfig
	RateLimit   config.RateLimitConfig
	// Ready проверка хранилища для /health/ready; nil означает всегда готов
	Ready func(ctx context.Context) error
}

type Server struct {
	engine      *gin.Engine
	cases       *service.CaseService
	scheduler   *service.Scheduler
	loyalty     *service.LoyaltyService
	eligibility *service.Eligibility
	log         *zap.Logger
	jwt         config.JWTConfig
	limiter     *RateLimiter
	readyCheck  func(ctx context.Context) error
}

func NewServer(d Deps) *Server {
	useJSONFieldNames()
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	r := gin.New()
	r.Use(RequestID(), AccessLog(log), Metrics(), gin.Recovery())
	s := &Server{
		engine:      r,
		cases:       d.Cases,
		scheduler:   d.Scheduler,
		loyalty:     d.Loyalty,
		eligibility: d.Eligibility,
		log:         log,
		jwt:         d.JWT,
		limiter:     NewRateLimiter(d.RateLimit),
		readyCheck:  d.Ready,
	}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.engine.GET("/health/live", s.live)
	s.engine.GET("/health/ready", s.ready)

	v1 := s.engine.Group("/api/v1")
	{
		v1.GET("/rewards", s.listRewards)
		v1.GET("/eligibility/:postal_code", s.limiter.Handler(), s.checkEligibility)
	}

	staff := RequireRole(RoleProfessional, RoleAdmin)
	auth := v1.Group("", JWTAuth(s.jwt))
	{
		auth.POST("/repairs", s.createRepair)
		auth.POST("/donations", s.createDonation)
		auth.POST("/orders", s.createOrder)

		cases := auth.Group("/cases")
		cases.GET("", s.listCases)
		cases.GET("/stats", s.caseStats)
		cases.GET("/:id", s.getCase)
		cases.POST("/:id/transitions", s.transitionCase)

		auth.PUT("/orders/:id/items", s.replaceOrderItems)
		auth.PUT("/donations/:id/pickup", s.setPickupDate)

		interventions := auth.Group("/repairs/:id/interventions", staff)
		interventions.POST("", s.scheduleIntervention)
		interventions.POST("/:iid/start", s.startIntervention)
		interventions.POST("/:iid/finalize", s.finalizeIntervention)
		interventions.POST("/:iid/cancel", s.cancelIntervention)
		interventions.POST("/:iid/parts", s.addPart)
		interventions.DELETE("/:iid/parts/:pid", s.removePart)

		loyalty := auth.Group("/loyalty")
		loyalty.GET("/me", s.myLoyalty)
		loyalty.GET("/:user_id", staff, s.userLoyalty)
		loyalty.POST("/events", staff, s.recordLoyaltyEvent)
	}
}

// @Summary Liveness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/live [get]
func (s *Server) live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Readiness probe
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health/ready [get]
func (s *Server) ready(c *gin.Context) {
	if s.readyCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.readyCheck(ctx); err != nil {
			s.log.Warn("readiness check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
