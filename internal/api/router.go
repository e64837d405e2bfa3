package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/navojoa/electoral-map/internal/config"
	"github.com/navojoa/electoral-map/internal/handler"
	"github.com/navojoa/electoral-map/internal/importer"
	"github.com/navojoa/electoral-map/internal/metrics"
	"github.com/navojoa/electoral-map/internal/middleware"
	"github.com/navojoa/electoral-map/internal/service"
	"github.com/navojoa/electoral-map/internal/session"
)

// Services 路由依赖的服务
type Services struct {
	Persons  *service.PersonService
	Sections *service.SectionService
	Maps     *service.MapService
	Sessions *session.Store
	Limiter  *middleware.RateLimiter
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, svc Services, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger), middleware.Metrics())
	if svc.Limiter != nil {
		r.Use(middleware.RateLimit(svc.Limiter))
	}

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Electoral map API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	persons := handler.NewPersonHandler(svc.Persons, logger)
	sections := handler.NewSectionHandler(svc.Sections, svc.Persons, cfg.SectionFallbackKm, logger)
	maps := handler.NewMapHandler(svc.Maps, logger)
	searches := handler.NewSearchHandler(svc.Persons, logger)
	sessions := handler.NewSessionHandler(svc.Sessions, logger)
	imports := handler.NewImportHandler(importer.New(svc.Persons, logger), logger)

	// 写操作需要 JWT（未配置密钥时放行）
	auth := middleware.RequireJWT(cfg.JWTSecret)

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 人员接口
		p := api.Group("/persons")
		{
			p.GET("", persons.GetPersons)
			p.GET("/hierarchy", persons.GetHierarchy)
			p.GET("/:id", persons.GetPerson)
			p.POST("", auth, persons.CreatePerson)
			p.POST("/import", auth, imports.ImportPersons)
			p.PUT("/:id", auth, persons.UpdatePerson)
			p.PUT("/:id/location", auth, persons.UpdateLocation)
			p.DELETE("/:id", auth, persons.DeletePerson)
		}

		// 选区接口
		s := api.Group("/sections")
		{
			s.GET("", sections.GetStats)
			s.POST("/stats", sections.AggregateStats)
			s.GET("/overview", sections.GetOverview)
			s.GET("/geojson", sections.GetGeoJSON)
			s.POST("/assign", auth, sections.AssignSections)
		}

		// 地图接口
		m := api.Group("/map")
		{
			m.GET("/geojson", maps.GetGeoJSON)
			m.GET("/layers", maps.GetLayers)
			m.GET("/clusters", maps.GetClusters)
			m.GET("/clusters/:id/expansion", maps.GetExpansionZoom)
			m.GET("/icons", maps.GetIcons)
			m.GET("/icons/:name", maps.GetIcon)

			// 地图会话
			ms := m.Group("/sessions")
			{
				ms.POST("", sessions.CreateSession)
				ms.GET("/:id", sessions.GetSession)
				ms.POST("/:id/events", auth, sessions.PostEvent)
				ms.DELETE("/:id", sessions.DeleteSession)
			}
		}

		api.GET("/search", searches.Search)
	}

	return r
}
