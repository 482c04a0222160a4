// Package server exposes the report facade over HTTP. Responses use the
// { success, data } envelope the dashboard clients already consume.
package server

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/partnerpulse/engine/internal/report"
)

// NewRouter builds the gin engine serving the report API. An empty origins
// list allows all origins.
func NewRouter(svc *report.Service, origins []string) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), RequestLogger(), gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(origins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = origins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/dashboard", handleDashboard(svc))
	api.GET("/metrics", handleMetrics(svc))
	api.GET("/country-metrics", handleCountryMetrics(svc))
	api.GET("/tier-distribution", handleTierDistribution(svc))
	api.GET("/tier-progress", handleTierProgress(svc))
	api.GET("/summary", handleSummary(svc))
	api.GET("/cache/stats", handleCacheStats(svc))
	api.POST("/cache/clear", handleCacheClear(svc))

	return r
}

func ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

func handleDashboard(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ds, err := svc.Load(c.Request.Context())
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, ds)
	}
}

func handleMetrics(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.Metrics(c.Request.Context(), c.Query("partner_id"))
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, m)
	}
}

func handleCountryMetrics(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.CountryMetrics(c.Request.Context(), c.Query("partner_id"))
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, m)
	}
}

func handleTierDistribution(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.TierDistribution(c.Request.Context(), c.Query("partner_id"))
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, m)
	}
}

func handleTierProgress(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.TierProgress(c.Request.Context(), c.Query("partner_id"))
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, m)
	}
}

func handleSummary(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		m, err := svc.Summary(c.Request.Context())
		if err != nil {
			fail(c, http.StatusBadGateway, err)
			return
		}
		ok(c, m)
	}
}

func handleCacheStats(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok(c, svc.CacheStats())
	}
}

func handleCacheClear(svc *report.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc.ClearCache()
		ok(c, gin.H{"cleared": true})
	}
}
