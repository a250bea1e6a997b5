package handler

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"productreviews/pkg/logger"
	"productreviews/pkg/metrics"
)

// SetupRoutes собирает gin router сервиса отзывов
// allowedOrigins: "*" разрешает любой Origin
func SetupRoutes(reviewHandler *ReviewHandler, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())

	// JSON logging middleware для HTTP-запросов (ELK Stack)
	router.Use(logger.GinLoggerMiddleware())

	router.Use(metrics.GinPrometheusMiddleware("reviews-service"))

	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", reviewHandler.HealthCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	reviews := router.Group("/reviews")
	{
		reviews.POST("", reviewHandler.CreateReview)
		reviews.GET("/:review_id", reviewHandler.GetReview)
		reviews.PUT("/:review_id", reviewHandler.UpdateReview)
		reviews.PATCH("/:review_id", reviewHandler.UpdateReview)
		reviews.DELETE("/:review_id", reviewHandler.DeleteReview)
	}

	router.GET("/products/:product_id/reviews", reviewHandler.GetReviewsByProduct)
	router.GET("/users/:user_id/reviews", reviewHandler.GetUserReviews)

	return router
}

func corsConfig(allowedOrigins []string) cors.Config {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders: []string{logger.RequestIDHeader},
		MaxAge:        300,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			config.AllowAllOrigins = true
			return config
		}
	}

	if len(allowedOrigins) == 0 {
		config.AllowAllOrigins = true
		return config
	}

	config.AllowOrigins = allowedOrigins
	return config
}
