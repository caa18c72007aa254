package config

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var Log *zap.Logger

// InitLogger builds the process-wide zap logger. Development encoding when
// APP_ENV is not production.
func InitLogger() *zap.Logger {
	var err error
	if os.Getenv("APP_ENV") == "production" {
		Log, err = zap.NewProduction()
	} else {
		Log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic("failed to build logger")
	}
	return Log
}

// RequestLogger logs every request with status and latency, flagging slow ones.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
		}
		if latency > 200*time.Millisecond {
			log.Warn("slow request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}
