package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/anime-shed/veritas-go/internal/config"
	apperrors "github.com/anime-shed/veritas-go/internal/errors"
	"github.com/anime-shed/veritas-go/internal/intake"
	"github.com/anime-shed/veritas-go/internal/logger"
	"github.com/anime-shed/veritas-go/internal/observer"
	"github.com/anime-shed/veritas-go/internal/service"
	"github.com/anime-shed/veritas-go/pkg/models"
)

// SessionHeader carries the session identifier in both directions
const SessionHeader = "X-Session-ID"

const sessionKey = "session_id"

// MetricsSource exposes verification counters
type MetricsSource interface {
	GetMetrics() observer.Metrics
}

func NewHandler(svc service.VerificationService, metrics MetricsSource, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		corsMiddleware(cfg.CORSAllowedOrigins),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck(svc))
	if metrics != nil {
		r.GET("/metrics", func(c *gin.Context) {
			c.JSON(http.StatusOK, metrics.GetMetrics())
		})
	}

	v1 := r.Group("/api/v1", sessionID())
	{
		verifyChain := []gin.HandlerFunc{}
		if cfg.VerifyRateLimit > 0 {
			burst := cfg.VerifyRateBurst
			if burst < 1 {
				burst = 1
			}
			verifyChain = append(verifyChain, rateLimiter(rate.NewLimiter(rate.Limit(cfg.VerifyRateLimit), burst)))
		}
		verifyChain = append(verifyChain, verify(svc, cfg))

		v1.POST("/verify", verifyChain...)
		v1.GET("/session", getSession(svc))
		v1.POST("/session/reset", resetSession(svc))
		v1.GET("/history", listHistory(svc))
		v1.GET("/history/:id", getHistoryItem(svc))
	}

	return r
}

func verify(svc service.VerificationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		sid := c.GetString(sessionKey)
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"session_id": sid,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing verification request")

		raw, err := bindInput(c)
		if err != nil {
			respondError(c, determineStatusCode(err), "invalid request", err)
			return
		}

		result, err := svc.Verify(ctx, sid, raw)
		if err != nil {
			respondError(c, determineStatusCode(err), "verification failed", err)
			return
		}

		snap, err := svc.Snapshot(ctx, sid)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load session", err)
			return
		}

		logger.WithFields(logrus.Fields{
			"session_id":         sid,
			"verdict":            result.Verdict,
			"score":              result.Score,
			"provider":           result.Provider,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Verification completed successfully")

		c.JSON(http.StatusOK, models.VerifyResponse{Result: *result, Session: snap})
	}
}

// bindInput accepts a JSON body or a multipart form with text, url and file fields
func bindInput(c *gin.Context) (intake.RawInput, error) {
	var req models.VerifyRequest

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&req); err != nil {
			if isBodyTooLarge(err) {
				return intake.RawInput{}, err
			}
			return intake.RawInput{}, apperrors.NewValidationError("invalid request format", err)
		}
		return intake.RawInput{Text: req.Text, URL: req.URL}, nil
	}

	if err := c.ShouldBind(&req); err != nil {
		if isBodyTooLarge(err) {
			return intake.RawInput{}, err
		}
		return intake.RawInput{}, apperrors.NewValidationError("invalid form data", err)
	}
	raw := intake.RawInput{Text: req.Text, URL: req.URL}

	fh, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		if isBodyTooLarge(err) {
			return intake.RawInput{}, err
		}
		return intake.RawInput{}, apperrors.NewValidationError("invalid file upload", err)
	default:
		raw.File = &intake.FileInput{
			Filename: fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Size:     fh.Size,
			Open: func() (io.ReadCloser, error) {
				f, err := fh.Open()
				if err != nil {
					return nil, err
				}
				return f, nil
			},
		}
	}
	return raw, nil
}

func getSession(svc service.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Snapshot(c.Request.Context(), c.GetString(sessionKey))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load session", err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func resetSession(svc service.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Reset(c.Request.Context(), c.GetString(sessionKey))
		if err != nil {
			respondError(c, determineStatusCode(err), "reset failed", err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

func listHistory(svc service.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				respondError(c, http.StatusBadRequest, "invalid limit",
					apperrors.NewValidationError("limit must be a non-negative integer", err))
				return
			}
			limit = n
		}

		sid := c.GetString(sessionKey)
		items, total, err := svc.History(c.Request.Context(), sid, limit)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load history", err)
			return
		}
		if items == nil {
			items = []models.HistoryItem{}
		}
		c.JSON(http.StatusOK, models.HistoryResponse{SessionID: sid, Total: total, Items: items})
	}
}

func getHistoryItem(svc service.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		item, err := svc.HistoryItem(c.Request.Context(), c.GetString(sessionKey), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load history item", err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func healthCheck(svc service.VerificationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "available",
			"version":  "1.0.0",
			"provider": svc.ProviderName(),
			"time":     time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// Middleware and helper functions

// sessionID reads or assigns the session id and echoes it on the response
func sessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := strings.TrimSpace(c.GetHeader(SessionHeader))
		if sid == "" {
			sid = uuid.NewString()
		}
		c.Set(sessionKey, sid)
		c.Header(SessionHeader, sid)
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", SessionHeader},
		ExposeHeaders: []string{"Content-Length", SessionHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func rateLimiter(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			respondError(c, http.StatusTooManyRequests, "rate limited",
				apperrors.NewRateLimitedError("too many verification requests, slow down"))
			return
		}
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last().Err
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func determineStatusCode(err error) int {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.StatusCode
	}

	switch {
	case isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"session_id":  c.GetString(sessionKey),
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{Error: http.StatusText(code)}
	switch appErr, ok := apperrors.As(err); {
	case ok:
		resp.Type = string(appErr.Type)
		resp.Message = appErr.Message
	case isBodyTooLarge(err):
		resp.Type = string(apperrors.ErrorTypeFileTooLarge)
		resp.Message = "request body too large"
	default:
		resp.Message = fmt.Sprintf("%s: %v", message, err)
	}
	c.AbortWithStatusJSON(code, resp)
}
