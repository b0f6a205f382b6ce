package middleware

import (
	"strconv"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
)

// Telemetry attaches a Sentry hub to every request. Panics are re-raised so
// gin's recovery still answers the client.
func Telemetry() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
	})
}

// TagProbe marks health probe transactions so they can be filtered out.
func TagProbe() gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.Scope().SetTag("transaction_type", "health_check")
		}
		c.Next()
	}
}

// RecordError reports err on the request's hub, tagged with the caller when
// one is authenticated.
func RecordError(c *gin.Context, err error, operation string) {
	hub := sentrygin.GetHubFromContext(c)
	if hub == nil || err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("operation", operation)
		scope.SetTag("route", c.FullPath())
		if id := UserID(c); id > 0 {
			scope.SetUser(sentry.User{ID: strconv.FormatInt(id, 10)})
		}
		if reqID := c.GetString(ContextRequestID); reqID != "" {
			scope.SetTag("request_id", reqID)
		}
		hub.CaptureException(err)
	})
	if span := sentry.TransactionFromContext(c.Request.Context()); span != nil {
		span.Status = sentry.SpanStatusInternalError
	}
}

// AddBreadcrumb records a step of the current request on its hub.
func AddBreadcrumb(c *gin.Context, category, message string) {
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.AddBreadcrumb(&sentry.Breadcrumb{
			Category: category,
			Message:  message,
			Level:    sentry.LevelInfo,
		}, nil)
	}
}
