package middleware

import (
	"log/slog"
	"net/http"

	"checkin-core/internal/handler/httperr"
	"checkin-core/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		// Search backward through the error stack
		for i := len(c.Errors) - 1; i >= 0; i-- {
			err := c.Errors[i]

			if err.IsType(gin.ErrorTypePublic) {
				// Public: Meta ⇒ Return as is
				if resp, ok := err.Meta.(httperr.Response); ok {
					logInvariant(c, err.Err, resp)
					c.JSON(resp.Status, resp)
					return
				}
			}
		}
		if status := c.Writer.Status(); status != http.StatusOK {
			c.Status(status)
			c.Writer.WriteHeaderNow()
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "Internal server error"}})
	}
}

// logInvariant makes sure reservation-pipeline postcondition failures land in
// the log with full diagnostic context, never just as an anonymous 500.
func logInvariant(c *gin.Context, err error, resp httperr.Response) {
	if de, ok := errs.AsDomain(err); ok && de.Kind() == errs.KindInvariant {
		slog.Error("invariant violation",
			"code", de.Code(),
			"detail", de.Detail(),
			"path", c.Request.URL.Path,
			"stack", errs.ExtractStackLines(err, 10),
		)
	} else if resp.Status >= 500 {
		slog.Error("request failed", "path", c.Request.URL.Path, "error", err.Error())
	}
}

func CustomRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("recovered from panic", "error", err, "path", c.Request.URL.Path)

				resp := httperr.Response{Status: http.StatusInternalServerError}
				resp.Error.Message = "Internal server error"

				c.JSON(http.StatusInternalServerError, resp)
				c.Abort()
			}
		}()
		c.Next()
	}
}
