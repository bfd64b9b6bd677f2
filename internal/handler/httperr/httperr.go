package httperr

import (
	"net/http"

	"checkin-core/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// AbortWithDomain translates the closed domain error set into an HTTP
// response. Anything outside the set is an unexpected failure and surfaces
// as a plain 500 without leaking internals.
func AbortWithDomain(c *gin.Context, err error) {
	if de, ok := errs.AsDomain(err); ok {
		resp := Response{Status: de.Status()}
		resp.Error.Code = de.Code()
		resp.Error.Message = de.Message()
		resp.Detail = de.Detail()

		_ = c.Error(gin.Error{
			Err:  err,
			Type: gin.ErrorTypePublic,
			Meta: resp,
		})
		c.AbortWithStatusJSON(de.Status(), resp)
		return
	}
	AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
}
