package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"kvmd-streamer-go/internal/domain/params"
	apperrors "kvmd-streamer-go/internal/platform/errors"
	"kvmd-streamer-go/internal/platform/logging"
)

// Envelope 定义统一的接口返回结构体
type Envelope struct {
	OK     bool `json:"ok"`
	Result any  `json:"result"`
}

// ErrorResult is the result of a failed request.
type ErrorResult struct {
	Error    string `json:"error"`
	ErrorMsg string `json:"error_msg"`
}

const (
	errorValidator   = "ValidatorError"
	errorUnavailable = "UnavailableError"
)

// RespondJSON writes result in the envelope; ok is true only for 200.
func RespondJSON(c *gin.Context, status int, result any) {
	if result == nil {
		result = gin.H{}
	}
	c.JSON(status, Envelope{OK: status == http.StatusOK, Result: result})
}

// RespondOK 返回成功响应
func RespondOK(c *gin.Context, result any) {
	RespondJSON(c, http.StatusOK, result)
}

// RespondBody writes raw bytes with the given headers and content type.
func RespondBody(c *gin.Context, contentType string, headers map[string]string, body []byte) {
	for name, value := range headers {
		c.Header(name, value)
	}
	c.Data(http.StatusOK, contentType, body)
}

// RespondError maps err to a status and error result. Server-class
// failures are logged with op before the response is written.
func RespondError(c *gin.Context, logger *logging.Logger, op string, err error) {
	var verr *params.ValidationError
	if errors.As(err, &verr) {
		RespondJSON(c, http.StatusBadRequest, ErrorResult{Error: errorValidator, ErrorMsg: verr.Error()})
		return
	}

	status := apperrors.StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		RespondJSON(c, status, ErrorResult{Error: errorValidator, ErrorMsg: err.Error()})
	case http.StatusServiceUnavailable:
		RespondJSON(c, status, ErrorResult{Error: errorUnavailable, ErrorMsg: "Service Unavailable"})
	default:
		_ = c.Error(err)
		if logger != nil {
			logger.ErrorTag("HTTP", "%s failed: %v", op, err)
		}
		RespondJSON(c, status, ErrorResult{Error: string(apperrors.KindOf(err)), ErrorMsg: err.Error()})
	}
}
