package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/employee-directory/internal/domain"
)

type APIError struct {
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Fields  []types.FieldViolation `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
		_ = c.Error(err)
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
			Fields:  types.Violations(err),
		},
	})
}

// RespondDomainError picks the status from the error's code. Errors without
// a code are treated as internal.
func RespondDomainError(c *gin.Context, err error) {
	code := types.CodeOf(err)
	if code == "" {
		code = types.CodeInternal
	}
	RespondError(c, StatusFor(code), string(code), err)
}

// StatusFor maps error codes onto the wire contract: caller-correctable
// failures are 400, infrastructure failures 500.
func StatusFor(code types.ErrorCode) int {
	switch code {
	case types.CodeValidation, types.CodeNotFoundOrConflict, types.CodeInvariantViolation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
