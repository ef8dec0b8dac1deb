package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/employee-directory/internal/domain"
	"github.com/yungbote/employee-directory/internal/pkg/ctxutil"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
)

// CtxEmployeeKey is where handlers leave the decoded :name key for the
// request log.
const CtxEmployeeKey = "employee_key"

// RequestLogger logs one line per request after the handler ran. Failed
// requests carry the domain error code attached by the response helpers.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []interface{}{
			"method", strings.ToUpper(c.Request.Method),
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if key := c.GetString(CtxEmployeeKey); key != "" {
			fields = append(fields, "employee_key", key)
		}
		if last := c.Errors.Last(); last != nil {
			if code := types.CodeOf(last.Err); code != "" {
				fields = append(fields, "error_code", string(code))
			}
			fields = append(fields, "error", last.Err.Error())
		}
		if td := ctxutil.GetTraceData(c.Request.Context()); td != nil {
			if td.TraceID != "" {
				fields = append(fields, "trace_id", td.TraceID)
			}
			if td.RequestID != "" {
				fields = append(fields, "request_id", td.RequestID)
			}
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}
