package handlers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/employee-directory/internal/domain"
	httpMW "github.com/yungbote/employee-directory/internal/http/middleware"
	"github.com/yungbote/employee-directory/internal/http/response"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/services"
)

type EmployeeHandler struct {
	log     *logger.Logger
	records services.EmployeeService
	sums    services.AggregateService
	bulk    services.BulkService
}

func NewEmployeeHandler(log *logger.Logger, records services.EmployeeService, sums services.AggregateService, bulk services.BulkService) *EmployeeHandler {
	return &EmployeeHandler{
		log:     log.With("handler", "EmployeeHandler"),
		records: records,
		sums:    sums,
		bulk:    bulk,
	}
}

// employeeRequest keeps Value a pointer so a missing value is distinguishable
// from zero.
type employeeRequest struct {
	Name  string `json:"name"`
	Value *int64 `json:"value"`
}

func (h *EmployeeHandler) bindEmployee(c *gin.Context, op string) (types.Employee, bool) {
	var req employeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondDomainError(c, types.ValidationError(op, "invalid request body: "+err.Error()))
		return types.Employee{}, false
	}
	if req.Value == nil {
		response.RespondDomainError(c, types.ValidationError(op, "value is required"))
		return types.Employee{}, false
	}
	return types.Employee{Name: req.Name, Value: *req.Value}, true
}

// keyParam reads the :name segment as the decoded current name. gin only
// routes on RawPath when the request has one; otherwise the param already
// comes from the decoded path.
func (h *EmployeeHandler) keyParam(c *gin.Context) (types.EmployeeKey, bool) {
	raw := c.Param("name")
	if c.Request.URL.RawPath != "" {
		decoded, err := url.PathUnescape(raw)
		if err != nil {
			response.RespondDomainError(c, types.ValidationError("employee.key", "malformed key: "+err.Error()))
			return "", false
		}
		raw = decoded
	}
	c.Set(httpMW.CtxEmployeeKey, raw)
	key, err := types.ParseEmployeeKey(raw)
	if err != nil {
		response.RespondDomainError(c, err)
		return "", false
	}
	return key, true
}

// GET /api/employees
func (h *EmployeeHandler) ListEmployees(c *gin.Context) {
	records, err := h.records.List(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if records == nil {
		records = []types.Employee{}
	}
	response.RespondOK(c, records)
}

// POST /api/employees
func (h *EmployeeHandler) AddEmployee(c *gin.Context) {
	candidate, ok := h.bindEmployee(c, "employee.add")
	if !ok {
		return
	}
	stored, err := h.records.Add(c.Request.Context(), candidate)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, stored)
}

// PUT /api/employees/:name
func (h *EmployeeHandler) UpdateEmployee(c *gin.Context) {
	key, ok := h.keyParam(c)
	if !ok {
		return
	}
	replacement, ok := h.bindEmployee(c, "employee.update")
	if !ok {
		return
	}
	if err := h.records.Update(c.Request.Context(), key, replacement); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/employees/:name
func (h *EmployeeHandler) DeleteEmployee(c *gin.Context) {
	key, ok := h.keyParam(c)
	if !ok {
		return
	}
	if err := h.records.Delete(c.Request.Context(), key); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/list
func (h *EmployeeHandler) GetAggregate(c *gin.Context) {
	total, err := h.sums.Sum(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, total)
}

// PATCH /api/list
func (h *EmployeeHandler) IncrementAll(c *gin.Context) {
	if _, err := h.bulk.IncrementAll(c.Request.Context()); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
