package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/employee-directory/internal/data/repos/employee"
	types "github.com/yungbote/employee-directory/internal/domain"
	httpH "github.com/yungbote/employee-directory/internal/http/handlers"
	"github.com/yungbote/employee-directory/internal/http/response"
	"github.com/yungbote/employee-directory/internal/observability"
	"github.com/yungbote/employee-directory/internal/pkg/logger"
	"github.com/yungbote/employee-directory/internal/services"
)

func newTestRouter(t *testing.T, repo employee.EmployeeRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	metrics := observability.NewMetrics()
	records := services.NewEmployeeService(log, repo, nil, metrics)
	sums := services.NewAggregateService(log, repo, nil, metrics)
	bulk := services.NewBulkService(log, repo, types.DefaultTieredIncrement(), nil, metrics)
	return NewRouter(RouterConfig{
		Log:             log,
		Metrics:         metrics,
		EmployeeHandler: httpH.NewEmployeeHandler(log, records, sums, bulk),
		HealthHandler:   httpH.NewHealthHandler(nil),
	})
}

func newMemoryRouter(t *testing.T, seed ...types.Employee) (*gin.Engine, employee.EmployeeRepo) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	repo := employee.NewMemoryRepo(log, seed...)
	return newTestRouter(t, repo), repo
}

func do(t *testing.T, r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *stdhttp.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) response.APIError {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope %q: %v", rec.Body.String(), err)
	}
	return env.Error
}

func snapshot(t *testing.T, repo employee.EmployeeRepo) map[string]int64 {
	t.Helper()
	rows, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	out := map[string]int64{}
	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out
}

func TestListEmployeesEmptyIsArray(t *testing.T) {
	r, _ := newMemoryRouter(t)
	rec := do(t, r, stdhttp.MethodGet, "/api/employees", "")
	if rec.Code != stdhttp.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAddEmployee(t *testing.T) {
	r, repo := newMemoryRouter(t)

	rec := do(t, r, stdhttp.MethodPost, "/api/employees", `{"name":"  Ann ","value":5}`)
	if rec.Code != stdhttp.StatusCreated {
		t.Fatalf("status: %d body=%s", rec.Code, rec.Body.String())
	}
	var got types.Employee
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != (types.Employee{Name: "Ann", Value: 5}) {
		t.Fatalf("body: %+v", got)
	}

	rec = do(t, r, stdhttp.MethodPost, "/api/employees", `{"name":"Ann","value":6}`)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("duplicate status: %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != string(types.CodeNotFoundOrConflict) {
		t.Fatalf("duplicate code: %+v", apiErr)
	}
	if snap := snapshot(t, repo); len(snap) != 1 || snap["Ann"] != 5 {
		t.Fatalf("store: %v", snap)
	}
}

func TestAddEmployeeRejectsBadBodies(t *testing.T) {
	r, repo := newMemoryRouter(t)
	bodies := []string{
		`{"name":"   ","value":1}`,
		`{"name":"` + strings.Repeat("n", 51) + `","value":1}`,
		`{"name":"Ann"}`,
		`{"name":"Ann","value":"12"}`,
		`{"name":"Ann","value":1.5}`,
		`{"name":"Ann","value":-1}`,
		`{"name":"Ann","value":2147483648}`,
		`not json`,
	}
	for _, body := range bodies {
		rec := do(t, r, stdhttp.MethodPost, "/api/employees", body)
		if rec.Code != stdhttp.StatusBadRequest {
			t.Fatalf("%s: status %d", body, rec.Code)
		}
		if apiErr := decodeError(t, rec); apiErr.Code != string(types.CodeValidation) {
			t.Fatalf("%s: code %+v", body, apiErr)
		}
	}
	if snap := snapshot(t, repo); len(snap) != 0 {
		t.Fatalf("store should be empty: %v", snap)
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	r, _ := newMemoryRouter(t)
	rec := do(t, r, stdhttp.MethodPost, "/api/employees", `{"name":"","value":-5}`)
	apiErr := decodeError(t, rec)
	if len(apiErr.Fields) != 2 {
		t.Fatalf("fields: %+v", apiErr.Fields)
	}
}

func TestUpdateEmployeeDecodesKey(t *testing.T) {
	r, repo := newMemoryRouter(t,
		types.Employee{Name: "A/B", Value: 1},
		types.Employee{Name: "50%", Value: 2},
		types.Employee{Name: "Ann Lee", Value: 3},
	)

	cases := []struct {
		target string
		body   string
	}{
		{"/api/employees/A%2FB", `{"name":"A/B","value":10}`},
		{"/api/employees/50%25", `{"name":"Fifty","value":20}`},
		{"/api/employees/Ann%20Lee", `{"name":"Ann Lee","value":30}`},
	}
	for _, c := range cases {
		rec := do(t, r, stdhttp.MethodPut, c.target, c.body)
		if rec.Code != stdhttp.StatusNoContent {
			t.Fatalf("%s: status %d body=%s", c.target, rec.Code, rec.Body.String())
		}
	}
	want := map[string]int64{"A/B": 10, "Fifty": 20, "Ann Lee": 30}
	snap := snapshot(t, repo)
	if len(snap) != len(want) {
		t.Fatalf("store: %v", snap)
	}
	for k, v := range want {
		if snap[k] != v {
			t.Fatalf("store: %v", snap)
		}
	}
}

func TestPlusInKeyIsLiteral(t *testing.T) {
	r, repo := newMemoryRouter(t,
		types.Employee{Name: "C+D/E", Value: 1},
		types.Employee{Name: "F+G", Value: 2},
	)
	if rec := do(t, r, stdhttp.MethodPut, "/api/employees/C+D%2FE", `{"name":"C+D/E","value":7}`); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("update status %d body=%s", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, stdhttp.MethodDelete, "/api/employees/F+G", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("delete status %d body=%s", rec.Code, rec.Body.String())
	}
	if snap := snapshot(t, repo); len(snap) != 1 || snap["C+D/E"] != 7 {
		t.Fatalf("store: %v", snap)
	}
	if rec := do(t, r, stdhttp.MethodDelete, "/api/employees/C+D%2FE", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("delete encoded status %d body=%s", rec.Code, rec.Body.String())
	}
	if snap := snapshot(t, repo); len(snap) != 0 {
		t.Fatalf("store: %v", snap)
	}
}

func TestUpdateMissingKeyIs400(t *testing.T) {
	r, repo := newMemoryRouter(t, types.Employee{Name: "Ann", Value: 1})
	rec := do(t, r, stdhttp.MethodPut, "/api/employees/Bob", `{"name":"Bob","value":2}`)
	if rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("status: %d", rec.Code)
	}
	if snap := snapshot(t, repo); len(snap) != 1 || snap["Ann"] != 1 {
		t.Fatalf("store: %v", snap)
	}
}

func TestDeleteEmployee(t *testing.T) {
	r, repo := newMemoryRouter(t, types.Employee{Name: "Ann", Value: 1}, types.Employee{Name: "Bob", Value: 2})
	if rec := do(t, r, stdhttp.MethodDelete, "/api/employees/Ann", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("delete status: %d", rec.Code)
	}
	if rec := do(t, r, stdhttp.MethodDelete, "/api/employees/Ann", ""); rec.Code != stdhttp.StatusBadRequest {
		t.Fatalf("second delete status: %d", rec.Code)
	}
	if snap := snapshot(t, repo); len(snap) != 1 || snap["Bob"] != 2 {
		t.Fatalf("store: %v", snap)
	}
}

func TestAggregateAndIncrement(t *testing.T) {
	r, repo := newMemoryRouter(t, types.Employee{Name: "Alice", Value: 100}, types.Employee{Name: "Eve", Value: 1})

	rec := do(t, r, stdhttp.MethodGet, "/api/list", "")
	if rec.Code != stdhttp.StatusOK || strings.TrimSpace(rec.Body.String()) != "100" {
		t.Fatalf("aggregate: %d %q", rec.Code, rec.Body.String())
	}
	if rec := do(t, r, stdhttp.MethodPatch, "/api/list", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("increment status: %d", rec.Code)
	}
	if snap := snapshot(t, repo); snap["Alice"] != 200 || snap["Eve"] != 2 {
		t.Fatalf("store: %v", snap)
	}
	rec = do(t, r, stdhttp.MethodGet, "/api/list", "")
	if strings.TrimSpace(rec.Body.String()) != "200" {
		t.Fatalf("aggregate after: %q", rec.Body.String())
	}
}

func TestIncrementOnEmptyStoreIs204(t *testing.T) {
	r, _ := newMemoryRouter(t)
	if rec := do(t, r, stdhttp.MethodPatch, "/api/list", ""); rec.Code != stdhttp.StatusNoContent {
		t.Fatalf("status: %d", rec.Code)
	}
}

type unavailableRepo struct{ employee.EmployeeRepo }

func (unavailableRepo) List(context.Context) ([]types.Employee, error) {
	return nil, types.NewError(types.CodeStoreUnavailable, "employee.list", "connection refused", nil)
}

func TestStoreUnavailableIs500(t *testing.T) {
	r := newTestRouter(t, unavailableRepo{})
	for _, target := range []string{"/api/employees", "/api/list"} {
		rec := do(t, r, stdhttp.MethodGet, target, "")
		if rec.Code != stdhttp.StatusInternalServerError {
			t.Fatalf("%s: status %d", target, rec.Code)
		}
		if apiErr := decodeError(t, rec); apiErr.Code != string(types.CodeStoreUnavailable) {
			t.Fatalf("%s: code %+v", target, apiErr)
		}
	}
}

func TestHealthcheck(t *testing.T) {
	r, _ := newMemoryRouter(t)
	rec := do(t, r, stdhttp.MethodGet, "/healthcheck", "")
	if rec.Code != stdhttp.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}
