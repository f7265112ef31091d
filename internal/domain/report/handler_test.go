package report

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/domain/claim"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func jsonContext(e *echo.Echo, method, target, body string, rec *httptest.ResponseRecorder) echo.Context {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, rec)
}

func TestHandler_CreateReport(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPost, "/", `{"report_type":"initial"}`, rec)
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	if err := h.CreateReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var res CreateReportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Report.ReportType != TypeInitial || res.BillableItemID == nil {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestHandler_CreateReport_OverlapEchoesValues(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	env.create(t, cl.ID, TypeInitial)

	body := `{"report_type":"initial","skip_billing":true}`
	c := jsonContext(e, http.MethodPost, "/", body, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	err := h.CreateReport(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Fatalf("expected 409 HTTPError, got %v", err)
	}
	eb, ok := he.Message.(errorBody)
	if !ok {
		t.Fatalf("expected errorBody message, got %T", he.Message)
	}
	if eb.Kind != "overlap_violation" || len(eb.ReportIDs) != 1 {
		t.Errorf("unexpected body %+v", eb)
	}
	if string(eb.Values) != body {
		t.Errorf("expected submitted values echoed unchanged, got %s", eb.Values)
	}
}

func TestHandler_UpdateReport_InvalidRange(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	res := env.create(t, cl.ID, TypeInitial)

	body := `{"dos_start":"2025-01-20T00:00:00Z","dos_end":"2025-01-10T00:00:00Z","work_status":"Off work"}`
	c := jsonContext(e, http.MethodPut, "/?overlap=block", body, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(res.Report.ID.String())

	err := h.UpdateReport(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 HTTPError, got %v", err)
	}
	eb := he.Message.(errorBody)
	if eb.Reason != "end_before_start" || string(eb.Values) != body {
		t.Errorf("unexpected body %+v", eb)
	}
}

func TestHandler_CheckDOSRange(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	env.create(t, cl.ID, TypeInitial)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/?dos_start=2025-01-20&dos_end=2025-01-30", nil)
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	if err := h.CheckDOSRange(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v Validation
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Valid || v.Reason != ReasonOverlapsReport {
		t.Errorf("expected overlap on the shared end day, got %+v", v)
	}
}

func TestHandler_CheckDOSRange_BadDate(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?dos_start=01/20/2025&dos_end=2025-01-30", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.CheckDOSRange(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_DeleteReport(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	res := env.create(t, cl.ID, TypeInitial)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(res.Report.ID.String())
	if err := h.DeleteReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_SetClosure(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")
	closure := env.put(cl.ID, TypeClosure, "2025-01-10", "2025-01-20", false)

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPost, "/", `{"report_id":"`+closure.ID.String()+`","active":true}`, rec)
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	if err := h.SetClosure(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got claim.Claim
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != claim.StatusClosed {
		t.Errorf("expected closed, got %s", got.Status)
	}
}

func TestHandler_SetClosure_UnknownReport(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")

	c := jsonContext(e, http.MethodPost, "/", `{"report_id":"`+uuid.New().String()+`","active":true}`, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	err := h.SetClosure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404 HTTPError, got %v", err)
	}
	if env.claims.items[cl.ID].Status != claim.StatusOpen {
		t.Error("claim must stay open")
	}
}

func TestHandler_SetClosure_MissingReportID(t *testing.T) {
	h, env, e := newTestHandler()
	cl := env.addClaim("2025-01-10")

	c := jsonContext(e, http.MethodPost, "/", `{"active":true}`, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(cl.ID.String())

	err := h.SetClosure(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}
