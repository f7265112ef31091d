package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/domain/report"
)

func newTestHandler() (*Handler, *testEnv, *echo.Echo) {
	env := newTestEnv()
	return NewHandler(env.svc), env, echo.New()
}

func newCtx(e *echo.Echo, method, target, body string, id uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id.String())
	return c, rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestHandler_CreateBillable(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	body := `{"service_date":"2025-01-10T00:00:00Z","description":"Phone call","activity_code":"tel","hours":"0.25"}`
	c, rec := newCtx(e, http.MethodPost, "/", body, claimID)

	if err := h.CreateBillable(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got BillableItem
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ClaimID != claimID || got.ActivityCode != "TEL" {
		t.Errorf("unexpected item %+v", got)
	}
}

func TestHandler_CreateBillable_Invalid(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	c, _ := newCtx(e, http.MethodPost, "/", `{"description":"x","activity_code":"TEL","hours":"0"}`, claimID)

	if code := httpCode(t, h.CreateBillable(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestHandler_ListBillables(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	env.addItem(claimID, "2025-01-10", true, false)
	env.addItem(claimID, "2025-01-11", true, false)
	c, rec := newCtx(e, http.MethodGet, "/?limit=10", "", claimID)

	if err := h.ListBillables(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 {
		t.Errorf("expected total 2, got %d", resp.Total)
	}
}

func TestHandler_GatherBillables(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	env.addItem(claimID, "2025-01-15", true, false)
	env.addItem(claimID, "2025-01-25", true, false)
	c, rec := newCtx(e, http.MethodGet, "/?dos_start=2025-01-21&dos_end=2025-02-01", "", claimID)

	if err := h.GatherBillables(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var items []BillableItem
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected 1 item, got %d", len(items))
	}
}

func TestHandler_GatherBillables_BadRange(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()

	c, _ := newCtx(e, http.MethodGet, "/?dos_start=01/21/2025&dos_end=2025-02-01", "", claimID)
	if code := httpCode(t, h.GatherBillables(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}

	c, _ = newCtx(e, http.MethodGet, "/?dos_start=2025-02-01&dos_end=2025-01-21", "", claimID)
	if code := httpCode(t, h.GatherBillables(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestHandler_GatherForReport(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	r := env.addReport(claimID, report.TypeProgress, "2025-01-21", "2025-02-01")
	env.addItem(claimID, "2025-01-25", true, false)
	c, rec := newCtx(e, http.MethodGet, "/", "", r.ID)

	if err := h.GatherForReport(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_CreateInvoice_WithRange(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	env.addItem(claimID, "2025-01-25", true, false)
	c, rec := newCtx(e, http.MethodPost, "/", `{"dos_start":"2025-01-21","dos_end":"2025-02-01"}`, claimID)

	if err := h.CreateInvoice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var inv Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if inv.InvoiceNumber != "INV-25-001" || len(inv.Items) != 1 {
		t.Errorf("unexpected invoice %+v", inv)
	}
}

func TestHandler_CreateInvoice_WholeClaim(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	env.addItem(claimID, "2024-12-02", true, false)
	env.addItem(claimID, "2025-01-25", true, false)
	c, rec := newCtx(e, http.MethodPost, "/", `{}`, claimID)

	if err := h.CreateInvoice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var inv Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &inv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(inv.Items) != 2 {
		t.Errorf("expected both items invoiced, got %d", len(inv.Items))
	}
}

func TestHandler_CreateInvoice_NothingToInvoice(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	c, _ := newCtx(e, http.MethodPost, "/", `{"dos_start":"2025-01-21","dos_end":"2025-02-01"}`, claimID)

	if code := httpCode(t, h.CreateInvoice(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestHandler_GetInvoice_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c, _ := newCtx(e, http.MethodGet, "/", "", uuid.New())

	if code := httpCode(t, h.GetInvoice(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if code := httpCode(t, h.ListInvoices(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}

func TestHandler_UpdateBillable(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	b := env.addItem(claimID, "2025-01-25", false, false)
	body := `{"service_date":"2025-01-25T00:00:00Z","description":"Phone call","activity_code":"TEL","hours":"0.25","is_complete":true}`
	c, rec := newCtx(e, http.MethodPut, "/", body, b.ID)

	if err := h.UpdateBillable(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK || !env.items.items[b.ID].IsComplete {
		t.Errorf("expected completed item, got %d %+v", rec.Code, env.items.items[b.ID])
	}
}

func TestHandler_DeleteBillable_Invoiced(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	b := env.addItem(claimID, "2025-01-25", true, true)
	c, _ := newCtx(e, http.MethodDelete, "/", "", b.ID)

	if code := httpCode(t, h.DeleteBillable(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_DeleteInvoice(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	inv, a, _ := newInvoiced(t, env, claimID)
	c, rec := newCtx(e, http.MethodDelete, "/", "", inv.ID)

	if err := h.DeleteInvoice(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if env.items.items[a.ID].IsInvoiced() {
		t.Error("expected item released")
	}
}

func TestHandler_RemoveInvoiceItem(t *testing.T) {
	h, env, e := newTestHandler()
	claimID := env.addClaim()
	inv, a, _ := newInvoiced(t, env, claimID)
	c, rec := newCtx(e, http.MethodDelete, "/", "", inv.ID)
	c.SetParamNames("id", "item_id")
	c.SetParamValues(inv.ID.String(), a.ID.String())

	if err := h.RemoveInvoiceItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got Invoice
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Items) != 1 {
		t.Errorf("expected 1 item left, got %d", len(got.Items))
	}
}
