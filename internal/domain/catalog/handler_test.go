package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func TestHandler_CreateProvider(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Dr. Lane"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateProvider(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var p Provider
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !p.IsActive {
		t.Error("expected new provider to default active")
	}
}

func TestHandler_CreateProvider_MissingName(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.CreateProvider(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 HTTPError, got %v", err)
	}
}

func TestHandler_ListBarrierOptions_Grouped(t *testing.T) {
	h, e := newTestHandler()
	for _, body := range []string{
		`{"label":"Transportation","category":"Social","sort_order":1}`,
		`{"label":"Pain","sort_order":2}`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		if err := h.CreateBarrierOption(e.NewContext(req, httptest.NewRecorder())); err != nil {
			t.Fatalf("create barrier: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/?grouped=true", nil)
	rec := httptest.NewRecorder()
	if err := h.ListBarrierOptions(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var grouped map[string][]BarrierOption
	if err := json.Unmarshal(rec.Body.Bytes(), &grouped); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(grouped["Social"]) != 1 || len(grouped["General"]) != 1 {
		t.Errorf("unexpected grouping: %+v", grouped)
	}
}
