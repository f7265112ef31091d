package report

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/claims/:id/reports", h.ListReports)
	api.POST("/claims/:id/reports", h.CreateReport)
	api.GET("/claims/:id/dos-check", h.CheckDOSRange)
	api.POST("/claims/:id/closure", h.SetClosure)
	api.GET("/reports/:id", h.GetReport)
	api.PUT("/reports/:id", h.UpdateReport)
	api.DELETE("/reports/:id", h.DeleteReport)
	api.POST("/reports/:id/roll-forward/:field", h.RollForwardField)
}

// errorBody is the failure payload. Values echoes the submitted body as
// received so a form can re-render without losing input.
type errorBody struct {
	Error     string          `json:"error"`
	Kind      apperror.Kind   `json:"kind,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	ReportIDs []uuid.UUID     `json:"report_ids,omitempty"`
	Values    json.RawMessage `json:"values,omitempty"`
}

func failure(err error, values []byte) *echo.HTTPError {
	body := errorBody{Error: err.Error(), Kind: apperror.KindOf(err)}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		body.Reason = ae.Reason
		body.ReportIDs = ae.ReportIDs
	}
	if json.Valid(values) {
		body.Values = values
	}
	return echo.NewHTTPError(apperror.HTTPStatus(err), body)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return body, nil
}

func (h *Handler) ListReports(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	views, err := h.svc.ListReports(c.Request().Context(), claimID)
	if err != nil {
		return failure(err, nil)
	}
	return c.JSON(http.StatusOK, views)
}

func (h *Handler) CreateReport(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var in CreateReportInput
	if err := json.Unmarshal(body, &in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	in.ClaimID = claimID

	res, err := h.svc.CreateReport(c.Request().Context(), in)
	if err != nil {
		return failure(err, body)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return failure(err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

// UpdateReport saves user edits. ?overlap=block rejects an overlapping
// range; the default lets it through with a warning.
func (h *Handler) UpdateReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	mode, err := ParseOverlapMode(c.QueryParam("overlap"), OverlapWarn)
	if err != nil {
		return failure(err, body)
	}
	var edit Report
	if err := json.Unmarshal(body, &edit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	res, err := h.svc.UpdateReport(c.Request().Context(), id, &edit, mode)
	if err != nil {
		return failure(err, body)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id); err != nil {
		return failure(err, nil)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) RollForwardField(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	v, err := h.svc.RollForwardField(c.Request().Context(), id, Field(c.Param("field")))
	if err != nil {
		return failure(err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

// CheckDOSRange answers live form warnings. Dates are YYYY-MM-DD; report_id
// names the report being edited, if any.
func (h *Handler) CheckDOSRange(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, c.QueryParam("dos_start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dos_start must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, c.QueryParam("dos_end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "dos_end must be YYYY-MM-DD")
	}
	reportID := uuid.Nil
	if raw := c.QueryParam("report_id"); raw != "" {
		if reportID, err = uuid.Parse(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid report_id")
		}
	}

	v, err := h.svc.ValidateDOSRange(c.Request().Context(), claimID, reportID, start, end)
	if err != nil {
		return failure(err, nil)
	}
	return c.JSON(http.StatusOK, v)
}

type closureRequest struct {
	ReportID uuid.UUID `json:"report_id"`
	Active   bool      `json:"active"`
}

// SetClosure closes or reopens the claim for the closure report named in the
// body.
func (h *Handler) SetClosure(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	body, err := readBody(c)
	if err != nil {
		return err
	}
	var req closureRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ReportID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "report_id is required")
	}
	cl, err := h.svc.SetClosure(c.Request().Context(), claimID, req.ReportID, req.Active)
	if err != nil {
		return failure(err, body)
	}
	return c.JSON(http.StatusOK, cl)
}
