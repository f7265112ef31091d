package billing

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/pkg/pagination"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/claims/:id/billables", h.ListBillables)
	api.POST("/claims/:id/billables", h.CreateBillable)
	api.PUT("/billables/:id", h.UpdateBillable)
	api.DELETE("/billables/:id", h.DeleteBillable)
	api.GET("/claims/:id/billables/gather", h.GatherBillables)
	api.GET("/reports/:id/billables/gather", h.GatherForReport)

	api.GET("/claims/:id/invoices", h.ListInvoices)
	api.POST("/claims/:id/invoices", h.CreateInvoice)
	api.POST("/reports/:id/invoices", h.CreateInvoiceForReport)
	api.GET("/invoices/:id", h.GetInvoice)
	api.DELETE("/invoices/:id", h.DeleteInvoice)
	api.POST("/invoices/:id/add-uninvoiced", h.AddUninvoiced)
	api.DELETE("/invoices/:id/items/:item_id", h.RemoveInvoiceItem)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func fail(err error) error {
	return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
}

func (h *Handler) ListBillables(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListBillables(c.Request().Context(), claimID, pg.Limit, pg.Offset)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, pagination.Page(c, pg, items, total))
}

func (h *Handler) CreateBillable(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	var b BillableItem
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b.ClaimID = claimID
	if err := h.svc.CreateBillable(c.Request().Context(), &b); err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, b)
}

func (h *Handler) UpdateBillable(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var edit BillableItem
	if err := c.Bind(&edit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	b, err := h.svc.UpdateBillable(c.Request().Context(), id, &edit)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *Handler) DeleteBillable(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteBillable(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GatherBillables previews what an invoice over ?dos_start=&dos_end= would
// contain. Nothing is marked invoiced.
func (h *Handler) GatherBillables(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	start, end, err := parseRange(c.QueryParam("dos_start"), c.QueryParam("dos_end"))
	if err != nil {
		return err
	}
	items, err := h.svc.GatherBillables(c.Request().Context(), claimID, start, end)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) GatherForReport(c echo.Context) error {
	reportID, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.GatherForReport(c.Request().Context(), reportID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, items)
}

type createInvoiceRequest struct {
	DOSStart string `json:"dos_start"`
	DOSEnd   string `json:"dos_end"`
}

// CreateInvoice invoices the claim's items in the given range, or every
// invoiceable item when the body names no range.
func (h *Handler) CreateInvoice(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	var req createInvoiceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var inv *Invoice
	if req.DOSStart == "" && req.DOSEnd == "" {
		inv, err = h.svc.CreateInvoiceForClaim(c.Request().Context(), claimID)
	} else {
		start, end, perr := parseRange(req.DOSStart, req.DOSEnd)
		if perr != nil {
			return perr
		}
		inv, err = h.svc.CreateInvoice(c.Request().Context(), claimID, start, end)
	}
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) CreateInvoiceForReport(c echo.Context) error {
	reportID, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.CreateInvoiceForReport(c.Request().Context(), reportID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusCreated, inv)
}

func (h *Handler) GetInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.GetInvoice(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, inv)
}

// DeleteInvoice removes a draft invoice; its items become uninvoiced.
func (h *Handler) DeleteInvoice(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteInvoice(c.Request().Context(), id); err != nil {
		return fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AddUninvoiced(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	inv, err := h.svc.AddUninvoiced(c.Request().Context(), id)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) RemoveInvoiceItem(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	itemID, err := uuid.Parse(c.Param("item_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	inv, err := h.svc.RemoveInvoiceItem(c.Request().Context(), id, itemID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, inv)
}

func (h *Handler) ListInvoices(c echo.Context) error {
	claimID, err := parseID(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListInvoices(c.Request().Context(), claimID)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, items)
}

func parseRange(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, err := time.Parse(dateLayout, rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "dos_start must be YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, echo.NewHTTPError(http.StatusBadRequest, "dos_end must be YYYY-MM-DD")
	}
	return start, end, nil
}
