package catalog

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/claimdesk/claimdesk/internal/platform/apperror"
	"github.com/claimdesk/claimdesk/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/providers", h.ListProviders)
	api.POST("/providers", h.CreateProvider)
	api.GET("/barrier-options", h.ListBarrierOptions)
	api.POST("/barrier-options", h.CreateBarrierOption)
}

func (h *Handler) CreateProvider(c echo.Context) error {
	p := Provider{IsActive: true}
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateProvider(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) ListProviders(c echo.Context) error {
	pg := pagination.FromContext(c)
	activeOnly := c.QueryParam("active") != "false"
	items, total, err := h.svc.ListProviders(c.Request().Context(), activeOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.Page(c, pg, items, total))
}

func (h *Handler) CreateBarrierOption(c echo.Context) error {
	b := BarrierOption{IsActive: true}
	if err := c.Bind(&b); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateBarrierOption(c.Request().Context(), &b); err != nil {
		return echo.NewHTTPError(apperror.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, b)
}

// ListBarrierOptions returns active options; ?grouped=true groups them by
// category for the report form.
func (h *Handler) ListBarrierOptions(c echo.Context) error {
	items, err := h.svc.ListBarrierOptions(c.Request().Context(), c.QueryParam("active") != "false")
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if c.QueryParam("grouped") == "true" {
		return c.JSON(http.StatusOK, GroupBarriers(items))
	}
	return c.JSON(http.StatusOK, items)
}
