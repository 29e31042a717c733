package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
)

// AdminHandler exposes the principal directory to administrators.
type AdminHandler struct {
	directory ports.DirectoryService
}

func NewAdminHandler(directory ports.DirectoryService) *AdminHandler {
	return &AdminHandler{directory: directory}
}

// List handles GET /admin/principals.
//
// @Summary      List principals
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        offset  query     int  false  "Items to skip"
// @Param        limit   query     int  false  "Page size (max 100)"
// @Success      200     {object}  principalListResponse
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /admin/principals [get]
func (h *AdminHandler) List(c echo.Context) error {
	offset, limit := 0, 0
	if err := echo.QueryParamsBinder(c).
		Int("offset", &offset).
		Int("limit", &limit).
		BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "offset and limit must be integers")
	}

	items, total, err := h.directory.ListPrincipals(c.Request().Context(), offset, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, principalListResponse{
		Items:  items,
		Total:  total,
		Offset: offset,
		Limit:  len(items),
	})
}

// Get handles GET /admin/principals/:id.
//
// @Summary      Get a principal
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Principal id"
// @Success      200  {object}  domain.Principal
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /admin/principals/{id} [get]
func (h *AdminHandler) Get(c echo.Context) error {
	p, err := h.directory.GetPrincipal(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "principal not found")
		}
		return err
	}
	return c.JSON(http.StatusOK, p)
}
