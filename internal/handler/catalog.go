package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/market-sales/internal/model"
	"github.com/iliyamo/market-sales/internal/service"
)

// CatalogHandler manages categories and articles.
type CatalogHandler struct {
	Svc CatalogAPI
	Log *slog.Logger
}

func NewCatalogHandler(svc CatalogAPI, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{Svc: svc, Log: orDefault(log)}
}

type categoryReq struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type articleReq struct {
	CategoryID *string             `json:"category_id"`
	Name       string              `json:"name"`
	Price      decimal.Decimal     `json:"price"`
	Cost       decimal.NullDecimal `json:"cost"`
}

func (r articleReq) input() service.ArticleInput {
	return service.ArticleInput{CategoryID: r.CategoryID, Name: r.Name, Price: r.Price, Cost: r.Cost}
}

func includeInactive(c echo.Context) (bool, bool) {
	v := c.QueryParam("include_inactive")
	if v == "" {
		return false, true
	}
	b, err := strconv.ParseBool(v)
	return b, err == nil
}

func (h *CatalogHandler) ListCategories(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	all, ok := includeInactive(c)
	if !ok {
		return badRequest(c, "include_inactive must be a boolean")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.ListCategories(ctx, uid, all)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Category{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.Svc.CreateCategory(ctx, uid, service.CategoryInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHandler) UpdateCategory(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	cat, err := h.Svc.UpdateCategory(ctx, uid, c.Param("id"), service.CategoryInput{Name: req.Name, Color: req.Color})
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHandler) DeleteCategory(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeactivateCategory(ctx, uid, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListArticles supports ?category_id= and ?include_inactive=true.
func (h *CatalogHandler) ListArticles(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	all, ok := includeInactive(c)
	if !ok {
		return badRequest(c, "include_inactive must be a boolean")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	list, err := h.Svc.ListArticles(ctx, uid, c.QueryParam("category_id"), all)
	if err != nil {
		return fail(c, h.Log, err)
	}
	if list == nil {
		list = []model.Article{}
	}
	return c.JSON(http.StatusOK, list)
}

func (h *CatalogHandler) CreateArticle(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req articleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.CreateArticle(ctx, uid, req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *CatalogHandler) UpdateArticle(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	var req articleReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Svc.UpdateArticle(ctx, uid, c.Param("id"), req.input())
	if err != nil {
		return fail(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *CatalogHandler) DeleteArticle(c echo.Context) error {
	uid, ok := caller(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Svc.DeactivateArticle(ctx, uid, c.Param("id")); err != nil {
		return fail(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
