package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yo-Self/yo-self.github.io-sub001/internal/logger"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cache"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/cart"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/compose"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/query"
	"github.com/Yo-Self/yo-self.github.io-sub001/internal/menu/service"
)

const DefaultRequestTimeout = 10 * time.Second

// MenuService is the subset of *service.Service the HTTP layer calls.
type MenuService interface {
	FetchFullRestaurants(ctx context.Context) ([]compose.Restaurant, error)
	FetchRestaurantIDs(ctx context.Context) ([]string, error)
	FetchRestaurantBySlugWithData(ctx context.Context, key string) (*compose.Restaurant, error)
	FetchRestaurantByIDWithData(ctx context.Context, id string) (*compose.Restaurant, error)
	FetchOrganizationRestaurants(ctx context.Context, organizationID string) ([]compose.Restaurant, error)
	QuoteCart(ctx context.Context, key string, lines []cart.Line) (*cart.Quote, error)
	Invalidate(ctx context.Context, key string) (cache.Result, error)
}

type MenuHTTPHandler struct {
	menu    MenuService
	timeout time.Duration
}

func NewMenuHTTPHandler(menu MenuService, timeout time.Duration) *MenuHTTPHandler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &MenuHTTPHandler{menu: menu, timeout: timeout}
}

// Request structs
type QuoteCartRequest struct {
	Items []cart.Line `json:"items" binding:"required,min=1"`
}

type InvalidateCacheRequest struct {
	Restaurant string `json:"restaurant" binding:"required"`
}

type InvalidateCacheResponse struct {
	Restaurant string `json:"restaurant"`
	Degraded   bool   `json:"degraded"`
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ListMeta struct {
	Count int `json:"count"`
}

func successResponse(message string, data interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	}
}

func successWithMetaResponse(message string, data interface{}, meta interface{}) APIResponse {
	return APIResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta,
	}
}

func errorResponse(code, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Error:   code,
	}
}

// --- Helper for mapping service errors ---
func handleServiceError(c *gin.Context, err error) {
	var verr *cart.ValidationError
	switch {
	case errors.As(err, &verr):
		resp := errorResponse("INVALID_CART", verr.Error())
		resp.Data = verr.Problems
		c.JSON(http.StatusUnprocessableEntity, resp)
	case errors.Is(err, service.ErrRestaurantNotFound):
		c.JSON(http.StatusNotFound, errorResponse("NOT_FOUND", "Restaurant not found"))
	case errors.Is(err, query.ErrConfig):
		c.JSON(http.StatusServiceUnavailable, errorResponse("SOURCE_UNCONFIGURED", "Menu source is not configured"))
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, errorResponse("UPSTREAM_TIMEOUT", "Menu source timed out"))
	default:
		logger.FromContext(c.Request.Context()).Error("menu request failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, errorResponse("UPSTREAM_ERROR", "Failed to load menu data"))
	}
	_ = c.Error(err)
	c.Abort()
}

func (h *MenuHTTPHandler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// --- Restaurant Handlers ---

func (h *MenuHTTPHandler) ListRestaurants(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	restaurants, err := h.menu.FetchFullRestaurants(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Restaurants retrieved successfully", restaurants, ListMeta{Count: len(restaurants)}))
}

func (h *MenuHTTPHandler) ListRestaurantIDs(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	ids, err := h.menu.FetchRestaurantIDs(ctx)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Restaurant ids retrieved successfully", ids, ListMeta{Count: len(ids)}))
}

func (h *MenuHTTPHandler) GetRestaurant(c *gin.Context) {
	key := strings.TrimSpace(c.Param("slug"))
	if key == "" {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_REQUEST", "Restaurant slug is required"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.menu.FetchRestaurantBySlugWithData(ctx, key)
	h.respondRestaurant(c, r, err)
}

func (h *MenuHTTPHandler) GetRestaurantByID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_REQUEST", "Restaurant id is required"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	r, err := h.menu.FetchRestaurantByIDWithData(ctx, id)
	h.respondRestaurant(c, r, err)
}

func (h *MenuHTTPHandler) respondRestaurant(c *gin.Context, r *compose.Restaurant, err error) {
	if err != nil {
		handleServiceError(c, err)
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, errorResponse("NOT_FOUND", "Restaurant not found"))
		return
	}
	c.JSON(http.StatusOK, successResponse("Restaurant retrieved successfully", r))
}

func (h *MenuHTTPHandler) ListOrganizationRestaurants(c *gin.Context) {
	orgID := strings.TrimSpace(c.Param("id"))
	if orgID == "" {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_REQUEST", "Organization id is required"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	restaurants, err := h.menu.FetchOrganizationRestaurants(ctx, orgID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successWithMetaResponse("Restaurants retrieved successfully", restaurants, ListMeta{Count: len(restaurants)}))
}

// --- Cart Handlers ---

func (h *MenuHTTPHandler) QuoteCart(c *gin.Context) {
	var req QuoteCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_REQUEST", "Invalid request format"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	quote, err := h.menu.QuoteCart(ctx, c.Param("slug"), req.Items)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cart quoted successfully", quote))
}

// --- Admin Handlers ---

func (h *MenuHTTPHandler) InvalidateCache(c *gin.Context) {
	var req InvalidateCacheRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("INVALID_REQUEST", "Invalid request format"))
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	res, err := h.menu.Invalidate(ctx, req.Restaurant)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse("Cache invalidated", InvalidateCacheResponse{
		Restaurant: req.Restaurant,
		Degraded:   res.Degraded(),
	}))
}

// RegisterRoutes mounts the public menu routes on api and the cache
// administration routes behind adminAuth. A nil adminAuth leaves the
// administration routes unmounted.
func (h *MenuHTTPHandler) RegisterRoutes(api gin.IRouter, adminAuth gin.HandlerFunc) {
	restaurants := api.Group("/restaurants")
	{
		restaurants.GET("", h.ListRestaurants)
		restaurants.GET("/ids", h.ListRestaurantIDs)
		restaurants.GET("/id/:id", h.GetRestaurantByID)
		restaurants.GET("/:slug", h.GetRestaurant)
		restaurants.POST("/:slug/cart/quote", h.QuoteCart)
	}

	api.GET("/organizations/:id/restaurants", h.ListOrganizationRestaurants)

	if adminAuth == nil {
		return
	}
	admin := api.Group("/admin", adminAuth)
	{
		admin.POST("/cache/invalidate", h.InvalidateCache)
	}
}
