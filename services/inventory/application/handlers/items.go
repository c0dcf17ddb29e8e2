package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/httpx"
	pkgvalidator "github.com/ghuser/branchpos/pkg/validator"
	appsvcs "github.com/ghuser/branchpos/services/inventory/application/services"
)

// ItemHandler serves /items.
type ItemHandler struct {
	svc  *appsvcs.Services
	prod bool
}

// NewItemHandler returns an ItemHandler backed by the given services.
func NewItemHandler(svc *appsvcs.Services, isProduction bool) *ItemHandler {
	return &ItemHandler{svc: svc, prod: isProduction}
}

// Create adds an item to the catalog.
//
//	@Summary		Create item
//	@Description	Managers always create items in their own branch. Items created at or below their threshold raise an alert.
//	@Tags			items
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateItemRequest	true	"Item"
//	@Success		201		{object}	CreateItemResponse
//	@Failure		400		{object}	errhttp.ErrorResponse
//	@Failure		403		{object}	errhttp.ErrorResponse
//	@Failure		409		{object}	errhttp.ErrorResponse
//	@Failure		422		{object}	errhttp.ErrorResponse
//	@Router			/items [post]
func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[CreateItemRequest](w, r)
	if !ok {
		return
	}

	in := appsvcs.CreateItemInput{
		Name:              req.Name,
		SKU:               req.SKU,
		Barcode:           req.Barcode,
		CostPrice:         req.CostPrice,
		SellingPrice:      req.SellingPrice,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		LowStockThreshold: req.LowStockThreshold,
		ReorderPoint:      req.ReorderPoint,
	}
	if req.CategoryID != "" {
		in.CategoryID = uuid.MustParse(req.CategoryID)
	}
	if req.BranchID != "" {
		in.BranchID = uuid.MustParse(req.BranchID)
	}

	item, alert, err := h.svc.Items.Create(r.Context(), actor, in)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusCreated, CreateItemResponse{Item: toItemResponse(item), Alert: toAlertResponse(alert)})
}

// Get returns one item.
//
//	@Summary	Get item
//	@Tags		items
//	@Produce	json
//	@Param		id	path		string	true	"Item UUID"
//	@Success	200	{object}	ItemResponse
//	@Failure	400	{object}	errhttp.ErrorResponse
//	@Failure	404	{object}	errhttp.ErrorResponse
//	@Router		/items/{id} [get]
func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.svc.Items.GetByID(r.Context(), actor, id)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

// LowStock lists active items at or below their threshold.
//
//	@Summary	List low-stock items
//	@Tags		items
//	@Produce	json
//	@Success	200	{array}		ItemResponse
//	@Failure	401	{object}	errhttp.ErrorResponse
//	@Router		/items/low-stock [get]
func (h *ItemHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	items, err := h.svc.Items.ListLowStock(r.Context(), actor)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	resp := make([]ItemResponse, len(items))
	for i, it := range items {
		resp[i] = toItemResponse(it)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// UpdatePricing sets an item's prices and recomputes its margin.
//
//	@Summary	Update item pricing
//	@Tags		items
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Item UUID"
//	@Param		request	body		UpdatePricingRequest	true	"Prices"
//	@Success	200		{object}	ItemResponse
//	@Failure	400		{object}	errhttp.ErrorResponse
//	@Failure	404		{object}	errhttp.ErrorResponse
//	@Failure	422		{object}	errhttp.ErrorResponse
//	@Router		/items/{id}/pricing [put]
func (h *ItemHandler) UpdatePricing(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, ok := pkgvalidator.ValidateRequest[UpdatePricingRequest](w, r)
	if !ok {
		return
	}

	item, err := h.svc.Items.UpdatePricing(r.Context(), actor, id, req.CostPrice, req.SellingPrice)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

// Deactivate soft-deletes an item. Sales of inactive items are rejected.
//
//	@Summary	Deactivate item
//	@Tags		items
//	@Param		id	path	string	true	"Item UUID"
//	@Success	204
//	@Failure	400	{object}	errhttp.ErrorResponse
//	@Failure	404	{object}	errhttp.ErrorResponse
//	@Router		/items/{id} [delete]
func (h *ItemHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	id, err := httpx.URLParamUUID(r, "id")
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Items.Deactivate(r.Context(), actor, id); err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
