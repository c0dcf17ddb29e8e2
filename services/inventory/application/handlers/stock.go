package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/httpx"
	pkgvalidator "github.com/ghuser/branchpos/pkg/validator"
	appsvcs "github.com/ghuser/branchpos/services/inventory/application/services"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

// StockHandler serves /stock.
type StockHandler struct {
	svc  *appsvcs.Services
	loc  *time.Location
	prod bool
}

// NewStockHandler returns a StockHandler. Date-only query parameters are
// interpreted in loc.
func NewStockHandler(svc *appsvcs.Services, loc *time.Location, isProduction bool) *StockHandler {
	return &StockHandler{svc: svc, loc: loc, prod: isProduction}
}

// Refill records a purchase received into stock.
//
//	@Summary		Refill stock
//	@Description	Adds quantity and appends a purchase ledger entry. A cost price, when given, becomes the item's new cost.
//	@Tags			stock
//	@Accept			json
//	@Produce		json
//	@Param			request	body		RefillRequest	true	"Refill"
//	@Success		200		{object}	StockMovementResponse
//	@Failure		400		{object}	errhttp.ErrorResponse
//	@Failure		404		{object}	errhttp.ErrorResponse
//	@Failure		422		{object}	errhttp.ErrorResponse
//	@Router			/stock/refill [post]
func (h *StockHandler) Refill(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[RefillRequest](w, r)
	if !ok {
		return
	}

	in := appsvcs.RefillInput{
		ItemID:    uuid.MustParse(req.ItemID),
		Quantity:  req.Quantity,
		CostPrice: req.CostPrice,
		Reason:    req.Reason,
	}
	if req.SupplierID != "" {
		in.SupplierID = uuid.MustParse(req.SupplierID)
	}

	res, err := h.svc.Stock.Refill(r.Context(), actor, in)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toMovementResponse(res))
}

// Adjust sets an item's quantity after a stock count.
//
//	@Summary	Adjust stock
//	@Tags		stock
//	@Accept		json
//	@Produce	json
//	@Param		request	body		AdjustRequest	true	"Adjustment"
//	@Success	200		{object}	StockMovementResponse
//	@Failure	400		{object}	errhttp.ErrorResponse
//	@Failure	404		{object}	errhttp.ErrorResponse
//	@Failure	422		{object}	errhttp.ErrorResponse
//	@Router		/stock/adjust [post]
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	req, ok := pkgvalidator.ValidateRequest[AdjustRequest](w, r)
	if !ok {
		return
	}

	res, err := h.svc.Stock.Adjust(r.Context(), actor, appsvcs.AdjustInput{
		ItemID:      uuid.MustParse(req.ItemID),
		NewQuantity: *req.NewQuantity,
		Reason:      req.Reason,
	})
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toMovementResponse(res))
}

// Logs returns ledger entries, newest first.
//
//	@Summary	List stock movements
//	@Tags		stock
//	@Produce	json
//	@Param		item_id	query		string	false	"Item UUID"
//	@Param		type	query		string	false	"purchase, sale, adjustment or return"
//	@Param		from	query		string	false	"Created at or after"
//	@Param		to		query		string	false	"Created at or before"
//	@Param		page	query		int		false	"Page, from 1"
//	@Param		limit	query		int		false	"Page size, at most 100"
//	@Success	200		{object}	StockLogListResponse
//	@Failure	400		{object}	errhttp.ErrorResponse
//	@Router		/stock/logs [get]
func (h *StockHandler) Logs(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	q, err := h.parseLogQuery(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, total, err := h.svc.Stock.Logs(r.Context(), actor, q)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	resp := StockLogListResponse{
		Entries: make([]StockLogResponse, len(entries)),
		Total:   total,
		Page:    q.Offset/q.Limit + 1,
		Limit:   q.Limit,
	}
	for i, e := range entries {
		resp.Entries[i] = toStockLogResponse(e)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *StockHandler) parseLogQuery(r *http.Request) (repositories.StockLogQuery, error) {
	v := r.URL.Query()
	var (
		q   repositories.StockLogQuery
		err error
	)
	if q.ItemID, err = httpx.QueryUUID(v, "item_id"); err != nil {
		return q, err
	}
	if q.From, err = httpx.QueryTime(v, "from", h.loc); err != nil {
		return q, err
	}
	if q.To, err = httpx.QueryTime(v, "to", h.loc); err != nil {
		return q, err
	}
	if s := v.Get("type"); s != "" {
		t, err := models.ParseMovementType(s)
		if err != nil {
			return q, err
		}
		q.Type = &t
	}
	page, err := httpx.QueryInt(v, "page", 1)
	if err != nil {
		return q, err
	}
	limit, err := httpx.QueryInt(v, "limit", 0)
	if err != nil {
		return q, err
	}
	q.QueryOpts = repositories.NewQueryOpts(page, limit)
	return q, nil
}

func toMovementResponse(res *appsvcs.StockMovementResult) StockMovementResponse {
	return StockMovementResponse{
		Item:  toItemResponse(res.Item),
		Entry: toStockLogResponse(res.Entry),
		Alert: toAlertResponse(res.Alert),
	}
}
