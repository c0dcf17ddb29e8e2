package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/httpx"
	inventoryrepos "github.com/ghuser/branchpos/services/inventory/domain/repositories"
	appsvcs "github.com/ghuser/branchpos/services/sales/application/services"
	"github.com/ghuser/branchpos/services/sales/domain/models"
	"github.com/ghuser/branchpos/services/sales/domain/repositories"
	"github.com/ghuser/branchpos/services/sales/infrastructure/export"
)

// GetSalesHandler serves the read side of /sales.
type GetSalesHandler struct {
	svc  *appsvcs.Services
	loc  *time.Location
	prod bool
}

// NewGetSalesHandler returns a GetSalesHandler. Date-only query parameters
// are interpreted in loc.
func NewGetSalesHandler(svc *appsvcs.Services, loc *time.Location, isProduction bool) *GetSalesHandler {
	return &GetSalesHandler{svc: svc, loc: loc, prod: isProduction}
}

// List returns recorded sales.
//
//	@Summary		List sales
//	@Description	Newest first. Non-owners only see sales of their branch.
//	@Tags			sales
//	@Produce		json
//	@Param			from		query		string	false	"Created at or after (RFC 3339 or YYYY-MM-DD)"
//	@Param			to			query		string	false	"Created at or before (RFC 3339 or YYYY-MM-DD)"
//	@Param			status		query		string	false	"completed, cancelled or refunded"
//	@Param			cashier_id	query		string	false	"Cashier UUID"
//	@Param			page		query		int		false	"Page, from 1"
//	@Param			limit		query		int		false	"Page size, at most 100"
//	@Success		200			{object}	SaleListResponse
//	@Failure		400			{object}	errhttp.ErrorResponse
//	@Failure		401			{object}	errhttp.ErrorResponse
//	@Router			/sales [get]
func (h *GetSalesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sales, total, err := h.svc.Reports.List(r.Context(), actor, q)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}

	resp := SaleListResponse{
		Sales: make([]SaleResponse, len(sales)),
		Total: total,
		Page:  q.Offset/q.Limit + 1,
		Limit: q.Limit,
	}
	for i, s := range sales {
		resp.Sales[i] = toSaleResponse(s)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// Get returns one sale.
//
//	@Summary	Get sale
//	@Tags		sales
//	@Produce	json
//	@Param		id	path		string	true	"Sale UUID"
//	@Success	200	{object}	SaleResponse
//	@Failure	400	{object}	errhttp.ErrorResponse
//	@Failure	404	{object}	errhttp.ErrorResponse
//	@Router		/sales/{id} [get]
func (h *GetSalesHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	sale, err := h.svc.Reports.GetByID(r.Context(), actor, id)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toSaleResponse(sale))
}

// Stats returns today's, this week's and this month's completed sales.
//
//	@Summary		Sales stats
//	@Description	Weeks start on Sunday. Periods are computed in the configured report time zone.
//	@Tags			sales
//	@Produce		json
//	@Success		200	{object}	services.SalesStats
//	@Failure		401	{object}	errhttp.ErrorResponse
//	@Router			/sales/stats [get]
func (h *GetSalesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	st, err := h.svc.Reports.Stats(r.Context(), actor)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, st)
}

// Export streams matching sales as an xlsx workbook.
//
//	@Summary	Export sales
//	@Tags		sales
//	@Produce	application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
//	@Param		from	query	string	false	"Created at or after"
//	@Param		to		query	string	false	"Created at or before"
//	@Param		status	query	string	false	"completed, cancelled or refunded"
//	@Success	200
//	@Failure	400	{object}	errhttp.ErrorResponse
//	@Failure	403	{object}	errhttp.ErrorResponse
//	@Router		/sales/export [get]
func (h *GetSalesHandler) Export(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	q, err := h.parseQuery(r)
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=sales-%s.xlsx", time.Now().In(h.loc).Format("20060102")))
	if err := h.svc.Reports.Export(r.Context(), actor, q, w); err != nil {
		w.Header().Del("Content-Disposition")
		errhttp.Write(w, err, h.prod)
	}
}

func (h *GetSalesHandler) parseQuery(r *http.Request) (repositories.SaleQuery, error) {
	v := r.URL.Query()
	var (
		q   repositories.SaleQuery
		err error
	)
	if q.From, err = httpx.QueryTime(v, "from", h.loc); err != nil {
		return q, err
	}
	if q.To, err = httpx.QueryTime(v, "to", h.loc); err != nil {
		return q, err
	}
	if q.CashierID, err = httpx.QueryUUID(v, "cashier_id"); err != nil {
		return q, err
	}
	if s := v.Get("status"); s != "" {
		st, err := models.ParseStatus(s)
		if err != nil {
			return q, err
		}
		q.Status = &st
	}
	page, err := httpx.QueryInt(v, "page", 1)
	if err != nil {
		return q, err
	}
	limit, err := httpx.QueryInt(v, "limit", 0)
	if err != nil {
		return q, err
	}
	q.QueryOpts = inventoryrepos.NewQueryOpts(page, limit)
	return q, nil
}
