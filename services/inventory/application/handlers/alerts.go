package handlers

import (
	"net/http"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/httpx"
	appsvcs "github.com/ghuser/branchpos/services/inventory/application/services"
	"github.com/ghuser/branchpos/services/inventory/domain/models"
	"github.com/ghuser/branchpos/services/inventory/domain/repositories"
)

// AlertHandler serves /alerts.
type AlertHandler struct {
	svc  *appsvcs.Services
	prod bool
}

func NewAlertHandler(svc *appsvcs.Services, isProduction bool) *AlertHandler {
	return &AlertHandler{svc: svc, prod: isProduction}
}

// List returns the newest alerts visible to the caller.
//
//	@Summary	List alerts
//	@Tags		alerts
//	@Produce	json
//	@Param		unread	query		bool	false	"Only unread alerts"
//	@Param		type	query		string	false	"low_stock, out_of_stock, high_value_sale or system"
//	@Param		limit	query		int		false	"Maximum alerts, default 50"
//	@Success	200		{array}		AlertResponse
//	@Failure	400		{object}	errhttp.ErrorResponse
//	@Router		/alerts [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}

	v := r.URL.Query()
	var q repositories.AlertQuery
	if q.UnreadOnly, err = httpx.QueryBool(v, "unread"); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Limit, err = httpx.QueryInt(v, "limit", 0); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s := v.Get("type"); s != "" {
		t, err := models.ParseAlertType(s)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		q.Type = &t
	}

	alerts, err := h.svc.Alerts.List(r.Context(), actor, q)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	resp := make([]*AlertResponse, len(alerts))
	for i, a := range alerts {
		resp[i] = toAlertResponse(a)
	}
	httpx.JSON(w, http.StatusOK, resp)
}

// MarkRead records the caller as a reader of the alert.
//
//	@Summary	Mark alert read
//	@Tags		alerts
//	@Produce	json
//	@Param		id	path		string	true	"Alert UUID"
//	@Success	200	{object}	AlertResponse
//	@Failure	400	{object}	errhttp.ErrorResponse
//	@Failure	404	{object}	errhttp.ErrorResponse
//	@Router		/alerts/{id}/read [post]
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
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
	alert, err := h.svc.Alerts.MarkRead(r.Context(), actor, id)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}
	httpx.JSON(w, http.StatusOK, toAlertResponse(alert))
}
