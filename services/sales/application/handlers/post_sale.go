package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/errhttp"
	"github.com/ghuser/branchpos/pkg/httpx"
	pkgvalidator "github.com/ghuser/branchpos/pkg/validator"
	appsvcs "github.com/ghuser/branchpos/services/sales/application/services"
)

// PostSaleHandler handles POST /sales requests.
type PostSaleHandler struct {
	svc  *appsvcs.Services
	prod bool
}

// NewPostSaleHandler returns a PostSaleHandler backed by the given services.
func NewPostSaleHandler(svc *appsvcs.Services, isProduction bool) *PostSaleHandler {
	return &PostSaleHandler{svc: svc, prod: isProduction}
}

// Execute records a sale.
//
//	@Summary		Record sale
//	@Description	Decrements stock, appends ledger entries, raises low-stock alerts and records the sale in one transaction.
//	@Description	Errors with retryable=true (invoice_conflict, persistence_failure) may be resubmitted unchanged.
//	@Tags			sales
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateSaleRequest	true	"Sale"
//	@Success		201		{object}	SaleResponse
//	@Failure		400		{object}	errhttp.ErrorResponse
//	@Failure		401		{object}	errhttp.ErrorResponse
//	@Failure		404		{object}	errhttp.ErrorResponse
//	@Failure		409		{object}	errhttp.ErrorResponse
//	@Failure		422		{object}	errhttp.ErrorResponse
//	@Failure		503		{object}	errhttp.ErrorResponse
//	@Router			/sales [post]
func (h *PostSaleHandler) Execute(w http.ResponseWriter, r *http.Request) {
	actor, err := auth.ActorFromCtx(r.Context())
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}

	req, ok := pkgvalidator.ValidateRequest[CreateSaleRequest](w, r)
	if !ok {
		return
	}

	in := appsvcs.SaleRequest{
		Lines:         make([]appsvcs.SaleLineRequest, len(req.Items)),
		PaymentMethod: req.Payment.Method,
		AmountPaid:    *req.Payment.AmountPaid,
	}
	if t := req.Totals; t != nil {
		in.Tax, in.Discount = t.Tax, t.Discount
	}
	for i, l := range req.Items {
		// Already validated as a UUID.
		in.Lines[i] = appsvcs.SaleLineRequest{ItemID: uuid.MustParse(l.ItemID), Quantity: l.Quantity}
	}
	if req.BranchID != "" {
		in.BranchID = uuid.MustParse(req.BranchID)
	}
	if c := req.Customer; c != nil {
		in.Customer = &appsvcs.CustomerRequest{Name: c.Name, Phone: c.Phone, Email: c.Email}
	}

	sale, err := h.svc.Processor.Process(r.Context(), in, actor)
	if err != nil {
		errhttp.Write(w, err, h.prod)
		return
	}

	httpx.JSON(w, http.StatusCreated, toSaleResponse(sale))
}
