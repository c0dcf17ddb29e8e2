package api

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/branchpos/pkg/app"
	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/services/sales/application/handlers"
	appsvcs "github.com/ghuser/branchpos/services/sales/application/services"
)

// SalesRoutes registers sales endpoints on the provided chi router.
// The router must already authenticate requests.
func SalesRoutes(r chi.Router, a *app.Application) error {
	svcs, err := appsvcs.New(a)
	if err != nil {
		return err
	}
	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	Mount(r, svcs, loc, a.Config.Environment == config.EnvProduction)
	return nil
}

// Mount registers the sales endpoints backed by svcs.
func Mount(r chi.Router, svcs *appsvcs.Services, loc *time.Location, isProduction bool) {
	read := handlers.NewGetSalesHandler(svcs, loc, isProduction)
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", handlers.NewPostSaleHandler(svcs, isProduction).Execute)
		r.Get("/", read.List)
		r.Get("/stats", read.Stats)
		r.With(auth.RequireRole(auth.RoleOwner, auth.RoleManager)).Get("/export", read.Export)
		r.Get("/{id}", read.Get)
	})
}
