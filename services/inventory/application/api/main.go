package api

import (
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ghuser/branchpos/pkg/app"
	"github.com/ghuser/branchpos/pkg/auth"
	"github.com/ghuser/branchpos/pkg/config"
	"github.com/ghuser/branchpos/services/inventory/application/handlers"
	appsvcs "github.com/ghuser/branchpos/services/inventory/application/services"
)

// InventoryRoutes registers item, stock and alert endpoints on the provided
// chi router. The router must already authenticate requests.
func InventoryRoutes(r chi.Router, a *app.Application) error {
	loc, err := a.Config.Location()
	if err != nil {
		return err
	}
	Mount(r, appsvcs.New(a), loc, a.Config.Environment == config.EnvProduction)
	return nil
}

// Mount registers the inventory endpoints backed by svcs.
func Mount(r chi.Router, svcs *appsvcs.Services, loc *time.Location, isProduction bool) {
	managers := auth.RequireRole(auth.RoleOwner, auth.RoleManager)

	items := handlers.NewItemHandler(svcs, isProduction)
	r.Route("/items", func(r chi.Router) {
		r.With(managers).Post("/", items.Create)
		r.Get("/low-stock", items.LowStock)
		r.Get("/{id}", items.Get)
		r.With(managers).Put("/{id}/pricing", items.UpdatePricing)
		r.With(managers).Delete("/{id}", items.Deactivate)
	})

	stock := handlers.NewStockHandler(svcs, loc, isProduction)
	r.Route("/stock", func(r chi.Router) {
		r.With(managers).Post("/refill", stock.Refill)
		r.With(managers).Post("/adjust", stock.Adjust)
		r.Get("/logs", stock.Logs)
	})

	alerts := handlers.NewAlertHandler(svcs, isProduction)
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", alerts.List)
		r.Post("/{id}/read", alerts.MarkRead)
	})
}
