package app

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haderos-erp/haderos-core/internal/liveshop"
	"github.com/haderos-erp/haderos-core/internal/platform/cache"
	"github.com/haderos-erp/haderos-core/internal/platform/httpx"
)

// NewRouter constructs the read-only query surface. All writes go through the
// module services and the bus; HTTP only observes.
func NewRouter(a *App) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(a.Logger, a.Config) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			httpx.JSON(w, http.StatusOK, a.Health())
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/products", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Inventory.AllProducts())
			})
			r.Get("/products/{id}", func(w http.ResponseWriter, req *http.Request) {
				product, err := a.Inventory.Product(chi.URLParam(req, "id"))
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, product)
			})
			r.Get("/products/{id}/movements", func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Inventory.Movements(chi.URLParam(req, "id")))
			})
			r.Get("/low-stock", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Inventory.BelowReorderLevel())
			})
		})

		r.Route("/ledger", func(r chi.Router) {
			r.Get("/accounts", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Ledger.AllAccounts())
			})
			r.Get("/accounts/{id}/balance", func(w http.ResponseWriter, req *http.Request) {
				id := chi.URLParam(req, "id")
				balance, err := a.Ledger.AccountBalance(id)
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": balance})
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/customers", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Sales.AllCustomers())
			})
			r.Get("/customers/{id}/invoices", func(w http.ResponseWriter, req *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Sales.CustomerInvoices(chi.URLParam(req, "id")))
			})
			r.Get("/invoices", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Sales.AllInvoices())
			})
			r.Get("/invoices/{id}", func(w http.ResponseWriter, req *http.Request) {
				invoice, err := a.Sales.Invoice(chi.URLParam(req, "id"))
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, invoice)
			})
			r.Get("/summary", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, map[string]any{
					"total_sales": a.Sales.TotalSales(),
					"outstanding": a.Sales.OutstandingBalance(),
				})
			})
		})

		r.Route("/live", func(r chi.Router) {
			r.Get("/sessions/{id}", func(w http.ResponseWriter, req *http.Request) {
				session, err := a.LiveShop.Session(chi.URLParam(req, "id"))
				if err != nil {
					httpx.RespondError(w, err)
					return
				}
				httpx.JSON(w, http.StatusOK, session)
			})
			r.Get("/sessions/{id}/stats", a.sessionStatsHandler)
		})

		r.Route("/learning", func(r chi.Router) {
			r.Get("/insights", func(w http.ResponseWriter, req *http.Request) {
				topN, _ := strconv.Atoi(req.URL.Query().Get("top"))
				httpx.JSON(w, http.StatusOK, a.Learning.Patterns(topN))
			})
			r.Get("/events", func(w http.ResponseWriter, req *http.Request) {
				limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
				if limit <= 0 {
					limit = 50
				}
				httpx.JSON(w, http.StatusOK, a.Learning.Recent(limit))
			})
			r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Learning.Stats())
			})
		})

		r.Route("/compliance", func(r chi.Router) {
			r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Engine.Stats())
			})
			r.Get("/history", func(w http.ResponseWriter, _ *http.Request) {
				httpx.JSON(w, http.StatusOK, a.Engine.History())
			})
		})
	})

	return r
}

// sessionStatsHandler serves session stats through the Redis cache when one
// is configured; stats are the hottest read during a live stream.
func (a *App) sessionStatsHandler(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if a.statsCache == nil {
		stats, err := a.LiveShop.Stats(id)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, stats)
		return
	}
	var stats liveshop.SessionStats
	err := a.statsCache.FetchJSON(req.Context(), cache.Key("live", "stats", id), &stats,
		func(context.Context) (any, error) {
			return a.LiveShop.Stats(id)
		})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}
