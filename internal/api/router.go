package api

import (
	"net/http"

	"github.com/erazemk/skrbnik/internal/db"
	"github.com/erazemk/skrbnik/internal/model"
	"github.com/erazemk/skrbnik/internal/transfer"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d *db.DB, jwtSecret string, transfers *transfer.Coordinator) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: d}
	toolsHandler := &ToolsHandler{DB: d}
	custodyHandler := &CustodyHandler{DB: d}
	batchesHandler := &BatchesHandler{DB: d, Transfers: transfers}

	authMW := AuthMiddleware(jwtSecret, d)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Tools: read (all roles), write (manager+).
	mux.Handle("GET /api/tools", authMW(http.HandlerFunc(toolsHandler.List)))
	mux.Handle("POST /api/tools", authMW(requireManager(http.HandlerFunc(toolsHandler.Create))))
	mux.Handle("GET /api/tools/{id}", authMW(http.HandlerFunc(toolsHandler.Get)))
	mux.Handle("DELETE /api/tools/{id}", authMW(requireManager(http.HandlerFunc(toolsHandler.Delete))))
	mux.Handle("GET /api/tools/{id}/history", authMW(http.HandlerFunc(toolsHandler.GetHistory)))
	mux.Handle("GET /api/tools/{id}/checklist", authMW(http.HandlerFunc(toolsHandler.ListChecklist)))
	mux.Handle("POST /api/tools/{id}/checklist", authMW(requireManager(http.HandlerFunc(toolsHandler.CreateChecklistItem))))

	mux.Handle("GET /api/custody", authMW(http.HandlerFunc(custodyHandler.List)))

	// Transfers (all roles); reconciliation is admin only.
	mux.Handle("POST /api/transfers/batch", authMW(http.HandlerFunc(batchesHandler.Transfer)))
	mux.Handle("GET /api/batches", authMW(http.HandlerFunc(batchesHandler.List)))
	mux.Handle("GET /api/batches/{id}", authMW(http.HandlerFunc(batchesHandler.Get)))
	mux.Handle("POST /api/batches/{id}/reconcile", authMW(requireAdmin(http.HandlerFunc(batchesHandler.Reconcile))))

	return mux
}
