package api

import (
	"database/sql"
	"net/http"

	"github.com/reclaim-app/reclaim/internal/claim"
	"github.com/reclaim-app/reclaim/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, engine *claim.Engine) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Engine: engine}
	questionsHandler := &QuestionsHandler{DB: db, Engine: engine}
	claimsHandler := &ClaimsHandler{DB: db, Engine: engine}
	adminHandler := &AdminHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: account creation and login.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	// Authenticated routes.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Item reports.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))
	mux.Handle("PUT /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.UploadPhoto)))
	mux.Handle("GET /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.GetPhoto)))

	// Security questions.
	mux.Handle("GET /api/items/{id}/questions", authMW(http.HandlerFunc(questionsHandler.List)))
	mux.Handle("POST /api/items/{id}/questions", authMW(http.HandlerFunc(questionsHandler.Add)))
	mux.Handle("DELETE /api/items/{id}/questions/{qid}", authMW(http.HandlerFunc(questionsHandler.Remove)))

	// Claims.
	mux.Handle("POST /api/items/{id}/claim", authMW(http.HandlerFunc(claimsHandler.Submit)))
	mux.Handle("GET /api/claims/mine", authMW(http.HandlerFunc(claimsHandler.Mine)))

	// Moderation and audit (admin only).
	mux.Handle("GET /api/admin/items", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListItems))))
	mux.Handle("PUT /api/admin/items/{id}/status", authMW(requireAdmin(http.HandlerFunc(adminHandler.SetStatus))))
	mux.Handle("GET /api/admin/claims", authMW(requireAdmin(http.HandlerFunc(adminHandler.ListClaims))))

	// User management (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/active", authMW(requireAdmin(http.HandlerFunc(usersHandler.SetActive))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.SetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
