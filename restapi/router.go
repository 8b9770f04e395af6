// Package restapi provides the main router and initialization for REST API endpoints.
package restapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/leancoach/coach-backend/events/modules/activity"
	"github.com/leancoach/coach-backend/internal/coach"
	"github.com/leancoach/coach-backend/internal/pdf"
	"github.com/leancoach/coach-backend/model"
	"github.com/leancoach/coach-backend/restapi/modules/activitylog"
	"github.com/leancoach/coach-backend/restapi/modules/admin"
	"github.com/leancoach/coach-backend/restapi/modules/auth"
	"github.com/leancoach/coach-backend/restapi/modules/chat"
	"github.com/leancoach/coach-backend/restapi/modules/comments"
	"github.com/leancoach/coach-backend/restapi/modules/documents"
	"github.com/leancoach/coach-backend/restapi/modules/export"
	"github.com/leancoach/coach-backend/store"
	"go.uber.org/zap"
)

// Deps carries the services the handlers need
type Deps struct {
	Store    store.Store
	Recorder activity.Recorder
	Coach    *coach.Service
	Exporter *pdf.Exporter
	Mailer   auth.InvitationSender
	Schema   graphql.Schema
}

// SetupRoutes configures all REST API routes and the GraphQL endpoint.
// CORS is handled globally in internal/api/fiber.go.
func SetupRoutes(app *fiber.App, deps Deps) {
	st := deps.Store
	rec := deps.Recorder
	requireAuth := auth.RequireAuth(st)
	adminOnly := auth.RequireRole(model.RoleAdmin)

	// API Group /api/v1
	api := app.Group("/api/v1")

	// GraphQL Route - Mounted within the api group to inherit path prefixes
	api.Post("/graphql", requireAuth, GraphQLHandler(deps.Schema))

	// Public Routes
	api.Post("/signup", auth.Signup(st))

	// Auth Routes
	authGroup := api.Group("/auth")
	authGroup.Post("/login", auth.Login(st))
	authGroup.Post("/logout", auth.Logout())
	authGroup.Get("/me", requireAuth, auth.Me(st))
	authGroup.Post("/refresh", requireAuth, auth.RefreshToken())
	authGroup.Post("/change-password", requireAuth, auth.ChangePassword(st))

	// Invitation Routes
	invitationGroup := api.Group("/invitation")
	invitationGroup.Get("/:token", auth.GetInvitationHandler(st))
	invitationGroup.Post("/:token/accept", auth.AcceptInvitationHandler(st))

	// Organization
	api.Get("/org", requireAuth, admin.GetOrg(st))
	api.Put("/org", requireAuth, adminOnly, admin.UpdateOrg(st))

	// Departments
	deptGroup := api.Group("/departments", requireAuth)
	deptGroup.Get("/", admin.ListDepartments(st))
	deptGroup.Post("/", adminOnly, admin.CreateDepartment(st))
	deptGroup.Put("/:key", adminOnly, admin.UpdateDepartment(st))
	deptGroup.Delete("/:key", adminOnly, admin.DeleteDepartment(st))

	// User Management
	userGroup := api.Group("/users", requireAuth)
	userGroup.Get("/", auth.RequireRole(model.RoleAdmin, model.RoleManager), admin.ListUsers(st))
	userGroup.Post("/invite", adminOnly, admin.InviteUser(st, deps.Mailer))
	userGroup.Put("/:key", adminOnly, admin.UpdateUser(st))
	userGroup.Delete("/:key", adminOnly, admin.DeleteUser(st))

	// A3 Documents
	docs := api.Group("/documents", requireAuth)
	docs.Get("/", documents.ListDocuments(st))
	docs.Post("/", documents.CreateDocument(st, rec))
	docs.Get("/:key", documents.GetDocument(st))
	docs.Put("/:key", documents.UpdateDocument(st, rec))
	docs.Post("/:key/status", documents.ChangeStatus(st, rec))
	docs.Delete("/:key", documents.DeleteDocument(st, rec))
	docs.Post("/:key/restore", documents.RestoreDocument(st, rec))
	docs.Put("/:key/sections/:type", documents.UpdateSection(st, rec))

	// Comments
	docs.Get("/:key/comments", comments.ListComments(st))
	docs.Post("/:key/comments", comments.CreateComment(st, rec))
	docs.Delete("/:key/comments/:comment", comments.DeleteComment(st, rec))

	// Activity
	docs.Get("/:key/activity", activitylog.DocumentActivity(st))
	api.Get("/activity", requireAuth, adminOnly, activitylog.OrgActivity(st))

	// AI Coach
	docs.Get("/:key/chat", chat.History(st, deps.Coach))
	docs.Post("/:key/chat", chat.Send(st, deps.Coach, rec))
	docs.Delete("/:key/chat", chat.Clear(st, deps.Coach))

	// Export
	docs.Get("/:key/export.pdf", export.ExportPDF(st, deps.Exporter, rec))

	zap.L().Info("API routes initialized successfully")
}
