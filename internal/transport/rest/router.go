package rest

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/licensestore/internal/auth"
	"github.com/frahmantamala/licensestore/internal/cart"
	"github.com/frahmantamala/licensestore/internal/catalog"
	"github.com/frahmantamala/licensestore/internal/content"
	"github.com/frahmantamala/licensestore/internal/order"
	"github.com/frahmantamala/licensestore/internal/payment"
	"github.com/frahmantamala/licensestore/internal/rbac"
	"github.com/frahmantamala/licensestore/internal/realtime"
	"github.com/frahmantamala/licensestore/internal/support"
	"github.com/frahmantamala/licensestore/internal/transport/middleware"
	"github.com/frahmantamala/licensestore/internal/transport/swagger"
	"github.com/frahmantamala/licensestore/internal/user"
)

// Handlers groups everything RegisterAllRoutes mounts. Nil handlers leave their
// routes out.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	RBAC     *rbac.Handler
	Catalog  *catalog.Handler
	Cart     *cart.Handler
	Order    *order.Handler
	Payment  *payment.Handler
	Webhook  *payment.WebhookHandler
	Support  *support.Handler
	Content  *content.Handler
	Realtime *realtime.Handler
	OpenAPI  *swagger.Document
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, authz *rbac.Authorizer, roles *auth.RoleAuthorization, allowedOrigins string, logger *slog.Logger) {
	perm := authz.RequirePermission

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LocalizedAuthErrors)

	if h.OpenAPI != nil {
		router.Method(http.MethodGet, "/openapi.yml", h.OpenAPI)
		router.Handle("/swagger/*", swagger.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Webhook != nil {
			r.Post("/payments/payos/webhook", h.Webhook.HandlePayOSWebhook)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/register", h.Auth.Register)
			ar.Post("/refresh", h.Auth.RefreshToken)
			ar.Post("/logout", h.Auth.Logout)
		})

		// Storefront
		if h.Catalog != nil {
			r.Get("/categories", h.Catalog.PublicCategories)
			r.Get("/products", h.Catalog.PublicProducts)
			r.Get("/products/{slug}", h.Catalog.PublicProduct)
		}
		if h.Content != nil {
			r.Get("/posts", h.Content.PublicPosts)
			r.Get("/posts/{slug}", h.Content.PublicPost)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
				pr.Put("/users/me", h.User.UpdateCurrentUser)
				pr.Put("/users/me/password", h.User.ChangePassword)
			}
			if h.RBAC != nil {
				pr.Get("/users/me/permissions", h.RBAC.MyPermissions)
			}

			if h.Cart != nil {
				pr.Route("/cart", func(cr chi.Router) {
					cr.Get("/", h.Cart.GetCart)
					cr.Delete("/", h.Cart.Clear)
					cr.Post("/items", h.Cart.AddItem)
					cr.Put("/items/{variantID}", h.Cart.UpdateItem)
					cr.Delete("/items/{variantID}", h.Cart.RemoveItem)
				})
			}

			if h.Order != nil {
				pr.Route("/orders", func(or chi.Router) {
					or.Post("/", h.Order.Checkout)
					or.Get("/", h.Order.ListMyOrders)
					or.Get("/{id}", h.Order.GetMyOrder)
					or.Post("/{id}/payment", h.Order.PayMyOrder)
					or.Post("/{id}/cancel", h.Order.CancelMyOrder)
				})
			}

			if h.Support != nil {
				pr.Route("/tickets", func(tr chi.Router) {
					tr.Post("/", h.Support.CreateTicket)
					tr.Get("/", h.Support.ListMyTickets)
					tr.Get("/{id}", h.Support.GetMyTicket)
					tr.Post("/{id}/replies", h.Support.ReplyMyTicket)
				})
				pr.Route("/chat/sessions", func(cr chi.Router) {
					cr.Post("/", h.Support.OpenChat)
					cr.Get("/", h.Support.ListMyChats)
					cr.Get("/{id}", h.Support.GetChat)
					cr.Get("/{id}/messages", h.Support.ListChatMessages)
					cr.Post("/{id}/messages", h.Support.SendChatMessage)
					cr.Post("/{id}/close", h.Support.CloseChat)
				})
			}

			if h.Realtime != nil {
				pr.Get("/ws/notifications", h.Realtime.Notifications)
				pr.Get("/ws/chat/{id}", h.Realtime.ChatSession)
				pr.With(roles.Require(auth.RoleStaff)).Get("/ws/queue", h.Realtime.Queue)
			}

			pr.Route("/admin", func(ad chi.Router) {
				if h.Catalog != nil {
					ad.With(perm(rbac.ModuleCategory, rbac.PermissionView)).Get("/categories", h.Catalog.AdminCategories)
					ad.With(perm(rbac.ModuleCategory, rbac.PermissionCreate)).Post("/categories", h.Catalog.CreateCategory)
					ad.With(perm(rbac.ModuleCategory, rbac.PermissionEdit)).Put("/categories/{id}", h.Catalog.UpdateCategory)
					ad.With(perm(rbac.ModuleCategory, rbac.PermissionEdit)).Patch("/categories/{id}/toggle", h.Catalog.ToggleCategory)
					ad.With(perm(rbac.ModuleCategory, rbac.PermissionDelete)).Delete("/categories/{id}", h.Catalog.DeleteCategory)

					ad.With(perm(rbac.ModuleProduct, rbac.PermissionView)).Get("/products", h.Catalog.AdminProducts)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionView)).Get("/products/{id}", h.Catalog.GetProduct)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionCreate)).Post("/products", h.Catalog.CreateProduct)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Put("/products/{id}", h.Catalog.UpdateProduct)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Patch("/products/{id}/toggle", h.Catalog.ToggleProduct)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionDelete)).Delete("/products/{id}", h.Catalog.DeleteProduct)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Post("/products/{id}/image", h.Catalog.UploadProductImage)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionCreate)).Post("/products/{id}/variants", h.Catalog.CreateVariant)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Put("/variants/{variantID}", h.Catalog.UpdateVariant)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Patch("/variants/{variantID}/toggle", h.Catalog.ToggleVariant)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionDelete)).Delete("/variants/{variantID}", h.Catalog.DeleteVariant)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionEdit)).Post("/variants/{variantID}/keys", h.Catalog.AddLicenseKeys)
					ad.With(perm(rbac.ModuleProduct, rbac.PermissionView)).Get("/variants/{variantID}/keys/stock", h.Catalog.LicenseKeyStock)
				}

				if h.Order != nil {
					ad.With(perm(rbac.ModuleOrder, rbac.PermissionView)).Get("/orders", h.Order.AdminListOrders)
					ad.With(perm(rbac.ModuleOrder, rbac.PermissionExport)).Get("/orders/export", h.Order.ExportOrders)
					ad.With(perm(rbac.ModuleOrder, rbac.PermissionView)).Get("/orders/{id}", h.Order.AdminGetOrder)
					ad.With(perm(rbac.ModuleOrder, rbac.PermissionEdit)).Post("/orders/{id}/cancel", h.Order.AdminCancelOrder)
				}

				if h.Payment != nil {
					ad.With(perm(rbac.ModulePayment, rbac.PermissionView)).Get("/payments", h.Payment.ListPayments)
					ad.With(perm(rbac.ModulePayment, rbac.PermissionView)).Get("/payments/{id}", h.Payment.GetPayment)
				}

				if h.Support != nil {
					ad.With(perm(rbac.ModuleTicket, rbac.PermissionView)).Get("/tickets", h.Support.AdminListTickets)
					ad.With(perm(rbac.ModuleTicket, rbac.PermissionView)).Get("/tickets/{id}", h.Support.AdminGetTicket)
					ad.With(perm(rbac.ModuleTicket, rbac.PermissionAssign)).Put("/tickets/{id}/assignee", h.Support.AdminAssignTicket)
					ad.With(perm(rbac.ModuleTicket, rbac.PermissionEdit)).Put("/tickets/{id}/status", h.Support.AdminUpdateTicketStatus)
					ad.With(perm(rbac.ModuleTicket, rbac.PermissionEdit)).Post("/tickets/{id}/replies", h.Support.AdminReplyTicket)

					ad.With(perm(rbac.ModuleSupportChat, rbac.PermissionView)).Get("/chat/queue", h.Support.ChatQueue)
					ad.With(perm(rbac.ModuleSupportChat, rbac.PermissionAssign)).Post("/chat/sessions/{id}/claim", h.Support.ClaimChat)
				}

				if h.Content != nil {
					ad.With(perm(rbac.ModuleContent, rbac.PermissionView)).Get("/posts", h.Content.AdminPosts)
					ad.With(perm(rbac.ModuleContent, rbac.PermissionView)).Get("/posts/{id}", h.Content.AdminGetPost)
					ad.With(perm(rbac.ModuleContent, rbac.PermissionCreate)).Post("/posts", h.Content.CreatePost)
					ad.With(perm(rbac.ModuleContent, rbac.PermissionEdit)).Put("/posts/{id}", h.Content.UpdatePost)
					ad.With(perm(rbac.ModuleContent, rbac.PermissionEdit)).Patch("/posts/{id}/publish", h.Content.TogglePost)
					ad.With(perm(rbac.ModuleContent, rbac.PermissionDelete)).Delete("/posts/{id}", h.Content.DeletePost)
				}

				if h.User != nil {
					ad.With(perm(rbac.ModuleUser, rbac.PermissionView)).Get("/users", h.User.ListUsers)
					ad.With(perm(rbac.ModuleUser, rbac.PermissionView)).Get("/users/{id}", h.User.GetUser)
					ad.With(perm(rbac.ModuleUser, rbac.PermissionEdit)).Patch("/users/{id}/toggle", h.User.ToggleActive)
				}

				if h.RBAC != nil {
					ad.With(perm(rbac.ModuleUser, rbac.PermissionAssign)).Put("/users/{id}/roles", h.RBAC.AssignUserRoles)

					ad.With(perm(rbac.ModuleRole, rbac.PermissionView)).Get("/roles", h.RBAC.ListRoles)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionCreate)).Post("/roles", h.RBAC.CreateRole)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionView)).Get("/roles/{id}", h.RBAC.GetRole)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionEdit)).Put("/roles/{id}", h.RBAC.UpdateRole)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionDelete)).Delete("/roles/{id}", h.RBAC.DeleteRole)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionEdit)).Patch("/roles/{id}/toggle", h.RBAC.ToggleRole)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionView)).Get("/roles/{id}/grants", h.RBAC.ListGrants)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionEdit)).Put("/roles/{id}/grants", h.RBAC.UpsertGrant)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionEdit)).Patch("/roles/{id}/grants/{grantID}/toggle", h.RBAC.ToggleGrant)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionView)).Get("/modules", h.RBAC.ListModules)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionCreate)).Post("/modules", h.RBAC.CreateModule)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionView)).Get("/permissions", h.RBAC.ListPermissions)
					ad.With(perm(rbac.ModuleRole, rbac.PermissionCreate)).Post("/permissions", h.RBAC.CreatePermission)
				}
			})
		})
	})
}
