package routes

import (
	"net/http"

	"github.com/elmesiashu/tenseishitara/app/controllers"
	"github.com/elmesiashu/tenseishitara/pkg/metrics"
	"github.com/elmesiashu/tenseishitara/pkg/middleware"
	"github.com/elmesiashu/tenseishitara/pkg/rbac"
	"github.com/elmesiashu/tenseishitara/pkg/router"
	"github.com/elmesiashu/tenseishitara/pkg/ws"
)

// Deps carries the constructed controllers and shared middleware into the
// route table.
type Deps struct {
	Auth     *controllers.AuthController
	Products *controllers.ProductController
	Cart     *controllers.CartController
	Address  *controllers.AddressController
	Payment  *controllers.PaymentController
	Checkout *controllers.CheckoutController
	Orders   *controllers.OrderController

	Session  router.Middleware
	OrderHub *ws.Hub
}

// RegisterAPI mounts the full REST surface.
func RegisterAPI(r *router.Router, d Deps) {
	r.Get("/metrics", "metrics", metrics.Handler())

	api := r.Group("/api", d.Session)

	api.Post("/register", "auth.register", d.Auth.Register)
	api.Post("/login", "auth.login", d.Auth.Login)

	api.Get("/products", "products.index", d.Products.Index)
	api.Get("/products/{id}", "products.show", d.Products.Show)

	cart := api.Group("/cart")
	cart.Get("", "cart.index", d.Cart.Index)
	cart.Post("", "cart.add", d.Cart.Add)
	cart.Put("/{productID}", "cart.update", d.Cart.Update)
	cart.Delete("/{productID}", "cart.remove", d.Cart.Remove)
	cart.Delete("", "cart.clear", d.Cart.Clear)

	protected := api.Group("", middleware.Auth)

	protected.Get("/addresses", "addresses.index", d.Address.Index)
	protected.Post("/addresses", "addresses.store", d.Address.Store)
	protected.Put("/addresses/{id}", "addresses.update", d.Address.Update)
	protected.Patch("/addresses/{id}/primary", "addresses.primary", d.Address.SetPrimary)
	protected.Delete("/addresses/{id}", "addresses.destroy", d.Address.Destroy)

	protected.Get("/payments", "payments.index", d.Payment.Index)
	protected.Post("/payments", "payments.store", d.Payment.Store)
	protected.Patch("/payments/{id}/primary", "payments.primary", d.Payment.SetPrimary)
	protected.Delete("/payments/{id}", "payments.destroy", d.Payment.Destroy)

	protected.Post("/checkout", "checkout.place", d.Checkout.PlaceOrder)

	protected.Get("/orders", "orders.index", d.Orders.Index)
	protected.Get("/orders/{orderNo}", "orders.show", d.Orders.Show)

	admin := protected.Group("", rbac.HasRole("admin"))
	admin.Post("/products", "admin.products.store", d.Products.Store)
	admin.Put("/products/{id}", "admin.products.update", d.Products.Update)
	admin.Post("/products/{id}/image", "admin.products.image", d.Products.UploadImage)
	admin.Patch("/orders/{orderNo}/status", "admin.orders.status", d.Orders.UpdateStatus)
	admin.Get("/orders/feed", "admin.orders.feed", func(w http.ResponseWriter, r *http.Request) {
		ws.Upgrade(w, r, d.OrderHub)
	})
}
