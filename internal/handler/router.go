package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/bookbazar/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Recoverer(h.logger, h.InternalError))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(h.sessions.LoadSession)

	requireUser := h.sessions.RequireUser

	r.Get("/", h.Home)
	r.Get("/index", h.Home)

	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)

	r.Get("/browse", h.Catalog("Browse Books", false))

	r.Group(func(r chi.Router) {
		r.Use(requireUser("Please login to access the library."))

		r.Get("/books", h.Catalog("Library", true))
		r.Get("/library", h.Catalog("Library", true))
	})

	r.With(requireUser("Please login to add items to cart.")).Get("/add_to_cart/{bookId}", h.AddToCart)
	r.With(requireUser("Please login to view your cart.")).Get("/cart", h.Cart)
	r.With(requireUser("")).Get("/update_cart/{bookId}/{action}", h.UpdateCart)
	r.With(requireUser("Please login to checkout.")).Get("/checkout", h.CheckoutForm)
	r.With(requireUser("")).Post("/process_checkout", h.ProcessCheckout)
	r.With(requireUser("Please login to view your account.")).Get("/account", h.Account)

	r.Get("/about", h.StaticPage("about", "About"))
	r.Get("/contact", h.StaticPage("contact", "Contact"))
	r.Get("/faq", h.StaticPage("faq", "FAQ"))
	r.Get("/terms", h.StaticPage("terms", "Terms of Service"))
	r.Get("/privacy", h.StaticPage("privacy", "Privacy Policy"))

	r.Route("/api", func(r chi.Router) {
		r.Get("/cart_count", h.CartCountAPI)
		r.Get("/book/{bookId}", h.BookAPI)
	})

	r.Get("/health", h.Health)
	r.Handle("/static/*", staticFiles())

	r.NotFound(h.NotFound)

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
