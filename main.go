package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropcart/auth"
	"cropcart/cart"
	"cropcart/catalog"
	"cropcart/db"
	"cropcart/models"
	"cropcart/mq"
	"cropcart/notify"
	"cropcart/orders"
	"cropcart/ratelim"
	"cropcart/rdx"
	"cropcart/routes"
	"cropcart/session"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// securityHeaders applies a set of recommended HTTP security headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// XSS, content sniffing, framing
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "frame-ancestors 'none'")
		// HSTS (must be on HTTPS)
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
		// Referrer and permissions
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request method, path, remote address, and duration.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		duration := time.Since(start)
		log.Printf("%s %s from %s – %v", r.Method, r.RequestURI, r.RemoteAddr, duration)
	})
}

// Index is a simple health check handler.
func Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	fmt.Fprint(w, "200")
}

func main() {
	// load .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	// read port
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	} else if port[0] != ':' {
		port = ":" + port
	}

	db.Connect()
	rdx.Connect()
	go mq.StartIndexingWorker()

	cache := rdx.RedisCache{}
	cartStore := cart.NewCartStore(cache)
	wishlistStore := cart.NewWishlistStore(cache)

	catalogStore := catalog.NewStore(&catalog.MongoRepo{
		Crops: db.CropsCollection,
		Users: db.UserCollection,
	})

	hub := notify.NewHub()
	go hub.Run()

	sessions := session.NewManager(&session.MongoUserRepo{Coll: db.UserCollection})
	pipeline := orders.NewPipeline(&orders.MongoRepo{Coll: db.OrdersCollection}, cartStore, hub)

	// Sign-in hydrates per-user state; the catalog and order history warm in
	// the background so the first page render does not wait on them.
	sessions.OnAuthenticated(func(ctx context.Context, user models.User, _ uint64) {
		cartStore.Hydrate(ctx, user.UserID)
		wishlistStore.Hydrate(ctx, user.UserID)
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := catalogStore.LoadAll(bg); err != nil {
				log.Printf("catalog preload failed: %v", err)
			}
			if _, err := pipeline.LoadForCurrentUser(bg, user); err != nil {
				log.Printf("order preload for %s failed: %v", user.UserID, err)
			}
		}()
	})
	// Sign-out drops everything user-scoped. The catalog is public and stays.
	sessions.OnAnonymous(func(ctx context.Context, userID string, _ uint64) {
		cartStore.Drop(ctx, userID)
		wishlistStore.Drop(ctx, userID)
		pipeline.Drop(userID)
	})

	rateLimiter := ratelim.NewRateLimiter()

	router := httprouter.New()
	router.GET("/health", Index)
	routes.AddAuthRoutes(router, auth.NewHandlers(sessions), rateLimiter)
	routes.AddSessionRoutes(router, session.NewHandlers(sessions))
	routes.AddCatalogRoutes(router, catalog.NewHandlers(catalogStore))
	routes.AddCartRoutes(router, cart.NewHandlers(cartStore, wishlistStore, catalogStore))
	routes.AddOrderRoutes(router, orders.NewHandlers(pipeline, sessions))
	routes.AddNotifyRoutes(router, hub)
	routes.AddStaticRoutes(router)

	// apply middleware: CORS → security headers → logging → router
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"}, // lock down in production
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	handler := loggingMiddleware(securityHeaders(corsHandler))

	server := &http.Server{
		Addr:              port,
		Handler:           handler,
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		log.Println("🛑 Shutting down order hub...")
		hub.Stop()
	})

	go func() {
		log.Printf("🚀 Server listening on %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ ListenAndServe error: %v", err)
		}
	}()

	// wait for interrupt or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("🛑 Shutdown signal received; shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}

	// Let pending cart persists land before the cache client goes away.
	cartStore.Flush()
	wishlistStore.Flush()
	if err := rdx.Close(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	db.Close(ctx)

	log.Println("✅ Server stopped cleanly")
}
