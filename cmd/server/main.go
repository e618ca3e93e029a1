package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"delivery-tracking-service/internal/adapters/cache"
	"delivery-tracking-service/internal/adapters/mq"
	"delivery-tracking-service/internal/adapters/repositories"
	"delivery-tracking-service/internal/adapters/routing"
	"delivery-tracking-service/internal/adapters/traffic"
	"delivery-tracking-service/internal/adapters/weather"
	"delivery-tracking-service/internal/api"
	"delivery-tracking-service/internal/platform/db"
	"delivery-tracking-service/internal/ports"
	"delivery-tracking-service/internal/services"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, ORS, RabbitMQ) behind ports
// and starts the HTTP server. Every external system is optional: missing
// configuration swaps in an in-process fallback so the service still runs
// locally with zero infrastructure.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := getEnv("PORT", "8080")

	// Route provider: ORS when a key is present, otherwise the engine
	// degrades to straight-line geometry on its own.
	var routeProvider ports.RouteProvider
	if key := strings.TrimSpace(os.Getenv("ORS_API_KEY")); key != "" {
		p, err := routing.NewORSRouteProvider(key)
		if err != nil {
			log.Fatal(err)
		}
		routeProvider = p
	} else {
		log.Println("ORS_API_KEY not set, routes fall back to straight-line geometry")
	}

	var trafficProvider ports.TrafficProvider = &traffic.StaticTrafficProvider{}
	if url := os.Getenv("TRAFFIC_URL"); url != "" {
		p, err := traffic.NewHTTPTrafficProvider(url, traffic.Thresholds{})
		if err != nil {
			log.Fatal(err)
		}
		trafficProvider = p
	}

	var weatherProvider ports.WeatherProvider
	if key := strings.TrimSpace(os.Getenv("WEATHER_API_KEY")); key != "" {
		p, err := weather.NewOpenWeatherProvider(key)
		if err != nil {
			log.Fatal(err)
		}
		weatherProvider = p
	}

	var routeCache ports.RouteCache = cache.NewMemoryRouteCache()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("redis ping: %v", err)
		}
		defer client.Close()
		routeCache = cache.NewRedisRouteCache(client)
	}

	var repo ports.OrderRepository = repositories.NewMemoryOrderRepository()
	if url := os.Getenv("DATABASE_URL"); url != "" {
		conn, err := db.Open(url)
		if err != nil {
			log.Fatal(err)
		}
		defer conn.Close()
		if err := repositories.InitSchema(conn); err != nil {
			log.Fatal(err)
		}
		repo = repositories.NewPostgresOrderRepository(conn)
	} else {
		log.Println("DATABASE_URL not set, orders are kept in memory")
	}

	broadcaster := services.NewBroadcaster()

	// RabbitMQ carries status events out and driver locations in. Without it
	// status changes are still recorded, just not published.
	var statusEvents services.StatusPublisher
	if url := os.Getenv("RABBITMQ_URL"); url != "" {
		client, err := mq.Dial(url)
		if err != nil {
			log.Fatal(err)
		}
		defer client.Close()

		publisher, err := mq.NewStatusPublisher(client)
		if err != nil {
			log.Fatal(err)
		}
		statusEvents = publisher

		consumer, err := mq.NewLocationConsumer(client, broadcaster)
		if err != nil {
			log.Fatal(err)
		}
		go func() {
			if err := consumer.Run(context.Background()); err != nil {
				log.Printf("location consumer stopped err=%v", err)
			}
		}()
	}

	engine := services.NewRouteEngine(routeProvider, trafficProvider, weatherProvider, routeCache, services.RouteEngineConfig{})
	orders := services.NewOrderService(repo, statusEvents, services.ProximityThresholds{})

	router := api.NewRouter(engine, orders, broadcaster)

	// Write timeout stays generous for cold-cache routes against ORS; the
	// websocket endpoints hijack the connection and are unaffected.
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server listening addr=:%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("shutdown err=%v", err)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
