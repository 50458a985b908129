package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rajeshk/taskhub/internal/auth"
	"github.com/rajeshk/taskhub/internal/cache"
	"github.com/rajeshk/taskhub/internal/config"
	"github.com/rajeshk/taskhub/internal/db"
	"github.com/rajeshk/taskhub/internal/http/handlers"
	"github.com/rajeshk/taskhub/internal/http/middlewares"
	"github.com/rajeshk/taskhub/internal/observability"
	"github.com/rajeshk/taskhub/internal/repo/postgres"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const maxBodyBytes = 1 << 20 // 1 MiB

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, cfg config.Config, lists cache.TaskLists) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSOrigins))
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	if cfg.OTELEndpoint != "" {
		r.Use(otelgin.Middleware("taskhub"))
	}

	// metrics

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)
	r.Use(prom.GinHandleMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// health probes against the pool

	probe := handlers.HealthProbe{
		PingDB: func(ctx context.Context) error {
			if pool == nil {
				return nil
			}

			pctx, cancel := context.WithTimeout(ctx, 1*time.Second)
			defer cancel()

			return pool.Ping(pctx)
		},
		TableExists: func(ctx context.Context, name string) (bool, error) {
			if pool == nil {
				return true, nil
			}
			return db.TableExists(ctx, pool, name)
		},
	}

	// wire up repositories

	usersRepo := postgres.NewUsersRepo(pool, prom)
	tasksRepo := postgres.NewTasksRepo(pool, prom)

	// token service + auth gate

	jwtManager := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTokenTTLHours)*time.Hour)
	authGate := middlewares.NewAuthMiddleware(jwtManager, prom)

	// handlers

	healthHandler := handlers.NewHealthHandler(probe)
	authHandler := handlers.NewAuthHandler(usersRepo, usersRepo, jwtManager, log)
	usersHandler := handlers.NewUsersHandler(usersRepo, log)
	tasksHandler := handlers.NewTasksHandler(tasksRepo, lists, log)

	api := r.Group("/api")

	api.GET("/health", healthHandler.Health)
	api.POST("/register", authHandler.Register)
	api.POST("/login", authHandler.Login)

	protected := api.Group("", authGate.RequireAuth())

	protected.GET("/user/profile", usersHandler.Profile)
	protected.GET("/tasks", tasksHandler.ListTasks)
	protected.POST("/tasks", tasksHandler.CreateTask)
	protected.POST("/tasks/search", tasksHandler.SearchTasks)
	protected.PUT("/tasks/:id", tasksHandler.UpdateTask)
	protected.DELETE("/tasks/:id", tasksHandler.DeleteTask)

	return r
}
