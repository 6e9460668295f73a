package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rollcall-app/rollcall/internal/attendance"
	"github.com/rollcall-app/rollcall/internal/audit"
	"github.com/rollcall-app/rollcall/internal/enrollment"
	"github.com/rollcall-app/rollcall/internal/httpmiddleware"
	"github.com/rollcall-app/rollcall/internal/logger"
	"github.com/rollcall-app/rollcall/internal/models"
	"github.com/rollcall-app/rollcall/internal/server"
	"github.com/rollcall-app/rollcall/internal/session"
	"github.com/rollcall-app/rollcall/internal/store"
	memorystore "github.com/rollcall-app/rollcall/internal/store/memory"
	postgresstore "github.com/rollcall-app/rollcall/internal/store/postgres"
	"github.com/rollcall-app/rollcall/internal/token"
)

type ServerCmd struct {
	// Server configuration
	Listen string `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"ROLLCALL_LISTEN"`

	// Identity boundary: tokens are minted by the campus identity service,
	// this server only verifies them.
	JWTSigningKey string `help:"HS256 signing key shared with the identity service" env:"ROLLCALL_JWT_KEY"`
	JWTIssuer     string `help:"expected JWT issuer" default:"campus-identity" env:"ROLLCALL_JWT_ISSUER"`

	// Scan policy
	RequireToken  bool          `help:"require a rotating code on every scan" default:"true" env:"ROLLCALL_REQUIRE_TOKEN"`
	TokenValidity time.Duration `help:"rotating token validity" default:"60s" env:"ROLLCALL_TOKEN_VALIDITY"`

	// Rate limiting
	RedisAddr     string `help:"redis address for the shared rate limiter (empty uses in-process limiting)" env:"ROLLCALL_REDIS_ADDR"`
	ScanRateLimit int    `help:"scan requests per minute per IP" default:"30" env:"ROLLCALL_SCAN_RATE_LIMIT"`

	// Retention
	AuditRetention time.Duration `help:"audit event retention window" default:"2160h" env:"ROLLCALL_AUDIT_RETENTION"`
	JanitorPeriod  time.Duration `help:"janitor sweep interval" default:"10m" env:"ROLLCALL_JANITOR_PERIOD"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"ROLLCALL_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`

	// Development modes
	DevSeed bool `help:"seed a demo catalog into the memory store (development only)" default:"false"`
}

type PostgresStoreFlags struct {
	ConnString string `help:"PostgreSQL connection string" env:"POSTGRES_CONNECTION_STRING"`

	// Connection Pool Configuration
	MaxConns        int32 `help:"maximum number of connections in pool" default:"20"`
	MinConns        int32 `help:"minimum number of connections in pool" default:"5"`
	MaxConnLifetime int32 `help:"maximum connection lifetime in seconds" default:"3600"`
	MaxConnIdleTime int32 `help:"maximum connection idle time in seconds" default:"1800"`

	AutoMigrate bool `help:"run database migrations on startup" default:"false" env:"ROLLCALL_POSTGRES_AUTO_MIGRATE"`
}

func (c *ServerCmd) Run(globals *Globals) error {
	log := logger.Setup(globals.Debug)
	ctx := context.Background()

	if !globals.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if c.JWTSigningKey == "" {
		return errors.New("JWT signing key is required (--jwt-signing-key or ROLLCALL_JWT_KEY)")
	}

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	var (
		sessionStore    store.SessionStore
		tokenStore      store.TokenStore
		attendanceStore store.AttendanceStore
		auditStore      store.AuditStore
		catalogStore    store.CatalogStore
	)

	var dbHealthy server.HealthChecker = func(*gin.Context) bool { return true }

	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:      c.PostgresStore.ConnString,
			MaxConns:        c.PostgresStore.MaxConns,
			MinConns:        c.PostgresStore.MinConns,
			MaxConnLifetime: c.PostgresStore.MaxConnLifetime,
			MaxConnIdleTime: c.PostgresStore.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to create connection pool: %w", err)
		}
		defer pool.Close()

		if c.PostgresStore.AutoMigrate {
			if err := postgresstore.RunMigrations(ctx, pool); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
		}

		sessionStore = postgresstore.NewSessionStore(pool)
		tokenStore = postgresstore.NewTokenStore(pool)
		attendanceStore = postgresstore.NewAttendanceStore(pool)
		auditStore = postgresstore.NewAuditStore(pool)
		catalogStore = postgresstore.NewCatalogStore(pool)
		dbHealthy = func(c *gin.Context) bool { return pool.Ping(c.Request.Context()) == nil }

		log.Info().Msg("Using PostgreSQL stores with shared connection pool")

	default:
		memSessions := memorystore.NewSessionStore()
		memCatalog := memorystore.NewCatalogStore()
		sessionStore = memSessions
		tokenStore = memorystore.NewTokenStore()
		attendanceStore = memorystore.NewAttendanceStore(memSessions, memCatalog)
		auditStore = memorystore.NewAuditStore()
		catalogStore = memCatalog

		if c.DevSeed {
			seedDemoCatalog(memCatalog)
			log.Warn().Msg("Demo catalog seeded (--dev-seed). This should only be used in development!")
		}

		log.Info().Msg("Using in-memory stores (data is lost on restart)")
	}

	auditor := audit.New(auditStore)
	rotator := token.NewRotator(tokenStore)
	oracle := enrollment.NewOracle(catalogStore)
	sessions := session.NewManager(sessionStore, catalogStore, attendanceStore, rotator, auditor)
	recorder := attendance.NewRecorder(sessionStore, attendanceStore, catalogStore, rotator, oracle, auditor, attendance.Config{
		RequireToken: c.RequireToken,
	})

	var limiter httpmiddleware.Limiter
	if c.ScanRateLimit > 0 {
		limiter = httpmiddleware.NewMemoryLimiter(c.ScanRateLimit, c.ScanRateLimit)
	}
	var redisClient *redis.Client
	if c.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:         c.RedisAddr,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})
		defer redisClient.Close()
		if c.ScanRateLimit > 0 {
			limiter = httpmiddleware.NewRedisLimiter(redisClient, "rollcall:scan", c.ScanRateLimit)
		}
		log.Info().Str("addr", c.RedisAddr).Msg("Using redis-backed rate limiter")
	}

	srv := server.New(sessions, recorder, auditor, limiter, server.Config{
		JWTSigningKey: c.JWTSigningKey,
		JWTIssuer:     c.JWTIssuer,
		TokenValidity: c.TokenValidity,
		ScanRateLimit: c.ScanRateLimit,
	})
	srv.WithHealthCheck("db", dbHealthy)
	if redisClient != nil {
		srv.WithHealthCheck("redis", func(c *gin.Context) bool {
			return redisClient.Ping(c.Request.Context()).Err() == nil
		})
	}

	janitorCtx, stopJanitors := context.WithCancel(ctx)
	defer stopJanitors()
	go runJanitors(janitorCtx, c.JanitorPeriod, c.AuditRetention, tokenStore, auditStore)

	httpServer := configureHTTPServer(c.Listen, srv.Router(log))

	go func() {
		log.Info().Str("addr", c.Listen).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}

	return nil
}

// seedDemoCatalog loads a small fixed catalog so the memory store is usable
// out of the box.
func seedDemoCatalog(catalog *memorystore.CatalogStore) {
	instructorID := uuid.MustParse("00000000-0000-0000-0000-00000000a001")
	catalog.PutAssignment(&models.TeachingAssignment{
		AssignmentID: uuid.MustParse("00000000-0000-0000-0000-00000000b001"),
		InstructorID: instructorID,
		Subject:      "Distributed Systems",
		Section:      "A",
		Term:         "2026-1",
		Active:       true,
		CreatedAt:    time.Now(),
	})
	catalog.PutStudent(&models.Student{
		StudentID: uuid.MustParse("00000000-0000-0000-0000-00000000c001"),
		Number:    "S-1001",
		Name:      "Demo Student",
		Section:   "A",
		Term:      "2026-1",
	})
}
