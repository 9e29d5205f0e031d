package main

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
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"insightportal/internal/api"
	"insightportal/internal/auth"
	"insightportal/internal/chat"
	"insightportal/internal/config"
	"insightportal/internal/credentials"
	"insightportal/internal/dashboard"
	"insightportal/internal/logging"
	"insightportal/internal/redis"
	"insightportal/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "insightportal",
	Short: "Analytics portal for security incidents and IT tickets",
	Long: `insightportal serves the login-gated analytics API (security incident and
IT ticket dashboards, the dataset inventory and the support chat) and manages
the credential store.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $INSIGHTPORTAL_CONFIG or config.json)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(usersCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the pieces every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sqlx.DB
}

func openApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	dbType := config.DatabaseType()
	logger.Info("opening database", zap.String("type", dbType))
	db, err := storage.Open(dbType, cfg)
	if err != nil {
		logger.Sync()
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Create necessary tables: users, user_tokens, chat_messages
	if err := storage.Migrate(db); err != nil {
		db.Close()
		logger.Sync()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db}, nil
}

func (a *app) Close() {
	a.db.Close()
	a.logger.Sync()
}

func (a *app) store() *credentials.Store {
	return credentials.NewStore(a.db, a.cfg.BasicConfig.BcryptCost, a.logger.Named("credentials"))
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	var cache *redis.Client
	if cfg.Redis.Enabled {
		cache, err = redis.NewRedisClient(cfg.Redis)
		if err != nil {
			return fmt.Errorf("create redis client: %w", err)
		}
		defer cache.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokenTTL := time.Duration(cfg.BasicConfig.TokenTTL) * time.Minute
	authService := auth.NewService(a.db, cache, tokenTTL, logger.Named("auth"))
	authService.StartTokenCleaner(ctx, time.Duration(cfg.BasicConfig.TokenCleanInterval)*time.Minute)

	handlers := api.NewHandler(
		a.store(),
		authService,
		dashboard.NewService(cfg.Data, logger.Named("dashboard")),
		chat.NewHistory(a.db, logger.Named("chat")),
		cfg.DashboardRoles,
		logger.Named("api"),
	)
	handlers.AllowSelfRegistration(cfg.BasicConfig.SelfRegisterRoles)

	router := gin.New()
	router.Use(gin.Recovery(), logging.GinLogger(logger.Named("http")))
	handlers.RegisterRoutes(router)

	addr := cfg.BasicConfig.ServerAddress
	if addr == "" {
		addr = ":8090"
	}
	srv := &http.Server{Addr: addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
