// Command accountd runs the account and authentication API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paystream/accounts/internal/config"
	"github.com/paystream/accounts/internal/handler"
	"github.com/paystream/accounts/internal/kvstore"
	"github.com/paystream/accounts/internal/logging"
	"github.com/paystream/accounts/internal/mail"
	"github.com/paystream/accounts/internal/password"
	"github.com/paystream/accounts/internal/rate"
	"github.com/paystream/accounts/internal/reset"
	"github.com/paystream/accounts/internal/service"
	"github.com/paystream/accounts/internal/token"
	"github.com/paystream/accounts/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("text").Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogFormat)
	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	users := user.NewPostgres(pool)
	if err := users.EnsureSchema(ctx, user.Schema); err != nil {
		return err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	// Ephemeral state lives in redis; the in-process store absorbs outages.
	store := kvstore.NewFailover(kvstore.NewRedis(redisClient), kvstore.NewMemory(), log)

	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return err
	}

	issuer, err := token.NewIssuer(token.Config{
		Secret:        []byte(cfg.JWT.Secret),
		Issuer:        cfg.JWT.Issuer,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		RotateRefresh: cfg.JWT.RotateRefresh,
	}, store)
	if err != nil {
		return err
	}

	accounts, err := service.NewAccounts(users, hasher, issuer, log)
	if err != nil {
		return err
	}

	resetManager, err := reset.NewManager(reset.Config{
		TokenLength: cfg.PasswordReset.TokenLength,
		TTL:         cfg.PasswordReset.TTL,
		KeyPrefix:   cfg.PasswordReset.KeyPrefix,
	}, store, users, hasher, mailer(cfg, log), log)
	if err != nil {
		return err
	}

	limiter := rate.NewLimiter(rate.Config{
		Window:           cfg.RateLimit.Window,
		Login:            cfg.RateLimit.Login,
		ForgotPassword:   cfg.RateLimit.ForgotPassword,
		ResetPassword:    cfg.RateLimit.ResetPassword,
		VerifyResetToken: cfg.RateLimit.VerifyResetToken,
	}, store, log)

	auth := handler.NewAuthHandler(accounts, resetManager, issuer, log)
	router := handler.NewRouter(auth, issuer, limiter)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// mailer picks SMTP when configured and falls back to logging the reset
// link, which keeps local development working without a relay.
func mailer(cfg config.Config, log *slog.Logger) mail.Sender {
	if cfg.SMTP.Host == "" {
		log.Warn("SMTP_HOST not set, reset emails will be logged instead of sent")
		return mail.NewLogSender(log)
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		ResetURL:    cfg.SMTP.ResetURL,
		SendTimeout: cfg.SMTP.SendTimeout,
	})
}
