package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"

	"internhub/cmd/buildCFG"
	"internhub/internal/api/api"
	"internhub/internal/auth"
	"internhub/internal/mailer"
	"internhub/internal/mailworker"
	"internhub/internal/model"
	"internhub/internal/payment"
	"internhub/internal/rabbit"
	"internhub/internal/repo"
	"internhub/internal/service"
)

func main() {
	zlog.Init()
	log := zlog.Logger

	cfg := config.New()
	if err := cfg.Load("config.yaml", "", "'"); err != nil {
		log.Fatal().Msgf("failed to load configuration: %v", err)
	}
	serverCfg := buildCFG.BuildServerConfig(cfg, &log)

	masterDSN, slaveDSNs, poolOptions, err := buildCFG.BuildDBConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build DB config")
	}
	db, err := dbpg.New(masterDSN, slaveDSNs, poolOptions)
	if err != nil {
		log.Fatal().Msgf("failed to connect to DB: %v", err)
	}
	if err := db.Master.Ping(); err != nil {
		log.Fatal().Msgf("DB ping failed: %v", err)
	}
	log.Info().Msg("Database connected successfully")

	repository, err := repo.NewRepository(db, &log)
	if err != nil {
		log.Fatal().Msgf("failed to initialize repository: %v", err)
	}
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal().Err(err).Msg("cannot get working directory")
	}
	migrationPath := filepath.Join(cwd, "migrations/postgres")
	if err := repository.MigrateUp(migrationPath); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	log.Info().Msg("Migrations applied successfully")

	authCfg, err := buildCFG.BuildAuthConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load auth config")
	}
	guard, err := auth.NewGuard(repository, &log, authCfg.Secret, authCfg.SessionTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize auth guard")
	}

	if bootstrap := buildCFG.BuildAdminBootstrap(cfg); bootstrap.Complete() {
		if err := ensureDefaultAdmin(repository, bootstrap); err != nil {
			log.Fatal().Err(err).Msg("failed to ensure default admin")
		}
		log.Info().Str("email", bootstrap.Email).Msg("default admin ensured")
	}

	smtpCfg, err := buildCFG.BuildSMTPConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load SMTP config")
	}
	mailSender, err := mailer.New(smtpCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize mailer")
	}

	paymentCfg, refPrefix, err := buildCFG.BuildPaymentConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load payment config")
	}
	provider, err := payment.NewClient(paymentCfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize payment client")
	}

	rabbitCfg, err := buildCFG.BuildRabbitConfig(cfg, &log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load RabbitMQ config")
	}
	rmq, err := rabbit.NewRabbit(rabbitCfg.Url, rabbitCfg.Exchange, rabbitCfg.Queue)
	if err != nil {
		log.Fatal().Msgf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rmq.Close()

	workerCtx, cancelWorkers := context.WithCancel(context.Background())

	emailReader := mailworker.NewReader(rmq, mailSender)
	emailReader.Start(workerCtx)

	serviceInstance := service.NewService(repository, &log, guard, provider, mailSender, rmq, refPrefix)
	app := api.NewRouters(&api.Routers{Service: serviceInstance, Guard: guard})

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info().Msgf("Starting server on %s", serverCfg.Port)
		if err := app.Run(":" + serverCfg.Port); err != nil {
			serverErrChan <- fmt.Errorf("failed to start server: %w", err)
		}
	}()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-signalChan:
		log.Info().Msgf("Received signal %s. Initiating shutdown...", sig)
	case err := <-serverErrChan:
		log.Error().Msgf("Server error: %v", err)
	}

	cancelWorkers()
	emailReader.Stop()

	log.Info().Msg("Shutdown complete")
}

func ensureDefaultAdmin(r repo.Repository, bootstrap buildCFG.AdminBootstrap) error {
	hash, err := auth.HashPassword(bootstrap.Password)
	if err != nil {
		return err
	}
	return r.CreateAdmin(context.Background(), &model.AdminUser{
		ID:           uuid.NewString(),
		Username:     bootstrap.Username,
		Email:        bootstrap.Email,
		PasswordHash: hash,
		FullName:     bootstrap.FullName,
		Role:         "super_admin",
	})
}
