package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/db"
	"github.com/wardenbot/warden/internal/db/sqlite"
	"github.com/wardenbot/warden/internal/gateway/telegram"
	handlers "github.com/wardenbot/warden/internal/handlers/moderation"
	"github.com/wardenbot/warden/internal/infra"
	"github.com/wardenbot/warden/internal/lifecycle"
	"github.com/wardenbot/warden/internal/moderation"
	"github.com/wardenbot/warden/internal/observability"
)

func main() {
	cfg := config.Get()
	log.SetFormatter(&config.WardenFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := observability.Init(ctx); err != nil {
		log.WithError(err).Fatalln("cant init observability")
	}

	client, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(), cfg.DBName)
	if err != nil {
		log.WithError(err).Fatalln("cant open db")
	}
	defer client.Close()

	if err := moderation.SeedDefaultLadder(ctx, client); err != nil {
		log.WithError(err).Fatalln("cant seed default ladder")
	}
	for _, adminID := range cfg.Moderation.BotAdminIDs {
		if err := client.SetUserRole(ctx, adminID, db.RoleAdmin); err != nil {
			log.WithError(err).WithField("user_id", adminID).Fatalln("cant grant bot admin role")
		}
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		log.WithError(err).Errorln("cant initialize bot api")
		time.Sleep(1 * time.Second)
		log.Fatalln("exiting")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	defer botAPI.StopReceivingUpdates()

	gateway := telegram.NewGateway(botAPI)
	engine := moderation.NewEngine(gateway, client, moderation.EngineOptions{
		NotifyIssuer: cfg.Moderation.NotifyIssuer,
	})
	commands := handlers.NewCommands(botAPI, engine, gateway, client)

	go infra.GoRecoverable(-1, "process_updates", func() {
		defer cancel()

		updateConfig := api.NewUpdate(0)
		updateConfig.Timeout = 60

		for update := range botAPI.GetUpdatesChan(updateConfig) {
			update := update
			if _, err := commands.Handle(ctx, &update); err != nil {
				log.WithError(err).Errorln("cant process update")
			}
		}
	})

	runtime := lifecycle.NewRuntime(observability.NewMetricsServer(cfg.MetricsAddr))
	if err := runtime.Run(ctx, 5*time.Second); err != nil {
		log.WithError(err).Errorln("runtime shutdown failed")
	}
	log.Infoln("shutting down")
}
