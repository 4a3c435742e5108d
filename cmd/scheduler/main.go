package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"

	"github.com/pershin-daniil/MeetingScheduler/internal/auth"
	"github.com/pershin-daniil/MeetingScheduler/internal/calendar"
	"github.com/pershin-daniil/MeetingScheduler/internal/config"
	"github.com/pershin-daniil/MeetingScheduler/internal/email"
	"github.com/pershin-daniil/MeetingScheduler/internal/rest"
	"github.com/pershin-daniil/MeetingScheduler/internal/telegram"
	"github.com/pershin-daniil/MeetingScheduler/pkg/csvstore"
	"github.com/pershin-daniil/MeetingScheduler/pkg/logger"
	"github.com/pershin-daniil/MeetingScheduler/pkg/notifier"
	"github.com/pershin-daniil/MeetingScheduler/pkg/pgstore"
	"github.com/pershin-daniil/MeetingScheduler/pkg/service"
	"github.com/pershin-daniil/MeetingScheduler/pkg/worker"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	log := logger.New(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var store service.Store
	if cfg.PgDSN != "" {
		pg, err := pgstore.New(ctx, log, cfg.PgDSN)
		if err != nil {
			log.Panic(err)
		}
		defer func() {
			if err := pg.Close(); err != nil {
				log.Warnf("err closing store: %v", err)
			}
		}()
		if err = pg.Migrate(migrate.Up); err != nil {
			log.Panic(err)
		}
		store = pg
	} else {
		store = csvstore.New(log, cfg.DataFile)
	}

	cal, err := calendar.New(ctx, log, cfg.CredentialsFile, cfg.CalendarID, cfg.Location)
	if err != nil {
		log.Panic(err)
	}

	var senders notifier.Fanout
	if cfg.SMTP.User != "" {
		senders = append(senders, email.New(log, email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.User,
			Username: cfg.SMTP.User,
			Password: cfg.SMTP.Password,
		}))
	} else {
		log.Warn("SMTP_USER is not set, notifications are only logged")
		senders = append(senders, notifier.NewLog(log))
	}

	var bot *tele.Bot
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBot(cfg.TelegramToken)
		if err != nil {
			log.Panic(err)
		}
		senders = append(senders, telegram.NewNotifier(log, bot, cfg.TelegramChatID))
	}

	app := service.NewScheduleService(log, store, cal, senders, service.Config{
		Location:    cfg.Location,
		HostAddress: cfg.HostAddress(),
	})

	var verifiers auth.All
	if cfg.Auth.PasswordHash != "" {
		v, err := auth.NewPasswordVerifier(cfg.Auth.Username, cfg.Auth.PasswordHash)
		if err != nil {
			log.Panic(err)
		}
		verifiers = append(verifiers, v)
	}
	if cfg.Auth.APIKey != "" {
		v, err := auth.NewAPIKeyVerifier(cfg.Auth.Username, cfg.Auth.APIKey)
		if err != nil {
			log.Panic(err)
		}
		verifiers = append(verifiers, v)
	}
	sessions := auth.NewSessions(verifiers, cfg.Auth.JWTSecret, cfg.Auth.SessionTTL)
	server := rest.New(log, app, sessions, cfg.Address, version)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
		<-sigCh
		log.Info("Received signal, shutting down...")
		cancel()
	}()

	var wg sync.WaitGroup
	if bot != nil {
		tg := telegram.New(log, bot, app, cfg.TelegramChatID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			tg.Run(ctx)
		}()
	}
	if cfg.ReminderLead > 0 {
		reminder := worker.New(log, app, cfg.ReminderLead, cfg.ReminderInterval)
		wg.Add(1)
		go func() {
			defer wg.Done()
			reminder.Run(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.Panic(err)
		}
	}()
	wg.Wait()
	log.Info("Server stopped")
}
