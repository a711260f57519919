package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/strompris/strompris-go/cache"
	"github.com/strompris/strompris-go/clock"
	"github.com/strompris/strompris-go/config"
	"github.com/strompris/strompris-go/database"
	"github.com/strompris/strompris-go/logging"
	"github.com/strompris/strompris-go/mqttpub"
	"github.com/strompris/strompris-go/nordpool"
	"github.com/strompris/strompris-go/poller"
	"github.com/strompris/strompris-go/scheduler"
	"github.com/strompris/strompris-go/task"
	"github.com/strompris/strompris-go/www"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cnfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("strompris is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to open database: %v", err))
	}
	defer db.Close()

	logger := slog.New(logging.NewMultiHandler(
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat())))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	loc, err := time.LoadLocation(cnfg.Polling.GetTimezone())
	if err != nil {
		panic(fmt.Sprintf("failed to load timezone: %v", err))
	}

	clk := clock.System()
	store := cache.NewPriceStore(clk)
	sched := scheduler.New(logger.With("module", "scheduler"), clk)
	source := nordpool.NewClient(
		cnfg.Nordpool.GetBaseUrl(),
		cnfg.Nordpool.GetAreas(),
		cnfg.Nordpool.GetCurrency())

	var notifier poller.Notifier
	if cnfg.Mqtt.Enabled() {
		pub := mqttpub.New(
			cnfg.Mqtt.Host,
			cnfg.Mqtt.Port,
			cnfg.Mqtt.Username,
			cnfg.Mqtt.Password,
			cnfg.Mqtt.GetTopicPrefix())
		if err := pub.Connect(); err != nil {
			logger.Error("MQTT connection failed, publishing disabled", slog.Any("error", err))
		} else {
			defer pub.Disconnect()
			notifier = pub
		}
	}

	pollerCnfg := poller.Config{
		Timezone:   loc,
		FetchHour:  cnfg.Polling.GetFetchHour(),
		RetryDelay: cnfg.Polling.GetRetryDelay(),
	}
	p := poller.New(logger.With("module", "poller"), pollerCnfg, source, store, sched, clk, notifier)
	go p.Run(ctx)

	tasks := task.NewTasks(db, cnfg)
	tasks.Run()
	defer tasks.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server := www.NewServer(store, db, cnfg.Api, Version)
	server.Run(ctx)
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	time.Sleep(2 * time.Second)
	os.Exit(1)
}
