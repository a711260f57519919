package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/strompris/strompris-go/cache"
	"github.com/strompris/strompris-go/clock"
	"github.com/strompris/strompris-go/nordpool"
	"github.com/strompris/strompris-go/scheduler"
	"github.com/strompris/strompris-go/types"
)

// PriceSource fetches the raw day-ahead payload for one delivery date.
// nordpool.ErrNoDataYet signals that the prices are not published yet.
type PriceSource interface {
	FetchDayAheadPrices(ctx context.Context, date time.Time) (*nordpool.DayAheadPrices, error)
}

// Notifier is told about every successfully stored batch, e.g. to push
// prices over MQTT or a websocket. May be nil.
type Notifier interface {
	NotifyPrices(points []types.PricePoint)
}

type Config struct {
	Timezone   *time.Location // local civil clock the schedule is defined in
	FetchHour  int            // local hour after which tomorrow's prices are expected
	RetryDelay time.Duration  // backoff between attempts while data is unpublished
}

func DefaultConfig() Config {
	loc, err := time.LoadLocation("Europe/Oslo")
	if err != nil {
		panic(fmt.Sprintf("failed to load Oslo location: %v", err))
	}
	return Config{
		Timezone:   loc,
		FetchHour:  15,
		RetryDelay: 15 * time.Minute,
	}
}

// Poller owns the daily fetch/cleanup state machine: an unconditional
// fetch of today's prices on startup (plus tomorrow's when past the fetch
// hour), a recurring fetch of tomorrow's prices at the fetch hour with a
// retry loop while Nord Pool has not published yet, and a recurring
// cleanup at local midnight evicting everything from before today.
type Poller struct {
	logger   *slog.Logger
	cfg      Config
	source   PriceSource
	store    *cache.PriceStore
	sched    *scheduler.Scheduler
	clock    clock.Clock
	notifier Notifier
}

func New(logger *slog.Logger, cfg Config, source PriceSource, store *cache.PriceStore, sched *scheduler.Scheduler, clk clock.Clock, notifier Notifier) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		store:    store,
		sched:    sched,
		clock:    clk,
		notifier: notifier,
	}
}

// Run performs the startup fetches, registers the two recurring jobs and
// blocks until ctx is done, at which point both jobs are cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("price polling started",
		slog.Int("fetchHour", p.cfg.FetchHour),
		slog.String("timezone", p.cfg.Timezone.String()))

	p.fetchInitial(ctx)

	fetchJob := p.sched.RunDailyAt(p.cfg.FetchHour, 0, p.cfg.Timezone, p.fetchTomorrowWithRetry)
	cleanupJob := p.sched.RunDailyAt(0, 0, p.cfg.Timezone, p.cleanup)

	p.logger.Info("recurring jobs registered",
		slog.Time("nextFetch", clock.NextDailyAt(p.clock.Now(), p.cfg.FetchHour, 0, p.cfg.Timezone)),
		slog.Time("nextCleanup", clock.NextDailyAt(p.clock.Now(), 0, 0, p.cfg.Timezone)))

	<-ctx.Done()

	fetchJob.Cancel()
	cleanupJob.Cancel()
	p.logger.Info("price polling stopped")
}

func (p *Poller) fetchInitial(ctx context.Context) {
	now := p.clock.Now().In(p.cfg.Timezone)
	today := now

	if err := p.fetchAndStore(ctx, today); err != nil {
		p.logger.Error("initial fetch of today's prices failed", slog.Any("error", err))
	}

	if now.Hour() >= p.cfg.FetchHour {
		tomorrow := today.AddDate(0, 0, 1)
		p.logger.Info("past fetch hour, also fetching tomorrow's prices on startup")
		if err := p.fetchAndStore(ctx, tomorrow); err != nil {
			p.logger.Error("initial fetch of tomorrow's prices failed", slog.Any("error", err))
		}
	}
}

// fetchTomorrowWithRetry keeps trying the same delivery date until the
// prices are published or the job is cancelled. A hard error ends the
// attempt; the next correction is tomorrow's scheduled recurrence.
func (p *Poller) fetchTomorrowWithRetry(ctx context.Context) {
	tomorrow := p.clock.Now().In(p.cfg.Timezone).AddDate(0, 0, 1)

	for {
		err := p.fetchAndStore(ctx, tomorrow)
		if err == nil {
			return
		}

		if !errors.Is(err, nordpool.ErrNoDataYet) {
			p.logger.Error("fetching day-ahead prices failed",
				slog.String("date", tomorrow.Format("2006-01-02")),
				slog.Any("error", err))
			return
		}

		p.logger.Info("day-ahead prices not published yet, waiting before retry",
			slog.String("date", tomorrow.Format("2006-01-02")),
			slog.Duration("wait", p.cfg.RetryDelay))

		timer := time.NewTimer(p.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (p *Poller) fetchAndStore(ctx context.Context, date time.Time) error {
	data, err := p.source.FetchDayAheadPrices(ctx, date)
	if err != nil {
		return err
	}

	points := nordpool.ParsePrices(data)
	p.store.AddPrices(points)

	p.logger.Info("stored day-ahead prices",
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("points", len(points)))

	if p.notifier != nil && len(points) > 0 {
		p.notifier.NotifyPrices(points)
	}

	return nil
}

func (p *Poller) cleanup(ctx context.Context) {
	cutoff := clock.StartOfDay(p.clock.Now(), p.cfg.Timezone)
	removed := p.store.RemoveOlderThan(cutoff)
	p.logger.Info("evicted stale prices",
		slog.Time("cutoff", cutoff),
		slog.Int("removed", removed))
}
