// Package warmup pre-fetches configured requests on a schedule so the cache
// is already populated when interactive users ask for recent days. Each job
// provides a trailing window of calendar days ending yesterday; days already
// cached are cheap no-ops, so running the schedule often is harmless.
package warmup

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/MeteoSwiss/weathermart"
)

// Request is one recurring pre-fetch: a source with its variables and extra
// options over a trailing window of DaysBack calendar days.
type Request struct {
	Source    string
	Variables []string
	Kwargs    weathermart.Kwargs
	DaysBack  int // 0 => 1 (yesterday only)
}

// Config tunes the warmer. Provider and at least one request are required.
type Config struct {
	Provider *weathermart.DataProvider
	Requests []Request

	Interval   time.Duration      // 0 => 6h
	JobTimeout time.Duration      // 0 => 10min per request
	Logger     weathermart.Logger // nil => NopLogger
}

// Warmer runs the pre-fetch schedule.
type Warmer struct {
	scheduler  *gocron.Scheduler
	provider   *weathermart.DataProvider
	requests   []Request
	interval   time.Duration
	jobTimeout time.Duration
	log        weathermart.Logger
	now        func() time.Time
}

func New(cfg Config) (*Warmer, error) {
	if cfg.Provider == nil {
		return nil, errProviderRequired
	}
	if len(cfg.Requests) == 0 {
		return nil, errNoRequests
	}
	w := &Warmer{
		scheduler:  gocron.NewScheduler(time.UTC),
		provider:   cfg.Provider,
		requests:   cfg.Requests,
		interval:   cfg.Interval,
		jobTimeout: cfg.JobTimeout,
		log:        cfg.Logger,
		now:        time.Now,
	}
	if w.interval <= 0 {
		w.interval = 6 * time.Hour
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 10 * time.Minute
	}
	if w.log == nil {
		w.log = weathermart.NopLogger{}
	}
	return w, nil
}

// Start schedules the jobs and runs them in the background. The first run
// fires immediately.
func (w *Warmer) Start() error {
	_, err := w.scheduler.Every(w.interval).StartImmediately().Do(w.runAll)
	if err != nil {
		return err
	}
	w.scheduler.StartAsync()
	return nil
}

// Stop halts the schedule; a run in flight finishes.
func (w *Warmer) Stop() {
	w.scheduler.Stop()
}

func (w *Warmer) runAll() {
	for _, req := range w.requests {
		w.runOne(req)
	}
}

func (w *Warmer) runOne(req Request) {
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	dates := w.window(req.DaysBack)
	_, err := w.provider.Provide(ctx, req.Source, req.Variables, dates, req.Kwargs)
	if err != nil {
		w.log.Warn("warmup request failed", weathermart.Fields{
			"source": req.Source, "days": len(dates), "error": err.Error(),
		})
		return
	}
	w.log.Debug("warmup request done", weathermart.Fields{
		"source": req.Source, "days": len(dates), "vars": len(req.Variables),
	})
}

// window returns the daysBack calendar days ending yesterday, UTC.
func (w *Warmer) window(daysBack int) []time.Time {
	if daysBack <= 0 {
		daysBack = 1
	}
	now := w.now().UTC()
	yesterday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	out := make([]time.Time, daysBack)
	for i := 0; i < daysBack; i++ {
		out[i] = yesterday.AddDate(0, 0, i+1-daysBack)
	}
	return out
}
