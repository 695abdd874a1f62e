package outscraper

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial     = 8 * time.Second
	defaultPollStep        = 1 * time.Second
	defaultPollCap         = 15 * time.Second
	defaultPollMaxAttempts = 10
)

// Poll errors.
var (
	ErrJobTimeout = errors.New("outscraper: job did not finish within the poll budget")
	ErrJobFailed  = errors.New("outscraper: job failed")
)

// JobState is a state of the poll state machine.
type JobState string

// Job states. Success, Failed and TimedOut are terminal.
const (
	StateSubmitted JobState = "submitted"
	StatePending   JobState = "pending"
	StateSuccess   JobState = "success"
	StateFailed    JobState = "failed"
	StateTimedOut  JobState = "timed_out"
)

// Terminal reports whether no further transitions are possible.
func (s JobState) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateTimedOut
}

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial     time.Duration
	step        time.Duration
	cap         time.Duration
	maxAttempts int
	sleep       func(context.Context, time.Duration) error
	wait        func(context.Context) error
	onState     func(JobState)
	retryPoll   func(error) bool
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial:     defaultPollInitial,
		step:        defaultPollStep,
		cap:         defaultPollCap,
		maxAttempts: defaultPollMaxAttempts,
		sleep:       sleepCtx,
		retryPoll:   transientPoll,
	}
}

// WithPollInterval overrides the first wait.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) { c.initial = d }
}

// WithPollStep overrides the linear increment added after each pending poll.
func WithPollStep(d time.Duration) PollOption {
	return func(c *pollConfig) { c.step = d }
}

// WithPollCap overrides the maximum wait.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) { c.cap = d }
}

// WithMaxAttempts bounds the number of result requests.
func WithMaxAttempts(n int) PollOption {
	return func(c *pollConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithSleep replaces the wait between polls. Tests use it to run without
// real delays.
func WithSleep(fn func(context.Context, time.Duration) error) PollOption {
	return func(c *pollConfig) { c.sleep = fn }
}

// WithWaiter is called before every result request, after the sleep. It is
// used to charge polls against a shared rate limiter.
func WithWaiter(fn func(context.Context) error) PollOption {
	return func(c *pollConfig) { c.wait = fn }
}

// WithPollRetry decides which result-request errors leave the job pending
// for the next attempt. The default retries 429 and 5xx responses.
func WithPollRetry(fn func(error) bool) PollOption {
	return func(c *pollConfig) {
		if fn != nil {
			c.retryPoll = fn
		}
	}
}

// WithStateHook observes every state transition.
func WithStateHook(fn func(JobState)) PollOption {
	return func(c *pollConfig) { c.onState = fn }
}

// Job tracks one submitted search through the poll state machine:
// submitted → pending → success | failed | timed_out.
type Job struct {
	ID       string
	State    JobState
	Attempts int
	Result   *SearchResponse
}

// Interval returns the wait before the given poll attempt (1-based):
// initial, initial+step, ... capped.
func Interval(attempt int, initial, step, limit time.Duration) time.Duration {
	d := initial + time.Duration(attempt-1)*step
	if limit > 0 && d > limit {
		d = limit
	}
	return d
}

// Wait drives a submitted search to a terminal state. A response that is
// already complete finishes without polling. Cancellation of ctx is
// returned as the context error and leaves the job pending.
func Wait(ctx context.Context, client Client, submitted *SearchResponse, opts ...PollOption) (*Job, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	job := &Job{ID: submitted.ID}
	job.transition(&cfg, StateSubmitted)

	switch submitted.Status {
	case StatusSuccess:
		job.Result = submitted
		job.transition(&cfg, StateSuccess)
		return job, nil
	case StatusPending:
		if submitted.ID == "" {
			job.transition(&cfg, StateFailed)
			return job, eris.Wrap(ErrJobFailed, "outscraper: pending response without job id")
		}
	default:
		job.transition(&cfg, StateFailed)
		return job, eris.Wrapf(ErrJobFailed, "outscraper: submit status %q", submitted.Status)
	}

	job.transition(&cfg, StatePending)
	for job.Attempts < cfg.maxAttempts {
		job.Attempts++
		if err := cfg.sleep(ctx, Interval(job.Attempts, cfg.initial, cfg.step, cfg.cap)); err != nil {
			return job, eris.Wrapf(err, "outscraper: poll job %s", job.ID)
		}
		if cfg.wait != nil {
			if err := cfg.wait(ctx); err != nil {
				return job, eris.Wrapf(err, "outscraper: poll job %s", job.ID)
			}
		}

		resp, err := client.GetResult(ctx, job.ID)
		if err != nil {
			if ctx.Err() != nil {
				return job, eris.Wrapf(ctx.Err(), "outscraper: poll job %s", job.ID)
			}
			if cfg.retryPoll(err) {
				continue
			}
			job.transition(&cfg, StateFailed)
			return job, eris.Wrapf(err, "outscraper: poll job %s", job.ID)
		}

		switch resp.Status {
		case StatusSuccess:
			job.Result = resp
			job.transition(&cfg, StateSuccess)
			return job, nil
		case StatusPending:
			continue
		default:
			job.transition(&cfg, StateFailed)
			return job, eris.Wrapf(ErrJobFailed, "outscraper: job %s status %q", job.ID, resp.Status)
		}
	}

	job.transition(&cfg, StateTimedOut)
	return job, eris.Wrapf(ErrJobTimeout, "outscraper: job %s after %d polls", job.ID, job.Attempts)
}

func transientPoll(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
}

func (j *Job) transition(cfg *pollConfig, s JobState) {
	j.State = s
	if cfg.onState != nil {
		cfg.onState(s)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
