package fleet

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/all-smi/all-smi/internal/config"
	"github.com/all-smi/all-smi/internal/http"
	"github.com/all-smi/all-smi/internal/log"
)

// Outcome is one host's result for one cycle: either a scrape body or
// the final error after retries were exhausted.
type Outcome struct {
	HostID string
	URL    string
	Body   string
	Err    error
}

// Fetcher issues the bounded concurrent fan-out of HTTP GETs across the
// fleet. It owns the pooled HTTP client; connections persist across
// cycles so steady-state polling reuses keep-alive sockets.
type Fetcher struct {
	cfg    config.FleetConfig
	client *http.Client
}

// NewFetcher creates a Fetcher with a connection pool sized for cfg.
func NewFetcher(cfg config.FleetConfig) *Fetcher {
	return &Fetcher{
		cfg: cfg,
		client: http.NewClient(http.ClientConfig{
			Timeout:         cfg.PerRequestTimeout,
			IdleConnTimeout: cfg.IdleConnTimeout,
		}),
	}
}

// stagger returns the deterministic start delay for host i of n,
// spreading connection starts evenly over the stagger window so a large
// fleet does not see n simultaneous SYNs.
func stagger(i, n int, window time.Duration) time.Duration {
	if n <= 1 || window <= 0 {
		return 0
	}
	return window * time.Duration(i) / time.Duration(n)
}

// sleepCtx sleeps for d, returning false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// FetchAll fans out over hosts and streams outcomes in completion
// order. The returned channel closes once every host has either
// yielded an outcome or been abandoned because ctx expired; callers
// impose the cycle deadline through ctx and simply stop reading when
// it fires.
func (f *Fetcher) FetchAll(ctx context.Context, hosts []string) <-chan Outcome {
	n := len(hosts)
	out := make(chan Outcome, n)
	sem := semaphore.NewWeighted(int64(f.cfg.ConcurrencyCap(n)))

	var wg sync.WaitGroup
	for i, h := range hosts {
		wg.Add(1)
		go func(i int, h string) {
			defer wg.Done()

			if !sleepCtx(ctx, stagger(i, n, f.cfg.StaggerWindow)) {
				return
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return
			}
			defer sem.Release(1)

			body, err := f.fetchWithRetry(ctx, MetricsURL(h))
			if ctx.Err() != nil {
				// The cycle deadline fired while this host was in
				// flight: it must retain its previous status, so no
				// outcome is produced at all.
				return
			}
			select {
			case out <- Outcome{HostID: HostID(h), URL: MetricsURL(h), Body: body, Err: err}:
			case <-ctx.Done():
			}
		}(i, h)
	}

	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

// fetchWithRetry attempts one host up to RetryCount times with
// exponential backoff between attempts. Retrying stops as soon as ctx
// expires; the last error wins.
func (f *Fetcher) fetchWithRetry(ctx context.Context, url string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= f.cfg.RetryCount; attempt++ {
		body, err := f.client.Get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr = err
		log.Debugf("fetch %s attempt %d/%d: %s", url, attempt, f.cfg.RetryCount, err)

		if attempt == f.cfg.RetryCount {
			break
		}
		backoff := f.cfg.RetryBaseDelay * time.Duration(1<<(attempt-1))
		if !sleepCtx(ctx, backoff) {
			break
		}
	}
	return "", lastErr
}
