package client

import (
	"context"
	"fmt"
	"time"

	"partscatalog/sitemap/internal/config"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// PingResult is the outcome of notifying one endpoint.
type PingResult struct {
	Endpoint   string
	StatusCode int
	Err        error
}

// Pinger tells search engines that a new sitemap index is available.
type Pinger interface {
	Ping(ctx context.Context, indexURL string) []PingResult
	Close() error
}

type searchEnginePinger struct {
	rl         ratelimit.Limiter
	endpoints  []string
	httpClient *resty.Client
}

func NewPinger(cfg config.PingConfig) Pinger {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("User-Agent", "partscatalog-sitemap/1.0").
		SetHeader("Accept", "text/html,application/xml;q=0.9,*/*;q=0.8")

	return &searchEnginePinger{
		rl:         ratelimit.New(2),
		endpoints:  cfg.Endpoints,
		httpClient: client,
	}
}

// Ping sends GET <endpoint>?sitemap=<indexURL> to every endpoint. Failures
// are logged and reported, never returned as an error: a missed ping does not
// invalidate a run.
func (p *searchEnginePinger) Ping(ctx context.Context, indexURL string) []PingResult {
	results := make([]PingResult, 0, len(p.endpoints))
	for _, endpoint := range p.endpoints {
		res := p.ping(ctx, endpoint, indexURL)
		if res.Err != nil {
			log.Warnf("⚠️ Ping to %s failed: %v", endpoint, res.Err)
		} else {
			log.Infof("📣 Pinged %s (%d)", endpoint, res.StatusCode)
		}
		results = append(results, res)
	}
	return results
}

func (p *searchEnginePinger) ping(ctx context.Context, endpoint, indexURL string) PingResult {
	res := PingResult{Endpoint: endpoint}

	p.rl.Take()

	resp, err := p.httpClient.R().
		SetContext(ctx).
		SetQueryParam("sitemap", indexURL).
		Get(endpoint)
	if err != nil {
		if ctx.Err() != nil {
			res.Err = fmt.Errorf("request cancelled: %w", ctx.Err())
			return res
		}
		res.Err = fmt.Errorf("failed to ping: %w", err)
		return res
	}

	res.StatusCode = resp.StatusCode()
	if resp.IsError() {
		res.Err = fmt.Errorf("HTTP error: %d %s", resp.StatusCode(), resp.Status())
	}
	return res
}

func (p *searchEnginePinger) Close() error {
	return p.httpClient.Close()
}
