// Package directory talks to the platform's user and listing services. The
// chat core only needs public profiles and existence checks; credentials and
// listing search stay on the other side of this boundary.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/charukaonline/uninest-sub000/internal/apperr"
	"github.com/charukaonline/uninest-sub000/internal/config"
	"github.com/charukaonline/uninest-sub000/internal/models"
)

// Directory resolves user profiles and listing summaries.
type Directory interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetListing(ctx context.Context, listingID string) (*models.ListingSummary, error)
}

type httpDirectory struct {
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	retry   time.Duration
}

// NewHTTPDirectory builds the client: pooled transport, per-request retry
// with exponential backoff, and a circuit breaker so a dead upstream fails
// fast instead of eating the store timeout budget.
func NewHTTPDirectory(cfg *config.Config) Directory {
	tr := &http.Transport{
		DialContext:     (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
		MaxIdleConns:    32,
		IdleConnTimeout: 90 * time.Second,
	}
	return &httpDirectory{
		base: cfg.Directory.BaseURL,
		http: &http.Client{Transport: tr, Timeout: cfg.Directory.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name: "directory",
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			Timeout: 30 * time.Second,
		}),
		retry: cfg.Directory.RetryMaxElapsed,
	}
}

func (d *httpDirectory) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := d.getJSON(ctx, "/internal/users/"+userID, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (d *httpDirectory) GetListing(ctx context.Context, listingID string) (*models.ListingSummary, error) {
	var listing models.ListingSummary
	if err := d.getJSON(ctx, "/internal/listings/"+listingID, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (d *httpDirectory) getJSON(ctx context.Context, path string, out any) error {
	_, err := d.breaker.Execute(func() (any, error) {
		op := func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.base+path, nil)
			if err != nil {
				return backoff.Permanent(err)
			}
			resp, err := d.http.Do(req)
			if err != nil {
				return err
			}
			defer func() {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
			}()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return backoff.Permanent(apperr.ErrNotFound)
			case resp.StatusCode >= 500:
				return fmt.Errorf("directory %s: status %d", path, resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return backoff.Permanent(fmt.Errorf("directory %s: status %d", path, resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		}

		b := backoff.NewExponentialBackOff()
		b.MaxElapsedTime = d.retry
		return nil, backoff.Retry(op, backoff.WithContext(b, ctx))
	})
	return err
}
