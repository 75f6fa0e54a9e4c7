package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Validator checks the configured symbols against each venue's live
// instrument list before subscribing, so bad symbols surface at startup
// instead of as silent subscription failures.
type Validator struct {
	log     zerolog.Logger
	client  *http.Client
	limiter *rate.Limiter
}

// NewValidator builds a validator pacing its HTTP calls at rps per second.
func NewValidator(log zerolog.Logger, rps float64) *Validator {
	if rps <= 0 {
		rps = 2
	}
	return &Validator{
		log:     log,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Missing fetches the venue's instruments and returns the configured symbols
// it does not list.
func (v *Validator) Missing(ctx context.Context, src InstrumentSource, symbols []string) ([]string, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.InstrumentsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("build instruments request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch instruments: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instruments endpoint returned %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read instruments body: %w", err)
	}
	listed, err := src.ParseInstruments(body)
	if err != nil {
		return nil, fmt.Errorf("parse instruments: %w", err)
	}

	known := make(map[string]struct{}, len(listed))
	for _, sym := range listed {
		known[sym] = struct{}{}
	}
	var missing []string
	for _, sym := range symbols {
		if _, ok := known[sym]; !ok {
			missing = append(missing, sym)
		}
	}
	return missing, nil
}

// Validate runs Missing for every source and logs venues that lack symbols.
// Failures are warnings only; feeds still start with the configured set.
func (v *Validator) Validate(ctx context.Context, sources []InstrumentSource, symbols []string) {
	for _, src := range sources {
		missing, err := v.Missing(ctx, src, symbols)
		if err != nil {
			v.log.Warn().Err(err).Str("venue", src.Name()).Msg("instrument validation failed")
			continue
		}
		if len(missing) > 0 {
			v.log.Warn().Str("venue", src.Name()).Strs("missing", missing).Msg("symbols not listed on venue")
		}
	}
}
