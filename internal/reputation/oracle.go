// Package reputation consults external reputation services (URL reputation,
// breach databases) as asynchronous oracles. Lookups are cached, bounded by
// a timeout, and never block the synchronous decision path: a failed or slow
// oracle means the signal is simply absent.
package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/ppiankov/pageguard/internal/model"
)

// ErrUnavailable covers timeouts and transport failures. Treated as "signal
// absent", logged at debug level only.
var ErrUnavailable = errors.New("reputation oracle unavailable")

// Result is an oracle's answer for one subject.
type Result struct {
	Found      bool     `json:"found"`
	Categories []string `json:"categories,omitempty"`
}

// Oracle is the abstract reputation backend. Implementations must honor ctx
// cancellation.
type Oracle interface {
	CheckReputation(ctx context.Context, subject string) (Result, error)
}

// Signals converts an oracle result into reputation-hit signals. Hits feed
// scoring exactly like local signals — no separate code path.
func Signals(subject string, r Result) []model.Signal {
	if !r.Found {
		return nil
	}
	var out []model.Signal
	for _, c := range r.Categories {
		var cat model.Category
		switch c {
		case "malware":
			cat = model.CatRepMalware
		case "phishing":
			cat = model.CatRepPhishing
		case "breach":
			cat = model.CatRepBreach
		default:
			continue
		}
		out = append(out, model.Signal{
			Kind:     model.ReputationHit,
			Category: cat,
			Subject:  subject,
			Detail:   c,
		})
	}
	return out
}

// HTTPOracle queries a reputation service over HTTP: GET <base>?subject=<s>
// returning a JSON Result. Concrete services are interchangeable behind this
// shape.
type HTTPOracle struct {
	BaseURL string
	Client  *http.Client
}

func (o *HTTPOracle) CheckReputation(ctx context.Context, subject string) (Result, error) {
	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	reqURL := o.BaseURL + "?subject=" + url.QueryEscape(subject)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var r Result
	if err := json.Unmarshal(body, &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return r, nil
}
