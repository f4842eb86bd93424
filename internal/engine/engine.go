// Package engine wires the evaluation pipeline: extract signals from an
// inbound event, classify field content, score, decide, and record. Each
// event gets its own evaluation context; the engine holds no mutable scoring
// state between events.
package engine

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ppiankov/pageguard/internal/alert"
	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/classify"
	"github.com/ppiankov/pageguard/internal/config"
	"github.com/ppiankov/pageguard/internal/extract"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/policy"
	"github.com/ppiankov/pageguard/internal/reputation"
	"github.com/ppiankov/pageguard/internal/rules"
	"github.com/ppiankov/pageguard/internal/scoring"
)

// Capability names for grant lookups, one per event class.
const (
	CapNavigate = "navigate"
	CapField    = "field"
	CapSubmit   = "submit"
	CapRequest  = "request"
)

// Verdict is what the engine returns for one inbound event.
type Verdict struct {
	policy.Outcome

	Subject     string          `json:"subject"`
	Capability  string          `json:"capability"`
	UI          model.UIPayload `json:"ui,omitempty"`
	Diagnostics []string        `json:"diagnostics,omitempty"`
}

// Engine owns the evaluation pipeline and its collaborators.
type Engine struct {
	cfgs    *config.Store
	machine *policy.Machine
	grants  *grant.Store
	audit   *auditlog.Log
	checker *reputation.Checker

	ruleset atomic.Pointer[rules.Set]

	// onAsyncVerdict, when set, receives verdicts produced by delayed
	// reputation results. The bridge uses it to re-notify the extension.
	mu             sync.Mutex
	onAsyncVerdict func(subject string, v Verdict)
	generation     map[string]uint64
	alerts         *alert.Dispatcher

	now func() time.Time
}

// New assembles an Engine. checker may be nil when external reputation
// checks are disabled.
func New(cfgs *config.Store, set *rules.Set, machine *policy.Machine, grants *grant.Store, audit *auditlog.Log, checker *reputation.Checker) *Engine {
	e := &Engine{
		cfgs:       cfgs,
		machine:    machine,
		grants:     grants,
		audit:      audit,
		checker:    checker,
		generation: make(map[string]uint64),
		now:        time.Now,
	}
	e.ruleset.Store(set)
	return e
}

// SetRules swaps the active rule tables. In-flight evaluations keep the set
// they started with.
func (e *Engine) SetRules(set *rules.Set) {
	e.ruleset.Store(set)
}

// Rules returns the active rule tables.
func (e *Engine) Rules() *rules.Set {
	return e.ruleset.Load()
}

// OnAsyncVerdict registers the callback for delayed reputation verdicts.
func (e *Engine) OnAsyncVerdict(fn func(subject string, v Verdict)) {
	e.mu.Lock()
	e.onAsyncVerdict = fn
	e.mu.Unlock()
}

// SetAlerts replaces the webhook dispatcher. A nil dispatcher disables
// alerting.
func (e *Engine) SetAlerts(d *alert.Dispatcher) {
	e.mu.Lock()
	e.alerts = d
	e.mu.Unlock()
}

// Audit exposes the decision log, for query and export surfaces.
func (e *Engine) Audit() *auditlog.Log { return e.audit }

// Grants exposes the grant store, for management surfaces.
func (e *Engine) Grants() *grant.Store { return e.grants }

// Machine exposes the decision state machine, for the override flow.
func (e *Engine) Machine() *policy.Machine { return e.machine }

// Config returns the current configuration snapshot.
func (e *Engine) Config() *config.Config { return e.cfgs.Current() }

// Navigate evaluates a committed navigation.
func (e *Engine) Navigate(ev model.NavigateEvent) Verdict {
	set := e.ruleset.Load()
	signals, diags := extract.FromURL(ev.URL, set.URLRep)
	signals = append(signals, extract.FromContent(ev.URL, set.Content)...)
	return e.evaluate(ev.URL, CapNavigate, signals, diags, "", model.EvalContext{})
}

// FieldChange evaluates an edited form field.
func (e *Engine) FieldChange(ev model.FieldChangeEvent) Verdict {
	set := e.ruleset.Load()
	signals, diags := extract.FromField(ev.PageURL, ev.Field, set.Sensitive)
	sample := ""
	if len(signals) > 0 {
		sample = model.MaskPreview(ev.Field.Value)
	}
	return e.evaluate(ev.PageURL, CapField, signals, diags, sample, model.EvalContext{})
}

// FormSubmit evaluates a form about to submit. This is the highest-stakes
// event: sensitive field content plus the submission target both count.
func (e *Engine) FormSubmit(ev model.FormSubmitEvent) Verdict {
	set := e.ruleset.Load()
	signals, diags := extract.FromForm(ev, set.Sensitive)

	urlSignals, urlDiags := extract.FromURL(ev.ActionURL, set.URLRep)
	signals = append(signals, urlSignals...)
	diags = append(diags, urlDiags...)

	ctx := model.EvalContext{CrossOrigin: !extract.SameOrigin(ev.PageURL, ev.ActionURL)}
	sample := formSample(ev, set.Sensitive)
	return e.evaluate(ev.PageURL, CapSubmit, signals, diags, sample, ctx)
}

// ResponseHeaders evaluates security headers for a loaded document.
func (e *Engine) ResponseHeaders(ev model.ResponseHeadersEvent) Verdict {
	signals, diags := extract.FromHeaders(ev.URL, ev.Headers)
	return e.evaluate(ev.URL, CapNavigate, signals, diags, "", model.EvalContext{})
}

// OutboundRequest evaluates a subresource or XHR request leaving the page.
func (e *Engine) OutboundRequest(ev model.OutboundRequestEvent) Verdict {
	set := e.ruleset.Load()
	signals, diags := extract.FromThirdPartyDomains(ev.PageURL, []string{extract.Host(ev.URL)}, set.Privacy)

	urlSignals, urlDiags := extract.FromURL(ev.URL, set.URLRep)
	signals = append(signals, urlSignals...)
	diags = append(diags, urlDiags...)
	signals = append(signals, extract.FromContent(ev.URL, set.Content)...)

	ctx := model.EvalContext{CrossOrigin: !extract.SameOrigin(ev.PageURL, ev.URL)}
	return e.evaluate(ev.PageURL, CapRequest, signals, diags, "", ctx)
}

// CheckField classifies one field value directly, without an event envelope.
// The one-shot CLI and the MCP tools use this.
func (e *Engine) CheckField(pageURL string, field model.FieldDescriptor) Verdict {
	return e.FieldChange(model.FieldChangeEvent{PageURL: pageURL, Field: field})
}

// evaluate runs the shared tail of the pipeline: reputation, context, score,
// decide, audit, UI.
func (e *Engine) evaluate(pageURL, capability string, signals []model.Signal, diags []string, sample string, ctx model.EvalContext) Verdict {
	cfg := e.cfgs.Current()
	set := e.ruleset.Load()
	subject := extract.Host(pageURL)
	if subject == "" {
		subject = pageURL
	}
	gen := e.bumpGeneration(subject)

	ctx.HTTPS = !hasNoHTTPS(signals, pageURL)
	ctx.Trusted = cfg.IsTrusted(subject)

	// Cached reputation hits join the local signals; uncached subjects get
	// an async lookup whose result, if stale, is discarded.
	if e.checker != nil && cfg.EnableExternalReputationChecks && subject != "" {
		if r, ok := e.checker.Cached(subject); ok {
			signals = append(signals, reputation.Signals(subject, r)...)
		} else {
			e.scheduleReputation(subject, capability, gen, signals, diags, sample, ctx)
		}
	}

	return e.finish(subject, capability, signals, diags, sample, ctx, cfg, set)
}

func (e *Engine) finish(subject, capability string, signals []model.Signal, diags []string, sample string, ctx model.EvalContext, cfg *config.Config, set *rules.Set) Verdict {
	a := scoring.Score(signals, ctx, set, cfg.ScoreThresholds, cfg.Penalties)

	var out policy.Outcome
	if cat, blocked := blockedCategory(signals, cfg, e.now()); blocked {
		reason := fmt.Sprintf("category %q is blocked", cat)
		out = e.machine.DecideBlocked(a, subject, capability, reason, cfg)
	} else {
		out = e.machine.Decide(a, subject, capability, cfg)
	}

	e.record(subject, out, sample)
	e.notifyAlerts(subject, capability, out)

	return Verdict{
		Outcome:     out,
		Subject:     subject,
		Capability:  capability,
		UI:          uiFor(out, subject),
		Diagnostics: diags,
	}
}

// scheduleReputation starts an async oracle lookup. The result is applied
// only if the subject has not been re-evaluated since; a hit produces a
// fresh verdict through the re-notify callback.
func (e *Engine) scheduleReputation(subject, capability string, gen uint64, signals []model.Signal, diags []string, sample string, ctx model.EvalContext) {
	local := append([]model.Signal(nil), signals...)
	e.checker.CheckAsync(context.Background(), subject, func(s string, r reputation.Result) {
		if !r.Found {
			return
		}
		// Stale result: the subject has been re-evaluated since.
		if e.currentGeneration(subject) != gen {
			return
		}
		cfg := e.cfgs.Current()
		if !cfg.EnableExternalReputationChecks {
			return
		}
		merged := append(local, reputation.Signals(subject, r)...)
		v := e.finish(subject, capability, merged, diags, sample, ctx, cfg, e.ruleset.Load())

		e.mu.Lock()
		notify := e.onAsyncVerdict
		e.mu.Unlock()
		if notify != nil {
			notify(subject, v)
			return
		}
		logf("delayed reputation verdict for %s: %s", subject, v.Decision)
	})
}

func (e *Engine) bumpGeneration(subject string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation[subject]++
	return e.generation[subject]
}

func (e *Engine) currentGeneration(subject string) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation[subject]
}

func (e *Engine) record(subject string, out policy.Outcome, sample string) {
	if e.audit == nil {
		return
	}
	e.audit.Append(auditlog.Entry{
		Subject:  subject,
		Signals:  signalCategories(out.Assessment.Signals),
		Score:    out.Assessment.Score,
		Level:    out.Assessment.Level,
		Decision: out.Decision,
		Sample:   sample,
	})
}

// notifyAlerts forwards the outcome to the webhook dispatcher. The
// dispatcher filters by decision and fires off-thread, so a slow endpoint
// never delays a verdict.
func (e *Engine) notifyAlerts(subject, capability string, out policy.Outcome) {
	e.mu.Lock()
	d := e.alerts
	e.mu.Unlock()
	if d == nil {
		return
	}
	d.Dispatch(alert.Event{
		Timestamp:  e.now().UTC().Format(time.RFC3339),
		Subject:    subject,
		Capability: capability,
		Score:      out.Assessment.Score,
		Level:      string(out.Assessment.Level),
		Decision:   string(out.Decision),
		Reason:     out.Reason,
		Signals:    signalCategories(out.Assessment.Signals),
	})
}

// signalCategories returns the sorted, deduplicated category tags of the
// scored signals.
func signalCategories(signals []model.Signal) []string {
	cats := make([]string, 0, len(signals))
	seen := make(map[string]bool)
	for _, s := range signals {
		c := string(s.Category)
		if c != "" && !seen[c] {
			seen[c] = true
			cats = append(cats, c)
		}
	}
	sort.Strings(cats)
	return cats
}

func blockedCategory(signals []model.Signal, cfg *config.Config, now time.Time) (string, bool) {
	for _, s := range signals {
		if cfg.IsCategoryBlockedAt(string(s.Category), now) {
			return string(s.Category), true
		}
	}
	return "", false
}

func hasNoHTTPS(signals []model.Signal, pageURL string) bool {
	for _, s := range signals {
		if s.Kind == model.NoHTTPS {
			return true
		}
	}
	return strings.HasPrefix(pageURL, "http://")
}

// formSample builds one masked preview for the audit trail from the first
// sensitive field, if any.
func formSample(ev model.FormSubmitEvent, sensitive *rules.Table) string {
	for _, f := range ev.Fields {
		if len(classify.ClassifyField(f, sensitive)) > 0 {
			return model.MaskPreview(f.Value)
		}
	}
	return ""
}

func uiFor(out policy.Outcome, subject string) model.UIPayload {
	switch out.Decision {
	case model.Block:
		return model.UIPayload{
			Badge:      "high",
			ModalTitle: "Blocked by pageguard",
			ModalBody:  fmt.Sprintf("%s: %s", subject, out.Reason),
		}
	case model.Warn:
		return model.UIPayload{
			Badge: string(out.Assessment.Level),
			Toast: fmt.Sprintf("%s: %s", subject, out.Reason),
		}
	default:
		return model.UIPayload{Badge: string(out.Assessment.Level)}
	}
}

func logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "engine: "+format+"\n", args...)
}
