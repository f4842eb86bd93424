// Package policy turns a risk assessment into an allow/warn/block decision,
// consulting the grant store and managing the override flow. Evaluation
// states: Unevaluated → Scored → {Allowed, Warned, Blocked, OverriddenOnce,
// TrustedBypass}; expiry or revocation puts a subject back to requiring
// re-evaluation on next access.
package policy

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ppiankov/pageguard/internal/config"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/pin"
)

// State names the decision state reached for one evaluation.
type State string

const (
	StateScored         State = "scored"
	StateAllowed        State = "allowed"
	StateWarned         State = "warned"
	StateBlocked        State = "blocked"
	StateOverriddenOnce State = "overridden_once"
	StateTrustedBypass  State = "trusted_bypass"
)

// ErrUnknownToken is returned when an override references no pending block.
var ErrUnknownToken = errors.New("policy: unknown or expired override token")

// pendingTTL bounds how long a blocked decision stays overridable.
const pendingTTL = 5 * time.Minute

// CapAll is the wildcard capability for site-wide trust grants.
const CapAll = "*"

// Outcome is the result of deciding one scored evaluation.
type Outcome struct {
	Decision   model.Decision       `json:"decision"`
	State      State                `json:"state"`
	Reason     string               `json:"reason"`
	Assessment model.RiskAssessment `json:"assessment"`
	// OverrideToken is set on blocked outcomes; it identifies the pending
	// decision through the override flow. One token per blocked evaluation,
	// so concurrent tabs each carry their own.
	OverrideToken string `json:"override_token,omitempty"`
}

type pendingDecision struct {
	subject    string
	capability string
	createdAt  time.Time
}

// Machine is the decision state machine. The only mutable state it owns is
// the pending-override and one-shot allowance books; scoring state never
// crosses evaluations.
type Machine struct {
	grants   *grant.Store
	verifier *pin.Verifier

	mu      sync.Mutex
	pending map[string]pendingDecision
	once    map[string]bool
	now     func() time.Time
}

// NewMachine creates a Machine over the given grant store and PIN verifier.
func NewMachine(grants *grant.Store, verifier *pin.Verifier) *Machine {
	return &Machine{
		grants:   grants,
		verifier: verifier,
		pending:  make(map[string]pendingDecision),
		once:     make(map[string]bool),
		now:      time.Now,
	}
}

// Decide maps a scored assessment to an outcome. cfg is the caller-supplied
// configuration snapshot; nothing is read from a global.
func (m *Machine) Decide(a model.RiskAssessment, subject, capability string, cfg *config.Config) Outcome {
	if out, ok := m.allowance(a, subject, capability, cfg); ok {
		return out
	}

	switch a.Level {
	case model.LevelLow:
		return Outcome{
			Decision:   model.Allow,
			State:      StateAllowed,
			Reason:     fmt.Sprintf("low risk (score %d)", a.Score),
			Assessment: a,
		}
	case model.LevelHigh:
		if cfg.BlockOnHighRisk {
			return Outcome{
				Decision:      model.Block,
				State:         StateBlocked,
				Reason:        fmt.Sprintf("high risk (score %d)", a.Score),
				Assessment:    a,
				OverrideToken: m.registerPending(subject, capability),
			}
		}
		return Outcome{
			Decision:   model.Warn,
			State:      StateWarned,
			Reason:     fmt.Sprintf("high risk (score %d), blocking disabled", a.Score),
			Assessment: a,
		}
	default:
		return Outcome{
			Decision:   model.Warn,
			State:      StateWarned,
			Reason:     fmt.Sprintf("moderate risk (score %d)", a.Score),
			Assessment: a,
		}
	}
}

// DecideBlocked forces a block for a forbidden category, bypassing the level
// switch. Explicit allowances still win: the user deliberately granted or
// trusted the subject, and doing so is already secret-gated.
func (m *Machine) DecideBlocked(a model.RiskAssessment, subject, capability, reason string, cfg *config.Config) Outcome {
	if out, ok := m.allowance(a, subject, capability, cfg); ok {
		return out
	}
	return Outcome{
		Decision:      model.Block,
		State:         StateBlocked,
		Reason:        reason,
		Assessment:    a,
		OverrideToken: m.registerPending(subject, capability),
	}
}

// allowance checks trust, grants, and one-time overrides, in that order.
func (m *Machine) allowance(a model.RiskAssessment, subject, capability string, cfg *config.Config) (Outcome, bool) {
	// Trust wins regardless of score.
	if cfg.IsTrusted(subject) {
		return Outcome{
			Decision:   model.Allow,
			State:      StateTrustedBypass,
			Reason:     "subject is in the trusted set",
			Assessment: a,
		}, true
	}
	// A trust grant covers its capability, or every capability when
	// recorded under CapAll.
	for _, cap := range []string{capability, CapAll} {
		if g, ok := m.grants.Lookup(subject, cap); ok && g.Mode == grant.Trusted {
			return Outcome{
				Decision:   model.Allow,
				State:      StateTrustedBypass,
				Reason:     "subject holds a trust grant",
				Assessment: a,
			}, true
		}
	}
	if m.grants.IsActive(subject, capability) {
		return Outcome{
			Decision:   model.Allow,
			State:      StateAllowed,
			Reason:     "covered by an active grant",
			Assessment: a,
		}, true
	}

	// A one-time override covers exactly one equivalent action; the next
	// one re-enters the scored path fresh.
	if m.consumeOnce(subject, capability) {
		return Outcome{
			Decision:   model.Allow,
			State:      StateOverriddenOnce,
			Reason:     "one-time override",
			Assessment: a,
		}, true
	}
	return Outcome{}, false
}

// OverrideOnce redeems a pending block for a single action. PIN failure
// leaves the blocked state untouched and reports only success or failure.
func (m *Machine) OverrideOnce(token, secret string) error {
	p, err := m.takePending(token, secret, true)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.once[onceKey(p.subject, p.capability)] = true
	m.mu.Unlock()
	return nil
}

// OverrideTrust redeems a pending block by persisting trust for the subject
// and capability. cfg decides whether the secret is required at all.
func (m *Machine) OverrideTrust(token, secret string, cfg *config.Config) error {
	p, err := m.takePending(token, secret, cfg.RequireSecretForTrust)
	if err != nil {
		return err
	}
	if _, err := m.grants.Grant(p.subject, p.capability, grant.Trusted, 0); err != nil {
		return fmt.Errorf("policy: persist trust: %w", err)
	}
	return nil
}

// Revoke clears any one-shot allowance for a subject so the next access is
// re-evaluated from scratch.
func (m *Machine) Revoke(subject, capability string) {
	m.mu.Lock()
	delete(m.once, onceKey(subject, capability))
	m.mu.Unlock()
	m.grants.Revoke(subject, capability)
}

// takePending validates the secret, then consumes the pending decision.
// Verification happens before the pending lookup changes state so a wrong
// PIN leaves everything as it was.
func (m *Machine) takePending(token, secret string, needSecret bool) (pendingDecision, error) {
	if needSecret && m.verifier != nil {
		if err := m.verifier.Verify(secret); err != nil {
			return pendingDecision{}, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pending[token]
	if !ok || m.now().Sub(p.createdAt) > pendingTTL {
		delete(m.pending, token)
		return pendingDecision{}, ErrUnknownToken
	}
	delete(m.pending, token)
	return p, nil
}

func (m *Machine) registerPending(subject, capability string) string {
	token := newToken()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Opportunistically drop expired pendings.
	now := m.now()
	for t, p := range m.pending {
		if now.Sub(p.createdAt) > pendingTTL {
			delete(m.pending, t)
		}
	}
	m.pending[token] = pendingDecision{subject: subject, capability: capability, createdAt: now}
	return token
}

func (m *Machine) consumeOnce(subject, capability string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := onceKey(subject, capability)
	if m.once[k] {
		delete(m.once, k)
		return true
	}
	return false
}

func onceKey(subject, capability string) string {
	return subject + "\x00" + capability
}

func newToken() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// Degenerate fallback: rand failure here is effectively fatal
		// elsewhere too, but a blocked flow must still get a token.
		return fmt.Sprintf("pd-%d", time.Now().UnixNano())
	}
	return "pd-" + hex.EncodeToString(b)
}
