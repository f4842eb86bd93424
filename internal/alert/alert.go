// Package alert fans out decision notifications to webhook endpoints, so a
// household admin or security tool hears about blocks without polling the
// audit log.
package alert

// Config defines a webhook alert destination.
type Config struct {
	URL       string            `yaml:"url"       json:"url"`
	Format    string            `yaml:"format"    json:"format"`    // "generic", "slack"
	Decisions []string          `yaml:"decisions" json:"decisions"` // ["warn", "block"]
	Headers   map[string]string `yaml:"headers"   json:"headers"`
}

// Event is the payload sent to webhook endpoints. Carries only category
// tags and masked previews, never raw page content.
type Event struct {
	Timestamp  string   `json:"timestamp"`
	Subject    string   `json:"subject"`
	Capability string   `json:"capability"`
	Score      int      `json:"score"`
	Level      string   `json:"level"`
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason"`
	Signals    []string `json:"signals,omitempty"`
}

// Dispatcher fans out events to matching webhook configurations.
type Dispatcher struct {
	configs []Config
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose Decisions list matches.
// Fires goroutines; does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	for _, cfg := range d.configs {
		if matches(cfg.Decisions, event.Decision) {
			go Send(cfg, event)
		}
	}
}

func matches(decisions []string, decision string) bool {
	for _, d := range decisions {
		if d == decision {
			return true
		}
	}
	return false
}
