package mcp

import (
	"context"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/engine"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/model"
)

// --- Input/Output types ---

// CheckURLInput defines parameters for the pageguard_check_url tool.
type CheckURLInput struct {
	URL string `json:"url" jsonschema:"URL to evaluate"`
}

// CheckFieldInput defines parameters for the pageguard_check_field tool.
type CheckFieldInput struct {
	PageURL   string `json:"page_url" jsonschema:"URL of the page containing the field"`
	Name      string `json:"name,omitempty" jsonschema:"field name attribute"`
	Label     string `json:"label,omitempty" jsonschema:"field label text"`
	InputType string `json:"input_type,omitempty" jsonschema:"input type attribute (text/password/...)"`
	Value     string `json:"value,omitempty" jsonschema:"field value to classify"`
}

// VerdictOutput is the shared result shape for the evaluation tools.
type VerdictOutput struct {
	Subject       string   `json:"subject"`
	Decision      string   `json:"decision"`
	State         string   `json:"state"`
	Score         int      `json:"score"`
	Level         string   `json:"level"`
	Reason        string   `json:"reason"`
	Reasons       []string `json:"reasons,omitempty"`
	OverrideToken string   `json:"override_token,omitempty"`
	Diagnostics   []string `json:"diagnostics,omitempty"`
}

// GrantInput defines parameters for the pageguard_grant tool.
type GrantInput struct {
	Site       string `json:"site" jsonschema:"site hostname"`
	Capability string `json:"capability" jsonschema:"capability (navigate/field/submit/request)"`
	Mode       string `json:"mode,omitempty" jsonschema:"grant mode (temporary/trusted), default temporary"`
	TTL        string `json:"ttl,omitempty" jsonschema:"grant duration (e.g. 15m), required for temporary grants"`
	Revoke     bool   `json:"revoke,omitempty" jsonschema:"revoke the grant instead of adding it"`
}

// GrantOutput confirms the grant change.
type GrantOutput struct {
	Site       string `json:"site"`
	Capability string `json:"capability"`
	Mode       string `json:"mode,omitempty"`
	ExpiresAt  string `json:"expires_at,omitempty"`
	Revoked    bool   `json:"revoked,omitempty"`
}

// AuditInput defines parameters for the pageguard_audit tool.
type AuditInput struct {
	Level    string `json:"level,omitempty" jsonschema:"filter by risk level (low/moderate/high)"`
	Decision string `json:"decision,omitempty" jsonschema:"filter by decision (allow/warn/block)"`
	Text     string `json:"text,omitempty" jsonschema:"free-text filter over subject and signals"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum entries to return, newest last"`
}

// AuditOutput lists matching audit entries.
type AuditOutput struct {
	Entries []auditlog.Entry `json:"entries"`
	Count   int              `json:"count"`
}

// --- Handlers ---

func (s *Server) handleCheckURL(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckURLInput) (*mcpsdk.CallToolResult, VerdictOutput, error) {
	v := s.engine.Navigate(model.NavigateEvent{URL: input.URL})
	out := verdictOutput(v)
	if v.Decision == model.Block {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleCheckField(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckFieldInput) (*mcpsdk.CallToolResult, VerdictOutput, error) {
	v := s.engine.CheckField(input.PageURL, model.FieldDescriptor{
		Name:      input.Name,
		Label:     input.Label,
		InputType: input.InputType,
		Value:     input.Value,
	})
	out := verdictOutput(v)
	if v.Decision == model.Block {
		return &mcpsdk.CallToolResult{IsError: true}, out, nil
	}
	return nil, out, nil
}

func (s *Server) handleGrant(ctx context.Context, req *mcpsdk.CallToolRequest, input GrantInput) (*mcpsdk.CallToolResult, GrantOutput, error) {
	if input.Revoke {
		removed := s.engine.Grants().Revoke(input.Site, input.Capability)
		s.engine.Machine().Revoke(input.Site, input.Capability)
		if !removed {
			return nil, GrantOutput{}, fmt.Errorf("no grant for %s/%s", input.Site, input.Capability)
		}
		return nil, GrantOutput{Site: input.Site, Capability: input.Capability, Revoked: true}, nil
	}

	mode := grant.Mode(input.Mode)
	if mode == "" {
		mode = grant.Temporary
	}
	var ttl time.Duration
	if input.TTL != "" {
		var err error
		ttl, err = time.ParseDuration(input.TTL)
		if err != nil {
			return nil, GrantOutput{}, fmt.Errorf("invalid ttl %q: %w", input.TTL, err)
		}
	}
	g, err := s.engine.Grants().Grant(input.Site, input.Capability, mode, ttl)
	if err != nil {
		return nil, GrantOutput{}, err
	}

	out := GrantOutput{Site: g.Site, Capability: g.Capability, Mode: string(g.Mode)}
	if g.ExpiresAt != nil {
		out.ExpiresAt = g.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleAudit(ctx context.Context, req *mcpsdk.CallToolRequest, input AuditInput) (*mcpsdk.CallToolResult, AuditOutput, error) {
	entries := s.engine.Audit().Query(auditlog.Filter{
		Level:    model.Level(input.Level),
		Decision: model.Decision(input.Decision),
		Text:     input.Text,
	})
	if input.Limit > 0 && len(entries) > input.Limit {
		entries = entries[len(entries)-input.Limit:]
	}
	return nil, AuditOutput{Entries: entries, Count: len(entries)}, nil
}

func verdictOutput(v engine.Verdict) VerdictOutput {
	return VerdictOutput{
		Subject:       v.Subject,
		Decision:      string(v.Decision),
		State:         string(v.State),
		Score:         v.Assessment.Score,
		Level:         string(v.Assessment.Level),
		Reason:        v.Reason,
		Reasons:       v.Assessment.Reasons,
		OverrideToken: v.OverrideToken,
		Diagnostics:   v.Diagnostics,
	}
}
