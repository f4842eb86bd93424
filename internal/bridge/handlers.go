package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ppiankov/pageguard/internal/auditlog"
	"github.com/ppiankov/pageguard/internal/engine"
	"github.com/ppiankov/pageguard/internal/grant"
	"github.com/ppiankov/pageguard/internal/model"
	"github.com/ppiankov/pageguard/internal/pin"
	"github.com/ppiankov/pageguard/internal/policy"
)

// maxBodyBytes bounds inbound request bodies. Events are small; anything
// bigger is not ours.
const maxBodyBytes = 1 << 20

// eventEnvelope is the wire form of an inbound event. Type selects which
// payload field is read; the vocabulary is closed.
type eventEnvelope struct {
	Type  string          `json:"type"`
	Event json.RawMessage `json:"event"`
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var env eventEnvelope
	if err := decodeJSON(w, r, &env); err != nil {
		return
	}

	var v engine.Verdict
	var err error
	switch env.Type {
	case "navigate":
		var ev model.NavigateEvent
		if err = json.Unmarshal(env.Event, &ev); err == nil {
			v = s.engine.Navigate(ev)
		}
	case "field_change":
		var ev model.FieldChangeEvent
		if err = json.Unmarshal(env.Event, &ev); err == nil {
			v = s.engine.FieldChange(ev)
		}
	case "form_submit":
		var ev model.FormSubmitEvent
		if err = json.Unmarshal(env.Event, &ev); err == nil {
			v = s.engine.FormSubmit(ev)
		}
	case "response_headers":
		var ev model.ResponseHeadersEvent
		if err = json.Unmarshal(env.Event, &ev); err == nil {
			v = s.engine.ResponseHeaders(ev)
		}
	case "outbound_request":
		var ev model.OutboundRequestEvent
		if err = json.Unmarshal(env.Event, &ev); err == nil {
			v = s.engine.OutboundRequest(ev)
		}
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", env.Type))
		return
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad %s event: %v", env.Type, err))
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := auditlog.Filter{
		Level:    model.Level(q.Get("level")),
		Decision: model.Decision(q.Get("decision")),
		Text:     q.Get("text"),
	}
	if v := q.Get("risk_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "risk_min must be an integer")
			return
		}
		f.RiskMin = n
	}
	if v := q.Get("risk_max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "risk_max must be an integer")
			return
		}
		f.RiskMax = &n
	}
	if v := q.Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC3339")
			return
		}
		f.From = ts
	}
	if v := q.Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC3339")
			return
		}
		f.To = ts
	}

	entries := s.engine.Audit().Query(f)

	if q.Get("format") == "csv" {
		data, err := auditlog.MarshalCSV(entries)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

type grantRequest struct {
	Site       string `json:"site"`
	Capability string `json:"capability"`
	Mode       string `json:"mode"`
	TTLSeconds int    `json:"ttl_seconds"`
}

func (s *Server) handleGrantAdd(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	if req.Site == "" || req.Capability == "" {
		writeError(w, http.StatusBadRequest, "site and capability are required")
		return
	}
	mode := grant.Mode(req.Mode)
	if mode == "" {
		mode = grant.Temporary
	}
	g, err := s.engine.Grants().Grant(req.Site, req.Capability, mode, time.Duration(req.TTLSeconds)*time.Second)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (s *Server) handleGrantRevoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}
	removed := s.engine.Grants().Revoke(req.Site, req.Capability)
	s.engine.Machine().Revoke(req.Site, req.Capability)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
}

func (s *Server) handleGrantList(w http.ResponseWriter, r *http.Request) {
	grants := s.engine.Grants().List()
	writeJSON(w, http.StatusOK, map[string]any{"grants": grants, "count": len(grants)})
}

type overrideRequest struct {
	Token  string `json:"token"`
	Secret string `json:"secret"`
	Trust  bool   `json:"trust"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return
	}

	var err error
	if req.Trust {
		err = s.engine.Machine().OverrideTrust(req.Token, req.Secret, s.engine.Config())
	} else {
		err = s.engine.Machine().OverrideOnce(req.Token, req.Secret)
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"overridden": true, "trust": req.Trust})
	case errors.Is(err, pin.ErrMismatch):
		// Success or failure only; no detail beyond the mismatch itself.
		writeError(w, http.StatusForbidden, "secret mismatch")
	case errors.Is(err, policy.ErrUnknownToken):
		writeError(w, http.StatusNotFound, "unknown or expired token")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("bad request body: %v", err))
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"error": msg})
}
