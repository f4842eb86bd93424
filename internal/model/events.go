package model

// Inbound events form a closed vocabulary per component boundary. The browser
// integration layer produces these; the engine consumes them and returns a
// Verdict. There is no generic action-string dispatch.

// FieldDescriptor describes one form field as observed in the page. Value is
// held only for classification within the current evaluation; it is masked
// before anything is stored or returned.
type FieldDescriptor struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	InputType   string `json:"input_type,omitempty"`
	Value       string `json:"value,omitempty"`
}

// NavigateEvent fires when a tab commits navigation to a URL.
type NavigateEvent struct {
	URL string `json:"url"`
}

// FieldChangeEvent fires when the user edits a form field.
type FieldChangeEvent struct {
	PageURL string          `json:"page_url"`
	Field   FieldDescriptor `json:"field"`
}

// FormSubmitEvent fires when a form is about to submit.
type FormSubmitEvent struct {
	PageURL   string            `json:"page_url"`
	ActionURL string            `json:"action_url"`
	Method    string            `json:"method"`
	Fields    []FieldDescriptor `json:"fields"`
}

// ResponseHeadersEvent fires when response headers for a document are seen.
type ResponseHeadersEvent struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

// OutboundRequestEvent fires for subresource or XHR requests leaving the page.
type OutboundRequestEvent struct {
	PageURL string `json:"page_url"`
	URL     string `json:"url"`
	Method  string `json:"method"`
}

// UIPayload is the optional presentation hint returned with a verdict.
// Rendering is the extension's job; pageguard only supplies content.
type UIPayload struct {
	Badge      string `json:"badge,omitempty"`
	Toast      string `json:"toast,omitempty"`
	ModalTitle string `json:"modal_title,omitempty"`
	ModalBody  string `json:"modal_body,omitempty"`
}
