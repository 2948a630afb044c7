package skills

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// ============================================================================
// LINK BUILDERS
// ============================================================================

// These skills build URLs for the client to open. They make no upstream
// calls and are always available.

// WebSearchSkill turns searchWeb directives into a Google results link.
type WebSearchSkill struct{}

// NewWebSearchSkill creates the web search connector.
func NewWebSearchSkill() *WebSearchSkill {
	return &WebSearchSkill{}
}

// Name returns the action type this connector serves.
func (s *WebSearchSkill) Name() string {
	return SearchWeb
}

// Invoke builds a search results URL for the query.
func (s *WebSearchSkill) Invoke(_ context.Context, params map[string]string) (*Result, error) {
	query := strings.TrimSpace(params["query"])
	if query == "" {
		return nil, fmt.Errorf("%w: searchWeb needs a query", ErrInvalidParams)
	}
	return &Result{
		Payload: map[string]interface{}{
			"url": "https://www.google.com/search?q=" + url.QueryEscape(query),
		},
	}, nil
}

// OpenWebsiteSkill turns openWebsite directives into a normalized https
// link.
type OpenWebsiteSkill struct{}

// NewOpenWebsiteSkill creates the open-website connector.
func NewOpenWebsiteSkill() *OpenWebsiteSkill {
	return &OpenWebsiteSkill{}
}

// Name returns the action type this connector serves.
func (s *OpenWebsiteSkill) Name() string {
	return OpenWebsite
}

// Invoke normalizes the requested target into an absolute URL. The model
// is inconsistent about the parameter name, so a few aliases are accepted.
func (s *OpenWebsiteSkill) Invoke(_ context.Context, params map[string]string) (*Result, error) {
	raw := firstParam(params, "url", "website", "target")
	if raw == "" {
		return nil, fmt.Errorf("%w: openWebsite needs a url", ErrInvalidParams)
	}

	normalized, err := normalizeURL(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return &Result{
		Payload: map[string]interface{}{
			"url": normalized,
		},
	}, nil
}

// WhatsAppSkill turns sendWhatsApp directives into a wa.me link with the
// message prefilled.
type WhatsAppSkill struct{}

// NewWhatsAppSkill creates the WhatsApp connector.
func NewWhatsAppSkill() *WhatsAppSkill {
	return &WhatsAppSkill{}
}

// Name returns the action type this connector serves.
func (s *WhatsAppSkill) Name() string {
	return SendWhatsApp
}

// Invoke builds the wa.me link. Phone numbers keep digits only, per the
// wa.me format.
func (s *WhatsAppSkill) Invoke(_ context.Context, params map[string]string) (*Result, error) {
	phone := digitsOnly(params["phone"])
	if phone == "" {
		return nil, fmt.Errorf("%w: sendWhatsApp needs a phone number", ErrInvalidParams)
	}

	link := "https://wa.me/" + phone
	if msg := strings.TrimSpace(params["message"]); msg != "" {
		link += "?text=" + url.QueryEscape(msg)
	}
	return &Result{
		Payload: map[string]interface{}{
			"url":   link,
			"phone": phone,
		},
	}, nil
}

// firstParam returns the first non-empty value among the given keys.
func firstParam(params map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(params[key]); v != "" {
			return v
		}
	}
	return ""
}

// normalizeURL fills in a missing https scheme and validates the result.
func normalizeURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return u.String(), nil
}

// digitsOnly strips everything but digits from a phone number.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
