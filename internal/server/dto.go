package server

import (
	"dealflow/internal/domain"
)

// Request payloads

type IntakeRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	ClientName  string  `json:"client_name,omitempty"`
	Budget      float64 `json:"budget"`
	Platform    string  `json:"platform,omitempty"`
}

type VetRequest struct {
	Complexity string `json:"complexity,omitempty" enum:"low,medium,high"`
}

type AnswersRequest struct {
	Answers map[string]string `json:"answers"`
}

type CounterOfferRequest struct {
	Price float64 `json:"price"`
}

type ApproveRequest struct {
	Price float64 `json:"price,omitempty"`
}

type ConfirmPaymentRequest struct {
	TxRef  string `json:"tx_ref,omitempty"`
	Method string `json:"method,omitempty"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty" enum:"viewer,operator,admin"`
}

type CreateWebhookRequest struct {
	URL    string `json:"url"`
	Secret string `json:"secret,omitempty"`
}

type DevLoginRequest struct {
	Subject string `json:"subject"`
	Role    string `json:"role,omitempty" enum:"viewer,operator,admin"`
}

// Response payloads

type DevLoginResponse struct {
	Token string `json:"token"`
}

// CreateAPIKeyResponse is the only place the plaintext key ever appears.
type CreateAPIKeyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	Role string `json:"role"`
	Key  string `json:"key"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func apiKeyResponse(k domain.APIKey) APIKeyResponse {
	return APIKeyResponse{ID: k.ID, Name: k.Name, Role: k.Role, CreatedAt: k.CreatedAt}
}

type WebhookResponse struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Cursor    int64  `json:"cursor"`
	CreatedAt string `json:"created_at"`
}

func webhookResponse(w domain.Webhook) WebhookResponse {
	return WebhookResponse{ID: w.ID, URL: w.URL, Cursor: w.Cursor, CreatedAt: w.CreatedAt}
}

type paginatedProjects struct {
	Items      []domain.Project `json:"items"`
	NextCursor int64            `json:"next_cursor,omitempty"`
}

func nonNilProjects(in []domain.Project) []domain.Project {
	if in == nil {
		return []domain.Project{}
	}
	return in
}

func nonNilEvents(in []domain.Event) []domain.Event {
	if in == nil {
		return []domain.Event{}
	}
	return in
}

func nonNilClarifications(in []domain.Clarification) []domain.Clarification {
	if in == nil {
		return []domain.Clarification{}
	}
	return in
}
