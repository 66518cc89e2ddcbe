package models

import "time"

// Document is a schema-light key-value payload. Organization replies and card
// metadata vary per organization, so the engine forwards them untouched.
type Document map[string]any

type OrganizationAgentProfile struct {
	OrganizationID       string    `json:"organization_id"`
	OrganizationName     string    `json:"organization_name"`
	AllowUserEricQueries bool      `json:"allow_user_eric_queries"`
	SharePublicData      bool      `json:"share_public_data"`
	Specialties          []string  `json:"specialties"`
	BusinessDescription  string    `json:"business_description"`
	AgentEndpoint        string    `json:"agent_endpoint,omitempty"`
	City                 string    `json:"city,omitempty"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// EricSettingsPatch is a partial update of the organization-owned ERIC settings.
// Nil fields are left unchanged.
type EricSettingsPatch struct {
	AllowUserEricQueries *bool     `json:"allow_user_eric_queries"`
	SharePublicData      *bool     `json:"share_public_data"`
	Specialties          *[]string `json:"specialties"`
	BusinessDescription  *string   `json:"business_description"`
	AgentEndpoint        *string   `json:"agent_endpoint"`
}

type BroadcastRequest struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit"`
	CallerID string `json:"-"`
}

type BusinessResult struct {
	OrganizationID   string   `json:"organization_id"`
	OrganizationName string   `json:"organization_name"`
	Data             Document `json:"data"`
	RelevanceScore   float64  `json:"relevance_score"`
}

type BroadcastResult struct {
	Query                  string           `json:"query"`
	Category               *string          `json:"category"`
	Results                []BusinessResult `json:"results"`
	TotalBusinessesQueried int              `json:"total_businesses_queried"`
	BusinessesResponding   int              `json:"businesses_responding"`
}

const (
	CardService        = "service"
	CardOrganization   = "organization"
	CardProduct        = "product"
	CardPerson         = "person"
	CardRecommendation = "recommendation"
)

// SearchHit is one typed hit, either from the search index or converted from a
// broadcast result.
type SearchHit struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Name           string   `json:"name"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Metadata       Document `json:"metadata,omitempty"`
}

type CardAction struct {
	Label string `json:"label"`
	Route string `json:"route"`
	Type  string `json:"type"`
}

type ActionCard struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Name     string     `json:"name"`
	Metadata Document   `json:"metadata"`
	Action   CardAction `json:"action"`
}

const SuggestedSearchResults = "search_results"

type SuggestedAction struct {
	Type  string       `json:"type"`
	Cards []ActionCard `json:"cards"`
}

type ChatTurn struct {
	ConversationID   string            `json:"conversation_id"`
	Message          string            `json:"message"`
	Reply            string            `json:"reply"`
	SuggestedActions []SuggestedAction `json:"suggested_actions"`
}

type ConversationMessage struct {
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// OrganizationCatalog is the organization's own data the built-in agent answers from.
type OrganizationCatalog struct {
	OrganizationID string           `json:"organization_id"`
	City           string           `json:"city,omitempty"`
	Rating         *float64         `json:"rating,omitempty"`
	HasPromotions  bool             `json:"has_promotions"`
	Services       []CatalogService `json:"services"`
}

type CatalogService struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
}
