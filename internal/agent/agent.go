// Package agent talks to organization agents (ERICs). Each organization either
// runs its own remote endpoint or is answered by the built-in directory agent.
package agent

import (
	"context"
	"strings"

	"github.com/zioncity/backend/internal/models"
)

// Request is what one organization agent receives: the user's query plus the
// organization's self description as context.
type Request struct {
	Query               string   `json:"query"`
	OrganizationID      string   `json:"organization_id"`
	OrganizationName    string   `json:"organization_name"`
	BusinessDescription string   `json:"business_description"`
	Specialties         []string `json:"specialties"`
}

func NewRequest(query string, p models.OrganizationAgentProfile) Request {
	return Request{
		Query:               query,
		OrganizationID:      p.OrganizationID,
		OrganizationName:    p.OrganizationName,
		BusinessDescription: p.BusinessDescription,
		Specialties:         p.Specialties,
	}
}

type Agent interface {
	Ask(ctx context.Context, req Request) (models.Document, error)
}

// Router sends each dispatch to the organization's remote endpoint when one is
// configured and to Local otherwise.
type Router struct {
	Local  Agent
	Remote func(endpoint string) Agent
}

func (r Router) Dispatch(ctx context.Context, query string, p models.OrganizationAgentProfile) (models.Document, error) {
	req := NewRequest(query, p)
	if endpoint := strings.TrimSpace(p.AgentEndpoint); endpoint != "" && r.Remote != nil {
		return r.Remote(endpoint).Ask(ctx, req)
	}
	return r.Local.Ask(ctx, req)
}
