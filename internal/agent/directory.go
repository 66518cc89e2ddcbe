package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/zioncity/backend/internal/ai"
	"github.com/zioncity/backend/internal/models"
)

type CatalogSource interface {
	OrganizationCatalog(ctx context.Context, organizationID string) (models.OrganizationCatalog, error)
}

// DirectoryAgent answers on behalf of organizations that do not run their own
// endpoint, using the catalog they published on the platform. When an
// Assistant is set it also phrases a short answer in the organization's voice.
type DirectoryAgent struct {
	Catalog   CatalogSource
	Assistant ai.Assistant
}

func (d DirectoryAgent) Ask(ctx context.Context, r Request) (models.Document, error) {
	info := models.Document{
		"name":        r.OrganizationName,
		"description": r.BusinessDescription,
		"specialties": r.Specialties,
	}
	doc := models.Document{
		"organization_name": r.OrganizationName,
		"specialties":       r.Specialties,
		"company_info":      info,
	}
	public := models.Document{}

	if d.Catalog != nil {
		cat, err := d.Catalog.OrganizationCatalog(ctx, r.OrganizationID)
		if err != nil {
			return nil, fmt.Errorf("catalog %s: %w", r.OrganizationID, err)
		}
		if cat.City != "" {
			info["city"] = cat.City
			doc["city"] = cat.City
			public["city"] = cat.City
		}
		if cat.Rating != nil {
			info["rating"] = *cat.Rating
			doc["rating"] = *cat.Rating
		}
		info["has_promotions"] = cat.HasPromotions
		doc["has_promotions"] = cat.HasPromotions

		services := make([]models.Document, 0, len(cat.Services))
		var priceFrom float64
		currency := ""
		for i, s := range cat.Services {
			services = append(services, models.Document{
				"id":       s.ID,
				"name":     s.Name,
				"price":    s.Price,
				"currency": s.Currency,
			})
			if i == 0 || s.Price < priceFrom {
				priceFrom = s.Price
				currency = s.Currency
			}
		}
		doc["services"] = services
		if len(cat.Services) > 0 {
			doc["price_from"] = priceFrom
			doc["currency"] = currency
		}
	}
	if len(public) > 0 {
		doc["public"] = public
	}

	if d.Assistant != nil {
		answer, err := d.Assistant.Ask(ctx, r.Query, []ai.ChatMessage{{Role: ai.RoleSystem, Content: systemPrompt(r)}})
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", r.OrganizationID, err)
		}
		doc["answer"] = answer
	}
	return doc, nil
}

func systemPrompt(r Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are ERIC, the assistant of %q.", r.OrganizationName)
	if r.BusinessDescription != "" {
		fmt.Fprintf(&b, " About us: %s.", r.BusinessDescription)
	}
	if len(r.Specialties) > 0 {
		fmt.Fprintf(&b, " Specialties: %s.", strings.Join(r.Specialties, ", "))
	}
	b.WriteString(" Answer the user's request in two sentences, only about what we offer.")
	return b.String()
}
