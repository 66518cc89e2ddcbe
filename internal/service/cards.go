package service

import (
	"github.com/zioncity/backend/internal/models"
)

var cardMetadataKeys = []string{"city", "rating", "price_from", "price", "currency", "has_promotions"}

// CardRoute returns the navigation route for a card. Routes are a contract
// with the client router and must not change shape.
func CardRoute(kind, id, organizationID string) (string, bool) {
	switch kind {
	case models.CardService:
		return "/services/" + id, true
	case models.CardOrganization:
		return "/organizations/" + id, true
	case models.CardProduct:
		return "/marketplace/" + id, true
	case models.CardPerson:
		return "/messages", true
	case models.CardRecommendation:
		if organizationID == "" {
			organizationID = id
		}
		return "/organizations/" + organizationID, true
	default:
		return "", false
	}
}

func cardLabel(kind string) string {
	if kind == models.CardPerson {
		return "Message"
	}
	return "View"
}

// BuildCards turns typed hits into action cards in the same order. Hits of an
// unknown kind are skipped.
func BuildCards(hits []models.SearchHit) []models.ActionCard {
	cards := make([]models.ActionCard, 0, len(hits))
	for _, h := range hits {
		route, ok := CardRoute(h.Kind, h.ID, h.OrganizationID)
		if !ok {
			continue
		}
		cards = append(cards, models.ActionCard{
			ID:       h.ID,
			Type:     h.Kind,
			Name:     h.Name,
			Metadata: cardMetadata(h.Metadata),
			Action: models.CardAction{
				Label: cardLabel(h.Kind),
				Route: route,
				Type:  h.Kind,
			},
		})
	}
	return cards
}

// RecommendationHits converts ranked broadcast results into card hits,
// preserving their order.
func RecommendationHits(results []models.BusinessResult) []models.SearchHit {
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, models.SearchHit{
			ID:             r.OrganizationID,
			Kind:           models.CardRecommendation,
			Name:           r.OrganizationName,
			OrganizationID: r.OrganizationID,
			Metadata:       r.Data,
		})
	}
	return hits
}

// cardMetadata copies the known keys that are present, looking into a nested
// company_info block when the top level lacks them.
func cardMetadata(src models.Document) models.Document {
	out := models.Document{}
	if src == nil {
		return out
	}
	nested := nestedDocument(src["company_info"])
	for _, k := range cardMetadataKeys {
		if v, ok := src[k]; ok && v != nil {
			out[k] = v
			continue
		}
		if v, ok := nested[k]; ok && v != nil {
			out[k] = v
		}
	}
	return out
}

func nestedDocument(v any) models.Document {
	switch t := v.(type) {
	case models.Document:
		return t
	case map[string]any:
		return models.Document(t)
	}
	return nil
}
