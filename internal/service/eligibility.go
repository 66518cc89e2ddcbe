package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zioncity/backend/internal/models"
)

type ProfileSource interface {
	ListAgentProfiles(ctx context.Context) ([]models.OrganizationAgentProfile, error)
}

type EligibilityResult struct {
	Eligible []models.OrganizationAgentProfile
	Category string
	Stages   []EligibilityStage
}

type EligibilityStage struct {
	Name       string
	Candidates []models.OrganizationAgentProfile
}

// FilterEligibleProfiles keeps organizations that opted in to user ERIC
// queries and, when category is set, whose specialties or description contain
// it case-insensitively. Output is ordered by name, then id.
func FilterEligibleProfiles(profiles []models.OrganizationAgentProfile, category string) EligibilityResult {
	category = strings.TrimSpace(category)
	result := EligibilityResult{Category: category}

	optedIn := filterProfiles(profiles, func(p models.OrganizationAgentProfile) bool {
		return p.AllowUserEricQueries
	})
	result.Stages = append(result.Stages, EligibilityStage{Name: "opted_in", Candidates: optedIn})

	matched := optedIn
	if category != "" {
		needle := strings.ToLower(category)
		matched = filterProfiles(optedIn, func(p models.OrganizationAgentProfile) bool {
			return matchesCategory(p, needle)
		})
	}
	result.Stages = append(result.Stages, EligibilityStage{Name: "category_match", Candidates: matched})

	sortProfiles(matched)
	result.Eligible = matched
	return result
}

func matchesCategory(p models.OrganizationAgentProfile, needle string) bool {
	if strings.Contains(strings.ToLower(p.BusinessDescription), needle) {
		return true
	}
	for _, s := range p.Specialties {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// Gate resolves broadcast candidates from the profile store.
type Gate struct {
	Profiles ProfileSource
}

func (g Gate) SelectCandidates(ctx context.Context, category string) ([]models.OrganizationAgentProfile, error) {
	res, err := g.Evaluate(ctx, category)
	if err != nil {
		return nil, err
	}
	return res.Eligible, nil
}

func (g Gate) Evaluate(ctx context.Context, category string) (EligibilityResult, error) {
	profiles, err := g.Profiles.ListAgentProfiles(ctx)
	if err != nil {
		return EligibilityResult{}, fmt.Errorf("%w: %v", ErrProfileStore, err)
	}
	return FilterEligibleProfiles(profiles, category), nil
}

func filterProfiles(profiles []models.OrganizationAgentProfile, keep func(models.OrganizationAgentProfile) bool) []models.OrganizationAgentProfile {
	out := make([]models.OrganizationAgentProfile, 0, len(profiles))
	for _, p := range profiles {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func sortProfiles(profiles []models.OrganizationAgentProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].OrganizationName == profiles[j].OrganizationName {
			return profiles[i].OrganizationID < profiles[j].OrganizationID
		}
		return profiles[i].OrganizationName < profiles[j].OrganizationName
	})
}
