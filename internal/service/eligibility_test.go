package service

import (
	"context"
	"errors"
	"testing"

	"github.com/zioncity/backend/internal/models"
)

func eligibilityFixture() []models.OrganizationAgentProfile {
	return []models.OrganizationAgentProfile{
		{OrganizationID: "o3", OrganizationName: "Lingua", AllowUserEricQueries: true, Specialties: []string{"Английский", "Школа"}},
		{OrganizationID: "o1", OrganizationName: "Auto Zion", AllowUserEricQueries: true, BusinessDescription: "Ремонт автомобилей"},
		{OrganizationID: "o2", OrganizationName: "Closed School", AllowUserEricQueries: false, Specialties: []string{"школа"}},
		{OrganizationID: "o4", OrganizationName: "Auto Zion", AllowUserEricQueries: true, BusinessDescription: "Детская школа программирования"},
	}
}

func TestFilterEligibleProfilesOptedInOnly(t *testing.T) {
	res := FilterEligibleProfiles(eligibilityFixture(), "")
	if len(res.Eligible) != 3 {
		t.Fatalf("expected 3 eligible, got %d", len(res.Eligible))
	}
	for _, p := range res.Eligible {
		if !p.AllowUserEricQueries {
			t.Fatalf("opted-out organization %s passed the gate", p.OrganizationID)
		}
	}
	// Name ascending, id breaks the tie.
	want := []string{"o1", "o4", "o3"}
	for i, id := range want {
		if res.Eligible[i].OrganizationID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, res.Eligible[i].OrganizationID)
		}
	}
	if len(res.Stages) != 2 || res.Stages[0].Name != "opted_in" {
		t.Fatalf("unexpected stages %+v", res.Stages)
	}
}

func TestFilterEligibleProfilesCategoryIsCaseInsensitive(t *testing.T) {
	res := FilterEligibleProfiles(eligibilityFixture(), "  ШКОЛ ")
	if len(res.Eligible) != 2 {
		t.Fatalf("expected 2 matches, got %+v", res.Eligible)
	}
	if res.Eligible[0].OrganizationID != "o4" || res.Eligible[1].OrganizationID != "o3" {
		t.Fatalf("unexpected order %+v", res.Eligible)
	}
	if res.Category != "ШКОЛ" {
		t.Fatalf("expected trimmed category, got %q", res.Category)
	}
}

func TestFilterEligibleProfilesNoMatch(t *testing.T) {
	res := FilterEligibleProfiles(eligibilityFixture(), "ветеринар")
	if res.Eligible == nil || len(res.Eligible) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", res.Eligible)
	}
}

type profileSourceFunc func(ctx context.Context) ([]models.OrganizationAgentProfile, error)

func (f profileSourceFunc) ListAgentProfiles(ctx context.Context) ([]models.OrganizationAgentProfile, error) {
	return f(ctx)
}

func TestGateWrapsStoreErrors(t *testing.T) {
	g := Gate{Profiles: profileSourceFunc(func(context.Context) ([]models.OrganizationAgentProfile, error) {
		return nil, errors.New("connection refused")
	})}
	_, err := g.SelectCandidates(context.Background(), "")
	if !errors.Is(err, ErrProfileStore) {
		t.Fatalf("expected ErrProfileStore, got %v", err)
	}
}
