package db

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zioncity/backend/internal/models"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	store, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate(ctx))
	return store
}

func seedOrganization(t *testing.T, s *Store, name string) string {
	t.Helper()
	id := "org-" + uuid.NewString()
	_, err := s.Pool.Exec(context.Background(), `INSERT INTO organizations (id, name, city, rating) VALUES ($1, $2, 'Zion', 4.5)`, id, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = s.Pool.Exec(context.Background(), `DELETE FROM organizations WHERE id = $1`, id)
	})
	return id
}

func TestEricSettingsIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedOrganization(t, s, "Lingua")

	p, err := s.GetAgentProfile(ctx, id)
	require.NoError(t, err)
	assert.False(t, p.AllowUserEricQueries)
	assert.Empty(t, p.Specialties)

	allow := true
	specialties := []string{" Английский ", "английский", "Школа"}
	p, err = s.UpdateEricSettings(ctx, id, models.EricSettingsPatch{
		AllowUserEricQueries: &allow,
		Specialties:          &specialties,
	})
	require.NoError(t, err)
	assert.True(t, p.AllowUserEricQueries)
	assert.False(t, p.SharePublicData)
	assert.Equal(t, []string{"Английский", "Школа"}, p.Specialties)

	profiles, err := s.ListAgentProfiles(ctx)
	require.NoError(t, err)
	found := false
	for _, pr := range profiles {
		if pr.OrganizationID == id {
			found = pr.AllowUserEricQueries
		}
	}
	assert.True(t, found)

	_, err = s.UpdateEricSettings(ctx, "org-missing-"+uuid.NewString(), models.EricSettingsPatch{AllowUserEricQueries: &allow})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestOrganizationAdminsIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedOrganization(t, s, "Clinic")
	_, err := s.Pool.Exec(ctx, `INSERT INTO organization_admins (organization_id, user_id) VALUES ($1, 'owner-1')`, id)
	require.NoError(t, err)

	ok, err := s.IsOrganizationAdmin(ctx, id, "owner-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsOrganizationAdmin(ctx, id, "stranger")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrganizationCatalogIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := seedOrganization(t, s, "Barber")
	_, err := s.Pool.Exec(ctx, `INSERT INTO organization_services (id, organization_id, name, price, currency, has_promotion)
		VALUES ($1, $2, 'Стрижка', 1500, 'RUB', TRUE), ($3, $2, 'Бритьё', 900, 'RUB', FALSE)`,
		"svc-"+uuid.NewString(), id, "svc-"+uuid.NewString())
	require.NoError(t, err)

	c, err := s.OrganizationCatalog(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Zion", c.City)
	require.NotNil(t, c.Rating)
	assert.True(t, c.HasPromotions)
	require.Len(t, c.Services, 2)
	assert.Equal(t, "Бритьё", c.Services[0].Name)
}

func TestConversationsIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	conv := uuid.NewString()
	t.Cleanup(func() {
		_, _ = s.Pool.Exec(context.Background(), `DELETE FROM eric_conversations WHERE id = $1`, conv)
	})

	require.NoError(t, s.EnsureConversation(ctx, conv, "u1"))
	require.NoError(t, s.EnsureConversation(ctx, conv, "u1"))
	assert.ErrorIs(t, s.EnsureConversation(ctx, conv, "intruder"), ErrNotFound)

	for _, c := range []string{"one", "two", "three"} {
		require.NoError(t, s.AppendMessage(ctx, models.ConversationMessage{ConversationID: conv, Role: "user", Content: c}))
	}
	msgs, err := s.RecentMessages(ctx, conv, "u1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "two", msgs[0].Content)
	assert.Equal(t, "three", msgs[1].Content)

	msgs, err = s.RecentMessages(ctx, conv, "intruder", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
