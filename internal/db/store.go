package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zioncity/backend/internal/models"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// Migrate creates the tables the engine reads and writes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schema)
	return err
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const profileColumns = `o.id, o.name, o.city, COALESCE(e.allow_user_eric_queries, FALSE), COALESCE(e.share_public_data, FALSE),
	COALESCE(e.specialties, '{}'), COALESCE(e.business_description, ''), COALESCE(e.agent_endpoint, ''), COALESCE(e.updated_at, o.created_at)`

func scanProfile(row pgx.Row) (models.OrganizationAgentProfile, error) {
	var p models.OrganizationAgentProfile
	err := row.Scan(&p.OrganizationID, &p.OrganizationName, &p.City, &p.AllowUserEricQueries, &p.SharePublicData,
		&p.Specialties, &p.BusinessDescription, &p.AgentEndpoint, &p.UpdatedAt)
	if p.Specialties == nil {
		p.Specialties = []string{}
	}
	return p, err
}

// ListAgentProfiles returns every organization with its ERIC settings.
// Organizations without a settings row are reported as not opted in.
func (s *Store) ListAgentProfiles(ctx context.Context) ([]models.OrganizationAgentProfile, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+profileColumns+`
		FROM organizations o
		LEFT JOIN organization_eric_settings e ON e.organization_id = o.id
		ORDER BY o.name ASC, o.id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.OrganizationAgentProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetAgentProfile(ctx context.Context, organizationID string) (models.OrganizationAgentProfile, error) {
	row := s.Pool.QueryRow(ctx, `SELECT `+profileColumns+`
		FROM organizations o
		LEFT JOIN organization_eric_settings e ON e.organization_id = o.id
		WHERE o.id = $1`, organizationID)
	p, err := scanProfile(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.OrganizationAgentProfile{}, ErrNotFound
	}
	return p, err
}

// UpdateEricSettings applies a partial settings update and returns the
// resulting profile.
func (s *Store) UpdateEricSettings(ctx context.Context, organizationID string, patch models.EricSettingsPatch) (models.OrganizationAgentProfile, error) {
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, organizationID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `INSERT INTO organization_eric_settings (organization_id) VALUES ($1)
			ON CONFLICT (organization_id) DO NOTHING`, organizationID); err != nil {
			return err
		}

		args := []any{organizationID}
		sets := []string{"updated_at = NOW()"}
		add := func(column string, v any) {
			args = append(args, v)
			sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		}
		if patch.AllowUserEricQueries != nil {
			add("allow_user_eric_queries", *patch.AllowUserEricQueries)
		}
		if patch.SharePublicData != nil {
			add("share_public_data", *patch.SharePublicData)
		}
		if patch.Specialties != nil {
			add("specialties", normalizeSpecialties(*patch.Specialties))
		}
		if patch.BusinessDescription != nil {
			add("business_description", strings.TrimSpace(*patch.BusinessDescription))
		}
		if patch.AgentEndpoint != nil {
			add("agent_endpoint", strings.TrimSpace(*patch.AgentEndpoint))
		}
		_, err := tx.Exec(ctx, `UPDATE organization_eric_settings SET `+strings.Join(sets, ", ")+` WHERE organization_id = $1`, args...)
		return err
	})
	if err != nil {
		return models.OrganizationAgentProfile{}, err
	}
	return s.GetAgentProfile(ctx, organizationID)
}

func normalizeSpecialties(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// OrganizationCatalog loads the organization's public catalog for the
// built-in agent.
func (s *Store) OrganizationCatalog(ctx context.Context, organizationID string) (models.OrganizationCatalog, error) {
	c := models.OrganizationCatalog{OrganizationID: organizationID, Services: []models.CatalogService{}}
	err := s.Pool.QueryRow(ctx, `SELECT city, rating FROM organizations WHERE id = $1`, organizationID).Scan(&c.City, &c.Rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}

	rows, err := s.Pool.Query(ctx, `SELECT id, name, price, currency, has_promotion
		FROM organization_services WHERE organization_id = $1 ORDER BY price ASC, id ASC`, organizationID)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			svc   models.CatalogService
			promo bool
		)
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Price, &svc.Currency, &promo); err != nil {
			return c, err
		}
		c.HasPromotions = c.HasPromotions || promo
		c.Services = append(c.Services, svc)
	}
	return c, rows.Err()
}

// IsOrganizationAdmin reports whether userID may manage the organization's
// settings.
func (s *Store) IsOrganizationAdmin(ctx context.Context, organizationID, userID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM organization_admins WHERE organization_id = $1 AND user_id = $2
	)`, organizationID, userID).Scan(&ok)
	return ok, err
}

// EnsureConversation creates the conversation for callerID if it does not
// exist yet. An id owned by another caller is rejected.
func (s *Store) EnsureConversation(ctx context.Context, conversationID, callerID string) error {
	if _, err := s.Pool.Exec(ctx, `INSERT INTO eric_conversations (id, caller_id) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, conversationID, callerID); err != nil {
		return err
	}
	var owner string
	if err := s.Pool.QueryRow(ctx, `SELECT caller_id FROM eric_conversations WHERE id = $1`, conversationID).Scan(&owner); err != nil {
		return err
	}
	if owner != callerID {
		return fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, m models.ConversationMessage) error {
	_, err := s.Pool.Exec(ctx, `INSERT INTO eric_messages (conversation_id, role, content) VALUES ($1, $2, $3)`,
		m.ConversationID, m.Role, m.Content)
	return err
}

// RecentMessages returns up to limit latest messages of the caller's
// conversation, oldest first.
func (s *Store) RecentMessages(ctx context.Context, conversationID, callerID string, limit int) ([]models.ConversationMessage, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT m.conversation_id, m.role, m.content, m.created_at FROM (
			SELECT m.id, m.conversation_id, m.role, m.content, m.created_at
			FROM eric_messages m
			JOIN eric_conversations c ON c.id = m.conversation_id
			WHERE m.conversation_id = $1 AND c.caller_id = $2
			ORDER BY m.id DESC
			LIMIT $3
		) m ORDER BY m.id ASC`, conversationID, callerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ConversationID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
