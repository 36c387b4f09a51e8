package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/infrastructure/db"
)

// MirrorProviderName is the provider name the feed mirror is activated under.
const MirrorProviderName = "mirror"

type feedRow struct {
	Provider   string `db:"provider"`
	ExternalID string `db:"external_id"`
	Payload    []byte `db:"payload"`
}

// FeedMirrorRepository serves raw provider payloads from provider_feed_items. Only city,
// neighborhood, code and free-text filters are applied; the other filters have no column.
type FeedMirrorRepository struct {
	db *db.Database
}

func NewFeedMirrorRepository(database *db.Database) *FeedMirrorRepository {
	return &FeedMirrorRepository{db: database}
}

// Name implements ports.PropertyProvider.
func (r *FeedMirrorRepository) Name() string { return MirrorProviderName }

// ListProperties implements ports.PropertyProvider. Records keep the tag of the provider
// that produced them.
func (r *FeedMirrorRepository) ListProperties(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.ListResult, error) {
	listQuery, countQuery, args := buildListQuery(filters, pagination)

	var total int
	if err := r.db.DB.GetContext(ctx, &total, countQuery, args[:len(args)-2]...); err != nil {
		return nil, fmt.Errorf("failed to count feed items: %w", err)
	}

	var rows []feedRow
	if err := r.db.DB.SelectContext(ctx, &rows, listQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to list feed items: %w", err)
	}

	items := make([]ports.RawRecord, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.RawRecord{Provider: row.Provider, Payload: json.RawMessage(row.Payload)})
	}
	return &ports.ListResult{Items: items, Total: total, Page: pagination.Page, Limit: pagination.Limit}, nil
}

// GetProperty implements ports.PropertyProvider. When several providers share an external
// id the most recently updated payload wins.
func (r *FeedMirrorRepository) GetProperty(ctx context.Context, id string) (*ports.RawRecord, error) {
	var row feedRow
	query := `
		SELECT provider, external_id, payload
		FROM provider_feed_items
		WHERE external_id = $1
		ORDER BY updated_at DESC
		LIMIT 1`

	err := r.db.DB.GetContext(ctx, &row, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, property.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get feed item %s: %w", id, err)
	}
	return &ports.RawRecord{Provider: row.Provider, Payload: json.RawMessage(row.Payload)}, nil
}

// Upsert stores or replaces a payload keyed by provider and external id.
func (r *FeedMirrorRepository) Upsert(ctx context.Context, item ports.FeedItem) error {
	query := `
		INSERT INTO provider_feed_items (provider, external_id, code, city, neighborhood, payload, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (provider, external_id) DO UPDATE
		SET code = EXCLUDED.code, city = EXCLUDED.city, neighborhood = EXCLUDED.neighborhood,
		    payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	updatedAt := item.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	_, err := r.db.DB.ExecContext(ctx, query,
		item.Provider, item.ExternalID, item.Code, item.City, item.Neighborhood, []byte(item.Payload), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert feed item %s/%s: %w", item.Provider, item.ExternalID, err)
	}
	return nil
}

// buildListQuery returns the page query, the matching count query and the arguments of the
// page query. The last two arguments are LIMIT and OFFSET; the count query uses the rest.
func buildListQuery(f property.Filters, p property.Pagination) (string, string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if v := strings.TrimSpace(f.City); v != "" {
		add("lower(city) = lower($%d)", v)
	}
	if v := strings.TrimSpace(f.Neighborhood); v != "" {
		add("lower(neighborhood) = lower($%d)", v)
	}
	if v := strings.TrimSpace(f.Code); v != "" {
		add("code = $%d", v)
	}
	if v := strings.TrimSpace(f.Query); v != "" {
		args = append(args, "%"+v+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(code ILIKE $%d OR payload::text ILIKE $%d)", n, n))
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	countQuery := "SELECT count(*) FROM provider_feed_items" + clause
	listQuery := fmt.Sprintf(
		"SELECT provider, external_id, payload FROM provider_feed_items%s ORDER BY updated_at DESC, provider, external_id LIMIT $%d OFFSET $%d",
		clause, len(args)+1, len(args)+2,
	)
	args = append(args, p.Limit, p.Offset())
	return listQuery, countQuery, args
}

var (
	_ ports.PropertyProvider = (*FeedMirrorRepository)(nil)
	_ ports.FeedMirrorWriter = (*FeedMirrorRepository)(nil)
)
