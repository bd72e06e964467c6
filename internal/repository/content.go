package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/recollect-labs/recollect/internal/domain"
	"github.com/recollect-labs/recollect/internal/pagination"
	"github.com/recollect-labs/recollect/internal/service"
)

// ContentRepository persists content items together with their tags.
// It runs against either a pool or an open transaction.
type ContentRepository struct {
	db dbtx
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{db: pool}
}

func NewContentRepositoryWithTx(tx pgx.Tx) *ContentRepository {
	return &ContentRepository{db: tx}
}

func (r *ContentRepository) Create(ctx context.Context, c *domain.Content) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO contents (id, user_id, title, link, type, note, share_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.UserID, c.Title, nullableString(c.Link), string(c.Type), c.Note,
		nullableString(c.ShareToken), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	content, err := r.scanOne(ctx,
		`SELECT id, user_id, title, link, type, note, share_token, created_at, updated_at
		 FROM contents WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

func (r *ContentRepository) GetByShareToken(ctx context.Context, token string) (*domain.Content, error) {
	content, err := r.scanOne(ctx,
		`SELECT id, user_id, title, link, type, note, share_token, created_at, updated_at
		 FROM contents WHERE share_token = $1`,
		token,
	)
	if err != nil {
		return nil, err
	}
	if err := r.loadTags(ctx, content); err != nil {
		return nil, err
	}
	return content, nil
}

// ListByUserWithCursor returns a page of the user's content, newest first,
// using keyset pagination on (created_at, id).
func (r *ContentRepository) ListByUserWithCursor(ctx context.Context, userID string, contentType domain.ContentType, cursor *pagination.Cursor, limit int) (*service.ContentPageResult, error) {
	query := `SELECT id, user_id, title, link, type, note, share_token, created_at, updated_at
	          FROM contents WHERE user_id = $1`
	args := []any{userID}

	if contentType != "" {
		args = append(args, string(contentType))
		query += ` AND type = $2`
	}

	if cursor != nil {
		query += ` AND (created_at, id) < ($` + strconv.Itoa(len(args)+1) + `, $` + strconv.Itoa(len(args)+2) + `)`
		args = append(args, cursor.Timestamp, cursor.LastID)
	}

	args = append(args, limit+1)
	query += ` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Content
	for rows.Next() {
		content, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, content)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	for _, content := range items {
		if err := r.loadTags(ctx, content); err != nil {
			return nil, err
		}
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.ContentPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *ContentRepository) Update(ctx context.Context, c *domain.Content) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE contents SET title = $1, link = $2, note = $3, updated_at = $4 WHERE id = $5`,
		c.Title, nullableString(c.Link), c.Note, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

func (r *ContentRepository) Delete(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM contents WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

// ReplaceTags swaps the content's tag set for the given titles. Tags are
// shared rows keyed by lowercased title and created on first use.
func (r *ContentRepository) ReplaceTags(ctx context.Context, contentID string, titles []string) ([]domain.Tag, error) {
	if _, err := r.db.Exec(ctx, `DELETE FROM content_tags WHERE content_id = $1`, contentID); err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, title := range titles {
		title = strings.ToLower(strings.TrimSpace(title))
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true

		var tag domain.Tag
		err := r.db.QueryRow(ctx,
			`INSERT INTO tags (id, title) VALUES (gen_random_uuid()::text, $1)
			 ON CONFLICT (title) DO UPDATE SET title = EXCLUDED.title
			 RETURNING id, title`,
			title,
		).Scan(&tag.ID, &tag.Title)
		if err != nil {
			return nil, err
		}

		if _, err := r.db.Exec(ctx,
			`INSERT INTO content_tags (content_id, tag_id) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING`,
			contentID, tag.ID,
		); err != nil {
			return nil, err
		}

		tags = append(tags, tag)
	}

	return tags, nil
}

func (r *ContentRepository) SetShareToken(ctx context.Context, id, token string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE contents SET share_token = $1 WHERE id = $2`,
		nullableString(token), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrContentNotFound
	}
	return nil
}

func (r *ContentRepository) scanOne(ctx context.Context, query string, args ...any) (*domain.Content, error) {
	content, err := scanContent(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrContentNotFound
		}
		return nil, err
	}
	return content, nil
}

func (r *ContentRepository) loadTags(ctx context.Context, content *domain.Content) error {
	rows, err := r.db.Query(ctx,
		`SELECT t.id, t.title
		 FROM tags t
		 JOIN content_tags ct ON ct.tag_id = t.id
		 WHERE ct.content_id = $1
		 ORDER BY t.title ASC`,
		content.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	content.Tags = nil
	for rows.Next() {
		var tag domain.Tag
		if err := rows.Scan(&tag.ID, &tag.Title); err != nil {
			return err
		}
		content.Tags = append(content.Tags, tag)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContent(row rowScanner) (*domain.Content, error) {
	var content domain.Content
	var link, shareToken *string
	var contentType string
	if err := row.Scan(
		&content.ID, &content.UserID, &content.Title, &link, &contentType,
		&content.Note, &shareToken, &content.CreatedAt, &content.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if link != nil {
		content.Link = *link
	}
	if shareToken != nil {
		content.ShareToken = *shareToken
	}
	content.Type = domain.ContentType(contentType)
	return &content, nil
}
