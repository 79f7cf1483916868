package collection

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, userID, list string) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, movie_id, title, poster_path, list, added_at
		FROM collection_items
		WHERE user_id = $1 AND list = $2
		ORDER BY added_at DESC
	`, userID, list)
	if err != nil {
		return nil, fmt.Errorf("query collection items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0)
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.MovieID, &item.Title, &item.PosterPath, &item.List, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("scan collection item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection items: %w", err)
	}

	return items, nil
}

func (r *Repository) Add(ctx context.Context, userID, list string, input ItemInput) (Item, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Item{}, fmt.Errorf("generate item id: %w", err)
	}

	item := Item{
		ID:         id.String(),
		MovieID:    input.MovieID,
		Title:      input.Title,
		PosterPath: input.PosterPath,
		List:       list,
		AddedAt:    time.Now().UTC(),
	}

	// The unique index on (user_id, list, movie_id) makes re-adding a saved
	// movie a no-op rather than a duplicate row.
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO collection_items (id, user_id, movie_id, title, poster_path, list, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, list, movie_id) DO NOTHING
	`, item.ID, userID, item.MovieID, item.Title, item.PosterPath, item.List, item.AddedAt)
	if err != nil {
		return Item{}, fmt.Errorf("insert collection item: %w", err)
	}

	return item, nil
}

func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM collection_items
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete collection item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
