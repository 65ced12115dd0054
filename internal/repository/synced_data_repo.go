package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"habitsync/internal/model"
	"habitsync/internal/realtime"
	"habitsync/pkg/outbox"
)

// SyncedDataRepository is the remote shared store for cloud-synced items.
// Every mutation commits a change-event outbox row in the same transaction,
// so confirmed writes are always broadcast to the user's other devices.
type SyncedDataRepository struct {
	db     *pgxpool.Pool
	outbox *outbox.Repository
	logger *zap.Logger
}

func NewSyncedDataRepository(db *pgxpool.Pool, ob *outbox.Repository, logger *zap.Logger) *SyncedDataRepository {
	return &SyncedDataRepository{
		db:     db,
		outbox: ob,
		logger: logger,
	}
}

// List returns all items for a user, newest write first.
func (r *SyncedDataRepository) List(ctx context.Context, userID string) ([]model.SyncedItem, error) {
	r.logger.Debug("Listing synced data", zap.String("user_id", userID))

	query := `
        SELECT id, content, device_id, last_modified, version
        FROM synced_data
        WHERE user_id = $1
        ORDER BY last_modified DESC
    `

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.logger.Error("Failed to list synced data", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var items []model.SyncedItem
	for rows.Next() {
		var item model.SyncedItem
		if err := rows.Scan(
			&item.ID,
			&item.Content,
			&item.DeviceID,
			&item.LastModified,
			&item.Version,
		); err != nil {
			r.logger.Error("Failed to scan synced item", zap.Error(err))
			return nil, err
		}
		items = append(items, item)
	}

	r.logger.Debug("Listed synced data",
		zap.String("user_id", userID),
		zap.Int("count", len(items)),
	)
	return items, rows.Err()
}

func (r *SyncedDataRepository) Insert(ctx context.Context, userID string, item model.SyncedItem) error {
	r.logger.Debug("Inserting synced item",
		zap.String("user_id", userID),
		zap.String("id", item.ID),
		zap.String("device_id", item.DeviceID),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        INSERT INTO synced_data (id, user_id, content, device_id, last_modified, version)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	if _, err := tx.Exec(ctx, query,
		item.ID,
		userID,
		item.Content,
		item.DeviceID,
		item.LastModified,
		item.Version,
	); err != nil {
		r.logger.Error("Failed to insert synced item", zap.String("id", item.ID), zap.Error(err))
		return err
	}

	event := model.ChangeEvent{
		ID:     uuid.NewString(),
		Type:   model.EventInsert,
		UserID: userID,
		New:    &item,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "synced_data", &item.ID, realtime.RoutingKeySyncChanged, event); err != nil {
		r.logger.Error("Failed to insert change event", zap.String("id", item.ID), zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Info("Synced item inserted",
		zap.String("user_id", userID),
		zap.String("id", item.ID),
	)
	return nil
}

func (r *SyncedDataRepository) Update(ctx context.Context, userID string, item model.SyncedItem) error {
	r.logger.Debug("Updating synced item",
		zap.String("user_id", userID),
		zap.String("id", item.ID),
		zap.Int("version", item.Version),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
        UPDATE synced_data
        SET content = $1, device_id = $2, last_modified = $3, version = $4
        WHERE id = $5 AND user_id = $6
    `
	tag, err := tx.Exec(ctx, query,
		item.Content,
		item.DeviceID,
		item.LastModified,
		item.Version,
		item.ID,
		userID,
	)
	if err != nil {
		r.logger.Error("Failed to update synced item", zap.String("id", item.ID), zap.Error(err))
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("synced item %s not found", item.ID)
	}

	event := model.ChangeEvent{
		ID:     uuid.NewString(),
		Type:   model.EventUpdate,
		UserID: userID,
		New:    &item,
	}
	if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "synced_data", &item.ID, realtime.RoutingKeySyncChanged, event); err != nil {
		r.logger.Error("Failed to insert change event", zap.String("id", item.ID), zap.Error(err))
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Info("Synced item updated",
		zap.String("user_id", userID),
		zap.String("id", item.ID),
		zap.Int("version", item.Version),
	)
	return nil
}

// Delete removes an item. Deleting an id that is already gone is not an
// error: removal is idempotent.
func (r *SyncedDataRepository) Delete(ctx context.Context, userID, id string) error {
	r.logger.Debug("Deleting synced item",
		zap.String("user_id", userID),
		zap.String("id", id),
	)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM synced_data WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		r.logger.Error("Failed to delete synced item", zap.String("id", id), zap.Error(err))
		return err
	}

	if tag.RowsAffected() > 0 {
		event := model.ChangeEvent{
			ID:     uuid.NewString(),
			Type:   model.EventDelete,
			UserID: userID,
			Old:    &model.SyncedItem{ID: id},
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outbox, "synced_data", &id, realtime.RoutingKeySyncChanged, event); err != nil {
			r.logger.Error("Failed to insert change event", zap.String("id", id), zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.logger.Info("Synced item deleted",
		zap.String("user_id", userID),
		zap.String("id", id),
	)
	return nil
}
