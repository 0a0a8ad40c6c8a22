package cart

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStorage stores snapshots in the cart_snapshots table.
type SQLStorage struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLStorage(db *gorm.DB) *SQLStorage {
	return &SQLStorage{db: db, now: time.Now}
}

func (s *SQLStorage) Load(ctx context.Context, sessionID string) ([]byte, error) {
	var row models.CartSnapshot
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(row.Payload), nil
}

func (s *SQLStorage) Save(ctx context.Context, sessionID string, payload []byte) error {
	row := models.CartSnapshot{
		SessionID: sessionID,
		Payload:   string(payload),
		UpdatedAt: s.now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
}
