package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jackc/pgx/v5/pgconn"
	latch "github.com/phoenixsite/go-latch"
	"github.com/uptrace/bun"
)

// PairingRecordModel is the Bun model for latch pairing records.
type PairingRecordModel struct {
	bun.BaseModel `bun:"table:latch_pairing_records,alias:lpr"`

	ID        string    `bun:"id,pk,type:uuid"`
	UserID    string    `bun:"user_id,notnull,type:uuid"`
	AccountID string    `bun:"account_id,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// PairingRecordRepository implements latch.PairingRecords using Bun.
type PairingRecordRepository struct {
	db  bun.IDB
	now func() time.Time
}

var _ latch.PairingRecords = (*PairingRecordRepository)(nil)

// NewPairingRecordRepository creates a new repository.
func NewPairingRecordRepository(db bun.IDB) *PairingRecordRepository {
	return &PairingRecordRepository{
		db:  db,
		now: time.Now,
	}
}

// FindByUserID implements latch.PairingRecords.
func (r *PairingRecordRepository) FindByUserID(ctx context.Context, userID string) (*latch.PairingRecord, error) {
	var model PairingRecordModel
	err := r.db.NewSelect().
		Model(&model).
		Where("?TableAlias.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(userID)
		}
		return nil, err
	}
	return toPairingRecord(&model), nil
}

// ExistsForUser implements latch.PairingRecords.
func (r *PairingRecordRepository) ExistsForUser(ctx context.Context, userID string) (bool, error) {
	return r.db.NewSelect().
		Model((*PairingRecordModel)(nil)).
		Where("?TableAlias.user_id = ?", userID).
		Exists(ctx)
}

// Create implements latch.PairingRecords. Uniqueness violations on the
// user or the account id are returned as latch.ErrPairingConflict, ids
// over latch.MaxAccountIDLength as latch.ErrAccountIDTooLong.
func (r *PairingRecordRepository) Create(ctx context.Context, record *latch.PairingRecord) (*latch.PairingRecord, error) {
	if record == nil {
		return nil, goerrors.New("pairing record is required", goerrors.CategoryBadInput)
	}

	if len(record.AccountID) > latch.MaxAccountIDLength {
		return nil, latch.ErrAccountIDTooLong.Clone().
			WithMetadata(map[string]any{
				"user_id": record.UserID,
				"length":  len(record.AccountID),
			})
	}

	model := fromPairingRecord(record)
	if model.CreatedAt.IsZero() {
		model.CreatedAt = r.now().UTC()
	}

	if _, err := r.db.NewInsert().Model(model).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "pairing record already exists").
				WithTextCode(latch.TextCodePairingConflict).
				WithCode(goerrors.CodeConflict).
				WithMetadata(map[string]any{
					"user_id": record.UserID,
				})
		}
		return nil, err
	}

	return toPairingRecord(model), nil
}

// Delete implements latch.PairingRecords.
func (r *PairingRecordRepository) Delete(ctx context.Context, record *latch.PairingRecord) error {
	if record == nil {
		return goerrors.New("pairing record is required", goerrors.CategoryBadInput)
	}

	res, err := r.db.NewDelete().
		Model((*PairingRecordModel)(nil)).
		Where("id = ?", record.ID).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(record.UserID)
	}

	return nil
}

func notFound(userID string) error {
	return latch.ErrPairingNotFound.Clone().
		WithMetadata(map[string]any{
			"user_id": userID,
		})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toPairingRecord(m *PairingRecordModel) *latch.PairingRecord {
	return &latch.PairingRecord{
		ID:        m.ID,
		UserID:    m.UserID,
		AccountID: m.AccountID,
		CreatedAt: m.CreatedAt,
	}
}

func fromPairingRecord(r *latch.PairingRecord) *PairingRecordModel {
	return &PairingRecordModel{
		ID:        r.ID,
		UserID:    r.UserID,
		AccountID: r.AccountID,
		CreatedAt: r.CreatedAt,
	}
}
