package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/google/uuid"
	latch "github.com/phoenixsite/go-latch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/mattn/go-sqlite3"
)

func setupPairingRepo(t *testing.T) (*PairingRecordRepository, *bun.DB, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	require.NoError(t, Migrate(context.Background(), db, DriverSQLite))

	cleanup := func() {
		_ = bunDB.Close()
	}

	return NewPairingRecordRepository(bunDB), bunDB, cleanup
}

func insertUser(t *testing.T, db *bun.DB, username string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := db.Exec(
		"INSERT INTO users (id, username, email, password_hash) VALUES (?, ?, ?, ?)",
		id, username, username+"@example.com", "hash",
	)
	require.NoError(t, err)
	return id
}

func testAccountID() string {
	return "ACCT123" + strings.Repeat("a", latch.MaxAccountIDLength-len("ACCT123"))
}

func TestPairingRecordRepositoryCreateAndFind(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := insertUser(t, db, "alice")

	created, err := repo.Create(ctx, latch.NewPairingRecord(userID, testAccountID()))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	found, err := repo.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, testAccountID(), found.AccountID)

	exists, err := repo.ExistsForUser(ctx, userID)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestPairingRecordRepositoryRejectsLongAccountID(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := insertUser(t, db, "alice")
	accountID := strings.Repeat("a", 200)

	_, err := repo.Create(ctx, latch.NewPairingRecord(userID, accountID))
	require.Error(t, err)
	assert.True(t, latch.HasTextCode(err, latch.TextCodeAccountIDTooLong))

	exists, err := repo.ExistsForUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = db.Exec(
		"INSERT INTO latch_pairing_records (id, user_id, account_id) VALUES (?, ?, ?)",
		uuid.NewString(), userID, strings.Repeat("b", latch.MaxAccountIDLength+1),
	)
	assert.Error(t, err, "table constraint should reject ids over the limit")
}

func TestPairingRecordRepositoryFindMissing(t *testing.T) {
	repo, _, cleanup := setupPairingRepo(t)
	defer cleanup()

	_, err := repo.FindByUserID(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, latch.IsPairingNotFound(err))

	exists, err := repo.ExistsForUser(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPairingRecordRepositoryUniqueUser(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := insertUser(t, db, "alice")

	_, err := repo.Create(ctx, latch.NewPairingRecord(userID, "account-one"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, latch.NewPairingRecord(userID, "account-two"))
	require.Error(t, err)
	assert.True(t, latch.HasTextCode(err, latch.TextCodePairingConflict))
}

func TestPairingRecordRepositoryUniqueAccount(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	alice := insertUser(t, db, "alice")
	bob := insertUser(t, db, "bob")

	_, err := repo.Create(ctx, latch.NewPairingRecord(alice, "shared-account"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, latch.NewPairingRecord(bob, "shared-account"))
	require.Error(t, err)
	assert.True(t, latch.HasTextCode(err, latch.TextCodePairingConflict))
}

func TestPairingRecordRepositoryRejectsEmptyAccount(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	userID := insertUser(t, db, "alice")

	_, err := repo.Create(context.Background(), latch.NewPairingRecord(userID, ""))
	require.Error(t, err)
}

func TestPairingRecordRepositoryDelete(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := insertUser(t, db, "alice")

	created, err := repo.Create(ctx, latch.NewPairingRecord(userID, testAccountID()))
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, created))

	exists, err := repo.ExistsForUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)

	err = repo.Delete(ctx, created)
	assert.True(t, latch.IsPairingNotFound(err))
}

func TestPairingRecordRepositoryCascadeOnUserDelete(t *testing.T) {
	repo, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	ctx := context.Background()
	userID := insertUser(t, db, "alice")

	_, err := repo.Create(ctx, latch.NewPairingRecord(userID, testAccountID()))
	require.NoError(t, err)

	_, err = db.Exec("DELETE FROM users WHERE id = ?", userID)
	require.NoError(t, err)

	exists, err := repo.ExistsForUser(ctx, userID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryManagerValidates(t *testing.T) {
	_, db, cleanup := setupPairingRepo(t)
	defer cleanup()

	manager := NewRepositoryManager(db)
	require.NoError(t, manager.Validate())
	assert.NotNil(t, manager.Users())
	assert.NotNil(t, manager.Pairings())

	err := manager.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := NewPairingRecordRepository(tx).ExistsForUser(ctx, uuid.NewString())
		return err
	})
	require.NoError(t, err)
}

func TestMigrateRejectsUnknownDriver(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(context.Background(), db, "oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}
