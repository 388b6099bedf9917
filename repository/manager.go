package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	latch "github.com/phoenixsite/go-latch"
	"github.com/uptrace/bun"
)

type mngr struct {
	db       *bun.DB
	users    latch.Users
	pairings latch.PairingRecords
}

func NewRepositoryManager(db *bun.DB) latch.RepositoryManager {
	return &mngr{
		db:       db,
		users:    latch.NewUsersRepository(db),
		pairings: NewPairingRecordRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.pairings == nil {
		return errors.New("repository pairings should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Users() latch.Users {
	return m.users
}

func (m mngr) Pairings() latch.PairingRecords {
	return m.pairings
}
