package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const listWrongBook = `SELECT question_id FROM wrong_book WHERE subject = $1 ORDER BY created_at, question_id`

const insertWrongBook = `INSERT INTO wrong_book (subject, question_id) VALUES ($1, $2) ON CONFLICT (subject, question_id) DO NOTHING`

const deleteWrongBook = `DELETE FROM wrong_book WHERE subject = $1 AND question_id = $2`

// Queries runs the wrong_book statements against a pgx connection.
type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) ListWrongBook(ctx context.Context, subject string) ([]int32, error) {
	rows, err := q.db.Query(ctx, listWrongBook, subject)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int32])
}

func (q *Queries) InsertWrongBook(ctx context.Context, subject string, questionID int32) error {
	_, err := q.db.Exec(ctx, insertWrongBook, subject, questionID)
	return err
}

func (q *Queries) DeleteWrongBook(ctx context.Context, subject string, questionID int32) error {
	_, err := q.db.Exec(ctx, deleteWrongBook, subject, questionID)
	return err
}

type wrongBookStore interface {
	ListWrongBook(ctx context.Context, subject string) ([]int32, error)
	InsertWrongBook(ctx context.Context, subject string, questionID int32) error
	DeleteWrongBook(ctx context.Context, subject string, questionID int32) error
}

// Postgres stores the ledger in the wrong_book table created by cmd/migrator.
type Postgres struct {
	store wrongBookStore
	pool  *pgxpool.Pool
}

// NewPostgres builds a ledger over a pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{store: NewQueries(pool), pool: pool}
}

func newPostgresWithStore(store wrongBookStore) *Postgres {
	return &Postgres{store: store}
}

func (p *Postgres) IDs(ctx context.Context, subject string) ([]int, error) {
	rows, err := p.store.ListWrongBook(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list wrong book: %w", err)
	}
	ids := make([]int, len(rows))
	for i, id := range rows {
		ids[i] = int(id)
	}
	return ids, nil
}

func (p *Postgres) Add(ctx context.Context, subject string, id int) error {
	if err := validSubject(subject); err != nil {
		return err
	}
	if err := p.store.InsertWrongBook(ctx, subject, int32(id)); err != nil {
		return fmt.Errorf("add to wrong book: %w", err)
	}
	return nil
}

func (p *Postgres) Remove(ctx context.Context, subject string, id int) error {
	if err := p.store.DeleteWrongBook(ctx, subject, int32(id)); err != nil {
		return fmt.Errorf("remove from wrong book: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p.pool == nil {
		return nil
	}
	return p.pool.Ping(ctx)
}
