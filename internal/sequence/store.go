package sequence

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"
)

// TableStore implements Store against any table with a code column.
type TableStore struct {
	Bun   *bun.DB
	Table string
}

func NewTableStore(db *bun.DB, table string) *TableStore {
	return &TableStore{Bun: db, Table: table}
}

func (s *TableStore) LatestCode(ctx context.Context, prefix string) (string, error) {
	var code string
	err := s.Bun.NewSelect().
		Column("code").
		Table(s.Table).
		Where("code LIKE ?", prefix+"%").
		OrderExpr("code DESC").
		Limit(1).
		Scan(ctx, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (s *TableStore) CodeExists(ctx context.Context, code string) (bool, error) {
	exists, err := s.Bun.NewSelect().
		Table(s.Table).
		Where("code = ?", code).
		Exists(ctx)
	if err != nil {
		return false, err
	}
	return exists, nil
}
