package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gyeh/aihstats/internal/model"
)

// LoadRowSource feeds COPY from a channel of load rows. The channel is the
// only buffer between the Parquet producer and the database, so a slow COPY
// stalls the reader instead of growing memory.
type LoadRowSource struct {
	ctx     context.Context
	loadID  uuid.UUID
	rows    <-chan *model.LoadRow
	current *model.LoadRow
	sent    int64
	err     error
}

// NewLoadRowSource streams rows tagged with loadID until rows is closed or
// ctx is done. A row tagged with another load aborts the COPY.
func NewLoadRowSource(ctx context.Context, loadID uuid.UUID, rows <-chan *model.LoadRow) *LoadRowSource {
	return &LoadRowSource{ctx: ctx, loadID: loadID, rows: rows}
}

func (s *LoadRowSource) Next() bool {
	if s.err != nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	case row, ok := <-s.rows:
		if !ok {
			return false
		}
		if row.LoadID != s.loadID {
			s.err = fmt.Errorf("row %d belongs to load %s, copying %s", row.SourceRowNumber, row.LoadID, s.loadID)
			return false
		}
		s.current = row
		s.sent++
		return true
	}
}

func (s *LoadRowSource) Values() ([]any, error) {
	return s.current.CopyValues(), nil
}

func (s *LoadRowSource) Err() error {
	return s.err
}

// Sent reports how many rows have been handed to COPY so far.
func (s *LoadRowSource) Sent() int64 {
	return s.sent
}

var _ pgx.CopyFromSource = (*LoadRowSource)(nil)
