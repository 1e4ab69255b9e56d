package parquetread

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/gyeh/aihstats/internal/model"
)

// Reader wraps a parquet GenericReader for streaming AIHParquetRow records.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[model.AIHParquetRow]
}

// Open opens a Parquet file and returns a streaming Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}

	r := parquet.NewGenericReader[model.AIHParquetRow](pf)
	return &Reader{file: f, reader: r}, nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Read reads up to len(rows) records into the provided slice.
// Returns the number of rows read and io.EOF when done.
func (r *Reader) Read(rows []model.AIHParquetRow) (int, error) {
	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("read parquet rows: %w", err)
	}
	return n, err
}

// Each streams every row through fn in batches of batchSize, numbering rows
// from 1. It stops at the first error fn returns.
func (r *Reader) Each(batchSize int, fn func(rowNum int64, row *model.AIHParquetRow) error) error {
	if batchSize <= 0 {
		batchSize = 1000
	}
	buf := make([]model.AIHParquetRow, batchSize)
	var rowNum int64
	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			rowNum++
			if ferr := fn(rowNum, &buf[i]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		clear(buf[:n])
	}
}

// Schema returns the file's Parquet schema for validation.
func (r *Reader) Schema() *parquet.Schema {
	return r.reader.Schema()
}

// Close releases all resources.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}
