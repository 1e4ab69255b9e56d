package ingest_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gyeh/aihstats/internal/db"
	"github.com/gyeh/aihstats/internal/ingest"
	"github.com/gyeh/aihstats/internal/model"
	embedsql "github.com/gyeh/aihstats/internal/sql"
)

// ---------- helpers ----------

func strPtr(s string) *string       { return &s }
func int64Ptr(v int64) *int64       { return &v }
func int32Ptr(v int32) *int32       { return &v }
func float64Ptr(v float64) *float64 { return &v }

// registerLoad inserts an ingest.loads row with the given status.
func registerLoad(t *testing.T, pool *pgxpool.Pool, sha, status string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	id := uuid.New()
	if _, err := pool.Exec(ctx, embedsql.RegisterLoad, id, "test.parquet", sha, int64(1000)); err != nil {
		t.Fatalf("register load %s: %v", sha, err)
	}
	if err := ingest.UpdateStatus(ctx, pool, id, status); err != nil {
		t.Fatalf("set status: %v", err)
	}
	return id
}

// copyRows COPYs load rows for test setup, one COPY per load.
func copyRows(t *testing.T, pool *pgxpool.Pool, rows ...*model.LoadRow) {
	t.Helper()
	var order []uuid.UUID
	byLoad := make(map[uuid.UUID][]*model.LoadRow)
	for _, r := range rows {
		if _, ok := byLoad[r.LoadID]; !ok {
			order = append(order, r.LoadID)
		}
		byLoad[r.LoadID] = append(byLoad[r.LoadID], r)
	}
	for _, id := range order {
		group := byLoad[id]
		ch := make(chan *model.LoadRow, len(group))
		for _, r := range group {
			ch <- r
		}
		close(ch)
		n, err := pool.CopyFrom(context.Background(), ingest.AIHTable, model.LoadColumns(), db.NewLoadRowSource(context.Background(), id, ch))
		if err != nil {
			t.Fatalf("copy rows: %v", err)
		}
		if n != int64(len(group)) {
			t.Fatalf("copied %d rows, want %d", n, len(group))
		}
	}
}

func makeLoadRow(loadID uuid.UUID, rowNum int64, opts ...func(*model.LoadRow)) *model.LoadRow {
	r := &model.LoadRow{
		LoadID:           loadID,
		SourceRowNumber:  rowNum,
		State:            "DF",
		Municipality:     "Brasília",
		MunicipalityCode: "530010",
		Year:             2022,
		Month:            1,
		Value:            10,
		Quantity:         1,
		Categories:       map[string]*float64{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func loadStatus(t *testing.T, pool *pgxpool.Pool, id uuid.UUID) string {
	t.Helper()
	var status string
	if err := pool.QueryRow(context.Background(), "SELECT status FROM ingest.loads WHERE load_id = $1", id).Scan(&status); err != nil {
		t.Fatalf("load status: %v", err)
	}
	return status
}

// ---------- tests ----------

func TestMigrations_Idempotent(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := db.ApplyMigrations(ctx, pool, setupLog()); err != nil {
			t.Fatalf("re-apply migrations (pass %d): %v", i+1, err)
		}
	}

	var exists bool
	err := pool.QueryRow(ctx, "SELECT to_regclass('public.sus_ride_df_aih') IS NOT NULL").Scan(&exists)
	if err != nil || !exists {
		t.Fatalf("sus_ride_df_aih missing: exists=%v err=%v", exists, err)
	}
}

func TestMigrations_MonthCheck(t *testing.T) {
	pool := setupDB(t)
	_, err := pool.Exec(context.Background(), `
		INSERT INTO public.sus_ride_df_aih (uf_nome, nome_municipio, cod_municipio, ano_aih, mes_aih, vl_total, qtd_total)
		VALUES ('DF', 'Brasília', '530010', 2022, 13, 1, 1)`)
	if err == nil {
		t.Fatal("expected check violation for mes_aih = 13")
	}
}

func TestRegisterLoad_Conflict(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	first := registerLoad(t, pool, "abc", ingest.StatusPending)

	var id uuid.UUID
	err := pool.QueryRow(ctx, embedsql.RegisterLoad, uuid.New(), "again.parquet", "abc", int64(1)).Scan(&id)
	if err != pgx.ErrNoRows {
		t.Fatalf("expected ErrNoRows on duplicate sha, got %v", err)
	}

	var status string
	var found uuid.UUID
	if err := pool.QueryRow(ctx, embedsql.LookupLoad, "abc").Scan(&found, &status); err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found != first || status != ingest.StatusPending {
		t.Errorf("lookup = (%s, %s), want (%s, pending)", found, status, first)
	}
}

func TestUpdateStatus(t *testing.T) {
	pool := setupDB(t)
	id := registerLoad(t, pool, "sha-status", ingest.StatusPending)

	for _, s := range []string{ingest.StatusStaging, ingest.StatusFailed, ingest.StatusLoaded} {
		if err := ingest.UpdateStatus(context.Background(), pool, id, s); err != nil {
			t.Fatalf("UpdateStatus(%s): %v", s, err)
		}
		if got := loadStatus(t, pool, id); got != s {
			t.Errorf("status = %s, want %s", got, s)
		}
	}
}

func TestCopyRows_NullableColumns(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	id := registerLoad(t, pool, "sha-copy", ingest.StatusStaging)

	copyRows(t, pool,
		makeLoadRow(id, 1, func(r *model.LoadRow) {
			r.Region = strPtr("Centro-Oeste")
			r.Categories["vl_04"] = float64Ptr(7.5)
			r.Latitude, r.Longitude = float64Ptr(-15.79), float64Ptr(-47.88)
			r.Population = int64Ptr(2817068)
		}),
		makeLoadRow(id, 2),
	)

	var withGeo, withCategory int
	if err := pool.QueryRow(ctx, "SELECT count(latitude), count(vl_04) FROM public.sus_ride_df_aih").Scan(&withGeo, &withCategory); err != nil {
		t.Fatalf("query: %v", err)
	}
	if withGeo != 1 || withCategory != 1 {
		t.Errorf("expected exactly one non-null latitude and vl_04, got %d and %d", withGeo, withCategory)
	}
}

func TestCleanup(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	keep := registerLoad(t, pool, "sha-keep", ingest.StatusLoaded)
	drop := registerLoad(t, pool, "sha-drop", ingest.StatusFailed)

	copyRows(t, pool, makeLoadRow(keep, 1), makeLoadRow(drop, 1), makeLoadRow(drop, 2))

	if err := ingest.Cleanup(ctx, pool, setupLog(), drop); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n := countRows(t, pool, "carga_id = $1", drop); n != 0 {
		t.Errorf("expected dropped load to be empty, got %d rows", n)
	}
	if n := countRows(t, pool, "carga_id = $1", keep); n != 1 {
		t.Errorf("expected kept load intact, got %d rows", n)
	}
}

func TestFinalize_WithoutReplace(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	older := registerLoad(t, pool, "sha-old", ingest.StatusLoaded)
	current := registerLoad(t, pool, "sha-new", ingest.StatusStaging)
	copyRows(t, pool, makeLoadRow(older, 1), makeLoadRow(current, 1))

	res, err := ingest.Finalize(ctx, pool, setupLog(), current, false,
		&ingest.StageResult{RowsRead: 2, RowsLoaded: 1, RowsRejected: 1})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.RowsReplaced != 0 {
		t.Errorf("expected no replaced rows, got %d", res.RowsReplaced)
	}
	if countRows(t, pool, "") != 2 {
		t.Error("older load rows should remain without replace")
	}
	if loadStatus(t, pool, current) != ingest.StatusLoaded || loadStatus(t, pool, older) != ingest.StatusLoaded {
		t.Error("both loads should be loaded")
	}

	var read, loaded, rejected int64
	if err := pool.QueryRow(ctx, "SELECT rows_read, rows_loaded, rows_rejected FROM ingest.loads WHERE load_id = $1", current).
		Scan(&read, &loaded, &rejected); err != nil {
		t.Fatalf("query counts: %v", err)
	}
	if read != 2 || loaded != 1 || rejected != 1 {
		t.Errorf("unexpected counts: %d/%d/%d", read, loaded, rejected)
	}
}

func TestFinalize_Replace(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	older := registerLoad(t, pool, "sha-old", ingest.StatusLoaded)
	failed := registerLoad(t, pool, "sha-failed", ingest.StatusFailed)
	current := registerLoad(t, pool, "sha-new", ingest.StatusStaging)
	copyRows(t, pool, makeLoadRow(older, 1), makeLoadRow(older, 2), makeLoadRow(current, 1))

	res, err := ingest.Finalize(ctx, pool, setupLog(), current, true, &ingest.StageResult{RowsRead: 1, RowsLoaded: 1})
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.RowsReplaced != 2 {
		t.Errorf("expected 2 replaced rows, got %d", res.RowsReplaced)
	}
	if n := countRows(t, pool, ""); n != 1 {
		t.Errorf("expected only the current load, got %d rows", n)
	}
	if got := loadStatus(t, pool, older); got != ingest.StatusReplaced {
		t.Errorf("older status = %s, want replaced", got)
	}
	// Only loaded loads are superseded.
	if got := loadStatus(t, pool, failed); got != ingest.StatusFailed {
		t.Errorf("failed status = %s, want failed", got)
	}
}
