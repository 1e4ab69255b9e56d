package sql

import (
	"embed"
)

// Migrations holds the idempotent DDL applied by db.ApplyMigrations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_load.sql
var RegisterLoad string

//go:embed queries/lookup_load.sql
var LookupLoad string

//go:embed queries/update_load_status.sql
var UpdateLoadStatus string

//go:embed queries/complete_load.sql
var CompleteLoad string

//go:embed queries/delete_load_rows.sql
var DeleteLoadRows string

//go:embed queries/delete_older_loads.sql
var DeleteOlderLoads string

//go:embed queries/supersede_older_loads.sql
var SupersedeOlderLoads string

//go:embed queries/analyze_aih.sql
var AnalyzeAIH string

//go:embed queries/select_records.sql
var SelectRecords string
