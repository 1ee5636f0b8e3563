package sql

import (
	"embed"
)

// Migrations holds the schema DDL, applied in filename order.
//
//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed queries/register_run.sql
var RegisterRun string

//go:embed queries/update_run_status.sql
var UpdateRunStatus string

//go:embed queries/delete_run_results.sql
var DeleteRunResults string

//go:embed queries/lookup_complete_run.sql
var LookupCompleteRun string

//go:embed queries/run_prevalence.sql
var RunPrevalence string
