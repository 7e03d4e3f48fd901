package sqlite

import (
	_ "embed"
)

// Встроенная DDL клиентской базы кэша.
//
//go:embed migrations/001_cache.sql
var initDDL string

func initialDDL() string { return initDDL }
