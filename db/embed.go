// Package db holds the schema migrations, applied in filename order.
package db

import "embed"

//go:embed *.sql
var Migrations embed.FS
