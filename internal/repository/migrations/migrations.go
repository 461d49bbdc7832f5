// Package migrations embeds the SQL schema applied by repository.New.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
