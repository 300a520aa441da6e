// Package migrations embeds the SQL schema owned by the concierge service.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
