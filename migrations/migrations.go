// Package migrations embeds the SQL schema files so the binary carries
// its own schema and applying it does not depend on the process
// working directory.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
