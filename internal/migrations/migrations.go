// Package migrations embeds the SQL schema for each supported dialect.
package migrations

import (
	"embed"
	"io/fs"
	"sort"
)

//go:embed postgres/*.sql sqlite/*.sql
var Files embed.FS

const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

type Migration struct {
	ID  string
	SQL string
}

// List returns dialect's migrations in apply order.
func List(dialect string) ([]Migration, error) {
	sub, err := fs.Sub(Files, dialect)
	if err != nil {
		return nil, err
	}
	ents, err := fs.ReadDir(sub, ".")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range ents {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, n := range names {
		b, err := fs.ReadFile(sub, n)
		if err != nil {
			return nil, err
		}
		out = append(out, Migration{ID: n, SQL: string(b)})
	}
	return out, nil
}
