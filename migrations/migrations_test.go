package migrations

import (
	"io/fs"
	"strings"
	"testing"
)

func TestEmbeddedSchemaFiles(t *testing.T) {
	entries, err := fs.ReadDir(Files, ".")
	if err != nil {
		t.Fatalf("read embedded dir: %v", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	if len(sqlFiles) == 0 {
		t.Fatal("no embedded sql files")
	}

	content, err := fs.ReadFile(Files, "0001_init.sql")
	if err != nil {
		t.Fatalf("read 0001_init.sql: %v", err)
	}
	for _, table := range []string{"tickets", "panel_config", "button_defs", "controls"} {
		if !strings.Contains(string(content), table) {
			t.Errorf("0001_init.sql missing table %q", table)
		}
	}
	if !strings.Contains(string(content), "tickets_one_open_per_actor") {
		t.Error("0001_init.sql missing the one-open-ticket unique index")
	}
}
