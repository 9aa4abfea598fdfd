package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScan_OrdersByNumericVersion(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"db/010_add_index.sql":    {Data: []byte("CREATE INDEX idx ON t (a);")},
		"db/002_create_table.sql": {Data: []byte("-- table\nCREATE TABLE t (a TEXT);")},
		"db/README.md":            {Data: []byte("ignored")},
	}

	migrations, err := Scan(files, "db")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(migrations))
	}
	if migrations[0].Version != "002" || migrations[1].Version != "010" {
		t.Fatalf("unexpected order: %s, %s", migrations[0].Version, migrations[1].Version)
	}
	if migrations[0].Description != "create table" {
		t.Fatalf("unexpected description %q", migrations[0].Description)
	}
	if migrations[0].Checksum == "" || migrations[0].Checksum == migrations[1].Checksum {
		t.Fatalf("expected distinct checksums")
	}
}

func TestScan_RejectsInvalidFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		files   fstest.MapFS
		wantErr error
	}{
		{
			name:    "bad name",
			files:   fstest.MapFS{"db/create.sql": {Data: []byte("CREATE TABLE t (a TEXT);")}},
			wantErr: ErrInvalidMigrationFile,
		},
		{
			name:    "comments only",
			files:   fstest.MapFS{"db/001_empty.sql": {Data: []byte("-- nothing here\n")}},
			wantErr: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"db/001_a.sql":  {Data: []byte("CREATE TABLE a (x TEXT);")},
				"db/0001_b.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
			},
			wantErr: ErrDuplicateVersion,
		},
		{
			name:    "version overflows int",
			files:   fstest.MapFS{"db/99999999999999999999999_big.sql": {Data: []byte("CREATE TABLE t (a TEXT);")}},
			wantErr: ErrInvalidMigrationFile,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Scan(tt.files, "db")
			if err == nil {
				t.Fatalf("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestScan_NormalizesVersionPadding(t *testing.T) {
	t.Parallel()

	files := fstest.MapFS{
		"db/1_first.sql":     {Data: []byte("CREATE TABLE a (x TEXT);")},
		"db/0010_second.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
		"db/002_third.sql":   {Data: []byte("CREATE TABLE c (x TEXT);")},
	}

	migrations, err := Scan(files, "db")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	want := []string{"001", "002", "010"}
	if len(migrations) != len(want) {
		t.Fatalf("expected %d migrations, got %d", len(want), len(migrations))
	}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Fatalf("migration %d: expected version %s, got %s", i, v, migrations[i].Version)
		}
	}
}

func TestEmbeddedMigrationsParse(t *testing.T) {
	t.Parallel()

	for _, dialect := range []Dialect{SQLite, Postgres} {
		migrations, err := Scan(FS, dialect.Dir)
		if err != nil {
			t.Fatalf("%s: Scan failed: %v", dialect.Name, err)
		}
		if len(migrations) == 0 {
			t.Fatalf("%s: expected embedded migrations", dialect.Name)
		}
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	got := splitStatements("-- header\nCREATE TABLE a (x TEXT);\n\n-- second\nCREATE INDEX i ON a (x);\n")
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
	if got[0] != "CREATE TABLE a (x TEXT)" {
		t.Fatalf("unexpected first statement %q", got[0])
	}
}
