package migrate

import (
	"errors"
	"testing"

	"caseport/internal/db"
)

func TestMigrate(t *testing.T) {
	conn, err := db.Open(db.Config{Memory: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer conn.Close()

	if v, err := Version(conn); err != nil || v != 0 {
		t.Fatalf("fresh journal version = %d, %v", v, err)
	}
	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// a second pass is a no-op
	if err := Migrate(conn); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
	all, err := Migrations()
	if err != nil || len(all) == 0 {
		t.Fatalf("migrations: %v", err)
	}
	latest := all[len(all)-1].Version
	if v, err := Version(conn); err != nil || v != latest {
		t.Fatalf("version = %d, %v; want %d", v, err, latest)
	}
	for _, table := range []string{"runs", "events"} {
		var n int
		if err := conn.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&n); err != nil || n != 1 {
			t.Fatalf("table %s missing (%v)", table, err)
		}
	}

	if _, err := conn.Exec(`INSERT INTO schema_migrations(version,name,applied_at) VALUES (?,?,?)`, latest+1, "future.sql", "2030-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	if err := Migrate(conn); !errors.Is(err, ErrNewerJournal) {
		t.Fatalf("expected ErrNewerJournal, got %v", err)
	}
}
