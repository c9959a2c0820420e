package main

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/anjaninandan001/algo-tinker/pkg/db"

	log "github.com/sirupsen/logrus"
)

// verify_schema checks that a workbench database has the tables and
// migrated columns the server expects.
func main() {
	dbPath := db.DefaultPath
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	fmt.Printf("Verifying database at: %s\n", dbPath)

	if _, err := os.Stat(dbPath); err != nil {
		log.Fatalf("Database not found: %v", err)
	}
	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer database.Close()

	checks := []struct {
		table  string
		column string
	}{
		{"users", "username"},
		{"saved_strategies", "payload"},
		{"saved_strategies", "shared"},
		{"paper_trades", "price"},
	}
	missing := 0
	for i, c := range checks {
		fmt.Printf("\n%d. Verifying %s.%s...\n", i+1, c.table, c.column)
		var schema string
		err := database.DB.QueryRow("SELECT sql FROM sqlite_master WHERE type='table' AND name=?", c.table).Scan(&schema)
		if err == sql.ErrNoRows {
			fmt.Printf("❌ %s table MISSING\n", c.table)
			missing++
			continue
		}
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		if strings.Contains(schema, c.column) {
			fmt.Printf("✓ %s column exists\n", c.column)
		} else {
			fmt.Printf("❌ %s column MISSING\n", c.column)
			missing++
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
}
