package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"vitalsense-data/internal/common/database"
	"vitalsense-data/internal/config"
)

// 按语句执行 scripts/schema.sql（或命令行指定的 SQL 文件）
func main() {
	schemaFile := "scripts/schema.sql"
	if len(os.Args) > 1 {
		schemaFile = os.Args[1]
	}

	sqlContent, err := os.ReadFile(schemaFile)
	if err != nil {
		log.Fatalf("Failed to read schema file: %v", err)
	}

	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	statements := strings.Split(string(sqlContent), ";")
	executed := 0
	for i, stmt := range statements {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}

		if _, err := db.Exec(stmt); err != nil {
			preview := stmt
			if len(preview) > 100 {
				preview = preview[:100]
			}
			log.Fatalf("Failed to execute statement %d: %v\nStatement: %s", i+1, err, preview)
		}
		executed++
	}

	fmt.Printf("Schema applied: %d statements executed\n", executed)
}
