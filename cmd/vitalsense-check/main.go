package main

import (
	"database/sql"
	"fmt"
	"log"

	"vitalsense-data/internal/common/database"
	"vitalsense-data/internal/config"
)

// 数据库状态巡检：打印各表行数与最近的样本 / 事件批次
func main() {
	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	fmt.Println("================================================================================")
	fmt.Println("1. Table counts")
	fmt.Println("================================================================================")
	for _, table := range []string{"health_samples_raw", "health_samples_agg", "correlation_events", "status_checks"} {
		var count int64
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(&count); err != nil {
			fmt.Printf("%-24s ERROR: %v\n", table, err)
			continue
		}
		fmt.Printf("%-24s %d\n", table, count)
	}

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("2. Recent samples (health_samples_raw)")
	fmt.Println("================================================================================")
	rows, err := db.Query(`
		SELECT user_id, sample_type, timestamp, mg_dl, bpm, spm
		FROM health_samples_raw
		ORDER BY timestamp DESC
		LIMIT 20
	`)
	if err != nil {
		log.Fatalf("Failed to query samples: %v", err)
	}
	defer rows.Close()

	fmt.Printf("%-20s %-16s %-26s %-10s %-10s %-10s\n",
		"user_id", "sample_type", "timestamp", "mg_dl", "bpm", "spm")
	fmt.Println("--------------------------------------------------------------------------------")
	for rows.Next() {
		var userID, sampleType string
		var ts sql.NullTime
		var mgDl, bpm, spm sql.NullFloat64
		if err := rows.Scan(&userID, &sampleType, &ts, &mgDl, &bpm, &spm); err != nil {
			log.Printf("Failed to scan row: %v", err)
			continue
		}
		fmt.Printf("%-20s %-16s %-26s %-10s %-10s %-10s\n",
			userID, sampleType, formatTime(ts), formatFloat(mgDl), formatFloat(bpm), formatFloat(spm))
	}

	fmt.Println()
	fmt.Println("================================================================================")
	fmt.Println("3. Recent correlation batches")
	fmt.Println("================================================================================")
	batchRows, err := db.Query(`
		SELECT batch_id, user_id, created_at, activity_metric, jsonb_array_length(events) AS event_count
		FROM correlation_events
		ORDER BY created_at DESC
		LIMIT 10
	`)
	if err != nil {
		log.Fatalf("Failed to query correlation batches: %v", err)
	}
	defer batchRows.Close()

	fmt.Printf("%-38s %-20s %-26s %-18s %-6s\n",
		"batch_id", "user_id", "created_at", "activity_metric", "events")
	fmt.Println("--------------------------------------------------------------------------------")
	for batchRows.Next() {
		var batchID, userID, metric string
		var createdAt sql.NullTime
		var eventCount int
		if err := batchRows.Scan(&batchID, &userID, &createdAt, &metric, &eventCount); err != nil {
			log.Printf("Failed to scan row: %v", err)
			continue
		}
		fmt.Printf("%-38s %-20s %-26s %-18s %-6d\n",
			batchID, userID, formatTime(createdAt), metric, eventCount)
	}
}

func formatTime(t sql.NullTime) string {
	if !t.Valid {
		return "NULL"
	}
	return t.Time.UTC().Format("2006-01-02 15:04:05")
}

func formatFloat(f sql.NullFloat64) string {
	if !f.Valid {
		return "-"
	}
	return fmt.Sprintf("%.1f", f.Float64)
}
