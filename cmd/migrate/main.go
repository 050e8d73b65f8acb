package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"ecodrop-backend/internal/database"
)

func main() {
	seed := flag.Bool("seed", true, "load the Prayagraj bins and the demo users")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	if *seed {
		if err := database.SeedUsers(db); err != nil {
			log.Fatalf("User seeding failed: %v", err)
		}
		if err := database.SeedBins(db); err != nil {
			log.Fatalf("Bin seeding failed: %v", err)
		}
	}

	var result struct {
		TotalBins       int `db:"total_bins"`
		OperationalBins int `db:"operational_bins"`
		FullBins        int `db:"full_bins"`
		MaintenanceBins int `db:"maintenance_bins"`
		TotalDrops      int `db:"total_drops"`
		PendingRewards  int `db:"pending_rewards"`
	}

	query := `
		SELECT
			COUNT(*) AS total_bins,
			COUNT(CASE WHEN status = 'operational' THEN 1 END) AS operational_bins,
			COUNT(CASE WHEN status = 'full' THEN 1 END) AS full_bins,
			COUNT(CASE WHEN status = 'maintenance' THEN 1 END) AS maintenance_bins,
			(SELECT COUNT(*) FROM drop_events) AS total_drops,
			(SELECT COUNT(*) FROM drop_events WHERE rewards_applied = FALSE) AS pending_rewards
		FROM bins
	`

	if err := db.Get(&result, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("MIGRATION SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total bins:              %d\n", result.TotalBins)
	fmt.Printf("Operational bins:        %d\n", result.OperationalBins)
	fmt.Printf("Full bins:               %d\n", result.FullBins)
	fmt.Printf("Maintenance bins:        %d\n", result.MaintenanceBins)
	fmt.Printf("Drop events:             %d\n", result.TotalDrops)
	fmt.Printf("Pending rewards:         %d\n", result.PendingRewards)
	fmt.Println("============================================================")
}
