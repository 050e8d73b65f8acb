package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 URL prefix: %s...", dbURL[:min(30, len(dbURL))])
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ sqlx.Connect() failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Ping() failed: %v", err)
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

// Migrate creates the schema. Every statement is idempotent so it runs on
// each boot.
func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create users table
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			name TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user' CHECK(role IN ('user', 'admin')),
			points INT NOT NULL DEFAULT 0,
			total_items_recycled INT NOT NULL DEFAULT 0,
			total_co2_saved DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create bins table
		`CREATE TABLE IF NOT EXISTS bins (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			address TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			qr_code TEXT NOT NULL UNIQUE,
			accepted_items TEXT[] NOT NULL DEFAULT '{}',
			fill_level INT NOT NULL DEFAULT 0 CHECK(fill_level BETWEEN 0 AND 100),
			status TEXT NOT NULL DEFAULT 'operational' CHECK(status IN ('operational', 'full', 'maintenance')),
			last_collection BIGINT,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
		)`,

		// Create drop_events table
		`CREATE TABLE IF NOT EXISTS drop_events (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bin_id TEXT NOT NULL,
			latitude DOUBLE PRECISION NOT NULL,
			longitude DOUBLE PRECISION NOT NULL,
			accuracy DOUBLE PRECISION,
			distance_meters DOUBLE PRECISION NOT NULL,
			verified BOOLEAN NOT NULL DEFAULT TRUE,
			verification_method TEXT NOT NULL DEFAULT 'geo_proximity' CHECK(verification_method IN ('geo_proximity')),
			time_spent_in_radius INT NOT NULL CHECK(time_spent_in_radius >= 0),
			day_bucket TEXT NOT NULL,
			points_earned INT NOT NULL DEFAULT 0,
			co2_saved DOUBLE PRECISION NOT NULL DEFAULT 0,
			rewards_applied BOOLEAN NOT NULL DEFAULT FALSE,
			started_at BIGINT NOT NULL,
			confirmed_at BIGINT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE CASCADE
		)`,

		// One drop per user, bin and day
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_drop_events_user_bin_day ON drop_events(user_id, bin_id, day_bucket)`,
		`CREATE INDEX IF NOT EXISTS idx_drop_events_user_id ON drop_events(user_id, confirmed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_drop_events_confirmed_at ON drop_events(confirmed_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_drop_events_pending_rewards ON drop_events(created_at) WHERE rewards_applied = FALSE`,

		// Create transactions table, the points ledger shared with scanned recycling
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			bin_id TEXT,
			drop_event_id TEXT UNIQUE,
			type TEXT NOT NULL CHECK(type IN ('recycle', 'redeem')),
			item_name TEXT NOT NULL,
			item_type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			value DOUBLE PRECISION NOT NULL DEFAULT 0,
			points_earned INT NOT NULL DEFAULT 0,
			verification_method TEXT,
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'approved', 'rejected')),
			verified_at BIGINT,
			verification_latitude DOUBLE PRECISION,
			verification_longitude DOUBLE PRECISION,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE SET NULL,
			FOREIGN KEY (drop_event_id) REFERENCES drop_events(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at DESC)`,

		// Create user_activities table
		`CREATE TABLE IF NOT EXISTS user_activities (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			action TEXT NOT NULL CHECK(action IN ('E_WASTE_DROPPED', 'BIN_NAVIGATED')),
			points INT NOT NULL DEFAULT 0,
			bin_id TEXT,
			bin_name TEXT,
			verification_method TEXT,
			co2_saved DOUBLE PRECISION,
			date TEXT NOT NULL,
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
			FOREIGN KEY (bin_id) REFERENCES bins(id) ON DELETE SET NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activities_user_date ON user_activities(user_id, date DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_user_activities_action_date ON user_activities(action, date DESC)`,

		// Create FCM tokens table
		`CREATE TABLE IF NOT EXISTS fcm_tokens (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			device_type TEXT NOT NULL CHECK(device_type IN ('ios', 'android', 'web')),
			created_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			updated_at BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
			FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_fcm_tokens_user_id ON fcm_tokens(user_id)`,

		`CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bins_status ON bins(status)`,
	}

	for _, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	log.Println("✓ Database migrations completed")
	return nil
}
