package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

type seedBin struct {
	name      string
	address   string
	latitude  float64
	longitude float64
	status    string
	fillLevel int
	qrCode    string
	accepted  []string
}

var prayagrajBins = []seedBin{
	{"Sangam Ghat Point", "Sangam Road, Prayagraj, Uttar Pradesh", 25.4358, 81.8806, "operational", 45, "BIN_PRY_001", []string{"plastic", "glass", "metal"}},
	{"Civil Lines Hub", "MG Marg, Civil Lines, Prayagraj", 25.4534, 81.8335, "full", 95, "BIN_PRY_002", []string{"e-waste", "batteries"}},
	{"Allahabad University", "Senate House Campus, University Road", 25.4597, 81.8513, "operational", 20, "BIN_PRY_003", []string{"paper", "plastic"}},
	{"Prayagraj Junction", "Railway Station Rd, Leader Road", 25.4447, 81.8286, "maintenance", 0, "BIN_PRY_004", []string{"all"}},
	{"Anand Bhawan", "Tagore Town, Prayagraj", 25.4607, 81.8601, "operational", 60, "BIN_PRY_005", []string{"plastic", "organic"}},
	{"Katra Market E-Waste Center", "Katra Market, Chowk, Prayagraj", 25.4476, 81.8482, "operational", 55, "BIN_PRY_007", []string{"smartphones", "laptops", "tablets", "batteries", "chargers", "cables", "printers", "monitors"}},
	{"MG Marg Digital Hub", "MG Marg, Civil Lines, Prayagraj", 25.4521, 81.8348, "operational", 25, "BIN_PRY_008", []string{"smartphones", "tablets", "headphones", "speakers", "power-banks", "cables", "chargers"}},
	{"University Road Tech Collection", "Near Allahabad University, University Road, Prayagraj", 25.4612, 81.8528, "operational", 40, "BIN_PRY_009", []string{"laptops", "desktops", "monitors", "printers", "keyboards", "hard-drives", "routers"}},
	{"George Town Electronics Drop", "George Town, Prayagraj", 25.4398, 81.8412, "operational", 30, "BIN_PRY_010", []string{"smartphones", "tablets", "headphones", "cameras", "chargers", "batteries"}},
	{"Civil Lines Central E-Waste Hub", "Civil Lines, Prayagraj, Uttar Pradesh", 25.4528, 81.8356, "operational", 45, "BIN_PRY_011", []string{"all"}},
	{"Railway Station Comprehensive Collection", "Prayagraj Junction Complex, Leader Road", 25.4451, 81.8279, "operational", 52, "BIN_PRY_013", []string{"all"}},
	{"Jhunsi Universal Electronics Hub", "Jhunsi Area, Prayagraj", 25.5134, 81.8867, "operational", 36, "BIN_PRY_018", []string{"all"}},
	{"Naini Central E-Waste Facility", "Naini Industrial Area, Prayagraj", 25.3876, 81.7989, "operational", 47, "BIN_PRY_019", []string{"all"}},
	{"Phaphamau Comprehensive Drop Center", "Phaphamau, Prayagraj", 25.5567, 81.9234, "maintenance", 31, "BIN_PRY_020", []string{"all"}},
}

func SeedBins(db *sqlx.DB) error {
	// Check if bins already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	log.Printf("🌱 Seeding %d Prayagraj bins...", len(prayagrajBins))

	for _, bin := range prayagrajBins {
		_, err := db.Exec(`
			INSERT INTO bins (id, name, address, latitude, longitude, qr_code, accepted_items, fill_level, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (qr_code) DO NOTHING
		`, uuid.New().String(), bin.name, bin.address, bin.latitude, bin.longitude,
			bin.qrCode, pq.Array(bin.accepted), bin.fillLevel, bin.status)
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(prayagrajBins))
	return nil
}

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding test users...")

	userPassword, err := bcrypt.GenerateFromPassword([]byte("recycle123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":       uuid.New().String(),
			"email":    "user@ecodrop.app",
			"password": string(userPassword),
			"name":     "Eco User",
			"role":     "user",
		},
		{
			"id":       uuid.New().String(),
			"email":    "admin@ecodrop.app",
			"password": string(adminPassword),
			"name":     "EcoDrop Admin",
			"role":     "admin",
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO users (id, email, password, name, role)
			VALUES (:id, :email, :password, :name, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded test users")
	log.Println("  📧 User:  user@ecodrop.app / recycle123")
	log.Println("  📧 Admin: admin@ecodrop.app / admin123")
	return nil
}
