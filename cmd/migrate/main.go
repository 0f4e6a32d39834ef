package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"edu-crm/internal/config"
	"edu-crm/internal/models"
)

// Development helper. Drops and recreates the schema from the bun models
// and optionally loads sample data. Production schema changes go through
// the SQL migrations instead.
func main() {
	seed := flag.Bool("seed", false, "load sample data after creating tables")
	drop := flag.Bool("drop", false, "drop existing tables first")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	sqldb, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.PingContext(ctx); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())

	if *drop {
		log.Println("Dropping tables...")
		if err := dropTables(ctx, db); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	log.Println("Creating tables...")
	if err := createTables(ctx, db); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if *seed {
		log.Println("Seeding sample data...")
		if err := seedData(ctx, db); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
	}

	log.Println("Done.")
}

func dropTables(ctx context.Context, db *bun.DB) error {
	// Reverse dependency order
	tables := []interface{}{
		(*models.EventRegistration)(nil),
		(*models.Event)(nil),
		(*models.AdmissionDecision)(nil),
		(*models.Application)(nil),
		(*models.Student)(nil),
		(*models.Lead)(nil),
		(*models.University)(nil),
		(*models.User)(nil),
		(*models.Branch)(nil),
		(*models.Region)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func createTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Region)(nil),
		(*models.Branch)(nil),
		(*models.User)(nil),
		(*models.University)(nil),
		(*models.Lead)(nil),
		(*models.Student)(nil),
		(*models.Application)(nil),
		(*models.AdmissionDecision)(nil),
		(*models.Event)(nil),
		(*models.EventRegistration)(nil),
	}
	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}

func seedData(ctx context.Context, db *bun.DB) error {
	regionID := uuid.NewString()
	branchID := uuid.NewString()

	region := models.Region{ID: regionID, Name: "South Asia", Country: "LK", CreatedAt: time.Now()}
	if _, err := db.NewInsert().Model(&region).Exec(ctx); err != nil {
		return err
	}

	branch := models.Branch{ID: branchID, RegionID: regionID, Name: "Colombo", Address: "42 Galle Road", CreatedAt: time.Now()}
	if _, err := db.NewInsert().Model(&branch).Exec(ctx); err != nil {
		return err
	}

	users := []models.User{
		{ID: uuid.NewString(), Email: "admin@educrm.local", FullName: "System Admin", Role: models.RoleSuperAdmin, Active: true, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Email: "manager@educrm.local", FullName: "Regional Manager", Role: models.RoleRegionalManager, RegionID: regionID, Active: true, CreatedAt: time.Now()},
		{ID: uuid.NewString(), Email: "counselor@educrm.local", FullName: "Branch Counselor", Role: models.RoleCounselor, RegionID: regionID, BranchID: branchID, Active: true, CreatedAt: time.Now()},
	}
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		return err
	}

	universities := []models.University{
		{ID: uuid.NewString(), Name: "University of Melbourne", Country: "AU", City: "Melbourne", CreatedAt: time.Now()},
		{ID: uuid.NewString(), Name: "University of Toronto", Country: "CA", City: "Toronto", CreatedAt: time.Now()},
	}
	if _, err := db.NewInsert().Model(&universities).Exec(ctx); err != nil {
		return err
	}

	return nil
}
