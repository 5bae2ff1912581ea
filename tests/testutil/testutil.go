package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/aroussel/garage-api/models"
)

// OpenTestDB opens an in-memory SQLite database migrated with the full
// schema. Each call returns a fresh, isolated database.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// A pooled second connection to :memory: would see a separate empty
	// database, so pin everything to one connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to access underlying connection: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Vehicle{},
		&models.FaultGroup{},
		&models.Fault{},
		&models.SystemSettings{},
		&models.Case{},
		&models.StatusLog{},
		&models.Quote{},
		&models.QuoteLine{},
		&models.SlotTemplate{},
		&models.SlotException{},
		&models.AppointmentSlot{},
		&models.Appointment{},
		&models.Invoice{},
		&models.InvoiceLine{},
		&models.Payment{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CreateTestUser inserts a user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, auth0ID, name, email, role string) *models.User {
	t.Helper()

	user := models.User{
		Auth0ID: auth0ID,
		Name:    name,
		Email:   email,
		Role:    role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return &user
}

// CreateTestVehicle inserts a vehicle owned by the given user
func CreateTestVehicle(t *testing.T, db *gorm.DB, ownerID uint) *models.Vehicle {
	t.Helper()

	plate := "AB-123-CD"
	vehicle := models.Vehicle{
		OwnerID:     ownerID,
		Brand:       "Renault",
		Model:       "Clio",
		Year:        2018,
		PlateNumber: &plate,
	}
	if err := db.Create(&vehicle).Error; err != nil {
		t.Fatalf("Failed to create test vehicle: %v", err)
	}
	return &vehicle
}

// CreateTestFault inserts a fault group with one priced fault
func CreateTestFault(t *testing.T, db *gorm.DB, name string, laborHours, partsCost float64) *models.Fault {
	t.Helper()

	group := models.FaultGroup{Name: "Group for " + name}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("Failed to create test fault group: %v", err)
	}

	fault := models.Fault{
		GroupID:    group.ID,
		Name:       name,
		LaborHours: laborHours,
		PartsCost:  partsCost,
		IsActive:   true,
	}
	if err := db.Create(&fault).Error; err != nil {
		t.Fatalf("Failed to create test fault: %v", err)
	}
	return &fault
}
