package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/folivafy/folivafy/internal/infrastructure/database"
	"github.com/folivafy/folivafy/internal/infrastructure/database/models"
)

// TestDB wraps the database for testing
type TestDB struct {
	*database.DB
}

// NewTestDB creates a new test database connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	// Use DATABASE_URL_TEST if available (for Docker), otherwise SQLite
	databaseURL := os.Getenv("DATABASE_URL_TEST")
	if databaseURL == "" {
		// Use SQLite in-memory for testing
		databaseURL = "file::memory:?cache=shared"
	}

	db, err := database.New(databaseURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// Auto-migrate all models
	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &TestDB{DB: db}
}

// Cleanup closes the test database
func (db *TestDB) Cleanup(t *testing.T) {
	t.Helper()
	if err := db.Close(); err != nil {
		t.Errorf("Failed to close test database: %v", err)
	}
}

// CreateTestCollection creates a collection with a unique name
func (db *TestDB) CreateTestCollection(t *testing.T, oao bool) *models.Collection {
	t.Helper()

	suffix := uuid.New().String()[:8]
	collection := &models.Collection{
		ID:    uuid.New(),
		Name:  fmt.Sprintf("test-%s", suffix),
		Title: fmt.Sprintf("Test Collection %s", suffix),
		Oao:   oao,
	}

	if err := db.Create(collection).Error; err != nil {
		t.Fatalf("Failed to create test collection: %v", err)
	}

	return collection
}

// CreateTestDocument creates a document owned by owner
func (db *TestDB) CreateTestDocument(t *testing.T, collection *models.Collection, owner uuid.UUID, f models.JSONB) *models.Document {
	t.Helper()

	if f == nil {
		f = models.JSONB{"title": "Test Document"}
	}
	if _, ok := f["created"]; !ok {
		f["created"] = time.Now().UTC().Format(time.RFC3339)
	}
	document := &models.Document{
		ID:           uuid.New(),
		CollectionID: collection.ID,
		Owner:        owner,
		F:            f,
	}

	if err := db.Create(document).Error; err != nil {
		t.Fatalf("Failed to create test document: %v", err)
	}

	return document
}

// CreateTestGrant attaches a grant row to a document
func (db *TestDB) CreateTestGrant(t *testing.T, documentID uuid.UUID, realm string, subject uuid.UUID) *models.Grant {
	t.Helper()

	grant := &models.Grant{
		DocumentID: documentID,
		Realm:      realm,
		GrantID:    subject,
		View:       true,
	}

	if err := db.Create(grant).Error; err != nil {
		t.Fatalf("Failed to create test grant: %v", err)
	}

	return grant
}
