package services

import (
	"testing"

	"penpal-exchange-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
// The pool is pinned to one connection so every query sees the same
// in-memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.PenpalProfile{},
		&models.PenpalApplication{},
		&models.PenpalMatch{},
		&models.ParentAddress{},
		&models.LetterMission{},
		&models.LetterProof{},
		&models.UserPenpalReputation{},
		&models.PenaltyRecord{},
		&models.PenpalCancelRequest{},
		&models.Notification{},
	))
	return db
}

// seedMatch inserts a match between u1 and u2 in the given status.
func seedMatch(t *testing.T, db *gorm.DB, status models.MatchStatus) *models.PenpalMatch {
	t.Helper()

	match := &models.PenpalMatch{
		ID:        uuid.NewString(),
		User1ID:   "u1",
		User1Name: "Mina",
		User2ID:   "u2",
		User2Name: "Jun",
		Status:    status,
	}
	if status != models.MatchStatusAddressPending {
		match.User1AddressSubmitted = true
		match.User2AddressSubmitted = true
	}
	require.NoError(t, db.Create(match).Error)
	return match
}

// seedMission inserts the zero-progress mission for a match.
func seedMission(t *testing.T, db *gorm.DB, match *models.PenpalMatch) *models.LetterMission {
	t.Helper()

	mission := models.NewLetterMission(uuid.NewString(), match)
	require.NoError(t, db.Create(mission).Error)
	return mission
}

// seedProfile inserts a recruiting profile owned by userID.
func seedProfile(t *testing.T, db *gorm.DB, userID, childID, childName string) *models.PenpalProfile {
	t.Helper()

	profile := &models.PenpalProfile{
		ID:        uuid.NewString(),
		UserID:    userID,
		ChildID:   childID,
		ChildName: childName,
		Age:       9,
		Status:    models.ProfileStatusRecruiting,
	}
	require.NoError(t, db.Create(profile).Error)
	return profile
}

func testAddress() AddressInput {
	return AddressInput{
		ParentName: "Kim Parent",
		Phone:      "010-0000-0000",
		Postcode:   "04524",
		Address1:   "100 Sejong-daero, Jung-gu, Seoul",
		Consent:    true,
	}
}
