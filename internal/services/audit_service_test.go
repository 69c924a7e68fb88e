package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dualledger/internal/models"
	"dualledger/internal/money"
	"dualledger/internal/testutil"
)

func TestAuditService_Log(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	userID := testutil.NewUserID()

	svc.Log(userID, "ROLLOVER", "budget", "", "10.0.0.1", map[string]any{
		"month":   3,
		"carried": money.MustParse("70"),
	})
	svc.Log(userID, "DELETE_TAG", "tag", "tag-1", "10.0.0.1", nil)

	var entries []models.AuditLog
	require.NoError(t, db.Where("user_id = ?", userID).Order("action DESC").Find(&entries).Error)
	require.Len(t, entries, 2)

	assert.Equal(t, "ROLLOVER", entries[0].Action)
	assert.JSONEq(t, `{"month":3,"carried":"70.0000"}`, entries[0].Changes)
	assert.Equal(t, "10.0.0.1", entries[0].IPAddress)
	assert.Empty(t, entries[1].Changes)
}

func TestAuditService_UnserializableChanges(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewAuditService(db)
	userID := testutil.NewUserID()

	svc.Log(userID, "UPDATE_BUDGET", "budget", "b1", "", map[string]any{"bad": make(chan int)})

	var entry models.AuditLog
	require.NoError(t, db.Where("user_id = ?", userID).First(&entry).Error)
	assert.Equal(t, "{}", entry.Changes)
}
