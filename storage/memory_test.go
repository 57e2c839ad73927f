package storage

import (
	"context"
	"testing"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA = "0b6f3c1e-5b2a-4d7e-9c1f-2a3b4c5d6e7f"
	userB = "8d9e0f1a-2b3c-4d5e-8f6a-7b8c9d0e1f2a"
)

func TestAccessPermits(t *testing.T) {
	assert.True(t, Elevated().IsElevated())
	assert.True(t, Elevated().Permits(userA))

	scoped := ScopedTo(userA, "tok")
	assert.False(t, scoped.IsElevated())
	assert.True(t, scoped.Permits(userA))
	assert.False(t, scoped.Permits(userB))
	assert.Equal(t, "tok", scoped.Token())
	assert.NotContains(t, scoped.String(), "tok")
}

func TestMemoryUserQuestSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	q := m.PutQuest(models.Quest{Name: "Q1", PointsAchievable: "10"})

	err := m.CreateUserQuest(ctx, ScopedTo(userB, ""), &models.UserQuest{UserID: userA, QuestID: q.ID})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = m.CreateUserQuest(ctx, ScopedTo(userA, ""), &models.UserQuest{UserID: userA, QuestID: "missing"})
	assert.ErrorIs(t, err, ErrForeignKey)

	uq := &models.UserQuest{UserID: userA, QuestID: q.ID, Step: "0"}
	require.NoError(t, m.CreateUserQuest(ctx, ScopedTo(userA, ""), uq))
	assert.NotEmpty(t, uq.ID)

	err = m.CreateUserQuest(ctx, ScopedTo(userA, ""), &models.UserQuest{UserID: userA, QuestID: q.ID})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = m.GetUserQuest(ctx, ScopedTo(userB, ""), uq.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	done, err := m.CompleteUserQuest(ctx, ScopedTo(userA, ""), uq.ID, at)
	require.NoError(t, err)
	assert.True(t, done.IsComplete)
	assert.Equal(t, at, *done.CompletedAt)

	_, err = m.CompleteUserQuest(ctx, ScopedTo(userA, ""), uq.ID, at)
	assert.ErrorIs(t, err, ErrNoRowsAffected)
}

func TestMemoryLeaderboardSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	start := time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC)
	weekly := models.Period{Type: models.PeriodWeekly, Start: &start}
	overall := models.Period{Type: models.PeriodOverall}

	require.NoError(t, m.IncrementPoints(ctx, userA, []models.Period{weekly, overall}, 5))
	require.NoError(t, m.IncrementPoints(ctx, userA, []models.Period{weekly}, 5))

	o, err := m.FindEntry(ctx, userA, overall)
	require.NoError(t, err)
	assert.Equal(t, int64(5), o.Points)

	e, err := m.FindEntry(ctx, userA, weekly)
	require.NoError(t, err)
	assert.Equal(t, int64(10), e.Points)

	err = m.CreateEntry(ctx, &models.LeaderboardEntry{UserID: userA, PeriodType: "overall"})
	assert.ErrorIs(t, err, ErrDuplicate, "overall rows with null start are still unique per user")

	assert.ErrorIs(t, m.UpdateEntryPoints(ctx, e.ID, 9, 20), ErrNoRowsAffected)
	require.NoError(t, m.UpdateEntryPoints(ctx, e.ID, 10, 20))

	points, err := m.PointsFor(ctx, []string{userA, userB}, weekly)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{userA: 20}, points)

	m.RPCDisabled = true
	assert.ErrorIs(t, m.IncrementPoints(ctx, userA, []models.Period{weekly}, 1), ErrRPCUnavailable)
}

func TestMemoryMembershipSemantics(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	lb := &models.PrivateLeaderboard{Name: "crew", OwnerUserID: userA, InviteCode: "ABCD2345", IsActive: true}
	owner := &models.PrivateLeaderboardMember{UserID: userA, Role: models.RoleOwner}
	require.NoError(t, m.CreateLeaderboardWithOwner(ctx, lb, owner))
	assert.Equal(t, lb.ID, owner.LeaderboardID)

	clash := &models.PrivateLeaderboard{Name: "other", OwnerUserID: userB, InviteCode: "ABCD2345"}
	assert.ErrorIs(t, m.CreateLeaderboardWithOwner(ctx, clash, &models.PrivateLeaderboardMember{UserID: userB}), ErrDuplicate)

	err := m.InsertMember(ctx, &models.PrivateLeaderboardMember{LeaderboardID: "missing", UserID: userB})
	assert.ErrorIs(t, err, ErrForeignKey)
	require.NoError(t, m.InsertMember(ctx, &models.PrivateLeaderboardMember{LeaderboardID: lb.ID, UserID: userB, Role: models.RoleMember}))
	err = m.InsertMember(ctx, &models.PrivateLeaderboardMember{LeaderboardID: lb.ID, UserID: userB})
	assert.ErrorIs(t, err, ErrDuplicate)

	mine, err := m.ListPrivateLeaderboardsForUser(ctx, userB)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, m.DeletePrivateLeaderboard(ctx, lb.ID))
	members, err := m.ListMembers(ctx, lb.ID)
	require.NoError(t, err)
	assert.Empty(t, members, "members cascade with their leaderboard")
}

func TestMemoryLocationSearch(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	for _, name := range []string{"Hospice Shop", "hospice shop annex", "Book Nook"} {
		require.NoError(t, m.CreateLocation(ctx, &models.Location{Name: name}))
	}

	found, err := m.SearchLocationsByName(ctx, "HOSPICE", 10)
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = m.SearchLocationsByName(ctx, "hospice", 1)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
