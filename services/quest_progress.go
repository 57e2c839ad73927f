package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"

	"github.com/google/uuid"
)

// QuestStore is the quest slice of the data store gateway.
type QuestStore interface {
	GetQuest(ctx context.Context, id string) (*models.Quest, error)
	GetHunt(ctx context.Context, id string) (*models.Hunt, error)
	CreateUserQuest(ctx context.Context, access storage.Access, uq *models.UserQuest) error
	GetUserQuest(ctx context.Context, access storage.Access, id string) (*models.UserQuest, error)
	ListUserQuests(ctx context.Context, access storage.Access, userID string) ([]models.UserQuest, error)
	CompleteUserQuest(ctx context.Context, access storage.Access, id string, at time.Time) (*models.UserQuest, error)
	UpsertUserHunt(ctx context.Context, access storage.Access, uh *models.UserHunt) error
}

// PointsAwarder is satisfied by *PointsLedger.
type PointsAwarder interface {
	AddPoints(ctx context.Context, userID string, points int64) (*AwardResult, error)
}

type CompletionResult struct {
	OK        bool              `json:"ok"`
	UserQuest *models.UserQuest `json:"userQuest"`
	Awarded   int64             `json:"awarded"`
	Method    string            `json:"method,omitempty"`
	// PointsError is set when the quest was completed but the award failed.
	PointsError string `json:"pointsError,omitempty"`
	// PartialPeriods names periods left credited by a failed award.
	PartialPeriods []models.PeriodType `json:"partialPeriods,omitempty"`
}

type QuestProgressService struct {
	store   QuestStore
	ledger  PointsAwarder
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewQuestProgressService(store QuestStore, ledger PointsAwarder, m *metrics.Metrics) *QuestProgressService {
	return &QuestProgressService{
		store:   store,
		ledger:  ledger,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func callerID(access storage.Access) (string, error) {
	if access.IsElevated() || access.UserID() == "" {
		return "", Unauthenticated("authentication required")
	}
	return access.UserID(), nil
}

// Enroll creates the caller's enrollment in questID, then enrolls them in the
// quest's hunt on a best-effort basis.
func (s *QuestProgressService) Enroll(ctx context.Context, access storage.Access, questID string) (*models.UserQuest, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}
	questID = strings.TrimSpace(questID)
	if questID == "" {
		return nil, InvalidInput("questId is required")
	}
	if _, err := uuid.Parse(questID); err != nil {
		return nil, InvalidInput("questId must be a valid id")
	}

	quest, err := s.store.GetQuest(ctx, questID)
	if err != nil {
		return nil, storeError(err, "quest")
	}

	uq := &models.UserQuest{
		ID:      uuid.NewString(),
		UserID:  userID,
		QuestID: quest.ID,
		Step:    "0",
	}
	if err := s.store.CreateUserQuest(ctx, access, uq); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, Conflict("already enrolled in this quest")
		}
		return nil, storeError(err, "user quest")
	}
	slog.Info("[QUEST] enrolled", "user_id", userID, "quest_id", quest.ID, "user_quest_id", uq.ID)

	if quest.HuntID != nil && *quest.HuntID != "" {
		if err := s.enrollInHunt(ctx, access, userID, *quest.HuntID); err != nil {
			s.metrics.HuntEnrollFailed()
			slog.Warn("[QUEST] hunt enrollment failed", "user_id", userID, "hunt_id", *quest.HuntID, "error", err)
		}
	}
	return uq, nil
}

func (s *QuestProgressService) enrollInHunt(ctx context.Context, access storage.Access, userID, huntID string) error {
	hunt, err := s.store.GetHunt(ctx, huntID)
	if err != nil {
		return err
	}
	return s.store.UpsertUserHunt(ctx, access, &models.UserHunt{
		ID:        uuid.NewString(),
		UserID:    userID,
		HuntID:    hunt.ID,
		IsActive:  false,
		TimeLimit: hunt.TimeLimit,
	})
}

// ListEnrollments returns the caller's enrollments with quest detail, newest first.
func (s *QuestProgressService) ListEnrollments(ctx context.Context, access storage.Access) ([]models.UserQuest, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListUserQuests(ctx, access, userID)
	if err != nil {
		return nil, storeError(err, "user quests")
	}
	if rows == nil {
		rows = []models.UserQuest{}
	}
	return rows, nil
}

// Complete marks an enrollment complete at most once and then awards the quest's points.
func (s *QuestProgressService) Complete(ctx context.Context, access storage.Access, userQuestID string) (*CompletionResult, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(strings.TrimSpace(userQuestID)); err != nil {
		s.metrics.QuestCompletion("invalid")
		return nil, InvalidInput("invalid user quest id")
	}
	userQuestID = strings.TrimSpace(userQuestID)

	uq, err := s.store.GetUserQuest(ctx, access, userQuestID)
	if err != nil {
		s.metrics.QuestCompletion("not_found")
		return nil, storeError(err, "user quest")
	}
	if uq.UserID != userID {
		s.metrics.QuestCompletion("forbidden")
		return nil, Forbidden("user quest belongs to another user")
	}
	if uq.IsComplete {
		s.metrics.QuestCompletion("conflict")
		return nil, Conflict("quest already completed")
	}

	quest, err := s.store.GetQuest(ctx, uq.QuestID)
	if err != nil {
		s.metrics.QuestCompletion("not_found")
		return nil, storeError(err, "quest")
	}

	updated, err := s.store.CompleteUserQuest(ctx, access, uq.ID, s.now())
	if errors.Is(err, storage.ErrNoRowsAffected) {
		s.metrics.QuestCompletion("conflict")
		return nil, Conflict("nothing to update")
	}
	if err != nil {
		return nil, storeError(err, "user quest")
	}
	s.metrics.QuestCompletion("completed")

	result := &CompletionResult{OK: true, UserQuest: updated}
	points := quest.AwardablePoints()
	award, err := s.ledger.AddPoints(ctx, userID, points)
	if err != nil {
		slog.Error("[QUEST] completed but points not awarded",
			"user_id", userID, "user_quest_id", uq.ID, "points", points, "error", err)
		result.PointsError = err.Error()
		if award != nil {
			result.PartialPeriods = award.Periods
		}
		return result, nil
	}
	result.Awarded = points
	result.Method = award.Method
	slog.Info("[QUEST] completed", "user_id", userID, "user_quest_id", uq.ID, "awarded", points)
	return result, nil
}
