package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"

	"github.com/google/uuid"
)

const (
	inviteCodeLength   = 8
	inviteCodeAttempts = 5
)

// MembershipStore is the private leaderboard slice of the data store gateway.
type MembershipStore interface {
	CreateLeaderboardWithOwner(ctx context.Context, lb *models.PrivateLeaderboard, owner *models.PrivateLeaderboardMember) error
	GetPrivateLeaderboard(ctx context.Context, id string) (*models.PrivateLeaderboard, error)
	GetPrivateLeaderboardByInviteCode(ctx context.Context, code string) (*models.PrivateLeaderboard, error)
	ListPrivateLeaderboardsForUser(ctx context.Context, userID string) ([]models.PrivateLeaderboard, error)
	UpdatePrivateLeaderboard(ctx context.Context, id string, updates map[string]interface{}) (*models.PrivateLeaderboard, error)
	DeletePrivateLeaderboard(ctx context.Context, id string) error
	InsertMember(ctx context.Context, m *models.PrivateLeaderboardMember) error
	GetMember(ctx context.Context, leaderboardID, userID string) (*models.PrivateLeaderboardMember, error)
	ListMembers(ctx context.Context, leaderboardID string) ([]models.PrivateLeaderboardMember, error)
	DeleteMember(ctx context.Context, leaderboardID, userID string) error
}

// PointsReader reads period points for a set of users.
type PointsReader interface {
	PointsFor(ctx context.Context, userIDs []string, period models.Period) (map[string]int64, error)
}

// CoverUploader stores cover images and returns their public URL.
type CoverUploader interface {
	UploadCover(ctx context.Context, name string, file *multipart.FileHeader) (string, error)
}

type CreateLeaderboardInput struct {
	Name        string
	Description *string
	PeriodType  *string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

// UpdateLeaderboardInput carries only the fields being changed.
type UpdateLeaderboardInput struct {
	Name        *string
	Description *string
	IsActive    *bool
	PeriodType  *string
	PeriodStart *time.Time
	PeriodEnd   *time.Time
}

type MembershipService struct {
	store    MembershipStore
	points   PointsReader
	uploader CoverUploader
	now      func() time.Time
}

// NewMembershipService builds the service; uploader may be nil when covers are not configured.
func NewMembershipService(store MembershipStore, points PointsReader, uploader CoverUploader) *MembershipService {
	return &MembershipService{
		store:    store,
		points:   points,
		uploader: uploader,
		now:      time.Now,
	}
}

func normalizePeriodType(pt *string) (*string, error) {
	if pt == nil || strings.TrimSpace(*pt) == "" {
		return nil, nil
	}
	parsed, err := ParsePeriodType(*pt)
	if err != nil {
		return nil, err
	}
	s := string(parsed)
	return &s, nil
}

// Create makes a leaderboard owned by the caller, who joins it as owner.
func (s *MembershipService) Create(ctx context.Context, access storage.Access, in CreateLeaderboardInput, cover *multipart.FileHeader) (*models.PrivateLeaderboard, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, InvalidInput("name is required")
	}
	periodType, err := normalizePeriodType(in.PeriodType)
	if err != nil {
		return nil, err
	}
	if in.PeriodStart != nil && in.PeriodEnd != nil && in.PeriodEnd.Before(*in.PeriodStart) {
		return nil, InvalidInput("periodEnd must not be before periodStart")
	}

	var coverURL *string
	if cover != nil {
		if s.uploader == nil {
			return nil, InvalidInput("cover uploads are not configured")
		}
		url, err := s.uploader.UploadCover(ctx, name, cover)
		if err != nil {
			return nil, InvalidInput(err.Error())
		}
		coverURL = &url
	}

	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := utils.NewInviteCode(inviteCodeLength)
		if err != nil {
			return nil, err
		}
		lb := &models.PrivateLeaderboard{
			ID:          uuid.NewString(),
			OwnerUserID: userID,
			Name:        name,
			Description: in.Description,
			CoverImage:  coverURL,
			PeriodType:  periodType,
			PeriodStart: in.PeriodStart,
			PeriodEnd:   in.PeriodEnd,
			IsActive:    true,
			InviteCode:  code,
		}
		owner := &models.PrivateLeaderboardMember{
			ID:     uuid.NewString(),
			UserID: userID,
			Role:   models.RoleOwner,
		}
		err = s.store.CreateLeaderboardWithOwner(ctx, lb, owner)
		if errors.Is(err, storage.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, storeError(err, "private leaderboard")
		}
		slog.Info("[LEADERBOARD] created", "id", lb.ID, "owner", userID)
		return lb, nil
	}
	return nil, fmt.Errorf("could not allocate a unique invite code after %d attempts", inviteCodeAttempts)
}

func (s *MembershipService) ListMine(ctx context.Context, access storage.Access) ([]models.PrivateLeaderboard, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}
	lbs, err := s.store.ListPrivateLeaderboardsForUser(ctx, userID)
	if err != nil {
		return nil, storeError(err, "private leaderboards")
	}
	if lbs == nil {
		lbs = []models.PrivateLeaderboard{}
	}
	return lbs, nil
}

// load fetches a leaderboard and requires the caller to be a member, or the owner when ownerOnly.
func (s *MembershipService) load(ctx context.Context, access storage.Access, id string, ownerOnly bool) (*models.PrivateLeaderboard, string, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, "", err
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, "", InvalidInput("invalid leaderboard id")
	}
	lb, err := s.store.GetPrivateLeaderboard(ctx, id)
	if err != nil {
		return nil, "", storeError(err, "private leaderboard")
	}
	if lb.OwnerUserID == userID {
		return lb, userID, nil
	}
	if ownerOnly {
		return nil, "", Forbidden("only the owner can do this")
	}
	if _, err := s.store.GetMember(ctx, lb.ID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", Forbidden("not a member of this leaderboard")
		}
		return nil, "", storeError(err, "membership")
	}
	return lb, userID, nil
}

func (s *MembershipService) Get(ctx context.Context, access storage.Access, id string) (*models.PrivateLeaderboard, error) {
	lb, _, err := s.load(ctx, access, id, false)
	return lb, err
}

func (s *MembershipService) Update(ctx context.Context, access storage.Access, id string, in UpdateLeaderboardInput) (*models.PrivateLeaderboard, error) {
	lb, _, err := s.load(ctx, access, id, true)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, InvalidInput("name must not be empty")
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = in.Description
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.PeriodType != nil {
		pt, err := normalizePeriodType(in.PeriodType)
		if err != nil {
			return nil, err
		}
		updates["period_type"] = pt
	}
	if in.PeriodStart != nil {
		updates["period_start"] = in.PeriodStart
	}
	if in.PeriodEnd != nil {
		updates["period_end"] = in.PeriodEnd
	}
	if len(updates) == 0 {
		return lb, nil
	}

	updated, err := s.store.UpdatePrivateLeaderboard(ctx, lb.ID, updates)
	if err != nil {
		return nil, storeError(err, "private leaderboard")
	}
	return updated, nil
}

func (s *MembershipService) Delete(ctx context.Context, access storage.Access, id string) error {
	lb, _, err := s.load(ctx, access, id, true)
	if err != nil {
		return err
	}
	if err := s.store.DeletePrivateLeaderboard(ctx, lb.ID); err != nil {
		return storeError(err, "private leaderboard")
	}
	slog.Info("[LEADERBOARD] deleted", "id", lb.ID)
	return nil
}

// RegenerateInviteCode replaces the invite code; the old one stops working.
func (s *MembershipService) RegenerateInviteCode(ctx context.Context, access storage.Access, id string) (*models.PrivateLeaderboard, error) {
	lb, _, err := s.load(ctx, access, id, true)
	if err != nil {
		return nil, err
	}
	for attempt := 0; attempt < inviteCodeAttempts; attempt++ {
		code, err := utils.NewInviteCode(inviteCodeLength)
		if err != nil {
			return nil, err
		}
		updated, err := s.store.UpdatePrivateLeaderboard(ctx, lb.ID, map[string]interface{}{"invite_code": code})
		if errors.Is(err, storage.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, storeError(err, "private leaderboard")
		}
		return updated, nil
	}
	return nil, fmt.Errorf("could not allocate a unique invite code after %d attempts", inviteCodeAttempts)
}

// AddMember inserts a membership; a concurrent or repeated insert returns the existing row.
func (s *MembershipService) AddMember(ctx context.Context, leaderboardID, userID, role string) (*models.PrivateLeaderboardMember, error) {
	if role == "" {
		role = models.RoleMember
	}
	m, _, err := upsertIdempotent(
		func() (*models.PrivateLeaderboardMember, error) {
			m := &models.PrivateLeaderboardMember{
				ID:            uuid.NewString(),
				LeaderboardID: leaderboardID,
				UserID:        userID,
				Role:          role,
			}
			return m, s.store.InsertMember(ctx, m)
		},
		func() (*models.PrivateLeaderboardMember, error) {
			return s.store.GetMember(ctx, leaderboardID, userID)
		},
	)
	if err != nil {
		return nil, storeError(err, "membership")
	}
	return m, nil
}

// InviteMember lets the owner add another user as a member.
func (s *MembershipService) InviteMember(ctx context.Context, access storage.Access, leaderboardID, userID string) (*models.PrivateLeaderboardMember, error) {
	lb, _, err := s.load(ctx, access, leaderboardID, true)
	if err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if _, err := uuid.Parse(userID); err != nil {
		return nil, InvalidInput("userId must be a valid id")
	}
	return s.AddMember(ctx, lb.ID, userID, models.RoleMember)
}

// JoinByInviteCode adds the caller to the leaderboard behind code.
func (s *MembershipService) JoinByInviteCode(ctx context.Context, access storage.Access, code string) (*models.PrivateLeaderboardMember, error) {
	userID, err := callerID(access)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, InvalidInput("inviteCode is required")
	}

	lb, err := s.store.GetPrivateLeaderboardByInviteCode(ctx, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NotFound("no leaderboard with that invite code")
		}
		return nil, storeError(err, "private leaderboard")
	}
	if !lb.IsActive {
		return nil, InvalidState("leaderboard is not active")
	}

	existing, err := s.store.GetMember(ctx, lb.ID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, storeError(err, "membership")
	}

	m, err := s.AddMember(ctx, lb.ID, userID, models.RoleMember)
	if err != nil {
		return nil, err
	}
	slog.Info("[LEADERBOARD] joined", "id", lb.ID, "user_id", userID)
	return m, nil
}

func (s *MembershipService) ListMembers(ctx context.Context, access storage.Access, leaderboardID string) ([]models.PrivateLeaderboardMember, error) {
	lb, _, err := s.load(ctx, access, leaderboardID, false)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, lb.ID)
	if err != nil {
		return nil, storeError(err, "members")
	}
	return members, nil
}

// RemoveMember removes userID. Owners remove anyone but themselves; members may only leave.
func (s *MembershipService) RemoveMember(ctx context.Context, access storage.Access, leaderboardID, userID string) error {
	lb, caller, err := s.load(ctx, access, leaderboardID, false)
	if err != nil {
		return err
	}
	isOwner := lb.OwnerUserID == caller
	switch {
	case userID == lb.OwnerUserID:
		return InvalidState("the owner cannot leave; delete the leaderboard instead")
	case !isOwner && userID != caller:
		return Forbidden("only the owner can remove other members")
	}
	if err := s.store.DeleteMember(ctx, lb.ID, userID); err != nil {
		return storeError(err, "membership")
	}
	return nil
}

// Standings ranks members by points in the leaderboard's current period (weekly by default).
func (s *MembershipService) Standings(ctx context.Context, access storage.Access, leaderboardID string) ([]models.Standing, error) {
	lb, _, err := s.load(ctx, access, leaderboardID, false)
	if err != nil {
		return nil, err
	}

	pt := models.PeriodWeekly
	if lb.PeriodType != nil {
		pt = models.PeriodType(*lb.PeriodType)
	}
	period, err := CurrentPeriod(pt, s.now())
	if err != nil {
		return nil, err
	}

	members, err := s.store.ListMembers(ctx, lb.ID)
	if err != nil {
		return nil, storeError(err, "members")
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	points, err := s.points.PointsFor(ctx, ids, period)
	if err != nil {
		return nil, storeError(err, "leaderboard")
	}

	standings := make([]models.Standing, 0, len(members))
	for _, m := range members {
		standings = append(standings, models.Standing{UserID: m.UserID, Role: m.Role, Points: points[m.UserID]})
	}
	sort.SliceStable(standings, func(i, j int) bool { return standings[i].Points > standings[j].Points })
	for i := range standings {
		if i > 0 && standings[i].Points == standings[i-1].Points {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings, nil
}
