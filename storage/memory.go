package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-process data store gateway with the same conflict and
// guarded-update semantics as GormStore. It backs local runs and tests.
type MemoryStore struct {
	mu sync.Mutex

	hunts        map[string]models.Hunt
	quests       map[string]models.Quest
	locations    []models.Location
	userQuests   map[string]models.UserQuest
	userHunts    map[string]models.UserHunt
	entries      map[string]models.LeaderboardEntry
	leaderboards map[string]models.PrivateLeaderboard
	members      map[string]models.PrivateLeaderboardMember

	// RPCDisabled makes IncrementPoints report ErrRPCUnavailable.
	RPCDisabled bool
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hunts:        map[string]models.Hunt{},
		quests:       map[string]models.Quest{},
		userQuests:   map[string]models.UserQuest{},
		userHunts:    map[string]models.UserHunt{},
		entries:      map[string]models.LeaderboardEntry{},
		leaderboards: map[string]models.PrivateLeaderboard{},
		members:      map[string]models.PrivateLeaderboardMember{},
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func pairKey(a, b string) string { return a + "|" + b }

// PutHunt seeds a hunt; hunts are administered outside this service.
func (m *MemoryStore) PutHunt(h models.Hunt) models.Hunt {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&h.ID)
	if h.CreatedAt.IsZero() {
		h.CreatedAt = m.now()
	}
	m.hunts[h.ID] = h
	return h
}

// PutQuest seeds a quest.
func (m *MemoryStore) PutQuest(q models.Quest) models.Quest {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&q.ID)
	if q.CreatedAt.IsZero() {
		q.CreatedAt = m.now()
	}
	m.quests[q.ID] = q
	return q
}

// PutEntry seeds a leaderboard row.
func (m *MemoryStore) PutEntry(e models.LeaderboardEntry) models.LeaderboardEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&e.ID)
	m.entries[e.ID] = e
	return e
}

// --- quests ---

func (m *MemoryStore) GetQuest(_ context.Context, id string) (*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.quests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &q, nil
}

func (m *MemoryStore) GetHunt(_ context.Context, id string) (*models.Hunt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hunts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &h, nil
}

func (m *MemoryStore) CreateUserQuest(_ context.Context, access Access, uq *models.UserQuest) error {
	if !access.Permits(uq.UserID) {
		return ErrPermissionDenied
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.quests[uq.QuestID]; !ok {
		return ErrForeignKey
	}
	for _, existing := range m.userQuests {
		if existing.UserID == uq.UserID && existing.QuestID == uq.QuestID {
			return ErrDuplicate
		}
	}
	ensureID(&uq.ID)
	uq.CreatedAt = m.now()
	m.userQuests[uq.ID] = *uq
	return nil
}

func (m *MemoryStore) GetUserQuest(_ context.Context, access Access, id string) (*models.UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uq, ok := m.userQuests[id]
	if !ok || !access.Permits(uq.UserID) {
		return nil, ErrNotFound
	}
	return &uq, nil
}

func (m *MemoryStore) ListUserQuests(_ context.Context, access Access, userID string) ([]models.UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := []models.UserQuest{}
	for _, uq := range m.userQuests {
		if uq.UserID != userID || !access.Permits(uq.UserID) {
			continue
		}
		if q, ok := m.quests[uq.QuestID]; ok {
			quest := q
			uq.Quest = &quest
		}
		rows = append(rows, uq)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (m *MemoryStore) CompleteUserQuest(_ context.Context, access Access, id string, at time.Time) (*models.UserQuest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uq, ok := m.userQuests[id]
	if !ok || !access.Permits(uq.UserID) || uq.IsComplete {
		return nil, ErrNoRowsAffected
	}
	uq.IsComplete = true
	uq.CompletedAt = &at
	m.userQuests[id] = uq
	return &uq, nil
}

func (m *MemoryStore) UpsertUserHunt(_ context.Context, access Access, uh *models.UserHunt) error {
	if !access.Permits(uh.UserID) {
		return ErrPermissionDenied
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hunts[uh.HuntID]; !ok {
		return ErrForeignKey
	}
	key := pairKey(uh.UserID, uh.HuntID)
	if _, ok := m.userHunts[key]; ok {
		return nil
	}
	ensureID(&uh.ID)
	uh.CreatedAt = m.now()
	m.userHunts[key] = *uh
	return nil
}

// UserHunt returns hunt progress for tests and diagnostics.
func (m *MemoryStore) UserHunt(userID, huntID string) (models.UserHunt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	uh, ok := m.userHunts[pairKey(userID, huntID)]
	return uh, ok
}

// --- leaderboard ---

func samePeriod(e models.LeaderboardEntry, p models.Period) bool {
	if e.PeriodType != string(p.Type) {
		return false
	}
	if e.PeriodStart == nil || p.Start == nil {
		return e.PeriodStart == nil && p.Start == nil
	}
	return e.PeriodStart.Equal(*p.Start)
}

func (m *MemoryStore) findEntryLocked(userID string, p models.Period) (models.LeaderboardEntry, bool) {
	for _, e := range m.entries {
		if e.UserID == userID && samePeriod(e, p) {
			return e, true
		}
	}
	return models.LeaderboardEntry{}, false
}

func (m *MemoryStore) IncrementPoints(_ context.Context, userID string, periods []models.Period, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RPCDisabled {
		return ErrRPCUnavailable
	}
	for _, period := range periods {
		e, ok := m.findEntryLocked(userID, period)
		if !ok {
			e = models.LeaderboardEntry{
				ID:          uuid.NewString(),
				UserID:      userID,
				PeriodType:  string(period.Type),
				PeriodStart: period.Start,
				PeriodEnd:   period.End,
			}
		}
		e.Points += delta
		e.UpdatedAt = m.now()
		m.entries[e.ID] = e
	}
	return nil
}

func (m *MemoryStore) FindEntry(_ context.Context, userID string, period models.Period) (*models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.findEntryLocked(userID, period)
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (m *MemoryStore) CreateEntry(_ context.Context, e *models.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	period := models.Period{Type: models.PeriodType(e.PeriodType), Start: e.PeriodStart}
	if _, ok := m.findEntryLocked(e.UserID, period); ok {
		return ErrDuplicate
	}
	ensureID(&e.ID)
	e.UpdatedAt = m.now()
	m.entries[e.ID] = *e
	return nil
}

func (m *MemoryStore) UpdateEntryPoints(_ context.Context, id string, expected, next int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.Points != expected {
		return ErrNoRowsAffected
	}
	e.Points = next
	e.UpdatedAt = m.now()
	m.entries[id] = e
	return nil
}

func (m *MemoryStore) ListEntries(_ context.Context, f LeaderboardFilter) ([]models.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.LeaderboardEntry{}
	for _, e := range m.entries {
		if f.PeriodType != "" && !strings.EqualFold(e.PeriodType, f.PeriodType) {
			continue
		}
		if f.ID != "" && e.ID != f.ID {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if f.Start != nil && (e.PeriodStart == nil || e.PeriodStart.Before(*f.Start)) {
			continue
		}
		if f.End != nil && (e.PeriodEnd == nil || e.PeriodEnd.After(*f.End)) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Rank, out[j].Rank
		switch {
		case ri == nil && rj == nil:
			return out[i].Points > out[j].Points
		case ri == nil:
			return false
		case rj == nil:
			return true
		case *ri != *rj:
			return *ri < *rj
		}
		return out[i].Points > out[j].Points
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *MemoryStore) PointsFor(_ context.Context, userIDs []string, period models.Period) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(userIDs))
	for _, id := range userIDs {
		if e, ok := m.findEntryLocked(id, period); ok {
			out[id] = e.Points
		}
	}
	return out, nil
}

func (m *MemoryStore) RecomputeRanks(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	partitions := map[string][]models.LeaderboardEntry{}
	for _, e := range m.entries {
		key := e.PeriodType
		if e.PeriodStart != nil {
			key += "|" + e.PeriodStart.UTC().Format(time.RFC3339Nano)
		}
		partitions[key] = append(partitions[key], e)
	}
	var changed int64
	for _, rows := range partitions {
		sort.Slice(rows, func(i, j int) bool { return rows[i].Points > rows[j].Points })
		rank := 0
		for i, e := range rows {
			if i == 0 || rows[i-1].Points != e.Points {
				rank = i + 1
			}
			if e.Rank == nil || *e.Rank != rank {
				r := rank
				e.Rank = &r
				m.entries[e.ID] = e
				changed++
			}
		}
	}
	return changed, nil
}

// --- locations ---

func (m *MemoryStore) SearchLocationsByName(_ context.Context, name string, limit int) ([]models.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(name)
	out := []models.Location{}
	for _, l := range m.locations {
		if strings.Contains(strings.ToLower(l.Name), needle) {
			out = append(out, l)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MemoryStore) CreateLocation(_ context.Context, loc *models.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&loc.ID)
	loc.CreatedAt = m.now()
	m.locations = append(m.locations, *loc)
	return nil
}

// Locations returns every stored location in insertion order.
func (m *MemoryStore) Locations() []models.Location {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Location(nil), m.locations...)
}

func (m *MemoryStore) FindQuestByLocation(_ context.Context, locationID string) (*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var found *models.Quest
	for _, q := range m.quests {
		if q.LocationID != locationID {
			continue
		}
		if found == nil || q.CreatedAt.Before(found.CreatedAt) {
			quest := q
			found = &quest
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (m *MemoryStore) FindQuestByImportKey(_ context.Context, key string) (*models.Quest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.quests {
		if q.ImportKey != nil && *q.ImportKey == key {
			return &q, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) CreateQuest(_ context.Context, q *models.Quest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if q.ImportKey != nil {
		for _, existing := range m.quests {
			if existing.ImportKey != nil && *existing.ImportKey == *q.ImportKey {
				return ErrDuplicate
			}
		}
	}
	ensureID(&q.ID)
	q.CreatedAt = m.now()
	m.quests[q.ID] = *q
	return nil
}

// QuestCount reports how many quests are stored.
func (m *MemoryStore) QuestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.quests)
}

// --- private leaderboards ---

func (m *MemoryStore) CreateLeaderboardWithOwner(_ context.Context, lb *models.PrivateLeaderboard, owner *models.PrivateLeaderboardMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.leaderboards {
		if existing.InviteCode == lb.InviteCode {
			return ErrDuplicate
		}
	}
	ensureID(&lb.ID)
	now := m.now()
	lb.CreatedAt, lb.UpdatedAt = now, now
	m.leaderboards[lb.ID] = *lb

	owner.LeaderboardID = lb.ID
	ensureID(&owner.ID)
	owner.JoinedAt = now
	m.members[pairKey(lb.ID, owner.UserID)] = *owner
	return nil
}

func (m *MemoryStore) GetPrivateLeaderboard(_ context.Context, id string) (*models.PrivateLeaderboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lb, ok := m.leaderboards[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &lb, nil
}

func (m *MemoryStore) GetPrivateLeaderboardByInviteCode(_ context.Context, code string) (*models.PrivateLeaderboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lb := range m.leaderboards {
		if lb.InviteCode == code {
			return &lb, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListPrivateLeaderboardsForUser(_ context.Context, userID string) ([]models.PrivateLeaderboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PrivateLeaderboard{}
	for _, mem := range m.members {
		if mem.UserID != userID {
			continue
		}
		if lb, ok := m.leaderboards[mem.LeaderboardID]; ok {
			out = append(out, lb)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) UpdatePrivateLeaderboard(_ context.Context, id string, updates map[string]interface{}) (*models.PrivateLeaderboard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lb, ok := m.leaderboards[id]
	if !ok {
		return nil, ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "name":
			lb.Name = v.(string)
		case "description":
			lb.Description = v.(*string)
		case "cover_image":
			lb.CoverImage = v.(*string)
		case "is_active":
			lb.IsActive = v.(bool)
		case "period_type":
			lb.PeriodType = v.(*string)
		case "period_start":
			lb.PeriodStart = v.(*time.Time)
		case "period_end":
			lb.PeriodEnd = v.(*time.Time)
		case "invite_code":
			code := v.(string)
			for otherID, other := range m.leaderboards {
				if otherID != id && other.InviteCode == code {
					return nil, ErrDuplicate
				}
			}
			lb.InviteCode = code
		}
	}
	lb.UpdatedAt = m.now()
	m.leaderboards[id] = lb
	return &lb, nil
}

func (m *MemoryStore) DeletePrivateLeaderboard(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaderboards[id]; !ok {
		return ErrNotFound
	}
	delete(m.leaderboards, id)
	for key, mem := range m.members {
		if mem.LeaderboardID == id {
			delete(m.members, key)
		}
	}
	return nil
}

func (m *MemoryStore) InsertMember(_ context.Context, mem *models.PrivateLeaderboardMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaderboards[mem.LeaderboardID]; !ok {
		return ErrForeignKey
	}
	key := pairKey(mem.LeaderboardID, mem.UserID)
	if _, ok := m.members[key]; ok {
		return ErrDuplicate
	}
	ensureID(&mem.ID)
	mem.JoinedAt = m.now()
	m.members[key] = *mem
	return nil
}

func (m *MemoryStore) GetMember(_ context.Context, leaderboardID, userID string) (*models.PrivateLeaderboardMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.members[pairKey(leaderboardID, userID)]
	if !ok {
		return nil, ErrNotFound
	}
	return &mem, nil
}

func (m *MemoryStore) ListMembers(_ context.Context, leaderboardID string) ([]models.PrivateLeaderboardMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PrivateLeaderboardMember{}
	for _, mem := range m.members {
		if mem.LeaderboardID == leaderboardID {
			out = append(out, mem)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JoinedAt.Before(out[j].JoinedAt) })
	return out, nil
}

func (m *MemoryStore) DeleteMember(_ context.Context, leaderboardID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := pairKey(leaderboardID, userID)
	if _, ok := m.members[key]; !ok {
		return ErrNotFound
	}
	delete(m.members, key)
	return nil
}
