package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Girls-Girls-Inc/wits-quest-sub001/metrics"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/models"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/storage"
	"github.com/Girls-Girls-Inc/wits-quest-sub001/utils"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
)

const (
	DedupeMeters        = 50.0
	DefaultRadiusMeters = 50.0
	SyncTTL             = 5 * time.Minute

	dedupeCandidateLimit = 50
	previewSize          = 5
)

// LocationStore is the location/quest slice used by the import job.
type LocationStore interface {
	SearchLocationsByName(ctx context.Context, name string, limit int) ([]models.Location, error)
	CreateLocation(ctx context.Context, loc *models.Location) error
	FindQuestByLocation(ctx context.Context, locationID string) (*models.Quest, error)
	FindQuestByImportKey(ctx context.Context, key string) (*models.Quest, error)
	CreateQuest(ctx context.Context, q *models.Quest) error
}

// SyncGuard serialises import runs and remembers the last successful one.
type SyncGuard interface {
	Acquire(ctx context.Context, checkFresh bool, now time.Time) (skip string, err error)
	Release(ctx context.Context, synced bool, now time.Time)
	LastSync(ctx context.Context) time.Time
}

type ImportOptions struct {
	DryRun           bool
	SyncIfStale      bool
	DefaultRadius    float64
	AlsoCreateQuests bool
	// Filter is a case-insensitive substring of store name or address.
	Filter string
}

func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		SyncIfStale:      true,
		DefaultRadius:    DefaultRadiusMeters,
		AlsoCreateQuests: true,
	}
}

type ImportResult struct {
	Skipped string `json:"skipped,omitempty"`

	DryRun  bool              `json:"dryRun,omitempty"`
	Count   int               `json:"count,omitempty"`
	Preview []models.Location `json:"preview,omitempty"`

	StoresProcessed  int       `json:"storesProcessed"`
	CreatedLocations int       `json:"createdLocations"`
	SkippedExisting  int       `json:"skippedExisting"`
	QuestsCreated    int       `json:"questsCreated"`
	LastSync         time.Time `json:"lastSync"`
}

type ImportConfig struct {
	SystemUserID string
	QuestPoints  string
}

type StoreImportService struct {
	store   LocationStore
	fetcher StoreFetcher
	guard   SyncGuard
	cfg     ImportConfig
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewStoreImportService(store LocationStore, fetcher StoreFetcher, guard SyncGuard, cfg ImportConfig, m *metrics.Metrics) *StoreImportService {
	if cfg.QuestPoints == "" {
		cfg.QuestPoints = "10"
	}
	return &StoreImportService{
		store:   store,
		fetcher: fetcher,
		guard:   guard,
		cfg:     cfg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Import pulls the store list and converges locations and quests onto it.
func (s *StoreImportService) Import(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	if opts.DefaultRadius <= 0 {
		opts.DefaultRadius = DefaultRadiusMeters
	}

	skip, err := s.guard.Acquire(ctx, opts.SyncIfStale && !opts.DryRun, s.now())
	if err != nil {
		return nil, fmt.Errorf("acquire import guard: %w", err)
	}
	if skip != "" {
		s.metrics.ImportRun("skipped_" + skip)
		slog.Info("[IMPORT] skipped", "reason", skip)
		return &ImportResult{Skipped: skip, LastSync: s.guard.LastSync(ctx)}, nil
	}

	synced := false
	defer func() {
		s.guard.Release(ctx, synced, s.now())
	}()

	stores, err := s.fetcher.FetchStores(ctx)
	if err != nil {
		s.metrics.ImportRun("upstream_error")
		return nil, err
	}
	stores = filterStores(stores, opts.Filter)

	if opts.DryRun {
		s.metrics.ImportRun("dry_run")
		return s.preview(stores, opts), nil
	}

	res, err := s.apply(ctx, stores, opts)
	if err != nil {
		s.metrics.ImportRun("failed")
		return nil, err
	}

	synced = true
	res.LastSync = s.now()
	s.metrics.ImportRun("completed")
	s.metrics.ImportedLocations(res.CreatedLocations, res.SkippedExisting)
	slog.Info("[IMPORT] completed",
		"stores", res.StoresProcessed,
		"created_locations", res.CreatedLocations,
		"skipped_existing", res.SkippedExisting,
		"quests_created", res.QuestsCreated)
	return res, nil
}

func (s *StoreImportService) preview(stores []ThriftStore, opts ImportOptions) *ImportResult {
	res := &ImportResult{DryRun: true, Preview: []models.Location{}}
	for _, st := range stores {
		loc, ok := candidateLocation(st, opts.DefaultRadius)
		if !ok {
			continue
		}
		res.Count++
		if len(res.Preview) < previewSize {
			res.Preview = append(res.Preview, *loc)
		}
	}
	return res
}

// apply processes stores one at a time so each store sees locations created for earlier ones.
func (s *StoreImportService) apply(ctx context.Context, stores []ThriftStore, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{}
	for _, st := range stores {
		res.StoresProcessed++
		cand, ok := candidateLocation(st, opts.DefaultRadius)
		if !ok {
			continue
		}

		loc, existed, err := s.resolveLocation(ctx, cand)
		if err != nil {
			return nil, err
		}
		if existed {
			res.SkippedExisting++
		} else {
			res.CreatedLocations++
		}

		if !opts.AlsoCreateQuests {
			continue
		}
		created, err := s.ensureQuest(ctx, loc, st)
		if err != nil {
			return nil, err
		}
		if created {
			res.QuestsCreated++
		}
	}
	return res, nil
}

func candidateLocation(st ThriftStore, radius float64) (*models.Location, bool) {
	name := strings.TrimSpace(st.StoreName)
	lat, lng := st.Location.Lat, st.Location.Lng
	if name == "" || !lat.Valid || !lng.Valid || !utils.ValidCoordinate(lat.Value, lng.Value) {
		return nil, false
	}
	return &models.Location{
		Name:      name,
		Latitude:  lat.Value,
		Longitude: lng.Value,
		Radius:    radius,
	}, true
}

// resolveLocation returns an existing location with a matching name within
// DedupeMeters (inclusive), or creates the candidate.
func (s *StoreImportService) resolveLocation(ctx context.Context, cand *models.Location) (*models.Location, bool, error) {
	matches, err := s.store.SearchLocationsByName(ctx, cand.Name, dedupeCandidateLimit)
	if err != nil {
		return nil, false, storeError(err, "locations")
	}
	for i := range matches {
		d := utils.HaversineMeters(cand.Latitude, cand.Longitude, matches[i].Latitude, matches[i].Longitude)
		if d <= DedupeMeters {
			return &matches[i], true, nil
		}
	}

	cand.ID = uuid.NewString()
	if err := s.store.CreateLocation(ctx, cand); err != nil {
		return nil, false, storeError(err, "location")
	}
	return cand, false, nil
}

func (s *StoreImportService) ensureQuest(ctx context.Context, loc *models.Location, st ThriftStore) (bool, error) {
	_, err := s.store.FindQuestByLocation(ctx, loc.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, storeError(err, "quest")
	}

	key := "thrift:" + loc.ID
	_, created, err := upsertIdempotent(
		func() (*models.Quest, error) {
			q := &models.Quest{
				ID:               uuid.NewString(),
				Name:             loc.Name + " Thrift Quest",
				Description:      questDescription(st),
				LocationID:       loc.ID,
				CreatedBy:        s.cfg.SystemUserID,
				PointsAchievable: s.cfg.QuestPoints,
				IsActive:         true,
				ImportKey:        &key,
			}
			return q, s.store.CreateQuest(ctx, q)
		},
		func() (*models.Quest, error) {
			return s.store.FindQuestByImportKey(ctx, key)
		},
	)
	if err != nil {
		return false, storeError(err, "quest")
	}
	return created, nil
}

func questDescription(st ThriftStore) string {
	var parts []string
	if st.Description != nil && strings.TrimSpace(*st.Description) != "" {
		parts = append(parts, strings.TrimSpace(*st.Description))
	}
	if st.Address != nil && strings.TrimSpace(*st.Address) != "" {
		parts = append(parts, "Address: "+strings.TrimSpace(*st.Address))
	}
	if len(parts) == 0 {
		return "Visit this thrift store and check in to complete the quest."
	}
	return strings.Join(parts, " ")
}

func filterStores(stores []ThriftStore, filter string) []ThriftStore {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return stores
	}
	fold := cases.Fold()
	needle := fold.String(filter)
	out := make([]ThriftStore, 0, len(stores))
	for _, st := range stores {
		if strings.Contains(fold.String(st.StoreName), needle) {
			out = append(out, st)
			continue
		}
		if st.Address != nil && strings.Contains(fold.String(*st.Address), needle) {
			out = append(out, st)
		}
	}
	return out
}
