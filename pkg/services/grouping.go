package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mergetab/mergetab-engine/pkg/config"
	"github.com/mergetab/mergetab-engine/pkg/matching"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// namingProbeLimit caps how many sequential default names are tried before
// falling back to a timestamp suffix.
const namingProbeLimit = 100

// MatchResult describes the group an uploaded schema was matched to and how
// strong the match was.
type MatchResult struct {
	Group      *models.TableGroup
	Similarity float64
}

// ReconcileReport summarizes a duplicate-group reconciliation pass.
type ReconcileReport struct {
	DuplicateSets int `json:"duplicate_sets"`
	GroupsRemoved int `json:"groups_removed"`
	RowsMoved     int `json:"rows_moved"`
}

// GroupingService matches uploaded schemas to table groups and manages
// group lifecycle.
type GroupingService interface {
	// FindMatch returns the best matching group for the columns, or nil
	// when no group clears the minimum similarity threshold.
	FindMatch(ctx context.Context, columns []string) (*MatchResult, error)

	// Create makes a new group for the columns with a generated name,
	// noting the file that triggered it. A strongly matching existing
	// group is returned instead of creating a near-duplicate.
	Create(ctx context.Context, columns []string, filename string) (*models.TableGroup, error)

	// RecordMerge folds a file's match similarity into the group's running
	// confidence average.
	RecordMerge(ctx context.Context, groupID uuid.UUID, similarity float64) error

	// ReconcileDuplicates merges groups that share a fingerprint into the
	// one holding the most rows.
	ReconcileDuplicates(ctx context.Context) (*ReconcileReport, error)
}

type groupingService struct {
	cfg     config.MatchingConfig
	engine  *matching.Engine
	groups  repositories.GroupRepository
	schemas repositories.SchemaRepository
	rows    repositories.RowRepository
	logger  *zap.Logger

	// createMu serializes group creation so two uploads of the same new
	// schema cannot both miss the fingerprint lookup and create twins.
	createMu sync.Mutex
}

// NewGroupingService creates a new GroupingService.
func NewGroupingService(
	cfg config.MatchingConfig,
	engine *matching.Engine,
	groups repositories.GroupRepository,
	schemas repositories.SchemaRepository,
	rows repositories.RowRepository,
	logger *zap.Logger,
) GroupingService {
	return &groupingService{
		cfg:     cfg,
		engine:  engine,
		groups:  groups,
		schemas: schemas,
		rows:    rows,
		logger:  logger,
	}
}

var _ GroupingService = (*groupingService)(nil)

func (s *groupingService) FindMatch(ctx context.Context, columns []string) (*MatchResult, error) {
	if len(columns) == 0 {
		return nil, nil
	}

	fingerprint := s.engine.Fingerprint(columns)

	exact, err := s.groups.ListByFingerprint(ctx, fingerprint, len(columns))
	if err != nil {
		return nil, err
	}

	if len(exact) > 1 {
		// Duplicates from a historical race. Fold them into the
		// largest before answering so the caller sees one group.
		survivor, err := s.mergeDuplicateSet(ctx, exact)
		if err != nil {
			return nil, err
		}
		return &MatchResult{Group: survivor, Similarity: matching.ExactMatchThreshold}, nil
	}
	if len(exact) == 1 {
		return &MatchResult{Group: exact[0], Similarity: matching.ExactMatchThreshold}, nil
	}

	return s.findFuzzyMatch(ctx, columns)
}

// findFuzzyMatch scores the columns against the active schema of every
// group with the same column count and returns the best scorer at or above
// the minimum threshold. Groups of a different arity are never candidates;
// their rows would end up keyed by names outside the schema.
func (s *groupingService) findFuzzyMatch(ctx context.Context, columns []string) (*MatchResult, error) {
	candidates, err := s.groups.ListByColumnCount(ctx, len(columns))
	if err != nil {
		return nil, err
	}

	var best *models.TableGroup
	bestScore := 0.0

	for _, group := range candidates {
		schema, err := s.schemas.ActiveNames(ctx, group.ID)
		if err != nil {
			return nil, err
		}

		score := s.engine.Similarity(columns, schema)
		if score > bestScore {
			best = group
			bestScore = score
		}
	}

	if best == nil || bestScore < s.cfg.MinSimilarity {
		return nil, nil
	}

	s.logger.Debug("fuzzy schema match",
		zap.String("group_id", best.ID.String()),
		zap.Float64("similarity", bestScore))

	return &MatchResult{Group: best, Similarity: bestScore}, nil
}

func (s *groupingService) Create(ctx context.Context, columns []string, filename string) (*models.TableGroup, error) {
	// Callers may invoke Create directly, not just after a FindMatch miss.
	// Re-run the matcher so a strongly similar group absorbs the schema
	// instead of gaining a twin.
	match, err := s.FindMatch(ctx, columns)
	if err != nil {
		return nil, err
	}
	if match != nil && match.Similarity >= s.cfg.HighSimilarity {
		return match.Group, nil
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	fingerprint := s.engine.Fingerprint(columns)

	// Re-check under the lock: a concurrent upload may have created the
	// group between our lookup miss and acquiring the lock.
	existing, err := s.groups.ListByFingerprint(ctx, fingerprint, len(columns))
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}

	name, err := s.nextGroupName(ctx)
	if err != nil {
		return nil, err
	}

	description := fmt.Sprintf("Auto-created for a %d-column schema", len(columns))
	if filename != "" {
		description = fmt.Sprintf("Auto-created from %s", filename)
	}

	group := &models.TableGroup{
		Name:              name,
		Description:       description,
		SchemaFingerprint: fingerprint,
		ColumnCount:       len(columns),
		ConfidenceScore:   1.0,
		FileCount:         0,
	}

	if err := s.groups.CreateWithSchema(ctx, group, columns); err != nil {
		return nil, err
	}

	s.logger.Info("created table group",
		zap.String("group_id", group.ID.String()),
		zap.String("name", group.Name),
		zap.Int("columns", len(columns)))

	return group, nil
}

func (s *groupingService) RecordMerge(ctx context.Context, groupID uuid.UUID, similarity float64) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}

	newCount := group.FileCount + 1
	newConfidence := (group.ConfidenceScore*float64(group.FileCount) + similarity) / float64(newCount)

	return s.groups.UpdateConfidence(ctx, groupID, newConfidence, newCount)
}

func (s *groupingService) ReconcileDuplicates(ctx context.Context) (*ReconcileReport, error) {
	groups, err := s.groups.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string][]*models.TableGroup)
	for _, g := range groups {
		key := fmt.Sprintf("%s/%d", g.SchemaFingerprint, g.ColumnCount)
		buckets[key] = append(buckets[key], g)
	}

	report := &ReconcileReport{}
	for _, set := range buckets {
		if len(set) < 2 {
			continue
		}

		moved, removed, err := s.mergeDuplicateSetCounted(ctx, set)
		if err != nil {
			return nil, err
		}

		report.DuplicateSets++
		report.GroupsRemoved += removed
		report.RowsMoved += moved
	}

	if report.DuplicateSets > 0 {
		s.logger.Info("reconciled duplicate groups",
			zap.Int("sets", report.DuplicateSets),
			zap.Int("removed", report.GroupsRemoved),
			zap.Int("rows_moved", report.RowsMoved))
	}

	return report, nil
}

func (s *groupingService) mergeDuplicateSet(ctx context.Context, set []*models.TableGroup) (*models.TableGroup, error) {
	survivor, err := s.pickSurvivor(ctx, set)
	if err != nil {
		return nil, err
	}
	if _, _, err := s.mergeInto(ctx, survivor, set); err != nil {
		return nil, err
	}
	return survivor, nil
}

func (s *groupingService) mergeDuplicateSetCounted(ctx context.Context, set []*models.TableGroup) (moved, removed int, err error) {
	survivor, err := s.pickSurvivor(ctx, set)
	if err != nil {
		return 0, 0, err
	}
	return s.mergeInto(ctx, survivor, set)
}

// pickSurvivor chooses the group holding the most rows; ties go to the
// oldest, which ListAll and ListByFingerprint already order first.
func (s *groupingService) pickSurvivor(ctx context.Context, set []*models.TableGroup) (*models.TableGroup, error) {
	var survivor *models.TableGroup
	most := -1

	for _, g := range set {
		count, err := s.rows.CountByGroup(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		if count > most {
			survivor = g
			most = count
		}
	}

	return survivor, nil
}

func (s *groupingService) mergeInto(ctx context.Context, survivor *models.TableGroup, set []*models.TableGroup) (moved, removed int, err error) {
	for _, g := range set {
		if g.ID == survivor.ID {
			continue
		}

		n, err := s.rows.ReassignGroup(ctx, g.ID, survivor.ID)
		if err != nil {
			return moved, removed, err
		}
		if err := s.groups.Delete(ctx, g.ID); err != nil {
			return moved, removed, err
		}

		moved += int(n)
		removed++
	}

	return moved, removed, nil
}

// nextGroupName generates "Merged Table One", "Merged Table Two", and so
// on, skipping names already taken. After namingProbeLimit misses it falls
// back to a timestamp so creation never spins.
func (s *groupingService) nextGroupName(ctx context.Context) (string, error) {
	for i := 1; i <= namingProbeLimit; i++ {
		name := fmt.Sprintf("Merged Table %s", ordinalWord(i))
		taken, err := s.groups.ExistsByName(ctx, name)
		if err != nil {
			return "", err
		}
		if !taken {
			return name, nil
		}
	}

	// The unique name index would still reject a same-millisecond twin,
	// so probe the fallback once and widen to nanoseconds on a hit.
	name := fmt.Sprintf("Merged Table %d", time.Now().UnixMilli())
	taken, err := s.groups.ExistsByName(ctx, name)
	if err != nil {
		return "", err
	}
	if taken {
		name = fmt.Sprintf("Merged Table %d", time.Now().UnixNano())
	}
	return name, nil
}

var onesWords = []string{"", "One", "Two", "Three", "Four", "Five", "Six", "Seven", "Eight", "Nine",
	"Ten", "Eleven", "Twelve", "Thirteen", "Fourteen", "Fifteen", "Sixteen", "Seventeen", "Eighteen", "Nineteen"}

var tensWords = []string{"", "", "Twenty", "Thirty", "Forty", "Fifty", "Sixty", "Seventy", "Eighty", "Ninety"}

// ordinalWord spells out 1..100 in English words.
func ordinalWord(n int) string {
	switch {
	case n <= 0:
		return fmt.Sprintf("%d", n)
	case n < 20:
		return onesWords[n]
	case n == 100:
		return "One Hundred"
	case n%10 == 0:
		return tensWords[n/10]
	case n < 100:
		return tensWords[n/10] + " " + onesWords[n%10]
	default:
		return fmt.Sprintf("%d", n)
	}
}
