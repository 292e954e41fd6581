package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mergetab/mergetab-engine/pkg/apperrors"
	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/repositories"
)

// fakeState is the in-memory backing store shared by the fake repositories
// used in service tests.
type fakeState struct {
	mu       sync.Mutex
	groups   map[uuid.UUID]*models.TableGroup
	columns  map[uuid.UUID][]*models.SchemaColumn
	rows     map[uuid.UUID]*models.DataRow
	mappings map[uuid.UUID]*models.ColumnMapping
	uploads  []*models.UploadRecord
	seq      int
}

func newFakeState() *fakeState {
	return &fakeState{
		groups:   make(map[uuid.UUID]*models.TableGroup),
		columns:  make(map[uuid.UUID][]*models.SchemaColumn),
		rows:     make(map[uuid.UUID]*models.DataRow),
		mappings: make(map[uuid.UUID]*models.ColumnMapping),
	}
}

func (s *fakeState) sortedGroups() []*models.TableGroup {
	out := make([]*models.TableGroup, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *fakeState) groupRows(groupID uuid.UUID) []*models.DataRow {
	var out []*models.DataRow
	for _, r := range s.rows {
		if r.GroupID != nil && *r.GroupID == groupID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RowOrder < out[j].RowOrder })
	return out
}

// ---- GroupRepository ----

type fakeGroupRepo struct{ s *fakeState }

var _ repositories.GroupRepository = (*fakeGroupRepo)(nil)

func (f *fakeGroupRepo) CreateWithSchema(_ context.Context, group *models.TableGroup, columns []string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	group.ID = uuid.New()
	f.s.seq++
	group.CreatedAt = time.Now().Add(time.Duration(f.s.seq) * time.Microsecond)
	group.UpdatedAt = group.CreatedAt
	f.s.groups[group.ID] = group

	for i, name := range columns {
		f.s.columns[group.ID] = append(f.s.columns[group.ID], &models.SchemaColumn{
			ID:          uuid.New(),
			GroupID:     group.ID,
			ColumnName:  name,
			ColumnOrder: i,
			State:       models.ColumnStateActive,
			CreatedAt:   group.CreatedAt,
		})
	}
	return nil
}

func (f *fakeGroupRepo) GetByID(_ context.Context, groupID uuid.UUID) (*models.TableGroup, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	g, ok := f.s.groups[groupID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return g, nil
}

func (f *fakeGroupRepo) ListAll(_ context.Context) ([]*models.TableGroup, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return f.s.sortedGroups(), nil
}

func (f *fakeGroupRepo) ListByColumnCount(_ context.Context, n int) ([]*models.TableGroup, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.TableGroup
	for _, g := range f.s.sortedGroups() {
		if g.ColumnCount == n {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) ListByFingerprint(_ context.Context, fp string, n int) ([]*models.TableGroup, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.TableGroup
	for _, g := range f.s.sortedGroups() {
		if g.SchemaFingerprint == fp && g.ColumnCount == n {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) UpdateConfidence(_ context.Context, groupID uuid.UUID, confidence float64, fileCount int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	g, ok := f.s.groups[groupID]
	if !ok {
		return apperrors.ErrNotFound
	}
	g.ConfidenceScore = confidence
	g.FileCount = fileCount
	return nil
}

func (f *fakeGroupRepo) UpdateFingerprint(_ context.Context, groupID uuid.UUID, fp string, n int) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	g, ok := f.s.groups[groupID]
	if !ok {
		return apperrors.ErrNotFound
	}
	g.SchemaFingerprint = fp
	g.ColumnCount = n
	return nil
}

func (f *fakeGroupRepo) Rename(_ context.Context, groupID uuid.UUID, name, description string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	g, ok := f.s.groups[groupID]
	if !ok {
		return apperrors.ErrNotFound
	}
	g.Name = name
	g.Description = description
	return nil
}

func (f *fakeGroupRepo) Delete(_ context.Context, groupID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.groups[groupID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.s.groups, groupID)
	delete(f.s.columns, groupID)
	for id, r := range f.s.rows {
		if r.GroupID != nil && *r.GroupID == groupID {
			delete(f.s.rows, id)
		}
	}
	return nil
}

func (f *fakeGroupRepo) ExistsByName(_ context.Context, name string) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, g := range f.s.groups {
		if g.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGroupRepo) Count(_ context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.groups), nil
}

// ---- SchemaRepository ----

type fakeSchemaRepo struct{ s *fakeState }

var _ repositories.SchemaRepository = (*fakeSchemaRepo)(nil)

func (f *fakeSchemaRepo) ListActive(_ context.Context, groupID uuid.UUID) ([]*models.SchemaColumn, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.SchemaColumn
	for _, c := range f.s.columns[groupID] {
		if c.Active() {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ColumnOrder < out[j].ColumnOrder })
	return out, nil
}

func (f *fakeSchemaRepo) ActiveNames(ctx context.Context, groupID uuid.UUID) ([]string, error) {
	cols, err := f.ListActive(ctx, groupID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, c := range cols {
		names = append(names, c.ColumnName)
	}
	return names, nil
}

func (f *fakeSchemaRepo) CountActive(ctx context.Context, groupID uuid.UUID) (int, error) {
	cols, err := f.ListActive(ctx, groupID)
	return len(cols), err
}

func (f *fakeSchemaRepo) Add(_ context.Context, groupID uuid.UUID, name string, position int) (*models.SchemaColumn, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	maxOrder := -1
	for _, c := range f.s.columns[groupID] {
		if c.Active() {
			if c.ColumnName == name {
				return nil, apperrors.ErrColumnExists
			}
			if c.ColumnOrder > maxOrder {
				maxOrder = c.ColumnOrder
			}
		}
	}

	if position < 0 {
		position = maxOrder + 1
	} else {
		for _, c := range f.s.columns[groupID] {
			if c.Active() && c.ColumnOrder >= position {
				c.ColumnOrder++
			}
		}
	}

	col := &models.SchemaColumn{
		ID:          uuid.New(),
		GroupID:     groupID,
		ColumnName:  name,
		ColumnOrder: position,
		State:       models.ColumnStateActive,
		CreatedAt:   time.Now(),
	}
	f.s.columns[groupID] = append(f.s.columns[groupID], col)
	return col, nil
}

func (f *fakeSchemaRepo) Rename(_ context.Context, groupID uuid.UUID, oldName, newName string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, c := range f.s.columns[groupID] {
		if c.Active() && c.ColumnName == oldName {
			c.ColumnName = newName
			return nil
		}
	}
	return apperrors.ErrNotFound
}

func (f *fakeSchemaRepo) Retire(_ context.Context, groupID uuid.UUID, name string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	active := 0
	for _, c := range f.s.columns[groupID] {
		if c.Active() {
			active++
		}
	}
	if active <= 1 {
		return apperrors.ErrLastColumn
	}

	for _, c := range f.s.columns[groupID] {
		if c.Active() && c.ColumnName == name {
			c.State = models.ColumnStateRetired
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// ---- RowRepository ----

type fakeRowRepo struct{ s *fakeState }

var _ repositories.RowRepository = (*fakeRowRepo)(nil)

func (f *fakeRowRepo) Insert(_ context.Context, row *models.DataRow) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	row.ID = uuid.New()
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	f.s.rows[row.ID] = row
	return nil
}

func (f *fakeRowRepo) InsertBatch(ctx context.Context, rows []*models.DataRow) error {
	for _, r := range rows {
		if err := f.Insert(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeRowRepo) GetByID(_ context.Context, rowID uuid.UUID) (*models.DataRow, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.rows[rowID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r, nil
}

func (f *fakeRowRepo) ListByGroup(_ context.Context, groupID uuid.UUID, limit, offset int) ([]*models.DataRow, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	rows := f.s.groupRows(groupID)
	if limit <= 0 {
		return rows, nil
	}
	if offset >= len(rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end], nil
}

func (f *fakeRowRepo) CountByGroup(_ context.Context, groupID uuid.UUID) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.groupRows(groupID)), nil
}

func (f *fakeRowRepo) CountAll(_ context.Context) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	return len(f.s.rows), nil
}

func (f *fakeRowRepo) MaxOrder(_ context.Context, groupID uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	max := int64(-1)
	for _, r := range f.s.groupRows(groupID) {
		if r.RowOrder > max {
			max = r.RowOrder
		}
	}
	return max, nil
}

func (f *fakeRowRepo) ShiftOrders(_ context.Context, groupID uuid.UUID, from int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.groupRows(groupID) {
		if r.RowOrder >= from {
			r.RowOrder++
		}
	}
	return nil
}

func (f *fakeRowRepo) UpdateData(_ context.Context, rowID uuid.UUID, data models.RowData) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	r, ok := f.s.rows[rowID]
	if !ok {
		return apperrors.ErrNotFound
	}
	r.Data = data
	return nil
}

func (f *fakeRowRepo) Delete(_ context.Context, rowID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if _, ok := f.s.rows[rowID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(f.s.rows, rowID)
	return nil
}

func (f *fakeRowRepo) DeleteByGroup(_ context.Context, groupID uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var n int64
	for id, r := range f.s.rows {
		if r.GroupID != nil && *r.GroupID == groupID {
			delete(f.s.rows, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeRowRepo) ReassignGroup(_ context.Context, fromGroup, toGroup uuid.UUID) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()

	base := int64(-1)
	for _, r := range f.s.groupRows(toGroup) {
		if r.RowOrder > base {
			base = r.RowOrder
		}
	}

	var n int64
	for _, r := range f.s.groupRows(fromGroup) {
		g := toGroup
		r.GroupID = &g
		base++
		r.RowOrder = base
		n++
	}
	return n, nil
}

func (f *fakeRowRepo) StripColumn(_ context.Context, groupID uuid.UUID, column string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.groupRows(groupID) {
		delete(r.Data, column)
	}
	return nil
}

func (f *fakeRowRepo) RenameColumnKey(_ context.Context, groupID uuid.UUID, oldName, newName string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, r := range f.s.groupRows(groupID) {
		if v, ok := r.Data[oldName]; ok {
			delete(r.Data, oldName)
			r.Data[newName] = v
		}
	}
	return nil
}

func (f *fakeRowRepo) Search(_ context.Context, term string, limit int) ([]*models.DataRow, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	lower := strings.ToLower(term)
	var out []*models.DataRow
	for _, r := range f.s.rows {
		for _, v := range r.Data {
			if strings.Contains(strings.ToLower(v), lower) {
				out = append(out, r)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRowRepo) DistinctSourceFiles(_ context.Context, groupID uuid.UUID) ([]string, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.s.groupRows(groupID) {
		if !seen[r.SourceFile] {
			seen[r.SourceFile] = true
			out = append(out, r.SourceFile)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ---- MappingRepository ----

type fakeMappingRepo struct{ s *fakeState }

var _ repositories.MappingRepository = (*fakeMappingRepo)(nil)

func (f *fakeMappingRepo) CreateBatch(_ context.Context, mappings []*models.ColumnMapping) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	for _, m := range mappings {
		m.ID = uuid.New()
		m.CreatedAt = time.Now()
		f.s.mappings[m.ID] = m
	}
	return nil
}

func (f *fakeMappingRepo) ListByGroup(_ context.Context, groupID uuid.UUID) ([]*models.ColumnMapping, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	var out []*models.ColumnMapping
	for _, m := range f.s.mappings {
		if m.GroupID == groupID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OriginalColumn < out[j].OriginalColumn })
	return out, nil
}

func (f *fakeMappingRepo) Confirm(_ context.Context, mappingID uuid.UUID) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	m, ok := f.s.mappings[mappingID]
	if !ok {
		return apperrors.ErrNotFound
	}
	m.Confirmed = true
	return nil
}

// ---- HistoryRepository ----

type fakeHistoryRepo struct{ s *fakeState }

var _ repositories.HistoryRepository = (*fakeHistoryRepo)(nil)

func (f *fakeHistoryRepo) Create(_ context.Context, record *models.UploadRecord) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	record.ID = uuid.New()
	record.CreatedAt = time.Now()
	f.s.uploads = append(f.s.uploads, record)
	return nil
}

func (f *fakeHistoryRepo) List(_ context.Context, limit int) ([]*models.UploadRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	out := make([]*models.UploadRecord, len(f.s.uploads))
	copy(out, f.s.uploads)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeHistoryRepo) CountByStatus(_ context.Context, status string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	n := 0
	for _, u := range f.s.uploads {
		if u.Status == status {
			n++
		}
	}
	return n, nil
}
