//go:build integration

package repositories

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/mergetab/mergetab-engine/pkg/models"
	"github.com/mergetab/mergetab-engine/pkg/testhelpers"
)

type rowTestContext struct {
	t      *testing.T
	tdb    *testhelpers.TestDB
	groups GroupRepository
	rows   RowRepository
}

func setupRowTest(t *testing.T) *rowTestContext {
	tdb := testhelpers.GetTestDB(t)
	tdb.Truncate(t)
	return &rowTestContext{
		t:      t,
		tdb:    tdb,
		groups: NewGroupRepository(tdb.DB),
		rows:   NewRowRepository(tdb.DB),
	}
}

func (tc *rowTestContext) createGroup(name string, columns []string) uuid.UUID {
	tc.t.Helper()

	group := &models.TableGroup{
		Name:              name,
		SchemaFingerprint: "fp-" + name,
		ColumnCount:       len(columns),
		ConfidenceScore:   1.0,
	}
	if err := tc.groups.CreateWithSchema(context.Background(), group, columns); err != nil {
		tc.t.Fatalf("CreateWithSchema: %v", err)
	}
	return group.ID
}

func (tc *rowTestContext) insertRows(groupID uuid.UUID, n int) {
	tc.t.Helper()

	batch := make([]*models.DataRow, 0, n)
	for i := 0; i < n; i++ {
		gid := groupID
		batch = append(batch, &models.DataRow{
			GroupID:    &gid,
			SourceFile: "seed.xlsx",
			RowOrder:   int64(i),
			Data:       models.RowData{"name": fmt.Sprintf("row %d", i)},
		})
	}
	if err := tc.rows.InsertBatch(context.Background(), batch); err != nil {
		tc.t.Fatalf("InsertBatch: %v", err)
	}
}

func TestRowInsertBatchAndList(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	groupID := tc.createGroup("batch", []string{"name"})
	tc.insertRows(groupID, 5)

	rows, err := tc.rows.ListByGroup(ctx, groupID, 0, 0)
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	for i, r := range rows {
		if r.Data["name"] != fmt.Sprintf("row %d", i) {
			t.Errorf("row %d out of order: %v", i, r.Data)
		}
	}

	paged, err := tc.rows.ListByGroup(ctx, groupID, 2, 3)
	if err != nil {
		t.Fatalf("ListByGroup paged: %v", err)
	}
	if len(paged) != 2 || paged[0].Data["name"] != "row 3" {
		t.Errorf("page = %v", paged)
	}
}

func TestRowMaxOrderAndShift(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	groupID := tc.createGroup("order", []string{"name"})

	max, err := tc.rows.MaxOrder(ctx, groupID)
	if err != nil {
		t.Fatalf("MaxOrder: %v", err)
	}
	if max != -1 {
		t.Errorf("MaxOrder on empty group = %d, want -1", max)
	}

	tc.insertRows(groupID, 3)

	max, err = tc.rows.MaxOrder(ctx, groupID)
	if err != nil {
		t.Fatalf("MaxOrder: %v", err)
	}
	if max != 2 {
		t.Errorf("MaxOrder = %d, want 2", max)
	}

	if err := tc.rows.ShiftOrders(ctx, groupID, 1); err != nil {
		t.Fatalf("ShiftOrders: %v", err)
	}
	rows, _ := tc.rows.ListByGroup(ctx, groupID, 0, 0)
	if rows[1].RowOrder != 2 || rows[2].RowOrder != 3 {
		t.Errorf("orders after shift = %d, %d, %d", rows[0].RowOrder, rows[1].RowOrder, rows[2].RowOrder)
	}
}

func TestRowReassignGroup(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	from := tc.createGroup("from", []string{"name"})
	to := tc.createGroup("to", []string{"name"})
	tc.insertRows(from, 2)
	tc.insertRows(to, 3)

	moved, err := tc.rows.ReassignGroup(ctx, from, to)
	if err != nil {
		t.Fatalf("ReassignGroup: %v", err)
	}
	if moved != 2 {
		t.Errorf("moved %d rows, want 2", moved)
	}

	n, _ := tc.rows.CountByGroup(ctx, from)
	if n != 0 {
		t.Errorf("%d rows left behind", n)
	}

	rows, _ := tc.rows.ListByGroup(ctx, to, 0, 0)
	if len(rows) != 5 {
		t.Fatalf("destination has %d rows, want 5", len(rows))
	}
	// Moved rows land after the destination's existing rows.
	if rows[3].RowOrder <= rows[2].RowOrder {
		t.Errorf("moved rows did not append: orders %d, %d", rows[2].RowOrder, rows[3].RowOrder)
	}
}

func TestRowStripAndRenameColumnKey(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	groupID := tc.createGroup("jsonb", []string{"name", "city"})
	gid := groupID
	if err := tc.rows.Insert(ctx, &models.DataRow{
		GroupID:    &gid,
		SourceFile: "x.xlsx",
		Data:       models.RowData{"name": "Alice", "city": "Berlin"},
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := tc.rows.RenameColumnKey(ctx, groupID, "city", "location"); err != nil {
		t.Fatalf("RenameColumnKey: %v", err)
	}
	rows, _ := tc.rows.ListByGroup(ctx, groupID, 0, 0)
	if rows[0].Data["location"] != "Berlin" {
		t.Errorf("data after rename = %v", rows[0].Data)
	}
	if _, ok := rows[0].Data["city"]; ok {
		t.Error("old key survived the rename")
	}

	if err := tc.rows.StripColumn(ctx, groupID, "location"); err != nil {
		t.Fatalf("StripColumn: %v", err)
	}
	rows, _ = tc.rows.ListByGroup(ctx, groupID, 0, 0)
	if _, ok := rows[0].Data["location"]; ok {
		t.Errorf("stripped key survived: %v", rows[0].Data)
	}
	if rows[0].Data["name"] != "Alice" {
		t.Errorf("unrelated key damaged: %v", rows[0].Data)
	}
}

func TestRowSearch(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	groupID := tc.createGroup("search", []string{"name", "city"})
	gid := groupID
	seed := []models.RowData{
		{"name": "Alice", "city": "Shanghai"},
		{"name": "Bob", "city": "Shenzhen"},
		{"name": "Carol", "city": "Berlin"},
	}
	for i, data := range seed {
		if err := tc.rows.Insert(ctx, &models.DataRow{
			GroupID:    &gid,
			SourceFile: "seed.xlsx",
			RowOrder:   int64(i),
			Data:       data,
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	got, err := tc.rows.Search(ctx, "shen", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Data["name"] != "Bob" {
		t.Errorf("Search(shen) = %v", got)
	}

	// Case-insensitive.
	got, err = tc.rows.Search(ctx, "BERLIN", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Data["name"] != "Carol" {
		t.Errorf("Search(BERLIN) = %v", got)
	}
}

func TestRowDistinctSourceFiles(t *testing.T) {
	tc := setupRowTest(t)
	ctx := context.Background()

	groupID := tc.createGroup("files", []string{"name"})
	gid := groupID
	for i, file := range []string{"a.xlsx", "b.xlsx", "a.xlsx"} {
		if err := tc.rows.Insert(ctx, &models.DataRow{
			GroupID:    &gid,
			SourceFile: file,
			RowOrder:   int64(i),
			Data:       models.RowData{"name": "x"},
		}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	files, err := tc.rows.DistinctSourceFiles(ctx, groupID)
	if err != nil {
		t.Fatalf("DistinctSourceFiles: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("files = %v, want two distinct", files)
	}
}
