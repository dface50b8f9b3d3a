package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/nam-ha/human-detection-app/internal/models"
	"github.com/nam-ha/human-detection-app/internal/query"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addRecord(t *testing.T, s *HistoryStore, ts time.Time, numHumans int) *models.PredictionRecord {
	t.Helper()
	rec := &models.PredictionRecord{
		Time:            ts,
		QueryImageFile:  fmt.Sprintf("media/queries/%d.png", numHumans),
		ResultImageFile: fmt.Sprintf("media/results/%d.png", numHumans),
		NumHumans:       numHumans,
	}
	if err := s.Add(context.Background(), rec); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return rec
}

func TestDialector(t *testing.T) {
	tests := []struct {
		dsn     string
		driver  string
		wantErr bool
	}{
		{dsn: "postgres://u:p@localhost:5432/db", driver: "postgres"},
		{dsn: "postgresql://localhost/db", driver: "postgres"},
		{dsn: "host=localhost user=postgres dbname=db", driver: "postgres"},
		{dsn: "sqlite://history.db", driver: "sqlite"},
		{dsn: "file:history?mode=memory", driver: "sqlite"},
		{dsn: ":memory:", driver: "sqlite"},
		{dsn: "/var/lib/app/history.db", driver: "sqlite"},
		{dsn: "", wantErr: true},
		{dsn: "mysql-ish", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			d, err := Dialector(tt.dsn)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if d.Name() != tt.driver {
				t.Errorf("Expected driver %s, got %s", tt.driver, d.Name())
			}
		})
	}
}

func TestAddAssignsIDsAndTruncatesTime(t *testing.T) {
	s := newTestStore(t)
	ts := time.Date(2024, 5, 1, 8, 30, 15, 987654321, time.Local)

	first := addRecord(t, s, ts, 1)
	second := addRecord(t, s, ts, 2)

	if first.QueryID == 0 || second.QueryID <= first.QueryID {
		t.Errorf("Expected increasing ids, got %d then %d", first.QueryID, second.QueryID)
	}

	got, err := s.Get(context.Background(), first.QueryID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !got.Time.Equal(ts.Truncate(time.Second)) {
		t.Errorf("Expected time %v, got %v", ts.Truncate(time.Second), got.Time)
	}
	if got.NumHumans != 1 || got.QueryImageFile != "media/queries/1.png" {
		t.Errorf("Unexpected record: %+v", got)
	}
}

func TestGetUpdateDeleteNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Get, got %v", err)
	}
	if err := s.Update(ctx, 99, map[string]any{"num_humans": 3}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Update, got %v", err)
	}
	if err := s.Delete(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound from Delete, got %v", err)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	rec := addRecord(t, s, time.Now(), 1)

	if err := s.Update(ctx, rec.QueryID, map[string]any{"num_humans": 5}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	got, err := s.Get(ctx, rec.QueryID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.NumHumans != 5 {
		t.Errorf("Expected num_humans 5, got %d", got.NumHumans)
	}

	if err := s.Delete(ctx, rec.QueryID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get(ctx, rec.QueryID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestQueryNumHumansMin(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	for _, n := range []int{0, 1, 2, 3} {
		addRecord(t, s, now, n)
	}

	q := query.NewHistoryQuery()
	q.NumHumansMin = query.Some(2)

	records, total, err := s.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected total 2, got %d", total)
	}
	if len(records) != 2 || records[0].NumHumans != 2 || records[1].NumHumans != 3 {
		t.Errorf("Expected records with 2 and 3 humans, got %+v", records)
	}
}

func TestQueryPagination(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()
	var ids []uint
	for i := 0; i < 25; i++ {
		ids = append(ids, addRecord(t, s, now, i).QueryID)
	}

	q := query.NewHistoryQuery()
	q.PageIndex = 3
	q.PageSize = 10

	records, total, err := s.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 25 {
		t.Errorf("Expected total 25, got %d", total)
	}
	if len(records) != 5 {
		t.Fatalf("Expected 5 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.QueryID != ids[20+i] {
			t.Errorf("Expected record %d to have id %d, got %d", i, ids[20+i], rec.QueryID)
		}
	}

	q.PageIndex = 4
	records, total, err = s.Query(context.Background(), q)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 25 || len(records) != 0 {
		t.Errorf("Expected an empty page past the end with total 25, got %d records and total %d", len(records), total)
	}
}

func TestQueryFilters(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)
	a := addRecord(t, s, base, 1)
	addRecord(t, s, base.Add(time.Hour), 4)
	c := addRecord(t, s, base.Add(2*time.Hour), 2)

	tests := []struct {
		name  string
		set   func(*query.HistoryQuery)
		total int64
	}{
		{name: "none", set: func(q *query.HistoryQuery) {}, total: 3},
		{name: "query id", set: func(q *query.HistoryQuery) { q.QueryID = query.Some(int64(c.QueryID)) }, total: 1},
		{name: "time min inclusive", set: func(q *query.HistoryQuery) { q.TimeMin = query.Some(base.Add(time.Hour)) }, total: 2},
		{name: "time max inclusive", set: func(q *query.HistoryQuery) { q.TimeMax = query.Some(base) }, total: 1},
		{name: "negative query id", set: func(q *query.HistoryQuery) { q.QueryID = query.Some(int64(-1)) }, total: 0},
		{name: "num humans max", set: func(q *query.HistoryQuery) { q.NumHumansMax = query.Some(2) }, total: 2},
		{
			name: "conjunctive",
			set: func(q *query.HistoryQuery) {
				q.QueryID = query.Some(int64(a.QueryID))
				q.NumHumansMin = query.Some(2)
			},
			total: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := query.NewHistoryQuery()
			tt.set(&q)
			records, total, err := s.Query(context.Background(), q)
			if err != nil {
				t.Fatalf("Query failed: %v", err)
			}
			if total != tt.total || int64(len(records)) != tt.total {
				t.Errorf("Expected %d records, got total %d and %d records", tt.total, total, len(records))
			}
		})
	}
}

func TestAllIgnoresPagination(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 12; i++ {
		addRecord(t, s, time.Now(), i%3)
	}

	q := query.NewHistoryQuery()
	q.PageSize = 5
	q.NumHumansMin = query.Some(1)

	records, err := s.All(context.Background(), q)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(records) != 8 {
		t.Errorf("Expected 8 records, got %d", len(records))
	}
}
