package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return newStore(db, postgresDialect, "postgres://agriref@db/agriref"), mock
}

func TestRebindNumbersPlaceholders(t *testing.T) {
	query := "SELECT 1 FROM field_day WHERE field_id = ? AND date < ?"
	if got := sqliteDialect.rebind(query); got != query {
		t.Fatalf("sqlite rebind changed query: %q", got)
	}
	want := "SELECT 1 FROM field_day WHERE field_id = $1 AND date < $2"
	if got := postgresDialect.rebind(query); got != want {
		t.Fatalf("postgres rebind: got %q want %q", got, want)
	}
}

func TestColumnSetInsertSkipsNulls(t *testing.T) {
	phase := 12
	var missing *int
	set := &columnSet{}
	set.add("field_id", int64(1))
	addOptional(set, "bbch_phase", &phase)
	addOptional(set, "precip", missing)
	set.addBytes("s2_data", []byte{1})

	query, args := set.insert(postgresDialect, "field_day")
	want := "INSERT INTO field_day (field_id, bbch_phase, s2_data) VALUES ($1, $2, $3)"
	if query != want {
		t.Fatalf("insert: got %q want %q", query, want)
	}
	if len(args) != 3 || args[1] != 12 {
		t.Fatalf("unexpected args: %v", args)
	}

	assignments, args := set.coalesce(sqliteDialect, 0)
	wantSet := "field_id = COALESCE(?, field_id), bbch_phase = COALESCE(?, bbch_phase), precip = COALESCE(?, precip), s2_data = COALESCE(?, s2_data)"
	if assignments != wantSet {
		t.Fatalf("coalesce: got %q want %q", assignments, wantSet)
	}
	if len(args) != 4 || args[2] != nil {
		t.Fatalf("expected nil argument for missing column, got %v", args)
	}
}

func TestPostgresInsertDayRecord(t *testing.T) {
	st, mock := newMockStore(t)
	phase, precip := 12, 3

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(1) FROM field_day WHERE field_id = $1 AND date = $2").
		WithArgs(int64(7), "2023-01-02").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO field_day (field_id, date, bbch_phase, precip) VALUES ($1, $2, $3, $4)").
		WithArgs(int64(7), "2023-01-02", int64(12), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	inserted, err := st.InsertDayRecord(context.Background(), &DayRecord{FieldID: 7, Date: "2023-01-02", BBCHPhase: &phase, Precip: &precip})
	if err != nil {
		t.Fatalf("InsertDayRecord: %v", err)
	}
	if !inserted {
		t.Fatal("expected row to be inserted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresInsertDayRecordRaceIsSkip(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT COUNT(1) FROM field_day WHERE field_id = $1 AND date = $2").
		WithArgs(int64(7), "2023-01-02").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO field_day (field_id, date) VALUES ($1, $2)").
		WithArgs(int64(7), "2023-01-02").
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	inserted, err := st.InsertDayRecord(context.Background(), &DayRecord{FieldID: 7, Date: "2023-01-02"})
	if err != nil {
		t.Fatalf("InsertDayRecord: %v", err)
	}
	if inserted {
		t.Fatal("expected unique violation to be treated as an existing row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresUpdateDayRecordUsesCoalesce(t *testing.T) {
	st, mock := newMockStore(t)
	valid := true

	columns := []string{
		"size", "bbch_phase", "bbch_sim",
		"bsc_data", "bsc_interp_data", "bsc_valid",
		"coh_data", "coh_interp_data", "coh_valid",
		"s2_data", "s2_interp_data", "s2_valid",
		"temp_min", "temp_max", "temp_mean", "precip",
	}
	parts := make([]string, len(columns))
	args := make([]driver.Value, 0, len(columns)+2)
	for i, col := range columns {
		parts[i] = col + " = COALESCE(" + postgresDialect.placeholder(i+1) + ", " + col + ")"
		if col == "coh_valid" {
			args = append(args, true)
			continue
		}
		args = append(args, nil)
	}
	args = append(args, int64(9), "2023-06-01")
	query := "UPDATE field_day SET " + strings.Join(parts, ", ") + " WHERE field_id = $17 AND date = $18"

	mock.ExpectExec(query).WithArgs(args...).WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &DayRecord{FieldID: 9, Date: "2023-06-01"}
	rec.SetObservation("coh", Observation{Valid: &valid})
	ok, err := st.UpdateDayRecord(context.Background(), rec)
	if err != nil {
		t.Fatalf("UpdateDayRecord: %v", err)
	}
	if !ok {
		t.Fatal("expected update to report an existing row")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUniqueViolationDetection(t *testing.T) {
	if !postgresDialect.isUniqueViolation(&pq.Error{Code: "23505"}) {
		t.Fatal("expected pq 23505 to be a unique violation")
	}
	if postgresDialect.isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Fatal("foreign key violation is not a unique violation")
	}
	if !sqliteDialect.isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: field_day.field_id, field_day.date (2067)")) {
		t.Fatal("expected sqlite unique message to match")
	}
	if sqliteDialect.isUniqueViolation(nil) {
		t.Fatal("nil is not a violation")
	}
}

func TestRedactDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://agriref:secret@db:5432/agriref?sslmode=disable": "postgres://agriref@db:5432/agriref",
		"host=db user=agriref password=secret":                       "postgres",
	}
	for in, want := range cases {
		if got := redactDSN(in); got != want {
			t.Fatalf("redactDSN(%q): got %q want %q", in, got, want)
		}
	}
}
