package messages

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDB struct {
	sql  string
	args []any
	err  error
	row  pgx.Row
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func (f *fakeDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

type fakeRow struct {
	val bool
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*bool) = r.val
	return nil
}

func TestMarkHasAudio(t *testing.T) {
	db := &fakeDB{}
	s := NewStore(db, "prepit_chat_msg")

	if err := s.MarkHasAudio(context.Background(), "th-1", 1719792000123); err != nil {
		t.Fatalf("MarkHasAudio: %v", err)
	}

	if !strings.Contains(db.sql, `INSERT INTO "prepit_chat_msg"`) {
		t.Errorf("sql does not target quoted table: %s", db.sql)
	}
	if !strings.Contains(db.sql, "ON CONFLICT (thread_id, created_at)") {
		t.Errorf("sql is not an upsert: %s", db.sql)
	}
	if want := []any{"th-1", "1719792000123"}; !reflect.DeepEqual(db.args, want) {
		t.Errorf("args = %v, want %v", db.args, want)
	}
}

func TestMarkHasAudio_Error(t *testing.T) {
	s := NewStore(&fakeDB{err: errors.New("conn refused")}, "msgs")
	if err := s.MarkHasAudio(context.Background(), "t", 1); err == nil {
		t.Error("expected error")
	}
}

func TestHasAudio(t *testing.T) {
	tests := []struct {
		name    string
		row     fakeRow
		want    bool
		wantErr bool
	}{
		{"flagged", fakeRow{val: true}, true, false},
		{"missing row", fakeRow{err: pgx.ErrNoRows}, false, false},
		{"db error", fakeRow{err: errors.New("boom")}, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(&fakeDB{row: tt.row}, "msgs")
			got, err := s.HasAudio(context.Background(), "t", 5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HasAudio = %v, want %v", got, tt.want)
			}
		})
	}
}
