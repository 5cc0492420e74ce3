package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBaseDBContextBinding(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	base := NewBase(conn)

	ctx := context.WithValue(context.Background(), struct{}{}, "marker")
	bound := base.DB(ctx)
	if bound == nil || bound.Statement == nil {
		t.Fatal("expected a session with a statement")
	}
	if bound.Statement.Context != ctx {
		t.Fatalf("context not bound, got %v", bound.Statement.Context)
	}

	if raw := base.DB(nil); raw != conn {
		t.Fatal("nil context should return the raw handle")
	}
}
