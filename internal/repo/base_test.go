package repo

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type widget struct {
	ID   int64
	Name string
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

func TestBaseDBBindsContext(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	ctx := context.WithValue(context.Background(), struct{}{}, "value")
	withCtx := base.DB(ctx)
	if withCtx.Statement == nil || withCtx.Statement.Context != ctx {
		t.Fatalf("expected context to flow through")
	}
	if base.DB(nil) != db {
		t.Fatalf("expected nil context to return raw connection")
	}
}

func TestBaseBindUsesTransaction(t *testing.T) {
	db := newTestDB(t)
	base := NewBase(db)

	err := db.Transaction(func(tx *gorm.DB) error {
		bound := base.Bind(tx)
		if bound.DB(nil) != tx {
			t.Fatalf("bound base should run on the transaction")
		}
		return bound.DB(context.Background()).Create(&widget{Name: "bolt"}).Error
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if base.DB(nil) != db {
		t.Fatalf("Bind must not modify the original base")
	}
}

func TestTakeOptional(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&widget{Name: "nut"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	found, err := TakeOptional[widget](db, "name = ?", "nut")
	if err != nil || found == nil || found.Name != "nut" {
		t.Fatalf("expected widget, got %+v %v", found, err)
	}
	missing, err := TakeOptional[widget](db, "name = ?", "washer")
	if err != nil || missing != nil {
		t.Fatalf("expected nil without error, got %+v %v", missing, err)
	}
}
