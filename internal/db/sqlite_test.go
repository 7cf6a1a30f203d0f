package db

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestOpenSQLiteLogsThroughZap(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gdb, err := OpenSQLite("file:gormlog?mode=memory&cache=shared", zap.New(core))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	defer sqlDB.Close()

	if err := gdb.Exec("SELECT * FROM no_such_table").Error; err == nil {
		t.Fatal("expected an error from a missing table")
	}

	failed := logs.FilterMessage("sql failed").All()
	if len(failed) != 1 {
		t.Fatalf("expected one sql failure logged, got %d", len(failed))
	}
	if failed[0].Level != zapcore.ErrorLevel {
		t.Errorf("expected error level, got %v", failed[0].Level)
	}
	if failed[0].LoggerName != "gorm" {
		t.Errorf("expected the gorm logger name, got %q", failed[0].LoggerName)
	}

	logs.TakeAll()
	if err := gdb.Exec("CREATE TABLE IF NOT EXISTS empty_rows (id integer)").Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	var row struct{ ID int }
	err = gdb.Table("empty_rows").First(&row).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
	if n := logs.FilterMessage("sql failed").Len(); n != 0 {
		t.Errorf("expected a lookup miss to stay quiet, got %d failures", n)
	}
}
