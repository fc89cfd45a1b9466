// Package dbtest opens an in-memory SQLite database carrying the full schema.
package dbtest

import (
	"time"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/audit"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/payment"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/wallet"
	"github.com/oneroskilfu/ireva-app-sub001/internal/core/datamodel/webhook"
)

// Open returns a gorm handle and an sqlx handle over the same single connection.
// One connection keeps every caller on the same in-memory database.
func Open() (*gorm.DB, *sqlx.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(
		&payment.PaymentTransaction{},
		&wallet.WalletAccount{},
		&wallet.LedgerEntry{},
		&audit.AdminAuditEntry{},
		&webhook.Event{},
	); err != nil {
		return nil, nil, err
	}

	return db, sqlx.NewDb(sqlDB, "sqlite3"), nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
