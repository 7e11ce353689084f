// Package dbtest opens throwaway SQLite databases carrying the service schema
// for repository and service tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  external_id TEXT,
  order_number TEXT NOT NULL,
  platform TEXT NOT NULL DEFAULT 'manual',
  customer_name TEXT,
  customer_email TEXT,
  customer_phone TEXT,
  total_amount TEXT,
  currency TEXT NOT NULL DEFAULT 'ILS',
  weight INTEGER,
  shipping_address TEXT,
  notes TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  order_date DATETIME NOT NULL,
  deleted_at DATETIME,
  deleted_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_user_platform_external_uniq ON orders (user_id, platform, external_id);`,
	`CREATE TABLE IF NOT EXISTS order_logs (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  activity_type TEXT NOT NULL,
  details TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  hfd_shipment_number TEXT NOT NULL,
  tracking_number TEXT,
  status TEXT NOT NULL DEFAULT 'created',
  shipment_data TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS carrier_settings (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  client_number TEXT NOT NULL,
  token_ciphertext TEXT NOT NULL,
  shipment_type_code TEXT NOT NULL,
  cargo_type_code TEXT NOT NULL,
  sender_name TEXT,
  sender_street TEXT,
  sender_city TEXT,
  sender_zip TEXT,
  sender_phone TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  auto_dispatch INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
}

// Open returns an isolated in-memory database with every table created.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}
