package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDB(dsn string, zlog *zap.Logger) (*gorm.DB, error) {
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true, // transaction-mode poolers reject implicit prepared statements
	}), &gorm.Config{
		Logger:      gormLogger,
		PrepareStmt: false,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	zlog.Info("database connection established")
	return db, nil
}

// stockProcedure decrements a product's stock in a single statement.
const stockProcedure = `
CREATE OR REPLACE FUNCTION decrement_stock(p_product_id uuid, p_quantity numeric)
RETURNS void AS $$
BEGIN
	UPDATE products SET stock = stock - p_quantity, updated_at = NOW()
	WHERE id = p_product_id;
END;
$$ LANGUAGE plpgsql;`

// EnsureStockProcedure installs decrement_stock. When the role cannot create
// functions the sale committer falls back to read-modify-write.
func EnsureStockProcedure(db *gorm.DB, zlog *zap.Logger) {
	if err := db.Exec(stockProcedure).Error; err != nil {
		zlog.Warn("decrement_stock procedure unavailable, stock updates will use the fallback path", zap.Error(err))
		return
	}
	zlog.Info("decrement_stock procedure installed")
}
