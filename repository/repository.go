package repository

import (
	"errors"
	"fmt"
	"time"

	cmtlog "github.com/cometbft/cometbft/libs/log"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ahmadzakiakmal/shiptrack/repository/models"
)

// PostgreSQL error codes
const (
	PgErrUniqueViolation = "23505"
)

// Supported database dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const defaultListLimit = 50

// RepositoryError represents repository layer errors
type RepositoryError struct {
	Code    string
	Message string
	Detail  string
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Detail)
}

// Repository handles all shipment database operations
type Repository struct {
	db         *gorm.DB
	logger     cmtlog.Logger
	attempts   int
	retryDelay time.Duration
}

// NewRepository creates a new repository instance
func NewRepository(logger cmtlog.Logger) *Repository {
	if logger == nil {
		logger = cmtlog.NewNopLogger()
	}
	return &Repository{
		logger:     logger,
		attempts:   10,
		retryDelay: 2 * time.Second,
	}
}

// SetRetry overrides how often and how far apart ConnectDB retries
func (r *Repository) SetRetry(attempts int, delay time.Duration) {
	if attempts < 1 {
		attempts = 1
	}
	r.attempts = attempts
	r.retryDelay = delay
}

func dialector(dialect, dsn string) (gorm.Dialector, error) {
	switch dialect {
	case DialectPostgres, "":
		return postgres.Open(dsn), nil
	case DialectSQLite:
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database dialect %q", dialect)
	}
}

// ConnectDB establishes database connection and performs migrations
func (r *Repository) ConnectDB(dialect, dsn string) error {
	dial, err := dialector(dialect, dsn)
	if err != nil {
		return err
	}
	cfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	}
	for i := 0; i < r.attempts; i++ {
		r.logger.Info("Database connection attempt", "attempt", i+1, "dialect", dialect)
		db, err := gorm.Open(dial, cfg)
		if err != nil {
			r.logger.Error("Database connection attempt failed", "attempt", i+1, "err", err)
			time.Sleep(r.retryDelay)
			continue
		}
		r.db = db
		r.logger.Info("Connected to database", "dialect", dialect)

		if err := r.Migrate(); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("failed to connect to database after %d attempts", r.attempts)
}

// Migrate performs database schema migrations
func (r *Repository) Migrate() error {
	migrator := r.db.Migrator()

	// Order matters due to foreign keys
	tables := []interface{}{
		&models.Shipment{},
		&models.Label{},
	}

	for _, table := range tables {
		if !migrator.HasTable(table) {
			if err := migrator.CreateTable(table); err != nil {
				return fmt.Errorf("failed to create table: %w", err)
			}
		}
	}

	r.logger.Info("Database migrations completed")
	return nil
}

// Close closes the underlying connection pool
func (r *Repository) Close() error {
	if r.db == nil {
		return nil
	}
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == PgErrUniqueViolation
}

func duplicateShipment(trackingID string) *RepositoryError {
	return &RepositoryError{
		Code:    "DUPLICATE",
		Message: "Shipment already exists",
		Detail:  fmt.Sprintf("Shipment %s already stored", trackingID),
	}
}

// CreateShipment stores a shipment and its label in one transaction
func (r *Repository) CreateShipment(shipment *models.Shipment, label *models.Label) *RepositoryError {
	dbTx := r.db.Begin()
	if dbTx.Error != nil {
		return &RepositoryError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to begin transaction",
			Detail:  dbTx.Error.Error(),
		}
	}

	var existing int64
	if err := dbTx.Model(&models.Shipment{}).Where("tracking_id = ?", shipment.TrackingID).Count(&existing).Error; err != nil {
		dbTx.Rollback()
		return &RepositoryError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to check shipment",
			Detail:  err.Error(),
		}
	}
	if existing > 0 {
		dbTx.Rollback()
		return duplicateShipment(shipment.TrackingID)
	}

	if err := dbTx.Omit("Label").Create(shipment).Error; err != nil {
		dbTx.Rollback()
		if isDuplicate(err) {
			return duplicateShipment(shipment.TrackingID)
		}
		return &RepositoryError{
			Code:    "CREATE_FAILED",
			Message: "Failed to create shipment",
			Detail:  err.Error(),
		}
	}

	if label != nil {
		label.TrackingID = shipment.TrackingID
		if err := dbTx.Create(label).Error; err != nil {
			dbTx.Rollback()
			if isDuplicate(err) {
				return duplicateShipment(shipment.TrackingID)
			}
			return &RepositoryError{
				Code:    "CREATE_FAILED",
				Message: "Failed to create label",
				Detail:  err.Error(),
			}
		}
		shipment.Label = label
	}

	if err := dbTx.Commit().Error; err != nil {
		if isDuplicate(err) {
			return duplicateShipment(shipment.TrackingID)
		}
		return &RepositoryError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to commit transaction",
			Detail:  err.Error(),
		}
	}
	return nil
}

// GetShipment retrieves a shipment and its label by tracking identifier
func (r *Repository) GetShipment(trackingID string) (*models.Shipment, *RepositoryError) {
	var shipment models.Shipment
	err := r.db.Preload("Label").
		Where("tracking_id = ?", trackingID).
		First(&shipment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &RepositoryError{
				Code:    "NOT_FOUND",
				Message: "Shipment not found",
				Detail:  fmt.Sprintf("Shipment %s does not exist", trackingID),
			}
		}
		return nil, &RepositoryError{
			Code:    "DATABASE_ERROR",
			Message: "Database error",
			Detail:  err.Error(),
		}
	}
	return &shipment, nil
}

// ListShipments returns the most recently stored shipments first
func (r *Repository) ListShipments(limit int) ([]models.Shipment, *RepositoryError) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var shipments []models.Shipment
	err := r.db.Preload("Label").
		Order("created_at DESC").
		Order("tracking_id").
		Limit(limit).
		Find(&shipments).Error
	if err != nil {
		return nil, &RepositoryError{
			Code:    "DATABASE_ERROR",
			Message: "Failed to list shipments",
			Detail:  err.Error(),
		}
	}
	return shipments, nil
}
