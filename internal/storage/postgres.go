package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cargocalc-bot/internal/config"
	"cargocalc-bot/internal/pricing"
	"cargocalc-bot/pkg/redis"

	"github.com/cenkalti/backoff/v4"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

type PostgresStorage struct {
	db     *sqlx.DB
	redis  *redis.Client
	logger *zap.Logger
}

type Factory struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	Contact   string    `db:"contact"`
	CreatedAt time.Time `db:"created_at"`
}

type Position struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	ProductName string    `db:"product_name"`
	CreatedAt   time.Time `db:"created_at"`
}

type Calculation struct {
	ID                int64           `db:"id"`
	PositionID        int64           `db:"position_id"`
	FactoryID         sql.NullInt64   `db:"factory_id"`
	FactoryCustomName sql.NullString  `db:"factory_custom_name"`
	Category          string          `db:"category"`
	Quantity          int             `db:"quantity"`
	WeightKg          float64         `db:"weight_kg"`
	UnitPriceYuan     float64         `db:"unit_price_yuan"`
	Markup            float64         `db:"markup"`
	CustomLogistics   json.RawMessage `db:"custom_logistics"`
	Result            json.RawMessage `db:"result"`
	State             string          `db:"state"`
	CreatedAt         time.Time       `db:"created_at"`
}

type categoryRow struct {
	Name                  string         `db:"name"`
	RailBase              float64        `db:"rail_base"`
	AirBase               float64        `db:"air_base"`
	DutyRate              float64        `db:"duty_rate"`
	VATRate               float64        `db:"vat_rate"`
	Keywords              pq.StringArray `db:"keywords"`
	RequiresLogisticsRate bool           `db:"requires_logistics_rate"`
	RequiresDutyRate      bool           `db:"requires_duty_rate"`
	RequiresVATRate       bool           `db:"requires_vat_rate"`
	SortOrder             int            `db:"sort_order"`
}

func NewPostgresStorage(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*PostgresStorage, error) {
	const operation = "storage.NewPostgresStorage"

	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost,
		cfg.DBPort,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
	)

	var db *sqlx.DB
	var err error

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = 2 * time.Minute
	retryPolicy.MaxInterval = 15 * time.Second

	logger.Info("Connecting to PostgreSQL...")

	err = backoff.RetryNotify(
		func() error {
			db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			if err = db.PingContext(ctx); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			return nil
		},
		retryPolicy,
		func(err error, duration time.Duration) {
			logger.Warn("PostgreSQL connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)

	if err != nil {
		return nil, fmt.Errorf("%s: failed to connect after retries: %w", operation, err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	logger.Info("Successfully connected to PostgreSQL")
	return &PostgresStorage{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// GetCategories loads the category registry rows in their explicit
// sort order. The registry is built from these once at startup.
func (s *PostgresStorage) GetCategories(ctx context.Context) ([]pricing.Category, error) {
	const query = `
        SELECT name, rail_base, air_base, duty_rate, vat_rate, keywords,
               requires_logistics_rate, requires_duty_rate, requires_vat_rate, sort_order
        FROM categories
        ORDER BY sort_order
    `

	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	categories := make([]pricing.Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, pricing.Category{
			Name:     row.Name,
			RailBase: row.RailBase,
			AirBase:  row.AirBase,
			DutyRate: row.DutyRate,
			VATRate:  row.VATRate,
			Keywords: row.Keywords,
			Requirements: pricing.Requirements{
				RequiresLogisticsRate: row.RequiresLogisticsRate,
				RequiresDutyRate:      row.RequiresDutyRate,
				RequiresVATRate:       row.RequiresVATRate,
			},
		})
	}
	return categories, nil
}

func (s *PostgresStorage) CreateFactory(ctx context.Context, name, contact string) (int64, error) {
	const query = `
        INSERT INTO factories (name, contact, created_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `

	var id int64
	err := s.db.QueryRowContext(ctx, query, name, contact, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create factory: %w", err)
	}
	return id, nil
}

func (s *PostgresStorage) ListFactories(ctx context.Context) ([]Factory, error) {
	const query = `SELECT id, name, contact, created_at FROM factories ORDER BY name`

	var factories []Factory
	if err := s.db.SelectContext(ctx, &factories, query); err != nil {
		return nil, fmt.Errorf("failed to list factories: %w", err)
	}
	return factories, nil
}

// GetOrCreatePosition finds a user's position for a product or opens a
// new one. Calculations for the same product group under one position.
func (s *PostgresStorage) GetOrCreatePosition(ctx context.Context, userID int64, productName string) (int64, error) {
	const selectQuery = `
        SELECT id FROM positions WHERE user_id = $1 AND product_name = $2
    `

	var id int64
	err := s.db.GetContext(ctx, &id, selectQuery, userID, productName)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to get position: %w", err)
	}

	const insertQuery = `
        INSERT INTO positions (user_id, product_name, created_at)
        VALUES ($1, $2, $3)
        RETURNING id
    `
	err = s.db.QueryRowContext(ctx, insertQuery, userID, productName, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create position: %w", err)
	}
	return id, nil
}

func (s *PostgresStorage) SaveCalculation(ctx context.Context, calc Calculation) (int64, error) {
	const query = `
        INSERT INTO calculations (
            position_id, factory_id, factory_custom_name, category,
            quantity, weight_kg, unit_price_yuan, markup,
            custom_logistics, result, state, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id
    `

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		calc.PositionID,
		calc.FactoryID,
		calc.FactoryCustomName,
		calc.Category,
		calc.Quantity,
		calc.WeightKg,
		calc.UnitPriceYuan,
		calc.Markup,
		calc.CustomLogistics,
		calc.Result,
		calc.State,
		calc.CreatedAt,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to save calculation: %w", err)
	}

	// Invalidate statistics cache
	s.redis.Del(ctx, "calc_stats")

	return id, nil
}

func (s *PostgresStorage) GetCalculationByID(ctx context.Context, id int64) (*Calculation, error) {
	const query = `SELECT * FROM calculations WHERE id = $1`

	var calc Calculation
	err := s.db.GetContext(ctx, &calc, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("calculation not found")
		}
		return nil, fmt.Errorf("failed to get calculation: %w", err)
	}
	return &calc, nil
}

func (s *PostgresStorage) ListCalculationsByUser(ctx context.Context, userID int64, limit int) ([]Calculation, error) {
	const query = `
        SELECT c.* FROM calculations c
        JOIN positions p ON p.id = c.position_id
        WHERE p.user_id = $1
        ORDER BY c.created_at DESC
        LIMIT $2
    `

	var calcs []Calculation
	if err := s.db.SelectContext(ctx, &calcs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	return calcs, nil
}

func (s *PostgresStorage) UpdateCalculationState(ctx context.Context, id int64, state string) error {
	const query = `UPDATE calculations SET state = $1 WHERE id = $2`

	res, err := s.db.ExecContext(ctx, query, state, id)
	if err != nil {
		return fmt.Errorf("failed to update calculation state: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("calculation not found")
	}
	return nil
}

type CalculationStatistics struct {
	TotalCalculations int            `db:"total_calculations"`
	TotalPositions    int            `db:"total_positions"`
	TodayCalculations int            `db:"-"`
	WeekCalculations  int            `db:"-"`
	CategoryCounts    map[string]int `db:"-"`
}

func (s *PostgresStorage) GetStatistics(ctx context.Context) (*CalculationStatistics, error) {
	cacheKey := "calc_stats"

	// Try Redis first
	if cached, err := s.redis.Get(ctx, cacheKey); err == nil {
		var stats CalculationStatistics
		if err := json.Unmarshal(cached, &stats); err == nil {
			return &stats, nil
		}
	}

	stats := &CalculationStatistics{
		CategoryCounts: make(map[string]int),
	}

	err := s.db.GetContext(ctx, stats, `
        SELECT
            (SELECT COUNT(*) FROM calculations) as total_calculations,
            (SELECT COUNT(*) FROM positions) as total_positions
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get totals: %w", err)
	}

	err = s.db.GetContext(ctx, &stats.TodayCalculations, `
        SELECT COUNT(*) FROM calculations WHERE created_at >= CURRENT_DATE
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get today stats: %w", err)
	}

	err = s.db.GetContext(ctx, &stats.WeekCalculations, `
        SELECT COUNT(*) FROM calculations WHERE created_at >= CURRENT_DATE - INTERVAL '7 days'
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to get week stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) as count
        FROM calculations
        GROUP BY category
        `,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get category counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.CategoryCounts[category] = count
	}

	// Cache the result
	if data, err := json.Marshal(stats); err == nil {
		s.redis.Set(ctx, cacheKey, data, 1*time.Hour)
	}

	return stats, nil
}

func (s *PostgresStorage) CheckRateLimit(ctx context.Context, userID int64, action string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("ratelimit:%d:%s", userID, action)

	count, err := s.redis.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}

	// Set expiry if this is the first increment
	if count == 1 {
		if _, err := s.redis.Expire(ctx, key, window); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	return count > limit, nil
}

func (s *PostgresStorage) DB() *sql.DB {
	return s.db.DB
}

func (s *PostgresStorage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
