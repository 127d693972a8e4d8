package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/edgy2009/adboard/internal/models"
)

// Postgres wraps a postgres DB connection.
type Postgres struct {
	DB *sql.DB
}

// schemaSQL sets up the necessary tables if they don't exist. position fixes
// the catalog ordering, which doubles as the ranking tie-break order.
const schemaSQL = `CREATE TABLE IF NOT EXISTS ads (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    image_file TEXT,
    age_group TEXT NOT NULL DEFAULT 'all',
    gender TEXT NOT NULL DEFAULT 'both',
    temperature TEXT NOT NULL DEFAULT 'any',
    humidity TEXT NOT NULL DEFAULT 'any',
    position INT NOT NULL DEFAULT 0,
    updated_at TIMESTAMP NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_ads_position ON ads (position);
`

// InitPostgres connects to Postgres with connection pooling configuration,
// ensures the ads schema and seeds the default catalog when the table is
// empty.
func InitPostgres(dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (*Postgres, error) {
	// Register the otelsql wrapper for postgres
	driverName, err := otelsql.Register("postgres",
		otelsql.WithAttributes(
			attribute.String("db.system", "postgresql"),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	if err := db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	p := &Postgres{DB: db}
	if err := p.ensureSchema(); err != nil {
		return nil, err
	}
	if err := p.ensureSeedAds(); err != nil {
		return nil, err
	}
	zap.L().Info("Connected to Postgres with connection pooling",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return p, nil
}

// Close terminates the Postgres connection.
func (p *Postgres) Close() {
	if p != nil && p.DB != nil {
		if err := p.DB.Close(); err != nil {
			zap.L().Error("postgres close", zap.Error(err))
		}
	}
}

// ensureSchema creates the required tables if they do not exist.
func (p *Postgres) ensureSchema() error {
	ctx := context.Background()
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// ensureSeedAds inserts the embedded default catalog if the table is empty.
func (p *Postgres) ensureSeedAds() error {
	ctx := context.Background()
	var count int
	if err := p.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM ads`).Scan(&count); err != nil {
		return fmt.Errorf("count ads: %w", err)
	}
	if count > 0 {
		return nil
	}
	for i, ad := range models.DefaultAds() {
		if _, err := p.DB.ExecContext(ctx, `INSERT INTO ads (id, title, image_file, age_group, gender, temperature, humidity, position) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			ad.ID, ad.Title, ad.ImageFile, ad.AgeGroup, ad.Gender, ad.Temperature, ad.Humidity, i); err != nil {
			return fmt.Errorf("seed ad %s: %w", ad.ID, err)
		}
	}
	zap.L().Info("Seeded default ad catalog", zap.Int("ads", len(models.DefaultAds())))
	return nil
}

// LoadAds retrieves the catalog in position order.
func (p *Postgres) LoadAds() ([]models.Ad, error) {
	rows, err := p.DB.QueryContext(context.Background(), `SELECT id, title, image_file, age_group, gender, temperature, humidity FROM ads ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("query ads: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ads []models.Ad
	for rows.Next() {
		var ad models.Ad
		var image sql.NullString
		if err := rows.Scan(&ad.ID, &ad.Title, &image, &ad.AgeGroup, &ad.Gender, &ad.Temperature, &ad.Humidity); err != nil {
			return nil, fmt.Errorf("scan ad: %w", err)
		}
		if image.Valid {
			ad.ImageFile = image.String
		}
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ads, nil
}

// UpsertAd inserts a new ad at the end of the ordering or updates an
// existing one in place.
func (p *Postgres) UpsertAd(ad models.Ad) error {
	_, err := p.DB.ExecContext(context.Background(), `INSERT INTO ads (id, title, image_file, age_group, gender, temperature, humidity, position)
        VALUES ($1,$2,$3,$4,$5,$6,$7, COALESCE((SELECT MAX(position)+1 FROM ads), 0))
        ON CONFLICT (id) DO UPDATE SET
            title=EXCLUDED.title, image_file=EXCLUDED.image_file,
            age_group=EXCLUDED.age_group, gender=EXCLUDED.gender,
            temperature=EXCLUDED.temperature, humidity=EXCLUDED.humidity,
            updated_at=NOW()`,
		ad.ID, ad.Title, ad.ImageFile, ad.AgeGroup, ad.Gender, ad.Temperature, ad.Humidity)
	if err != nil {
		return fmt.Errorf("upsert ad %s: %w", ad.ID, err)
	}
	return nil
}

// DeleteAd removes an ad by ID.
func (p *Postgres) DeleteAd(id string) error {
	res, err := p.DB.ExecContext(context.Background(), `DELETE FROM ads WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete ad %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.ErrNotFound
	}
	return nil
}
