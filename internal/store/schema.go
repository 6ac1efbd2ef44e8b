// Package store persists pipeline tables in PostgreSQL. Repositories
// here implement the contracts interfaces; stages never see SQL.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Tables live in their own schema so the pipeline can share a database
// with other services.
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS rte`,

	`CREATE TABLE IF NOT EXISTS rte.snapshots (
		snapshot_date      DATE             NOT NULL,
		universe_id        BIGINT           NOT NULL,
		name               TEXT             NOT NULL DEFAULT '',
		developer          TEXT             NOT NULL DEFAULT '',
		avg_ccu            DOUBLE PRECISION NOT NULL DEFAULT 0,
		visits             BIGINT           NOT NULL DEFAULT 0,
		favorites          BIGINT           NOT NULL DEFAULT 0,
		likes              BIGINT           NOT NULL DEFAULT 0,
		monetization_count INTEGER          NOT NULL DEFAULT 0,
		median_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_dispersion   DOUBLE PRECISION NOT NULL DEFAULT 0,
		engagement_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
		dau_est            DOUBLE PRECISION NOT NULL DEFAULT 0,
		pcr                DOUBLE PRECISION NOT NULL DEFAULT 0,
		aspu               DOUBLE PRECISION NOT NULL DEFAULT 0,
		spend_revenue      DOUBLE PRECISION NOT NULL DEFAULT 0,
		premium_revenue    DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_raw            DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (snapshot_date, universe_id)
	)`,

	`CREATE TABLE IF NOT EXISTS rte.features (
		snapshot_date      DATE             NOT NULL,
		universe_id        BIGINT           NOT NULL,
		name               TEXT             NOT NULL DEFAULT '',
		developer          TEXT             NOT NULL DEFAULT '',
		avg_ccu            DOUBLE PRECISION NOT NULL DEFAULT 0,
		visits             BIGINT           NOT NULL DEFAULT 0,
		favorites          BIGINT           NOT NULL DEFAULT 0,
		likes              BIGINT           NOT NULL DEFAULT 0,
		monetization_count INTEGER          NOT NULL DEFAULT 0,
		median_price       DOUBLE PRECISION NOT NULL DEFAULT 0,
		price_dispersion   DOUBLE PRECISION NOT NULL DEFAULT 0,
		engagement_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
		dau_est            DOUBLE PRECISION NOT NULL DEFAULT 0,
		pcr                DOUBLE PRECISION NOT NULL DEFAULT 0,
		aspu               DOUBLE PRECISION NOT NULL DEFAULT 0,
		spend_revenue      DOUBLE PRECISION NOT NULL DEFAULT 0,
		premium_revenue    DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_raw            DOUBLE PRECISION NOT NULL DEFAULT 0,
		coverage_7d        DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_7d_mean        DOUBLE PRECISION NOT NULL DEFAULT 0,
		ccu_7d_mean        DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_ema7           DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_ema30          DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_mom            DOUBLE PRECISION NOT NULL DEFAULT 0,
		edr_14d_vol        DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (snapshot_date, universe_id)
	)`,

	`CREATE TABLE IF NOT EXISTS rte.membership (
		rebalance_date DATE             NOT NULL,
		universe_id    BIGINT           NOT NULL,
		rank           INTEGER          NOT NULL,
		in_index       BOOLEAN          NOT NULL DEFAULT TRUE,
		weight         DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (rebalance_date, universe_id)
	)`,

	`CREATE TABLE IF NOT EXISTS rte.levels (
		date             DATE             NOT NULL,
		index_level      DOUBLE PRECISION NOT NULL,
		daily_return     DOUBLE PRECISION NOT NULL,
		daily_log_return DOUBLE PRECISION NOT NULL,
		coverage         DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (date)
	)`,
}

// EnsureSchema creates the schema and tables when they do not exist.
// Safe to run on every startup.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
