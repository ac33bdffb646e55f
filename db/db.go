/*
Copyright 2022 Red Hat Inc.
SPDX-License-Identifier: Apache-2.0
*/
package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/studiooh/proposal-export-service/config"
)

const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// OpenDB returns the gorm handle used by the data store. SQL statements are
// only logged in debug mode.
func OpenDB(cfg config.ProposalConfig) (*gorm.DB, error) {
	level := gormlogger.Silent
	if cfg.Debug {
		level = gormlogger.Info
	}
	gdb, err := gorm.Open(postgres.Open(BuildPostgresDSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	return gdb, nil
}

// OpenPostgresDB returns a plain lib/pq connection, used for migrations.
func OpenPostgresDB(cfg config.ProposalConfig) (*sql.DB, error) {
	return sql.Open("postgres", BuildPostgresDSN(cfg))
}

func BuildPostgresDSN(cfg config.ProposalConfig) string {
	dbcfg := cfg.DBConfig

	q := url.Values{}
	q.Set("sslmode", dbcfg.SSLCfg.SSLMode)
	if dbcfg.SSLCfg.RdsCa != nil && *dbcfg.SSLCfg.RdsCa != "" {
		q.Set("sslrootcert", *dbcfg.SSLCfg.RdsCa)
	}

	dsn := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(dbcfg.User, dbcfg.Password),
		Host:     fmt.Sprintf("%s:%s", dbcfg.Hostname, dbcfg.Port),
		Path:     "/" + dbcfg.Name,
		RawQuery: q.Encode(),
	}
	return dsn.String()
}
