package store

import (
	"context"
	"database/sql"
	"fmt"

	"parity/internal/util"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
)

// openMySQL opens dsn, creating its database first when it is missing.
func openMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	cfg.ParseTime = true
	if cfg.DBName != "" {
		if err := ensureDatabase(ctx, cfg); err != nil {
			return nil, err
		}
	}
	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}
	return sql.OpenDB(connector), nil
}

// ensureDatabase creates the database if it does not exist.
func ensureDatabase(ctx context.Context, cfg *mysql.Config) error {
	admin := cfg.Clone()
	admin.DBName = ""
	connector, err := mysql.NewConnector(admin)
	if err != nil {
		return err
	}
	db := sql.OpenDB(connector)
	defer util.CloseWithErr(db, "history admin db")
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.DBName))
	return errors.Wrapf(err, "create database %s", cfg.DBName)
}
