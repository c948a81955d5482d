package model

import (
	"github.com/BurntSushi/migration"
	"github.com/cyclopcam/dbh"
	"github.com/cyclopcam/logs"
)

func Migrations(log logs.Log) []migration.Migrator {
	migs := []migration.Migrator{}
	idx := 0

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE user(
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL,
			email_normalized TEXT NOT NULL,
			name TEXT,
			password BLOB,
			pin_code BLOB,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			deleted_at TIMESTAMP
		);
		CREATE UNIQUE INDEX idx_user_email_normalized ON user (email_normalized);

		CREATE TABLE session(
			id INTEGER PRIMARY KEY,
			token TEXT NOT NULL,
			user_id INT NOT NULL,
			device_os TEXT,
			device_type TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			expires_at TIMESTAMP,
			pin_expires_at TIMESTAMP
		);
		CREATE UNIQUE INDEX idx_session_token ON session (token);
		CREATE INDEX idx_session_user_id ON session (user_id);

		CREATE TABLE api_key(
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			key TEXT NOT NULL,
			user_id INT NOT NULL,
			permissions TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
		CREATE UNIQUE INDEX idx_api_key_key ON api_key (key);
		CREATE INDEX idx_api_key_user_id ON api_key (user_id);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE post(
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			slug TEXT NOT NULL,
			summary TEXT,
			content TEXT NOT NULL,
			thumbnail_url TEXT,
			status TEXT NOT NULL,
			author_id INT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			published_at TIMESTAMP
		);
		CREATE UNIQUE INDEX idx_post_slug ON post (slug);
		CREATE INDEX idx_post_status ON post (status);

		CREATE TABLE image(
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL,
			storage_key TEXT NOT NULL,
			content_type TEXT NOT NULL,
			size INT NOT NULL,
			created_by INT NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`))

	migs = append(migs, dbh.MakeMigrationFromSQL(log, &idx,
		`
		CREATE TABLE shared_link(
			id INTEGER PRIMARY KEY,
			key TEXT NOT NULL,
			slug TEXT,
			user_id INT NOT NULL,
			post_id INT NOT NULL,
			expires_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		);
		CREATE UNIQUE INDEX idx_shared_link_key ON shared_link (key);
		CREATE UNIQUE INDEX idx_shared_link_slug ON shared_link (slug);
	`))

	return migs
}
