package pgskyrush

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  email TEXT NOT NULL,
  phone TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  country TEXT NOT NULL,
  shipping_option TEXT NOT NULL,
  company_name TEXT NOT NULL DEFAULT '',
  street TEXT NOT NULL,
  street_line2 TEXT NOT NULL DEFAULT '',
  city TEXT NOT NULL,
  state TEXT NOT NULL,
  zip_code TEXT NOT NULL,
  address_country TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  created_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_users_email UNIQUE (email)
)`,
		`
CREATE TABLE IF NOT EXISTS packages (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL REFERENCES users(id),
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  external_tracking TEXT NOT NULL DEFAULT '',
  tracking_number TEXT NOT NULL,
  status TEXT NOT NULL,
  image_url TEXT NOT NULL,
  image_public_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_packages_tracking_number UNIQUE (tracking_number)
)`,
		`CREATE INDEX IF NOT EXISTS idx_packages_user_id_created_at ON packages(user_id, created_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS package_history (
  id BIGSERIAL PRIMARY KEY,
  package_id TEXT NOT NULL REFERENCES packages(id) ON DELETE CASCADE,
  status TEXT NOT NULL,
  location TEXT NOT NULL DEFAULT '',
  note TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_package_history_package_id ON package_history(package_id, id)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
