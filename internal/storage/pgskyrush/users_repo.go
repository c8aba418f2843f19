package pgskyrush

import (
	"context"
	"time"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const userColumns = `
  id, first_name, last_name, email, phone, password_hash,
  country, shipping_option, company_name,
  street, street_line2, city, state, zip_code, address_country,
  role, created_at`

// CreateUser inserts u and fills its ID and CreatedAt. A taken email yields ErrDuplicate.
func (s *Storage) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	out := *u
	out.ID = uuid.NewString()
	out.CreatedAt = time.Now().UTC()
	if out.Role == "" {
		out.Role = models.RoleUser
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO users (`+userColumns+`
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
`,
		out.ID, out.FirstName, out.LastName, out.Email, out.Phone, out.PasswordHash,
		out.Country, out.ShippingOption, out.CompanyName,
		out.Address.Street, out.Address.StreetLine2, out.Address.City, out.Address.State,
		out.Address.ZipCode, out.Address.Country,
		out.Role, out.CreatedAt,
	)
	if err != nil {
		return nil, wrapWrite(err, "insert user")
	}
	return &out, nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Country, &u.ShippingOption, &u.CompanyName,
		&u.Address.Street, &u.Address.StreetLine2, &u.Address.City, &u.Address.State,
		&u.Address.ZipCode, &u.Address.Country,
		&u.Role, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	return &u, nil
}
