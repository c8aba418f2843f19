package pgskyrush

import (
	"context"
	"time"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const packageColumns = `
  id, user_id, title, description, external_tracking, tracking_number,
  status, image_url, image_public_id, created_at, updated_at`

// CreatePackage stores p together with its initial history. A tracking number
// that is already taken yields ErrDuplicate.
func (s *Storage) CreatePackage(ctx context.Context, p *models.Package) (*models.Package, error) {
	out := *p
	out.ID = uuid.NewString()
	now := time.Now().UTC()
	out.CreatedAt = now
	out.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
INSERT INTO packages (`+packageColumns+`
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$10)
`,
		out.ID, out.UserID, out.Title, out.Description, out.ExternalTracking, out.TrackingNumber,
		out.Status, out.PackageImage.URL, out.PackageImage.PublicID, now,
	)
	if err != nil {
		return nil, wrapWrite(err, "insert package")
	}

	history := make([]models.StatusEvent, 0, len(p.History))
	for _, e := range p.History {
		if e.Timestamp.IsZero() {
			e.Timestamp = now
		}
		if err := insertEvent(ctx, tx, out.ID, e); err != nil {
			return nil, err
		}
		history = append(history, e)
	}
	out.History = history

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return &out, nil
}

// ListPackagesByOwner returns the owner's packages, newest first.
func (s *Storage) ListPackagesByOwner(ctx context.Context, userID string) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+packageColumns+`
FROM packages
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "select packages")
	}
	defer rows.Close()

	out := make([]*models.Package, 0)
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}

	if err := s.loadHistory(ctx, s.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Storage) GetPackageByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Package, error) {
	return s.getPackage(ctx, `tracking_number = $1`, trackingNumber)
}

func (s *Storage) GetPackageByID(ctx context.Context, id string) (*models.Package, error) {
	return s.getPackage(ctx, `id = $1`, id)
}

func (s *Storage) getPackage(ctx context.Context, where string, arg string) (*models.Package, error) {
	p, err := scanPackage(s.db.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE `+where, arg))
	if err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, s.db, []*models.Package{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// TransitionCheck decides whether a package currently in status from may
// move to the event's status. A non-nil error aborts the append.
type TransitionCheck func(from string) error

// AppendStatus locks the package row, runs check against the current status,
// then overwrites the status and appends ev to the history. Concurrent callers
// on one package are serialized by the row lock.
func (s *Storage) AppendStatus(ctx context.Context, packageID string, ev models.StatusEvent, check TransitionCheck) (*models.Package, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM packages WHERE id = $1 FOR UPDATE`, packageID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "lock package")
	}

	if check != nil {
		if err := check(current); err != nil {
			return nil, err
		}
	}

	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err = tx.Exec(ctx, `UPDATE packages SET status = $2, updated_at = $3 WHERE id = $1`,
		packageID, ev.Status, ev.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "update package status")
	}
	if err := insertEvent(ctx, tx, packageID, ev); err != nil {
		return nil, err
	}

	p, err := scanPackage(tx.QueryRow(ctx, `SELECT `+packageColumns+` FROM packages WHERE id = $1`, packageID))
	if err != nil {
		return nil, err
	}
	if err := s.loadHistory(ctx, tx, []*models.Package{p}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}
	return p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *Storage) loadHistory(ctx context.Context, q querier, pkgs []*models.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Package, len(pkgs))
	ids := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		p.History = []models.StatusEvent{}
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := q.Query(ctx, `
SELECT package_id, status, location, note, created_at
FROM package_history
WHERE package_id = ANY($1)
ORDER BY package_id, id ASC
`, ids)
	if err != nil {
		return errors.Wrap(err, "select history")
	}
	defer rows.Close()

	for rows.Next() {
		var pkgID string
		var e models.StatusEvent
		if err := rows.Scan(&pkgID, &e.Status, &e.Location, &e.Note, &e.Timestamp); err != nil {
			return errors.Wrap(err, "scan history")
		}
		if p, ok := byID[pkgID]; ok {
			p.History = append(p.History, e)
		}
	}
	if rows.Err() != nil {
		return errors.Wrap(rows.Err(), "rows")
	}
	return nil
}

func insertEvent(ctx context.Context, tx pgx.Tx, packageID string, e models.StatusEvent) error {
	_, err := tx.Exec(ctx, `
INSERT INTO package_history (package_id, status, location, note, created_at)
VALUES ($1,$2,$3,$4,$5)
`, packageID, e.Status, e.Location, e.Note, e.Timestamp.UTC())
	return errors.Wrap(err, "insert history")
}

func scanPackage(row pgx.Row) (*models.Package, error) {
	var p models.Package
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.Description, &p.ExternalTracking, &p.TrackingNumber,
		&p.Status, &p.PackageImage.URL, &p.PackageImage.PublicID, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.WithStack(ErrNotFound)
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan package")
	}
	return &p, nil
}
