package packages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/BearBump/SkyRush/internal/integrations/media/fake"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/BearBump/SkyRush/internal/storage/pgskyrush"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestTrackingNumber_PatternAndUnique(t *testing.T) {
	re := regexp.MustCompile(`^SR-[A-Z0-9]{9}$`)
	seen := make(map[string]struct{}, 2000)
	for i := 0; i < 2000; i++ {
		tn, err := newTrackingNumber()
		require.NoError(t, err)
		require.Regexp(t, re, tn)
		_, dup := seen[tn]
		require.False(t, dup, "duplicate %s", tn)
		seen[tn] = struct{}{}
	}
}

func TestTrackingNumber_EntropyFailure(t *testing.T) {
	_, err := trackingNumberFrom(strings.NewReader(""))
	require.Error(t, err)
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{models.PackageStatusPending, models.PackageStatusProcessing, true},
		{models.PackageStatusPending, models.PackageStatusException, true},
		{models.PackageStatusPending, models.PackageStatusDelivered, false},
		{models.PackageStatusProcessing, models.PackageStatusInTransit, true},
		{models.PackageStatusProcessing, models.PackageStatusProcessing, true},
		{models.PackageStatusInTransit, models.PackageStatusDelivered, true},
		{models.PackageStatusInTransit, models.PackageStatusPending, false},
		{models.PackageStatusException, models.PackageStatusInTransit, true},
		{models.PackageStatusDelivered, models.PackageStatusPending, false},
		{models.PackageStatusDelivered, models.PackageStatusDelivered, false},
		{"Lost", models.PackageStatusProcessing, false},
	}
	for _, c := range cases {
		require.Equal(t, c.ok, CanTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
	require.True(t, IsKnownStatus(models.PackageStatusInTransit))
	require.False(t, IsKnownStatus("in transit"))
}

// memRepo is a Repository over a map with the same locking guarantee as the
// Postgres row lock.
type memRepo struct {
	mu   sync.Mutex
	seq  int
	byID map[string]*models.Package
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]*models.Package{}} }

func (m *memRepo) CreatePackage(_ context.Context, p *models.Package) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.TrackingNumber == p.TrackingNumber {
			return nil, errors.WithStack(pgskyrush.ErrDuplicate)
		}
	}
	m.seq++
	out := *p
	out.ID = fmt.Sprintf("p%d", m.seq)
	out.History = append([]models.StatusEvent(nil), p.History...)
	m.byID[out.ID] = &out
	cp := out
	cp.History = append([]models.StatusEvent(nil), out.History...)
	return &cp, nil
}

func (m *memRepo) ListPackagesByOwner(_ context.Context, userID string) ([]*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Package
	for _, p := range m.byID {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memRepo) GetPackageByTrackingNumber(_ context.Context, tn string) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.TrackingNumber == tn {
			cp := *p
			cp.History = append([]models.StatusEvent(nil), p.History...)
			return &cp, nil
		}
	}
	return nil, errors.WithStack(pgskyrush.ErrNotFound)
}

func (m *memRepo) AppendStatus(_ context.Context, id string, ev models.StatusEvent, check pgskyrush.TransitionCheck) (*models.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, errors.WithStack(pgskyrush.ErrNotFound)
	}
	if check != nil {
		if err := check(p.Status); err != nil {
			return nil, err
		}
	}
	p.Status = ev.Status
	p.History = append(p.History, ev)
	cp := *p
	cp.History = append([]models.StatusEvent(nil), p.History...)
	return &cp, nil
}

func writeImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "img.jpg")
	require.NoError(t, os.WriteFile(p, []byte("jpg"), 0o600))
	return p
}

func TestUpdateStatus_HistoryIsAppendOnly(t *testing.T) {
	ctx := context.Background()
	svc := New(newMemRepo(), fake.New(), nil, 0, nil, "")

	created, err := svc.Create(ctx, "u1", models.PackageCreateInput{Title: "Test", Description: "d"}, writeImage(t))
	require.NoError(t, err)

	steps := []string{
		models.PackageStatusProcessing,
		models.PackageStatusProcessing,
		models.PackageStatusInTransit,
		models.PackageStatusException,
		models.PackageStatusInTransit,
		models.PackageStatusDelivered,
	}

	prev := created.History
	for i, st := range steps {
		out, err := svc.UpdateStatus(ctx, models.RoleAdmin, created.ID, models.StatusUpdateInput{
			Status: st, Location: fmt.Sprintf("scan-%d", i),
		})
		require.NoError(t, err)
		require.Equal(t, st, out.Status)
		require.Len(t, out.History, i+2)
		require.Equal(t, prev, out.History[:len(prev)], "earlier entries must not change")
		prev = out.History
	}

	_, err = svc.UpdateStatus(ctx, models.RoleAdmin, created.ID, models.StatusUpdateInput{Status: models.PackageStatusInTransit})
	require.Error(t, err)

	tracked, err := svc.TrackPublic(ctx, created.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, tracked.History, len(steps)+1)
	require.Empty(t, tracked.UserID)
}

func TestCreate_TrackingNumbersUniqueAcrossMany(t *testing.T) {
	ctx := context.Background()
	svc := New(newMemRepo(), fake.New(), nil, 0, nil, "")

	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		p, err := svc.Create(ctx, "u1", models.PackageCreateInput{Title: fmt.Sprintf("Box %d", i)}, writeImage(t))
		require.NoError(t, err)
		require.Regexp(t, `^SR-[A-Z0-9]{9}$`, p.TrackingNumber)
		_, dup := seen[p.TrackingNumber]
		require.False(t, dup)
		seen[p.TrackingNumber] = struct{}{}
	}
}
