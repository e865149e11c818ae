package postgres

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/uptrace/bun"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

func TestPostgresIntegration_ExclusionConstraintAndStatusUpdates(t *testing.T) {
	databaseURL := strings.TrimSpace(os.Getenv("BARBERSHOP_TEST_DATABASE_URL"))
	if databaseURL == "" {
		t.Skip("BARBERSHOP_TEST_DATABASE_URL not set")
	}

	db, err := Open(context.Background(), databaseURL, PoolConfig{MaxOpenConns: 1})
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	schema := "barbershop_test_" + randomHex(t, 8)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = db.NewRaw("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Exec(ctx)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewRaw("CREATE SCHEMA " + schema).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewRaw("SET LOCAL search_path TO " + schema).Exec(ctx); err != nil {
			return err
		}
		if err := applyMigrations(ctx, tx); err != nil {
			return err
		}
		if err := lockCalendar(ctx, tx, "calendar:2025-06-10"); err != nil {
			return err
		}

		c := calendarTx{tx: tx}
		start := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)

		first, err := c.CreateAppointment(ctx, domain.Appointment{
			ClientName:      "Ana",
			ClientPhone:     "3001234567",
			ServiceID:       "corte",
			DurationMinutes: 30,
			ScheduledAt:     start,
			Status:          domain.StatusConfirmed,
		})
		if err != nil {
			return err
		}
		if !first.EndsAt.Equal(start.Add(30 * time.Minute)) {
			return fmt.Errorf("ends_at = %v", first.EndsAt)
		}

		rows, err := c.FindAppointmentsInRange(ctx, start.Add(-time.Hour), start.Add(time.Hour), domain.OccupyingStatuses)
		if err != nil {
			return err
		}
		if len(rows) != 1 || rows[0].ID != first.ID {
			return fmt.Errorf("rows = %+v, want only %s", rows, first.ID)
		}

		if _, err := tx.NewRaw("SAVEPOINT overlap").Exec(ctx); err != nil {
			return err
		}
		_, err = c.CreateAppointment(ctx, domain.Appointment{
			ClientName:      "Luis",
			ClientPhone:     "3007654321",
			ServiceID:       "corte-barba",
			DurationMinutes: 45,
			ScheduledAt:     start.Add(15 * time.Minute),
			Status:          domain.StatusConfirmed,
		})
		if !errors.Is(err, store.ErrConflict) {
			return fmt.Errorf("overlap err = %v, want %v", err, store.ErrConflict)
		}
		if _, err := tx.NewRaw("ROLLBACK TO SAVEPOINT overlap").Exec(ctx); err != nil {
			return err
		}

		if _, err := c.CreateAppointment(ctx, domain.Appointment{
			ClientName:      "Luis",
			ClientPhone:     "3007654321",
			ServiceID:       "corte",
			DurationMinutes: 30,
			ScheduledAt:     start.Add(30 * time.Minute),
			Status:          domain.StatusConfirmed,
		}); err != nil {
			return fmt.Errorf("back-to-back create: %w", err)
		}

		locked, err := c.GetAppointmentForUpdate(ctx, first.ID)
		if err != nil {
			return err
		}
		locked.Status = domain.StatusCancelledByBarber
		locked.CancellationReason = "sick day"
		if _, err := c.UpdateAppointment(ctx, locked); err != nil {
			return err
		}

		if _, err := c.CreateAppointment(ctx, domain.Appointment{
			ClientName:      "Eva",
			ClientPhone:     "3000000000",
			ServiceID:       "barba",
			DurationMinutes: 20,
			ScheduledAt:     start.Add(5 * time.Minute),
			Status:          domain.StatusConfirmed,
		}); err != nil {
			return fmt.Errorf("create over cancelled slot: %w", err)
		}

		var svc domain.Service
		if err := tx.NewSelect().Model(&svc).Where("id = ?", "corte-barba").Scan(ctx); err != nil {
			return err
		}
		if svc.DurationMinutes != 45 {
			return fmt.Errorf("seeded corte-barba = %d, want 45", svc.DurationMinutes)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("tx error: %v", err)
	}
}

func randomHex(t *testing.T, bytesLen int) string {
	t.Helper()
	b := make([]byte, bytesLen)
	if _, err := rand.Read(b); err != nil {
		t.Fatalf("rand.Read error: %v", err)
	}
	return hex.EncodeToString(b)
}

type rawExecutor interface {
	NewRaw(query string, args ...any) *bun.RawQuery
}

func applyMigrations(ctx context.Context, exec rawExecutor) error {
	dir, err := migrationsDir()
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	type mig struct {
		name string
		path string
	}
	migs := make([]mig, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		migs = append(migs, mig{name: e.Name(), path: filepath.Join(dir, e.Name())})
	}
	sort.Slice(migs, func(i, j int) bool { return migs[i].name < migs[j].name })

	for _, m := range migs {
		b, err := os.ReadFile(m.path)
		if err != nil {
			return err
		}
		upSQL, err := extractGooseUp(string(b))
		if err != nil {
			return err
		}
		stmts := splitSQLStatements(upSQL)
		for _, stmt := range stmts {
			if normalized, ok := normalizeExtensionStatement(stmt); ok {
				stmt = normalized
			}
			if _, err := exec.NewRaw(stmt).Exec(ctx); err != nil {
				return err
			}
		}
	}

	return nil
}

func migrationsDir() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("runtime.Caller failed")
	}
	base := filepath.Dir(file)
	return filepath.Clean(filepath.Join(base, "..", "..", "..", "migrations")), nil
}

func extractGooseUp(sql string) (string, error) {
	upMarker := "-- +goose Up"
	downMarker := "-- +goose Down"

	upIdx := strings.Index(sql, upMarker)
	if upIdx < 0 {
		return "", fmt.Errorf("missing goose up marker")
	}
	afterUp := sql[upIdx+len(upMarker):]
	afterUp = strings.TrimLeft(afterUp, "\r\n")

	downIdx := strings.Index(afterUp, downMarker)
	if downIdx < 0 {
		return strings.TrimSpace(afterUp), nil
	}
	return strings.TrimSpace(afterUp[:downIdx]), nil
}

func normalizeExtensionStatement(stmt string) (string, bool) {
	s := strings.TrimSpace(stmt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "CREATE EXTENSION") {
		return "", false
	}
	if !strings.Contains(upper, "BTREE_GIST") {
		return "", false
	}
	if strings.Contains(upper, " SCHEMA ") {
		return "", false
	}
	return s + " SCHEMA public", true
}

func splitSQLStatements(sql string) []string {
	parts := strings.Split(sql, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
