package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

type CatalogRepo struct {
	db *bun.DB
}

func NewCatalogRepo(db *bun.DB) *CatalogRepo {
	return &CatalogRepo{db: db}
}

func (r *CatalogRepo) FindService(ctx context.Context, id string) (domain.Service, error) {
	var svc domain.Service
	err := r.db.NewSelect().
		Model(&svc).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Service{}, notFound(err)
	}
	return svc, nil
}

func (r *CatalogRepo) ListServices(ctx context.Context) ([]domain.Service, error) {
	var rows []domain.Service
	if err := r.db.NewSelect().Model(&rows).OrderExpr("id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) LongestServiceDuration(ctx context.Context) (int, error) {
	var longest int
	err := r.db.NewSelect().
		Model((*domain.Service)(nil)).
		ColumnExpr("COALESCE(MAX(duration_minutes), 0)").
		Scan(ctx, &longest)
	if err != nil {
		return 0, err
	}
	return longest, nil
}

func (r *CatalogRepo) UpsertService(ctx context.Context, svc domain.Service) (domain.Service, error) {
	m := svc
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("duration_minutes = EXCLUDED.duration_minutes").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.Service{}, err
	}
	return m, nil
}

func (r *CatalogRepo) FindActiveSchedule(ctx context.Context, dayOfWeek int) (domain.WorkingHours, error) {
	var wh domain.WorkingHours
	err := r.db.NewSelect().
		Model(&wh).
		Where("day_of_week = ?", dayOfWeek).
		Where("active").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.WorkingHours{}, notFound(err)
	}
	return wh, nil
}

func (r *CatalogRepo) ListWorkingHours(ctx context.Context) ([]domain.WorkingHours, error) {
	var rows []domain.WorkingHours
	if err := r.db.NewSelect().Model(&rows).OrderExpr("day_of_week ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *CatalogRepo) UpsertWorkingHours(ctx context.Context, wh domain.WorkingHours) (domain.WorkingHours, error) {
	m := wh
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (day_of_week) DO UPDATE").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Set("active = EXCLUDED.active").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.WorkingHours{}, err
	}
	return m, nil
}

var _ store.CatalogRepository = (*CatalogRepo)(nil)
