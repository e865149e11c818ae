package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/DrojasFrontend/barbershop-booking-system/internal/domain"
	"github.com/DrojasFrontend/barbershop-booking-system/internal/store"
)

type StaffRepo struct {
	db *bun.DB
}

func NewStaffRepo(db *bun.DB) *StaffRepo {
	return &StaffRepo{db: db}
}

func (r *StaffRepo) FindStaffByEmail(ctx context.Context, email string) (domain.StaffUser, error) {
	var u domain.StaffUser
	err := r.db.NewSelect().
		Model(&u).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.StaffUser{}, notFound(err)
	}
	return u, nil
}

func (r *StaffRepo) CreateStaff(ctx context.Context, u domain.StaffUser) (domain.StaffUser, error) {
	m := u
	if _, err := r.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.StaffUser{}, store.ErrConflict
		}
		return domain.StaffUser{}, err
	}
	return m, nil
}

var (
	_ store.StaffRepository       = (*StaffRepo)(nil)
	_ store.AppointmentRepository = (*AppointmentRepo)(nil)
)
