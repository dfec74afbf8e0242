package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"baz-car-admin/internal/model"
)

const additionalServiceColumns = `id, service_id, label, description, fee, fee_type, icon_key, is_active,
	created_at, updated_at`

type AdditionalServiceRepository struct {
	db *sql.DB
}

func NewAdditionalServiceRepository(db *sql.DB) *AdditionalServiceRepository {
	return &AdditionalServiceRepository{db: db}
}

func (r *AdditionalServiceRepository) List(ctx context.Context, skip int, limit int) ([]model.AdditionalService, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+additionalServiceColumns+` FROM additional_services ORDER BY id LIMIT ? OFFSET ?`,
		limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list additional services: %w", err)
	}
	return collectAdditionalServices(rows)
}

func (r *AdditionalServiceRepository) ListActive(ctx context.Context) ([]model.AdditionalService, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+additionalServiceColumns+` FROM additional_services WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active additional services: %w", err)
	}
	return collectAdditionalServices(rows)
}

func (r *AdditionalServiceRepository) FindByID(ctx context.Context, id int64) (model.AdditionalService, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+additionalServiceColumns+` FROM additional_services WHERE id = ?`, id)
	return r.scanOne(row)
}

func (r *AdditionalServiceRepository) FindByServiceID(ctx context.Context, serviceID string) (model.AdditionalService, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+additionalServiceColumns+` FROM additional_services WHERE service_id = ?`, serviceID)
	return r.scanOne(row)
}

// FindByServiceIDs returns the services whose service_id is in serviceIDs,
// in table order. Unknown ids are ignored.
func (r *AdditionalServiceRepository) FindByServiceIDs(ctx context.Context, serviceIDs []string) ([]model.AdditionalService, error) {
	if len(serviceIDs) == 0 {
		return []model.AdditionalService{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(serviceIDs)), ",")
	args := make([]any, len(serviceIDs))
	for i, id := range serviceIDs {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+additionalServiceColumns+` FROM additional_services
		 WHERE service_id IN (`+placeholders+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("find additional services by service id: %w", err)
	}
	return collectAdditionalServices(rows)
}

func (r *AdditionalServiceRepository) Create(ctx context.Context, s model.AdditionalService) (model.AdditionalService, error) {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	fee, kind := feeColumns(s.Fee)

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO additional_services (service_id, label, description, fee, fee_type, icon_key, is_active,
		     created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ServiceID, s.Label, nullString(s.Description), fee, kind, nullString(s.IconKey), s.IsActive,
		s.CreatedAt, s.UpdatedAt)
	if isUniqueViolation(err) {
		return model.AdditionalService{}, model.ErrDuplicateServiceID
	}
	if err != nil {
		return model.AdditionalService{}, fmt.Errorf("create additional service: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.AdditionalService{}, fmt.Errorf("read additional service id: %w", err)
	}
	s.ID = id
	return s, nil
}

func (r *AdditionalServiceRepository) Update(ctx context.Context, s model.AdditionalService) (model.AdditionalService, error) {
	s.UpdatedAt = time.Now().UTC()
	fee, kind := feeColumns(s.Fee)

	res, err := r.db.ExecContext(ctx,
		`UPDATE additional_services SET service_id = ?, label = ?, description = ?, fee = ?, fee_type = ?,
		     icon_key = ?, is_active = ?, updated_at = ?
		 WHERE id = ?`,
		s.ServiceID, s.Label, nullString(s.Description), fee, kind, nullString(s.IconKey), s.IsActive,
		s.UpdatedAt, s.ID)
	if isUniqueViolation(err) {
		return model.AdditionalService{}, model.ErrDuplicateServiceID
	}
	if err != nil {
		return model.AdditionalService{}, fmt.Errorf("update additional service: %w", err)
	}
	if err := expectAffected(res, model.ErrAdditionalServiceNotFound); err != nil {
		return model.AdditionalService{}, err
	}
	return s, nil
}

func (r *AdditionalServiceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM additional_services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete additional service: %w", err)
	}
	return expectAffected(res, model.ErrAdditionalServiceNotFound)
}

func (r *AdditionalServiceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM additional_services`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count additional services: %w", err)
	}
	return count, nil
}

func (r *AdditionalServiceRepository) scanOne(row rowScanner) (model.AdditionalService, error) {
	s, err := scanAdditionalService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.AdditionalService{}, model.ErrAdditionalServiceNotFound
	}
	if err != nil {
		return model.AdditionalService{}, fmt.Errorf("find additional service: %w", err)
	}
	return s, nil
}

func collectAdditionalServices(rows *sql.Rows) ([]model.AdditionalService, error) {
	defer func() { _ = rows.Close() }()

	services := make([]model.AdditionalService, 0)
	for rows.Next() {
		s, err := scanAdditionalService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan additional service: %w", err)
		}
		services = append(services, s)
	}
	return services, rows.Err()
}

func scanAdditionalService(row rowScanner) (model.AdditionalService, error) {
	var (
		s                    model.AdditionalService
		description, iconKey sql.NullString
		fee                  float64
		feeType              string
	)

	err := row.Scan(&s.ID, &s.ServiceID, &s.Label, &description, &fee, &feeType, &iconKey, &s.IsActive,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return model.AdditionalService{}, err
	}

	s.Description = stringPtr(description)
	s.IconKey = stringPtr(iconKey)
	if s.Fee, err = model.ParseFee(feeType, fee); err != nil {
		return model.AdditionalService{}, fmt.Errorf("additional service %q: %w", s.ServiceID, err)
	}
	return s, nil
}

func feeColumns(fee model.Fee) (float64, string) {
	if fee == nil {
		return 0, string(model.FeeKindFixed)
	}
	return fee.Amount(), string(fee.Kind())
}
