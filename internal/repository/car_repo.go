package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"baz-car-admin/internal/model"
)

const carColumns = `id, name, category, category_ru, price, price_3plus_days, images, description,
	description_ru, features, features_ru, specifications, available, rating, fuel_type, restrictions,
	additional_services, created_at, updated_at`

type CarRepository struct {
	db *sql.DB
}

func NewCarRepository(db *sql.DB) *CarRepository {
	return &CarRepository{db: db}
}

func (r *CarRepository) List(ctx context.Context) ([]model.Car, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+carColumns+` FROM cars ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	return collectCars(rows)
}

func (r *CarRepository) FindByID(ctx context.Context, id int64) (model.Car, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+carColumns+` FROM cars WHERE id = ?`, id)
	c, err := scanCar(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Car{}, model.ErrCarNotFound
	}
	if err != nil {
		return model.Car{}, fmt.Errorf("find car: %w", err)
	}
	return c, nil
}

func (r *CarRepository) Create(ctx context.Context, c model.Car) (model.Car, error) {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	args, err := carArgs(c)
	if err != nil {
		return model.Car{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cars (name, category, category_ru, price, price_3plus_days, images, description,
		     description_ru, features, features_ru, specifications, available, rating, fuel_type,
		     restrictions, additional_services, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append(args, c.CreatedAt, c.UpdatedAt)...)
	if err != nil {
		return model.Car{}, fmt.Errorf("create car: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Car{}, fmt.Errorf("read car id: %w", err)
	}
	c.ID = id
	return c, nil
}

// Update writes every mutable column of c.
func (r *CarRepository) Update(ctx context.Context, c model.Car) (model.Car, error) {
	c.UpdatedAt = time.Now().UTC()

	args, err := carArgs(c)
	if err != nil {
		return model.Car{}, err
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE cars SET name = ?, category = ?, category_ru = ?, price = ?, price_3plus_days = ?,
		     images = ?, description = ?, description_ru = ?, features = ?, features_ru = ?,
		     specifications = ?, available = ?, rating = ?, fuel_type = ?, restrictions = ?,
		     additional_services = ?, updated_at = ?
		 WHERE id = ?`,
		append(args, c.UpdatedAt, c.ID)...)
	if err != nil {
		return model.Car{}, fmt.Errorf("update car: %w", err)
	}
	if err := expectAffected(res, model.ErrCarNotFound); err != nil {
		return model.Car{}, err
	}
	return c, nil
}

func (r *CarRepository) UpdateImages(ctx context.Context, id int64, images []string) error {
	encoded, err := encodeStrings(images)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `UPDATE cars SET images = ?, updated_at = ? WHERE id = ?`,
		encoded, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update car images: %w", err)
	}
	return expectAffected(res, model.ErrCarNotFound)
}

func (r *CarRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cars WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}
	return expectAffected(res, model.ErrCarNotFound)
}

func (r *CarRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cars`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return count, nil
}

func (r *CarRepository) PriceRange(ctx context.Context) (*int64, *int64, error) {
	var minPrice, maxPrice sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(price), MAX(price) FROM cars WHERE price IS NOT NULL`).Scan(&minPrice, &maxPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("car price range: %w", err)
	}
	return int64Ptr(minPrice), int64Ptr(maxPrice), nil
}

func (r *CarRepository) FuelTypes(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT fuel_type FROM cars WHERE fuel_type IS NOT NULL AND fuel_type <> '' ORDER BY fuel_type`)
	if err != nil {
		return nil, fmt.Errorf("list fuel types: %w", err)
	}
	defer func() { _ = rows.Close() }()

	types := make([]string, 0)
	for rows.Next() {
		var fuel string
		if err := rows.Scan(&fuel); err != nil {
			return nil, fmt.Errorf("scan fuel type: %w", err)
		}
		types = append(types, fuel)
	}
	return types, rows.Err()
}

// TopRated returns available cars ordered by rating, best first.
func (r *CarRepository) TopRated(ctx context.Context, limit int) ([]model.Car, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+carColumns+` FROM cars WHERE available = 1 ORDER BY rating DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list top rated cars: %w", err)
	}
	return collectCars(rows)
}

func collectCars(rows *sql.Rows) ([]model.Car, error) {
	defer func() { _ = rows.Close() }()

	cars := make([]model.Car, 0)
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func scanCar(row rowScanner) (model.Car, error) {
	var (
		c                                    model.Car
		category, categoryRU                 sql.NullString
		description, descriptionRU, fuelType sql.NullString
		price, price3                        sql.NullInt64
		images, features, featuresRU, addons sql.NullString
		specifications, restrictions         sql.NullString
	)

	err := row.Scan(&c.ID, &c.Name, &category, &categoryRU, &price, &price3, &images, &description,
		&descriptionRU, &features, &featuresRU, &specifications, &c.Available, &c.Rating, &fuelType,
		&restrictions, &addons, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return model.Car{}, err
	}

	c.Category = stringPtr(category)
	c.CategoryRU = stringPtr(categoryRU)
	c.Description = stringPtr(description)
	c.DescriptionRU = stringPtr(descriptionRU)
	c.FuelType = stringPtr(fuelType)
	c.Price = int64Ptr(price)
	c.Price3PlusDays = int64Ptr(price3)

	if c.Images, err = decodeStrings(images); err != nil {
		return model.Car{}, err
	}
	if c.Features, err = decodeStrings(features); err != nil {
		return model.Car{}, err
	}
	if c.FeaturesRU, err = decodeStrings(featuresRU); err != nil {
		return model.Car{}, err
	}
	if c.AdditionalServices, err = decodeStrings(addons); err != nil {
		return model.Car{}, err
	}
	if c.Specifications, err = decodeObject(specifications); err != nil {
		return model.Car{}, err
	}
	if c.Restrictions, err = decodeObject(restrictions); err != nil {
		return model.Car{}, err
	}

	return c, nil
}

// carArgs returns the mutable columns in table order, name through
// additional_services.
func carArgs(c model.Car) ([]any, error) {
	lists := [][]string{c.Images, c.Features, c.FeaturesRU, c.AdditionalServices}
	encodedLists := make([]sql.NullString, len(lists))
	for i, list := range lists {
		encoded, err := encodeStrings(list)
		if err != nil {
			return nil, err
		}
		encodedLists[i] = encoded
	}

	specifications, err := encodeObject(c.Specifications)
	if err != nil {
		return nil, err
	}
	restrictions, err := encodeObject(c.Restrictions)
	if err != nil {
		return nil, err
	}

	return []any{
		c.Name,
		nullString(c.Category),
		nullString(c.CategoryRU),
		nullInt64(c.Price),
		nullInt64(c.Price3PlusDays),
		encodedLists[0],
		nullString(c.Description),
		nullString(c.DescriptionRU),
		encodedLists[1],
		encodedLists[2],
		specifications,
		c.Available,
		c.Rating,
		nullString(c.FuelType),
		restrictions,
		encodedLists[3],
	}, nil
}

func expectAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
