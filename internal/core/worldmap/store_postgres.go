package worldmap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wastelandblues/atlas/internal/platform/database/schema"
	"github.com/wastelandblues/atlas/internal/platform/dberr"
)

type PostgresRepository struct {
	db *pgxpool.Pool

	// seedAdminCodeHash is written into map_state when the singleton row is
	// first materialized. Migrations cannot bcrypt, so the hash comes from
	// process startup.
	seedAdminCodeHash string
}

func NewPostgresRepository(db *pgxpool.Pool, seedAdminCodeHash string) *PostgresRepository {
	return &PostgresRepository{db: db, seedAdminCodeHash: seedAdminCodeHash}
}

// # Locations

func (repository *PostgresRepository) ListLocations(ctx context.Context) ([]*LocationWithVendors, error) {
	return repository.listLocations(ctx, false)
}

func (repository *PostgresRepository) ListPublishedLocations(ctx context.Context) ([]*LocationWithVendors, error) {
	return repository.listLocations(ctx, true)
}

func (repository *PostgresRepository) listLocations(ctx context.Context, publishedOnly bool) ([]*LocationWithVendors, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
	`,
		schema.Location.ID, schema.Location.Name, schema.Location.Type, schema.Location.Description,
		schema.Location.X, schema.Location.Y, schema.Location.Icon, schema.Location.SafetyRating,
		schema.Location.IsPublished, schema.Location.Table,
	)
	if publishedOnly {
		query += fmt.Sprintf(" WHERE %s = TRUE", schema.Location.IsPublished)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.Location.Name)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_locations")
	}
	defer rows.Close()

	locations := []*LocationWithVendors{}
	byID := map[string]*LocationWithVendors{}
	for rows.Next() {
		l := &LocationWithVendors{Vendors: []*Vendor{}}
		if err := rows.Scan(
			&l.ID, &l.Name, &l.Type, &l.Description, &l.X, &l.Y, &l.Icon, &l.SafetyRating, &l.IsPublished,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_location")
		}
		locations = append(locations, l)
		byID[l.ID] = l
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "list_locations")
	}

	// Second query instead of a JOIN: vendors attach in one pass and
	// locations without vendors still marshal with an empty array.
	vendorQuery := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		ORDER BY %s ASC
	`,
		schema.Vendor.ID, schema.Vendor.LocationID, schema.Vendor.Name, schema.Vendor.Description,
		schema.Vendor.Hours, schema.Vendor.Services, schema.Vendor.Table, schema.Vendor.Name,
	)

	vendorRows, err := repository.db.Query(ctx, vendorQuery)
	if err != nil {
		return nil, dberr.Wrap(err, "list_vendors")
	}
	defer vendorRows.Close()

	for vendorRows.Next() {
		v := &Vendor{}
		if err := vendorRows.Scan(&v.ID, &v.LocationID, &v.Name, &v.Description, &v.Hours, &v.Services); err != nil {
			return nil, dberr.Wrap(err, "scan_vendor")
		}
		if location, ok := byID[v.LocationID]; ok {
			location.Vendors = append(location.Vendors, v)
		}
	}

	return locations, dberr.Wrap(vendorRows.Err(), "list_vendors")
}

func (repository *PostgresRepository) GetLocation(ctx context.Context, id string) (*LocationWithVendors, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.Location.ID, schema.Location.Name, schema.Location.Type, schema.Location.Description,
		schema.Location.X, schema.Location.Y, schema.Location.Icon, schema.Location.SafetyRating,
		schema.Location.IsPublished, schema.Location.Table, schema.Location.ID,
	)

	l := &LocationWithVendors{}
	err := repository.db.QueryRow(ctx, query, id).Scan(
		&l.ID, &l.Name, &l.Type, &l.Description, &l.X, &l.Y, &l.Icon, &l.SafetyRating, &l.IsPublished,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_location")
	}

	vendors, err := repository.ListVendorsByLocation(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Vendors = vendors

	return l, nil
}

func (repository *PostgresRepository) CreateLocation(ctx context.Context, location *Location) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		schema.Location.Table,
		schema.Location.ID, schema.Location.Name, schema.Location.Type, schema.Location.Description,
		schema.Location.X, schema.Location.Y, schema.Location.Icon, schema.Location.SafetyRating,
		schema.Location.IsPublished,
	)

	_, err := repository.db.Exec(ctx, query,
		location.ID, location.Name, location.Type, location.Description,
		location.X, location.Y, location.Icon, location.SafetyRating, location.IsPublished,
	)
	return dberr.Wrap(err, "create_location")
}

func (repository *PostgresRepository) UpdateLocation(ctx context.Context, location *Location) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5, %s = $6, %s = $7, %s = $8, %s = $9
		WHERE %s = $1
	`,
		schema.Location.Table,
		schema.Location.Name, schema.Location.Type, schema.Location.Description, schema.Location.X,
		schema.Location.Y, schema.Location.Icon, schema.Location.SafetyRating, schema.Location.IsPublished,
		schema.Location.ID,
	)

	cmd, err := repository.db.Exec(ctx, query,
		location.ID, location.Name, location.Type, location.Description,
		location.X, location.Y, location.Icon, location.SafetyRating, location.IsPublished,
	)
	if err != nil {
		return dberr.Wrap(err, "update_location")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) DeleteLocation(ctx context.Context, id string) error {
	// Cascade runs in one transaction: vendors, then roads touching either
	// end, then the location row. No partial state is ever visible.
	err := pgx.BeginFunc(ctx, repository.db, func(tx pgx.Tx) error {
		vendorQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.Vendor.Table, schema.Vendor.LocationID,
		)
		if _, err := tx.Exec(ctx, vendorQuery, id); err != nil {
			return fmt.Errorf("delete vendors: %w", err)
		}

		roadQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 OR %s = $1`,
			schema.Road.Table, schema.Road.FromLocationID, schema.Road.ToLocationID,
		)
		if _, err := tx.Exec(ctx, roadQuery, id); err != nil {
			return fmt.Errorf("delete roads: %w", err)
		}

		locationQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.Location.Table, schema.Location.ID,
		)
		cmd, err := tx.Exec(ctx, locationQuery, id)
		if err != nil {
			return fmt.Errorf("delete location: %w", err)
		}
		if cmd.RowsAffected() == 0 {
			return dberr.ErrNotFound
		}
		return nil
	})

	if errors.Is(err, dberr.ErrNotFound) {
		return dberr.ErrNotFound
	}
	return dberr.Wrap(err, "delete_location")
}

func (repository *PostgresRepository) SetLocationPublished(ctx context.Context, id string, published bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.Location.Table, schema.Location.IsPublished, schema.Location.ID,
	)

	cmd, err := repository.db.Exec(ctx, query, id, published)
	if err != nil {
		return dberr.Wrap(err, "publish_location")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// # Vendors

func (repository *PostgresRepository) ListVendorsByLocation(ctx context.Context, locationID string) ([]*Vendor, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
		ORDER BY %s ASC
	`,
		schema.Vendor.ID, schema.Vendor.LocationID, schema.Vendor.Name, schema.Vendor.Description,
		schema.Vendor.Hours, schema.Vendor.Services, schema.Vendor.Table, schema.Vendor.LocationID,
		schema.Vendor.Name,
	)

	rows, err := repository.db.Query(ctx, query, locationID)
	if err != nil {
		return nil, dberr.Wrap(err, "list_vendors")
	}
	defer rows.Close()

	vendors := []*Vendor{}
	for rows.Next() {
		v := &Vendor{}
		if err := rows.Scan(&v.ID, &v.LocationID, &v.Name, &v.Description, &v.Hours, &v.Services); err != nil {
			return nil, dberr.Wrap(err, "scan_vendor")
		}
		vendors = append(vendors, v)
	}

	return vendors, dberr.Wrap(rows.Err(), "list_vendors")
}

func (repository *PostgresRepository) CreateVendor(ctx context.Context, vendor *Vendor) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		schema.Vendor.Table,
		schema.Vendor.ID, schema.Vendor.LocationID, schema.Vendor.Name, schema.Vendor.Description,
		schema.Vendor.Hours, schema.Vendor.Services,
	)

	_, err := repository.db.Exec(ctx, query,
		vendor.ID, vendor.LocationID, vendor.Name, vendor.Description, vendor.Hours, vendor.Services,
	)
	return dberr.Wrap(err, "create_vendor")
}

func (repository *PostgresRepository) UpdateVendor(ctx context.Context, vendor *Vendor) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1
	`,
		schema.Vendor.Table,
		schema.Vendor.Name, schema.Vendor.Description, schema.Vendor.Hours, schema.Vendor.Services,
		schema.Vendor.ID,
	)

	cmd, err := repository.db.Exec(ctx, query,
		vendor.ID, vendor.Name, vendor.Description, vendor.Hours, vendor.Services,
	)
	if err != nil {
		return dberr.Wrap(err, "update_vendor")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) DeleteVendor(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Vendor.Table, schema.Vendor.ID)

	cmd, err := repository.db.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_vendor")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) ReplaceVendors(ctx context.Context, locationID string, vendors []*Vendor) error {
	err := pgx.BeginFunc(ctx, repository.db, func(tx pgx.Tx) error {
		deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`,
			schema.Vendor.Table, schema.Vendor.LocationID,
		)
		if _, err := tx.Exec(ctx, deleteQuery, locationID); err != nil {
			return fmt.Errorf("clear vendors: %w", err)
		}

		insertQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			schema.Vendor.Table,
			schema.Vendor.ID, schema.Vendor.LocationID, schema.Vendor.Name, schema.Vendor.Description,
			schema.Vendor.Hours, schema.Vendor.Services,
		)
		for _, vendor := range vendors {
			if _, err := tx.Exec(ctx, insertQuery,
				vendor.ID, vendor.LocationID, vendor.Name, vendor.Description, vendor.Hours, vendor.Services,
			); err != nil {
				return fmt.Errorf("insert vendor: %w", err)
			}
		}
		return nil
	})

	return dberr.Wrap(err, "replace_vendors")
}

// # Roads

func (repository *PostgresRepository) ListRoads(ctx context.Context) ([]*Road, error) {
	return repository.listRoads(ctx, false)
}

func (repository *PostgresRepository) ListPublishedRoads(ctx context.Context) ([]*Road, error) {
	return repository.listRoads(ctx, true)
}

func (repository *PostgresRepository) listRoads(ctx context.Context, publishedOnly bool) ([]*Road, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
	`,
		schema.Road.ID, schema.Road.FromLocationID, schema.Road.ToLocationID,
		schema.Road.PathData, schema.Road.IsPublished, schema.Road.Table,
	)
	if publishedOnly {
		query += fmt.Sprintf(" WHERE %s = TRUE", schema.Road.IsPublished)
	}
	query += fmt.Sprintf(" ORDER BY %s ASC", schema.Road.ID)

	rows, err := repository.db.Query(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "list_roads")
	}
	defer rows.Close()

	roads := []*Road{}
	for rows.Next() {
		r := &Road{}
		if err := rows.Scan(&r.ID, &r.FromLocationID, &r.ToLocationID, &r.PathData, &r.IsPublished); err != nil {
			return nil, dberr.Wrap(err, "scan_road")
		}
		roads = append(roads, r)
	}

	return roads, dberr.Wrap(rows.Err(), "list_roads")
}

func (repository *PostgresRepository) GetRoad(ctx context.Context, id string) (*Road, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.Road.ID, schema.Road.FromLocationID, schema.Road.ToLocationID,
		schema.Road.PathData, schema.Road.IsPublished, schema.Road.Table, schema.Road.ID,
	)

	r := &Road{}
	err := repository.db.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.FromLocationID, &r.ToLocationID, &r.PathData, &r.IsPublished,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_road")
	}
	return r, nil
}

func (repository *PostgresRepository) CreateRoad(ctx context.Context, road *Road) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5)
	`,
		schema.Road.Table,
		schema.Road.ID, schema.Road.FromLocationID, schema.Road.ToLocationID,
		schema.Road.PathData, schema.Road.IsPublished,
	)

	_, err := repository.db.Exec(ctx, query,
		road.ID, road.FromLocationID, road.ToLocationID, road.PathData, road.IsPublished,
	)
	return dberr.Wrap(err, "create_road")
}

func (repository *PostgresRepository) UpdateRoad(ctx context.Context, road *Road) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = $4, %s = $5
		WHERE %s = $1
	`,
		schema.Road.Table,
		schema.Road.FromLocationID, schema.Road.ToLocationID, schema.Road.PathData, schema.Road.IsPublished,
		schema.Road.ID,
	)

	cmd, err := repository.db.Exec(ctx, query,
		road.ID, road.FromLocationID, road.ToLocationID, road.PathData, road.IsPublished,
	)
	if err != nil {
		return dberr.Wrap(err, "update_road")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) DeleteRoad(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, schema.Road.Table, schema.Road.ID)

	cmd, err := repository.db.Exec(ctx, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_road")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

func (repository *PostgresRepository) SetRoadPublished(ctx context.Context, id string, published bool) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2 WHERE %s = $1`,
		schema.Road.Table, schema.Road.IsPublished, schema.Road.ID,
	)

	cmd, err := repository.db.Exec(ctx, query, id, published)
	if err != nil {
		return dberr.Wrap(err, "publish_road")
	}
	if cmd.RowsAffected() == 0 {
		return dberr.ErrNotFound
	}
	return nil
}

// # Map State

func (repository *PostgresRepository) MapState(ctx context.Context) (*MapState, error) {
	// Lazy-create: the insert is a no-op once the singleton exists, so every
	// read after the first is a plain select.
	insertQuery := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s) DO NOTHING
	`,
		schema.MapState.Table, schema.MapState.ID, schema.MapState.AdminCodeHash, schema.MapState.ID,
	)
	if _, err := repository.db.Exec(ctx, insertQuery, StateID, repository.seedAdminCodeHash); err != nil {
		return nil, dberr.Wrap(err, "seed_map_state")
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s, %s, %s
		FROM %s
		WHERE %s = $1
	`,
		schema.MapState.ID, schema.MapState.LastPublishedAt, schema.MapState.AdminCodeHash,
		schema.MapState.Table, schema.MapState.ID,
	)

	state := &MapState{}
	err := repository.db.QueryRow(ctx, selectQuery, StateID).Scan(
		&state.ID, &state.LastPublishedAt, &state.AdminCodeHash,
	)
	if err != nil {
		return nil, dberr.Wrap(err, "get_map_state")
	}
	return state, nil
}

func (repository *PostgresRepository) UpdateAdminCodeHash(ctx context.Context, hash string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s)
		VALUES ($1, $2)
		ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s
	`,
		schema.MapState.Table, schema.MapState.ID, schema.MapState.AdminCodeHash,
		schema.MapState.ID, schema.MapState.AdminCodeHash, schema.MapState.AdminCodeHash,
	)

	_, err := repository.db.Exec(ctx, query, StateID, hash)
	return dberr.Wrap(err, "update_admin_code")
}

func (repository *PostgresRepository) PublishAll(ctx context.Context, publishedAt time.Time) error {
	err := pgx.BeginFunc(ctx, repository.db, func(tx pgx.Tx) error {
		locationQuery := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = FALSE`,
			schema.Location.Table, schema.Location.IsPublished, schema.Location.IsPublished,
		)
		if _, err := tx.Exec(ctx, locationQuery); err != nil {
			return fmt.Errorf("publish locations: %w", err)
		}

		roadQuery := fmt.Sprintf(`UPDATE %s SET %s = TRUE WHERE %s = FALSE`,
			schema.Road.Table, schema.Road.IsPublished, schema.Road.IsPublished,
		)
		if _, err := tx.Exec(ctx, roadQuery); err != nil {
			return fmt.Errorf("publish roads: %w", err)
		}

		stateQuery := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s)
			VALUES ($1, $2, $3)
			ON CONFLICT (%s) DO UPDATE SET %s = EXCLUDED.%s
		`,
			schema.MapState.Table, schema.MapState.ID, schema.MapState.AdminCodeHash,
			schema.MapState.LastPublishedAt, schema.MapState.ID,
			schema.MapState.LastPublishedAt, schema.MapState.LastPublishedAt,
		)
		if _, err := tx.Exec(ctx, stateQuery, StateID, repository.seedAdminCodeHash, publishedAt); err != nil {
			return fmt.Errorf("stamp publish time: %w", err)
		}
		return nil
	})

	return dberr.Wrap(err, "publish_all")
}
