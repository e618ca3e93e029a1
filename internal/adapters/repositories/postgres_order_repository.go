package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"delivery-tracking-service/internal/domain"
	"delivery-tracking-service/internal/platform/obs"
)

// Postgres-backed implementation of the OrderRepository port.
//
// Status appends run in a transaction so the history insert and the current
// status update land together or not at all.
type PostgresOrderRepository struct{ DB *sql.DB }

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{DB: db}
}

func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (err error) {
	defer obs.Time(ctx, "orders.repo.Create")(&err)

	if r.DB == nil {
		return errors.New("order repository: DB is nil")
	}
	if order == nil {
		return errors.New("create order: order is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create order: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	insertOrder := `
	INSERT INTO orders (tracking_number, city, weight_class, destination_lat, destination_lon, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (tracking_number) DO NOTHING;
	`
	res, err := tx.ExecContext(ctx, insertOrder,
		order.TrackingNumber, order.City, string(order.WeightClass),
		order.Destination.Lat, order.Destination.Lon,
		string(order.CurrentStatus), order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create order: insert orders row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create order: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("create order %s: %w", order.TrackingNumber, domain.ErrDuplicateOrder)
	}

	insertHistory := `
	INSERT INTO order_status_history (tracking_number, status, message, occurred_at)
	VALUES ($1, $2, $3, $4);
	`
	for _, entry := range order.History {
		if _, err := tx.ExecContext(ctx, insertHistory,
			order.TrackingNumber, string(entry.Status), entry.Message, entry.Timestamp,
		); err != nil {
			return fmt.Errorf("create order: insert history row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create order: commit tx: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) GetOrder(ctx context.Context, trackingNumber string) (_ *domain.Order, err error) {
	defer obs.Time(ctx, "orders.repo.Get")(&err)

	if r.DB == nil {
		return nil, errors.New("order repository: DB is nil")
	}

	query := `
	SELECT city, weight_class, destination_lat, destination_lon, status, route, created_at, updated_at
	FROM orders
	WHERE tracking_number = $1;
	`
	var (
		order    domain.Order
		status   string
		weight   string
		routeRaw []byte
	)
	order.TrackingNumber = trackingNumber

	row := r.DB.QueryRowContext(ctx, query, trackingNumber)
	err = row.Scan(&order.City, &weight, &order.Destination.Lat, &order.Destination.Lon,
		&status, &routeRaw, &order.CreatedAt, &order.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get order %s: %w", trackingNumber, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: scan orders row: %w", err)
	}

	order.CurrentStatus = domain.OrderStatus(status)
	order.WeightClass = domain.WeightClass(weight)

	if len(routeRaw) > 0 {
		var route domain.RouteResult
		if err := json.Unmarshal(routeRaw, &route); err != nil {
			return nil, fmt.Errorf("get order: decode route column: %w", err)
		}
		order.Route = &route
	}

	historyQuery := `
	SELECT status, message, occurred_at
	FROM order_status_history
	WHERE tracking_number = $1
	ORDER BY id;
	`
	rows, err := r.DB.QueryContext(ctx, historyQuery, trackingNumber)
	if err != nil {
		return nil, fmt.Errorf("get order: query history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry domain.StatusEntry
		var entryStatus string
		if err := rows.Scan(&entryStatus, &entry.Message, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("get order: scan history row: %w", err)
		}
		entry.Status = domain.OrderStatus(entryStatus)
		order.History = append(order.History, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get order: history iteration: %w", err)
	}

	return &order, nil
}

func (r *PostgresOrderRepository) AppendStatus(ctx context.Context, trackingNumber string, status domain.OrderStatus, message string, at time.Time) (err error) {
	defer obs.Time(ctx, "orders.repo.AppendStatus")(&err)

	if r.DB == nil {
		return errors.New("order repository: DB is nil")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append status: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	update := `
	UPDATE orders SET status = $2, updated_at = $3
	WHERE tracking_number = $1;
	`
	res, err := tx.ExecContext(ctx, update, trackingNumber, string(status), at)
	if err != nil {
		return fmt.Errorf("append status: update orders row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append status: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("append status %s: %w", trackingNumber, domain.ErrUnknownOrder)
	}

	insert := `
	INSERT INTO order_status_history (tracking_number, status, message, occurred_at)
	VALUES ($1, $2, $3, $4);
	`
	if _, err := tx.ExecContext(ctx, insert, trackingNumber, string(status), message, at); err != nil {
		return fmt.Errorf("append status: insert history row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append status: commit tx: %w", err)
	}
	return nil
}

func (r *PostgresOrderRepository) AttachRoute(ctx context.Context, trackingNumber string, route *domain.RouteResult) (err error) {
	defer obs.Time(ctx, "orders.repo.AttachRoute")(&err)

	if r.DB == nil {
		return errors.New("order repository: DB is nil")
	}
	if route == nil {
		return errors.New("attach route: route is nil")
	}

	raw, err := json.Marshal(route)
	if err != nil {
		return fmt.Errorf("attach route: encode route: %w", err)
	}

	update := `
	UPDATE orders SET route = $2, updated_at = $3
	WHERE tracking_number = $1;
	`
	res, err := r.DB.ExecContext(ctx, update, trackingNumber, raw, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("attach route: update orders row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("attach route: rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("attach route %s: %w", trackingNumber, domain.ErrUnknownOrder)
	}
	return nil
}
