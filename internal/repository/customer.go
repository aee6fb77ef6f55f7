package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/sirupsen/logrus"
	appErrors "github.com/umalmyha/customer-registry/internal/errors"
	"github.com/umalmyha/customer-registry/internal/model"
	"github.com/umalmyha/customer-registry/pkg/db/transactor"
)

const pgUniqueViolationCode = "23505"

// ErrFeedClosed is returned by Watch when change feed ends while ctx is still alive
var ErrFeedClosed = errors.New("change feed closed")

// CustomersChangedChannel is postgres notification channel populated by customers table trigger
const CustomersChangedChannel = "customers_changed"

// CustomerRepository represents behavior for customer repository
type CustomerRepository interface {
	FindByID(context.Context, string) (*model.Customer, error)
	FindAll(context.Context) ([]*model.Customer, error)
	Create(context.Context, *model.Customer) error
	Update(context.Context, *model.Customer) error
	DeleteByID(context.Context, string) error
	// Watch blocks delivering changes to fn, starting with ChangeSync once the feed is open.
	// Returns nil when ctx is cancelled and ErrFeedClosed when feed ends on its own.
	Watch(context.Context, func(*model.CustomerChange) error) error
}

type postgresCustomerRepository struct {
	pool     *pgxpool.Pool
	executor transactor.PgxWithinTransactionExecutor
}

// NewPostgresCustomerRepository creates customer repository for postgres
func NewPostgresCustomerRepository(p *pgxpool.Pool) CustomerRepository {
	return &postgresCustomerRepository{
		pool:     p,
		executor: transactor.NewPgxWithinTransactionExecutor(p),
	}
}

func (r *postgresCustomerRepository) FindByID(ctx context.Context, id string) (*model.Customer, error) {
	q := `SELECT id, national_id, first_names, last_names, birth_date, sex, registered_at
          FROM customers WHERE id = $1`

	row := r.executor.Executor(ctx).QueryRow(ctx, q, id)
	c, err := r.scan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return c, nil
}

func (r *postgresCustomerRepository) FindAll(ctx context.Context) ([]*model.Customer, error) {
	q := `SELECT id, national_id, first_names, last_names, birth_date, sex, registered_at
          FROM customers`

	rows, err := r.executor.Executor(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]*model.Customer, 0)
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *postgresCustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	q := `INSERT INTO customers(id, national_id, first_names, last_names, birth_date, sex, registered_at)
          VALUES($1, $2, $3, $4, $5, $6, $7)`

	var registeredAt pgtype.Timestamptz
	if c.RegisteredAt != nil {
		registeredAt = pgtype.Timestamptz{Time: *c.RegisteredAt, Status: pgtype.Present}
	} else {
		registeredAt = pgtype.Timestamptz{Status: pgtype.Null}
	}

	_, err := r.executor.Executor(ctx).Exec(ctx, q, c.ID, c.NationalID, c.FirstNames, c.LastNames, c.BirthDate, string(c.Sex), &registeredAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolationCode {
			return customerExistsErr(c.ID)
		}
		return err
	}
	return nil
}

func (r *postgresCustomerRepository) Update(ctx context.Context, c *model.Customer) error {
	q := `UPDATE customers SET national_id = $1, first_names = $2, last_names = $3, birth_date = $4, sex = $5
          WHERE id = $6`
	_, err := r.executor.Executor(ctx).Exec(ctx, q, c.NationalID, c.FirstNames, c.LastNames, c.BirthDate, string(c.Sex), c.ID)
	return err
}

func (r *postgresCustomerRepository) DeleteByID(ctx context.Context, id string) error {
	q := "DELETE FROM customers WHERE id = $1"
	_, err := r.executor.Executor(ctx).Exec(ctx, q, id)
	return err
}

func (r *postgresCustomerRepository) Watch(ctx context.Context, fn func(*model.CustomerChange) error) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for notifications - %w", err)
	}
	defer func() {
		if !conn.Conn().IsClosed() {
			if _, err := conn.Exec(context.Background(), "UNLISTEN *"); err != nil {
				logrus.Warnf("failed to unlisten %s - %v", CustomersChangedChannel, err)
			}
		}
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+CustomersChangedChannel); err != nil {
		return fmt.Errorf("failed to listen %s - %w", CustomersChangedChannel, err)
	}

	if err := fn(&model.CustomerChange{Op: model.ChangeSync}); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to wait for notification - %w", err)
		}

		change, err := parseCustomerChange(n.Payload)
		if err != nil {
			logrus.Warnf("skipping notification on %s - %v", n.Channel, err)
			continue
		}

		if err := fn(change); err != nil {
			return err
		}
	}
}

func (r *postgresCustomerRepository) scan(row pgx.Row) (*model.Customer, error) {
	var c model.Customer
	var sex string
	var registeredAt pgtype.Timestamptz

	if err := row.Scan(&c.ID, &c.NationalID, &c.FirstNames, &c.LastNames, &c.BirthDate, &sex, &registeredAt); err != nil {
		return nil, err
	}

	c.Sex = model.Sex(sex)
	if registeredAt.Status == pgtype.Present {
		t := registeredAt.Time.UTC()
		c.RegisteredAt = &t
	}
	return &c, nil
}

// parseCustomerChange parses payload in format <operation>:<id>
func parseCustomerChange(payload string) (*model.CustomerChange, error) {
	op, id, ok := strings.Cut(payload, ":")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed payload %q", payload)
	}

	change := &model.CustomerChange{ID: id}
	switch model.ChangeOp(op) {
	case model.ChangeInsert, model.ChangeUpdate, model.ChangeDelete:
		change.Op = model.ChangeOp(op)
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	return change, nil
}

func customerExistsErr(id string) error {
	return appErrors.NewCustomerRuleErr("id", fmt.Sprintf("customer with id %s already exists", id))
}
