// internal/store/customers.go
package store

import (
	"context"
	"database/sql"

	"mfg-orchestrator/internal/common/errors"
	"mfg-orchestrator/internal/models"
)

const customerColumns = `id, name, email, phone, active, payment_terms_days, created_at`

func scanCustomer(row rowScanner) (*models.Customer, error) {
	var (
		c            models.Customer
		email, phone sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &email, &phone, &c.Active, &c.PaymentTermsDays, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	return &c, nil
}

func (s *Store) AddCustomer(ctx context.Context, name, email, phone string) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		INSERT INTO customers (name, email, phone)
		VALUES ($1, $2, $3)
		RETURNING `+customerColumns, name, nullString(email), nullString(phone)))
	if err != nil {
		return nil, errors.NewDatabaseInsertFailedError(err)
	}
	s.logger.Info("customer added", map[string]interface{}{"customerId": c.ID})
	return c, nil
}

func (s *Store) ListCustomers(ctx context.Context, activeOnly bool) ([]models.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_customers", err)
	}
	defer rows.Close()

	out := []models.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_customers", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *Store) GetCustomerByName(ctx context.Context, name string) (*models.Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE name ILIKE $1 ORDER BY id LIMIT 1`, name))
	if isNoRows(err) {
		return nil, errors.NewCustomerNotFoundError(name)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get_customer", err)
	}
	return c, nil
}
