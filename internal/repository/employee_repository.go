package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/locvowork/grid_export_service/internal/domain"
	"github.com/locvowork/grid_export_service/pkg/gridexport"
)

// EmployeeRepository reads the employees demo grid from Postgres, joined
// with the current department and salary.
type EmployeeRepository struct {
	db *sql.DB
}

func NewEmployeeRepository(db *sql.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeePageQuery = `SELECT e.emp_no, e.first_name, e.last_name, e.gender, e.birth_date, e.hire_date,
       COALESCE(d.dept_name, '') AS dept_name, COALESCE(s.salary, 0) AS salary
FROM employees e
LEFT JOIN dept_emp de ON de.emp_no = e.emp_no AND de.to_date = '9999-01-01'
LEFT JOIN departments d ON d.dept_no = de.dept_no
LEFT JOIN salaries s ON s.emp_no = e.emp_no AND s.to_date = '9999-01-01'
ORDER BY e.emp_no`

// FetchPage returns employees ordered by emp_no. limit <= 0 fetches the
// rest of the table from offset.
func (r *EmployeeRepository) FetchPage(ctx context.Context, offset, limit int) ([]domain.Employee, error) {
	query := employeePageQuery
	var args []interface{}
	if limit > 0 {
		query += " LIMIT $1 OFFSET $2"
		args = append(args, limit, offset)
	} else {
		query += " OFFSET $1"
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	var out []domain.Employee
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.EmpNo, &e.FirstName, &e.LastName, &e.Gender,
			&e.BirthDate, &e.HireDate, &e.DeptName, &e.Salary); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Provider adapts the repository to the export row feed. The db handle is
// owned by the application, so Close is a no-op.
func (r *EmployeeRepository) Provider() gridexport.RowProvider {
	return &employeeProvider{repo: r}
}

type employeeProvider struct {
	repo *EmployeeRepository
}

var _ gridexport.RowProvider = (*employeeProvider)(nil)

func (p *employeeProvider) FetchRows(ctx context.Context, offset, limit int) ([]gridexport.Row, error) {
	page, err := p.repo.FetchPage(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	rows := make([]gridexport.Row, len(page))
	for i, e := range page {
		rows[i] = gridexport.Row{
			"emp_no":     e.EmpNo,
			"first_name": e.FirstName,
			"last_name":  e.LastName,
			"gender":     e.Gender,
			"birth_date": e.BirthDate,
			"hire_date":  e.HireDate,
			"dept_name":  e.DeptName,
			"salary":     e.Salary,
		}
	}
	return rows, nil
}

func (p *employeeProvider) Close() error { return nil }
