package domain

import "time"

// Employee is one row of the employees demo grid, joined with the current
// salary.
type Employee struct {
	EmpNo     int       `json:"emp_no"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Gender    string    `json:"gender"`
	BirthDate time.Time `json:"birth_date"`
	HireDate  time.Time `json:"hire_date"`
	DeptName  string    `json:"dept_name"`
	Salary    int       `json:"salary"`
}

// Department is one row of the in-memory departments demo grid.
type Department struct {
	DeptNo    string `json:"dept_no"`
	DeptName  string `json:"dept_name"`
	Headcount int    `json:"headcount"`
	Manager   string `json:"manager"`
}
