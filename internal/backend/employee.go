package backend

import (
	"context"
	"fmt"
)

// EmployeeClient talks to the employee service.
type EmployeeClient struct {
	*Client
}

// NewEmployeeClient creates an employee service client.
func NewEmployeeClient(baseURL string, opts ...Option) *EmployeeClient {
	return &EmployeeClient{Client: NewClient("employee", baseURL, opts...)}
}

// EmployeeByAccountID returns the employee bound to an account.
func (c *EmployeeClient) EmployeeByAccountID(ctx context.Context, accountID int64) (Employee, error) {
	var e Employee
	if err := c.getJSON(ctx, fmt.Sprintf("/employee/account/%d", accountID), &e); err != nil {
		return Employee{}, fmt.Errorf("failed to get employee for account %d: %w", accountID, err)
	}
	return e, nil
}
