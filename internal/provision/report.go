package provision

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// WriteReport prints the report as three tables: items, tables, employee load.
func WriteReport(w io.Writer, r *Report) error {
	items := tablewriter.NewWriter(w)
	items.Header("Item ID", "Name", "Price", "Status")
	for _, item := range r.Items {
		if err := items.Append([]string{
			strconv.FormatInt(item.ID, 10),
			item.Name,
			strconv.FormatInt(item.Price, 10),
			status(item.Created),
		}); err != nil {
			return err
		}
	}
	if err := items.Render(); err != nil {
		return fmt.Errorf("provision: failed to render items: %w", err)
	}

	tables := tablewriter.NewWriter(w)
	tables.Header("Table", "Deep link", "Page", "Status")
	for _, t := range r.Tables {
		if err := tables.Append([]string{
			strconv.FormatInt(t.ID, 10),
			t.DeepLink,
			t.PageURL,
			status(t.Created),
		}); err != nil {
			return err
		}
	}
	if err := tables.Render(); err != nil {
		return fmt.Errorf("provision: failed to render tables: %w", err)
	}

	employees := tablewriter.NewWriter(w)
	employees.Header("Employee ID", "Salary", "Orders")
	for _, e := range r.Employees {
		if err := employees.Append([]string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatFloat(e.Salary, 'f', 2, 64),
			strconv.Itoa(e.OrderCount),
		}); err != nil {
			return err
		}
	}
	if err := employees.Render(); err != nil {
		return fmt.Errorf("provision: failed to render employees: %w", err)
	}

	_, err := fmt.Fprintf(w, "%d employee(s) added\n", r.EmployeesCreated)
	return err
}

func status(created bool) string {
	if created {
		return "created"
	}
	return "updated"
}
