package provision

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/table-order-bot/internal/catalog"
	"github.com/vasiliy-maslov/table-order-bot/internal/order"
	"github.com/vasiliy-maslov/table-order-bot/internal/qrcode"
)

type ItemResult struct {
	ID      int64
	Name    string
	Price   int64
	Created bool
}

type Table struct {
	ID       int64
	DeepLink string
	PageURL  string
	Created  bool
}

// Report describes what Apply changed and the resulting state.
type Report struct {
	Items            []ItemResult
	EmployeesCreated int
	Tables           []Table
	Employees        []order.Employee
}

type Service struct {
	repo    Repository
	qrcodes qrcode.Service
	orders  order.Service
	baseURL string
}

func NewService(repo Repository, qrcodes qrcode.Service, orders order.Service, baseURL string) *Service {
	return &Service{repo: repo, qrcodes: qrcodes, orders: orders, baseURL: baseURL}
}

// Apply is idempotent: items are matched by name, and employees and tables are
// only added up to the counts in f. Existing tables get a fresh token and image.
func (s *Service) Apply(ctx context.Context, f *File) (*Report, error) {
	report := &Report{}

	for _, spec := range f.Items {
		id, created, err := s.repo.UpsertItem(ctx, catalog.Item{Name: spec.Name, Description: spec.Description, Price: spec.Price})
		if err != nil {
			return nil, err
		}
		report.Items = append(report.Items, ItemResult{ID: id, Name: spec.Name, Price: spec.Price, Created: created})
	}

	existing, err := s.repo.CountEmployees(ctx)
	if err != nil {
		return nil, err
	}
	for i := existing; i < len(f.Employees); i++ {
		if _, err := s.repo.CreateEmployee(ctx, f.Employees[i].Salary); err != nil {
			return nil, err
		}
		report.EmployeesCreated++
	}

	tables, err := s.applyTables(ctx, f.Tables)
	if err != nil {
		return nil, err
	}
	report.Tables = tables

	report.Employees, err = s.orders.EmployeeLoad(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int("items", len(report.Items)).
		Int("employees_created", report.EmployeesCreated).
		Int("tables", len(report.Tables)).
		Msg("provision: applied")

	return report, nil
}

func (s *Service) applyTables(ctx context.Context, want int) ([]Table, error) {
	codes, err := s.qrcodes.List(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]Table, 0, max(want, len(codes)))
	for _, code := range codes {
		rotated, err := s.qrcodes.Rotate(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("provision: failed to refresh table %d: %w", code.ID, err)
		}
		tables = append(tables, s.table(rotated, false))
	}

	for i := len(codes); i < want; i++ {
		code, err := s.qrcodes.Provision(ctx)
		if err != nil {
			return nil, err
		}
		tables = append(tables, s.table(code, true))
	}

	return tables, nil
}

func (s *Service) table(code *qrcode.QRCode, created bool) Table {
	return Table{
		ID:       code.ID,
		DeepLink: s.qrcodes.DeepLink(code.UUID),
		PageURL:  qrcode.PageURL(s.baseURL, code.ID),
		Created:  created,
	}
}
