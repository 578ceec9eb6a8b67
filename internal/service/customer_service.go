package service

import (
	"context"
	"errors"
	"strings"

	"pos-backoffice/internal/model"
	"pos-backoffice/internal/repository"
	"pos-backoffice/pkg/validator"

	"github.com/google/uuid"
)

const defaultRankingLimit = 10

type CustomerRequest struct {
	Name  string `json:"name" validate:"required"`
	Phone string `json:"phone" validate:"max=40"`
	Email string `json:"email" validate:"omitempty,email"`
	Notes string `json:"notes"`
}

type CustomerService interface {
	CreateCustomer(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *CustomerRequest) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *CustomerRequest) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, caller *Principal, tenantID, id uuid.UUID) error
	ListCustomers(ctx context.Context, tenantID uuid.UUID, search string) ([]model.Customer, error)
	Ranking(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.CustomerRanking, error)
}

type customerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) CustomerService {
	return &customerService{customers: customers}
}

func (s *customerService) CreateCustomer(ctx context.Context, caller *Principal, tenantID uuid.UUID, req *CustomerRequest) (*model.Customer, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	customer := &model.Customer{
		TenantID: tenantID,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Notes:    req.Notes,
	}
	customer.CreatedBy = caller.Actor()
	customer.UpdatedBy = caller.Actor()
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, caller *Principal, tenantID, id uuid.UUID, req *CustomerRequest) (*model.Customer, error) {
	if err := validator.Validate(req); err != nil {
		return nil, err
	}
	customer, err := s.customers.FindByID(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	customer.Name = strings.TrimSpace(req.Name)
	customer.Phone = strings.TrimSpace(req.Phone)
	customer.Email = strings.TrimSpace(req.Email)
	customer.Notes = req.Notes
	customer.UpdatedBy = caller.Actor()
	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, caller *Principal, tenantID, id uuid.UUID) error {
	err := s.customers.Delete(ctx, tenantID, id, caller.Actor())
	if errors.Is(err, repository.ErrNotFound) {
		return ErrCustomerNotFound
	}
	return err
}

func (s *customerService) ListCustomers(ctx context.Context, tenantID uuid.UUID, search string) ([]model.Customer, error) {
	return s.customers.FindAll(ctx, tenantID, strings.TrimSpace(search))
}

func (s *customerService) Ranking(ctx context.Context, tenantID uuid.UUID, limit int) ([]model.CustomerRanking, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultRankingLimit
	}
	return s.customers.Ranking(ctx, tenantID, limit)
}
