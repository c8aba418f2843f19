package customers

import (
	"context"
	"strings"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/integrations/shipstation"
	"github.com/BearBump/SkyRush/internal/models"
	"github.com/pkg/errors"
)

const DefaultPageSize = 500

type CustomerClient interface {
	ListRecentCustomers(ctx context.Context, pageSize int) ([]models.Customer, error)
}

type Service struct {
	client   CustomerClient
	pageSize int
}

func New(client CustomerClient, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{client: client, pageSize: pageSize}
}

// FindCustomer searches the most recently modified page of customers. An
// email match anywhere in the page wins over a phone match.
func (s *Service) FindCustomer(ctx context.Context, email, phone string) (*models.Customer, error) {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, apperr.BadRequest("Please provide an email or phone number to search.")
	}

	list, err := s.client.ListRecentCustomers(ctx, s.pageSize)
	if err != nil {
		var apiErr *shipstation.APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, apperr.Internal(err, "%s", apiErr.Message)
		}
		return nil, apperr.Internal(err, "Failed to fetch customer")
	}

	if c := Match(list, email, phone); c != nil {
		return c, nil
	}
	return nil, apperr.NotFound("Customer not found in the recent records")
}

// Match applies the lookup policy to an already fetched page.
func Match(list []models.Customer, email, phone string) *models.Customer {
	if email != "" {
		for i := range list {
			if list[i].Email != "" && strings.EqualFold(list[i].Email, email) {
				return &list[i]
			}
		}
	}
	if want := digitsOnly(phone); want != "" {
		for i := range list {
			if digitsOnly(list[i].Phone) == want {
				return &list[i]
			}
		}
	}
	return nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
