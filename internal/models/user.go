package models

import "time"

const (
	ShippingOptionStandard   = "Standard"
	ShippingOptionExpress    = "Express"
	ShippingOptionEconomy    = "Economy"
	ShippingOptionAirFreight = "Air Freight"
	DefaultCountry           = "US +1"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Address struct {
	Street      string `json:"street"`
	StreetLine2 string `json:"streetLine2,omitempty"`
	City        string `json:"city"`
	State       string `json:"state"`
	ZipCode     string `json:"zipCode"`
	Country     string `json:"country"`
}

type User struct {
	ID             string
	FirstName      string
	LastName       string
	Email          string
	Phone          string
	PasswordHash   string
	Country        string
	ShippingOption string
	CompanyName    string
	Address        Address
	Role           string
	CreatedAt      time.Time
}

// Profile is the client-facing view of a User. It never carries the password hash.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Country        string    `json:"country"`
	CompanyName    string    `json:"companyName,omitempty"`
	ShippingOption string    `json:"shippingOption"`
	Address        Address   `json:"address"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"createdAt"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:             u.ID,
		Name:           u.FirstName + " " + u.LastName,
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		Phone:          u.Phone,
		Country:        u.Country,
		CompanyName:    u.CompanyName,
		ShippingOption: u.ShippingOption,
		Address:        u.Address,
		Role:           u.Role,
		CreatedAt:      u.CreatedAt,
	}
}

type RegisterInput struct {
	FirstName      string `json:"firstName" validate:"required"`
	LastName       string `json:"lastName" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Phone          string `json:"phone" validate:"required"`
	Password       string `json:"password" validate:"required,min=6"`
	Country        string `json:"country"`
	ShippingOption string `json:"shippingOption" validate:"required,oneof=Standard Express Economy 'Air Freight'"`
	CompanyName    string `json:"companyName"`
	Street         string `json:"street" validate:"required"`
	StreetLine2    string `json:"streetLine2"`
	City           string `json:"city" validate:"required"`
	State          string `json:"state" validate:"required"`
	ZipCode        string `json:"zipCode" validate:"required"`
	AddressCountry string `json:"addressCountry" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
