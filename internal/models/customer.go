package models

// Customer mirrors a ShipStation customer record.
type Customer struct {
	CustomerID      int64  `json:"customerId"`
	CreateDate      string `json:"createDate,omitempty"`
	ModifyDate      string `json:"modifyDate,omitempty"`
	Name            string `json:"name"`
	Company         string `json:"company,omitempty"`
	Street1         string `json:"street1,omitempty"`
	Street2         string `json:"street2,omitempty"`
	City            string `json:"city,omitempty"`
	State           string `json:"state,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	CountryCode     string `json:"countryCode,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Email           string `json:"email,omitempty"`
	AddressVerified string `json:"addressVerified,omitempty"`
}
