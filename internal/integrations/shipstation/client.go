package shipstation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/BearBump/SkyRush/internal/models"
	"github.com/pkg/errors"
)

const DefaultBaseURL = "https://ssapi.shipstation.com"

// Client talks to the ShipStation v1 REST API with Basic auth.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	httpc     *http.Client
}

func New(baseURL, apiKey, apiSecret string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		httpc: &http.Client{
			Timeout: timeout,
		},
	}
}

// APIError is a non-2xx answer from ShipStation.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("shipstation http %d", e.StatusCode)
	}
	return fmt.Sprintf("shipstation http %d: %s", e.StatusCode, e.Message)
}

type Weight struct {
	Value float64 `json:"value"`
	Units string  `json:"units"`
}

type Dimensions struct {
	Units  string  `json:"units"`
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RateRequest is the body of POST /shipments/getrates.
type RateRequest struct {
	CarrierCode    string     `json:"carrierCode"`
	FromPostalCode string     `json:"fromPostalCode"`
	ToCountry      string     `json:"toCountry"`
	ToPostalCode   string     `json:"toPostalCode"`
	ToCity         string     `json:"toCity,omitempty"`
	ToState        string     `json:"toState,omitempty"`
	Weight         Weight     `json:"weight"`
	Dimensions     Dimensions `json:"dimensions"`
	Confirmation   string     `json:"confirmation"`
	Residential    bool       `json:"residential"`
}

type rateResp struct {
	ServiceName  string  `json:"serviceName"`
	ServiceCode  string  `json:"serviceCode"`
	ShipmentCost float64 `json:"shipmentCost"`
	OtherCost    float64 `json:"otherCost"`
	TransitDays  *int    `json:"transitDays,omitempty"`
}

type customersResp struct {
	Customers []models.Customer `json:"customers"`
	Total     int               `json:"total"`
	Page      int               `json:"page"`
	Pages     int               `json:"pages"`
}

// GetRates asks one carrier for every service it offers on the shipment.
func (c *Client) GetRates(ctx context.Context, in RateRequest) ([]models.RateQuote, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, errors.Wrap(err, "marshal rate request")
	}

	var out []rateResp
	if err := c.do(ctx, http.MethodPost, "/shipments/getrates", nil, body, &out); err != nil {
		return nil, err
	}

	quotes := make([]models.RateQuote, 0, len(out))
	for _, r := range out {
		quotes = append(quotes, models.RateQuote{
			CarrierCode:  in.CarrierCode,
			ServiceName:  r.ServiceName,
			ServiceCode:  r.ServiceCode,
			ShipmentCost: r.ShipmentCost,
			OtherCost:    r.OtherCost,
			TransitDays:  r.TransitDays,
		})
	}
	return quotes, nil
}

// ListRecentCustomers returns the most recently modified page of customers.
func (c *Client) ListRecentCustomers(ctx context.Context, pageSize int) ([]models.Customer, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	q.Set("sortBy", "ModifyDate")
	q.Set("sortDir", "DESC")

	var out customersResp
	if err := c.do(ctx, http.MethodGet, "/customers", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Customers, nil
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body []byte, dst any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return errors.Wrap(err, "parse base url")
	}
	u.Path = path
	if q != nil {
		u.RawQuery = q.Encode()
	}

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	req.Header.Set("Authorization", "Basic "+basicAuth(c.apiKey, c.apiSecret))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return errors.Wrap(err, "do request")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return errors.WithStack(decodeAPIError(resp))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return errors.Wrap(err, "decode")
	}
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Message          string `json:"Message"`
		ExceptionMessage string `json:"ExceptionMessage"`
	}
	if json.Unmarshal(b, &payload) == nil {
		apiErr.Message = payload.ExceptionMessage
		if apiErr.Message == "" {
			apiErr.Message = payload.Message
		}
	}
	return apiErr
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}
