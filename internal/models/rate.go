package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type Destination struct {
	Country string `json:"country"`
	Zip     string `json:"zip"`
	City    string `json:"city"`
	State   string `json:"state"`
}

// Measure accepts both JSON numbers and numeric strings, since form inputs
// usually arrive as strings.
type Measure float64

func (m *Measure) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*m = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return errors.Wrapf(err, "invalid measure %q", s)
	}
	*m = Measure(f)
	return nil
}

type PackageDimensions struct {
	Weight Measure `json:"weight"`
	Length Measure `json:"length"`
	Width  Measure `json:"width"`
	Height Measure `json:"height"`
}

type RateRequest struct {
	ToAddress   *Destination       `json:"toAddress"`
	PackageInfo *PackageDimensions `json:"packageInfo"`
}

// RateQuote is one carrier service offer. Quotes are never persisted.
type RateQuote struct {
	CarrierCode  string  `json:"carrierCode"`
	ServiceName  string  `json:"serviceName"`
	ServiceCode  string  `json:"serviceCode"`
	ShipmentCost float64 `json:"shipmentCost"`
	OtherCost    float64 `json:"otherCost"`
	TransitDays  *int    `json:"transitDays,omitempty"`
}
