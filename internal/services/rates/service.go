package rates

import (
	"context"
	"sort"
	"time"

	"github.com/BearBump/SkyRush/internal/apperr"
	"github.com/BearBump/SkyRush/internal/integrations/shipstation"
	"github.com/BearBump/SkyRush/internal/logger"
	"github.com/BearBump/SkyRush/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type RateClient interface {
	GetRates(ctx context.Context, in shipstation.RateRequest) ([]models.RateQuote, error)
}

type Limiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type Config struct {
	Carriers       []string
	FromPostalCode string
	// LimitPerMinute caps outbound calls per carrier across replicas; 0 disables it.
	LimitPerMinute int
}

type Service struct {
	client  RateClient
	limiter Limiter
	cfg     Config
}

func New(client RateClient, limiter Limiter, cfg Config) *Service {
	return &Service{
		client:  client,
		limiter: limiter,
		cfg:     cfg,
	}
}

// GetRates quotes every configured carrier in parallel and returns all offers,
// cheapest first. A carrier that fails or is throttled contributes nothing,
// and that includes a carrier rejecting an incomplete address or package.
// Only a missing address or package is an error.
func (s *Service) GetRates(ctx context.Context, req models.RateRequest) ([]models.RateQuote, error) {
	if req.ToAddress == nil || req.PackageInfo == nil {
		return nil, apperr.BadRequest("Missing address or package details")
	}

	perCarrier := make([][]models.RateQuote, len(s.cfg.Carriers))
	var g errgroup.Group
	for i, code := range s.cfg.Carriers {
		i, code := i, code
		g.Go(func() error {
			perCarrier[i] = s.quoteCarrier(ctx, code, req)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]models.RateQuote, 0)
	for _, qs := range perCarrier {
		out = append(out, qs...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ShipmentCost < out[j].ShipmentCost
	})
	return out, nil
}

func (s *Service) quoteCarrier(ctx context.Context, carrierCode string, req models.RateRequest) []models.RateQuote {
	log := logger.FromContext(ctx).With(zap.String("carrier", carrierCode))

	if s.limiter != nil && s.cfg.LimitPerMinute > 0 {
		ok, n, err := s.limiter.Allow(ctx, "ratelimit:shipstation:"+carrierCode, int64(s.cfg.LimitPerMinute), time.Minute)
		if err != nil {
			log.Warn("rate limiter unavailable", zap.Error(err))
		} else if !ok {
			log.Warn("carrier quota exhausted", zap.Int64("count", n))
			return nil
		}
	}

	quotes, err := s.client.GetRates(ctx, buildRequest(carrierCode, s.cfg.FromPostalCode, req))
	if err != nil {
		log.Warn("carrier rates failed", zap.Error(err))
		return nil
	}
	return quotes
}

func buildRequest(carrierCode, fromPostalCode string, req models.RateRequest) shipstation.RateRequest {
	return shipstation.RateRequest{
		CarrierCode:    carrierCode,
		FromPostalCode: fromPostalCode,
		ToCountry:      req.ToAddress.Country,
		ToPostalCode:   req.ToAddress.Zip,
		ToCity:         req.ToAddress.City,
		ToState:        req.ToAddress.State,
		Weight: shipstation.Weight{
			Value: float64(req.PackageInfo.Weight),
			Units: "pounds",
		},
		Dimensions: shipstation.Dimensions{
			Units:  "inches",
			Length: float64(req.PackageInfo.Length),
			Width:  float64(req.PackageInfo.Width),
			Height: float64(req.PackageInfo.Height),
		},
		Confirmation: "delivery",
		Residential:  true,
	}
}
