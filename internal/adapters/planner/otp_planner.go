package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"access-matrix-service/internal/config"
	"access-matrix-service/internal/domain"
	"access-matrix-service/internal/platform/geo"
	"access-matrix-service/internal/platform/obs"
	"access-matrix-service/internal/ports"
)

// Query dates always resolve to the next occurrence of this weekday, keeping
// results off weekend and holiday schedules.
const queryWeekday = time.Wednesday

// OTPPlanner implements TripPlanner against an OpenTripPlanner-style
// plan endpoint.
//
// It coordinates:
//   - Query date resolution via an injected clock
//   - Optional persistent trip result caching
//   - External API calls with retry/backoff
//
// The planner is safe for concurrent use. Remote outcomes are mapped onto
// the cell state machine and never surface as errors.
type OTPPlanner struct {
	session        *http.Client
	baseURL        string
	apiKey         string
	numItineraries int
	maxWalkMeters  int
	bikeSpeedMPS   float64
	retryAttempts  int
	retryBackoff   time.Duration
	cache          ports.TripCache

	// Now is the clock used for query date resolution; tests pin it.
	Now func() time.Time
}

// NewOTPPlanner validates preconditions and builds the client. A remote
// endpoint without a credential is rejected here, before any task starts.
func NewOTPPlanner(cfg *config.Config, cache ports.TripCache) (*OTPPlanner, error) {
	if cfg.PlannerBaseURL == "" {
		return nil, errors.New("planner base URL is empty")
	}
	if cfg.RemotePlanner() && cfg.PlannerAPIKey == "" {
		return nil, errors.New("PLANNER_API_KEY is required for a remote planner endpoint")
	}

	retryAttempts := cfg.RetryAttempts
	if retryAttempts < 1 {
		retryAttempts = 1
	}

	return &OTPPlanner{
		session:        &http.Client{Timeout: 30 * time.Second},
		baseURL:        cfg.PlannerBaseURL,
		apiKey:         cfg.PlannerAPIKey,
		numItineraries: cfg.NumItineraries,
		maxWalkMeters:  cfg.MaxWalkDistanceMeters,
		bikeSpeedMPS:   cfg.BikeSpeedMPS,
		retryAttempts:  retryAttempts,
		retryBackoff:   cfg.RetryBackoff,
		cache:          cache,
		Now:            time.Now,
	}, nil
}

type planResponse struct {
	Error *struct {
		ID  int    `json:"id"`
		Msg string `json:"msg"`
	} `json:"error"`
	Plan *struct {
		Itineraries []itineraryJSON `json:"itineraries"`
	} `json:"plan"`
}

type itineraryJSON struct {
	Duration     int       `json:"duration"`
	Transfers    int       `json:"transfers"`
	WalkDistance *float64  `json:"walkDistance"`
	Legs         []legJSON `json:"legs"`
}

type legJSON struct {
	Mode     string   `json:"mode"`
	Duration float64  `json:"duration"`
	Distance *float64 `json:"distance"`
	From     *struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	} `json:"from"`
	To *struct {
		Name string  `json:"name"`
		Lat  float64 `json:"lat"`
		Lon  float64 `json:"lon"`
	} `json:"to"`
	LegGeometry *struct {
		Points string `json:"points"`
	} `json:"legGeometry"`
	RouteShortName string `json:"routeShortName"`
	RouteLongName  string `json:"routeLongName"`
}

// PlanTrip issues one origin->destination->time->mode query. The returned
// error is non-nil only on context cancellation; every remote outcome is
// reported through RouteResult.Status.
func (p *OTPPlanner) PlanTrip(ctx context.Context, q ports.TripQuery) (ports.RouteResult, error) {
	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, q)
		if err != nil {
			log.Printf("trip cache read failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	result, err := p.planRemote(ctx, q)
	if err != nil {
		return ports.RouteResult{}, err
	}

	if p.cache != nil {
		if err := p.cache.Put(ctx, q, result); err != nil {
			log.Printf("trip cache write failed: %v", err)
		}
	}

	return result, nil
}

func (p *OTPPlanner) planRemote(ctx context.Context, q ports.TripQuery) (_ ports.RouteResult, err error) {
	defer obs.Time(ctx, "planner.PlanTrip")(&err)

	endpoint := p.baseURL + "/otp/routers/default/plan"
	query := p.queryParams(q)

	resp, err := p.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := p.newRequest(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = query
		return req, nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return ports.RouteResult{}, ctx.Err()
		}
		return errorResult(fmt.Sprintf("planner request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	var decoded planResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return errorResult(fmt.Sprintf("decode planner response: %v", err)), nil
	}

	if decoded.Error != nil {
		return errorResult(decoded.Error.Msg), nil
	}

	if decoded.Plan == nil || len(decoded.Plan.Itineraries) == 0 {
		return ports.RouteResult{Status: domain.StatusNoRoute}, nil
	}

	// Minimum duration wins; ties keep the first encountered.
	best := decoded.Plan.Itineraries[0]
	for _, it := range decoded.Plan.Itineraries[1:] {
		if it.Duration < best.Duration {
			best = it
		}
	}

	// An OK cell must carry legs; a legless itinerary is a planner anomaly.
	if len(best.Legs) == 0 {
		return errorResult("itinerary has no legs"), nil
	}

	return okResult(best), nil
}

func (p *OTPPlanner) queryParams(q ports.TripQuery) string {
	v := url.Values{}
	v.Set("fromPlace", q.From.LatLonString())
	v.Set("toPlace", q.To.LatLonString())
	v.Set("date", p.queryDate().Format("01-02-2006"))
	v.Set("time", q.Period.DepartureTime())
	v.Set("mode", string(q.Mode))
	v.Set("arriveBy", "false")
	v.Set("numItineraries", strconv.Itoa(p.numItineraries))

	switch q.Mode {
	case domain.ModeWalk:
		v.Set("maxWalkDistance", strconv.Itoa(p.maxWalkMeters))
	case domain.ModeBicycle:
		v.Set("bikeSpeed", strconv.FormatFloat(p.bikeSpeedMPS, 'f', -1, 64))
	}

	return v.Encode()
}

// queryDate returns the next occurrence of the fixed query weekday; today
// counts when it already is that weekday.
func (p *OTPPlanner) queryDate() time.Time {
	now := p.Now()
	days := (int(queryWeekday) - int(now.Weekday()) + 7) % 7
	return now.AddDate(0, 0, days)
}

func okResult(it itineraryJSON) ports.RouteResult {
	duration := it.Duration
	transfers := it.Transfers

	legs := make([]domain.Leg, 0, len(it.Legs))
	for _, l := range it.Legs {
		leg := domain.Leg{
			Mode:            l.Mode,
			DurationSeconds: int(l.Duration),
			DistanceMeters:  l.Distance,
			RouteShortName:  l.RouteShortName,
			RouteLongName:   l.RouteLongName,
		}
		if l.From != nil {
			leg.FromName = l.From.Name
			leg.From = &domain.Coordinates{Lat: l.From.Lat, Lon: l.From.Lon}
		}
		if l.To != nil {
			leg.ToName = l.To.Name
			leg.To = &domain.Coordinates{Lat: l.To.Lat, Lon: l.To.Lon}
		}
		if l.LegGeometry != nil {
			leg.Polyline = l.LegGeometry.Points
		}
		legs = append(legs, leg)
	}

	walk := it.WalkDistance
	if walk == nil {
		w := walkDistanceFromLegs(legs)
		walk = &w
	}

	return ports.RouteResult{
		Status:             domain.StatusOK,
		DurationSeconds:    &duration,
		TransferCount:      &transfers,
		WalkDistanceMeters: walk,
		Legs:               legs,
	}
}

// walkDistanceFromLegs reconstructs a missing walkDistance by summing walking
// leg distances, decoding leg geometry where the planner omitted the figure.
func walkDistanceFromLegs(legs []domain.Leg) float64 {
	var total float64
	for _, leg := range legs {
		if leg.Mode != string(domain.ModeWalk) {
			continue
		}
		if leg.DistanceMeters != nil {
			total += *leg.DistanceMeters
			continue
		}
		if leg.Polyline != "" {
			points, err := geo.DecodePolyline(leg.Polyline)
			if err != nil {
				continue
			}
			total += geo.PathLengthMeters(points)
		}
	}
	return total
}

func errorResult(message string) ports.RouteResult {
	return ports.RouteResult{Status: domain.StatusError, ErrorMessage: message}
}
