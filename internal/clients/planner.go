package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"tripmate/internal/domain"
)

// Request payload for the itinerary planner, built from the room's collected
// places and chat-derived preferences.
type PlanRequest struct {
	Days         int         `json:"days"`
	StartDate    string      `json:"startDate"`
	Country      string      `json:"country"`
	MemberCount  int         `json:"memberCount"`
	Places       []PlanPlace `json:"places"`
	MustVisit    []string    `json:"mustVisit"`
	Rules        []string    `json:"rules"`
	ChatExcerpts []string    `json:"chatExcerpts"`
}

type PlanPlace struct {
	Name string `json:"name"`
	Tag  string `json:"tag"`
}

type PlanVisit struct {
	Order             int     `json:"order"`
	DisplayName       string  `json:"displayName"`
	PlaceTag          string  `json:"placeTag"`
	Lat               float64 `json:"lat"`
	Long              float64 `json:"long"`
	Arrival           string  `json:"arrival"`
	Departure         string  `json:"departure"`
	TravelTimeMinutes int     `json:"travelTimeMinutes"`
	EstimatedCost     *int64  `json:"estimatedCost,omitempty"`
	CostExplanation   string  `json:"costExplanation,omitempty"`
}

type PlanDayResult struct {
	Day    int         `json:"day"`
	Visits []PlanVisit `json:"visits"`
}

type PlanResponse struct {
	Budget                int64           `json:"budget"`
	TravelMode            string          `json:"travelMode"`
	AccommodationCostInfo string          `json:"accommodationCostInfo"`
	Itinerary             []PlanDayResult `json:"itinerary"`
}

// PlannerClient generates a full multi-day itinerary. The call is slow (an AI
// backend); callers hold a generation lease while it runs.
type PlannerClient interface {
	GeneratePlan(ctx context.Context, req PlanRequest) (PlanResponse, error)
}

type HTTPPlannerClient struct {
	session *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPPlannerClient(baseURL, apiKey string) *HTTPPlannerClient {
	return &HTTPPlannerClient{
		session: &http.Client{Timeout: 3 * time.Minute},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

func (c *HTTPPlannerClient) GeneratePlan(ctx context.Context, req PlanRequest) (PlanResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return PlanResponse{}, fmt.Errorf("encode plan request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/itineraries", bytes.NewReader(body))
	if err != nil {
		return PlanResponse{}, fmt.Errorf("create plan request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.session.Do(httpReq)
	if err != nil {
		return PlanResponse{}, classifyPlannerErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		return PlanResponse{}, domain.UpstreamError{
			Service:    "planner",
			Kind:       "status",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", strings.TrimSpace(string(b))),
		}
	}

	var out PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PlanResponse{}, domain.UpstreamError{Service: "planner", Err: fmt.Errorf("decode response: %w", err)}
	}
	return out, nil
}

func classifyPlannerErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.UpstreamError{Service: "planner", Kind: "timeout", Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.UpstreamError{Service: "planner", Kind: "timeout", Err: err}
	}
	return domain.UpstreamError{Service: "planner", Kind: "connect", Err: err}
}
