package hubspot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"shopify-hubspot-sync/internal/domain"
	"shopify-hubspot-sync/internal/infrastructure/metrics"
	"shopify-hubspot-sync/internal/ports"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the HubSpot API root
	DefaultBaseURL = "https://api.hubapi.com"

	// lineItemToDealType is the HubSpot-defined association type id used for line item to deal links
	lineItemToDealType = "20"
	// noteToContactType is the HubSpot-defined association type id used for note to contact links
	noteToContactType = 202

	// DefaultTimeout bounds one HubSpot request when no WithTimeout option is given
	DefaultTimeout = 30 * time.Second
)

// APIError is a non-2xx answer from HubSpot
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubspot %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

func (e *APIError) Unwrap() error {
	return domain.ErrUpstreamRejected
}

// Client is a resty backed HubSpot CRM client
type Client struct {
	http    *resty.Client
	logger  zerolog.Logger
	timeout time.Duration
}

var _ ports.HubSpotClient = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a HubSpot client rooted at baseURL
func NewClient(baseURL string, logger zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{logger: logger, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(baseURL).
		SetTimeout(c.timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && r.StatusCode() == http.StatusTooManyRequests
		})
	return c
}

// do executes one call and maps transport and status failures onto the sync error taxonomy
func (c *Client) do(ctx context.Context, token, method, path string, body, result interface{}) (*resty.Response, error) {
	req := c.http.R().SetContext(ctx)
	if token != "" {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result).ForceContentType("application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		metrics.HubSpotRequestsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%w: hubspot %s %s: %v", domain.ErrNetwork, method, path, err)
	}
	metrics.HubSpotRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode())).Inc()

	if resp.IsError() {
		c.logger.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode()).
			Msg("HubSpot rejected request")
		return resp, &APIError{Method: method, Path: path, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return resp, nil
}

// Records

type objectResult struct {
	ID string `json:"id"`
}

type searchFilter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchRequest struct {
	FilterGroups []struct {
		Filters []searchFilter `json:"filters"`
	} `json:"filterGroups"`
	Limit int `json:"limit"`
}

type searchResult struct {
	Total   int            `json:"total"`
	Results []objectResult `json:"results"`
}

// search runs one filter group (filters are ANDed) against object
func (c *Client) search(ctx context.Context, token, object string, limit int, filters ...searchFilter) (*searchResult, error) {
	req := searchRequest{Limit: limit}
	req.FilterGroups = make([]struct {
		Filters []searchFilter `json:"filters"`
	}, 1)
	req.FilterGroups[0].Filters = filters

	var out searchResult
	if _, err := c.do(ctx, token, http.MethodPost, "/crm/v3/objects/"+object+"/search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindByKey returns the id of the first object whose key property equals value, or "" when none does
func (c *Client) FindByKey(ctx context.Context, token, object, key, value string) (string, error) {
	out, err := c.search(ctx, token, object, 1, searchFilter{PropertyName: key, Operator: "EQ", Value: value})
	if err != nil {
		return "", err
	}
	if len(out.Results) == 0 {
		return "", nil
	}
	return out.Results[0].ID, nil
}

func (c *Client) Create(ctx context.Context, token, object string, props map[string]string) (string, error) {
	var out objectResult
	body := map[string]interface{}{"properties": props}
	if _, err := c.do(ctx, token, http.MethodPost, "/crm/v3/objects/"+object, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: hubspot created %s without an id", domain.ErrUpstreamRejected, object)
	}
	return out.ID, nil
}

func (c *Client) Update(ctx context.Context, token, object, id string, props map[string]string) error {
	body := map[string]interface{}{"properties": props}
	_, err := c.do(ctx, token, http.MethodPatch, "/crm/v3/objects/"+object+"/"+id, body, nil)
	return err
}

// Associations

// ListAssociations returns the ids of every toObject linked to the given record
func (c *Client) ListAssociations(ctx context.Context, token, fromObject, fromID, toObject string) ([]string, error) {
	var ids []string
	path := fmt.Sprintf("/crm/v4/objects/%s/%s/associations/%s", fromObject, fromID, toObject)
	after := ""
	for {
		var out struct {
			Results []struct {
				ToObjectID json.Number `json:"toObjectId"`
			} `json:"results"`
			Paging *struct {
				Next *struct {
					After string `json:"after"`
				} `json:"next"`
			} `json:"paging"`
		}
		p := path + "?limit=500"
		if after != "" {
			p += "&after=" + after
		}
		if _, err := c.do(ctx, token, http.MethodGet, p, nil, &out); err != nil {
			return nil, err
		}
		for _, r := range out.Results {
			ids = append(ids, r.ToObjectID.String())
		}
		if out.Paging == nil || out.Paging.Next == nil || out.Paging.Next.After == "" {
			return ids, nil
		}
		after = out.Paging.Next.After
	}
}

type idRef struct {
	ID string `json:"id"`
}

func (c *Client) ArchiveAssociations(ctx context.Context, token, fromObject, fromID, toObject string, toIDs []string) error {
	if len(toIDs) == 0 {
		return nil
	}
	to := make([]idRef, 0, len(toIDs))
	for _, id := range toIDs {
		to = append(to, idRef{ID: id})
	}
	body := map[string]interface{}{
		"inputs": []map[string]interface{}{
			{"from": idRef{ID: fromID}, "to": to},
		},
	}
	path := fmt.Sprintf("/crm/v4/associations/%s/%s/batch/archive", fromObject, toObject)
	_, err := c.do(ctx, token, http.MethodPost, path, body, nil)
	return err
}

func (c *Client) CreateAssociation(ctx context.Context, token, fromObject, fromID, toObject, toID, assocType string) error {
	body := map[string]interface{}{
		"inputs": []map[string]interface{}{
			{"from": idRef{ID: fromID}, "to": idRef{ID: toID}, "type": assocType},
		},
	}
	path := fmt.Sprintf("/crm/v3/associations/%s/%s/batch/create", fromObject, toObject)
	_, err := c.do(ctx, token, http.MethodPost, path, body, nil)
	return err
}

func (c *Client) AssociateLineItem(ctx context.Context, token, lineItemID, dealID string) error {
	path := fmt.Sprintf("/crm/v3/objects/%s/%s/associations/%s/%s/%s",
		domain.ObjectLineItems, lineItemID, domain.ObjectDeals, dealID, lineItemToDealType)
	_, err := c.do(ctx, token, http.MethodPut, path, nil, nil)
	return err
}

// CreateNote attaches a note to a contact
func (c *Client) CreateNote(ctx context.Context, token, contactID, body string) error {
	payload := map[string]interface{}{
		"properties": map[string]string{
			"hs_note_body": body,
			"hs_timestamp": time.Now().UTC().Format(time.RFC3339),
		},
		"associations": []map[string]interface{}{
			{
				"to": idRef{ID: contactID},
				"types": []map[string]interface{}{
					{"associationCategory": "HUBSPOT_DEFINED", "associationTypeId": noteToContactType},
				},
			},
		},
	}
	_, err := c.do(ctx, token, http.MethodPost, "/crm/v3/objects/"+domain.ObjectNotes, payload, nil)
	return err
}

// HasNote reports whether the contact already carries a note with exactly this body
func (c *Client) HasNote(ctx context.Context, token, contactID, body string) (bool, error) {
	out, err := c.search(ctx, token, domain.ObjectNotes, 1,
		searchFilter{PropertyName: "associations.contact", Operator: "EQ", Value: contactID},
		searchFilter{PropertyName: "hs_note_body", Operator: "EQ", Value: body},
	)
	if err != nil {
		return false, err
	}
	return out.Total > 0 || len(out.Results) > 0, nil
}

// Properties

func (c *Client) ListProperties(ctx context.Context, token, object string) ([]ports.CRMProperty, error) {
	var out struct {
		Results []ports.CRMProperty `json:"results"`
	}
	if _, err := c.do(ctx, token, http.MethodGet, "/crm/v3/properties/"+object, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) CreateProperty(ctx context.Context, token, object string, prop ports.CRMProperty) error {
	_, err := c.do(ctx, token, http.MethodPost, "/crm/v3/properties/"+object, prop, nil)
	return err
}

// Auth

// ValidateToken checks the token against the account info endpoint
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	_, err := c.do(ctx, token, http.MethodGet, "/integrations/v1/me", nil, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
		return fmt.Errorf("%w: hubspot token rejected", domain.ErrUnauthorized)
	}
	return err
}
