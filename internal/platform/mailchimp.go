package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/pressbriefs/campaign-pilot/internal/domain"
	"github.com/pressbriefs/campaign-pilot/internal/schedule"
)

const (
	defaultAPITimeout   = 30 * time.Second
	campaignTypeRegular = "regular"
)

// wireID normalizes platform identifiers: template IDs arrive as JSON
// numbers, campaign IDs as JSON strings. Numeric values marshal back as
// numbers so campaign settings round-trip the way the API expects.
type wireID string

func (id *wireID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = wireID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*id = wireID(n.String())
	return nil
}

func (id wireID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseUint(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type templateRequest struct {
	Name string `json:"name"`
	HTML string `json:"html"`
}

type campaignRequest struct {
	Type       string             `json:"type"`
	Recipients campaignRecipients `json:"recipients"`
	Settings   campaignSettings   `json:"settings"`
}

type campaignRecipients struct {
	ListID string `json:"list_id"`
}

type campaignSettings struct {
	SubjectLine string `json:"subject_line"`
	Title       string `json:"title"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
	TemplateID  wireID `json:"template_id"`
}

type scheduleRequest struct {
	ScheduleTime string `json:"schedule_time"`
}

type idResponse struct {
	ID wireID `json:"id"`
}

// errorEnvelope is the platform's problem document. A status outside
// 200-299 signals failure even when the HTTP layer reported success.
type errorEnvelope struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// MailchimpClient talks to a Mailchimp-compatible marketing API.
type MailchimpClient struct {
	client *resty.Client
}

func NewMailchimpClient(serverPrefix, apiKey string) (*MailchimpClient, error) {
	prefix := strings.TrimSpace(serverPrefix)
	if prefix == "" {
		return nil, fmt.Errorf("server prefix is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}

	client := resty.New()
	client.SetTimeout(defaultAPITimeout)
	client.SetRetryCount(0)
	client.SetBasicAuth("anystring", strings.TrimSpace(apiKey))

	return NewMailchimpClientWithClient(fmt.Sprintf("https://%s.api.mailchimp.com/3.0", prefix), client)
}

func NewMailchimpClientWithClient(baseURL string, client *resty.Client) (*MailchimpClient, error) {
	trimmedURL := strings.TrimSpace(baseURL)
	if trimmedURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.ParseRequestURI(trimmedURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultAPITimeout)
	}
	client.SetRetryCount(0)
	client.SetBaseURL(trimmedURL)

	return &MailchimpClient{client: client}, nil
}

func (c *MailchimpClient) CreateTemplate(ctx context.Context, name, html string) (domain.TemplateID, error) {
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("%w: template name is required", domain.ErrValidation)
	}
	if html == "" {
		return "", fmt.Errorf("%w: template html is required", domain.ErrValidation)
	}

	resp, err := c.post(ctx, "/templates", templateRequest{Name: name, HTML: html})
	if err != nil {
		return "", fmt.Errorf("%w: create template: %v", ErrTransport, err)
	}
	if failure := platformFailure(resp); failure != nil {
		return "", failure
	}

	id, err := decodeID(resp.Body())
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	return domain.TemplateID(id), nil
}

func (c *MailchimpClient) CreateCampaign(ctx context.Context, spec CampaignSpec) (domain.CampaignID, error) {
	if spec.TemplateID == "" {
		return "", fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	if strings.TrimSpace(spec.AudienceID) == "" {
		return "", fmt.Errorf("%w: audience id is required", domain.ErrValidation)
	}

	reqBody := campaignRequest{
		Type:       campaignTypeRegular,
		Recipients: campaignRecipients{ListID: spec.AudienceID},
		Settings: campaignSettings{
			SubjectLine: spec.SubjectLine,
			Title:       spec.Title,
			FromName:    spec.FromName,
			ReplyTo:     spec.ReplyTo,
			TemplateID:  wireID(spec.TemplateID),
		},
	}

	resp, err := c.post(ctx, "/campaigns", reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: create campaign: %v", ErrTransport, err)
	}
	if failure := platformFailure(resp); failure != nil {
		return "", failure
	}

	id, err := decodeID(resp.Body())
	if err != nil {
		return "", fmt.Errorf("create campaign: %w", err)
	}
	return domain.CampaignID(id), nil
}

func (c *MailchimpClient) Schedule(ctx context.Context, campaignID domain.CampaignID, at time.Time) error {
	if campaignID == "" {
		return fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}

	path := fmt.Sprintf("/campaigns/%s/actions/schedule", campaignID)
	resp, err := c.post(ctx, path, scheduleRequest{ScheduleTime: schedule.FormatISO8601(at)})
	if err != nil {
		return fmt.Errorf("%w: schedule campaign: %v", ErrTransport, err)
	}
	return platformFailure(resp)
}

func (c *MailchimpClient) DeleteCampaign(ctx context.Context, campaignID domain.CampaignID) error {
	if campaignID == "" {
		return fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	return c.delete(ctx, fmt.Sprintf("/campaigns/%s", campaignID))
}

func (c *MailchimpClient) DeleteTemplate(ctx context.Context, templateID domain.TemplateID) error {
	if templateID == "" {
		return fmt.Errorf("%w: template id is required", domain.ErrValidation)
	}
	return c.delete(ctx, fmt.Sprintf("/templates/%s", templateID))
}

func (c *MailchimpClient) post(ctx context.Context, path string, body any) (*resty.Response, error) {
	return c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(path)
}

func (c *MailchimpClient) delete(ctx context.Context, path string) error {
	resp, err := c.client.R().
		SetContext(ctx).
		Delete(path)
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", ErrTransport, path, err)
	}

	// An empty body is the platform's delete acknowledgement.
	if len(resp.Body()) == 0 && resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return nil
	}
	return platformFailure(resp)
}

// platformFailure inspects a completed exchange for rejection: either an
// HTTP status outside 200-299 or an error envelope carried inside a
// successful HTTP response.
func platformFailure(resp *resty.Response) error {
	if resp == nil {
		return fmt.Errorf("%w: empty response", ErrTransport)
	}

	statusCode := resp.StatusCode()
	body := resp.Body()

	var envelope errorEnvelope
	envelopeOK := json.Unmarshal(body, &envelope) == nil && envelope.Status != 0

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		if envelopeOK && (envelope.Status < http.StatusOK || envelope.Status >= http.StatusMultipleChoices) {
			return &PlatformError{StatusCode: envelope.Status, Type: envelope.Type, Detail: envelope.Detail}
		}
		return nil
	}

	if envelopeOK {
		return &PlatformError{StatusCode: envelope.Status, Type: envelope.Type, Detail: envelope.Detail}
	}
	return &PlatformError{StatusCode: statusCode, Detail: strings.TrimSpace(string(body))}
}

func decodeID(body []byte) (string, error) {
	var parsed idResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("malformed response body: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("response is missing an id")
	}
	return string(parsed.ID), nil
}
