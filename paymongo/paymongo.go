package paymongo

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const baseURL = "https://api.paymongo.com/v1"

// Client talks to the PayMongo REST API. Only the checkout-session contract
// is modeled here; everything behind the gateway is PayMongo's business.
type Client struct {
	secretKey  string
	successURL string
	cancelURL  string
	httpClient *http.Client
}

func NewClient() *Client {
	return &Client{
		secretKey:  os.Getenv("PAYMONGO_SECRET_KEY"),
		successURL: os.Getenv("PAYMONGO_SUCCESS_URL"),
		cancelURL:  os.Getenv("PAYMONGO_CANCEL_URL"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// CheckoutSession links a checkout URL the customer is sent to with the
// intent id the gateway will reference in its callbacks.
type CheckoutSession struct {
	IntentID    string `json:"intent_id"`
	CheckoutURL string `json:"checkout_url"`
}

type sessionResponse struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckoutSession opens a GCash checkout session for the given amount.
// PayMongo wants the amount in centavos.
func (c *Client) CreateCheckoutSession(amount float64, description string) (*CheckoutSession, error) {
	if c.secretKey == "" {
		return nil, fmt.Errorf("PAYMONGO_SECRET_KEY is not set")
	}

	centavos := int(amount * 100)
	payload := map[string]interface{}{
		"data": map[string]interface{}{
			"attributes": map[string]interface{}{
				"billing":              nil,
				"send_email_receipt":   false,
				"show_description":     true,
				"show_line_items":      true,
				"cancel_url":           c.cancelURL,
				"success_url":          c.successURL,
				"description":          description,
				"payment_method_types": []string{"gcash"},
				"line_items": []map[string]interface{}{
					{
						"currency": "PHP",
						"amount":   centavos,
						"name":     "Service Payment",
						"quantity": 1,
					},
				},
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/checkout_sessions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.secretKey + ":"))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paymongo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("paymongo returned status %d", resp.StatusCode)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("paymongo response decode failed: %w", err)
	}
	if out.Data.ID == "" {
		return nil, fmt.Errorf("paymongo response missing session id")
	}

	return &CheckoutSession{
		IntentID:    out.Data.ID,
		CheckoutURL: out.Data.Attributes.CheckoutURL,
	}, nil
}

// Event is the webhook envelope PayMongo posts to the callback endpoint.
type Event struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseEvent extracts (event id, intent id, outcome) from a webhook body.
// "checkout_session.payment.paid" is a success; failed or expired session
// events are cancellations. Other event keys are skipped by the caller.
func ParseEvent(body []byte) (eventID, intentID string, success bool, err error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", "", false, fmt.Errorf("bad webhook payload: %w", err)
	}
	if ev.Data.Attributes.Data.ID == "" {
		return "", "", false, fmt.Errorf("webhook payload missing resource id")
	}

	kind := ev.Data.Attributes.Type
	switch {
	case kind == "checkout_session.payment.paid":
		success = true
	case strings.Contains(kind, "failed"), strings.Contains(kind, "expired"), strings.Contains(kind, "cancel"):
		success = false
	default:
		return "", "", false, fmt.Errorf("unhandled event type %q", kind)
	}

	return ev.Data.ID, ev.Data.Attributes.Data.ID, success, nil
}
