// Package push sends multicast notifications through the FCM legacy HTTP
// API and reports which device tokens the provider considers dead.
package push

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Errors FCM reports for tokens that should be deleted from our registry.
const (
	errNotRegistered       = "NotRegistered"
	errInvalidRegistration = "InvalidRegistration"
)

// Message is the notification payload shown on the device.
type Message struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Client talks to the FCM send endpoint.
type Client struct {
	ServerKey  string
	Endpoint   string
	HTTPClient *http.Client
}

func NewClient(serverKey string) *Client {
	return &Client{
		ServerKey:  serverKey,
		Endpoint:   "https://fcm.googleapis.com/fcm/send",
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	RegistrationIDs []string `json:"registration_ids"`
	Notification    Message  `json:"notification"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// SendMulticast delivers msg to every token and returns the subset of tokens
// the provider reported as invalid, so callers can prune them. The results
// array is positional: results[i] corresponds to tokens[i].
func (c *Client) SendMulticast(tokens []string, msg Message) (invalid []string, err error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	jsonData, err := json.Marshal(sendRequest{RegistrationIDs: tokens, Notification: msg})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, c.Endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.ServerKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach FCM: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fcm error (%d): %s", resp.StatusCode, string(body))
	}

	var sendResp sendResponse
	if err := json.Unmarshal(body, &sendResp); err != nil {
		return nil, fmt.Errorf("failed to parse FCM response: %w", err)
	}

	for i, result := range sendResp.Results {
		if i >= len(tokens) {
			break
		}
		if result.Error == errNotRegistered || result.Error == errInvalidRegistration {
			invalid = append(invalid, tokens[i])
		}
	}

	return invalid, nil
}
