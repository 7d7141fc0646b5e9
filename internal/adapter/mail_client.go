package adapter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/home-ledger/internal/errors"
)

const providerMail = "mail"

const defaultMailBaseURL = "https://gmail.googleapis.com/gmail/v1"

// MailMessage is one fetched email, flattened to the fields the receipt
// scanner cares about.
type MailMessage struct {
	ID         string
	From       string
	Subject    string
	ReceivedAt time.Time
	Body       string
}

// MailClient reads messages from a Gmail-style API with a bearer token.
// Tokens are short-lived, so callers refresh through GoogleOAuth and pass
// the access token per call.
type MailClient struct {
	baseURL string
	client  *http.Client
}

// NewMailClient creates a mail API client. An empty baseURL selects the
// real Gmail endpoint.
func NewMailClient(baseURL string) *MailClient {
	if baseURL == "" {
		baseURL = defaultMailBaseURL
	}
	return &MailClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type messageListResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	NextPageToken string `json:"nextPageToken"`
}

type messagePart struct {
	MimeType string `json:"mimeType"`
	Body     struct {
		Data string `json:"data"`
	} `json:"body"`
	Parts []messagePart `json:"parts"`
}

type messageResponse struct {
	ID           string `json:"id"`
	InternalDate string `json:"internalDate"`
	Payload      struct {
		Headers []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"headers"`
		messagePart
	} `json:"payload"`
}

// ListMessageIDs returns the ids of messages received after the given time
// that match the query, capped at limit.
func (c *MailClient) ListMessageIDs(ctx context.Context, accessToken, query string, after time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 50
	}
	fullQuery := strings.TrimSpace(query)
	if !after.IsZero() {
		fullQuery = strings.TrimSpace(fmt.Sprintf("%s after:%d", fullQuery, after.Unix()))
	}

	params := url.Values{}
	params.Set("q", fullQuery)
	params.Set("maxResults", strconv.Itoa(limit))

	var ids []string
	pageToken := ""
	for {
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}
		body, err := c.get(ctx, accessToken, "/users/me/messages?"+params.Encode())
		if err != nil {
			return nil, err
		}
		var page messageListResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, apperrors.NewProviderError(providerMail, fmt.Errorf("failed to parse message list: %w", err))
		}
		for _, m := range page.Messages {
			ids = append(ids, m.ID)
			if len(ids) >= limit {
				return ids, nil
			}
		}
		if page.NextPageToken == "" {
			return ids, nil
		}
		pageToken = page.NextPageToken
	}
}

// GetProfile returns the address of the mailbox the token grants access to.
func (c *MailClient) GetProfile(ctx context.Context, accessToken string) (string, error) {
	body, err := c.get(ctx, accessToken, "/users/me/profile")
	if err != nil {
		return "", err
	}
	var profile struct {
		EmailAddress string `json:"emailAddress"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		return "", apperrors.NewProviderError(providerMail, fmt.Errorf("failed to parse profile: %w", err))
	}
	return profile.EmailAddress, nil
}

// GetMessage fetches one message and flattens its headers and text body.
func (c *MailClient) GetMessage(ctx context.Context, accessToken, messageID string) (*MailMessage, error) {
	if messageID == "" {
		return nil, apperrors.NewInvalidParameterError("messageID", "must not be empty")
	}
	body, err := c.get(ctx, accessToken, "/users/me/messages/"+url.PathEscape(messageID)+"?format=full")
	if err != nil {
		return nil, err
	}
	var parsed messageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, apperrors.NewProviderError(providerMail, fmt.Errorf("failed to parse message: %w", err))
	}

	msg := &MailMessage{ID: parsed.ID}
	for _, h := range parsed.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "subject":
			msg.Subject = h.Value
		}
	}
	if millis, err := strconv.ParseInt(parsed.InternalDate, 10, 64); err == nil {
		msg.ReceivedAt = time.UnixMilli(millis).UTC()
	}
	msg.Body = flattenBody(parsed.Payload.messagePart)
	return msg, nil
}

func (c *MailClient) get(ctx context.Context, accessToken, path string) ([]byte, error) {
	if accessToken == "" {
		return nil, apperrors.NewUnauthorizedError("missing mail access token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderUnavailableError(providerMail)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, apperrors.NewProviderError(providerMail, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.NewUnauthorizedError("mail access token rejected")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, apperrors.NewProviderUnavailableError(providerMail)
	case resp.StatusCode != http.StatusOK:
		return nil, apperrors.NewProviderError(providerMail,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return body, nil
}

// flattenBody walks the MIME tree collecting decoded text parts. Plain text
// parts come first so the scanner's regexes see clean text before HTML.
func flattenBody(part messagePart) string {
	var plain, html strings.Builder
	collectParts(part, &plain, &html)
	if plain.Len() > 0 {
		return plain.String()
	}
	return html.String()
}

func collectParts(part messagePart, plain, html *strings.Builder) {
	if part.Body.Data != "" {
		decoded, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data)
		if err == nil {
			switch {
			case strings.HasPrefix(part.MimeType, "text/plain"):
				plain.Write(decoded)
				plain.WriteString("\n")
			case strings.HasPrefix(part.MimeType, "text/html"):
				html.Write(decoded)
				html.WriteString("\n")
			}
		}
	}
	for _, child := range part.Parts {
		collectParts(child, plain, html)
	}
}
