package stream

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/krishkalaria12/echo-interview/internal/pkg/envutil"
	"github.com/krishkalaria12/echo-interview/internal/pkg/httpx"
	"github.com/krishkalaria12/echo-interview/internal/pkg/logger"
)

// Message is one chat message in a channel, newest-last.
type Message struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	UserID string `json:"user_id"`
}

// ChatUser is the identity a message is sent under.
type ChatUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Image string `json:"image,omitempty"`
}

// Client is the server-side surface of the video/chat provider used by the
// webhook dispatcher: call control, realtime agent sessions, and channel chat.
type Client interface {
	// APIKey returns the provider key expected in the webhook x-api-key header.
	APIKey() string

	// VerifySignature reports whether sig is a valid HMAC-SHA256 hex digest of
	// body under the provider secret.
	VerifySignature(body []byte, sig string) bool

	// ConnectAgent opens a realtime model session on the call, joined as
	// agentUserID and seeded with instructions.
	ConnectAgent(ctx context.Context, callID, agentUserID, instructions string) error

	// EndCall marks the call ended. Ending an already-ended call is a no-op.
	EndCall(ctx context.Context, callID string) error

	// UpsertUser creates or updates a chat identity.
	UpsertUser(ctx context.Context, user ChatUser) error

	// LastMessages returns up to limit most recent messages in the channel,
	// oldest first.
	LastMessages(ctx context.Context, channelID string, limit int) ([]Message, error)

	// SendMessage posts text into the channel as userID.
	SendMessage(ctx context.Context, channelID, userID, text string) error
}

type client struct {
	log         *logger.Logger
	videoBase   string
	chatBase    string
	apiKey      string
	apiSecret   []byte
	callType    string
	serverToken string
	httpClient  *http.Client
	maxRetries  int
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("STREAM_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing STREAM_API_KEY")
	}
	apiSecret := strings.TrimSpace(os.Getenv("STREAM_API_SECRET"))
	if apiSecret == "" {
		return nil, fmt.Errorf("missing STREAM_API_SECRET")
	}

	videoBase := strings.TrimRight(envutil.String("STREAM_VIDEO_BASE_URL", "https://video.stream-io-api.com"), "/")
	chatBase := strings.TrimRight(envutil.String("STREAM_CHAT_BASE_URL", "https://chat.stream-io-api.com"), "/")
	callType := envutil.String("STREAM_CALL_TYPE", "default")
	timeoutSec := envutil.Int("STREAM_TIMEOUT_SECONDS", 30)

	token, err := serverToken([]byte(apiSecret))
	if err != nil {
		return nil, fmt.Errorf("sign server token: %w", err)
	}

	return &client{
		log:         log.With("service", "StreamClient"),
		videoBase:   videoBase,
		chatBase:    chatBase,
		apiKey:      apiKey,
		apiSecret:   []byte(apiSecret),
		callType:    callType,
		serverToken: token,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:  2,
	}, nil
}

// serverToken builds the non-expiring server-auth JWT the provider expects.
func serverToken(secret []byte) (string, error) {
	claims := jwt.MapClaims{"server": true, "iat": time.Now().Unix()}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (c *client) APIKey() string {
	return c.apiKey
}

func (c *client) VerifySignature(body []byte, sig string) bool {
	sig = strings.TrimSpace(sig)
	if sig == "" {
		return false
	}
	mac := hmac.New(sha256.New, c.apiSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(sig)))
}

type streamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *streamHTTPError) Error() string {
	return fmt.Sprintf("stream http %d: %s", e.StatusCode, e.Body)
}

func (e *streamHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (c *client) doOnce(ctx context.Context, method, rawURL string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", c.serverToken)
	req.Header.Set("stream-auth-type", "jwt")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &streamHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, base, path string, query url.Values, body any, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	rawURL := base + path + "?" + query.Encode()

	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, rawURL, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("stream decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 5*time.Second))
		c.log.Warn("Stream request retrying",
			"path", path,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) ConnectAgent(ctx context.Context, callID, agentUserID, instructions string) error {
	path := fmt.Sprintf("/video/call/%s/%s/openai_session",
		url.PathEscape(c.callType), url.PathEscape(callID))
	body := map[string]any{
		"agent_user_id": agentUserID,
		"instructions":  instructions,
	}
	return c.do(ctx, "POST", c.videoBase, path, nil, body, nil)
}

func (c *client) EndCall(ctx context.Context, callID string) error {
	path := fmt.Sprintf("/video/call/%s/%s/mark_ended",
		url.PathEscape(c.callType), url.PathEscape(callID))
	err := c.do(ctx, "POST", c.videoBase, path, nil, map[string]any{}, nil)
	if err != nil {
		var httpErr *streamHTTPError
		// Ending a call that already ended reports a conflict; treat as done.
		if ok := asStreamError(err, &httpErr); ok && httpErr.StatusCode == http.StatusConflict {
			return nil
		}
		return err
	}
	return nil
}

func asStreamError(err error, target **streamHTTPError) bool {
	e, ok := err.(*streamHTTPError)
	if !ok {
		return false
	}
	*target = e
	return true
}

func (c *client) UpsertUser(ctx context.Context, user ChatUser) error {
	if strings.TrimSpace(user.ID) == "" {
		return fmt.Errorf("user id required")
	}
	body := map[string]any{
		"users": map[string]any{user.ID: user},
	}
	return c.do(ctx, "POST", c.chatBase, "/users", nil, body, nil)
}

type channelQueryResponse struct {
	Messages []Message `json:"messages"`
}

func (c *client) LastMessages(ctx context.Context, channelID string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 5
	}
	path := fmt.Sprintf("/channels/messaging/%s/query", url.PathEscape(channelID))
	body := map[string]any{
		"state":    true,
		"messages": map[string]any{"limit": limit},
	}

	var resp channelQueryResponse
	if err := c.do(ctx, "POST", c.chatBase, path, nil, body, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *client) SendMessage(ctx context.Context, channelID, userID, text string) error {
	path := fmt.Sprintf("/channels/messaging/%s/message", url.PathEscape(channelID))
	body := map[string]any{
		"message": map[string]any{
			"text":    text,
			"user_id": userID,
		},
	}
	return c.do(ctx, "POST", c.chatBase, path, nil, body, nil)
}
