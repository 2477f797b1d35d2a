// Package remote 通过HTTP接口和WebSocket频道实现 leadchat.DataLayer。
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"lead-chat/internal/leadchat"
	"lead-chat/internal/model"
	"lead-chat/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// TokenSource 为每个请求提供当前会话的令牌
type TokenSource interface {
	Token() (string, error)
}

// APIError 服务端返回的非2xx响应
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL     *url.URL
	tokens      TokenSource
	httpClient  *http.Client
	dialer      *websocket.Dialer
	eventBuffer int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithEventBuffer 订阅事件通道的缓冲大小
func WithEventBuffer(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.eventBuffer = n
		}
	}
}

var _ leadchat.DataLayer = (*Client)(nil)
var _ session.Authenticator = (*Client)(nil)

// NewClient tokens 可以为 nil, 此时只能调用 Login
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:     u,
		tokens:      tokens,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		eventBuffer: 64,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) authorize(header http.Header) error {
	if c.tokens == nil {
		return session.ErrNoSession
	}
	token, err := c.tokens.Token()
	if err != nil {
		return err
	}
	header.Set("Authorization", "Bearer "+token)
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, true, out)
}

func (c *Client) send(req *http.Request, authorized bool, out any) error {
	req.Header.Set("Accept", "application/json")
	if authorized {
		if err := c.authorize(req.Header); err != nil {
			return err
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(data, &payload); err == nil {
		apiErr.Message = payload.Error
	}
	return apiErr
}

func leadPath(leadID uint, suffix string) string {
	return "/api/leads/" + strconv.FormatUint(uint64(leadID), 10) + suffix
}

func messagePath(messageID, suffix string) string {
	return "/api/messages/" + url.PathEscape(messageID) + suffix
}

// Login 不需要令牌; 服务端未返回过期时间时从JWT中读取, 不校验签名
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/api/auth/login", nil), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp struct {
		Token     string     `json:"token"`
		ExpiresAt time.Time  `json:"expires_at"`
		User      model.User `json:"user"`
	}
	if err := c.send(req, false, &resp); err != nil {
		return nil, err
	}

	s := &session.Session{Token: resp.Token, User: resp.User, ExpiresAt: resp.ExpiresAt}
	if s.ExpiresAt.IsZero() {
		claims := &jwt.RegisteredClaims{}
		if _, _, err := jwt.NewParser().ParseUnverified(resp.Token, claims); err == nil && claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return s, nil
}

func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var resp struct {
		User model.User `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) ListLeads(ctx context.Context, limit, offset int) ([]model.Lead, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}
	var resp struct {
		Leads []model.Lead `json:"leads"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/leads", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Leads, nil
}

func (c *Client) CreateLead(ctx context.Context, name string) (*model.Lead, error) {
	var lead model.Lead
	if err := c.doJSON(ctx, http.MethodPost, "/api/leads", nil, map[string]string{"name": name}, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

// FetchMessages 按创建时间升序返回线索的全部消息
func (c *Client) FetchMessages(ctx context.Context, leadID uint) ([]model.Message, error) {
	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.doJSON(ctx, http.MethodGet, leadPath(leadID, "/messages"), nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) CreateMessage(ctx context.Context, leadID uint, body string, attachments []model.Attachment) (*model.Message, error) {
	req := struct {
		Body        string             `json:"body"`
		Attachments []model.Attachment `json:"attachments,omitempty"`
	}{Body: body, Attachments: attachments}

	var message model.Message
	if err := c.doJSON(ctx, http.MethodPost, leadPath(leadID, "/messages"), nil, req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) UpdateMessage(ctx context.Context, messageID, body string) (*model.Message, error) {
	var message model.Message
	if err := c.doJSON(ctx, http.MethodPatch, messagePath(messageID, ""), nil, map[string]string{"body": body}, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.doJSON(ctx, http.MethodDelete, messagePath(messageID, ""), nil, nil, nil)
}

func (c *Client) CreateMentions(ctx context.Context, messageID string, userIDs []uint) error {
	if len(userIDs) == 0 {
		return nil
	}
	req := struct {
		UserIDs []uint `json:"user_ids"`
	}{UserIDs: userIDs}
	return c.doJSON(ctx, http.MethodPost, messagePath(messageID, "/mentions"), nil, req, nil)
}

func (c *Client) FetchMentionableUsers(ctx context.Context) ([]model.DirectoryEntry, error) {
	var resp struct {
		Users []model.DirectoryEntry `json:"users"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/users/mentionable", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// UnreadMentions 当前用户未读的提及
func (c *Client) UnreadMentions(ctx context.Context) ([]model.Mention, error) {
	var resp struct {
		Mentions []model.Mention `json:"mentions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/mentions/unread", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Mentions, nil
}

func (c *Client) MarkMentionRead(ctx context.Context, mentionID uint) error {
	path := "/api/mentions/" + strconv.FormatUint(uint64(mentionID), 10) + "/read"
	return c.doJSON(ctx, http.MethodPost, path, nil, nil, nil)
}

func (c *Client) CreateSignedDownloadURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	query := url.Values{"path": {path}}
	if seconds := int(ttl / time.Second); seconds > 0 {
		query.Set("ttl", strconv.Itoa(seconds))
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/attachments/url", query, nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", fmt.Errorf("server returned an empty url for %s", path)
	}
	return resp.URL, nil
}

// UploadAttachment 以 multipart 字段 file 上传
func (c *Client) UploadAttachment(ctx context.Context, leadID uint, name string, content io.Reader) (*model.Attachment, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(leadPath(leadID, "/attachments"), nil), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var attachment model.Attachment
	if err := c.send(req, true, &attachment); err != nil {
		return nil, err
	}
	return &attachment, nil
}
