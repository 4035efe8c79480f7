package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/foodshare/internal/model"
	"github.com/mmeshcher/foodshare/internal/repository"
)

// HTTPProvider обращается к внешнему сервису учётных записей по его admin API.
// Профиль созданного пользователя дублируется в локальное хранилище, чтобы на него
// могли ссылаться объявления и брони.
type HTTPProvider struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	store      UserStore
}

type remoteUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata model.UserData `json:"user_metadata"`
	CreatedAt    time.Time      `json:"created_at"`
}

type remoteError struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e remoteError) text() string {
	for _, s := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// NewHTTPProvider создаёт клиент внешнего провайдера по указанному адресу.
func NewHTTPProvider(baseURL, serviceKey string, store UserStore) *HTTPProvider {
	base := strings.TrimRight(baseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &HTTPProvider{
		baseURL:    base,
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		store: store,
	}
}

// CreateUser создаёт пользователя во внешнем провайдере без подтверждения email.
func (p *HTTPProvider) CreateUser(ctx context.Context, email, password string, data model.UserData) (*model.User, error) {
	body := map[string]any{
		"email":         email,
		"password":      password,
		"user_metadata": data,
		// Адрес считается подтверждённым, письмо не отправляется.
		"email_confirm": true,
	}

	var ru remoteUser
	status, msg, err := p.post(ctx, "/admin/users", body, &ru)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusOK || status == http.StatusCreated:
	case (status == http.StatusConflict || status == http.StatusUnprocessableEntity) &&
		strings.Contains(strings.ToLower(msg), "already"):
		return nil, ErrUserExists
	default:
		return nil, fmt.Errorf("identity provider: %s (status %d)", msg, status)
	}

	return p.mirror(ctx, ru)
}

// SignIn выполняет вход по паролю во внешнем провайдере.
func (p *HTTPProvider) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	var resp struct {
		AccessToken string     `json:"access_token"`
		User        remoteUser `json:"user"`
	}

	status, msg, err := p.post(ctx, "/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}

	switch status {
	case http.StatusOK:
	case http.StatusBadRequest, http.StatusUnauthorized:
		return nil, ErrInvalidCredentials
	default:
		return nil, fmt.Errorf("identity provider: %s (status %d)", msg, status)
	}

	return p.mirror(ctx, resp.User)
}

func (p *HTTPProvider) mirror(ctx context.Context, ru remoteUser) (*model.User, error) {
	if ru.ID == "" {
		return nil, fmt.Errorf("identity provider: empty user id")
	}

	existing, err := p.store.GetUserByEmail(ctx, ru.Email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	u := &model.User{
		ID:               ru.ID,
		Email:            ru.Email,
		FullName:         ru.UserMetadata.FullName,
		Role:             roleOrDefault(ru.UserMetadata.Role),
		OrganizationName: ru.UserMetadata.OrganizationName,
		Phone:            ru.UserMetadata.Phone,
		CreatedAt:        ru.CreatedAt,
	}
	if err := p.store.CreateUser(ctx, u); err != nil && !errors.Is(err, repository.ErrUserExists) {
		return nil, fmt.Errorf("store profile: %w", err)
	}

	return u, nil
}

// post отправляет JSON-запрос. Для ответов 2xx тело декодируется в out, для остальных
// возвращается текст ошибки провайдера.
func (p *HTTPProvider) post(ctx context.Context, path string, body any, out any) (int, string, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.serviceKey)
	req.Header.Set("apikey", p.serviceKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, "", fmt.Errorf("decode response: %w", err)
		}
		return resp.StatusCode, "", nil
	}

	var re remoteError
	_ = json.Unmarshal(raw, &re)
	msg := re.text()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return resp.StatusCode, msg, nil
}
