package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"workio/internal/shared/model"
	"workio/internal/shared/storage"
)

// mockUserStore 模拟存储层
type mockUserStore struct {
	users map[string]*model.User // by ID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[string]*model.User)}
}

func (m *mockUserStore) CreateUser(ctx context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return storage.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (m *mockUserStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return m.users[id], nil
}

func (m *mockUserStore) UpdateUserResume(ctx context.Context, id, resumeURL string) error {
	u, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	u.Resume = resumeURL
	return nil
}

// mockMedia 模拟对象存储
type mockMedia struct {
	uploads map[string][]byte
}

func newMockMedia() *mockMedia {
	return &mockMedia{uploads: make(map[string][]byte)}
}

func (m *mockMedia) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	m.uploads[key] = data
	return "http://media.test/workio/" + key, nil
}

// ============================================================================
// 测试辅助
// ============================================================================

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
var pdfBytes = []byte("%PDF-1.4 test resume content")

func newTestHandler() (*Handler, *mockUserStore, *mockMedia) {
	store := newMockUserStore()
	media := newMockMedia()
	return NewHandler(store, media, testConfig()), store, media
}

// multipartBody 构造 multipart 请求体
func multipartBody(t *testing.T, fields map[string]string, fileField, fileName string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		w.WriteField(k, v)
	}
	if fileField != "" {
		part, err := w.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write(fileData)
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func registerFields(overrides map[string]string) map[string]string {
	fields := map[string]string{
		"name":     "Alice",
		"email":    "alice@example.com",
		"password": "password123",
		"userType": "candidate",
	}
	for k, v := range overrides {
		fields[k] = v
	}
	return fields
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v (%s)", err, w.Body.String())
	}
	return body
}

func registerUser(t *testing.T, h *Handler, store *mockUserStore, email string, userType model.UserType) *model.User {
	t.Helper()
	hash, _ := HashPassword("password123")
	user := &model.User{
		ID:           generateID("usr"),
		Name:         "Test User",
		Email:        email,
		PasswordHash: hash,
		UserType:     userType,
	}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func sessionCookieFor(t *testing.T, cfg Config, userID string) *http.Cookie {
	t.Helper()
	token, err := GenerateSessionToken(cfg, userID)
	if err != nil {
		t.Fatalf("GenerateSessionToken: %v", err)
	}
	return &http.Cookie{Name: SessionCookie, Value: token}
}

// ============================================================================
// 注册
// ============================================================================

func TestRegister(t *testing.T) {
	tests := []struct {
		name        string
		overrides   map[string]string
		fileField   string
		fileData    []byte
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "成功注册",
			fileField:  "image",
			fileData:   pngBytes,
			wantStatus: http.StatusCreated,
		},
		{
			name:        "缺少姓名",
			overrides:   map[string]string{"name": ""},
			fileField:   "image",
			fileData:    pngBytes,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Enter your name",
		},
		{
			name:        "邮箱格式错误",
			overrides:   map[string]string{"email": "not-an-email"},
			fileField:   "image",
			fileData:    pngBytes,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Invalid email format",
		},
		{
			name:        "密码过短",
			overrides:   map[string]string{"password": "short"},
			fileField:   "image",
			fileData:    pngBytes,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Password must be at least 8 characters long",
		},
		{
			name:        "非法用户类型",
			overrides:   map[string]string{"userType": "admin"},
			fileField:   "image",
			fileData:    pngBytes,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please select user type (candidate or recruiter)",
		},
		{
			name:        "缺少头像",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Upload your image",
		},
		{
			name:        "头像类型不允许",
			fileField:   "image",
			fileData:    []byte("plain text, not an image"),
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Only JPEG, PNG, and WebP images are allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestHandler()
			body, contentType := multipartBody(t, registerFields(tt.overrides), tt.fileField, "avatar.png", tt.fileData)
			req := httptest.NewRequest("POST", "/user/register-user", body)
			req.Header.Set("Content-Type", contentType)
			w := httptest.NewRecorder()

			h.Register(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantMessage != "" {
				if got := decodeBody(t, w)["message"]; got != tt.wantMessage {
					t.Errorf("message = %q, want %q", got, tt.wantMessage)
				}
			}
		})
	}
}

func TestRegisterSetsSessionCookie(t *testing.T) {
	h, store, media := newTestHandler()
	body, contentType := multipartBody(t, registerFields(nil), "image", "avatar.png", pngBytes)
	req := httptest.NewRequest("POST", "/user/register-user", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var sessionCookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			sessionCookie = c
		}
	}
	if sessionCookie == nil {
		t.Fatal("registration should set the session cookie")
	}
	claims, err := ParseSessionToken(testConfig(), sessionCookie.Value)
	if err != nil {
		t.Fatalf("session cookie should carry a valid token: %v", err)
	}
	if store.users[claims.Subject] == nil {
		t.Errorf("token subject %q should reference the created user", claims.Subject)
	}

	resp := decodeBody(t, w)
	userData, ok := resp["userData"].(map[string]interface{})
	if !ok {
		t.Fatalf("response should carry userData, got %s", w.Body.String())
	}
	if _, leaked := userData["passwordHash"]; leaked {
		t.Error("password hash must not appear in the response")
	}
	if userData["image"] == "" {
		t.Error("userData.image should carry the uploaded image URL")
	}
	if len(media.uploads) != 1 {
		t.Errorf("expected 1 media upload, got %d", len(media.uploads))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	h, store, _ := newTestHandler()
	registerUser(t, h, store, "alice@example.com", model.UserTypeCandidate)

	body, contentType := multipartBody(t, registerFields(nil), "image", "avatar.png", pngBytes)
	req := httptest.NewRequest("POST", "/user/register-user", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("duplicate email should return 409, got %d", w.Code)
	}
}

func TestRegisterOversizedImage(t *testing.T) {
	h, _, _ := newTestHandler()
	big := make([]byte, MaxImageSize+1)
	copy(big, pngBytes)

	body, contentType := multipartBody(t, registerFields(nil), "image", "avatar.png", big)
	req := httptest.NewRequest("POST", "/user/register-user", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	h.Register(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("oversized image should return 400, got %d", w.Code)
	}
	if got := decodeBody(t, w)["message"]; got != "Profile picture must be less than 2MB" {
		t.Errorf("message = %q", got)
	}
}

// ============================================================================
// 登录 / 登出
// ============================================================================

func TestLogin(t *testing.T) {
	h, store, _ := newTestHandler()
	registerUser(t, h, store, "alice@example.com", model.UserTypeCandidate)

	tests := []struct {
		name        string
		body        map[string]interface{}
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "成功登录",
			body:       map[string]interface{}{"email": "alice@example.com", "password": "password123", "userType": "candidate"},
			wantStatus: http.StatusOK,
		},
		{
			name:        "未知邮箱",
			body:        map[string]interface{}{"email": "nobody@example.com", "password": "password123", "userType": "candidate"},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Email does not exist",
		},
		{
			name:        "角色不匹配与未知邮箱响应一致",
			body:        map[string]interface{}{"email": "alice@example.com", "password": "password123", "userType": "recruiter"},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Email does not exist",
		},
		{
			name:        "密码错误",
			body:        map[string]interface{}{"email": "alice@example.com", "password": "wrong-password", "userType": "candidate"},
			wantStatus:  http.StatusUnauthorized,
			wantMessage: "Invalid credentials",
		},
		{
			name:        "缺少邮箱",
			body:        map[string]interface{}{"password": "password123", "userType": "candidate"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Email is required",
		},
		{
			name:        "非法用户类型",
			body:        map[string]interface{}{"email": "alice@example.com", "password": "password123", "userType": "admin"},
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Please select a valid user type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := json.Marshal(tt.body)
			req := httptest.NewRequest("POST", "/user/login-user", bytes.NewReader(data))
			w := httptest.NewRecorder()

			h.Login(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantMessage != "" {
				if got := decodeBody(t, w)["message"]; got != tt.wantMessage {
					t.Errorf("message = %q, want %q", got, tt.wantMessage)
				}
			}
		})
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h, store, _ := newTestHandler()
	user := registerUser(t, h, store, "alice@example.com", model.UserTypeCandidate)

	data, _ := json.Marshal(map[string]interface{}{
		"email": "alice@example.com", "password": "password123", "userType": "candidate",
	})
	req := httptest.NewRequest("POST", "/user/login-user", bytes.NewReader(data))
	w := httptest.NewRecorder()

	h.Login(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	found := false
	for _, c := range w.Result().Cookies() {
		if c.Name == SessionCookie {
			claims, err := ParseSessionToken(testConfig(), c.Value)
			if err != nil {
				t.Fatalf("invalid session token: %v", err)
			}
			if claims.Subject != user.ID {
				t.Errorf("token subject = %q, want %q", claims.Subject, user.ID)
			}
			found = true
		}
	}
	if !found {
		t.Error("login should set the session cookie")
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	h, _, _ := newTestHandler()
	req := httptest.NewRequest("POST", "/user/logout-user", nil)
	w := httptest.NewRecorder()

	h.Logout(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Error("logout should expire the session cookie")
	}
}

// ============================================================================
// 角色中间件 + 受保护路由
// ============================================================================

func TestProtectedRoutes(t *testing.T) {
	h, store, _ := newTestHandler()
	candidate := registerUser(t, h, store, "cand@example.com", model.UserTypeCandidate)
	recruiter := registerUser(t, h, store, "recr@example.com", model.UserTypeRecruiter)

	authn := NewAuthenticator(store, testConfig())
	mux := http.NewServeMux()
	h.RegisterRoutes(mux, authn)

	tests := []struct {
		name       string
		path       string
		cookie     *http.Cookie
		wantStatus int
		wantKey    string
	}{
		{
			name:       "未登录访问求职者接口",
			path:       "/user/user-data",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "无效令牌",
			path:       "/user/user-data",
			cookie:     &http.Cookie{Name: SessionCookie, Value: "garbage"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "已删除用户的令牌",
			path:       "/user/user-data",
			cookie:     sessionCookieFor(t, testConfig(), "usr-gone"),
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "招聘者访问求职者接口",
			path:       "/user/user-data",
			cookie:     sessionCookieFor(t, testConfig(), recruiter.ID),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "求职者访问招聘者接口",
			path:       "/user/recruiter-data",
			cookie:     sessionCookieFor(t, testConfig(), candidate.ID),
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "求职者获取本人信息",
			path:       "/user/user-data",
			cookie:     sessionCookieFor(t, testConfig(), candidate.ID),
			wantStatus: http.StatusOK,
			wantKey:    "userData",
		},
		{
			name:       "招聘者获取本人信息",
			path:       "/user/recruiter-data",
			cookie:     sessionCookieFor(t, testConfig(), recruiter.ID),
			wantStatus: http.StatusOK,
			wantKey:    "recruiterData",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			w := httptest.NewRecorder()

			mux.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantKey != "" {
				if _, ok := decodeBody(t, w)[tt.wantKey]; !ok {
					t.Errorf("response should carry %q: %s", tt.wantKey, w.Body.String())
				}
			}
		})
	}
}

// ============================================================================
// 简历上传
// ============================================================================

func TestUploadResume(t *testing.T) {
	tests := []struct {
		name        string
		fileField   string
		fileData    []byte
		wantStatus  int
		wantMessage string
	}{
		{
			name:       "成功上传",
			fileField:  "resume",
			fileData:   pdfBytes,
			wantStatus: http.StatusOK,
		},
		{
			name:        "缺少文件",
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Resume file is required",
		},
		{
			name:        "非 PDF 文件",
			fileField:   "resume",
			fileData:    pngBytes,
			wantStatus:  http.StatusBadRequest,
			wantMessage: "Only PDF files are allowed for resume",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, store, _ := newTestHandler()
			candidate := registerUser(t, h, store, "cand@example.com", model.UserTypeCandidate)

			body, contentType := multipartBody(t, nil, tt.fileField, "resume.pdf", tt.fileData)
			req := httptest.NewRequest("POST", "/user/upload-resume", body)
			req.Header.Set("Content-Type", contentType)
			req = req.WithContext(WithUser(req.Context(), candidate))
			w := httptest.NewRecorder()

			h.UploadResume(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.wantStatus, w.Body.String())
			}
			if tt.wantMessage != "" {
				if got := decodeBody(t, w)["message"]; got != tt.wantMessage {
					t.Errorf("message = %q, want %q", got, tt.wantMessage)
				}
			}
			if tt.wantStatus == http.StatusOK {
				resp := decodeBody(t, w)
				url, _ := resp["resumeUrl"].(string)
				if !strings.HasSuffix(url, fmt.Sprintf("resumes/%s.pdf", candidate.ID)) {
					t.Errorf("resumeUrl = %q, should end with resumes/%s.pdf", url, candidate.ID)
				}
				if store.users[candidate.ID].Resume != url {
					t.Error("resume URL should be persisted on the user record")
				}
			}
		})
	}
}

func TestDetectContentType(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"PDF 魔数", pdfBytes, "application/pdf"},
		{"PNG", pngBytes, "image/png"},
		{"纯文本", []byte("hello world, this is text"), "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectContentType(tt.data); got != tt.want {
				t.Errorf("detectContentType = %q, want %q", got, tt.want)
			}
		})
	}
}
