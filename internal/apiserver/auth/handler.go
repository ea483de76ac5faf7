package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"regexp"
	"time"

	"workio/internal/shared/media"
	"workio/internal/shared/model"
	"workio/internal/shared/storage"
)

// 上传限制
const (
	MaxImageSize  = 2 << 20 // 头像 2MB
	MaxResumeSize = 5 << 20 // 简历 5MB
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// UserStore 认证处理器需要的存储接口
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	UpdateUserResume(ctx context.Context, id, resumeURL string) error
}

// Handler 认证 HTTP 处理器
type Handler struct {
	store UserStore
	media media.Store
	cfg   Config
}

// NewHandler 创建认证处理器
func NewHandler(store UserStore, mediaStore media.Store, cfg Config) *Handler {
	return &Handler{store: store, media: mediaStore, cfg: cfg}
}

// RegisterRoutes 注册认证相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authn *Authenticator) {
	mux.HandleFunc("POST /user/register-user", h.Register)
	mux.HandleFunc("POST /user/login-user", h.Login)
	mux.HandleFunc("POST /user/logout-user", h.Logout)
	mux.HandleFunc("GET /user/user-data", authn.RequireCandidate(h.UserData))
	mux.HandleFunc("GET /user/recruiter-data", authn.RequireRecruiter(h.RecruiterData))
	mux.HandleFunc("POST /user/upload-resume", authn.RequireCandidate(h.UploadResume))
}

// ============================================================================
// 请求类型
// ============================================================================

type loginRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	UserType model.UserType `json:"userType"`
}

// ============================================================================
// Handlers
// ============================================================================

// Register 用户注册
// POST /user/register-user (multipart: name, email, password, userType, image)
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxImageSize + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	name := r.FormValue("name")
	email := r.FormValue("email")
	password := r.FormValue("password")
	userType := model.UserType(r.FormValue("userType"))

	if name == "" {
		writeError(w, http.StatusBadRequest, "Enter your name")
		return
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "Enter your email")
		return
	}
	if !isValidEmail(email) {
		writeError(w, http.StatusBadRequest, "Invalid email format")
		return
	}
	if password == "" {
		writeError(w, http.StatusBadRequest, "Enter your password")
		return
	}
	if len(password) < 8 {
		writeError(w, http.StatusBadRequest, "Password must be at least 8 characters long")
		return
	}
	if !userType.Valid() {
		writeError(w, http.StatusBadRequest, "Please select user type (candidate or recruiter)")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Upload your image")
		return
	}
	defer file.Close()

	data, contentType, err := readUpload(file, header, MaxImageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Profile picture must be less than 2MB")
		return
	}
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		writeError(w, http.StatusBadRequest, "Only JPEG, PNG, and WebP images are allowed")
		return
	}

	// 邮箱预检查（唯一索引是权威执行点，这里只为更友好的报错）
	existing, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		log.Printf("[auth.register] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "An account with this email already exists. Please use a different email or try logging in instead.")
		return
	}

	hash, err := HashPassword(password)
	if err != nil {
		log.Printf("[auth.register] HashPassword error: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	userID := generateID("usr")
	imageURL, err := h.uploadMedia(r.Context(), "images/"+userID+ext, data, contentType)
	if err != nil {
		log.Printf("[auth.register] image upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload profile picture")
		return
	}

	user := &model.User{
		ID:           userID,
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Image:        imageURL,
		UserType:     userType,
		CreatedAt:    time.Now(),
	}

	if err := h.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// 并发注册同一邮箱，唯一索引兜底
			writeError(w, http.StatusConflict, "An account with this email already exists. Please use a different email or try logging in instead.")
			return
		}
		log.Printf("[auth.register] CreateUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	token, err := GenerateSessionToken(h.cfg, user.ID)
	if err != nil {
		log.Printf("[auth.register] GenerateSessionToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	SetSessionCookie(w, h.cfg, token)

	log.Printf("[auth] User registered: %s (%s, %s)", user.Email, user.ID, user.UserType)
	writeSuccess(w, http.StatusCreated, "Registration successful", envelope{"userData": user})
}

// Login 用户登录
// POST /user/login-user {email, password, userType}
//
// 未知邮箱与角色不匹配返回完全相同的 401 响应，
// 避免泄露某邮箱注册在哪个角色下。
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password is required")
		return
	}
	if !req.UserType.Valid() {
		writeError(w, http.StatusBadRequest, "Please select a valid user type")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		log.Printf("[auth.login] GetUserByEmail error: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	if user == nil || user.UserType != req.UserType {
		writeError(w, http.StatusUnauthorized, "Email does not exist")
		return
	}
	if !CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := GenerateSessionToken(h.cfg, user.ID)
	if err != nil {
		log.Printf("[auth.login] GenerateSessionToken error: %v", err)
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}
	SetSessionCookie(w, h.cfg, token)

	log.Printf("[auth] User logged in: %s", user.Email)
	writeSuccess(w, http.StatusOK, "Login successful", envelope{"userData": user})
}

// Logout 登出：指示客户端丢弃 Cookie（无服务端吊销列表）
// POST /user/logout-user
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w, h.cfg)
	writeSuccess(w, http.StatusOK, "Logout successful", nil)
}

// UserData 当前求职者信息
// GET /user/user-data
func (h *Handler) UserData(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	writeSuccess(w, http.StatusOK, "User data fetched successfully", envelope{"userData": user})
}

// RecruiterData 当前招聘者信息
// GET /user/recruiter-data
func (h *Handler) RecruiterData(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())
	writeSuccess(w, http.StatusOK, "Recruiter data fetched", envelope{"recruiterData": user})
}

// UploadResume 求职者上传简历（PDF ≤ 5MB）
// POST /user/upload-resume (multipart: resume)
func (h *Handler) UploadResume(w http.ResponseWriter, r *http.Request) {
	user := UserFrom(r.Context())

	if err := r.ParseMultipartForm(MaxResumeSize + 1<<20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	file, header, err := r.FormFile("resume")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Resume file is required")
		return
	}
	defer file.Close()

	data, contentType, err := readUpload(file, header, MaxResumeSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Resume must be less than 5MB")
		return
	}
	if contentType != "application/pdf" {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed for resume")
		return
	}

	resumeURL, err := h.uploadMedia(r.Context(), "resumes/"+user.ID+".pdf", data, contentType)
	if err != nil {
		log.Printf("[auth.resume] upload error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload resume")
		return
	}

	if err := h.store.UpdateUserResume(r.Context(), user.ID, resumeURL); err != nil {
		log.Printf("[auth.resume] UpdateUserResume error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload resume")
		return
	}

	log.Printf("[auth] Resume uploaded: user=%s", user.ID)
	writeSuccess(w, http.StatusOK, "Resume uploaded successfully", envelope{"resumeUrl": resumeURL})
}

// ============================================================================
// 工具函数
// ============================================================================

// readUpload 读取上传内容并嗅探实际类型
// 声明的 Content-Type 不可信，以 http.DetectContentType 的结果为准
func readUpload(file multipart.File, header *multipart.FileHeader, maxSize int64) ([]byte, string, error) {
	if header.Size > maxSize {
		return nil, "", fmt.Errorf("file too large: %d bytes", header.Size)
	}
	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxSize {
		return nil, "", fmt.Errorf("file too large")
	}
	return data, detectContentType(data), nil
}

// detectContentType 嗅探内容类型
// DetectContentType 不识别 PDF，%PDF 魔数单独判断
func detectContentType(data []byte) string {
	if len(data) >= 4 && string(data[:4]) == "%PDF" {
		return "application/pdf"
	}
	return http.DetectContentType(data)
}

func (h *Handler) uploadMedia(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	return h.media.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func isValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// generateID 生成带前缀的唯一标识符
func generateID(prefix string) string {
	b := make([]byte, 6)
	rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

// 响应封包：所有响应都是 {success, message?, ...payload}
type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{"success": false, "message": message})
}

func writeSuccess(w http.ResponseWriter, status int, message string, extra envelope) {
	body := envelope{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}
