// Package job 职位目录 - HTTP 处理
package job

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"workio/internal/apiserver/auth"
	"workio/internal/shared/cache"
	"workio/internal/shared/model"
	"workio/internal/shared/storage"
)

// JobStore 职位处理器需要的存储接口（用于测试 mock）
type JobStore interface {
	CreateJob(ctx context.Context, job *model.Job) error
	GetJobOwned(ctx context.Context, id, companyID string) (*model.Job, error)
	ListVisibleJobs(ctx context.Context) ([]*model.JobWithCompany, error)
	ListJobsByCompany(ctx context.Context, companyID string) ([]*model.JobWithApplicants, error)
	UpdateJob(ctx context.Context, job *model.Job) error
	DeleteJobCascade(ctx context.Context, jobID, companyID string) error
}

// Handler 职位目录 HTTP 处理器
//
// listCache 可为 nil（无 Redis 模式）；缓存读写失败只记日志，
// 列表请求总能回落到存储层。
type Handler struct {
	store     JobStore
	listCache cache.JobListCache
}

// NewHandler 创建职位处理器
func NewHandler(store JobStore, listCache cache.JobListCache) *Handler {
	return &Handler{store: store, listCache: listCache}
}

// RegisterRoutes 注册职位相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authn *auth.Authenticator) {
	mux.HandleFunc("GET /job/all-jobs", h.ListVisible)
	mux.HandleFunc("POST /job/add", authn.RequireRecruiter(h.Create))
	mux.HandleFunc("GET /job/recruiter-jobs", authn.RequireRecruiter(h.ListOwn))
	mux.HandleFunc("PUT /job/update/{jobId}", authn.RequireRecruiter(h.Update))
	mux.HandleFunc("DELETE /job/delete/{jobId}", authn.RequireRecruiter(h.Delete))
}

// ============================================================================
// 请求类型
// ============================================================================

type createRequest struct {
	Title       string `json:"title"`
	Location    string `json:"location"`
	Level       string `json:"level"`
	Description string `json:"description"`
	Salary      int    `json:"salary"`
	Category    string `json:"category"`
}

// ============================================================================
// Handlers
// ============================================================================

// ListVisible 公开职位列表（无需认证），按发布时间倒序
// GET /job/all-jobs
func (h *Handler) ListVisible(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.listCache != nil {
		cached, err := h.listCache.GetJobList(ctx)
		if err != nil {
			log.Printf("[job.list] cache read error: %v", err)
		} else if cached != nil {
			writeSuccess(w, http.StatusOK, "Jobs fetched successfully", envelope{"jobData": cached})
			return
		}
	}

	jobs, err := h.store.ListVisibleJobs(ctx)
	if err != nil {
		log.Printf("[job.list] ListVisibleJobs error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch jobs")
		return
	}

	if h.listCache != nil {
		if err := h.listCache.SetJobList(ctx, jobs); err != nil {
			log.Printf("[job.list] cache write error: %v", err)
		}
	}

	writeSuccess(w, http.StatusOK, "Jobs fetched successfully", envelope{"jobData": jobs})
}

// Create 招聘者发布职位
// POST /job/add
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	recruiter := auth.UserFrom(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "Job title is required")
		return
	}
	if req.Location == "" {
		writeError(w, http.StatusBadRequest, "Job location is required")
		return
	}
	if req.Level == "" {
		writeError(w, http.StatusBadRequest, "Job level is required")
		return
	}
	if req.Description == "" {
		writeError(w, http.StatusBadRequest, "Job description is required")
		return
	}
	if req.Salary == 0 {
		writeError(w, http.StatusBadRequest, "Job salary is required")
		return
	}
	if req.Category == "" {
		writeError(w, http.StatusBadRequest, "Job category is required")
		return
	}

	job := &model.Job{
		ID:          generateID("job"),
		Title:       req.Title,
		Location:    req.Location,
		Level:       req.Level,
		Description: req.Description,
		Salary:      req.Salary,
		Category:    req.Category,
		CompanyID:   recruiter.ID,
		Visible:     true,
		Date:        time.Now(),
	}

	if err := h.store.CreateJob(r.Context(), job); err != nil {
		log.Printf("[job.create] CreateJob error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to add job")
		return
	}
	h.invalidateListCache(r.Context())

	log.Printf("[job] Job added: %s by %s", job.ID, recruiter.ID)
	writeSuccess(w, http.StatusCreated, "Job added successfully", envelope{"jobData": job})
}

// ListOwn 招聘者自己的职位（含隐藏），附带实时申请数
// GET /job/recruiter-jobs
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	recruiter := auth.UserFrom(r.Context())

	jobs, err := h.store.ListJobsByCompany(r.Context(), recruiter.ID)
	if err != nil {
		log.Printf("[job.own] ListJobsByCompany error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch jobs")
		return
	}

	writeSuccess(w, http.StatusOK, "Jobs fetched successfully", envelope{"jobsData": jobs})
}

// Update 部分更新职位
// PUT /job/update/{jobId}
//
// 宽松合并：未提供（零值）的字段保留旧值；visible 用指针区分
// "未提供"与"显式 false"。{_id, company_id} 谓词未命中一律 404，
// 不区分"不存在"与"不属于你"。
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	recruiter := auth.UserFrom(r.Context())
	jobID := r.PathValue("jobId")

	var update model.JobUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	job, err := h.store.GetJobOwned(r.Context(), jobID, recruiter.ID)
	if err != nil {
		log.Printf("[job.update] GetJobOwned error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update job")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	update.Merge(job)

	if err := h.store.UpdateJob(r.Context(), job); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("[job.update] UpdateJob error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update job")
		return
	}
	h.invalidateListCache(r.Context())

	writeSuccess(w, http.StatusOK, "Job updated successfully", envelope{"jobData": job})
}

// Delete 删除职位并级联删除其全部申请（存储层事务保证原子性）
// DELETE /job/delete/{jobId}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	recruiter := auth.UserFrom(r.Context())
	jobID := r.PathValue("jobId")

	if err := h.store.DeleteJobCascade(r.Context(), jobID, recruiter.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Job not found")
			return
		}
		log.Printf("[job.delete] DeleteJobCascade error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete job")
		return
	}
	h.invalidateListCache(r.Context())

	log.Printf("[job] Job deleted with applications: %s by %s", jobID, recruiter.ID)
	writeSuccess(w, http.StatusOK, "Job and all related applications deleted successfully", nil)
}

// invalidateListCache 职位变更后失效公开列表缓存
func (h *Handler) invalidateListCache(ctx context.Context) {
	if h.listCache == nil {
		return
	}
	if err := h.listCache.InvalidateJobList(ctx); err != nil {
		log.Printf("[job] cache invalidate error: %v", err)
	}
}

// ============================================================================
// 工具函数
// ============================================================================

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
