// Package application 职位申请生命周期 - HTTP 处理
//
// 状态机：Pending → {Accepted, Rejected}，加上创建前/撤回后隐含的
// "不存在"状态。所有者谓词（user_id 或冗余的 company_id）折叠进每一次
// 存在性检查。
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"workio/internal/apiserver/auth"
	"workio/internal/shared/model"
	"workio/internal/shared/storage"
)

// Config 申请处理器配置
type Config struct {
	// StrictStatusTransitions 为 true 时禁止改写已裁定（Accepted/Rejected）
	// 的申请。观察到的线上行为允许改写，默认关闭。
	StrictStatusTransitions bool `yaml:"strict_status_transitions"`
}

// ApplicationStore 申请处理器需要的存储接口（用于测试 mock）
type ApplicationStore interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetJobByID(ctx context.Context, id string) (*model.Job, error)
	GetJobOwned(ctx context.Context, id, companyID string) (*model.Job, error)

	CreateApplication(ctx context.Context, app *model.Application) error
	HasApplication(ctx context.Context, userID, jobID string) (bool, error)
	GetApplicationOwnedByUser(ctx context.Context, id, userID string) (*model.Application, error)
	GetApplicationOwnedByCompany(ctx context.Context, id, companyID string) (*model.Application, error)
	DeleteApplicationPending(ctx context.Context, id, userID string) error
	UpdateApplicationStatus(ctx context.Context, id, companyID string, status model.ApplicationStatus) (*model.Application, error)
	ListApplicationsByUser(ctx context.Context, userID string) ([]*model.ApplicationDetail, error)
	ListApplicationsByCompany(ctx context.Context, companyID string) ([]*model.ApplicationDetail, error)
	ListApplicationsByJob(ctx context.Context, jobID string) ([]*model.ApplicationDetail, error)
}

// Handler 申请生命周期 HTTP 处理器
type Handler struct {
	store ApplicationStore
	cfg   Config
}

// NewHandler 创建申请处理器
func NewHandler(store ApplicationStore, cfg Config) *Handler {
	return &Handler{store: store, cfg: cfg}
}

// RegisterRoutes 注册申请相关路由
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authn *auth.Authenticator) {
	// 求职者
	mux.HandleFunc("POST /applications/apply", authn.RequireCandidate(h.Apply))
	mux.HandleFunc("GET /applications/user-applications", authn.RequireCandidate(h.ListOwn))
	mux.HandleFunc("DELETE /applications/withdraw/{applicationId}", authn.RequireCandidate(h.Withdraw))

	// 招聘者
	mux.HandleFunc("GET /applications/recruiter-applications", authn.RequireRecruiter(h.ListForRecruiter))
	mux.HandleFunc("GET /applications/job/{jobId}", authn.RequireRecruiter(h.ListForJob))
	mux.HandleFunc("PUT /applications/update-status/{applicationId}", authn.RequireRecruiter(h.UpdateStatus))
}

// ============================================================================
// 请求类型
// ============================================================================

type applyRequest struct {
	JobID string `json:"jobId"`
}

type updateStatusRequest struct {
	Status model.ApplicationStatus `json:"status"`
}

// ============================================================================
// 求职者端
// ============================================================================

// Apply 求职者申请职位
// POST /applications/apply {jobId}
//
// 前置条件按序检查，先失败先赢：有简历(400) → 未申请过(409) → 职位存在(404)。
// 处理器内的重复检查只是快速路径，(user_id, job_id) 唯一索引才是
// 并发双提交的权威拦截点。
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate := auth.UserFrom(ctx)

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.JobID == "" {
		writeError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	if candidate.Resume == "" {
		writeError(w, http.StatusBadRequest, "Resume is required to apply for jobs. Please upload your resume first.")
		return
	}

	applied, err := h.store.HasApplication(ctx, candidate.ID, req.JobID)
	if err != nil {
		log.Printf("[application.apply] HasApplication error: %v", err)
		writeError(w, http.StatusInternalServerError, "Job application failed")
		return
	}
	if applied {
		writeError(w, http.StatusConflict, "You have already applied for this job")
		return
	}

	job, err := h.store.GetJobByID(ctx, req.JobID)
	if err != nil {
		log.Printf("[application.apply] GetJobByID error: %v", err)
		writeError(w, http.StatusInternalServerError, "Job application failed")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}

	app := &model.Application{
		ID:        generateID("app"),
		UserID:    candidate.ID,
		JobID:     job.ID,
		CompanyID: job.CompanyID, // 按职位当前所有者冗余拷贝
		Status:    model.StatusPending,
		Date:      time.Now(),
	}

	if err := h.store.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			// 并发双提交，唯一索引兜底
			writeError(w, http.StatusConflict, "You have already applied for this job")
			return
		}
		log.Printf("[application.apply] CreateApplication error: %v", err)
		writeError(w, http.StatusInternalServerError, "Job application failed")
		return
	}

	log.Printf("[application] Applied: %s user=%s job=%s", app.ID, candidate.ID, job.ID)
	writeSuccess(w, http.StatusCreated, "Job applied successfully", envelope{"jobApplication": app})
}

// ListOwn 求职者自己的申请，联职位摘要与招聘者公开信息
// GET /applications/user-applications
func (h *Handler) ListOwn(w http.ResponseWriter, r *http.Request) {
	candidate := auth.UserFrom(r.Context())

	apps, err := h.store.ListApplicationsByUser(r.Context(), candidate.ID)
	if err != nil {
		log.Printf("[application.own] ListApplicationsByUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job applications")
		return
	}

	writeSuccess(w, http.StatusOK, "Job applications fetched successfully", envelope{"jobApplications": apps})
}

// Withdraw 求职者撤回申请，仅 Pending 状态可撤回
// DELETE /applications/withdraw/{applicationId}
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate := auth.UserFrom(ctx)
	applicationID := r.PathValue("applicationId")

	app, err := h.store.GetApplicationOwnedByUser(ctx, applicationID, candidate.ID)
	if err != nil {
		log.Printf("[application.withdraw] GetApplicationOwnedByUser error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to withdraw application")
		return
	}
	if app == nil {
		writeError(w, http.StatusNotFound, "Application not found or you don't have permission to withdraw it")
		return
	}
	if app.Status != model.StatusPending {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("Cannot withdraw application. Status has already been changed to %q by the recruiter.", app.Status))
		return
	}

	// 删除谓词再查一次 Pending：读取和删除之间招聘者可能已裁定
	if err := h.store.DeleteApplicationPending(ctx, applicationID, candidate.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Cannot withdraw application. Status has already been changed by the recruiter.")
			return
		}
		log.Printf("[application.withdraw] DeleteApplicationPending error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to withdraw application")
		return
	}

	log.Printf("[application] Withdrawn: %s user=%s", applicationID, candidate.ID)
	writeSuccess(w, http.StatusOK, "Application withdrawn successfully", nil)
}

// ============================================================================
// 招聘者端
// ============================================================================

// ListForRecruiter 招聘者收到的全部申请（按冗余 company_id 查询）
// GET /applications/recruiter-applications
func (h *Handler) ListForRecruiter(w http.ResponseWriter, r *http.Request) {
	recruiter := auth.UserFrom(r.Context())

	apps, err := h.store.ListApplicationsByCompany(r.Context(), recruiter.ID)
	if err != nil {
		log.Printf("[application.recruiter] ListApplicationsByCompany error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch applications")
		return
	}

	writeSuccess(w, http.StatusOK, "Applications fetched successfully", envelope{"applicationsData": apps})
}

// ListForJob 指定职位的申请，先按 {_id, company_id} 谓词校验职位归属
// GET /applications/job/{jobId}
func (h *Handler) ListForJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiter := auth.UserFrom(ctx)
	jobID := r.PathValue("jobId")

	job, err := h.store.GetJobOwned(ctx, jobID, recruiter.ID)
	if err != nil {
		log.Printf("[application.job] GetJobOwned error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job applications")
		return
	}
	if job == nil {
		writeError(w, http.StatusNotFound, "Job not found or you don't have permission to view its applications")
		return
	}

	apps, err := h.store.ListApplicationsByJob(ctx, jobID)
	if err != nil {
		log.Printf("[application.job] ListApplicationsByJob error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch job applications")
		return
	}

	writeSuccess(w, http.StatusOK, "Job applications fetched successfully", envelope{"applicationsData": apps})
}

// UpdateStatus 招聘者裁定申请
// PUT /applications/update-status/{applicationId} {status}
//
// {_id, company_id} 谓词未命中返回 404——这同时覆盖了求职者并发撤回的
// 情形，绝不在已撤回的记录上静默成功。
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recruiter := auth.UserFrom(ctx)
	applicationID := r.PathValue("applicationId")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status is required")
		return
	}
	if !req.Status.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid status value")
		return
	}

	if h.cfg.StrictStatusTransitions {
		current, err := h.store.GetApplicationOwnedByCompany(ctx, applicationID, recruiter.ID)
		if err != nil {
			log.Printf("[application.status] GetApplicationOwnedByCompany error: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to update application status")
			return
		}
		if current == nil {
			writeError(w, http.StatusNotFound, "Application not found or has been withdrawn by the user")
			return
		}
		if current.Status.Decided() {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Application already %s; decided applications cannot be changed", current.Status))
			return
		}
	}

	updated, err := h.store.UpdateApplicationStatus(ctx, applicationID, recruiter.ID, req.Status)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Application not found or has been withdrawn by the user")
			return
		}
		log.Printf("[application.status] UpdateApplicationStatus error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update application status")
		return
	}

	detail, err := h.joinDetail(ctx, updated)
	if err != nil {
		log.Printf("[application.status] join error: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to update application status")
		return
	}

	log.Printf("[application] Status updated: %s -> %s by %s", applicationID, req.Status, recruiter.ID)
	writeSuccess(w, http.StatusOK, "Application status updated successfully", envelope{"applicationData": detail})
}

// joinDetail 为单条申请补全联表字段（招聘者视角）
func (h *Handler) joinDetail(ctx context.Context, app *model.Application) (*model.ApplicationDetail, error) {
	detail := &model.ApplicationDetail{Application: *app}

	job, err := h.store.GetJobByID(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if job != nil {
		detail.Job = job.Snapshot()
	}

	user, err := h.store.GetUserByID(ctx, app.UserID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		detail.User = user.Public(true)
	}
	return detail, nil
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
