package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mangrovewatch/internal/errs"
	"mangrovewatch/internal/models"
	"mangrovewatch/internal/repository"
	"mangrovewatch/internal/service"
	"mangrovewatch/pkg/logger"
)

// ReportHandler exposes the report lifecycle over HTTP.
type ReportHandler struct {
	reports *service.ReportService
	users   *repository.UserRepository
	log     *logger.Logger
}

// NewReportHandler creates a report handler.
func NewReportHandler(reports *service.ReportService, users *repository.UserRepository, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, users: users, log: log}
}

type evidenceRequest struct {
	URL     string `json:"url"`
	Caption string `json:"caption"`
}

type submitReportRequest struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Severity    string            `json:"severity"`
	Latitude    *float64          `json:"latitude"`
	Longitude   *float64          `json:"longitude"`
	Address     string            `json:"address"`
	Region      string            `json:"region"`
	Tags        []string          `json:"tags"`
	AreaValue   string            `json:"area_value"`
	AreaUnit    string            `json:"area_unit"`
	Photos      []evidenceRequest `json:"photos"`
	Videos      []evidenceRequest `json:"videos"`
}

type reviewRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type commentRequest struct {
	Body string `json:"body"`
}

type evidenceResponse struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

type reportResponse struct {
	ID              uint64     `json:"id"`
	Code            string     `json:"report_code"`
	ReporterID      uint64     `json:"reporter_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Category        string     `json:"category"`
	Severity        string     `json:"severity"`
	Status          string     `json:"status"`
	ValidationScore int32      `json:"validation_score"`
	Latitude        *float64   `json:"latitude"`
	Longitude       *float64   `json:"longitude"`
	Address         string     `json:"address,omitempty"`
	Region          string     `json:"region,omitempty"`
	Tags            []string   `json:"tags,omitempty"`
	AreaValue       string     `json:"area_value,omitempty"`
	AreaUnit        string     `json:"area_unit,omitempty"`
	Photos          []evidenceResponse `json:"photos,omitempty"`
	Videos          []evidenceResponse `json:"videos,omitempty"`
	LikeCount       int64      `json:"like_count"`
	ReviewerID      *uint64    `json:"reviewer_id,omitempty"`
	ReviewNotes     string     `json:"review_notes,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	EscalatedTo     string     `json:"escalated_to,omitempty"`
	EscalationNotes string     `json:"escalation_notes,omitempty"`
	EscalatedAt     *time.Time `json:"escalated_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toReportResponse(report *models.Report) reportResponse {
	resp := reportResponse{
		ID:              report.ID,
		Code:            report.Code,
		ReporterID:      report.ReporterID,
		Title:           report.Title,
		Description:     report.Description,
		Category:        string(report.Category),
		Severity:        string(report.Severity),
		Status:          string(report.Status),
		ValidationScore: report.ValidationScore,
		Latitude:        report.Location.Latitude,
		Longitude:       report.Location.Longitude,
		Address:         report.Location.Address,
		Region:          report.Location.Region,
		Tags:            report.Tags,
		LikeCount:       report.LikeCount,
		ReviewerID:      report.ReviewerID,
		ReviewNotes:     report.ReviewNotes,
		ReviewedAt:      report.ReviewedAt,
		EscalatedTo:     report.EscalatedTo,
		EscalationNotes: report.EscalationNotes,
		EscalatedAt:     report.EscalatedAt,
		CreatedAt:       report.CreatedAt,
	}
	if report.EstimatedArea != nil {
		resp.AreaValue = report.EstimatedArea.Value.String()
		resp.AreaUnit = report.EstimatedArea.Unit
	}
	for _, photo := range report.Photos {
		resp.Photos = append(resp.Photos, evidenceResponse{URL: photo.URL, Caption: photo.Caption})
	}
	for _, video := range report.Videos {
		resp.Videos = append(resp.Videos, evidenceResponse{URL: video.URL, Caption: video.Caption})
	}
	return resp
}

func toSubmitInput(req submitReportRequest) service.SubmitReportInput {
	input := service.SubmitReportInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Severity:    req.Severity,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		Region:      req.Region,
		Tags:        req.Tags,
		AreaValue:   req.AreaValue,
		AreaUnit:    req.AreaUnit,
	}
	for _, photo := range req.Photos {
		input.Photos = append(input.Photos, service.EvidenceInput{URL: photo.URL, Caption: photo.Caption})
	}
	for _, video := range req.Videos {
		input.Videos = append(input.Videos, service.EvidenceInput{URL: video.URL, Caption: video.Caption})
	}
	return input
}

// HandleSubmit handles POST /api/reports.
func (h *ReportHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", errs.ErrInvalidContent))
		return
	}

	report, err := h.reports.SubmitReport(r.Context(), actor, toSubmitInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReportResponse(report))
}

// HandleGet handles GET /api/reports/{id}.
func (h *ReportHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	report, err := h.reports.GetReport(r.Context(), reportID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// HandleUpdate handles PUT /api/reports/{id}.
func (h *ReportHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", errs.ErrInvalidContent))
		return
	}

	report, err := h.reports.UpdateReport(r.Context(), actor, reportID, toSubmitInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// HandleDelete handles DELETE /api/reports/{id}.
func (h *ReportHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reports.DeleteReport(r.Context(), actor, reportID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// HandleClaim handles POST /api/reports/{id}/claim.
func (h *ReportHandler) HandleClaim(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reports.StartReview(r.Context(), actor, reportID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": string(models.StatusUnderReview)})
}

// HandleReview handles POST /api/reports/{id}/review.
func (h *ReportHandler) HandleReview(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", errs.ErrInvalidContent))
		return
	}

	report, err := h.reports.ReviewReport(r.Context(), actor, reportID, service.ReviewInput{
		Decision: req.Decision,
		Notes:    req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// HandleResolve handles POST /api/reports/{id}/resolve.
func (h *ReportHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reports.ResolveReport(r.Context(), actor, reportID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "status": string(models.StatusResolved)})
}

// HandleLike handles POST /api/reports/{id}/like.
func (h *ReportHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	liked, err := h.reports.ToggleLike(r.Context(), actor, reportID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "liked": liked})
}

// HandleComment handles POST /api/reports/{id}/comments.
func (h *ReportHandler) HandleComment(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	reportID, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid JSON body", errs.ErrInvalidContent))
		return
	}

	comment, err := h.reports.AddComment(r.Context(), actor, reportID, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        comment.ID,
		"report_id": comment.ReportID,
		"user_id":   comment.UserID,
		"body":      comment.Body,
	})
}

// HandlePendingQueue handles GET /api/reports/pending.
func (h *ReportHandler) HandlePendingQueue(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}
	if !actor.Role.IsReviewer() {
		writeError(w, errs.ErrForbidden)
		return
	}

	reports, err := h.reports.ListPendingReports(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, toReportResponse(report))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": responses})
}

// HandleMyReports handles GET /api/reports/mine.
func (h *ReportHandler) HandleMyReports(w http.ResponseWriter, r *http.Request) {
	actor, err := actingUser(r.Context(), r, h.users)
	if err != nil {
		writeError(w, err)
		return
	}

	reports, err := h.reports.ListReporterReports(r.Context(), actor.ID, queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]reportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, toReportResponse(report))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": responses})
}

// Register wires the report routes onto mux.
func (h *ReportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/reports", h.HandleSubmit)
	mux.HandleFunc("GET /api/reports/pending", h.HandlePendingQueue)
	mux.HandleFunc("GET /api/reports/mine", h.HandleMyReports)
	mux.HandleFunc("GET /api/reports/{id}", h.HandleGet)
	mux.HandleFunc("PUT /api/reports/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /api/reports/{id}", h.HandleDelete)
	mux.HandleFunc("POST /api/reports/{id}/claim", h.HandleClaim)
	mux.HandleFunc("POST /api/reports/{id}/review", h.HandleReview)
	mux.HandleFunc("POST /api/reports/{id}/resolve", h.HandleResolve)
	mux.HandleFunc("POST /api/reports/{id}/like", h.HandleLike)
	mux.HandleFunc("POST /api/reports/{id}/comments", h.HandleComment)
}
