package policy

import "mangrovewatch/internal/models"

// ReportPolicy holds the authorization predicates of the report lifecycle.
// Predicates are pure functions over the report and the acting user; the
// caller supplies both.
type ReportPolicy struct{}

// NewReportPolicy creates a policy instance.
func NewReportPolicy() *ReportPolicy {
	return &ReportPolicy{}
}

// CanEdit allows the original author always, plus privileged roles.
func (p *ReportPolicy) CanEdit(report *models.Report, actor *models.User) bool {
	if report.ReporterID == actor.ID {
		return true
	}
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleModerator
}

// CanDelete allows the author only while the report is still pending,
// an admin unconditionally, and a moderator while pending.
func (p *ReportPolicy) CanDelete(report *models.Report, actor *models.User) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	if report.Status != models.StatusPending {
		return false
	}
	return report.ReporterID == actor.ID || actor.Role == models.RoleModerator
}

// CanReview allows reviewer roles to take decisions. Only an admin may
// override a decision already taken (a transition out of a terminal state).
func (p *ReportPolicy) CanReview(report *models.Report, actor *models.User) bool {
	if !actor.Role.IsReviewer() {
		return false
	}
	if report.Status.Reviewable() {
		return true
	}
	return actor.Role == models.RoleAdmin
}

// EscalationTarget derives where an escalated report is routed from the
// reviewer's role: government reviewers escalate within government, everyone
// else routes to an NGO.
func (p *ReportPolicy) EscalationTarget(reviewer *models.User) string {
	if reviewer.Role == models.RoleGovernment {
		return "government"
	}
	return "ngo"
}

// CanAdjustPoints restricts manual point corrections to admins.
func (p *ReportPolicy) CanAdjustPoints(actor *models.User) bool {
	return actor.Role == models.RoleAdmin
}
