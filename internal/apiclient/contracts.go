package apiclient

import "time"

// Auth and session

type BeginAuthRequest struct {
	RedirectURI string `json:"redirectUri"`
	Domain      string `json:"domain"`
	AppID       string `json:"appId"`
	Region      string `json:"region,omitempty"`
}

type BeginAuthResponse struct {
	URL string `json:"url"`
}

type SessionResponse struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	MFAComplete bool   `json:"mfaComplete"`
	ExpiresAt   string `json:"expiresAt,omitempty"`
}

// MFA

type BeginMFARequest struct {
	UserID string `json:"userId,omitempty"`
}

type BeginMFAResponse struct {
	ChallengeID string `json:"challengeId"`
}

type VerifyMFARequest struct {
	ChallengeID string `json:"challengeId"`
	Code        string `json:"code"`
}

type VerifyMFAResponse struct {
	Success   bool   `json:"success"`
	Dashboard string `json:"dashboard,omitempty"`
}

// Users

type UpdateUserRoleRequest struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// Care plans

type CarePlanSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

type ListCarePlansResponse struct {
	Items []CarePlanSummary `json:"items"`
}

// Service requests

type CreateServiceRequest struct {
	ClientID      string `json:"clientId"`
	Description   string `json:"description"`
	RequestedDate string `json:"requestedDate"`
	Title         string `json:"title,omitempty"`
	Category      string `json:"category,omitempty"`
	Priority      string `json:"priority,omitempty"`
}

type CreateServiceResponse struct {
	RequestID string `json:"requestId"`
}

type ServiceRequest struct {
	ID            string    `json:"id"`
	ClientID      string    `json:"clientId"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Priority      string    `json:"priority"`
	Status        string    `json:"status"`
	RequestedDate time.Time `json:"requestedDate"`
	CreatedAt     time.Time `json:"createdAt"`
}

type ListServiceRequestsResponse struct {
	Items []ServiceRequest `json:"items"`
}

// Scheduling

type ScheduleInterviewRequest struct {
	ClientID    string `json:"clientId"`
	CaregiverID string `json:"caregiverId"`
	Datetime    string `json:"datetime"`
}

type ScheduleInterviewResponse struct {
	EventID string `json:"eventId"`
}

// Profiles

type UpdateProfileRequest struct {
	UserID string         `json:"userId"`
	Fields map[string]any `json:"fields"`
}

// Documents

type UploadDocumentInitRequest struct {
	OwnerID  string `json:"ownerId"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
}

type UploadDocumentInitResponse struct {
	UploadURL  string `json:"uploadUrl"`
	DocumentID string `json:"documentId"`
}

// Billing

type BillingSummaryResponse struct {
	Period   string  `json:"period"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Matching

type MatchingInput struct {
	ClientID    string         `json:"clientId"`
	Constraints map[string]any `json:"constraints,omitempty"`
}

type CandidateMatch struct {
	CaregiverID string `json:"caregiverId"`
	Score       int    `json:"score"`
	Rationale   string `json:"rationale,omitempty"`
}

type MatchingResponse struct {
	Candidates []CandidateMatch `json:"candidates"`
}

// Audit

type AuditEventRequest struct {
	Action    string         `json:"action"`
	SubjectID string         `json:"subjectId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Health

type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   string            `json:"ts"`
	Environment string            `json:"environment,omitempty"`
	Services    map[string]string `json:"services,omitempty"`
}
