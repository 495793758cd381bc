package models

import "time"

type CarePlanStatus string

const (
	CarePlanActive    CarePlanStatus = "active"
	CarePlanPaused    CarePlanStatus = "paused"
	CarePlanCompleted CarePlanStatus = "completed"
)

type Milestone struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Date      string `json:"date"`
}

type CareService struct {
	Name      string         `json:"name"`
	Frequency string         `json:"frequency"`
	Status    CarePlanStatus `json:"status"`
}

type CarePlan struct {
	ID          string         `json:"id"`
	ClientID    string         `json:"clientId"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      CarePlanStatus `json:"status"`
	Progress    int            `json:"progress"`
	NextReview  string         `json:"nextReview"`
	Milestones  []Milestone    `json:"milestones"`
	Services    []CareService  `json:"services"`
}

type ServiceRequestStatus string

const (
	ServiceRequestPending   ServiceRequestStatus = "pending"
	ServiceRequestActive    ServiceRequestStatus = "active"
	ServiceRequestCompleted ServiceRequestStatus = "completed"
)

type ServiceRequest struct {
	ID            string               `json:"id"`
	ClientID      string               `json:"clientId"`
	Title         string               `json:"title"`
	Description   string               `json:"description"`
	Category      string               `json:"category"`
	Priority      string               `json:"priority"`
	Status        ServiceRequestStatus `json:"status"`
	RequestedDate time.Time            `json:"requestedDate"`
	AssignedTo    string               `json:"assignedTo,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
}

type Profile struct {
	UserID    string         `json:"userId"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone"`
	Fields    map[string]any `json:"fields"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

type Interview struct {
	EventID     string    `json:"eventId"`
	ClientID    string    `json:"clientId"`
	CaregiverID string    `json:"caregiverId"`
	Datetime    time.Time `json:"datetime"`
}

type Document struct {
	ID        string    `json:"documentId"`
	OwnerID   string    `json:"ownerId"`
	Filename  string    `json:"filename"`
	MimeType  string    `json:"mimeType"`
	ObjectKey string    `json:"objectKey"`
	CreatedAt time.Time `json:"createdAt"`
}

type BillingSummary struct {
	Period   string  `json:"period"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

type CandidateMatch struct {
	CaregiverID string `json:"caregiverId"`
	Score       int    `json:"score"`
	Rationale   string `json:"rationale,omitempty"`
}
