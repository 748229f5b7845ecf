package models

import "time"

const (
	GoalActive    = "active"
	GoalCompleted = "completed"
	GoalArchived  = "archived"

	AgreementPending   = "pending"
	AgreementCompleted = "completed"
	AgreementMissed    = "missed"
	AgreementCancelled = "cancelled"

	SenderUser = "user"
	SenderAI   = "ai"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type User struct {
	ID           int       `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type Goal struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Progress    float64   `json:"progress"`
	Frequency   string    `json:"frequency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Milestone struct {
	ID          int        `json:"id"`
	GoalID      int        `json:"goal_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Progress    float64    `json:"progress"`
	IsCompleted bool       `json:"is_completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Task struct {
	ID          int        `json:"id"`
	GoalID      int        `json:"goal_id"`
	MilestoneID *int       `json:"milestone_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted bool       `json:"is_completed"`
	Priority    string     `json:"priority"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type Agreement struct {
	ID              int        `json:"id"`
	GoalID          int        `json:"goal_id"`
	ChatID          *int       `json:"chat_id,omitempty"`
	Description     string     `json:"description"`
	Deadline        time.Time  `json:"deadline"`
	Status          string     `json:"status"`
	ReminderSent    bool       `json:"reminder_sent"`
	ChecklistSent   bool       `json:"checklist_sent"`
	ChecklistSentAt *time.Time `json:"checklist_sent_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Chat struct {
	ID        int       `json:"id"`
	GoalID    int       `json:"goal_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type Message struct {
	ID        int       `json:"id"`
	ChatID    int       `json:"chat_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Report struct {
	ID         int       `json:"id"`
	GoalID     int       `json:"goal_id"`
	Content    string    `json:"content"`
	ReportDate time.Time `json:"report_date"`
	CreatedAt  time.Time `json:"created_at"`
}

type PushSubscription struct {
	ID       int    `json:"id"`
	UserID   int    `json:"user_id"`
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// GoalUpdate carries only the fields a caller wants changed.
type GoalUpdate struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Progress    *float64 `json:"progress,omitempty"`
	Frequency   *string  `json:"frequency,omitempty"`
}

type MilestoneUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	TargetDate  *time.Time `json:"target_date,omitempty"`
	Progress    *float64   `json:"progress,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
}

type TaskUpdate struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	MilestoneID *int       `json:"milestone_id,omitempty"`
}

type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency,omitempty"`
}

// Dates in requests are strings so clients may send "2026-03-01" as well as
// full timestamps.

type CreateMilestoneRequest struct {
	GoalID      int    `json:"goal_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	TargetDate  string `json:"target_date,omitempty"`
}

type UpdateMilestoneRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	TargetDate  *string  `json:"target_date,omitempty"`
	Progress    *float64 `json:"progress,omitempty"`
	IsCompleted *bool    `json:"is_completed,omitempty"`
}

type CreateTaskRequest struct {
	GoalID      int    `json:"goal_id"`
	MilestoneID *int   `json:"milestone_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
	Priority    string `json:"priority,omitempty"`
}

type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	DueDate     *string `json:"due_date,omitempty"`
	IsCompleted *bool   `json:"is_completed,omitempty"`
	Priority    *string `json:"priority,omitempty"`
	MilestoneID *int    `json:"milestone_id,omitempty"`
}

type CreateReportRequest struct {
	GoalID     int    `json:"goal_id"`
	Content    string `json:"content"`
	ReportDate string `json:"report_date,omitempty"`
}

type CreateChatRequest struct {
	GoalID int    `json:"goal_id"`
	Title  string `json:"title"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type UpdateAgreementStatusRequest struct {
	Status string `json:"status"`
}

// ChatReplyResponse is what a coached turn returns: both stored messages,
// the actions waiting for confirmation and the results of the ones already
// applied.
type ChatReplyResponse struct {
	UserMessage    *Message `json:"user_message"`
	AIMessage      *Message `json:"ai_message"`
	PendingActions []any    `json:"pending_actions"`
	Results        []string `json:"results"`
	State          string   `json:"state"`
}

type ConfirmActionsResponse struct {
	Status          string   `json:"status"`
	Results         []string `json:"results"`
	MilestonesCount int      `json:"milestones_count"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Remember bool   `json:"remember,omitempty"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
