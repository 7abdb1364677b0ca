package schema

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

const (
	HomeworkPending = "Pending"
)

const (
	EventPending  = "pending"
	EventApproved = "approved"
	EventRejected = "rejected"
)

const (
	AttendancePresent = "present"
	AttendanceAbsent  = "absent"
)

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name     string `gorm:"size:100;not null"`
	Email    string `gorm:"unique;size:254;not null"`
	Password []byte

	Role string `gorm:"size:20;not null;default:'parent'"`

	// Set for teachers only, class assignment is by name match per the
	// original data model.
	ClassName string `gorm:"size:100"`
	Grade     string `gorm:"size:50"`

	Children     []Child       `gorm:"foreignKey:ParentId;constraint:OnDelete:CASCADE"`
	DeviceTokens []DeviceToken `gorm:"constraint:OnDelete:CASCADE"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsTeacher() bool {
	return u.Role == RoleTeacher
}

type Child struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Name      string `gorm:"size:100;not null"`
	Gender    string `gorm:"size:20"`
	BirthDate *time.Time
	Grade     string `gorm:"size:50"`
	ClassName string `gorm:"size:100;not null;index"`

	ParentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Parent   *User     `gorm:"foreignKey:ParentId"`
}

type Homework struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title        string `gorm:"size:200;not null"`
	Instructions string
	DueDate      time.Time `gorm:"not null;index"`
	FileUrl      string    `gorm:"size:500"`
	Status       string    `gorm:"size:50;not null;default:'Pending'"`

	ClassName string `gorm:"size:100;not null;index"`
	Grade     string `gorm:"size:50"`

	// Interactive homeworks carry structured activity content in Items and
	// are answered with an activity result rather than a file.
	Interactive bool   `gorm:"not null;default:false"`
	Items       string // JSON blob of structured activity content

	TeacherId uuid.UUID `gorm:"type:uuid;not null"`
	Teacher   *User     `gorm:"foreignKey:TeacherId"`

	Submissions []Submission         `gorm:"constraint:OnDelete:CASCADE"`
	Completions []HomeworkCompletion `gorm:"constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

type Submission struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	HomeworkId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_triple"`
	ParentId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_triple"`
	ChildId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_submission_triple"`

	FileUrl     string `gorm:"size:500"`
	Comment     string
	SubmittedAt time.Time

	Parent *User  `gorm:"foreignKey:ParentId"`
	Child  *Child `gorm:"foreignKey:ChildId;constraint:OnDelete:CASCADE"`
}

type HomeworkCompletion struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	HomeworkId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completion_triple"`
	ParentId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completion_triple"`
	ChildId    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_completion_triple"`

	// Free text answer. Interactive activity results are serialized into this
	// column with the "Interactive Activity Result: " prefix.
	CompletionAnswer string

	Child *Child `gorm:"foreignKey:ChildId;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Attendance struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	ChildId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_attendance_child_date"`
	Date    string    `gorm:"size:10;not null;uniqueIndex:idx_attendance_child_date"` // YYYY-MM-DD

	TeacherId uuid.UUID `gorm:"type:uuid;not null"`
	Status    string    `gorm:"size:20;not null"`
	Late      bool      `gorm:"not null;default:false"`

	Child *Child `gorm:"foreignKey:ChildId;constraint:OnDelete:CASCADE"`
}

type Message struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	SenderId    uuid.UUID `gorm:"type:uuid;not null;index"`
	RecipientId uuid.UUID `gorm:"type:uuid;not null;index"`

	Subject string `gorm:"size:200"`
	Body    string `gorm:"not null"`
	Read    bool   `gorm:"not null;default:false"`

	Sender    *User `gorm:"foreignKey:SenderId;constraint:OnDelete:CASCADE"`
	Recipient *User `gorm:"foreignKey:RecipientId;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

type Notification struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId uuid.UUID `gorm:"type:uuid;not null;index"`
	User   *User     `gorm:"foreignKey:UserId;constraint:OnDelete:CASCADE"`

	Title string `gorm:"size:200;not null"`
	Body  string
	Read  bool `gorm:"not null;default:false"`

	HomeworkId *uuid.UUID `gorm:"type:uuid"`
	EventId    *uuid.UUID `gorm:"type:uuid"`

	CreatedAt time.Time
}

type Event struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Title       string    `gorm:"size:200;not null"`
	Description string
	Date        time.Time `gorm:"not null"`
	Location    string    `gorm:"size:200"`
	Status      string    `gorm:"size:20;not null;default:'pending'"`

	CreatedById uuid.UUID `gorm:"type:uuid;not null"`
	CreatedBy   *User     `gorm:"foreignKey:CreatedById;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time
}

type DeviceToken struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	UserId uuid.UUID `gorm:"type:uuid;not null;index"`
	Token  string    `gorm:"size:500;unique;not null"`

	Platform string `gorm:"size:20"`
	LastSeen time.Time
}
