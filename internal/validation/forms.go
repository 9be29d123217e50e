package validation

import "github.com/dekdek-app/dekdek/internal/models"

// LoginForm is the body of POST /api/auth/login
type LoginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the body of POST /api/auth/register
type RegisterForm struct {
	UserName    string      `json:"user_name" validate:"required,notblank,max=100"`
	Email       string      `json:"email" validate:"required,email"`
	Password    string      `json:"password" validate:"required,min=8"`
	PhoneNumber string      `json:"phoneNumber" validate:"required,thaiphone"`
	Role        models.Role `json:"role" validate:"required,role"`
}

// ChildForm is the body of add-child and update-child
type ChildForm struct {
	ParentID int           `json:"parent_id" validate:"required,gt=0"`
	Name     string        `json:"childName" validate:"required,notblank,max=100"`
	NickName string        `json:"nickName" validate:"required,notblank,max=50"`
	Birthday string        `json:"birthday" validate:"required,birthday"`
	Gender   models.Gender `json:"gender" validate:"required,gender"`
	Pic      string        `json:"childPic" validate:"omitempty,url"`
}

// RoomForm is the body of add-room
type RoomForm struct {
	SupervisorID int    `json:"supervisor_id" validate:"required,gt=0"`
	Name         string `json:"rooms_name" validate:"required,notblank,max=100"`
	Colors       string `json:"colors" validate:"omitempty,hexcolor"`
}

// RoomChildForm is the body of add-child-to-room
type RoomChildForm struct {
	RoomID  int `json:"rooms_id" validate:"required,gt=0"`
	ChildID int `json:"child_id" validate:"required,gt=0"`
}

// ProfileForm is the body of update-profile
type ProfileForm struct {
	UserName    string `json:"user_name" validate:"required,notblank,max=100"`
	PhoneNumber string `json:"phoneNumber" validate:"required,thaiphone"`
	ProfilePic  string `json:"profilePic" validate:"omitempty,url"`
}

// DeviceTokenForm is the body of register-token
type DeviceTokenForm struct {
	UserID         int    `json:"user_id" validate:"required,gt=0"`
	Token          string `json:"expo_push_token" validate:"required,notblank"`
	InstallationID string `json:"installation_id" validate:"required,uuid4"`
}

// AssessmentPath carries the path parameters of the assessment endpoints
type AssessmentPath struct {
	ChildID   int    `json:"childId" validate:"required,gt=0"`
	Aspect    string `json:"aspect" validate:"required,aspect"`
	RaterID   int    `json:"raterId" validate:"omitempty,gt=0"`
	AgeMonths int    `json:"ageMonths" validate:"gte=0,lte=216"`
}
