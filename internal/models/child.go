package models

import "time"

// Gender of a child. Only drives presentation.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is a known gender value
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Child represents a child profile owned by a parent
type Child struct {
	ID       int    `json:"child_id"`
	ParentID int    `json:"parent_id"`
	Name     string `json:"childName"`
	NickName string `json:"nickName"`
	Birthday string `json:"birthday"`
	Gender   Gender `json:"gender"`
	Pic      string `json:"childPic"`

	// Age is the "Y ปี M เดือน" display string, derived on every fetch
	Age string `json:"age,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
}

// Room groups children under a supervisor
type Room struct {
	ID           int    `json:"rooms_id"`
	Name         string `json:"rooms_name"`
	Colors       string `json:"colors"`
	SupervisorID int    `json:"supervisor_id"`
	ChildCount   int    `json:"child_count"`
}
