package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID         string       `gorm:"primaryKey;size:36;not null" json:"id"`
	Name       string       `gorm:"size:128;not null" json:"name"`
	Email      string       `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role       string       `gorm:"size:16;not null;default:user" json:"role"`
	IsVerified bool         `json:"isVerified"`
	Courses    []UserCourse `gorm:"foreignKey:UserID" json:"courses"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// HasCourse matches by course id, not by grant row identity.
func (u *User) HasCourse(courseID string) bool {
	for _, c := range u.Courses {
		if c.CourseID == courseID {
			return true
		}
	}
	return false
}

// UserCourse is one entry of a user's granted-courses set.
type UserCourse struct {
	UserID    string    `gorm:"primaryKey;size:36;not null" json:"-"`
	CourseID  string    `gorm:"primaryKey;size:36;not null" json:"courseId"`
	CreatedAt time.Time `json:"createdAt"`
}
