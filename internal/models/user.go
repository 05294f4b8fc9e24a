package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultRating = 1200
	MinRating     = 0
	MaxRating     = 3000

	passwordHashCost = 12
)

type Role string

const (
	RoleStudent       Role = "STUDENT"
	RoleVolunteer     Role = "VOLUNTEER"
	RoleCoach         Role = "COACH"
	RoleSchoolAdmin   Role = "SCHOOL_ADMIN"
	RoleRegionalAdmin Role = "REGIONAL_ADMIN"
	RoleNationalAdmin Role = "NATIONAL_ADMIN"
)

// 역할 계층 (숫자가 클수록 권한이 많음)
var roleLevels = map[Role]int{
	RoleStudent:       1,
	RoleVolunteer:     2,
	RoleCoach:         3,
	RoleSchoolAdmin:   4,
	RoleRegionalAdmin: 5,
	RoleNationalAdmin: 6,
}

func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast 요구 역할 이상인지 확인. 알 수 없는 역할은 항상 false
func (r Role) AtLeast(required Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	need, ok := roleLevels[required]
	if !ok {
		return false
	}
	return level >= need
}

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // JSON에서 숨김
	Role         Role      `json:"role" db:"role"`
	Rating       int       `json:"rating" db:"rating"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// ClampRating 레이팅을 [0, 3000] 범위로 제한
func ClampRating(rating int) int {
	if rating < MinRating {
		return MinRating
	}
	if rating > MaxRating {
		return MaxRating
	}
	return rating
}

// HashPassword 비밀번호 해싱
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost)
	return string(bytes), err
}

// CheckPassword 비밀번호 검증
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
