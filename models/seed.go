package models

import (
	"fmt"

	"gorm.io/gorm"
)

var roleDescriptions = map[string]string{
	RoleAdministrator: "full access",
	RoleInstructor:    "manages own questions and grading runs",
}

// EnsureRole returns the named role, creating it when missing.
func EnsureRole(db *gorm.DB, name string) (Role, error) {
	role := Role{Name: name, Description: roleDescriptions[name]}
	if err := db.Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
		return Role{}, fmt.Errorf("ensure role %s: %w", name, err)
	}
	return role, nil
}

// All lists every persisted model in migration order.
func All() []any {
	return []any{&Role{}, &User{}, &Question{}, &Candidate{}, &Score{}}
}
