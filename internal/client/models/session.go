package models

import "time"

// Role of the signed-in user.
type Role string

const (
	RolePatient          Role = "patient"
	RoleHealthcareWorker Role = "healthcare_worker"
	RoleAdmin            Role = "admin"
	RoleGovernment       Role = "government"
)

// Session is the device's signed-in identity. The store keeps at most one.
type Session struct {
	ID                string    `json:"id"`
	OwnerID           string    `json:"mosipId"`
	Role              Role      `json:"role"`
	Name              string    `json:"name"`
	Token             string    `json:"token,omitempty"`
	BiometricVerified bool      `json:"biometricVerified"`
	LastVerifiedAt    time.Time `json:"lastVerified"`
}
