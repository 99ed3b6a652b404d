package models

import "time"

// Record is a domain record that can be stored in a record collection.
type Record interface {
	RecordID() string
	RecordOwnerID() string
	RecordCollection() Collection
}

// ShareCoded is implemented by records indexed by share code.
type ShareCoded interface {
	RecordShareCode() string
}

// HealthcareProvider identifies who administered a dose.
type HealthcareProvider struct {
	Name    string `json:"name"`
	MosipID string `json:"mosipId"`
	License string `json:"license,omitempty"`
}

// VaccinationRecord is one administered dose for a patient.
type VaccinationRecord struct {
	ID                   string             `json:"id"`
	PatientMosipID       string             `json:"patientMosipId"`
	VaccineName          string             `json:"vaccineName"`
	VaccineType          string             `json:"vaccineType"`
	Dose                 int                `json:"dose"`
	TotalDoses           int                `json:"totalDoses"`
	DateAdministered     string             `json:"dateAdministered"`
	Location             string             `json:"location,omitempty"`
	Facility             string             `json:"facility,omitempty"`
	HealthcareProvider   HealthcareProvider `json:"healthcareProvider"`
	BatchNumber          string             `json:"batchNumber,omitempty"`
	SerialNumber         string             `json:"serialNumber,omitempty"`
	ExpiryDate           string             `json:"expiryDate,omitempty"`
	NextDueDate          string             `json:"nextDueDate,omitempty"`
	Route                string             `json:"route,omitempty"`
	SiteOfAdministration string             `json:"siteOfAdministration,omitempty"`
	AdverseEvents        []string           `json:"adverseEvents,omitempty"`
	Notes                string             `json:"notes,omitempty"`
	Verified             bool               `json:"verified"`
	VerifiedBy           string             `json:"verifiedBy,omitempty"`
	VerifiedAt           int64              `json:"verifiedAt,omitempty"`
	CreatedAt            int64              `json:"createdAt"`
	UpdatedAt            int64              `json:"updatedAt"`
}

func (r *VaccinationRecord) RecordID() string             { return r.ID }
func (r *VaccinationRecord) RecordOwnerID() string        { return r.PatientMosipID }
func (r *VaccinationRecord) RecordCollection() Collection { return CollectionVaccinations }

// MedicalHistory holds one patient's background relevant to vaccination.
type MedicalHistory struct {
	ID                       string   `json:"id"`
	PatientMosipID           string   `json:"patientMosipId"`
	Allergies                []string `json:"allergies"`
	Contraindications        []string `json:"contraindications"`
	ChronicConditions        []string `json:"chronicConditions"`
	Medications              []string `json:"medications"`
	PreviousAdverseReactions []string `json:"previousAdverseReactions"`
	Notes                    string   `json:"notes,omitempty"`
	LastUpdated              int64    `json:"lastUpdated"`
}

func (m *MedicalHistory) RecordID() string             { return m.ID }
func (m *MedicalHistory) RecordOwnerID() string        { return m.PatientMosipID }
func (m *MedicalHistory) RecordCollection() Collection { return CollectionMedicalHistory }

// EmptyMedicalHistory is the default returned when a patient has none stored.
func EmptyMedicalHistory(patientID string, now time.Time) *MedicalHistory {
	return &MedicalHistory{
		ID:                       "med_" + formatMillis(now),
		PatientMosipID:           patientID,
		Allergies:                []string{},
		Contraindications:        []string{},
		ChronicConditions:        []string{},
		Medications:              []string{},
		PreviousAdverseReactions: []string{},
		LastUpdated:              now.UnixMilli(),
	}
}

// RecordView is one access of a shared record.
type RecordView struct {
	Viewer   string `json:"viewer"`
	ViewedAt int64  `json:"viewedAt"`
}

// SharedRecord is a snapshot of a patient's records reachable by share code.
type SharedRecord struct {
	ID             string              `json:"id"`
	ShareCode      string              `json:"shareCode"`
	PatientMosipID string              `json:"patientMosipId"`
	Vaccinations   []VaccinationRecord `json:"vaccinations"`
	MedicalHistory *MedicalHistory     `json:"medicalHistory,omitempty"`
	ExpiresAt      int64               `json:"expiresAt"`
	ViewedBy       []RecordView        `json:"viewedBy"`
	CreatedAt      int64               `json:"createdAt"`
}

func (s *SharedRecord) RecordID() string             { return s.ID }
func (s *SharedRecord) RecordOwnerID() string        { return s.PatientMosipID }
func (s *SharedRecord) RecordCollection() Collection { return CollectionSharedRecords }
func (s *SharedRecord) RecordShareCode() string      { return s.ShareCode }

// Expired reports whether the share has lapsed at now.
func (s *SharedRecord) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.UnixMilli() >= s.ExpiresAt
}
