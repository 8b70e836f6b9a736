package model

// Mutation inputs. Validation tags are enforced by the gateway, which
// reports every violated field together rather than the first.

type TreatmentOutcomeInput struct {
	AppointmentID  string `json:"appointmentID" validate:"required"`
	CustomerID     string `json:"customerID" validate:"required"`
	ConsultantID   string `json:"consultantID" validate:"required"`
	Diagnosis      string `json:"diagnosis" validate:"required"`
	TreatmentPlan  string `json:"treatmentPlan" validate:"required"`
	Prescription   string `json:"prescription"`
	Recommendation string `json:"recommendation"`
	// Confirmed acknowledges the appointment+customer+consultant
	// bind; submission is rejected without it.
	Confirmed bool `json:"confirmed"`
}

type LabTestInput struct {
	CustomerID     string `json:"customerID" validate:"required"`
	StaffID        string `json:"staffID" validate:"required"`
	TreatmentID    string `json:"treatmentID"`
	TestName       string `json:"testName" validate:"required"`
	Result         string `json:"result" validate:"required"`
	ReferenceRange string `json:"referenceRange"`
	Unit           string `json:"unit"`
	IsPositive     *bool  `json:"isPositive"`
	TestDate       string `json:"testDate" validate:"required"`
}

type AppointmentStatusInput struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
	Reason string `json:"reason"`
}

type ConsultantInput struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required"`
	Specialty string `json:"specialty"`
}

type BlogPostInput struct {
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
	Author   string `json:"author" validate:"required"`
	Category string `json:"category"`
	Summary  string `json:"summary"`
}
