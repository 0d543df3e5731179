// internal/models/application.go
package models

import "time"

// Status is the lifecycle state of a loan application.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ApplicantDetails holds the personal section of the form.
type ApplicantDetails struct {
	LoanAccountNo    string `json:"loanAccountNo,omitempty"`
	Year             string `json:"year,omitempty"` // birth year, used for the 18-65 age check
	Salutation       string `json:"salutation,omitempty"`
	FirstName        string `json:"firstName"`
	MiddleName       string `json:"middleName,omitempty"`
	LastName         string `json:"lastName"`
	MobileNo         string `json:"mobileNo"`
	Email            string `json:"email"`
	AadharNo         string `json:"aadharNo"`
	District         string `json:"district"`
	Taluka           string `json:"taluka"`
	VillageCity      string `json:"villageCity"`
	Pincode          string `json:"pincode"`
	PresentAddress   string `json:"presentAddress"`
	PermanentAddress string `json:"permanentAddress"`
	SameAsPermanent  bool   `json:"sameAsPermanent,omitempty"`
	IndustryName     string `json:"industryName"`
	Worksheet        string `json:"workingsheet,omitempty"`
}

// LoanDetails carries the requested amounts. TotalAmount is always the sum of
// the ten sub-amounts; TotalInWords is derived from it and empty when zero.
type LoanDetails struct {
	WorkingCapital1  float64 `json:"workingCapital1,omitempty"`
	KatchaStructure1 float64 `json:"katchaStructure1,omitempty"`
	Machinery1       float64 `json:"machinery1,omitempty"`
	Godown1          float64 `json:"godown1,omitempty"`
	Grant1           float64 `json:"grant1,omitempty"`
	WorkingCapital2  float64 `json:"workingCapital2,omitempty"`
	KatchaStructure2 float64 `json:"katchaStructure2,omitempty"`
	Machinery2       float64 `json:"machinery2,omitempty"`
	Godown2          float64 `json:"godown2,omitempty"`
	Grant2           float64 `json:"grant2,omitempty"`
	TotalAmount      float64 `json:"totalAmount"`
	TotalInWords     string  `json:"totalInWords"`
}

// SubAmounts returns the constituent amounts in a fixed order.
func (l LoanDetails) SubAmounts() []float64 {
	return []float64{
		l.WorkingCapital1, l.KatchaStructure1, l.Machinery1, l.Godown1, l.Grant1,
		l.WorkingCapital2, l.KatchaStructure2, l.Machinery2, l.Godown2, l.Grant2,
	}
}

// SuretyDetails holds the guarantor section of the form.
type SuretyDetails struct {
	SuretyName          string `json:"suretyName"`
	Relation            string `json:"relation"`
	Occupation          string `json:"occupation"`
	Designation         string `json:"designation,omitempty"`
	Employer            string `json:"employer,omitempty"`
	WorkAddress         string `json:"workAddress,omitempty"`
	Email               string `json:"email,omitempty"`
	MobileNo            string `json:"mobileNo"`
	AadharNo            string `json:"aadharNo"`
	PanNo               string `json:"panNo,omitempty"`
	MonthlySalary       string `json:"monthlySalary,omitempty"`
	OtherIncome         string `json:"otherIncome,omitempty"`
	ExistingLiabilities string `json:"existingLiabilities,omitempty"`
	PropertyDetails     string `json:"propertyDetails,omitempty"`
	BankName            string `json:"bankName"`
	BankBranch          string `json:"bankBranch"`
	AccountNo           string `json:"accountNo"`
	ResidentialAddress  string `json:"residentialAddress"`
	EmploymentDuration  string `json:"employmentDuration,omitempty"`
	District            string `json:"district"`
	Taluka              string `json:"taluka"`
	VillageCity         string `json:"villageCity"`
	Pincode             string `json:"pincode"`
}

// Document is one uploaded file slot, stored inline as a base64 data URL.
type Document struct {
	URL        string `json:"url"`
	FileName   string `json:"fileName"`
	FileSize   int64  `json:"fileSize"`
	FileType   string `json:"fileType"`
	UploadedAt string `json:"uploadedAt"`
	DocType    string `json:"docType,omitempty"`
	IsImage    bool   `json:"isImage,omitempty"`
	IsPDF      bool   `json:"isPDF,omitempty"`
}

// Timestamps mirrors the nested timestamps block on stored records.
type Timestamps struct {
	Created      time.Time `json:"created"`
	LastModified time.Time `json:"lastModified"`
}

// LoanApplication is the persisted application record. ID always equals
// FormNumber; the form number doubles as the document key.
type LoanApplication struct {
	ID               string               `json:"id"`
	FormNumber       string               `json:"formNumber"`
	Status           Status               `json:"status"`
	ApplicantDetails ApplicantDetails     `json:"applicantDetails"`
	LoanDetails      LoanDetails          `json:"loanDetails"`
	SuretyDetails    SuretyDetails        `json:"suretyDetails"`
	Documents        map[string]Document  `json:"documents,omitempty"`
	CreatedBy        string               `json:"createdBy"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
	SubmittedAt      *time.Time           `json:"submittedAt,omitempty"`
	Timestamps       Timestamps           `json:"timestamps"`
	StatusTimestamps map[string]time.Time `json:"statusTimestamps,omitempty"`
}
