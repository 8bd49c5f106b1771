package model

import (
	"time"

	"gorm.io/datatypes"
)

// BidPackage groups competing contractor proposals for one procurement.
type BidPackage struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null;index" json:"name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	Contractors []Contractor `gorm:"foreignKey:BidPackageID" json:"contractors,omitempty"`
}

func (BidPackage) TableName() string {
	return "bid_packages"
}

// Contractor is one vendor competing in a bid package. StoreName is empty
// until the first successful ingestion establishes its retrieval store.
type Contractor struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"not null;index" json:"name"`
	BidPackageID uint      `gorm:"not null;index" json:"bid_package_id"`
	StoreName    string    `json:"store_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Files   []ContractorFile   `gorm:"foreignKey:ContractorID" json:"files,omitempty"`
	Results []EvaluationResult `gorm:"foreignKey:ContractorID" json:"results,omitempty"`
}

func (Contractor) TableName() string {
	return "contractors"
}

// Ready reports whether the contractor has an established retrieval store
// and can be evaluated.
func (c *Contractor) Ready() bool {
	return c.StoreName != ""
}

// ContractorFile is one uploaded proposal document. IsIndexed flips to true
// once the engine reports the document indexed; it never goes back.
type ContractorFile struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContractorID   uint      `gorm:"not null;index" json:"contractor_id"`
	Filename       string    `gorm:"not null" json:"filename"`
	ObjectPath     string    `json:"object_path,omitempty"`
	RemoteFileName string    `json:"remote_file_name,omitempty"`
	RemoteFileURI  string    `json:"remote_file_uri,omitempty"`
	IsIndexed      bool      `gorm:"not null;default:false" json:"is_indexed"`
	CreatedAt      time.Time `json:"created_at"`
}

func (ContractorFile) TableName() string {
	return "contractor_files"
}

// CriteriaSet is a reusable named list of evaluation prompts.
type CriteriaSet struct {
	ID      uint           `gorm:"primaryKey" json:"id"`
	Name    string         `gorm:"not null;index" json:"name"`
	Prompts datatypes.JSON `gorm:"type:json" json:"prompts"`
}

func (CriteriaSet) TableName() string {
	return "criteria_sets"
}

// EvaluationResult is one scored criterion for one contractor. Rows are
// append-only and removed only when the owning contractor is deleted.
type EvaluationResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ContractorID   uint      `gorm:"not null;index" json:"contractor_id"`
	CriteriaPrompt string    `gorm:"type:text;not null" json:"criteria_prompt"`
	Score          int       `gorm:"not null" json:"score"`
	Comment        string    `gorm:"type:text" json:"comment"`
	Evidence       string    `gorm:"type:text" json:"evidence"`
	CreatedAt      time.Time `json:"created_at"`
}

func (EvaluationResult) TableName() string {
	return "evaluation_results"
}
