package service

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/anhnguyen888/nhatnguyen-ai-bidding-system/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the GORM-backed record store for packages, contractors, files,
// criteria sets and evaluation results.
type Store struct {
	db *gorm.DB
}

// OpenStore opens (or creates) the SQLite database at path and migrates the
// schema.
func OpenStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewStore(db)
}

// NewStore wraps an existing gorm DB and migrates the schema. Tests use it
// with an in-memory SQLite handle.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&model.BidPackage{},
		&model.Contractor{},
		&model.ContractorFile{},
		&model.CriteriaSet{},
		&model.EvaluationResult{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- bid packages ---

func (s *Store) CreateBidPackage(pkg *model.BidPackage) error {
	return s.db.Create(pkg).Error
}

func (s *Store) ListBidPackages() ([]model.BidPackage, error) {
	var pkgs []model.BidPackage
	err := s.db.Order("id").Find(&pkgs).Error
	return pkgs, err
}

func (s *Store) GetBidPackage(id uint) (*model.BidPackage, error) {
	var pkg model.BidPackage
	if err := s.db.First(&pkg, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &pkg, nil
}

func (s *Store) UpdateBidPackage(pkg *model.BidPackage) error {
	return s.db.Save(pkg).Error
}

// DeleteBidPackage removes a package and every contractor, file and result
// under it in one transaction. Remote store cleanup happens before this in
// the handler; losing a remote store is preferable to orphaned rows.
func (s *Store) DeleteBidPackage(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var contractors []model.Contractor
		if err := tx.Where("bid_package_id = ?", id).Find(&contractors).Error; err != nil {
			return err
		}
		for _, c := range contractors {
			if err := deleteContractorTx(tx, c.ID); err != nil {
				return err
			}
		}
		return tx.Delete(&model.BidPackage{}, id).Error
	})
}

// --- contractors ---

func (s *Store) CreateContractor(c *model.Contractor) error {
	return s.db.Create(c).Error
}

func (s *Store) GetContractor(id uint) (*model.Contractor, error) {
	var c model.Contractor
	if err := s.db.First(&c, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &c, nil
}

func (s *Store) ListContractors(bidPackageID uint) ([]model.Contractor, error) {
	var contractors []model.Contractor
	err := s.db.Where("bid_package_id = ?", bidPackageID).Order("id").Find(&contractors).Error
	return contractors, err
}

func (s *Store) UpdateContractor(c *model.Contractor) error {
	return s.db.Save(c).Error
}

// SetContractorStore records the retrieval store reference. Called only
// after store creation succeeded, so a contractor is never half-linked.
func (s *Store) SetContractorStore(id uint, storeName string) error {
	return s.db.Model(&model.Contractor{}).Where("id = ?", id).
		Update("store_name", storeName).Error
}

// DeleteContractor removes a contractor with its files and results.
func (s *Store) DeleteContractor(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		return deleteContractorTx(tx, id)
	})
}

func deleteContractorTx(tx *gorm.DB, id uint) error {
	if err := tx.Where("contractor_id = ?", id).Delete(&model.ContractorFile{}).Error; err != nil {
		return err
	}
	if err := tx.Where("contractor_id = ?", id).Delete(&model.EvaluationResult{}).Error; err != nil {
		return err
	}
	return tx.Delete(&model.Contractor{}, id).Error
}

// --- contractor files ---

func (s *Store) CreateContractorFile(f *model.ContractorFile) error {
	return s.db.Create(f).Error
}

// MarkFileIndexed flips IsIndexed to true and records the remote resource.
// The flag never transitions back.
func (s *Store) MarkFileIndexed(id uint, remoteName, remoteURI string) error {
	return s.db.Model(&model.ContractorFile{}).Where("id = ?", id).
		Updates(map[string]any{
			"is_indexed":       true,
			"remote_file_name": remoteName,
			"remote_file_uri":  remoteURI,
		}).Error
}

func (s *Store) ListContractorFiles(contractorID uint) ([]model.ContractorFile, error) {
	var files []model.ContractorFile
	err := s.db.Where("contractor_id = ?", contractorID).Order("id").Find(&files).Error
	return files, err
}

// --- criteria sets ---

func (s *Store) CreateCriteriaSet(cs *model.CriteriaSet) error {
	return s.db.Create(cs).Error
}

func (s *Store) ListCriteriaSets() ([]model.CriteriaSet, error) {
	var sets []model.CriteriaSet
	err := s.db.Order("id").Find(&sets).Error
	return sets, err
}

func (s *Store) GetCriteriaSet(id uint) (*model.CriteriaSet, error) {
	var cs model.CriteriaSet
	if err := s.db.First(&cs, id).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &cs, nil
}

func (s *Store) UpdateCriteriaSet(cs *model.CriteriaSet) error {
	return s.db.Save(cs).Error
}

func (s *Store) DeleteCriteriaSet(id uint) error {
	return s.db.Delete(&model.CriteriaSet{}, id).Error
}

// --- evaluation results ---

// CreateEvaluationResults appends a batch of scored results. Results are
// immutable once written.
func (s *Store) CreateEvaluationResults(results []model.EvaluationResult) error {
	if len(results) == 0 {
		return nil
	}
	return s.db.Create(&results).Error
}

// ListEvaluationResults returns a contractor's history in insertion order.
func (s *Store) ListEvaluationResults(contractorID uint) ([]model.EvaluationResult, error) {
	var results []model.EvaluationResult
	err := s.db.Where("contractor_id = ?", contractorID).Order("id").Find(&results).Error
	return results, err
}
