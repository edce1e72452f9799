package services

import (
	"context"
	"errors"
	"time"

	"futeba-gamification-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// XpStoreTx is the view of the store available inside an atomic unit of work.
type XpStoreTx interface {
	FindTransaction(transactionID string) (*models.XpTransaction, error)
	CreateTransaction(txn *models.XpTransaction) error
	CreateTransactions(txns []*models.XpTransaction) error
	GetProgressForUpdate(userID string) (*models.UserProgress, error)
	SaveProgress(prog *models.UserProgress) error
}

// XpStore persists XP transactions and user progress.
type XpStore interface {
	FindTransaction(transactionID string) (*models.XpTransaction, error)
	FindTransactionIDs(transactionIDs []string) ([]string, error)
	GetProgress(userID string) (*models.UserProgress, error)
	InTransaction(ctx context.Context, fn func(tx XpStoreTx) error) error
}

// BucketStoreTx is the view of the bucket store inside one atomic check.
type BucketStoreTx interface {
	GetBucketForUpdate(key string) (*models.RateLimitBucket, error)
	SaveBucket(bucket *models.RateLimitBucket) error
}

// BucketStore persists sliding-window rate limit buckets. The check's
// read-filter-append-write must run through InTransaction so racing requests
// serialize on the bucket row instead of both admitting against the same
// snapshot.
type BucketStore interface {
	GetBucket(key string) (*models.RateLimitBucket, error)
	InTransaction(fn func(tx BucketStoreTx) error) error
	DeleteBucket(key string) error
	DeleteExpiredBuckets(now time.Time) (int64, error)
}

// DeadLetterSink records operations that exhausted their retries.
type DeadLetterSink interface {
	Record(entry *models.DeadLetterEntry) error
}

// GormXpStore is the production XpStore over Postgres.
type GormXpStore struct {
	DB *gorm.DB
}

func NewGormXpStore(db *gorm.DB) *GormXpStore {
	return &GormXpStore{DB: db}
}

func (s *GormXpStore) FindTransaction(transactionID string) (*models.XpTransaction, error) {
	return findTransaction(s.DB, transactionID)
}

// FindTransactionIDs returns which of the given IDs already exist. Lookups run
// in chunks of 10 so a huge batch never produces an unbounded IN clause.
func (s *GormXpStore) FindTransactionIDs(transactionIDs []string) ([]string, error) {
	const chunkSize = 10
	existing := make([]string, 0, len(transactionIDs))
	for start := 0; start < len(transactionIDs); start += chunkSize {
		end := start + chunkSize
		if end > len(transactionIDs) {
			end = len(transactionIDs)
		}
		var ids []string
		err := s.DB.Model(&models.XpTransaction{}).
			Where("transaction_id IN ?", transactionIDs[start:end]).
			Pluck("transaction_id", &ids).Error
		if err != nil {
			return nil, err
		}
		existing = append(existing, ids...)
	}
	return existing, nil
}

func (s *GormXpStore) GetProgress(userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, err
	}
	return &prog, nil
}

func (s *GormXpStore) InTransaction(ctx context.Context, fn func(tx XpStoreTx) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormXpStoreTx{db: tx})
	})
}

type gormXpStoreTx struct {
	db *gorm.DB
}

func (t *gormXpStoreTx) FindTransaction(transactionID string) (*models.XpTransaction, error) {
	return findTransaction(t.db, transactionID)
}

func (t *gormXpStoreTx) CreateTransaction(txn *models.XpTransaction) error {
	return t.db.Create(txn).Error
}

func (t *gormXpStoreTx) CreateTransactions(txns []*models.XpTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	return t.db.Create(txns).Error
}

// GetProgressForUpdate loads progress with a row lock. Creates the row if the
// user has never earned XP before.
func (t *gormXpStoreTx) GetProgressForUpdate(userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.NewUserProgress(userID)
		if err := t.db.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

func (t *gormXpStoreTx) SaveProgress(prog *models.UserProgress) error {
	return t.db.Save(prog).Error
}

func findTransaction(db *gorm.DB, transactionID string) (*models.XpTransaction, error) {
	var txn models.XpTransaction
	err := db.Where("transaction_id = ?", transactionID).First(&txn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// GormBucketStore is the production BucketStore over Postgres.
type GormBucketStore struct {
	DB *gorm.DB
}

func NewGormBucketStore(db *gorm.DB) *GormBucketStore {
	return &GormBucketStore{DB: db}
}

func (s *GormBucketStore) GetBucket(key string) (*models.RateLimitBucket, error) {
	var bucket models.RateLimitBucket
	err := s.DB.Where("key = ?", key).First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (s *GormBucketStore) InTransaction(fn func(tx BucketStoreTx) error) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return fn(&gormBucketStoreTx{db: tx})
	})
}

type gormBucketStoreTx struct {
	db *gorm.DB
}

// GetBucketForUpdate loads a bucket with a row lock so concurrent checks for
// the same key serialize. A missing bucket returns nil; the first write for a
// brand-new key resolves through the upsert in SaveBucket.
func (t *gormBucketStoreTx) GetBucketForUpdate(key string) (*models.RateLimitBucket, error) {
	var bucket models.RateLimitBucket
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("key = ?", key).First(&bucket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bucket, nil
}

func (t *gormBucketStoreTx) SaveBucket(bucket *models.RateLimitBucket) error {
	return t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		UpdateAll: true,
	}).Create(bucket).Error
}

func (s *GormBucketStore) DeleteBucket(key string) error {
	return s.DB.Where("key = ?", key).Delete(&models.RateLimitBucket{}).Error
}

func (s *GormBucketStore) DeleteExpiredBuckets(now time.Time) (int64, error) {
	res := s.DB.Where("expires_at <= ?", now).Delete(&models.RateLimitBucket{})
	return res.RowsAffected, res.Error
}

// GormDeadLetterSink stores dead letters in Postgres.
type GormDeadLetterSink struct {
	DB *gorm.DB
}

func NewGormDeadLetterSink(db *gorm.DB) *GormDeadLetterSink {
	return &GormDeadLetterSink{DB: db}
}

func (s *GormDeadLetterSink) Record(entry *models.DeadLetterEntry) error {
	return s.DB.Create(entry).Error
}
