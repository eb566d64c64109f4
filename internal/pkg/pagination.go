package pkg

import (
	"fmt"

	"gorm.io/gorm"
)

// Window returns a GORM scope that skips the first `first` rows and returns at
// most `max` rows. Both bounds must be non-negative.
func Window(first, max int) func(db *gorm.DB) *gorm.DB {
	if first < 0 || max < 0 {
		panic(fmt.Sprintf("pkg.Window: negative bounds first=%d max=%d", first, max))
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(first).Limit(max)
	}
}

// ByIdentity returns a GORM scope that orders rows by ascending primary key,
// which is the persistent order of every list query.
func ByIdentity(db *gorm.DB) *gorm.DB {
	return db.Order("id asc")
}
