package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// nextDocumentNumber allocates the next sequential number for the given
// prefix and table, format <PREFIX>-<year>-<zero-padded sequence>.
// Quotes use DEV, invoices use FAC. Callers must hold the matching
// allocation mutex; the unique index on the number column catches any
// duplicate that slips through.
func nextDocumentNumber(tx *gorm.DB, table, prefix string, now time.Time) (string, error) {
	yearPrefix := fmt.Sprintf("%s-%d-", prefix, now.Year())

	// Longest number first: the suffix is zero padded to three digits, so
	// plain string order would rank 999 above 1000 once a year passes a
	// thousand documents
	var last string
	err := tx.Table(table).
		Where("number LIKE ?", yearPrefix+"%").
		Order("length(number) DESC, number DESC").
		Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}

	seq := 1
	if last != "" {
		parts := strings.Split(last, "-")
		n, convErr := strconv.Atoi(parts[len(parts)-1])
		if convErr != nil {
			return "", fmt.Errorf("malformed document number %q: %w", last, convErr)
		}
		seq = n + 1
	}

	return fmt.Sprintf("%s%03d", yearPrefix, seq), nil
}
