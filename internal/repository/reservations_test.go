package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: uniqueViolation, Constraint: "table_reservations_reservation_code_key"})

	assert.True(t, isUniqueViolation(err, ""))
	assert.True(t, isUniqueViolation(err, "table_reservations_reservation_code_key"))
	assert.False(t, isUniqueViolation(err, "table_reservation_payments_payment_id_key"))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}, ""))
	assert.False(t, isUniqueViolation(errors.New("boom"), ""))
	assert.False(t, isUniqueViolation(nil, ""))
}
