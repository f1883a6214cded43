package domain

import (
	"encoding/hex"

	"github.com/google/uuid"

	"campus-market/internal/errors"
)

const (
	userIDPrefix        = "U"
	productIDPrefix     = "P"
	transactionIDPrefix = "T"

	idHexLen = 32
)

// Identifiers are a one letter prefix followed by the hex encoding of a random
// UUIDv4, which gives 122 random bits in a fixed width of 33 characters.
func newID(prefix string) string {
	id := uuid.New()
	return prefix + hex.EncodeToString(id[:])
}

func NewUserID() string        { return newID(userIDPrefix) }
func NewProductID() string     { return newID(productIDPrefix) }
func NewTransactionID() string { return newID(transactionIDPrefix) }

func validID(prefix, id string) bool {
	if len(id) != len(prefix)+idHexLen || id[:len(prefix)] != prefix {
		return false
	}
	for _, c := range id[len(prefix):] {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

func ValidateUserID(id string) error {
	if !validID(userIDPrefix, id) {
		return errors.ErrInvalidID.WithDetails("user_id")
	}
	return nil
}

func ValidateProductID(id string) error {
	if !validID(productIDPrefix, id) {
		return errors.ErrInvalidID.WithDetails("product_id")
	}
	return nil
}

func ValidateTransactionID(id string) error {
	if !validID(transactionIDPrefix, id) {
		return errors.ErrInvalidID.WithDetails("transaction_id")
	}
	return nil
}
