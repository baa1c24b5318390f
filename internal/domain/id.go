package domain

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IDLength is the length of every persisted identifier: a hex-encoded 12-byte ObjectID.
const IDLength = 24

// NewID returns a fresh 24-character lowercase hex identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// ParseID normalises and validates an identifier received from a client.
func ParseID(raw string) (string, error) {
	id := strings.ToLower(strings.TrimSpace(raw))
	if len(id) != IDLength {
		return "", fmt.Errorf("%w: id must be a %d-character hex string", ErrValidation, IDLength)
	}
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return "", fmt.Errorf("%w: id must be a %d-character hex string", ErrValidation, IDLength)
	}
	return id, nil
}
