// Copyright (c) 2026 Wasteland Blues. All rights reserved.

package sec

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashCode hashes a plain-text admin code using the bcrypt algorithm.
//
// The map state row stores only this hash, so a database dump does not leak
// the shared secret.
func HashCode(plainTextCode string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextCode), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash admin code: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckCodeHash compares a plain-text admin code with its hashed version.
func CheckCodeHash(plainTextCode, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextCode))
	return err == nil
}
