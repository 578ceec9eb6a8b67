package repository

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by every repository when a row does not exist
// (or exists in another tenant).
var ErrNotFound = errors.New("record not found")

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
