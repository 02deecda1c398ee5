package repository

import "errors"

// ErrDuplicate is returned when a unique index rejects a write. It relies on
// gorm.Config.TranslateError being enabled.
var ErrDuplicate = errors.New("duplicate record")
