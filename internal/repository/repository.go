package repository

import "errors"

// ErrNotFound lo devuelven todos los repositorios cuando la entidad no existe.
var ErrNotFound = errors.New("not found")
