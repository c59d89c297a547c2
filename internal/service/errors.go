package service

import (
	"errors"
	"fmt"

	"repairhub/internal/domain"
	"repairhub/internal/repository"
)

// storeError переводит ошибки хранилища в ошибки предметной области.
// StorageUnavailable и бизнес-ошибки проходят без изменений.
func storeError(err error, what, id string) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound(what, id)
	case errors.Is(err, repository.ErrConflict):
		return domain.Conflict("%s %s was modified concurrently", what, id)
	case errors.Is(err, repository.ErrDuplicate):
		return domain.Conflict("%s %s already exists", what, id)
	case errors.Is(err, repository.ErrTransient):
		return domain.StorageUnavailable(err)
	default:
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
}
