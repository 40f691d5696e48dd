package construct

import (
	"errors"
	"fmt"
)

func joinErrs(errs ...error) error {
	return errors.Join(errs...)
}

func wrap(err error) error {
	return fmt.Errorf("wrapped: %w", err)
}
