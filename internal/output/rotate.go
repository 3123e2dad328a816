package output

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// MaxBackups bounds how many rotated copies Rotate keeps.
const MaxBackups = 9

// Rotate moves an existing file at path aside so a new run does not clobber
// the previous one: path.1 becomes path.2 and so on, then path becomes
// path.1. The oldest copy beyond MaxBackups is dropped. A missing path is
// not an error.
func Rotate(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return err
	}

	oldest := backupName(path, MaxBackups)
	if err := os.Remove(oldest); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to drop %s: %w", oldest, err)
	}
	for n := MaxBackups - 1; n >= 1; n-- {
		from := backupName(path, n)
		if err := os.Rename(from, backupName(path, n+1)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to rotate %s: %w", from, err)
		}
	}
	if err := os.Rename(path, backupName(path, 1)); err != nil {
		return fmt.Errorf("failed to rotate %s: %w", path, err)
	}
	return nil
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}
