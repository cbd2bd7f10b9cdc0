package descriptor

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileName is the name of the descriptor file inside a generated package.
const FileName = "package.json"

var ErrNotFound = errors.New("descriptor not found")

// ReadFile reads and parses the descriptor at path.
// A missing file yields an error matching both ErrNotFound and fs.ErrNotExist.
func ReadFile(path string) (*Object, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if err != nil {
		return nil, fmt.Errorf("reading descriptor: %w", err)
	}
	obj, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return obj, nil
}

// WriteFile serializes obj and replaces the contents of path with it.
// The file mode of an existing file is kept. The write is not atomic.
func WriteFile(path string, obj *Object) error {
	data, err := Marshal(obj)
	if err != nil {
		return fmt.Errorf("serializing %s: %w", path, err)
	}
	perm := fs.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}
	return nil
}
