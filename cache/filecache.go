package cache

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	fileSuffix = ".json"
	keySuffix  = ".key"
	hashPrefix = "hash_"
)

// FileBackend stores one JSON file per key in a directory.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir. If dir is empty the
// default ~/.pitwall_cache directory is used.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		usr, err := user.Current()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(usr.HomeDir, ".pitwall_cache")
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory entries are written to.
func (fb *FileBackend) Dir() string {
	return fb.dir
}

// Get implements Backend
func (fb *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(fb.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Backend. A hashed entry is accompanied by a .key file
// holding its original key.
func (fb *FileBackend) Set(_ context.Context, key string, value []byte) error {
	name := sanitizeKey(key)
	if strings.HasPrefix(name, hashPrefix) {
		if err := writeAtomic(filepath.Join(fb.dir, name+keySuffix), []byte(key)); err != nil {
			return err
		}
	}
	return writeAtomic(filepath.Join(fb.dir, name+fileSuffix), value)
}

// writeAtomic writes to a temporary file first, then renames it over path.
func writeAtomic(path string, data []byte) error {
	tmpPath := path + fmt.Sprintf(".tmp.%d", rand.Int())
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// Remove implements Backend
func (fb *FileBackend) Remove(_ context.Context, key string) error {
	name := sanitizeKey(key)
	err := os.Remove(filepath.Join(fb.dir, name+fileSuffix))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if strings.HasPrefix(name, hashPrefix) {
		err = os.Remove(filepath.Join(fb.dir, name+keySuffix))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// Keys implements Backend. Hashed entries are reported under the key stored
// next to them; a hashed entry without one is skipped.
func (fb *FileBackend) Keys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fb.dir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		base := strings.TrimSuffix(name, fileSuffix)
		if !strings.HasPrefix(base, hashPrefix) {
			keys = append(keys, unsanitizeKey(base))
			continue
		}
		key, err := os.ReadFile(filepath.Join(fb.dir, base+keySuffix))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		keys = append(keys, string(key))
	}
	return keys, nil
}

// path generates the full filesystem path for a cache key
func (fb *FileBackend) path(key string) string {
	return filepath.Join(fb.dir, sanitizeKey(key)+fileSuffix)
}

// sanitizeKey ensures the key is safe for use as a filename
func sanitizeKey(key string) string {
	// For very long keys, use hash to avoid filesystem limits
	if len(key) > 200 {
		hash := md5.Sum([]byte(key))
		return fmt.Sprintf("%s%x", hashPrefix, hash)
	}

	var b strings.Builder
	for _, r := range key {
		switch r {
		case '/', '\\', ':', '?', '&', '=', '#', '<', '>', '|', '*', '"', ' ', '%':
			fmt.Fprintf(&b, "%%%02X", r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// unsanitizeKey reverses the percent escapes written by sanitizeKey.
func unsanitizeKey(name string) string {
	if !strings.Contains(name, "%") {
		return name
	}
	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '%' && i+2 < len(name) {
			if v, err := strconv.ParseUint(name[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
