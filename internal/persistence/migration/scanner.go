package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var fileNamePattern = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_-]+)\.sql$`)

// Scan reads every migration file in dir of fsys, ordered by version.
func Scan(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, &MigrationError{FileName: dir, Operation: "read directory", Err: err}
	}

	var migrations []Migration
	seen := make(map[int]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, description, err := ParseFileName(entry.Name())
		if err != nil {
			return nil, &MigrationError{FileName: entry.Name(), Operation: "validate filename", Err: err}
		}
		if existing, dup := seen[version]; dup {
			return nil, &MigrationError{
				Version:   version,
				FileName:  entry.Name(),
				Operation: "check duplicates",
				Err:       fmt.Errorf("%w: also defined by %s", ErrDuplicateVersion, existing),
			}
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, &MigrationError{Version: version, FileName: entry.Name(), Operation: "read file", Err: err}
		}
		body := strings.TrimSpace(string(content))
		if body == "" {
			return nil, &MigrationError{
				Version:   version,
				FileName:  entry.Name(),
				Operation: "read file",
				Err:       fmt.Errorf("%w: file is empty", ErrInvalidMigrationFile),
			}
		}

		sum := sha256.Sum256(content)
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(description, "_", " "),
			SQL:         body,
			FileName:    entry.Name(),
			Checksum:    hex.EncodeToString(sum[:]),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// ParseFileName splits {version}_{description}.sql into its parts.
func ParseFileName(name string) (int, string, error) {
	matches := fileNamePattern.FindStringSubmatch(name)
	if len(matches) != 3 {
		return 0, "", fmt.Errorf("%w: %q does not match {version}_{description}.sql", ErrInvalidMigrationFile, name)
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil || version <= 0 {
		return 0, "", fmt.Errorf("%w: version in %q must be a positive number", ErrInvalidMigrationFile, name)
	}
	return version, matches[2], nil
}
