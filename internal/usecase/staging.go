package usecase

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/semmidev/zkbackup/internal/domain"
)

// Staging owns the local files snapshots are downloaded into before upload.
// Each invocation gets its own file so overlapping runs never share one.
type Staging struct {
	fs  afero.Fs
	dir string
}

func NewStaging(fs afero.Fs, dir string) *Staging {
	return &Staging{fs: fs, dir: dir}
}

func (s *Staging) Fs() afero.Fs {
	return s.fs
}

// ValidateInvocationID rejects IDs that cannot be used as part of a staging
// file name. An ID may not be empty, contain a path separator or contain "..".
func ValidateInvocationID(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return domain.E(domain.KindConfig, fmt.Sprintf("invalid invocation id %q", id), nil)
	}
	return nil
}

// Path returns the staging file for invocationID, which must pass
// ValidateInvocationID.
func (s *Staging) Path(invocationID string) string {
	return filepath.Join(s.dir, fmt.Sprintf("zookeeper-snapshot-%s.tgz", invocationID))
}

// Prepare makes sure the staging directory exists and returns the path for
// invocationID.
func (s *Staging) Prepare(invocationID string) (string, error) {
	if err := ValidateInvocationID(invocationID); err != nil {
		return "", err
	}
	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return "", domain.E(domain.KindLocalIO, "create staging dir", err)
	}
	return s.Path(invocationID), nil
}

func (s *Staging) Read(path string) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, domain.E(domain.KindLocalIO, "read staging file", err)
	}
	return data, nil
}

func (s *Staging) Remove(path string) error {
	if err := s.fs.Remove(path); err != nil {
		return domain.E(domain.KindLocalIO, "remove staging file", err)
	}
	return nil
}
