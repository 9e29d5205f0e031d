package credentials

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"insightportal/internal/apperr"
	"insightportal/internal/models"
)

// maxImportLine bounds a single import line. A bcrypt hash is 60 bytes, so
// anything near this size is not a credential triple.
const maxImportLine = 4096

// SkippedLine records an import line that was not inserted.
type SkippedLine struct {
	Line     int    `json:"line"`
	Username string `json:"username,omitempty"`
	Reason   error  `json:"-"`
}

// ImportReport summarizes a bulk import.
type ImportReport struct {
	Inserted int           `json:"inserted"`
	Skipped  []SkippedLine `json:"skipped"`
}

// Duplicates counts skipped lines whose username already existed.
func (r *ImportReport) Duplicates() int {
	n := 0
	for _, s := range r.Skipped {
		if errors.Is(s.Reason, apperr.ErrDuplicateUser) {
			n++
		}
	}
	return n
}

// Import reads newline-delimited username,password_hash,role triples.
// Hashes must already be bcrypt output and are stored verbatim; they are never
// re-hashed. Malformed lines and existing usernames are skipped and reported.
// A storage failure stops the batch and is returned with the partial report.
func (s *Store) Import(ctx context.Context, r io.Reader) (*ImportReport, error) {
	report := &ImportReport{}
	reader := bufio.NewReader(r)
	lineNo := 0
	for {
		raw, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return report, apperr.Wrap(apperr.CodeMalformedInput, readErr, "read import")
		}
		if raw == "" && readErr != nil {
			break
		}
		lineNo++
		if err := s.importLine(ctx, report, lineNo, raw); err != nil {
			return report, err
		}
		if readErr != nil {
			break
		}
	}
	s.logger.Info("users imported", zap.Int("inserted", report.Inserted), zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// importLine handles one raw line. Only storage failures are returned; every
// other problem is recorded on the report.
func (s *Store) importLine(ctx context.Context, report *ImportReport, lineNo int, raw string) error {
	if len(raw) > maxImportLine {
		err := apperr.Newf(apperr.CodeMalformedInput, "line is %d bytes, limit is %d", len(raw), maxImportLine)
		report.skip(lineNo, "", err)
		s.logger.Warn("skip import line", zap.Int("line", lineNo), zap.Error(err))
		return nil
	}
	line := strings.TrimSpace(raw)
	if line == "" {
		return nil
	}
	username, hash, role, err := parseImportLine(line)
	if err != nil {
		report.skip(lineNo, username, err)
		s.logger.Warn("skip import line", zap.Int("line", lineNo), zap.Error(err))
		return nil
	}
	if _, err := s.insert(ctx, username, hash, role); err != nil {
		if errors.Is(err, apperr.ErrDuplicateUser) {
			report.skip(lineNo, username, err)
			s.logger.Info("skip existing user", zap.Int("line", lineNo), zap.String("username", username))
			return nil
		}
		return err
	}
	report.Inserted++
	return nil
}

// ImportFile runs Import over the file at path.
func (s *Store) ImportFile(ctx context.Context, path string) (*ImportReport, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.Wrap(apperr.CodeNotFound, err, "import file not found")
		}
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()
	return s.Import(ctx, f)
}

func (r *ImportReport) skip(line int, username string, reason error) {
	r.Skipped = append(r.Skipped, SkippedLine{Line: line, Username: username, Reason: reason})
}

func parseImportLine(line string) (string, string, models.Role, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return "", "", "", apperr.Newf(apperr.CodeMalformedInput, "expected 3 fields, got %d", len(parts))
	}
	username := normalizeUsername(parts[0])
	hash := strings.TrimSpace(parts[1])
	if username == "" || hash == "" {
		return username, "", "", apperr.New(apperr.CodeMalformedInput, "username and password_hash are required")
	}
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return username, "", "", apperr.Wrap(apperr.CodeMalformedInput, err, "password_hash is not a bcrypt hash")
	}
	role, ok := models.ParseRole(parts[2])
	if !ok {
		return username, "", "", apperr.Newf(apperr.CodeMalformedInput, "unknown role %q", strings.TrimSpace(parts[2]))
	}
	return username, hash, role, nil
}

type seedFile struct {
	Users []struct {
		Username string      `yaml:"username"`
		Password string      `yaml:"password"`
		Role     models.Role `yaml:"role"`
	} `yaml:"users"`
}

// SeedFile registers the plaintext users listed in a YAML file. Users that
// already exist are left untouched. It returns how many were created.
func (s *Store) SeedFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, apperr.Wrap(apperr.CodeNotFound, err, "seed file not found")
		}
		return 0, fmt.Errorf("read seed file: %w", err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return 0, apperr.Wrap(apperr.CodeMalformedInput, err, "decode seed file")
	}
	created := 0
	for _, u := range sf.Users {
		if u.Username == "" || u.Password == "" {
			continue
		}
		if _, err := s.Register(ctx, u.Username, u.Password, u.Role); err != nil {
			if errors.Is(err, apperr.ErrDuplicateUser) {
				continue
			}
			return created, fmt.Errorf("seed user %s: %w", u.Username, err)
		}
		created++
	}
	s.logger.Info("users seeded", zap.Int("created", created), zap.Int("listed", len(sf.Users)))
	return created, nil
}
