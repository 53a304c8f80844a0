package validation

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/username/nanopos/src/logger"
)

// MaxCatalogueFileSize bounds catalogue imports.
const MaxCatalogueFileSize = 5 << 20

var allowedExtensions = map[string]bool{
	".csv": true,
	".txt": true,
}

// ValidateCSVFile checks that path is a regular, reasonably sized file whose
// content looks like text.
func ValidateCSVFile(path string) error {
	if !allowedExtensions[strings.ToLower(filepath.Ext(path))] {
		return fmt.Errorf("file %q does not have a .csv extension", filepath.Base(path))
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat %q: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%q is not a regular file", path)
	}
	if info.Size() > MaxCatalogueFileSize {
		return fmt.Errorf("%q is %d bytes, the limit is %d", path, info.Size(), MaxCatalogueFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot open %q: %w", path, err)
	}
	defer f.Close()
	_, err = ValidateFileContentByMagicBytes(f)
	return err
}

// ValidateFileContentByMagicBytes checks the file signature and rewinds file.
// It returns the detected content type.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detectedContentType := http.DetectContentType(buffer[:n])
	detectedContentType = strings.ToLower(strings.Split(detectedContentType, ";")[0])

	// strict CSV parsing later rejects octet-stream that is not text
	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true,
	}
	if !allowedDetectedTypes[detectedContentType] {
		logger.L.Warn("Disallowed detected file content type (magic bytes)", "detectedContentType", detectedContentType)
		return detectedContentType, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detectedContentType)
	}

	logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", detectedContentType)
	return detectedContentType, nil
}
