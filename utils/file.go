package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Local disk fallback for evidence when R2 is not configured (dev setups).

const localEvidenceDir = "evidence_uploads"

// SaveEvidenceLocally writes the uploaded file under evidence_uploads/ and
// returns the relative path to serve it from.
func SaveEvidenceLocally(fileHeader *multipart.FileHeader, key string) (string, error) {
	destPath := filepath.Join(localEvidenceDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return "/" + filepath.ToSlash(destPath), nil
}
