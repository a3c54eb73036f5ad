package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// ResumeKey builds the storage key for an uploaded resume:
// resumes/{year}/{sanitizedName}-{timestamp}.{ext}. The key format is a
// convention only; consumers must treat keys as opaque.
func ResumeKey(originalFilename, applicantName string) string {
	name := strings.ToLower(applicantName)
	name = nonAlnum.ReplaceAllString(name, "-")
	name = strings.Trim(name, "-")

	ext := "pdf"
	if e := strings.TrimPrefix(path.Ext(originalFilename), "."); e != "" {
		ext = strings.ToLower(e)
	}

	now := time.Now()
	return fmt.Sprintf("resumes/%d/%s-%d.%s", now.Year(), name, now.UnixMilli(), ext)
}

// AllowedResumeExt reports whether the upload extension is accepted.
func AllowedResumeExt(filename string) bool {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(filename), ".")) {
	case "pdf", "doc", "docx", "txt":
		return true
	}
	return false
}

// ContentTypeForKey maps a stored key's extension back to a content type for
// download responses.
func ContentTypeForKey(key string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(key), ".")) {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "txt":
		return "text/plain"
	}
	return "application/octet-stream"
}
