// Package store registers scan metadata and upload sessions, in Firestore for
// production runs or in a SQLite file for offline and dry runs.
package store

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rumor-ml/commons.systems/plantscan/internal/fields"
	"github.com/rumor-ml/commons.systems/plantscan/internal/pipeline"
)

const (
	scansCollectionBase    = "plantscan-scans"
	sessionsCollectionBase = "plantscan-sessions"
)

// ErrNotFound is returned when a scan or session does not exist
var ErrNotFound = errors.New("not found")

// MissingFieldsError is returned when a record lacks required fields at registration
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("record is missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Scan is a registered scan as stored
type Scan struct {
	ID        string
	Record    fields.Record
	Status    pipeline.Status
	ObjectKey string
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func checkRequired(record fields.Record) error {
	if missing := record.Missing(); len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}

var branchSanitizer = regexp.MustCompile(`[^a-z0-9-]`)

// collectionPrefix isolates preview deployments from production data.
//
//	PR_NUMBER=123            -> "pr_123_"
//	BRANCH_NAME=feature/auth -> "preview_feature-auth_"
//	BRANCH_NAME=main         -> ""
//	(no env vars)            -> ""
func collectionPrefix() string {
	if prNumber := os.Getenv("PR_NUMBER"); prNumber != "" {
		return fmt.Sprintf("pr_%s_", prNumber)
	}

	if branchName := os.Getenv("BRANCH_NAME"); branchName != "" && branchName != "main" {
		sanitized := branchSanitizer.ReplaceAllString(strings.ToLower(branchName), "-")
		if len(sanitized) > 50 {
			sanitized = sanitized[:50]
		}
		return fmt.Sprintf("preview_%s_", sanitized)
	}

	return ""
}

// CollectionName returns the prefixed name for a base collection or table
func CollectionName(base string) string {
	return collectionPrefix() + base
}
