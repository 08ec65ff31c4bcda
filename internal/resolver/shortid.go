// Package resolver turns short run-ID prefixes into full run IDs.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/echoplan/internal/store"
	"github.com/google/uuid"
)

// MinShortIDLength is the shortest prefix accepted for a run ID.
const MinShortIDLength = 6

// maxListed caps the matches printed for an ambiguous prefix.
const maxListed = 10

// ResolveRunID returns the full ID of the one run whose ID starts with shortID.
// A full UUID is checked for existence and returned as-is.
func ResolveRunID(ctx context.Context, s store.Store, shortID string) (string, error) {
	shortID = strings.ToLower(strings.TrimSpace(shortID))

	if _, err := uuid.Parse(shortID); err == nil && len(shortID) == 36 {
		if _, err := s.GetRun(ctx, shortID); err != nil {
			if store.IsNotFound(err) {
				return "", &NotFoundError{ShortID: shortID}
			}
			return "", fmt.Errorf("failed to verify run existence: %w", err)
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	ids, err := s.RunIDs(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to search for run: %w", err)
	}
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(id, shortID) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no run matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no runs found matching '%s'", e.ShortID)
}

// AmbiguousError indicates several runs matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d runs", e.ShortID, len(e.Matches))
}

// Describe lists the matching run IDs, up to ten, for display.
func (e *AmbiguousError) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short ID '%s' matches %d runs:\n", e.ShortID, len(e.Matches))
	for i, id := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s\n", id)
	}
	return b.String()
}
