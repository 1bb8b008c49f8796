// Package naming implements the output file naming contract:
// {slug(title)}_{first-8-chars(timeline id)}.mp4 under a per-title
// directory.
package naming

import (
	"fmt"
	"path/filepath"

	"github.com/gosimple/slug"
)

// OutputPath returns the full output path for a render under root.
func OutputPath(root, title, timelineID string) string {
	s := slug.Make(title)
	if s == "" {
		s = "video"
	}
	return filepath.Join(root, s, fmt.Sprintf("%s_%s.mp4", s, shortID(timelineID)))
}

// shortID keeps the first 8 characters of the timeline id.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
