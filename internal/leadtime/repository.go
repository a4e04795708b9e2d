package leadtime

import (
	"context"
	"time"
)

// Repository is the read-only view of version control the analysis needs.
// Implementations live in internal/gitcli, internal/gogit and internal/github.
type Repository interface {
	// Commits returns history in source order (newest first). The window is a
	// hint; implementations may return commits outside it.
	Commits(ctx context.Context, window Window) ([]Commit, error)

	// TagsContaining lists every tag whose target has sha as an ancestor (or is sha)
	TagsContaining(ctx context.Context, sha string) ([]string, error)

	// TagTime returns the author time of the commit a tag points at
	TagTime(ctx context.Context, tag string) (time.Time, error)
}
