package relay

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lysyi3m/rss-relay/app/feed"
	"github.com/lysyi3m/rss-relay/app/format"
)

var (
	ErrFeedNotFound         = errors.New("feed does not exist")
	ErrFeedExists           = errors.New("feed name is already in use")
	ErrChannelMarker        = errors.New("channel must start with the channel marker")
	ErrNoTitleOrDescription = errors.New("feed items have neither title nor description")
	ErrInvalidFormat        = format.ErrInvalidFormat
	ErrUnreadableFeed       = feed.ErrUnreadable
)

// ValidationError collects every failed acceptance check of a feed.
type ValidationError struct {
	Feed     string
	Problems []error
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Problems))
	for _, problem := range e.Problems {
		messages = append(messages, problem.Error())
	}
	return fmt.Sprintf("feed %q rejected: %s", e.Feed, strings.Join(messages, "; "))
}

func (e *ValidationError) Unwrap() []error {
	return e.Problems
}
