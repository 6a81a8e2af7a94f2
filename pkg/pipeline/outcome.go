package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sternrassler/vk-watch/pkg/vkapi"
)

// Lookup names one auxiliary counter lookup.
type Lookup string

// Auxiliary lookups in the order they are issued for every entry.
const (
	LookupFriends       Lookup = "friends"
	LookupFollowers     Lookup = "followers"
	LookupSubscriptions Lookup = "subscriptions"
	LookupGroups        Lookup = "groups"
	LookupWall          Lookup = "wall"
)

// Outcome is the closed set of results of one auxiliary lookup:
// Success, AccessDenied, Transient or Unexpected.
type Outcome interface {
	// Kind is the metric/log label of the outcome.
	Kind() string
	outcome()
}

// Success carries the captured counter.
type Success struct {
	Count int
}

// AccessDenied means the target restricted visibility of the counter.
type AccessDenied struct {
	Code    int
	Message string
}

// Transient means the call timed out, failed in transport, or was skipped
// because the method's quota is exhausted.
type Transient struct {
	Err error
}

// Unexpected covers every other remote error code and malformed responses.
type Unexpected struct {
	Code    int
	Message string
}

func (Success) Kind() string      { return "success" }
func (AccessDenied) Kind() string { return "access_denied" }
func (Transient) Kind() string    { return "transient" }
func (Unexpected) Kind() string   { return "unexpected" }

func (Success) outcome()      {}
func (AccessDenied) outcome() {}
func (Transient) outcome()    {}
func (Unexpected) outcome()   {}

// Classify turns a lookup's return values into an Outcome.
func Classify(count int, err error) Outcome {
	if err == nil {
		return Success{Count: count}
	}

	var apiErr *vkapi.APIError
	hasAPIErr := errors.As(err, &apiErr)

	switch vkapi.Classify(err) {
	case vkapi.ErrorClassAccessDenied:
		return AccessDenied{Code: apiErr.Code, Message: apiErr.Message}
	case vkapi.ErrorClassUnexpected:
		if hasAPIErr {
			return Unexpected{Code: apiErr.Code, Message: apiErr.Message}
		}
		return Unexpected{Message: err.Error()}
	default:
		return Transient{Err: err}
	}
}

// counterFunc is the shape shared by every auxiliary lookup.
type counterFunc func(ctx context.Context, platformID int64) (int, error)

// runLookup executes fn and classifies the result. A panic inside fn is
// converted into an Unexpected outcome so it never escapes the lookup.
func runLookup(ctx context.Context, fn counterFunc, platformID int64) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Unexpected{Message: fmt.Sprintf("panic: %v", r)}
		}
	}()
	return Classify(fn(ctx, platformID))
}
