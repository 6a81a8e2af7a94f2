package vkapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sternrassler/vk-watch/pkg/profile"
)

// MethodUsersGet is the bulk profile lookup method.
const MethodUsersGet = "users.get"

// MaxUsersPerCall stays under the platform's limit on identifiers per users.get call.
const MaxUsersPerCall = 95

// ProfileFields is the attribute set requested in one bulk lookup.
const ProfileFields = "online,photo_200,last_seen,city,bdate,relation,counters,domain"

// UsersGet fetches primary profiles for up to MaxUsersPerCall identifiers in
// one round trip. Identifiers the platform does not know are simply missing
// from the result.
func (c *Client) UsersGet(ctx context.Context, ids []int64) ([]profile.PrimaryProfile, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxUsersPerCall {
		return nil, fmt.Errorf("%s: %d ids exceeds limit of %d", MethodUsersGet, len(ids), MaxUsersPerCall)
	}

	params := map[string]string{
		"user_ids": joinIDs(ids),
		"fields":   ProfileFields,
	}

	var users []profile.PrimaryProfile
	if err := c.call(ctx, MethodUsersGet, params, c.config.PrimaryTimeout, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
