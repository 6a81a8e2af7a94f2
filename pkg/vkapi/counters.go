package vkapi

import (
	"context"
	"fmt"
	"strconv"
)

// Counter lookup methods.
const (
	MethodFriendsGet            = "friends.get"
	MethodUsersGetFollowers     = "users.getFollowers"
	MethodUsersGetSubscriptions = "users.getSubscriptions"
	MethodGroupsGet             = "groups.get"
	MethodWallGet               = "wall.get"
)

type countResponse struct {
	Count *int `json:"count"`
}

// subscriptionsResponse accepts both the split {"users":{"count"}} shape and
// the flat {"count"} shape.
type subscriptionsResponse struct {
	Users *countResponse `json:"users"`
	Count *int           `json:"count"`
}

// FriendsCount returns the number of friends of the user.
func (c *Client) FriendsCount(ctx context.Context, userID int64) (int, error) {
	return c.count(ctx, MethodFriendsGet, map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
		"count":   "0",
		"offset":  "0",
	})
}

// FollowersCount returns the number of followers of the user.
func (c *Client) FollowersCount(ctx context.Context, userID int64) (int, error) {
	return c.count(ctx, MethodUsersGetFollowers, map[string]string{
		"user_id": strconv.FormatInt(userID, 10),
		"count":   "0",
		"offset":  "0",
	})
}

// SubscriptionsCount returns the number of users the user is subscribed to.
func (c *Client) SubscriptionsCount(ctx context.Context, userID int64) (int, error) {
	params := map[string]string{
		"user_id":  strconv.FormatInt(userID, 10),
		"count":    "0",
		"extended": "0",
	}

	var resp subscriptionsResponse
	if err := c.call(ctx, MethodUsersGetSubscriptions, params, c.config.AuxiliaryTimeout, &resp); err != nil {
		return 0, err
	}

	switch {
	case resp.Users != nil && resp.Users.Count != nil:
		return *resp.Users.Count, nil
	case resp.Count != nil:
		return *resp.Count, nil
	default:
		return 0, fmt.Errorf("%s: %w: no count", MethodUsersGetSubscriptions, ErrMalformedResponse)
	}
}

// GroupsCount returns the number of communities the user belongs to.
func (c *Client) GroupsCount(ctx context.Context, userID int64) (int, error) {
	return c.count(ctx, MethodGroupsGet, map[string]string{
		"user_id":  strconv.FormatInt(userID, 10),
		"count":    "0",
		"extended": "0",
	})
}

// WallCount returns the number of posts on the user's wall.
func (c *Client) WallCount(ctx context.Context, ownerID int64) (int, error) {
	return c.count(ctx, MethodWallGet, map[string]string{
		"owner_id": strconv.FormatInt(ownerID, 10),
		"count":    "0",
	})
}

func (c *Client) count(ctx context.Context, method string, params map[string]string) (int, error) {
	var resp countResponse
	if err := c.call(ctx, method, params, c.config.AuxiliaryTimeout, &resp); err != nil {
		return 0, err
	}
	if resp.Count == nil {
		return 0, fmt.Errorf("%s: %w: no count", method, ErrMalformedResponse)
	}
	return *resp.Count, nil
}
