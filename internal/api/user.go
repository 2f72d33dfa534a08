package api

import (
	"context"
	"fmt"

	"github.com/achi777/cryptoTrade/internal/model"
)

// GetProfile fetches the current user's profile.
func (c *Client) GetProfile(ctx context.Context) (*model.Profile, error) {
	var resp profileResponse
	if err := c.get(ctx, "/user/profile", nil, &resp); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &resp.User, nil
}

// UpdateProfile updates profile fields and returns the new profile.
func (c *Client) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*model.Profile, error) {
	var resp profileResponse
	if err := c.put(ctx, "/user/profile", req, &resp); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &resp.User, nil
}
