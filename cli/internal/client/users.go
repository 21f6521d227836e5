package client

import (
	"context"
	"net/http"
	"net/url"
)

// The account administration endpoints answer 403 unless the token carries
// the admin role.

func (c *Client) ListUsers(ctx context.Context, page, limit int) (*UserList, error) {
	var list UserList
	if err := c.do(ctx, http.MethodGet, "/api/v1/users", pageQuery(page, limit), nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// UpdateUser changes another account. Nil arguments are omitted.
func (c *Client) UpdateUser(ctx context.Context, id string, name, email, role *string) (*User, error) {
	body := map[string]string{}
	if name != nil {
		body["name"] = *name
	}
	if email != nil {
		body["email"] = *email
	}
	if role != nil {
		body["role"] = *role
	}

	var u User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/"+url.PathEscape(id), nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/users/"+url.PathEscape(id), nil, nil, nil)
}
