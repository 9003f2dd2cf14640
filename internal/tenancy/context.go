package tenancy

import "github.com/gatewarden/gatewarden/internal/models"

// Context holds the active account for one unit of work. Each request or
// operation owns its own instance; nothing in the engine reads ambient
// state, so sharing a Context across concurrent work is never necessary and
// never safe.
type Context struct {
	account *models.Account
}

// NewContext returns an empty tenant context.
func NewContext() *Context {
	return &Context{}
}

// SetAccount activates the given account for this unit of work.
func (c *Context) SetAccount(account *models.Account) {
	c.account = account
}

// Account returns the active account, or nil when operating globally.
func (c *Context) Account() *models.Account {
	if c == nil {
		return nil
	}
	return c.account
}

// AccountID returns the active account id, or nil when operating globally.
func (c *Context) AccountID() *uint {
	if c == nil || c.account == nil {
		return nil
	}
	id := c.account.ID
	return &id
}

// Clear deactivates the current account.
func (c *Context) Clear() {
	c.account = nil
}
