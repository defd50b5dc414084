package domain

import "time"

// Counter is the Connect document field counting migrated records of one module
type Counter string

const (
	CounterContacts Counter = "migratedContacts"
	CounterProducts Counter = "migratedProducts"
	CounterOrders   Counter = "migratedOrders"
)

// CounterFor maps a record module to the Connect counter it increments
func CounterFor(m ModuleType) (Counter, bool) {
	switch m {
	case ModuleCustomer:
		return CounterContacts, true
	case ModuleProduct:
		return CounterProducts, true
	case ModuleOrder:
		return CounterOrders, true
	}
	return "", false
}

// Connect is a directed sync pairing between two Apps owned by one user
type Connect struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	FromAppID        string    `json:"from"`
	ToAppID          string    `json:"to"`
	Name             string    `json:"name"`
	IsActive         bool      `json:"isActive"`
	IsSyncing        bool      `json:"isSyncing"`
	SyncMetafield    bool      `json:"syncMetafield"`
	MigratedContacts int       `json:"migratedContacts"`
	MigratedProducts int       `json:"migratedProducts"`
	MigratedOrders   int       `json:"migratedOrders"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Count returns the current value of a counter
func (c *Connect) Count(counter Counter) int {
	switch counter {
	case CounterContacts:
		return c.MigratedContacts
	case CounterProducts:
		return c.MigratedProducts
	case CounterOrders:
		return c.MigratedOrders
	}
	return 0
}

// Involves reports whether the Connect references the given App on either side
func (c *Connect) Involves(appID string) bool {
	return c.FromAppID == appID || c.ToAppID == appID
}

// Status projects the fields consumed by the live status stream
func (c *Connect) Status() *ConnectStatus {
	return &ConnectStatus{
		ConnectID:        c.ID,
		UserID:           c.UserID,
		IsActive:         c.IsActive,
		IsSyncing:        c.IsSyncing,
		MigratedContacts: c.MigratedContacts,
		MigratedProducts: c.MigratedProducts,
		MigratedOrders:   c.MigratedOrders,
		UpdatedAt:        c.UpdatedAt,
	}
}

// ConnectStatus is one migration progress snapshot pushed to subscribers
type ConnectStatus struct {
	ConnectID        string    `json:"connectId"`
	UserID           string    `json:"-"`
	IsActive         bool      `json:"isActive"`
	IsSyncing        bool      `json:"isSyncing"`
	MigratedContacts int       `json:"migratedContacts"`
	MigratedProducts int       `json:"migratedProducts"`
	MigratedOrders   int       `json:"migratedOrders"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
