package ports

import "context"

// CRMProperty is a property definition on the target CRM
type CRMProperty struct {
	Name           string `json:"name"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	FieldType      string `json:"fieldType"`
	GroupName      string `json:"groupName"`
	HubspotDefined bool   `json:"hubspotDefined"`
}

// HubSpotClient defines the target platform operations used by the sync engine.
// Objects are CRM object type names such as "contacts" or "deals".
type HubSpotClient interface {
	// Records
	FindByKey(ctx context.Context, token string, object string, key string, value string) (string, error)
	Create(ctx context.Context, token string, object string, props map[string]string) (string, error)
	Update(ctx context.Context, token string, object string, id string, props map[string]string) error

	// Associations
	ListAssociations(ctx context.Context, token string, fromObject string, fromID string, toObject string) ([]string, error)
	ArchiveAssociations(ctx context.Context, token string, fromObject string, fromID string, toObject string, toIDs []string) error
	CreateAssociation(ctx context.Context, token string, fromObject string, fromID string, toObject string, toID string, assocType string) error
	AssociateLineItem(ctx context.Context, token string, lineItemID string, dealID string) error
	CreateNote(ctx context.Context, token string, contactID string, body string) error
	HasNote(ctx context.Context, token string, contactID string, body string) (bool, error)

	// Properties
	ListProperties(ctx context.Context, token string, object string) ([]CRMProperty, error)
	CreateProperty(ctx context.Context, token string, object string, prop CRMProperty) error

	// Auth
	ValidateToken(ctx context.Context, token string) error
}
