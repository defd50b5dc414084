package domain

import "time"

// Field is one custom property discovered on a platform for a Connect and module.
// MappingField is either empty or the ID of a Field whose MappingField points back.
type Field struct {
	ID           string     `json:"id"`
	AppID        string     `json:"appId"`
	ConnectID    string     `json:"connectId"`
	UserID       string     `json:"userId"`
	ModuleType   ModuleType `json:"moduleType"`
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	Description  string     `json:"description"`
	Type         string     `json:"type"`
	IsUsed       bool       `json:"isUsed"`
	MappingField string     `json:"mappingField,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CatalogField is a custom field as currently reported by a platform
type CatalogField struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// ModuleApp is the known custom field inventory of one App for one module
type ModuleApp struct {
	ID          string     `json:"id"`
	AppID       string     `json:"appId"`
	DisplayName string     `json:"displayName"`
	Type        ModuleType `json:"type"`
	Platform    Platform   `json:"platform"`
	FieldIDs    []string   `json:"fields"`
}

// Metafield is a custom field value read from the source platform for one record
type Metafield struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
