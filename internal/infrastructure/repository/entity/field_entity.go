package entity

import (
	"time"

	"shopify-hubspot-sync/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoFieldDoc represents a discovered custom field in MongoDB
type MongoFieldDoc struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty"`
	App          primitive.ObjectID  `bson:"app"`
	Connect      primitive.ObjectID  `bson:"connect"`
	UserID       string              `bson:"user"`
	ModuleType   string              `bson:"moduletype"`
	Name         string              `bson:"name"`
	Label        string              `bson:"label"`
	Description  string              `bson:"description"`
	Type         string              `bson:"type"`
	IsUsed       bool                `bson:"isUsed"`
	MappingField *primitive.ObjectID `bson:"mappingField"`
	CreatedAt    time.Time           `bson:"createdAt"`
	UpdatedAt    time.Time           `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoFieldDoc) ToDomain() *domain.Field {
	field := &domain.Field{
		ID:          d.ID.Hex(),
		AppID:       d.App.Hex(),
		ConnectID:   d.Connect.Hex(),
		UserID:      d.UserID,
		ModuleType:  domain.ModuleType(d.ModuleType),
		Name:        d.Name,
		Label:       d.Label,
		Description: d.Description,
		Type:        d.Type,
		IsUsed:      d.IsUsed,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.MappingField != nil {
		field.MappingField = d.MappingField.Hex()
	}
	return field
}

// MongoFieldDocFromDomain converts a domain entity to a MongoDB document
func MongoFieldDocFromDomain(field *domain.Field) *MongoFieldDoc {
	doc := &MongoFieldDoc{
		ID:           ObjectIDOrZero(field.ID),
		App:          ObjectIDOrZero(field.AppID),
		Connect:      ObjectIDOrZero(field.ConnectID),
		UserID:       field.UserID,
		ModuleType:   string(field.ModuleType),
		Name:         field.Name,
		Label:        field.Label,
		Description:  field.Description,
		Type:         field.Type,
		IsUsed:       field.IsUsed,
		MappingField: ObjectIDPtr(field.MappingField),
		CreatedAt:    field.CreatedAt,
		UpdatedAt:    field.UpdatedAt,
	}
	return doc
}

// ObjectIDPtr parses a hex id into a pointer, nil for empty or invalid ids
func ObjectIDPtr(id string) *primitive.ObjectID {
	if id == "" {
		return nil
	}
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	return &objID
}

// MongoModuleAppDoc represents the custom field inventory of one App module
type MongoModuleAppDoc struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	App         primitive.ObjectID   `bson:"app"`
	DisplayName string               `bson:"displayName"`
	Type        string               `bson:"type"`
	Platform    string               `bson:"platform"`
	Fields      []primitive.ObjectID `bson:"fields"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoModuleAppDoc) ToDomain() *domain.ModuleApp {
	ids := make([]string, 0, len(d.Fields))
	for _, id := range d.Fields {
		ids = append(ids, id.Hex())
	}
	return &domain.ModuleApp{
		ID:          d.ID.Hex(),
		AppID:       d.App.Hex(),
		DisplayName: d.DisplayName,
		Type:        domain.ModuleType(d.Type),
		Platform:    domain.Platform(d.Platform),
		FieldIDs:    ids,
	}
}

// MongoModuleAppDocFromDomain converts a domain entity to a MongoDB document
func MongoModuleAppDocFromDomain(m *domain.ModuleApp) *MongoModuleAppDoc {
	fields := make([]primitive.ObjectID, 0, len(m.FieldIDs))
	for _, id := range m.FieldIDs {
		if objID, err := primitive.ObjectIDFromHex(id); err == nil {
			fields = append(fields, objID)
		}
	}
	return &MongoModuleAppDoc{
		ID:          ObjectIDOrZero(m.ID),
		App:         ObjectIDOrZero(m.AppID),
		DisplayName: m.DisplayName,
		Type:        string(m.Type),
		Platform:    string(m.Platform),
		Fields:      fields,
	}
}
