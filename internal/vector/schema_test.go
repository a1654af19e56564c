package vector

import (
	"context"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

type MockSchemaClient struct {
	CreatedClass    *models.Class
	ExistingClass   *models.Class
	AddedProperties []*models.Property
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	if m.ExistingClass != nil {
		return true, nil
	}
	return false, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.CreatedClass = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.ExistingClass, nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestEnsureSchema_CreatesClass(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if client.CreatedClass == nil {
		t.Fatal("Class not created")
	}
	if client.CreatedClass.Class != ClassName {
		t.Errorf("Class name = %s, want %s", client.CreatedClass.Class, ClassName)
	}
	if client.CreatedClass.Vectorizer != "none" {
		t.Errorf("Vectorizer = %s, want none (vectors are supplied by the pipeline)", client.CreatedClass.Vectorizer)
	}

	expectedProps := map[string]string{
		"chunkId":      "string",
		"docId":        "string",
		"fileName":     "text",
		"locationUrl":  "string",
		"chunkIndex":   "int",
		"text":         "text",
		"uploaderId":   "string",
		"uploaderName": "string",
	}

	found := make(map[string]bool)
	for _, prop := range client.CreatedClass.Properties {
		found[prop.Name] = true
		if expectedType, ok := expectedProps[prop.Name]; ok {
			if len(prop.DataType) == 0 || prop.DataType[0] != expectedType {
				t.Errorf("Property %s has wrong DataType: %v (expected %s)", prop.Name, prop.DataType, expectedType)
			}
		}
	}
	for name := range expectedProps {
		if !found[name] {
			t.Errorf("Missing property %s", name)
		}
	}
}

func TestEnsureSchema_AddsMissingProperties(t *testing.T) {
	// Simulate existing class without the uploader properties
	existingClass := &models.Class{
		Class: ClassName,
		Properties: []*models.Property{
			{Name: "chunkId", DataType: []string{"string"}},
			{Name: "docId", DataType: []string{"string"}},
			{Name: "fileName", DataType: []string{"text"}},
			{Name: "locationUrl", DataType: []string{"string"}},
			{Name: "chunkIndex", DataType: []string{"int"}},
			{Name: "text", DataType: []string{"text"}},
		},
	}

	client := &MockSchemaClient{
		ExistingClass: existingClass,
	}

	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if client.CreatedClass != nil {
		t.Fatal("Should not recreate class if it exists")
	}

	addedNames := make(map[string]bool)
	for _, p := range client.AddedProperties {
		addedNames[p.Name] = true
	}

	if !addedNames["uploaderId"] {
		t.Error("Missing 'uploaderId' property")
	}
	if !addedNames["uploaderName"] {
		t.Error("Missing 'uploaderName' property")
	}
	if addedNames["text"] {
		t.Error("Should not re-add existing 'text' property")
	}
}

func TestCheckDimension(t *testing.T) {
	if err := CheckDimension([]float32{1, 2, 3}, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckDimension([]float32{1, 2}, 3); err == nil {
		t.Fatal("expected dimension mismatch")
	}
}
