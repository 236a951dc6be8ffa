package openapi

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formgrid/pkg/schema"
)

const usersDoc = `
openapi: 3.0.3
info:
  title: Users
  version: "1.0"
paths:
  /users:
    get:
      operationId: listUsers
      responses:
        "200":
          description: ok
    post:
      operationId: createUser
      summary: Create user
      x-formgrid:
        submitLabel: Save
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [email, role]
              properties:
                email:
                  type: string
                  format: email
                  x-formgrid:
                    order: 1
                    placeholder: you@example.com
                role:
                  type: string
                  enum: [admin, member]
                  default: member
                  x-formgrid:
                    order: 2
                seats:
                  type: integer
                  minimum: 1
                  maximum: 10
                  x-formgrid:
                    order: 3
                    showIf: 'role == "admin"'
                    dependsOn: [role]
                active:
                  type: boolean
                birthday:
                  type: string
                  format: date
                bio:
                  type: string
                  maxLength: 140
                  description: Short bio
                  x-formgrid:
                    type: textarea
                    rows: 3
                tags:
                  type: array
                  items:
                    type: string
                    enum: [a, b]
                address:
                  type: object
                  properties:
                    city:
                      type: string
  /avatars:
    post:
      requestBody:
        content:
          multipart/form-data:
            schema:
              type: object
              properties:
                files:
                  type: array
                  items:
                    type: string
                    format: binary
                  x-formgrid:
                    maxFiles: 2
                    accept: image/*
`

func TestFormFromOperation(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), []byte(usersDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	form, err := FormFromOperation(doc, "createUser")
	if err != nil {
		t.Fatalf("FormFromOperation: %v", err)
	}

	one, ten := 1.0, 10.0
	want := schema.Form{
		ID:          "createUser",
		Title:       "Create user",
		Action:      "/users",
		SubmitLabel: "Save",
		Fields: []schema.Field{
			{Name: "active", Type: schema.KindCheckbox},
			{Name: "bio", Type: schema.KindTextarea, Help: "Short bio", MaxLength: 140, Rows: 3},
			{Name: "birthday", Type: schema.KindDate},
			{Name: "tags", Type: schema.KindMultiSelect, Options: []schema.Option{{Value: "a", Label: "a"}, {Value: "b", Label: "b"}}},
			{Name: "email", Type: schema.KindEmail, Required: true, Placeholder: "you@example.com"},
			{Name: "role", Type: schema.KindSelect, Required: true, Value: "member", Options: []schema.Option{{Value: "admin", Label: "admin"}, {Value: "member", Label: "member"}}},
			{Name: "seats", Type: schema.KindNumber, Min: &one, Max: &ten, ShowIf: `role == "admin"`, DependsOn: []string{"role"}},
		},
	}
	if diff := cmp.Diff(want, form, cmpopts.IgnoreFields(schema.Field{}, "ShowIfFunc", "DisabledFunc", "Validate")); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestFormFromOperationByMethodAndPath(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), []byte(usersDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	form, err := FormFromOperation(doc, "POST:/avatars")
	if err != nil {
		t.Fatalf("FormFromOperation: %v", err)
	}
	if form.ID != "post:/avatars" || len(form.Fields) != 1 {
		t.Fatalf("unexpected form %+v", form)
	}
	files := form.Fields[0]
	if files.Type != schema.KindMultiFile || files.MaxFiles != 2 || files.Accept != "image/*" {
		t.Fatalf("unexpected files field %+v", files)
	}
}

func TestFormFromOperationErrors(t *testing.T) {
	t.Parallel()

	doc, err := Load(context.Background(), []byte(usersDoc))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := FormFromOperation(doc, "deleteUser"); !errors.Is(err, ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
	if _, err := FormFromOperation(doc, "listUsers"); err == nil {
		t.Fatalf("expected error for operation without body")
	}
	if _, err := FormFromOperation(nil, "createUser"); err == nil {
		t.Fatalf("expected error for nil document")
	}
}

func TestDocumentMergesIntoCatalog(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"api/users.yaml": &fstest.MapFile{Data: []byte(usersDoc)}}
	doc, err := LoadFS(context.Background(), fsys, "api/users.yaml")
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	built, err := Document(doc)
	if err != nil {
		t.Fatalf("Document: %v", err)
	}

	catalog, err := schema.LoadFS(nil)
	if err != nil {
		t.Fatalf("schema.LoadFS: %v", err)
	}
	if err := catalog.Add(built, "api/users.yaml"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if diff := cmp.Diff([]string{"createUser", "post:/avatars"}, catalog.FormIDs()); diff != "" {
		t.Fatalf("form ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	if _, err := Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Load(ctx, []byte(usersDoc)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
