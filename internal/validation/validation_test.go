package validation

import (
	"strings"
	"testing"
)

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type seedRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"newPassword" validate:"min=8"`
	Backend  string `json:"backend" validate:"oneof=file memory"`
	Stock    int64  `json:"stock" validate:"gte=0"`
}

func TestValidateRequired(t *testing.T) {
	v := New()
	err := v.Validate(loginRequest{})
	if err == nil {
		t.Fatal("expected error for empty request")
	}
	msg := err.Error()
	if !strings.Contains(msg, "username is required") {
		t.Errorf("missing username message in %q", msg)
	}
	if !strings.Contains(msg, "password is required") {
		t.Errorf("missing password message in %q", msg)
	}
}

func TestValidatePasses(t *testing.T) {
	v := New()
	if err := v.Validate(loginRequest{Username: "admin", Password: "admin123"}); err != nil {
		t.Errorf("expected valid request, got %v", err)
	}
}

func TestValidateMessages(t *testing.T) {
	v := New()
	tests := []struct {
		name string
		req  seedRequest
		want string
	}{
		{"email", seedRequest{Email: "nope", Password: "longenough", Backend: "file"}, "email must be a valid email"},
		{"min", seedRequest{Email: "a@b.si", Password: "short", Backend: "file"}, "newPassword must be at least 8 characters"},
		{"oneof", seedRequest{Email: "a@b.si", Password: "longenough", Backend: "redis"}, "backend must be one of: file memory"},
		{"gte", seedRequest{Email: "a@b.si", Password: "longenough", Backend: "memory", Stock: -1}, "stock must not be less than 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			if err == nil {
				t.Fatal("expected error")
			}
			if err.Error() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, err.Error())
			}
		})
	}
}

func TestValidateOptionalFields(t *testing.T) {
	type update struct {
		Name  *string  `json:"name" validate:"omitnil,min=1"`
		Price *float64 `json:"price" validate:"omitnil,gte=0"`
	}
	v := New()

	if err := v.Validate(update{}); err != nil {
		t.Errorf("expected absent fields to pass, got %v", err)
	}

	empty, negative := "", -1.0
	err := v.Validate(update{Name: &empty, Price: &negative})
	if err == nil {
		t.Fatal("expected error")
	}
	want := "name must not be empty; price must not be less than 0"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
