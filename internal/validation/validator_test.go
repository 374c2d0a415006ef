package validation

import (
	"strings"
	"testing"

	"github.com/user/cagetracker/internal/model"
)

func TestStructUsesJSONNames(t *testing.T) {
	err := Struct(model.LoginRequest{Email: "nope"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "email failed email") {
		t.Errorf("expected json field name in %q", msg)
	}
	if !strings.Contains(msg, "password failed required") {
		t.Errorf("expected missing password in %q", msg)
	}
}

func TestGinValidator(t *testing.T) {
	v := GinValidator{}
	if err := v.ValidateStruct(&model.CheckCodeRequest{Code: "12a456"}); err == nil {
		t.Error("expected non-numeric code to fail")
	}
	if err := v.ValidateStruct(&model.CheckCodeRequest{Code: "123456"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateStruct([]int{1}); err != nil {
		t.Errorf("non-struct should pass: %v", err)
	}
	if err := v.ValidateStruct(nil); err != nil {
		t.Errorf("nil should pass: %v", err)
	}
}

func TestRatingBounds(t *testing.T) {
	cases := []struct {
		rating model.Rating
		ok     bool
	}{
		{0, false},
		{0.5, true},
		{5, true},
		{5.5, false},
	}
	for _, tc := range cases {
		err := Struct(model.RateRequest{MovieID: "m1", Rating: tc.rating})
		if (err == nil) != tc.ok {
			t.Errorf("rating %v: got err %v", tc.rating, err)
		}
	}
}
