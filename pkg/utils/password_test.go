package utils

import (
	"errors"
	"testing"
)

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("secret-pass")
	if err != nil {
		t.Fatalf("HashPassword error = %v", err)
	}
	if h == "secret-pass" {
		t.Fatal("HashPassword returned the plain text")
	}
	if !CheckPassword("secret-pass", h) {
		t.Error("CheckPassword(correct) = false, want true")
	}
	if CheckPassword("wrong", h) {
		t.Error("CheckPassword(wrong) = true, want false")
	}
}

func TestHashPassword_Empty(t *testing.T) {
	if _, err := HashPassword(""); !errors.Is(err, ErrEmptyPassword) {
		t.Errorf("HashPassword(\"\") error = %v, want ErrEmptyPassword", err)
	}
}
