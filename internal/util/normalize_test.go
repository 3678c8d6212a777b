package util

import (
	"reflect"
	"testing"
)

func TestNormalizeRecipient_Basic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Name <User@Example.COM>`, "User@example.com"},
		{`  ana@x.com  `, "ana@x.com"},
		{`user+tag@EXAMPLE.com`, "user+tag@example.com"}, // alias kept
		{`user.name@example.com`, "user.name@example.com"},
		{`bad address`, ""}, // unparsable
		{`@example.com`, ""},
		{``, ""},
	}
	for _, tc := range tests {
		if got := NormalizeRecipient(tc.in); got != tc.want {
			t.Errorf("NormalizeRecipient(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"name", "Name"},
		{" EMAIL ", "Email"},
		{"status", "Status"},
		{"first name", "First Name"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := NormalizeHeader(tc.in); got != tc.want {
			t.Errorf("NormalizeHeader(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestSplitAddresses(t *testing.T) {
	got := SplitAddresses(" a@x.com, ,b@y.com,")
	want := []string{"a@x.com", "b@y.com"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitAddresses = %v; want %v", got, want)
	}
	if SplitAddresses("") != nil {
		t.Fatal("empty input should yield nil")
	}
}
