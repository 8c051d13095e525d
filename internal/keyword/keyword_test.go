package keyword

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"My Shop!!", "my-shop", true},
		{"shop", "shop", true},
		{"  Shop  ", "shop", true},
		{"my   shop", "my-shop", true},
		{"café&bar", "caf-bar", true},
		{"a--b---c", "a-b-c", true},
		{"-leading-and-trailing-", "leading-and-trailing", true},
		{"ACME2000", "acme2000", true},
		{",,,", "", false},
		{"   ", "", false},
		{"", "", false},
		{"!!!", "", false},
	}

	for _, tc := range cases {
		got, ok := Normalize(tc.in)
		if ok != tc.ok {
			t.Fatalf("Normalize(%q): ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeList_DedupesAndDrops(t *testing.T) {
	t.Parallel()

	got := NormalizeList([]string{"My Shop", "my-shop", ",,,", "Other", "  "})
	want := []string{"my-shop", "other"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeList: got %v, want %v", got, want)
	}
}

func TestNormalizeTLDs(t *testing.T) {
	t.Parallel()

	got := NormalizeTLDs([]string{" .COM", "io", "com", "", "Io"})
	want := []string{"com", "io"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("NormalizeTLDs: got %v, want %v", got, want)
	}
}
