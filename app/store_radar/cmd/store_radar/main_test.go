package main

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseStores(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"s1", []string{"s1"}},
		{" s1 , s2 ,, s3 ", []string{"s1", "s2", "s3"}},
		{" , ", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseStores(tt.in)); diff != "" {
			t.Errorf("parseStores(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
