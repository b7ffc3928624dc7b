package otl

import (
	"errors"
	"testing"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		input      string
		wantToken  string
		wantServer string
	}{
		{"abc123", "abc123", ""},
		{"  abc123 ", "abc123", ""},
		{"http://nas.local:3000/onetimelink/abc123", "abc123", "http://nas.local:3000"},
		{"https://nas.example.com/onetimelink/abc123/", "abc123", "https://nas.example.com"},
		{"https://nas.example.com/onetimelink/abc123?ref=mail", "abc123", "https://nas.example.com"},
		{"/onetimelink/abc123", "abc123", ""},
		{"http://nas.local:3000/otl?id=abc123", "abc123", "http://nas.local:3000"},
		{"http://host/prefix/otl?id=abc123", "abc123", "http://host/prefix"},
		{"http://host/prefix/onetimelink/abc123", "abc123", "http://host/prefix"},
	}
	for _, tt := range tests {
		token, server, err := ParseToken(tt.input)
		if err != nil {
			t.Errorf("ParseToken(%q): %v", tt.input, err)
			continue
		}
		if token != tt.wantToken || server != tt.wantServer {
			t.Errorf("ParseToken(%q) = %q, %q; want %q, %q", tt.input, token, server, tt.wantToken, tt.wantServer)
		}
	}
}

func TestParseTokenEmpty(t *testing.T) {
	for _, in := range []string{"", "   ", "http://nas/onetimelink/"} {
		if _, _, err := ParseToken(in); !errors.Is(err, ErrEmptyToken) {
			t.Errorf("ParseToken(%q) = %v, want ErrEmptyToken", in, err)
		}
	}
}
