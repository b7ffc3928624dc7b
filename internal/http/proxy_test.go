package http

import (
	nethttp "net/http"
	"net/url"
	"testing"

	ntlmssp "github.com/Azure/go-ntlmssp"

	"github.com/notanas/notanas-cli/internal/config"
)

func TestProxyFuncWithBypass_EmptyNoProxy(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")
	proxyFunc := proxyFuncWithBypass(proxyURL, "")

	req, _ := nethttp.NewRequest("GET", "https://nas.example.com/api/v1/file/root", nil)
	result, err := proxyFunc(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || result.Host != "proxy.corp:8080" {
		t.Errorf("expected proxy host proxy.corp:8080, got %v", result)
	}
}

func TestProxyFuncWithBypass_Matches(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.corp:8080")

	tests := []struct {
		name     string
		noProxy  string
		target   string
		wantPass bool
	}{
		{"wildcard domain", "*.example.com", "https://nas.example.com/x", true},
		{"exact domain covers subdomain", "example.com", "https://nas.example.com/x", true},
		{"cidr", "10.0.0.0/8", "http://10.1.2.3:8080/x", true},
		{"outside cidr", "10.0.0.0/8", "http://192.168.1.2:8080/x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proxyFunc := proxyFuncWithBypass(proxyURL, tt.noProxy)
			req, _ := nethttp.NewRequest("GET", tt.target, nil)
			result, err := proxyFunc(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantPass && result != nil {
				t.Errorf("expected direct connection, got %v", result)
			}
			if !tt.wantPass && result == nil {
				t.Error("expected proxied connection, got direct")
			}
		})
	}
}

func TestBuildProxyURL(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyHost = "proxy.corp"
	cfg.ProxyPort = 0
	cfg.ProxyUser = "bob"

	u := buildProxyURL(cfg)
	if u.Host != "proxy.corp:8080" {
		t.Errorf("expected default port, got %s", u.Host)
	}
	if u.User != nil {
		t.Error("credentials must not be embedded without a password")
	}

	cfg.ProxyPassword = "pw"
	u = buildProxyURL(cfg)
	if u.User == nil || u.User.Username() != "bob" {
		t.Errorf("expected embedded user, got %v", u.User)
	}
}

func TestConfigureHTTPClientModes(t *testing.T) {
	tests := []struct {
		mode     string
		host     string
		wantNTLM bool
		wantErr  bool
	}{
		{mode: "no-proxy"},
		{mode: ""},
		{mode: "system"},
		{mode: "basic", host: "proxy.corp"},
		{mode: "basic"},
		{mode: "ntlm", host: "proxy.corp", wantNTLM: true},
		{mode: "socks", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := config.NewConfig()
			cfg.ProxyMode = tt.mode
			cfg.ProxyHost = tt.host

			client, err := ConfigureHTTPClient(cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, isNTLM := client.Transport.(ntlmssp.Negotiator)
			if isNTLM != tt.wantNTLM {
				t.Errorf("NTLM transport = %v, want %v", isNTLM, tt.wantNTLM)
			}
		})
	}
}

func TestNeedsProxyPassword(t *testing.T) {
	cfg := config.NewConfig()
	cfg.ProxyMode = "basic"
	cfg.ProxyUser = "bob"
	if !NeedsProxyPassword(cfg) {
		t.Error("expected password prompt for basic mode with user and no password")
	}
	cfg.ProxyPassword = "pw"
	if NeedsProxyPassword(cfg) {
		t.Error("no prompt expected once password is set")
	}
	cfg.ProxyMode = "system"
	cfg.ProxyPassword = ""
	if NeedsProxyPassword(cfg) {
		t.Error("system mode never prompts")
	}
}

func TestNewHTTPClientDisableHTTP2(t *testing.T) {
	t.Setenv("DISABLE_HTTP2", "true")
	client, err := NewHTTPClient(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, ok := client.Transport.(*nethttp.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", client.Transport)
	}
	if tr.ForceAttemptHTTP2 {
		t.Error("expected HTTP/2 disabled")
	}
	if client.Timeout != 0 {
		t.Errorf("expected no client timeout, got %v", client.Timeout)
	}
}
