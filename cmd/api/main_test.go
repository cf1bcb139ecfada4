package main

import (
	"testing"
	"time"

	appconfig "github.com/wolfman30/novatech-assistant/internal/config"
)

func TestNewServerUsesPort(t *testing.T) {
	srv := newServer(&appconfig.Config{Port: "9999", LLMTimeout: time.Second}, nil)
	if srv.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %s", srv.Addr)
	}
	if srv.WriteTimeout != 15*time.Second {
		t.Fatalf("expected default write timeout, got %s", srv.WriteTimeout)
	}
}

func TestNewServerStretchesWriteTimeoutForLLM(t *testing.T) {
	srv := newServer(&appconfig.Config{Port: "8080", LLMTimeout: 30 * time.Second}, nil)
	if srv.WriteTimeout != 35*time.Second {
		t.Fatalf("expected write timeout to cover the LLM budget, got %s", srv.WriteTimeout)
	}
}
