package geoip

import (
	"testing"
)

func TestNew_EmptyPath(t *testing.T) {
	r := New("")
	if r.Enabled() {
		t.Fatal("expected resolver without database to be disabled")
	}
	if loc := r.Lookup("8.8.8.8"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
}

func TestNew_InvalidPath(t *testing.T) {
	r := New("/nonexistent/path.mmdb")
	if r.Enabled() {
		t.Fatal("expected missing database to disable lookups")
	}
	if loc := r.Lookup("8.8.8.8"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
}

func TestLookup_NilResolver(t *testing.T) {
	var r *Resolver
	if loc := r.Lookup("8.8.8.8"); loc != (Location{}) {
		t.Errorf("expected empty location, got %+v", loc)
	}
	if err := r.Close(); err != nil {
		t.Errorf("expected no error closing nil resolver, got %v", err)
	}
}

func TestClose_NoDatabase(t *testing.T) {
	if err := New("").Close(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
