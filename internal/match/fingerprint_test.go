package match

import (
	"strings"
	"testing"

	"jobscout/scraper-service/internal/model"
)

func TestFingerprintDeterministic(t *testing.T) {
	profile := model.Profile{Skills: []string{"Go", "SQL"}, YearsExperience: 4}
	a := Fingerprint(profile, "build backend services")
	b := Fingerprint(profile, "build backend services")
	if a != b {
		t.Fatalf("same inputs produced %q and %q", a, b)
	}
	if !strings.HasPrefix(a, "job_match:") {
		t.Errorf("key %q missing prefix", a)
	}
}

func TestFingerprintDistinct(t *testing.T) {
	profile := model.Profile{Skills: []string{"Go"}}
	a := Fingerprint(profile, "description one")
	b := Fingerprint(profile, "description two")
	if a == b {
		t.Error("different descriptions produced the same key")
	}

	other := model.Profile{Skills: []string{"Rust"}}
	c := Fingerprint(other, "description one")
	if a == c {
		t.Error("different profiles produced the same key")
	}
}
