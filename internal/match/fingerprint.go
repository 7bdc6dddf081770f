// Package match scores job listings against a candidate profile, caching
// AI verdicts in a shared Redis tier and a process-local tier, with a
// deterministic keyword scorer as the always-available fallback.
package match

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"jobscout/scraper-service/internal/model"
)

// Fingerprint derives the cache key for a (profile, job description) pair:
// a stable hash over the canonical JSON form of the profile joined with the
// description. Identical inputs always produce the same key.
func Fingerprint(profile model.Profile, jobDescription string) string {
	profileJSON, _ := json.Marshal(profile)

	h := sha256.New()
	h.Write(profileJSON)
	h.Write([]byte{'|'})
	h.Write([]byte(jobDescription))

	return "job_match:" + hex.EncodeToString(h.Sum(nil))
}
