package match

import (
	"fmt"
	"strings"

	"jobscout/scraper-service/internal/model"
)

// HeuristicScorer is the deterministic fallback used when the AI scoring
// capability is unavailable or returns something unusable. Keyword overlap
// with a deliberate upward bias: transferable skills are worth something,
// so a thin match is scored gently rather than punished. The formula keeps
// the score in [0,100] by construction, no clamping needed.
type HeuristicScorer struct{}

// Score computes the keyword-overlap verdict. It cannot fail.
func (HeuristicScorer) Score(profile model.Profile, job model.JobListing) model.MatchResult {
	text := strings.ToLower(job.Description + " " + job.Title)

	var matching []string
	total := 0
	for _, group := range [][]string{profile.Skills, profile.SoftSkills} {
		for _, skill := range group {
			skill = strings.TrimSpace(skill)
			if skill == "" {
				continue
			}
			total++
			if strings.Contains(text, strings.ToLower(skill)) {
				matching = append(matching, skill)
			}
		}
	}

	var score int
	if total == 0 {
		// No skills listed: slightly positive rather than zero.
		score = 55
	} else {
		base := len(matching) * 70 / total
		if base > 70 {
			base = 70
		}
		bonus := len(matching) * 4
		if bonus > 20 {
			bonus = 20
		}
		expBonus := 5
		if profile.YearsExperience > 0 {
			expBonus = 10
		}
		score = base + bonus + expBonus
		if score > 100 {
			score = 100
		}
	}

	fit := model.FitWeak
	switch {
	case score >= 75:
		fit = model.FitStrong
	case score >= 55:
		fit = model.FitModerate
	}

	if len(matching) > 15 {
		matching = matching[:15]
	}
	if matching == nil {
		matching = []string{}
	}

	return model.MatchResult{
		Score:          score,
		MatchingSkills: matching,
		MissingSkills:  []string{},
		ExperienceFit:  fit,
		Reasoning: fmt.Sprintf(
			"Keyword overlap: %d of %d profile skills appear in the job text.",
			len(matching), total),
		ComputedVia: model.ViaHeuristic,
	}
}
