package app

import "arcquiz-service/internal/domain"

var (
	gradeUnavailable = domain.Grade{Title: "Result unavailable", Message: "The result could not be computed."}

	gradeBands = []struct {
		min   float64
		grade domain.Grade
	}{
		{1.0, domain.Grade{Title: "Excellent", Message: "Perfect score. Outstanding performance."}},
		{0.8, domain.Grade{Title: "Very good", Message: "Consistent performance, well above average."}},
		{0.6, domain.Grade{Title: "Good", Message: "Good result. There is room to grow."}},
		{0.4, domain.Grade{Title: "Fair", Message: "You are on your way. Keep practicing."}},
		{0, domain.Grade{Title: "Beginner", Message: "Everyone starts somewhere. Practice builds consistency."}},
	}
)

// Grade classifies score out of total; bands are checked highest first.
func Grade(score, total int) domain.Grade {
	if total <= 0 {
		return gradeUnavailable
	}
	pct := float64(score) / float64(total)
	for _, band := range gradeBands {
		if pct >= band.min {
			return band.grade
		}
	}
	return gradeBands[len(gradeBands)-1].grade
}

// Percent returns score/total as a percentage, 0 when total is 0.
func Percent(score, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}
