package capability

import (
	"context"
	"strings"
)

// Stub returns canned, well-formed responses chosen by keywords in the tag
// and prompt. It makes offline demo runs exercise the decoded path of every
// stage.
type Stub struct{}

const (
	stubProfile = `{"name":"Jane Doe","years_experience":3,"skills":["python","sql","flask"],"projects":["project A - ETL","project B - API"],"highlights":["reduced latency by 30%"]}`

	stubRounds = `{"Round 1":{"name":"Technical","focus":"algorithms, python","questions":["Write a function to find two numbers that sum to target.","Explain a time complexity trade-off you considered."]},` +
		`"Round 2":{"name":"Behavioral","focus":"culture-fit, teamwork","questions":["Tell me about a time you led a project.","Describe a time you handled conflict."]},` +
		`"Round 3":{"name":"System Design","focus":"design principles","questions":["Design a URL shortener service."]}}`

	stubCritique = "Score: 6/10. Feedback: Good structure; add metrics and edge-case discussion."

	stubStudyPlan = `{"study_plan":"Week 1: arrays & hashing; Week 2: system design patterns; Week 3: behavioral STAR practice",` +
		`"flashcards":[{"q":"What is idempotency?","a":"Operation can be applied multiple times without changing the result beyond the initial application."},` +
		`{"q":"Time complexity of quicksort (avg)?","a":"O(n log n)"}]}`

	stubFollowUp = "Hi [Interviewer],\nThanks for the mock interview. I appreciated the feedback. Best, Jane"
)

var stubCategoryRounds = map[string]string{
	"behavioral":    `{"name":"Behavioral","focus":"culture-fit, teamwork","questions":["Tell me about a time you led a project.","Describe a time you handled conflict."]}`,
	"technical":     `{"name":"Technical","focus":"algorithms, python","questions":["Write a function to find two numbers that sum to target."]}`,
	"system-design": `{"name":"System Design","focus":"design principles","questions":["Design a URL shortener service."]}`,
}

func (Stub) Invoke(_ context.Context, prompt string, tag string) (string, error) {
	lowerTag := strings.ToLower(tag)
	lowerPrompt := strings.ToLower(prompt)

	// Tags are matched first; prompts carry user data that can contain any keyword.
	switch {
	case strings.Contains(lowerTag, "resume"):
		return stubProfile, nil
	case strings.Contains(lowerTag, "one interview round"):
		return stubCategoryRound(lowerPrompt), nil
	case strings.Contains(lowerTag, "round"):
		return stubRounds, nil
	case strings.Contains(lowerTag, "critique"):
		return stubCritique, nil
	case strings.Contains(lowerTag, "study plan"):
		return stubStudyPlan, nil
	case strings.Contains(lowerTag, "follow-up"):
		return stubFollowUp, nil
	}

	switch {
	case strings.Contains(lowerPrompt, "extract") && strings.Contains(lowerPrompt, "resume"):
		return stubProfile, nil
	case strings.Contains(lowerPrompt, "generate") && strings.Contains(lowerPrompt, "round"):
		return stubRounds, nil
	case strings.Contains(lowerPrompt, "study plan"):
		return stubStudyPlan, nil
	case strings.Contains(lowerPrompt, "critique"):
		return stubCritique, nil
	case strings.Contains(lowerPrompt, "follow-up") || strings.Contains(lowerPrompt, "email"):
		return stubFollowUp, nil
	}
	return "", nil
}

func stubCategoryRound(lowerPrompt string) string {
	for _, category := range []string{"system-design", "behavioral", "technical"} {
		if strings.Contains(lowerPrompt, "single "+category) {
			return stubCategoryRounds[category]
		}
	}
	return stubCategoryRounds["technical"]
}
