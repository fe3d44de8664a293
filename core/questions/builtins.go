package questions

import "time"

// TimeQuestion is answered with the current wall clock.
const TimeQuestion = "What time is it?"

// Builtin is a computed entry registered alongside the stored questions.
type Builtin struct {
	Question string
	Answer   Answer
}

// DefaultBuiltins returns the computed entries shipped with the bot.
func DefaultBuiltins(now func() time.Time) []Builtin {
	if now == nil {
		now = time.Now
	}
	return []Builtin{
		{Question: TimeQuestion, Answer: SyncCompute(func() string {
			return now().Format("15:04")
		})},
	}
}
