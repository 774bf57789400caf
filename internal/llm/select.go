package llm

import "newslens/internal/errs"

// Select picks the backend name to use for a run. It is pure and
// deterministic: the requested name wins when it is among the available
// ones; otherwise the first available name in priority order is
// substituted. The caller logs the substitution.
func Select(requested string, available []string) (name string, substituted bool, err error) {
	if len(available) == 0 {
		return "", false, &errs.ConfigError{
			Key:     "api_keys",
			Message: "no synthesis backend credentials configured; set at least one of ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY",
		}
	}
	for _, a := range available {
		if a == requested {
			return requested, false, nil
		}
	}
	return available[0], true, nil
}
