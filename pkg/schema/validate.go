package schema

import "fmt"

// Validate checks a snapshot for structural problems: unsupported
// version, entries with empty endpoints, negative or non-finite
// weights, unknown actors. All failures are reported together.
func Validate(s *Snapshot) error {
	var errs []error

	if s.Version <= 0 {
		errs = append(errs, &ValidationError{
			Field:  "version",
			Reason: "missing or non-positive",
		})
	} else if s.Version > Version {
		errs = append(errs, &ValidationError{
			Field:  "version",
			Reason: fmt.Sprintf("unsupported version %d (this build reads up to %d)", s.Version, Version),
		})
	}

	for i, w := range s.Weights {
		if w.From == "" || w.To == "" {
			errs = append(errs, &ValidationError{
				Field:  fmt.Sprintf("weights[%d]", i),
				Reason: "empty endpoint",
			})
		}
		if w.Actor != "" && !w.Actor.Valid() {
			errs = append(errs, &ValidationError{
				Field:  fmt.Sprintf("weights[%d].actor", i),
				Reason: fmt.Sprintf("unknown actor %q", w.Actor),
			})
		}
		if w.Weight < 0 || w.Weight != w.Weight {
			errs = append(errs, &ValidationError{
				Field:  fmt.Sprintf("weights[%d].weight", i),
				Reason: "negative or NaN",
			})
		}
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
