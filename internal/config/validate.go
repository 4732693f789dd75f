package config

import (
	"errors"
	"fmt"

	"github.com/GSejas/health-watch-sub002/internal/domain/channel"
)

// ValidationError represents one configuration validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// knownKinds are the probe kinds the daemon ships an operation for
// (§6 "unknown kinds are rejected at configuration load").
var knownKinds = map[string]struct{}{
	string(channel.KindHTTP):   {},
	string(channel.KindTCP):    {},
	string(channel.KindDNS):    {},
	string(channel.KindScript): {},
	string(channel.KindTask):   {},
}

var knownPriorities = map[string]struct{}{
	string(channel.PriorityLow):      {},
	string(channel.PriorityMedium):   {},
	string(channel.PriorityHigh):     {},
	string(channel.PriorityCritical): {},
}

// Validate checks cfg for errors. Callers must run it after
// applyDefaults (Load/Parse already do); B2 relies on Threshold still
// distinguishing "explicit 0" from "unset".
//
// Params:
//   - cfg: the configuration to check.
//
// Returns:
//   - error: an errors.Join of every ValidationError found, or nil.
func Validate(cfg *Config) error {
	var errs []error

	ids := make(map[string]bool, len(cfg.Channels))
	for i, ch := range cfg.Channels {
		prefix := fmt.Sprintf("channels[%d]", i)

		if ch.ID == "" {
			errs = append(errs, ValidationError{Field: prefix + ".id", Message: "id is required"})
		} else if ids[ch.ID] {
			errs = append(errs, ValidationError{Field: prefix + ".id", Message: fmt.Sprintf("duplicate channel id: %s", ch.ID)})
		}
		if ch.ID != "" {
			ids[ch.ID] = true
		}

		if _, ok := knownKinds[ch.Kind]; !ok {
			errs = append(errs, ValidationError{Field: prefix + ".kind", Message: fmt.Sprintf("unknown probe kind: %q", ch.Kind)})
		}

		// B2: threshold=0 is rejected at config load, distinct from an
		// unset field (which applyDefaults already filled in).
		if ch.Threshold != nil && *ch.Threshold == 0 {
			errs = append(errs, ValidationError{Field: prefix + ".threshold", Message: "threshold must be >= 1 (0 is rejected)"})
		}
		if ch.Threshold != nil && *ch.Threshold < 0 {
			errs = append(errs, ValidationError{Field: prefix + ".threshold", Message: "threshold must not be negative"})
		}

		if ch.Priority != "" {
			if _, ok := knownPriorities[ch.Priority]; !ok {
				errs = append(errs, ValidationError{Field: prefix + ".priority", Message: fmt.Sprintf("unknown priority: %q", ch.Priority)})
			}
		}

		for _, ref := range ch.Guards {
			if _, ok := cfg.Guards[ref]; !ok {
				errs = append(errs, ValidationError{Field: prefix + ".guards", Message: fmt.Sprintf("undefined guard reference: %q", ref)})
			}
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate validates c.
//
// Returns:
//   - error: see the package-level Validate.
func (c *Config) Validate() error {
	return Validate(c)
}
