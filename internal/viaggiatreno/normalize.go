package viaggiatreno

import "strconv"

// Status is the canonical representation of upstream train state.
type Status string

const (
	StatusOnTime    Status = "OnTime"
	StatusDelayed   Status = "Delayed"
	StatusCancelled Status = "Cancelled"
)

// provisionCancelled is the provvedimento value Viaggiatreno uses for a
// cancelled train.
const provisionCancelled = 1

// Normalize maps a raw departure into the canonical (status, delay) pair.
// Cancellation always wins over delay: when the provision flag carries the
// cancellation sentinel the delay is forced to zero no matter what the raw
// delay figure says. Delay values are coerced to non-negative integers,
// missing or unparseable figures count as zero.
func Normalize(d *RawDeparture) (Status, int) {
	if coerceInt(string(d.Provision)) == provisionCancelled {
		return StatusCancelled, 0
	}

	delay := coerceInt(string(d.Delay))
	if delay < 0 {
		delay = 0
	}
	if delay > 0 {
		return StatusDelayed, delay
	}
	return StatusOnTime, 0
}

// coerceInt parses an upstream numeric field, treating anything that is not
// a number as zero. Float-formatted values are truncated.
func coerceInt(raw string) int {
	if raw == "" {
		return 0
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return 0
}
