package strategy

import "strings"

// MaskStrategy format-preserves a partial reveal of the original value:
// enough leading/trailing characters survive for a human to sanity-check
// the value's shape, the rest is replaced with asterisks. Masking is
// not reversible — the original value is never stored.
type MaskStrategy struct{}

func (MaskStrategy) Name() string     { return "mask" }
func (MaskStrategy) Reversible() bool { return false }

func (MaskStrategy) Render(entityType, original string, _ int) string {
	switch {
	case strings.Contains(entityType, "PHONE"):
		return maskDigitsKeeping(original, 3, 4)
	case strings.Contains(entityType, "EMAIL"):
		return maskEmail(original)
	case strings.Contains(entityType, "CREDIT_CARD"):
		return maskDigitsKeeping(original, 4, 4)
	case strings.Contains(entityType, "ID_CARD") || strings.Contains(entityType, "IDCARD"):
		return maskDigitsKeeping(original, 6, 4)
	case strings.Contains(entityType, "IP"):
		return maskGeneric(original)
	default:
		return maskGeneric(original)
	}
}

// maskDigitsKeeping keeps the first `lead` and last `trail` digits of
// original (ignoring non-digit separators) and replaces the rest with
// asterisks. If there aren't enough digits to keep both ends distinct,
// the whole value is masked.
func maskDigitsKeeping(original string, lead, trail int) string {
	var digits []rune
	for _, r := range original {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < lead+trail {
		return strings.Repeat("*", len([]rune(original)))
	}
	middle := len(digits) - lead - trail
	return string(digits[:lead]) + strings.Repeat("*", middle) + string(digits[len(digits)-trail:])
}

// maskEmail keeps the first and last character of the local part and
// masks everything else, leaving the domain untouched.
func maskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return strings.Repeat("*", len(email))
	}
	local, domain := email[:at], email[at:]
	runes := []rune(local)
	if len(runes) <= 2 {
		return strings.Repeat("*", len(runes)) + domain
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-2) + string(runes[len(runes)-1]) + domain
}

// maskGeneric keeps the first and last quarter of the value and masks
// the middle half.
func maskGeneric(value string) string {
	runes := []rune(value)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	show := len(runes) / 4
	if show < 1 {
		show = 1
	}
	return string(runes[:show]) + strings.Repeat("*", len(runes)-2*show) + string(runes[len(runes)-show:])
}
