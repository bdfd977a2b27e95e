package secretscan

import "regexp"

// Pattern is one credential/secret signature the scanner looks for.
type Pattern struct {
	Name        string
	Type        string
	Regexp      *regexp.Regexp
	RiskLevel   RiskLevel
	Description string
}

// RiskLevel classifies how dangerous a matched secret is if leaked.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// DefaultPatterns mirrors the common API-key/token/connection-string
// signatures GitHub/GitLab secret scanning and truffleHog look for.
var DefaultPatterns = compilePatterns([]struct {
	name, typ, pattern, description string
	risk                            RiskLevel
}{
	{"openai_api_key", "openai_api_key", `sk-[a-zA-Z0-9]{20,}T3BlbkFJ[a-zA-Z0-9]{20,}`, "OpenAI API key", RiskCritical},
	{"openai_api_key_short", "openai_api_key", `sk-[a-zA-Z0-9]{32,48}`, "OpenAI API key (short format)", RiskCritical},
	{"anthropic_api_key", "anthropic_api_key", `sk-ant-[a-zA-Z0-9_-]{32,}`, "Anthropic API key", RiskCritical},
	{"aws_access_key", "aws_access_key", `AKIA[0-9A-Z]{16}`, "AWS access key ID", RiskCritical},
	{"aws_secret_key", "aws_secret_key", `(?i)aws_secret_access_key\s*[:=]\s*['"]?[0-9a-zA-Z/+]{40}['"]?`, "AWS secret access key", RiskCritical},
	{"gcp_api_key", "gcp_api_key", `AIza[0-9A-Za-z\-_]{35}`, "Google Cloud API key", RiskCritical},
	{"github_token", "github_token", `gh[pousr]_[a-zA-Z0-9]{36}`, "GitHub token", RiskCritical},
	{"slack_token", "slack_token", `xox[baprs]-[0-9]{10,13}-[0-9]{10,13}[a-zA-Z0-9-]*`, "Slack token", RiskHigh},
	{"stripe_key", "stripe_api_key", `sk_(live|test)_[0-9a-zA-Z]{24,}`, "Stripe secret key", RiskCritical},
	{"twilio_sid", "twilio_account_sid", `AC[a-f0-9]{32}`, "Twilio account SID", RiskMedium},
	{"sendgrid_key", "sendgrid_api_key", `SG\.[a-zA-Z0-9_-]{22}\.[a-zA-Z0-9_-]{43}`, "SendGrid API key", RiskHigh},
	{"jwt", "jwt_token", `eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`, "JWT", RiskMedium},
	{"private_key_block", "private_key", `-----BEGIN\s+(RSA|EC|OPENSSH|PGP|DSA)?\s*PRIVATE KEY-----`, "private key block", RiskCritical},
	{"bearer_token", "oauth_access_token", `(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`, "bearer token", RiskHigh},
	{"password_assignment", "password", `(?i)(password|passwd|pwd|secret|api[_-]?key)\s*[:=]\s*['"]?[a-zA-Z0-9!@#$%^&*()_+\-=\[\]{};':"\|,.<>/?]{8,}['"]?`, "password-style assignment", RiskMedium},
	{"postgres_uri", "database_url", `postgres(?:ql)?://[^:\s]+:[^@\s]+@[^/\s]+/\S+`, "PostgreSQL connection string", RiskHigh},
	{"mysql_uri", "database_url", `mysql://[^:\s]+:[^@\s]+@[^/\s]+/\S+`, "MySQL connection string", RiskHigh},
	{"mongodb_uri", "mongodb_uri", `mongodb(\+srv)?://[^:\s]+:[^@\s]+@\S+`, "MongoDB connection string", RiskHigh},
	{"redis_uri", "redis_url", `redis://[^:\s]*:[^@\s]+@\S+`, "Redis connection string", RiskMedium},
}...)

func compilePatterns(defs ...struct {
	name, typ, pattern, description string
	risk                            RiskLevel
}) []Pattern {
	out := make([]Pattern, 0, len(defs))
	for _, d := range defs {
		out = append(out, Pattern{
			Name:        d.name,
			Type:        d.typ,
			Regexp:      regexp.MustCompile(d.pattern),
			RiskLevel:   d.risk,
			Description: d.description,
		})
	}
	return out
}
