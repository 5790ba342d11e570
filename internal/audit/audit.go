// Package audit logs every tealab command invocation with the resolved
// configuration file and the operational environment. Secrets, including
// connection strings that may embed passwords, are logged as presence only.
package audit

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// secretEnvKeys lists environment variable names whose values must never be
// logged. Only presence ("set") or absence ("unset") is recorded.
var secretEnvKeys = map[string]bool{
	"OPENAI_API_KEY":        true,
	"AZURE_OPENAI_API_KEY":  true,
	"GOOGLE_API_KEY":        true,
	"EMBEDDING_API_KEY":     true,
	"QDRANT_API_KEY":        true,
	"PGVECTOR_DSN":          true,
	"REDIS_URL":             true,
	"LANGFUSE_PUBLIC_KEY":   true,
	"LANGFUSE_SECRET_KEY":   true,
	"AWS_SECRET_ACCESS_KEY": true,
	"AWS_SESSION_TOKEN":     true,
}

// auditKeys is the ordered list of env vars included in every audit log
// entry, grouped by concern.
var auditKeys = []string{
	// model
	"MODEL_PROVIDER", "OLLAMA_HOST", "OLLAMA_MODEL",
	"OPENAI_API_KEY", "OPENAI_MODEL",
	"AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "AZURE_OPENAI_DEPLOYMENT",
	"GOOGLE_API_KEY", "GEMINI_MODEL",
	"AWS_REGION", "BEDROCK_MODEL_ID",
	// embedding and knowledge
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_API_KEY",
	"VECTOR_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION", "QDRANT_API_KEY",
	"PGVECTOR_DSN", "REDIS_URL",
	// catalog
	"TEALAB_DB", "TEALAB_DATA_DIR",
	// observability
	"LOG_LEVEL", "LOG_FORMAT", "LANGFUSE_PUBLIC_KEY", "LANGFUSE_SECRET_KEY",
}

// LogCommandStart emits one structured audit entry when a CLI command
// begins: the command name, the config file source and an "env" group of
// sanitised operational settings.
func LogCommandStart(ctx context.Context, log *slog.Logger, command string, configPath string) {
	env := make([]any, 0, len(auditKeys))
	for _, key := range auditKeys {
		env = append(env, slog.String(key, SanitiseKey(key, os.Getenv(key))))
	}

	log.LogAttrs(ctx, slog.LevelInfo, "audit: command start",
		slog.String("command", command),
		slog.String("config_file", sanitiseConfigPath(configPath)),
		slog.Group("env", env...),
	)
}

// SanitiseKey returns "set" or "unset" for known secret keys, or the actual
// value for non-secret keys. This is safe to use in log messages.
func SanitiseKey(key, value string) string {
	if secretEnvKeys[key] {
		return presence(value)
	}
	return valOrUnset(value)
}

// presence returns "set" if the value is non-empty, "unset" otherwise.
func presence(v string) string {
	if v != "" {
		return "set"
	}
	return "unset"
}

// valOrUnset returns the value if non-empty, "unset" otherwise.
func valOrUnset(v string) string {
	if v != "" {
		return v
	}
	return "unset"
}

// sanitiseConfigPath returns the config path or "none" if empty.
func sanitiseConfigPath(p string) string {
	if p == "" {
		return "none"
	}
	// Redact home directory for privacy in logs.
	home, err := os.UserHomeDir()
	if err == nil && strings.HasPrefix(p, home) {
		return "~" + p[len(home):]
	}
	return p
}
