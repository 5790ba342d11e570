package provider

import (
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "ollama/valid",
			cfg:  Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: DefaultOllamaHost, Model: "mistral"}},
		},
		{
			name:    "ollama/missing model",
			cfg:     Config{Backend: BackendOllama, Ollama: ProviderOllama{Host: DefaultOllamaHost}},
			wantErr: "OLLAMA_MODEL",
		},
		{
			name: "openai/valid",
			cfg:  Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{APIKey: "sk-test", Model: "gpt-4o-mini"}},
		},
		{
			name:    "openai/missing api key",
			cfg:     Config{Backend: BackendOpenAI, OpenAI: ProviderOpenAI{Model: "gpt-4o-mini"}},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "azure/valid",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Endpoint: "https://tea.openai.azure.com", Deployment: "gpt-4.1",
			}},
		},
		{
			name: "azure/missing endpoint",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Deployment: "gpt-4.1",
			}},
			wantErr: "AZURE_OPENAI_ENDPOINT",
		},
		{
			name: "azure/missing deployment",
			cfg: Config{Backend: BackendAzure, AzureOpenAI: ProviderAzureOpenAI{
				APIKey: "key", Endpoint: "https://tea.openai.azure.com",
			}},
			wantErr: "AZURE_OPENAI_DEPLOYMENT",
		},
		{
			name:    "bedrock/missing model id",
			cfg:     Config{Backend: BackendBedrock, Bedrock: ProviderBedrock{AWSRegion: "us-east-1"}},
			wantErr: "BEDROCK_MODEL_ID",
		},
		{
			name:    "bedrock/missing region",
			cfg:     Config{Backend: BackendBedrock, Bedrock: ProviderBedrock{ModelID: "mistral.mistral-large"}},
			wantErr: "AWS_REGION",
		},
		{
			name:    "gemini/missing model",
			cfg:     Config{Backend: BackendGemini, Gemini: ProviderGemini{APIKey: "AIza-test"}},
			wantErr: "GEMINI_MODEL",
		},
		{
			name:    "unknown backend",
			cfg:     Config{Backend: "llamafile"},
			wantErr: "unknown backend",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err.Error(), tc.wantErr)
			}
		})
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"MODEL_PROVIDER", "OLLAMA_HOST", "OLLAMA_MODEL", "MODEL_MAX_TOKENS", "MODEL_TEMPERATURE"} {
		t.Setenv(k, "")
	}

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOllama {
		t.Errorf("Backend = %q, want ollama", cfg.Backend)
	}
	if cfg.Ollama.Model != DefaultOllamaModel {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, DefaultOllamaModel)
	}
	if cfg.Ollama.Host != DefaultOllamaHost {
		t.Errorf("Ollama.Host = %q", cfg.Ollama.Host)
	}
	if cfg.Tuning.MaxTokens != DefaultMaxTokens {
		t.Errorf("MaxTokens = %d, want %d", cfg.Tuning.MaxTokens, DefaultMaxTokens)
	}
	if cfg.Tuning.Temperature != DefaultTemperature {
		t.Errorf("Temperature = %v, want %v", cfg.Tuning.Temperature, DefaultTemperature)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("MODEL_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("MODEL_MAX_TOKENS", "not-a-number")
	t.Setenv("MODEL_TEMPERATURE", "0.2")

	cfg := ConfigFromEnv()
	if cfg.Backend != BackendOpenAI {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if got := cfg.ModelName(); got != "gpt-4o" {
		t.Errorf("ModelName() = %q", got)
	}
	if cfg.Tuning.MaxTokens != DefaultMaxTokens {
		t.Errorf("unparseable MODEL_MAX_TOKENS should fall back, got %d", cfg.Tuning.MaxTokens)
	}
	if cfg.Tuning.Temperature != 0.2 {
		t.Errorf("Temperature = %v", cfg.Tuning.Temperature)
	}
}

func TestIsAzureReasoningModel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		deployment string
		want       bool
	}{
		{"o1", true},
		{"o1-mini", true},
		{"o3-pro", true},
		{"o4-mini", true},
		{"O3-Mini", true},
		{"codex-mini", true},
		{"gpt-5.2-codex", false},
		{"gpt-4o", false},
		{"gpt-4.1", false},
		{"omni-deployment", false},
		{"", false},
	}

	for _, tc := range tests {
		t.Run(tc.deployment, func(t *testing.T) {
			t.Parallel()
			if got := isAzureReasoningModel(tc.deployment); got != tc.want {
				t.Errorf("isAzureReasoningModel(%q) = %v, want %v", tc.deployment, got, tc.want)
			}
		})
	}
}
