package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the
// result to .chronicle.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to chronicle. Let's set up your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	providerPrompt := promptui.Select{
		Label: "Select LLM provider",
		Items: []string{"openrouter", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	modelPrompt := promptui.Prompt{
		Label:   "Extraction model",
		Default: DefaultModel(cfg.Provider),
	}
	if cfg.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	sessionsPrompt := promptui.Prompt{
		Label: "Sessions directory (where transcript .jsonl files live)",
	}
	if cfg.SessionsDir, err = sessionsPrompt.Run(); err != nil {
		return nil, fmt.Errorf("sessions dir: %w", err)
	}
	cfg.SessionsDir = strings.TrimSpace(cfg.SessionsDir)

	boardPrompt := promptui.Prompt{
		Label:   "Board API base URL (blank to skip reconciliation)",
		Default: "",
	}
	if cfg.Board.BaseURL, err = boardPrompt.Run(); err != nil {
		return nil, fmt.Errorf("board url: %w", err)
	}

	budgetPrompt := promptui.Prompt{
		Label:   "Daily model budget in USD (0 for no limit)",
		Default: "5",
	}
	budgetStr, err := budgetPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("budget: %w", err)
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(budgetStr), "%f", &cfg.BudgetUSDPerDay); err != nil {
		return nil, fmt.Errorf("budget %q is not a number", budgetStr)
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: set %s in your environment before running chronicle extract.\n", envVar)
	}
	if cfg.Board.BaseURL != "" && BoardToken() == "" {
		fmt.Println("Note: set CHRONICLE_BOARD_TOKEN before running chronicle reconcile.")
	}

	if err := cfg.Save(DefaultPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("\nConfiguration saved to %s\n", DefaultPath)
	return cfg, nil
}
