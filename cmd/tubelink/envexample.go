package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# tubelink Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: TUBELINK_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	writeEnvSection(&content, cmd, "Lookup Tool", []string{
		"tool-path", "shell-path", "process-timeout-secs", "total-timeout-secs",
		"max-concurrent-lookups", "check-tool-version",
	})
	writeEnvSection(&content, cmd, "HTTP Server", []string{
		"server-host", "server-port", "server-read-timeout-secs", "server-write-timeout-secs",
	})
	writeEnvSection(&content, cmd, "Flood Prevention", []string{"flood-limit-per-minute"})
	writeEnvSection(&content, cmd, "Localization", []string{"language"})
	writeEnvSection(&content, cmd, "Logging", []string{"log-level"})

	return content.String()
}

func writeEnvSection(content *strings.Builder, cmd *cobra.Command, title string, flagNames []string) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# %s\n", title)
	content.WriteString("# -----------------------------------------------------------------------------\n")
	fmt.Fprintf(content, "# CLI: --%s\n", strings.Join(flagNames, ", --"))

	for _, name := range flagNames {
		f := cmd.Root().PersistentFlags().Lookup(name)
		if f == nil {
			continue
		}
		fmt.Fprintf(content, "%s=%s  # %s\n", flagToEnvVar(name), f.DefValue, f.Usage)
	}
	content.WriteString("\n")
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
