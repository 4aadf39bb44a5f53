package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/binjac/samplem-bridge/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "View and modify configuration",
	Long: `View and modify samplem-bridge configuration.

With no arguments, displays all configuration.
With one argument, displays the value for the specified key.
With two arguments, sets the value for the specified key.

Values are checked before they are written; every key can also be set with
an environment variable, e.g. SAMPLEM_BRIDGE_DEFAULTS_LAYOUT.`,
	Example: `  # Show all config
  samplem-bridge config

  # Show value for a specific key
  samplem-bridge config defaults.layout

  # Set a value
  samplem-bridge config defaults.layout keep

  # Point at a samplem outside PATH
  samplem-bridge config executable.name /opt/samplem/bin/samplem

  # Open config file in editor
  samplem-bridge config --edit`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		editFlag, _ := cmd.Flags().GetBool("edit")
		if editFlag {
			return runEdit()
		}

		loader := LoaderFromContext(cmd.Context())
		if loader == nil {
			return errors.New("config loader not initialized")
		}

		out := cmd.OutOrStdout()
		switch len(args) {
		case 0:
			return runShowAll(out, loader)
		case 1:
			return runShowKey(out, loader, args[0])
		case 2:
			return runSetKey(out, loader, args[0], args[1])
		}

		return nil
	},
}

func runEdit() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		return config.ErrNoEditor
	}

	loader, err := config.NewLoader()
	if err != nil {
		return fmt.Errorf("init config loader: %w", err)
	}

	// Load creates the file if missing. A file that fails validation is
	// still opened so it can be fixed.
	if _, err := loader.Load(); err != nil {
		if _, statErr := os.Stat(loader.Path()); statErr != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	editorCmd := exec.Command(editor, loader.Path())
	editorCmd.Stdin = os.Stdin
	editorCmd.Stdout = os.Stdout
	editorCmd.Stderr = os.Stderr

	return editorCmd.Run()
}

func runShowAll(w io.Writer, loader *config.Loader) error {
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	fmt.Fprint(w, string(data))
	return nil
}

func runShowKey(w io.Writer, loader *config.Loader, key string) error {
	if err := config.ValidateKey(key); err != nil {
		return err
	}

	// Load to ensure file exists
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	value, err := loader.Get(key)
	if err != nil {
		return err
	}

	if value == nil {
		fmt.Fprintln(w, "")
		return nil
	}

	switch v := value.(type) {
	case string:
		fmt.Fprintln(w, v)
	case map[string]any, []any, []string:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
		fmt.Fprint(w, string(data))
	default:
		fmt.Fprintln(w, value)
	}

	return nil
}

func runSetKey(w io.Writer, loader *config.Loader, key, value string) error {
	// Load first to ensure file exists
	if _, err := loader.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := loader.Set(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "Set %s = %s\n", key, value)
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("edit", false, "open config file in $EDITOR")
}
