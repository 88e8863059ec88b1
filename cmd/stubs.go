package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/excflow/excflow/internal/stubs"
	"github.com/excflow/excflow/output"
)

var stubsCmd = &cobra.Command{
	Use:   "stubs",
	Short: "Manage the external-function exception-set library",
}

var stubsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every loaded stub entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lib, err := loadStubs(directory)
		if err != nil {
			return err
		}
		entries := lib.All()
		if format == "json" {
			return output.NewJSONFormatter(Version).Format("stubs", entries)
		}
		if len(entries) == 0 {
			fmt.Println("No stub entries loaded.")
			return nil
		}
		fmt.Printf("Stub entries (%d):\n\n", len(entries))
		for _, e := range entries {
			fmt.Printf("  %-40s %v\n", e.Qualified, e.Raises)
		}
		return nil
	},
}

type stubFileDoc struct {
	Library string        `yaml:"library"`
	Entries []stubs.Entry `yaml:"entries"`
}

var stubsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a new project stub file interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var libraryName, qualified string
		var raisesCSV string

		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Library or module name").
					Placeholder("requests").
					Value(&libraryName),
				huh.NewInput().
					Title("Qualified function name").
					Placeholder("requests.get").
					Value(&qualified),
				huh.NewInput().
					Title("Exception types it raises (comma-separated)").
					Placeholder("requests.ConnectionError, requests.Timeout").
					Value(&raisesCSV),
			),
		)
		if err := form.Run(); err != nil {
			return fmt.Errorf("interactive prompt failed: %w", err)
		}
		if libraryName == "" {
			return fmt.Errorf("library name is required")
		}

		raises := splitAndTrim(raisesCSV)
		doc := stubFileDoc{
			Library: libraryName,
			Entries: []stubs.Entry{{Qualified: qualified, Raises: raises}},
		}
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encode stub file: %w", err)
		}

		stubDir := filepath.Join(directory, configDirName, "stubs")
		if err := os.MkdirAll(stubDir, 0o755); err != nil {
			return fmt.Errorf("create stub directory: %w", err)
		}
		path := filepath.Join(stubDir, libraryName+".yaml")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return fmt.Errorf("write stub file: %w", err)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var stubsValidateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Parse project stub files and report errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		stubDir := filepath.Join(directory, configDirName, "stubs")
		files := args
		if len(files) == 0 {
			entries, err := os.ReadDir(stubDir)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("No project stub directory found.")
					return nil
				}
				return fmt.Errorf("read stub directory: %w", err)
			}
			for _, e := range entries {
				if !e.IsDir() {
					files = append(files, filepath.Join(stubDir, e.Name()))
				}
			}
		}

		invalid := 0
		for _, f := range files {
			lib := stubs.New()
			if err := lib.LoadFile(f); err != nil {
				fmt.Printf("FAIL  %s: %v\n", f, err)
				invalid++
				continue
			}
			fmt.Printf("OK    %s (%d entries)\n", f, lib.Len())
		}
		if invalid > 0 {
			return fmt.Errorf("%d stub file(s) failed to parse", invalid)
		}
		return nil
	},
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	stubsCmd.AddCommand(stubsListCmd, stubsInitCmd, stubsValidateCmd)
	rootCmd.AddCommand(stubsCmd)
}
