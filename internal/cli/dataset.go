/*
PURPOSE:
  Defines the 'dataset' subcommand group.
  'export' writes the built-in dataset to disk as a starting point for an
  override file; 'validate' checks an override file against the schema and
  integrity rules.

REQUIREMENTS:
  User-specified:
  - dataset export --dir, dataset validate [--file].

  Implementation-discovered:
  - Export refuses to overwrite existing files unless --force, since the
    target is usually a user's own edited copy.

ARCHITECTURE INTEGRATION:
  - Uses: internal/dataset (embedded files, LoadFile, Validate)

ERROR HANDLING:
  - validate returns the joined integrity errors, one per line.
    Callers can errors.Is them against dataset.ErrDanglingReference etc.
  - export stops at the first file it cannot write.

USAGE:
  gpu-sim dataset export --dir ./my-dataset
  gpu-sim dataset validate --file ./my-dataset/extra.yaml
*/

package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/dataset"
	"github.com/Imtiaj-Sajin/ai-gpu-simulator/internal/output"
)

func newDatasetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Export or validate dataset files",
	}
	cmd.AddCommand(newDatasetExportCmd(), newDatasetValidateCmd(a))
	return cmd
}

func newDatasetExportCmd() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the built-in dataset YAML files to a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output.Logger.Info("Exporting dataset...", "target", dir)
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create target directory %s: %w", dir, err)
			}

			files := dataset.Files()
			count := 0
			err := fs.WalkDir(files, ".", func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				content, err := fs.ReadFile(files, path)
				if err != nil {
					return fmt.Errorf("failed to read embedded file %s: %w", path, err)
				}

				target := filepath.Join(dir, filepath.FromSlash(path))
				if _, err := os.Stat(target); err == nil && !force {
					return fmt.Errorf("%s already exists (use --force to overwrite)", target)
				}
				if err := os.WriteFile(target, content, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", target, err)
				}
				output.Logger.Debug("Exported file", "name", path)
				fmt.Fprintln(cmd.OutOrStdout(), target)
				count++
				return nil
			})
			if err != nil {
				return err
			}

			output.Logger.Info("Export complete", "total_files", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "dataset", "target directory")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func newDatasetValidateCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a dataset file merged over the built-in dataset",
		Long: `Loads the built-in dataset, merges the given file over it (records with the
same id replace built-in ones) and checks the result: unique ids, positive
sizes, and benchmark gpu/model ids that resolve.

Without --file the configured dataset file (--dataset or dataset_file) is
checked, or the built-in dataset alone.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				file = a.cfg.DatasetFile
			}
			repo, err := dataset.LoadFile(file)
			if err != nil {
				return err
			}

			name := file
			if name == "" {
				name = "built-in dataset"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d gpus, %d models, %d benchmarks)\n",
				name, len(repo.GPUs()), len(repo.Models()), len(repo.Benchmarks()))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "dataset YAML file to check")
	return cmd
}
