package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/ironrun/internal/transpile"
	"github.com/vk/ironrun/iron"
)

func newTranspileCmd() *cobra.Command {
	var listStages bool

	cmd := &cobra.Command{
		Use:   "transpile [FILE|-]",
		Short: "Print the JavaScript produced for an IronScript file",
		Long: `Print the JavaScript produced for an IronScript file. With no FILE, or
when FILE is -, the script is read from standard input.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if listStages {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(transpile.Stages(), "\n"))
				return err
			}

			src, err := readSource(cmd, args)
			if err != nil {
				return runtimeError(err)
			}
			_, err = io.WriteString(cmd.OutOrStdout(), iron.Transpile(src))
			return err
		},
	}
	cmd.Flags().BoolVar(&listStages, "stages", false, "List the rewrite stages in order and exit.")
	return cmd
}

func readSource(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading standard input: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading script: %w", err)
	}
	return string(b), nil
}
