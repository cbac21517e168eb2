package legend

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
	"github.com/walteh/gotmpls-hybrid/pkg/semtok"
	"gitlab.com/tozd/go/errors"
)

func NewLegendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "legend",
		Short: "print the semantic token legend as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Write(cmd.OutOrStdout(), semtok.DefaultLegend())
		},
	}
}

func Write(out io.Writer, legend *semtok.Legend) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(legend); err != nil {
		return errors.Errorf("encoding legend: %w", err)
	}
	return nil
}
