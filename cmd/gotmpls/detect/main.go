package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/gotmpls-hybrid/pkg/config"
	"github.com/walteh/gotmpls-hybrid/pkg/directive"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	json bool
	fs   afero.Fs
}

func NewDetectCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "detect [file...]",
		Short: "print the base language each template file would be highlighted as",
		Args:  cobra.MinimumNArgs(1),
	}

	cmd.Flags().BoolVar(&me.json, "json", false, "print one JSON object per file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context(), cmd.OutOrStdout(), args)
	}

	return cmd
}

type Result struct {
	File string `json:"file"`
	directive.Detection
}

func (me *Handler) Run(ctx context.Context, out io.Writer, files []string) error {
	opts := config.FromContext(ctx).DirectiveOptions()

	enc := json.NewEncoder(out)
	for _, file := range files {
		data, err := afero.ReadFile(me.fs, file)
		if err != nil {
			return errors.Errorf("reading %s: %w", file, err)
		}

		res := Result{File: file, Detection: directive.DetectPath(file, string(data), opts)}
		if me.json {
			if err := enc.Encode(res); err != nil {
				return errors.Errorf("encoding result: %w", err)
			}
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", res.File, res.LanguageID, res.Source)
	}
	return nil
}
