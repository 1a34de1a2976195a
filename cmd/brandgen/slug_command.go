package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"brandgen/internal/models"
	"brandgen/internal/naming"
	"brandgen/internal/render"
)

func newSlugCommand() *cobra.Command {
	var stored bool

	cmd := &cobra.Command{
		Use:   "slug <id> <brand name>",
		Short: "Print the upload filename for a brand",
		Long:  "Print the filename a card for this brand is uploaded under. Pass an empty id (\"\") for records without one.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := models.BrandRecord{
				ID:    models.BrandID(strings.TrimSpace(args[0])),
				Brand: strings.Join(args[1:], " "),
			}
			name := naming.Filename(rec)
			fmt.Fprintln(cmd.OutOrStdout(), name)
			if stored {
				fmt.Fprintln(cmd.OutOrStdout(), naming.StoredName(name, render.PNGContentType))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&stored, "stored", false, "Also print the name the server stores the file under")
	return cmd
}
