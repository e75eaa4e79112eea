package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/notexe/chat-gateway/internal/registry"
)

func newModelsCmd() *cobra.Command {
	var (
		validate bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured models",
		Long:  "List the logical model names whose vendor credentials are configured. With --validate each model is probed with a short request.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(os.Stderr)
			if err != nil {
				return err
			}
			reg := registry.New(cfg, logger)
			catalog := reg.ListAvailable()

			var valid map[string]bool
			if validate {
				valid = reg.Validate(cmd.Context())
			}

			return writeModels(cmd.OutOrStdout(), catalog, valid, asJSON)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "probe each model's credentials")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the catalog as JSON")
	return cmd
}

// modelStatus is one catalog entry of the JSON output. CredentialsValid is
// only present after --validate.
type modelStatus struct {
	registry.CatalogEntry
	CredentialsValid *bool `json:"credentials_valid,omitempty"`
}

// writeModels prints the catalog as a table or as JSON. A nil valid map
// means credentials were not probed.
func writeModels(out io.Writer, catalog []registry.CatalogEntry, valid map[string]bool, asJSON bool) error {
	if asJSON {
		entries := make([]modelStatus, 0, len(catalog))
		for _, m := range catalog {
			entry := modelStatus{CatalogEntry: m}
			if valid != nil {
				ok := valid[m.Name]
				entry.CredentialsValid = &ok
			}
			entries = append(entries, entry)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(catalog) == 0 {
		fmt.Fprintln(out, "No models configured. Set a vendor API key, e.g. GEMINI_API_KEY.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	header := "NAME\tPROVIDER\tDISPLAY NAME"
	if valid != nil {
		header += "\tCREDENTIALS"
	}
	fmt.Fprintln(w, header)
	for _, m := range catalog {
		line := fmt.Sprintf("%s\t%s\t%s", m.Name, m.Provider, m.DisplayName)
		if valid != nil {
			status := "invalid"
			if valid[m.Name] {
				status = "ok"
			}
			line += "\t" + status
		}
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}
