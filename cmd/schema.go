package cmd

import (
	"encoding/json"
	"path/filepath"
	"reflect"

	"github.com/drmplay-cli/drmplay/history"
	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().BoolP("history", "H", false, "Generate the schema of history entries instead")
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of parse --json and history list --json output",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true
		reflector.Namer = func(t reflect.Type) string {
			return filepath.Base(t.PkgPath()) + "." + t.Name()
		}

		var schema *jsonschema.Schema
		if lo.Must(cmd.Flags().GetBool("history")) {
			schema = reflector.Reflect([]*history.Entry{})
		} else {
			schema = reflector.Reflect(&parseOutput{})
		}

		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		handleErr(encoder.Encode(schema))
	},
}
